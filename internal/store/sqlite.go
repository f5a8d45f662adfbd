package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// timeLayout is a fixed-width RFC 3339 variant. Knowledge retrieval orders by
// the stored string, so the fractional part must not be truncated.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const dayLayout = "2006-01-02"

// DefaultKnowledgeLimit caps relevant-knowledge retrieval when the caller
// does not ask for a specific limit.
const DefaultKnowledgeLimit = 3

// Store owns the single SQLite handle shared by all operations. Each
// operation is one statement (or one read-then-write pair) against one table;
// there are no cross-table transactions.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and initializes the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err = s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS conversations (
        user_id INTEGER PRIMARY KEY,
        context TEXT
    );

    CREATE TABLE IF NOT EXISTS documents (
        user_id INTEGER,
        document_name TEXT,
        document_content TEXT,
        PRIMARY KEY (user_id, document_name)
    );

    CREATE TABLE IF NOT EXISTS knowledge (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        title TEXT,
        content TEXT,
        added_by INTEGER,
        timestamp TEXT
    );

    CREATE TABLE IF NOT EXISTS daily_user_activity (
        chat_id    INTEGER,
        user_id    INTEGER,
        username   TEXT,
        day        TEXT,
        first_msg  TEXT,
        last_msg   TEXT,
        PRIMARY KEY (chat_id, user_id, day)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Conversation methods

// SaveConversation fully replaces the stored context for the user.
func (s *Store) SaveConversation(userID int64, context string) error {
	_, err := s.db.Exec(
		"REPLACE INTO conversations (user_id, context) VALUES (?, ?)",
		userID, context,
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// GetConversation returns the stored context, or the empty string when the
// user has no row.
func (s *Store) GetConversation(userID int64) (string, error) {
	var context string
	err := s.db.QueryRow(
		"SELECT context FROM conversations WHERE user_id = ?", userID,
	).Scan(&context)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to query conversation: %w", err)
	}
	return context, nil
}

// ClearConversation deletes the user's context row. Clearing a user with no
// row is not an error.
func (s *Store) ClearConversation(userID int64) error {
	_, err := s.db.Exec("DELETE FROM conversations WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return nil
}

// Document methods

// SaveDocument replaces-or-inserts the extracted text keyed by (user, name).
func (s *Store) SaveDocument(userID int64, name, content string) error {
	_, err := s.db.Exec(
		"REPLACE INTO documents (user_id, document_name, document_content) VALUES (?, ?, ?)",
		userID, name, content,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// GetDocument returns the stored document, or nil when absent.
func (s *Store) GetDocument(userID int64, name string) (*Document, error) {
	doc := Document{UserID: userID, Name: name}
	err := s.db.QueryRow(
		"SELECT document_content FROM documents WHERE user_id = ? AND document_name = ?",
		userID, name,
	).Scan(&doc.Content)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &doc, nil
}

// Knowledge methods

// SaveKnowledge inserts a knowledge entry unless an identical (title,
// content) pair already exists; the duplicate case is a silent no-op.
func (s *Store) SaveKnowledge(title, content string, addedBy int64) error {
	var exists int
	err := s.db.QueryRow(
		"SELECT 1 FROM knowledge WHERE title = ? AND content = ?",
		title, content,
	).Scan(&exists)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check for duplicate knowledge: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO knowledge (title, content, added_by, timestamp) VALUES (?, ?, ?, ?)",
		title, content, addedBy, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert knowledge: %w", err)
	}
	return nil
}

// GetRelevantKnowledge returns up to limit entries whose title or content
// contains query (case-insensitive), newest first, each formatted as
// "title\ncontent" for prompt inclusion. A non-positive limit means
// DefaultKnowledgeLimit.
func (s *Store) GetRelevantKnowledge(query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultKnowledgeLimit
	}
	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.Query(`
        SELECT title, content FROM knowledge
        WHERE LOWER(content) LIKE ? OR LOWER(title) LIKE ?
        ORDER BY timestamp DESC LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var title, content string
		if err := rows.Scan(&title, &content); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge row: %w", err)
		}
		matches = append(matches, title+"\n"+content)
	}
	return matches, rows.Err()
}

// FindKnowledgeByKeyword returns the single most recent entry whose content
// contains keyword (case-insensitive), or nil when nothing matches.
func (s *Store) FindKnowledgeByKeyword(keyword string) (*KnowledgeEntry, error) {
	pattern := "%" + strings.ToLower(keyword) + "%"
	var entry KnowledgeEntry
	var ts string
	err := s.db.QueryRow(`
        SELECT id, title, content, added_by, timestamp FROM knowledge
        WHERE LOWER(content) LIKE ?
        ORDER BY timestamp DESC LIMIT 1`,
		pattern,
	).Scan(&entry.ID, &entry.Title, &entry.Content, &entry.AddedBy, &ts)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query knowledge by keyword: %w", err)
	}
	if entry.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge timestamp: %w", err)
	}
	return &entry, nil
}

// ListRecentKnowledge returns the newest limit entries.
func (s *Store) ListRecentKnowledge(limit int) ([]KnowledgeEntry, error) {
	rows, err := s.db.Query(
		"SELECT id, title, content, added_by, timestamp FROM knowledge ORDER BY timestamp DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent knowledge: %w", err)
	}
	defer rows.Close()

	var entries []KnowledgeEntry
	for rows.Next() {
		var entry KnowledgeEntry
		var ts string
		if err := rows.Scan(&entry.ID, &entry.Title, &entry.Content, &entry.AddedBy, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge row: %w", err)
		}
		if entry.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("failed to parse knowledge timestamp: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteKnowledge bulk-deletes entries by id and returns the number actually
// removed. Unknown ids are skipped, not errors.
func (s *Store) DeleteKnowledge(ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := s.db.Exec(
		"DELETE FROM knowledge WHERE id IN ("+placeholders+")", args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete knowledge: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted knowledge: %w", err)
	}
	return deleted, nil
}

// Activity methods

// UpdateDailyActivity records one message for the (chat, user, day) key in a
// single atomic upsert. The first message of the day sets both timestamps;
// later messages overwrite only username and last_msg, so first_msg is
// write-once per key.
func (s *Store) UpdateDailyActivity(chatID, userID int64, username string, at time.Time) error {
	day := at.Format(dayLayout)
	stamp := at.UTC().Format(timeLayout)
	_, err := s.db.Exec(`
        INSERT INTO daily_user_activity (chat_id, user_id, username, day, first_msg, last_msg)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(chat_id, user_id, day) DO UPDATE SET
            username = excluded.username,
            last_msg = excluded.last_msg`,
		chatID, userID, username, day, stamp, stamp,
	)
	if err != nil {
		return fmt.Errorf("failed to update daily activity: %w", err)
	}
	return nil
}

// GetDailyActivity returns all activity rows for one calendar day.
func (s *Store) GetDailyActivity(day string) ([]DailyActivity, error) {
	rows, err := s.db.Query(`
        SELECT chat_id, user_id, username, day, first_msg, last_msg
        FROM daily_user_activity WHERE day = ?
        ORDER BY chat_id, user_id`,
		day,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily activity: %w", err)
	}
	defer rows.Close()

	var activities []DailyActivity
	for rows.Next() {
		var a DailyActivity
		var first, last string
		if err := rows.Scan(&a.ChatID, &a.UserID, &a.Username, &a.Day, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		if a.FirstMsg, err = time.Parse(timeLayout, first); err != nil {
			return nil, fmt.Errorf("failed to parse first_msg: %w", err)
		}
		if a.LastMsg, err = time.Parse(timeLayout, last); err != nil {
			return nil, fmt.Errorf("failed to parse last_msg: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
