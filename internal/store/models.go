package store

import "time"

// KnowledgeEntry is an administrator-curated fact used to ground replies.
// Entries are immutable after insertion and ordered by Timestamp for
// retrieval.
type KnowledgeEntry struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AddedBy   int64     `json:"added_by"`
	Timestamp time.Time `json:"timestamp"`
}

// Document is an uploaded file's extracted text, keyed by (user, name).
type Document struct {
	UserID  int64  `json:"user_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// DailyActivity summarizes one user's presence in one chat on one calendar
// day. FirstMsg is write-once per key; LastMsg and Username track the most
// recent message.
type DailyActivity struct {
	ChatID   int64     `json:"chat_id"`
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	Day      string    `json:"day"` // YYYY-MM-DD
	FirstMsg time.Time `json:"first_msg"`
	LastMsg  time.Time `json:"last_msg"`
}
