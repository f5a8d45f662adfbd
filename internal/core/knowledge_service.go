package core

import (
	"fmt"
	"strings"

	"github.com/cleaning-moscow/liza-bot/internal/store"
)

// KnowledgeService decides whether the knowledge base holds anything relevant
// to a piece of free text and formats it for prompt inclusion. Retrieval is
// naive substring containment with a recency tie-break: the base is small and
// administrator-curated, and newer guidance wins over older.
type KnowledgeService struct {
	store *store.Store
}

func NewKnowledgeService(s *store.Store) *KnowledgeService {
	return &KnowledgeService{store: s}
}

// RelevantForPrompt returns the matching entries joined for inclusion in a
// completion prompt, and whether anything matched at all.
func (s *KnowledgeService) RelevantForPrompt(query string) (string, bool, error) {
	matches, err := s.store.GetRelevantKnowledge(query, store.DefaultKnowledgeLimit)
	if err != nil {
		return "", false, fmt.Errorf("failed to retrieve knowledge: %w", err)
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	return strings.Join(matches, "\n\n"), true, nil
}

// Learn stores one administrator-taught entry. Re-teaching an identical
// (title, content) pair is a no-op.
func (s *KnowledgeService) Learn(title, content string, addedBy int64) error {
	return s.store.SaveKnowledge(title, content, addedBy)
}

// Lookup returns the single most recent entry whose content mentions the
// keyword, or nil when nothing matches.
func (s *KnowledgeService) Lookup(keyword string) (*store.KnowledgeEntry, error) {
	return s.store.FindKnowledgeByKeyword(keyword)
}

// Forget bulk-deletes entries by id and reports how many actually existed.
func (s *KnowledgeService) Forget(ids []int64) (int64, error) {
	return s.store.DeleteKnowledge(ids)
}

// Recent returns the newest entries for the admin overview.
func (s *KnowledgeService) Recent(limit int) ([]store.KnowledgeEntry, error) {
	return s.store.ListRecentKnowledge(limit)
}

// IngestFileAsKnowledge is the ingestion adapter for already-extracted file
// text (Drive sync): one knowledge entry per file, named after it, with the
// store's (title, content) de-duplication keeping repeated syncs idempotent.
func (s *KnowledgeService) IngestFileAsKnowledge(name, text string, addedBy int64) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.store.SaveKnowledge(name, text, addedBy)
}
