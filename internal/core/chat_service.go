package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cleaning-moscow/liza-bot/internal/store"
)

// Persona is the system prompt for every conversational turn.
const Persona = "Ты — Лиза, виртуальный помощник клининговой компании Cleaning-Moscow. " +
	"Ты гордишься нашей компанией. Отвечай дружелюбно, чётко и только на основе " +
	"обучающих материалов, если они есть."

// KnowledgeFoundNote prefixes replies that were grounded in the knowledge base.
const KnowledgeFoundNote = "🧠 Я нашла информацию в базе знаний:\n\n"

// Completer is the slice of the LLM service the chat flow needs.
type Completer interface {
	ChatCompletion(ctx context.Context, persona, userContent string) (string, error)
}

// ChatService runs one conversational turn: accumulate the user's context,
// ground the question in the knowledge base when possible, and relay the
// completion.
type ChatService struct {
	store           *store.Store
	knowledge       *KnowledgeService
	llm             Completer
	contextMaxChars int
}

func NewChatService(s *store.Store, k *KnowledgeService, llm Completer, contextMaxChars int) *ChatService {
	return &ChatService{
		store:           s,
		knowledge:       k,
		llm:             llm,
		contextMaxChars: contextMaxChars,
	}
}

// Reply processes one user utterance and returns the text to send back.
// Store faults and provider faults propagate; the transport boundary decides
// what the user sees.
func (s *ChatService) Reply(ctx context.Context, userID int64, userInput string) (string, error) {
	slog.Info("processing user input", "user_id", userID, "chars", len(userInput))

	history, err := s.store.GetConversation(userID)
	if err != nil {
		return "", err
	}
	history = appendBounded(history, userInput, s.contextMaxChars)
	if err := s.store.SaveConversation(userID, history); err != nil {
		return "", err
	}

	knowledgeText, found, err := s.knowledge.RelevantForPrompt(userInput)
	if err != nil {
		return "", err
	}

	answer, err := s.llm.ChatCompletion(ctx, Persona, buildUserPrompt(history, knowledgeText, userInput))
	if err != nil {
		return "", err
	}

	if found {
		return KnowledgeFoundNote + answer, nil
	}
	return answer, nil
}

// IngestToConversation is the ingestion adapter for already-extracted
// document or spreadsheet text: the content wholesale replaces the user's
// stored context, bounded like any other write.
func (s *ChatService) IngestToConversation(userID int64, text string) error {
	return s.store.SaveConversation(userID, appendBounded("", text, s.contextMaxChars))
}

// ClearConversation drops the user's accumulated context.
func (s *ChatService) ClearConversation(userID int64) error {
	return s.store.ClearConversation(userID)
}

func buildUserPrompt(history, knowledgeText, userInput string) string {
	var b strings.Builder
	if prior := strings.TrimSpace(strings.TrimSuffix(history, userInput)); prior != "" {
		fmt.Fprintf(&b, "Контекст переписки:\n%s\n\n", prior)
	}
	if knowledgeText != "" {
		fmt.Fprintf(&b,
			"Вот обучающие материалы из базы знаний:\n%s\n\nТеперь ответь на вопрос, используя ТОЛЬКО эти материалы:\n%s",
			knowledgeText, userInput)
	} else {
		fmt.Fprintf(&b, "Вопрос: %s", userInput)
	}
	return b.String()
}

// appendBounded appends the utterance to the history and trims the result to
// the most recent maxChars runes, preferring a line boundary when one falls
// inside the first quarter of the kept window. The window keeps the forwarded
// prompt from growing without bound.
func appendBounded(history, utterance string, maxChars int) string {
	combined := utterance
	if history != "" {
		combined = history + "\n" + utterance
	}

	runes := []rune(combined)
	if len(runes) <= maxChars {
		return combined
	}

	kept := runes[len(runes)-maxChars:]
	if cut := strings.IndexRune(string(kept[:maxChars/4]), '\n'); cut >= 0 {
		return strings.TrimPrefix(string(kept)[cut:], "\n")
	}
	return string(kept)
}
