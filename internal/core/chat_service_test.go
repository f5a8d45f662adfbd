package core

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cleaning-moscow/liza-bot/internal/store"
)

type stubCompleter struct {
	lastPersona string
	lastPrompt  string
	reply       string
}

func (c *stubCompleter) ChatCompletion(_ context.Context, persona, userContent string) (string, error) {
	c.lastPersona = persona
	c.lastPrompt = userContent
	return c.reply, nil
}

func newTestServices(t *testing.T) (*store.Store, *KnowledgeService, *stubCompleter, *ChatService) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	k := NewKnowledgeService(s)
	llm := &stubCompleter{reply: "ответ"}
	return s, k, llm, NewChatService(s, k, llm, 8000)
}

func TestReply_Ungrounded(t *testing.T) {
	_, _, llm, chat := newTestServices(t)

	reply, err := chat.Reply(context.Background(), 1, "привет")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply != "ответ" {
		t.Errorf("reply = %q, want bare completion without knowledge note", reply)
	}
	if llm.lastPersona != Persona {
		t.Errorf("persona = %q, want the Liza persona", llm.lastPersona)
	}
	if !strings.Contains(llm.lastPrompt, "Вопрос: привет") {
		t.Errorf("prompt = %q, want plain question form", llm.lastPrompt)
	}
}

func TestReply_GroundedInKnowledge(t *testing.T) {
	_, k, llm, chat := newTestServices(t)

	if err := k.Learn("офисы", "офисы убираем по будням", 1); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	reply, err := chat.Reply(context.Background(), 1, "офисы")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.HasPrefix(reply, KnowledgeFoundNote) {
		t.Errorf("reply = %q, want knowledge note prefix", reply)
	}
	if !strings.Contains(llm.lastPrompt, "офисы убираем по будням") {
		t.Errorf("prompt does not carry the retrieved material: %q", llm.lastPrompt)
	}
	if !strings.Contains(llm.lastPrompt, "ТОЛЬКО эти материалы") {
		t.Errorf("prompt missing grounding instruction: %q", llm.lastPrompt)
	}
}

func TestReply_AccumulatesContext(t *testing.T) {
	s, _, _, chat := newTestServices(t)

	if _, err := chat.Reply(context.Background(), 7, "первое"); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if _, err := chat.Reply(context.Background(), 7, "второе"); err != nil {
		t.Fatalf("Reply: %v", err)
	}

	got, err := s.GetConversation(7)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got != "первое\nвторое" {
		t.Errorf("stored context = %q, want %q", got, "первое\nвторое")
	}
}

func TestIngestToConversation_Replaces(t *testing.T) {
	s, _, _, chat := newTestServices(t)

	if err := s.SaveConversation(3, "old talk"); err != nil {
		t.Fatalf("SaveConversation: %v", err)
	}
	if err := chat.IngestToConversation(3, "document text"); err != nil {
		t.Fatalf("IngestToConversation: %v", err)
	}

	got, err := s.GetConversation(3)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got != "document text" {
		t.Errorf("stored context = %q, want full replacement", got)
	}
}

func TestAppendBounded(t *testing.T) {
	tests := []struct {
		name      string
		history   string
		utterance string
		max       int
		want      string
	}{
		{"empty history", "", "hi", 100, "hi"},
		{"appends with newline", "a", "b", 100, "a\nb"},
		{"under limit untouched", "hello", "world", 11, "hello\nworld"},
		{"trims oldest", strings.Repeat("x", 50), "tail", 20, strings.Repeat("x", 15) + "\ntail"},
		{"prefers line boundary", "first\n" + strings.Repeat("y", 28), "z", 32, strings.Repeat("y", 28) + "\nz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := appendBounded(tt.history, tt.utterance, tt.max)
			if got != tt.want {
				t.Errorf("appendBounded() = %q, want %q", got, tt.want)
			}
			if n := len([]rune(got)); n > tt.max {
				t.Errorf("result has %d runes, exceeds max %d", n, tt.max)
			}
		})
	}
}
