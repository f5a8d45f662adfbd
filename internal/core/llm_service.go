package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cleaning-moscow/liza-bot/internal/config"
)

const llmRequestTimeout = 90 * time.Second

// LLMService wraps the OpenAI API: chat completions for the conversational
// turn and Whisper for voice transcription. Calls are not retried; any
// provider fault propagates to the caller (the bot boundary turns it into an
// apology).
type LLMService struct {
	client             *openai.Client
	chatModel          string
	transcriptionModel string
}

func NewLLMService(cfg *config.Config) *LLMService {
	return &LLMService{
		client:             openai.NewClient(cfg.OpenAIAPIKey),
		chatModel:          cfg.ChatModel,
		transcriptionModel: cfg.TranscriptionModel,
	}
}

// ChatCompletion sends the persona as the system message and userContent as
// the single user turn, returning the generated reply.
func (s *LLMService) ChatCompletion(ctx context.Context, persona, userContent string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, llmRequestTimeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: persona},
			{Role: openai.ChatMessageRoleUser, Content: userContent},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe runs Whisper over the audio file at path and returns the
// trimmed transcript. Telegram voice notes are accepted in their native OGG
// container; transcoding stays outside this layer.
func (s *LLMService) Transcribe(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, llmRequestTimeout)
	defer cancel()

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.transcriptionModel,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
