// Package bot is the Telegram transport: long polling, command dispatch,
// and the boundary where store and collaborator faults become user-visible
// apologies.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/cleaning-moscow/liza-bot/internal/config"
	"github.com/cleaning-moscow/liza-bot/internal/core"
	"github.com/cleaning-moscow/liza-bot/internal/gdrive"
	"github.com/cleaning-moscow/liza-bot/internal/store"
)

// Bot wires the Telegram API to the chat, knowledge and activity flows.
// google is nil when no credentials are configured; the Google commands then
// answer with a configuration hint instead.
type Bot struct {
	cfg       *config.Config
	bot       *telego.Bot
	store     *store.Store
	chat      *core.ChatService
	knowledge *core.KnowledgeService
	llm       *core.LLMService
	google    *gdrive.Client
}

func New(cfg *config.Config, s *store.Store, chat *core.ChatService, knowledge *core.KnowledgeService, llm *core.LLMService, google *gdrive.Client) (*Bot, error) {
	tgBot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Bot{
		cfg:       cfg,
		bot:       tgBot,
		store:     s,
		chat:      chat,
		knowledge: knowledge,
		llm:       llm,
		google:    google,
	}, nil
}

// Run polls for updates until the context is cancelled. Messages are handled
// one at a time; per-user ordering is whatever Telegram's delivery gives us.
func (b *Bot) Run(ctx context.Context) error {
	updates, err := b.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	slog.Info("telegram bot started")
	for update := range updates {
		b.handleUpdate(ctx, update)
	}
	return nil
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if _, err := b.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		slog.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendMarkdown(ctx context.Context, chatID int64, text string) {
	msg := tu.Message(tu.ID(chatID), text)
	msg.ParseMode = telego.ModeMarkdown
	if _, err := b.bot.SendMessage(ctx, msg); err != nil {
		slog.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

// reportError logs the fault, apologizes to the user, and forwards the raw
// error to the admin side channel when one is configured.
func (b *Bot) reportError(ctx context.Context, chatID int64, apology string, err error) {
	slog.Error("handler failed", "chat_id", chatID, "error", err)
	b.send(ctx, chatID, apology)
	if b.cfg.AdminChatID != 0 && b.cfg.AdminChatID != chatID {
		b.send(ctx, b.cfg.AdminChatID, fmt.Sprintf("Ошибка: %v", err))
	}
}
