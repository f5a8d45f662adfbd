package bot

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/cleaning-moscow/liza-bot/internal/extract"
)

const (
	apologyGeneric  = "Произошла ошибка при обработке запроса."
	apologyVoice    = "Произошла ошибка при обработке голосового сообщения."
	apologyDocument = "Не удалось обработать документ. Поддерживаются .txt, .pdf и .docx файлы."
	hintFormats     = "Пожалуйста, отправьте .txt, .pdf или .docx файл."
)

func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	b.recordActivity(msg)

	switch {
	case msg.Voice != nil:
		b.handleVoice(ctx, msg)
	case msg.Document != nil:
		b.handleDocument(ctx, msg)
	case strings.HasPrefix(msg.Text, "/"):
		b.handleCommand(ctx, msg)
	case msg.Text != "":
		b.handleText(ctx, msg)
	}
}

// recordActivity upserts today's (chat, user) row. A failed write never
// blocks the conversational flow.
func (b *Bot) recordActivity(msg *telego.Message) {
	username := msg.From.Username
	if username == "" {
		username = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	}
	if err := b.store.UpdateDailyActivity(msg.Chat.ID, msg.From.ID, username, time.Now()); err != nil {
		slog.Error("failed to record activity", "chat_id", msg.Chat.ID, "user_id", msg.From.ID, "error", err)
	}
}

func (b *Bot) handleText(ctx context.Context, msg *telego.Message) {
	b.runTurn(ctx, msg.Chat.ID, msg.From.ID, strings.TrimSpace(msg.Text))
}

// runTurn executes one conversational turn and relays the reply.
func (b *Bot) runTurn(ctx context.Context, chatID, userID int64, input string) {
	if input == "" {
		return
	}
	reply, err := b.chat.Reply(ctx, userID, input)
	if err != nil {
		b.reportError(ctx, chatID, apologyGeneric, err)
		return
	}
	b.send(ctx, chatID, reply)
}

func (b *Bot) handleVoice(ctx context.Context, msg *telego.Message) {
	path, err := b.downloadToTemp(ctx, msg.Voice.FileID, ".oga")
	if err != nil {
		b.reportError(ctx, msg.Chat.ID, apologyVoice, err)
		return
	}
	defer os.Remove(path)

	text, err := b.llm.Transcribe(ctx, path)
	if err != nil {
		b.reportError(ctx, msg.Chat.ID, apologyVoice, err)
		return
	}
	slog.Info("voice transcribed", "user_id", msg.From.ID, "chars", len(text))

	b.runTurn(ctx, msg.Chat.ID, msg.From.ID, text)
}

func (b *Bot) handleDocument(ctx context.Context, msg *telego.Message) {
	doc := msg.Document
	path, err := b.downloadToTemp(ctx, doc.FileID, filepath.Ext(doc.FileName))
	if err != nil {
		b.reportError(ctx, msg.Chat.ID, apologyDocument, err)
		return
	}
	defer os.Remove(path)

	content, err := extract.File(path)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedFormat) {
			b.send(ctx, msg.Chat.ID, hintFormats)
			return
		}
		b.reportError(ctx, msg.Chat.ID, apologyDocument, err)
		return
	}

	if err := b.store.SaveDocument(msg.From.ID, doc.FileName, content); err != nil {
		b.reportError(ctx, msg.Chat.ID, apologyDocument, err)
		return
	}
	if err := b.chat.IngestToConversation(msg.From.ID, content); err != nil {
		b.reportError(ctx, msg.Chat.ID, apologyDocument, err)
		return
	}

	slog.Info("document ingested", "user_id", msg.From.ID, "name", doc.FileName)
	b.send(ctx, msg.Chat.ID, "Файл принят и обработан. Я запомнила информацию!")
}

// downloadToTemp fetches a Telegram file into the temp dir under a random
// name with the given extension. The caller removes it.
func (b *Bot) downloadToTemp(ctx context.Context, fileID, ext string) (string, error) {
	file, err := b.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return "", err
	}

	data, err := tu.DownloadFile(b.bot.FileDownloadURL(file.FilePath))
	if err != nil {
		return "", err
	}

	path := filepath.Join(os.TempDir(), uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
