package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
)

const helpText = "🛠️ *Команды Лизы*:\n\n" +
	"/start — Приветствие и вводная\n" +
	"/learn — Обучить Лизу новому знанию (только админ)\n" +
	"/ref [запрос] — Найти в базе знаний\n" +
	"/recent — Последние знания в базе (только админ)\n" +
	"/forget [id ...] — Удалить знания по номерам (только админ)\n" +
	"/clear — Очистить историю общения (только админ)\n" +
	"/doc [ID] — Загрузить Google Документ (только админ)\n" +
	"/sheet [ID] [диапазон] — Загрузить Google Таблицу (только админ)\n" +
	"/sync [ID папки] — Синхронизировать папку Диска (только админ)\n" +
	"/activity [ID таблицы] — Активность за сегодня (только админ)\n" +
	"/help — Показать это меню\n"

const refContentLimit = 3000

func (b *Bot) handleCommand(ctx context.Context, msg *telego.Message) {
	// Strip the @botname suffix groups add to commands.
	fields := strings.Fields(msg.Text)
	cmd := strings.SplitN(strings.ToLower(fields[0]), "@", 2)[0]
	args := fields[1:]
	rawArgs := strings.TrimSpace(strings.TrimPrefix(msg.Text, fields[0]))

	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch cmd {
	case "/start":
		b.send(ctx, chatID, "Гав-гав! 🐾 Я Лиза Корги — виртуальный помощник клининговой компании Cleaning-Moscow. Можешь задать вопрос или отправить голосовое сообщение!")

	case "/help":
		b.sendMarkdown(ctx, chatID, helpText)

	case "/learn":
		if !b.requireAdmin(ctx, chatID, userID, "Извините, только администратор может обучать Лизу.") {
			return
		}
		b.cmdLearn(ctx, chatID, userID, rawArgs)

	case "/ref":
		b.cmdReference(ctx, chatID, strings.Join(args, " "))

	case "/recent":
		if !b.requireAdmin(ctx, chatID, userID, "⛔ Только администратор может смотреть базу знаний.") {
			return
		}
		b.cmdRecent(ctx, chatID)

	case "/forget":
		if !b.requireAdmin(ctx, chatID, userID, "⛔ Только администратор может удалять знания.") {
			return
		}
		b.cmdForget(ctx, chatID, args)

	case "/clear":
		if !b.requireAdmin(ctx, chatID, userID, "Извините, только администратор может очистить контекст.") {
			return
		}
		if err := b.chat.ClearConversation(userID); err != nil {
			b.reportError(ctx, chatID, apologyGeneric, err)
			return
		}
		b.send(ctx, chatID, "Контекст общения был очищен.")

	case "/doc":
		if !b.requireAdmin(ctx, chatID, userID, "Извините, только администратор может загружать документы.") {
			return
		}
		b.cmdGoogleDoc(ctx, chatID, userID, args)

	case "/sheet":
		if !b.requireAdmin(ctx, chatID, userID, "Извините, только администратор может загружать таблицы.") {
			return
		}
		b.cmdGoogleSheet(ctx, chatID, userID, args)

	case "/sync":
		if !b.requireAdmin(ctx, chatID, userID, "⛔ Только администратор может запускать синхронизацию.") {
			return
		}
		b.cmdSyncFolder(ctx, chatID, userID, args)

	case "/activity":
		if !b.requireAdmin(ctx, chatID, userID, "⛔ Только администратор может смотреть активность.") {
			return
		}
		b.cmdActivity(ctx, chatID, args)
	}
}

func (b *Bot) requireAdmin(ctx context.Context, chatID, userID int64, refusal string) bool {
	if b.cfg.IsAdmin(userID) {
		return true
	}
	b.send(ctx, chatID, refusal)
	return false
}

func (b *Bot) requireGoogle(ctx context.Context, chatID int64) bool {
	if b.google != nil {
		return true
	}
	b.send(ctx, chatID, "Интеграция с Google не настроена (GOOGLE_CREDENTIALS_PATH).")
	return false
}

func (b *Bot) cmdLearn(ctx context.Context, chatID, userID int64, text string) {
	if text == "" {
		b.send(ctx, chatID, "Пожалуйста, укажи, чему ты хочешь меня научить. Пример:\n/learn как мы убираем рестораны после открытия")
		return
	}

	// First line is the title (capped), the rest is the content; a one-line
	// lesson doubles as both.
	lines := strings.SplitN(text, "\n", 2)
	title := lines[0]
	if runes := []rune(title); len(runes) > 100 {
		title = string(runes[:100])
	}
	content := title
	if len(lines) > 1 {
		content = lines[1]
	}

	if err := b.knowledge.Learn(title, content, userID); err != nil {
		b.reportError(ctx, chatID, apologyGeneric, err)
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("Спасибо! Я запомнила информацию под названием: \"%s\"", title))
}

func (b *Bot) cmdReference(ctx context.Context, chatID int64, keyword string) {
	if keyword == "" {
		b.send(ctx, chatID, "Укажи ключевое слово для поиска. Пример: /ref офис")
		return
	}

	entry, err := b.knowledge.Lookup(keyword)
	if err != nil {
		b.reportError(ctx, chatID, apologyGeneric, err)
		return
	}
	if entry == nil {
		b.send(ctx, chatID, "К сожалению, ничего не нашла по твоему запросу. Попробуй другое слово или обучи меня через /learn")
		return
	}

	content := entry.Content
	if runes := []rune(content); len(runes) > refContentLimit {
		content = string(runes[:refContentLimit])
	}
	b.sendMarkdown(ctx, chatID, fmt.Sprintf("🔎 Нашла в базе знаний:\n\n*%s*\n\n%s", entry.Title, content))
}

func (b *Bot) cmdRecent(ctx context.Context, chatID int64) {
	entries, err := b.knowledge.Recent(5)
	if err != nil {
		b.reportError(ctx, chatID, apologyGeneric, err)
		return
	}
	if len(entries) == 0 {
		b.send(ctx, chatID, "📭 База знаний пуста.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🧠 *Последние знания в базе:*\n\n")
	for i, entry := range entries {
		short := strings.ReplaceAll(strings.TrimSpace(entry.Content), "\n", " ")
		if runes := []rune(short); len(runes) > 120 {
			short = string(runes[:120])
		}
		fmt.Fprintf(&sb, "%d. *%s* (#%d, %s)\n_%s_\n\n",
			i+1, entry.Title, entry.ID, entry.Timestamp.Format("2006-01-02 15:04"), short)
	}
	b.sendMarkdown(ctx, chatID, sb.String())
}

func (b *Bot) cmdForget(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.send(ctx, chatID, "Укажи номера знаний для удаления. Пример: /forget 5 6")
		return
	}

	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			b.send(ctx, chatID, fmt.Sprintf("«%s» — это не номер. Пример: /forget 5 6", arg))
			return
		}
		ids = append(ids, id)
	}

	deleted, err := b.knowledge.Forget(ids)
	if err != nil {
		b.reportError(ctx, chatID, apologyGeneric, err)
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("Удалено записей: %d", deleted))
}

func (b *Bot) cmdGoogleDoc(ctx context.Context, chatID, userID int64, args []string) {
	if !b.requireGoogle(ctx, chatID) {
		return
	}
	if len(args) == 0 {
		b.send(ctx, chatID, "Укажи ID Google Документа. Пример: /doc 1A2B3C4D5E6F...")
		return
	}

	content, err := b.google.DocumentText(args[0])
	if err != nil {
		b.reportError(ctx, chatID, apologyGeneric, err)
		return
	}
	if err := b.chat.IngestToConversation(userID, content); err != nil {
		b.reportError(ctx, chatID, apologyGeneric, err)
		return
	}
	b.send(ctx, chatID, "📄 Документ прочитан и добавлен в базу знаний.")
}

func (b *Bot) cmdGoogleSheet(ctx context.Context, chatID, userID int64, args []string) {
	if !b.requireGoogle(ctx, chatID) {
		return
	}
	if len(args) < 2 {
		b.send(ctx, chatID, "Формат: /sheet <SPREADSHEET_ID> <RANGE>. Пример: /sheet 1A2B3C Range1!A1:E10")
		return
	}

	rows, err := b.google.SheetValues(args[0], strings.Join(args[1:], " "))
	if err != nil {
		b.reportError(ctx, chatID, apologyGeneric, err)
		return
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join(row, ", "))
	}
	if err := b.chat.IngestToConversation(userID, strings.Join(lines, "\n")); err != nil {
		b.reportError(ctx, chatID, apologyGeneric, err)
		return
	}
	b.send(ctx, chatID, "📊 Таблица обработана и сохранена!")
}

func (b *Bot) cmdSyncFolder(ctx context.Context, chatID, userID int64, args []string) {
	if !b.requireGoogle(ctx, chatID) {
		return
	}

	folderID := b.cfg.GoogleDriveFolderID
	if len(args) > 0 {
		folderID = args[0]
	}
	if folderID == "" {
		b.send(ctx, chatID, "Укажи ID папки Google Диска. Пример: /sync 1AbcDEF456...")
		return
	}

	ingested, err := b.google.SyncFolderToKnowledge(folderID, b.knowledge, userID)
	if err != nil {
		b.reportError(ctx, chatID, apologyGeneric, err)
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("📁 Папка синхронизирована! Файлов в базе знаний: %d", ingested))
}

func (b *Bot) cmdActivity(ctx context.Context, chatID int64, args []string) {
	day := time.Now().Format("2006-01-02")
	activities, err := b.store.GetDailyActivity(day)
	if err != nil {
		b.reportError(ctx, chatID, apologyGeneric, err)
		return
	}
	if len(activities) == 0 {
		b.send(ctx, chatID, "Сегодня ещё никто не писал.")
		return
	}

	// With a spreadsheet id, export the rows; otherwise reply with a summary.
	if len(args) > 0 {
		if !b.requireGoogle(ctx, chatID) {
			return
		}
		rows := make([][]any, 0, len(activities))
		for _, a := range activities {
			rows = append(rows, []any{
				a.Day, a.ChatID, a.UserID, a.Username,
				a.FirstMsg.Format(time.RFC3339), a.LastMsg.Format(time.RFC3339),
			})
		}
		if err := b.google.AppendRows(args[0], "A1", rows); err != nil {
			b.reportError(ctx, chatID, apologyGeneric, err)
			return
		}
		b.send(ctx, chatID, fmt.Sprintf("📊 Выгружено строк: %d", len(rows)))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Активность за %s:\n", day)
	for _, a := range activities {
		fmt.Fprintf(&sb, "• %s: %s — %s\n",
			a.Username, a.FirstMsg.Local().Format("15:04"), a.LastMsg.Local().Format("15:04"))
	}
	b.send(ctx, chatID, sb.String())
}
