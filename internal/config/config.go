package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries everything the bot needs at startup. It is built once in
// main and passed down explicitly; nothing reads the environment after Load.
type Config struct {
	BotToken     string
	OpenAIAPIKey string

	DatabasePath string

	// AdminIDs is the static allow-list for administrator commands.
	// AdminChatID, when set, receives raw error reports as a side channel.
	AdminIDs    []int64
	AdminChatID int64

	GoogleCredentialsPath string
	GoogleDriveFolderID   string

	// Admin ops HTTP API. The listener is skipped unless both the token
	// and the JWT secret are configured.
	HTTPPort      string
	JWTSecret     string
	AdminAPIToken string

	ChatModel          string
	TranscriptionModel string

	// ContextMaxChars bounds the stored conversation context per user.
	ContextMaxChars int
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment variables")
	}

	cfg := &Config{
		BotToken:              os.Getenv("BOT_TOKEN"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		DatabasePath:          getEnv("DATABASE_PATH", "liza.db"),
		AdminChatID:           getEnvInt64("ADMIN_CHAT_ID", 0),
		GoogleCredentialsPath: os.Getenv("GOOGLE_CREDENTIALS_PATH"),
		GoogleDriveFolderID:   os.Getenv("GOOGLE_DRIVE_FOLDER_ID"),
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		AdminAPIToken:         os.Getenv("ADMIN_API_TOKEN"),
		ChatModel:             getEnv("CHAT_MODEL", "gpt-4o"),
		TranscriptionModel:    getEnv("TRANSCRIPTION_MODEL", "whisper-1"),
		ContextMaxChars:       getEnvInt("CONTEXT_MAX_CHARS", 8000),
	}

	ids, err := parseAdminIDs(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return nil, err
	}
	cfg.AdminIDs = ids

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN environment variable is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}
	if c.ContextMaxChars < 1 {
		return fmt.Errorf("CONTEXT_MAX_CHARS must be positive, got %d", c.ContextMaxChars)
	}
	return nil
}

// IsAdmin reports whether the given Telegram user id is on the allow-list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// AdminAPIEnabled reports whether the ops HTTP API should be served.
func (c *Config) AdminAPIEnabled() bool {
	return c.AdminAPIToken != "" && c.JWTSecret != ""
}

func parseAdminIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_IDS contains a non-numeric entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil {
		return value
	}
	return defaultValue
}
