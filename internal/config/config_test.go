package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("BOT_TOKEN", "test-token")
	os.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DatabasePath != "liza.db" {
		t.Errorf("DatabasePath = %s, want liza.db", cfg.DatabasePath)
	}
	if cfg.ChatModel != "gpt-4o" {
		t.Errorf("ChatModel = %s, want gpt-4o", cfg.ChatModel)
	}
	if cfg.TranscriptionModel != "whisper-1" {
		t.Errorf("TranscriptionModel = %s, want whisper-1", cfg.TranscriptionModel)
	}
	if cfg.ContextMaxChars != 8000 {
		t.Errorf("ContextMaxChars = %d, want 8000", cfg.ContextMaxChars)
	}
	if cfg.AdminAPIEnabled() {
		t.Error("AdminAPIEnabled() = true without token and secret")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Clearenv()
	os.Setenv("OPENAI_API_KEY", "test-key")

	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded without BOT_TOKEN")
	}

	os.Clearenv()
	os.Setenv("BOT_TOKEN", "test-token")

	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded without OPENAI_API_KEY")
	}
}

func TestLoad_AdminIDs(t *testing.T) {
	os.Clearenv()
	os.Setenv("BOT_TOKEN", "test-token")
	os.Setenv("OPENAI_API_KEY", "test-key")
	os.Setenv("ADMIN_IDS", "126204360, 42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(cfg.AdminIDs) != 2 {
		t.Fatalf("len(AdminIDs) = %d, want 2", len(cfg.AdminIDs))
	}
	if !cfg.IsAdmin(126204360) || !cfg.IsAdmin(42) {
		t.Error("IsAdmin() = false for configured ids")
	}
	if cfg.IsAdmin(7) {
		t.Error("IsAdmin(7) = true, want false")
	}
}

func TestLoad_BadAdminIDs(t *testing.T) {
	os.Clearenv()
	os.Setenv("BOT_TOKEN", "test-token")
	os.Setenv("OPENAI_API_KEY", "test-key")
	os.Setenv("ADMIN_IDS", "126204360,alice")

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted a non-numeric admin id")
	}
}
