package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.Addr)
	}
	if cfg.DBPath != "data/kanban.db" {
		t.Fatalf("unexpected default db path %q", cfg.DBPath)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" || cfg.OpenAI.TimeoutSec != 30 {
		t.Fatalf("unexpected OpenAI defaults: %+v", cfg.OpenAI)
	}
}

func TestLoadHonorsEnvOverrides(t *testing.T) {
	t.Setenv("KANBAN_ADDR", ":9999")
	t.Setenv("KANBAN_OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load with env: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("env override ignored, addr %q", cfg.Addr)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Fatalf("env override ignored, api key %q", cfg.OpenAI.APIKey)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "addr: \":7070\"\nopenai:\n  model: gpt-4.1\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("file value ignored, addr %q", cfg.Addr)
	}
	if cfg.OpenAI.Model != "gpt-4.1" {
		t.Fatalf("nested file value ignored, model %q", cfg.OpenAI.Model)
	}
	if cfg.DBPath != "data/kanban.db" {
		t.Fatalf("defaults should survive partial files, got %q", cfg.DBPath)
	}
}
