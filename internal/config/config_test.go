package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fraudshield.yaml")
	raw := `
logging:
  level: debug
classifier:
  model: mistral-small
  maxContentChars: 4000
platforms:
  chat:
    hosts: ["discord.com", "chat.example.org"]
    pollInterval: 5s
  generic:
    disabled: true
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(apiKeyEnv, "secret-key")
	t.Setenv(demoModeEnv, "true")

	cfg := LoadFile(path)

	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected level %q", cfg.Logging.Level)
	}
	if cfg.Classifier.Model != "mistral-small" || cfg.Classifier.MaxContentChars != 4000 {
		t.Fatalf("classifier override not applied: %+v", cfg.Classifier)
	}
	if cfg.Classifier.MinContentChars != 50 || cfg.Classifier.MaxTokens != 1024 {
		t.Fatalf("classifier defaults lost: %+v", cfg.Classifier)
	}
	if cfg.Classifier.APIKey != "secret-key" || !cfg.Classifier.DemoMode {
		t.Fatalf("env overrides not applied: %+v", cfg.Classifier)
	}
	if len(cfg.Platforms.Chat.Hosts) != 2 || cfg.Platforms.Chat.PollInterval != 5*time.Second {
		t.Fatalf("chat override not applied: %+v", cfg.Platforms.Chat)
	}
	if cfg.Platforms.Chat.MinimumTier != "medium" {
		t.Fatalf("chat default tier lost: %q", cfg.Platforms.Chat.MinimumTier)
	}
	if !cfg.Platforms.Generic.Disabled {
		t.Fatalf("generic should be disabled")
	}
	if cfg.Platforms.Inbox.Hosts[0] != "mail.google.com" {
		t.Fatalf("inbox defaults lost: %+v", cfg.Platforms.Inbox)
	}
}

func TestLoadFileMissingFallsBack(t *testing.T) {
	cfg := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if cfg.Classifier.Endpoint == "" || cfg.API.Addr == "" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.Classifier.DemoMode {
		t.Fatalf("demo mode must be off by default")
	}
}

func TestLoadFileHonoursExplicitZeroValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fraudshield.yaml")
	raw := `
classifier:
  temperature: 0
  demoMode: false
platforms:
  generic:
    mutationDebounce: 0s
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if Default().Classifier.Temperature == 0 || Default().Platforms.Generic.MutationDebounce == 0 {
		t.Fatalf("defaults no longer exercise the zero override")
	}

	cfg := LoadFile(path)

	if cfg.Classifier.Temperature != 0 {
		t.Fatalf("temperature 0 not applied: %v", cfg.Classifier.Temperature)
	}
	if cfg.Platforms.Generic.MutationDebounce != 0 {
		t.Fatalf("zero debounce not applied: %v", cfg.Platforms.Generic.MutationDebounce)
	}
	if cfg.Classifier.MaxTokens != 1024 || cfg.Platforms.Generic.SettleDelay != Default().Platforms.Generic.SettleDelay {
		t.Fatalf("absent keys lost their defaults: %+v", cfg)
	}
}

func TestLoadFileParseErrorFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("classifier:\n  model: other\n  temperature: [oops\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadFile(path)
	if cfg.Classifier.Model != Default().Classifier.Model || cfg.Classifier.Temperature != Default().Classifier.Temperature {
		t.Fatalf("a parse error must leave defaults untouched: %+v", cfg.Classifier)
	}
}
