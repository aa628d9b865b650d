package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "FRAUDSHIELD_CONFIG"
	apiKeyEnv         = "FRAUDSHIELD_API_KEY"
	modelEnv          = "FRAUDSHIELD_MODEL"
	endpointEnv       = "FRAUDSHIELD_ENDPOINT"
	dbPathEnv         = "FRAUDSHIELD_DB_PATH"
	logLevelEnv       = "FRAUDSHIELD_LOG_LEVEL"
	demoModeEnv       = "FRAUDSHIELD_DEMO_MODE"
	apiAddrEnv        = "FRAUDSHIELD_API_ADDR"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Platform names, in activation priority order.
const (
	PlatformInbox   = "inbox"
	PlatformChat    = "chat"
	PlatformGeneric = "generic"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Storage       StorageConfig      `yaml:"storage"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Platforms     PlatformsConfig    `yaml:"platforms"`
	API           APIConfig          `yaml:"api"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects slog level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig points at the SQLite settings database. An empty path keeps
// settings in memory.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ClassifierConfig defines how to contact the remote classification endpoint.
type ClassifierConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"apiKey"`
	SystemPrompt    string        `yaml:"systemPrompt"`
	Timeout         time.Duration `yaml:"timeout"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"maxTokens"`
	MaxAttempts     int           `yaml:"maxAttempts"`
	MinContentChars int           `yaml:"minContentChars"`
	MaxContentChars int           `yaml:"maxContentChars"`
	// DemoMode enables the demo tier for content no heuristic rule matched.
	DemoMode bool `yaml:"demoMode"`
}

// PlatformsConfig groups per-adapter settings.
type PlatformsConfig struct {
	Inbox   PlatformConfig `yaml:"inbox"`
	Chat    PlatformConfig `yaml:"chat"`
	Generic PlatformConfig `yaml:"generic"`
}

// PlatformConfig tunes one adapter.
type PlatformConfig struct {
	Disabled      bool          `yaml:"disabled"`
	Hosts         []string      `yaml:"hosts"`
	SettleDelay   time.Duration `yaml:"settleDelay"`
	PollInterval  time.Duration `yaml:"pollInterval"`
	MinTextLength int           `yaml:"minTextLength"`
	// MinimumTier is the lowest risk tier that gets an alert on this platform.
	MinimumTier string `yaml:"minimumTier"`
	// MutationDebounce coalesces bursts of page mutations; 0 handles each at once.
	MutationDebounce time.Duration `yaml:"mutationDebounce"`
	// NavigationSettle is the pause after a URL change before re-enumerating.
	NavigationSettle time.Duration `yaml:"navigationSettle"`
}

// APIConfig configures the control API listener.
type APIConfig struct {
	Addr string `yaml:"addr"`
	// StatusInterval controls how often serve logs a status snapshot; 0 disables it.
	StatusInterval time.Duration `yaml:"statusInterval"`
}

// NotificationConfig encapsulates outbound report channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to forward reports.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration from $FRAUDSHIELD_CONFIG (if set) and applies
// environment overrides.
func Load() Config {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile reads YAML configuration from path (if not empty) and applies
// environment overrides.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			// Decoding onto a copy of the defaults keeps absent keys and lets
			// explicit zero values such as temperature: 0 or disabled: false win.
			fileCfg := cfg
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(apiKeyEnv); v != "" {
		c.Classifier.APIKey = v
	}
	if v := os.Getenv(modelEnv); v != "" {
		c.Classifier.Model = v
	}
	if v := os.Getenv(endpointEnv); v != "" {
		c.Classifier.Endpoint = v
	}
	if v := os.Getenv(dbPathEnv); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(apiAddrEnv); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv(demoModeEnv); v != "" {
		if enabled, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Classifier.DemoMode = enabled
		} else {
			log.Printf("config: ignoring %s=%q: %v", demoModeEnv, v, err)
		}
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

// Default returns the built-in configuration without file or env input.
func Default() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Storage: StorageConfig{Path: ""},
		Classifier: ClassifierConfig{
			Endpoint:        "https://api.mistral.ai/v1/chat/completions",
			Model:           "mistral-medium",
			APIKey:          "",
			Timeout:         20 * time.Second,
			Temperature:     0.1,
			MaxTokens:       1024,
			MaxAttempts:     2,
			MinContentChars: 50,
			MaxContentChars: 7000,
		},
		Platforms: PlatformsConfig{
			Inbox: PlatformConfig{
				Hosts:            []string{"mail.google.com"},
				SettleDelay:      1500 * time.Millisecond,
				PollInterval:     time.Second,
				MutationDebounce: 250 * time.Millisecond,
				NavigationSettle: 500 * time.Millisecond,
				MinimumTier:      "low",
			},
			Chat: PlatformConfig{
				Hosts:            []string{"discord.com"},
				SettleDelay:      2 * time.Second,
				PollInterval:     2 * time.Second,
				MinTextLength:    50,
				MutationDebounce: 100 * time.Millisecond,
				MinimumTier:      "medium",
			},
			Generic: PlatformConfig{
				SettleDelay:      2 * time.Second,
				MinTextLength:    50,
				MutationDebounce: 250 * time.Millisecond,
				MinimumTier:      "medium",
			},
		},
		API: APIConfig{Addr: "127.0.0.1:8089", StatusInterval: 5 * time.Second},
	}
}
