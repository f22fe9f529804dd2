package chat

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultUserName     = "you"
	defaultBotName      = "echo-bot"
	defaultSendDelayMS  = 350
	defaultReplyDelayMS = 600
	defaultLogHistory   = 256
	defaultObserver     = "noop"
)

// Config holds initialization parameters for the chat application.
// Values load from JSON, with environment variables taking precedence.
type Config struct {
	UserName     string `json:"user_name,omitempty" env:"STATEKIT_CHAT_USER_NAME"`
	BotName      string `json:"bot_name,omitempty" env:"STATEKIT_CHAT_BOT_NAME"`
	SendDelayMS  int    `json:"send_delay_ms,omitempty" env:"STATEKIT_CHAT_SEND_DELAY_MS"`
	ReplyDelayMS int    `json:"reply_delay_ms,omitempty" env:"STATEKIT_CHAT_REPLY_DELAY_MS"`
	LogHistory   int    `json:"log_history,omitempty" env:"STATEKIT_CHAT_LOG_HISTORY"`

	// Observer names a store observer in the observability registry.
	// Register custom observers with observability.RegisterObserver.
	Observer string `json:"observer,omitempty" env:"STATEKIT_CHAT_OBSERVER"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserName:     defaultUserName,
		BotName:      defaultBotName,
		SendDelayMS:  defaultSendDelayMS,
		ReplyDelayMS: defaultReplyDelayMS,
		LogHistory:   defaultLogHistory,
		Observer:     defaultObserver,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.UserName != "" {
		c.UserName = source.UserName
	}
	if source.BotName != "" {
		c.BotName = source.BotName
	}
	if source.SendDelayMS > 0 {
		c.SendDelayMS = source.SendDelayMS
	}
	if source.ReplyDelayMS > 0 {
		c.ReplyDelayMS = source.ReplyDelayMS
	}
	if source.LogHistory > 0 {
		c.LogHistory = source.LogHistory
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// ApplyEnv overrides fields from STATEKIT_CHAT_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	return nil
}

// LoadConfig reads a JSON config file, merges it with defaults, applies
// environment overrides, and returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SendDelay returns the simulated network latency for sending.
func (c Config) SendDelay() time.Duration {
	return time.Duration(c.SendDelayMS) * time.Millisecond
}

// ReplyDelay returns how long the bot "types" before answering.
func (c Config) ReplyDelay() time.Duration {
	return time.Duration(c.ReplyDelayMS) * time.Millisecond
}
