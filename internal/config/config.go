package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// OpenAIConfig holds settings for the completion-service integration.
type OpenAIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// Config is the top-level application configuration.
type Config struct {
	Addr      string       `mapstructure:"addr"`
	DBPath    string       `mapstructure:"db_path"`
	StaticDir string       `mapstructure:"static_dir"`
	OpenAI    OpenAIConfig `mapstructure:"openai"`
}

// Load reads configuration from the optional YAML file at path, applying
// defaults and KANBAN_* environment overrides (e.g. KANBAN_OPENAI_API_KEY).
// A missing file is not an error; env and defaults still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", ":8080")
	v.SetDefault("db_path", "data/kanban.db")
	v.SetDefault("static_dir", "web/dist")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.timeout_sec", 30)

	v.SetEnvPrefix("KANBAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
