package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        int    `mapstructure:"port"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	DatabaseURL string `mapstructure:"database_url"`
	StaticDir   string `mapstructure:"static_dir"`

	BotTickInterval time.Duration `mapstructure:"bot_tick_interval"`
	BotWanderers    int           `mapstructure:"bot_wanderers"`
	BotPairs        int           `mapstructure:"bot_pairs"`
	BotName         string        `mapstructure:"bot_name"`
	BotSoundFile    string        `mapstructure:"bot_sound_file"`
	BotImage        string        `mapstructure:"bot_image"`

	MaxImageBytes int           `mapstructure:"max_image_bytes"`
	WhiteboardCap int           `mapstructure:"whiteboard_cap"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
}

// Load reads configuration from the environment on top of the defaults and
// validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []string

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be in 1..65535, got %d", c.Port))
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of [debug, info, warn, error], got %q", c.LogLevel))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.LogFormat] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be one of [text, json], got %q", c.LogFormat))
	}
	if c.BotTickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("BOT_TICK_INTERVAL must be positive, got %s", c.BotTickInterval))
	}
	if c.BotWanderers < 0 || c.BotPairs < 0 {
		errs = append(errs, "BOT_WANDERERS and BOT_PAIRS must not be negative")
	}
	if c.MaxImageBytes <= 0 {
		errs = append(errs, fmt.Sprintf("MAX_IMAGE_BYTES must be positive, got %d", c.MaxImageBytes))
	}
	if c.WhiteboardCap <= 0 {
		errs = append(errs, fmt.Sprintf("WHITEBOARD_CAP must be positive, got %d", c.WhiteboardCap))
	}
	if c.IdleTimeout < 0 {
		errs = append(errs, fmt.Sprintf("IDLE_TIMEOUT must not be negative, got %s", c.IdleTimeout))
	}

	if len(errs) > 0 {
		return errors.New("configuration validation failed: " + strings.Join(errs, "; "))
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("database_url", "")
	v.SetDefault("static_dir", "")

	v.SetDefault("bot_tick_interval", "100ms")
	v.SetDefault("bot_wanderers", 1)
	v.SetDefault("bot_pairs", 1)
	v.SetDefault("bot_name", "Dracula Bot")
	v.SetDefault("bot_sound_file", "/assets/bots/DraculaFlowa.mp3")
	v.SetDefault("bot_image", "/assets/bots/dracula.jpg")

	v.SetDefault("max_image_bytes", 1_000_000)
	v.SetDefault("whiteboard_cap", 10000)
	v.SetDefault("idle_timeout", "0s")
}
