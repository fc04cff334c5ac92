package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/spigell/matchdeck/internal/deck"
	"github.com/spigell/matchdeck/internal/gesture"
	"github.com/spigell/matchdeck/internal/profiles"
	"github.com/spigell/matchdeck/internal/server"
)

const (
	envPrefix    = "MATCHDECK"
	geminiKeyEnv = "GEMINI_API_KEY"
	tokenEnv     = "MATCHDECK_SEARCH_TOKEN"
)

type Config struct {
	Search  SearchConfig   `mapstructure:"search"`
	Deck    DeckConfig     `mapstructure:"deck"`
	Gesture gesture.Config `mapstructure:"gesture"`
	Filters FiltersConfig  `mapstructure:"filters"`
	AI      AIConfig       `mapstructure:"ai"`
	Server  ServerConfig   `mapstructure:"server"`
}

type SearchConfig struct {
	Endpoint  string        `mapstructure:"endpoint" validate:"required,url"`
	Limit     int           `mapstructure:"limit" validate:"gte=0,lte=100"`
	TokenFile string        `mapstructure:"token-file"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
	UserAgent string        `mapstructure:"user-agent"`
}

type DeckConfig struct {
	SettleDelay time.Duration `mapstructure:"settle-delay" validate:"gte=0"`
	Lookahead   int           `mapstructure:"lookahead" validate:"gte=1,lte=10"`
}

type FiltersConfig struct {
	MinScore           float64  `mapstructure:"min-score" validate:"gte=0,lte=1"`
	ExcludeDepartments []string `mapstructure:"exclude-departments"`
}

type AIConfig struct {
	Enabled  bool         `mapstructure:"enabled"`
	Provider string       `mapstructure:"provider" validate:"omitempty,oneof=gemini"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key" json:"-"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"gte=0"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

func setDefaults(v *viper.Viper) {
	g := gesture.DefaultConfig()

	v.SetDefault("search.endpoint", profiles.DefaultEndpoint)
	v.SetDefault("search.limit", profiles.DefaultLimit)
	v.SetDefault("search.token-file", "")
	v.SetDefault("search.timeout", profiles.DefaultTimeout)
	v.SetDefault("search.user-agent", "")
	v.SetDefault("deck.settle-delay", deck.DefaultSettleDelay)
	v.SetDefault("deck.lookahead", server.DefaultLookahead)
	v.SetDefault("gesture.commit-threshold", g.CommitThreshold)
	v.SetDefault("gesture.fade-start", g.FadeStart)
	v.SetDefault("gesture.fade-end", g.FadeEnd)
	v.SetDefault("gesture.rotation-span", g.RotationSpan)
	v.SetDefault("gesture.max-rotation", g.MaxRotation)
	v.SetDefault("filters.min-score", 0.0)
	v.SetDefault("filters.exclude-departments", []string{})
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "")
	v.SetDefault("ai.gemini.max-log-length", 200)
	v.SetDefault("server.addr", server.DefaultAddr)
}

// bindEnv maps every key to MATCHDECK_<KEY> with dots and dashes as underscores.
func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v.BindEnv("ai.gemini.api-key", geminiKeyEnv)
}

func loadConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if config == nil {
		return errors.New("config is required")
	}

	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := config.Gesture.Validate(); err != nil {
		return fmt.Errorf("invalid gesture config: %w", err)
	}

	return nil
}
