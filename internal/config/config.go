package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/signalfox/gamepulse/internal/scoring"
)

// Config represents the complete application configuration
type Config struct {
	Steam    SteamConfig    `mapstructure:"steam"`
	Twitch   TwitchConfig   `mapstructure:"twitch"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SteamConfig holds game-data provider API configuration
type SteamConfig struct {
	APIBaseURL     string        `mapstructure:"api_base_url"`
	StoreBaseURL   string        `mapstructure:"store_base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// TwitchConfig holds streaming provider API configuration
type TwitchConfig struct {
	APIBaseURL string        `mapstructure:"api_base_url"`
	ClientID   string        `mapstructure:"client_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Enabled    bool          `mapstructure:"enabled"`
}

// AnalysisConfig holds analyzer behavior configuration
type AnalysisConfig struct {
	TrackedApps       []string           `mapstructure:"tracked_apps"`
	PollInterval      time.Duration      `mapstructure:"poll_interval"`
	ReviewBatchSize   int                `mapstructure:"review_batch_size"`
	CorrelationDays   int                `mapstructure:"correlation_days"`
	TrendingWeights   map[string]float64 `mapstructure:"trending_weights"`
	CoreFunMinMatches int                `mapstructure:"corefun_min_matches"`
	DigestMinGrade    string             `mapstructure:"digest_min_grade"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	MaxGames            int           `mapstructure:"max_games"`
	MaxSnapshotsPerGame int           `mapstructure:"max_snapshots_per_game"`
	ResultTTL           time.Duration `mapstructure:"result_ttl"`
	FilePath            string        `mapstructure:"file_path"`
	DataDir             string        `mapstructure:"data_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("GAMEPULSE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Steam defaults
	v.SetDefault("steam.api_base_url", "https://api.steampowered.com")
	v.SetDefault("steam.store_base_url", "https://store.steampowered.com")
	v.SetDefault("steam.timeout", "30s")
	v.SetDefault("steam.max_retries", 3)
	v.SetDefault("steam.retry_delay_base", "1s")

	// Twitch defaults
	v.SetDefault("twitch.api_base_url", "https://api.twitch.tv/helix")
	v.SetDefault("twitch.timeout", "30s")
	v.SetDefault("twitch.enabled", false)

	// Analysis defaults
	v.SetDefault("analysis.poll_interval", "15m")
	v.SetDefault("analysis.review_batch_size", 100)
	v.SetDefault("analysis.correlation_days", 14)
	v.SetDefault("analysis.trending_weights", map[string]float64{
		"ccu": 0.40, "reviews": 0.30, "price": 0.15, "news": 0.15,
	})
	v.SetDefault("analysis.corefun_min_matches", 3)
	v.SetDefault("analysis.digest_min_grade", "A")

	// Storage defaults
	v.SetDefault("storage.max_games", 500)
	v.SetDefault("storage.max_snapshots_per_game", 1000)
	v.SetDefault("storage.result_ttl", "1h")
	v.SetDefault("storage.file_path", "./data/gamepulse.json")
	v.SetDefault("storage.data_dir", "./data")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid. Weight tables are
// validated here, once, so analyzers never re-check them per call.
func (c *Config) Validate() error {
	// Validate Steam config
	if c.Steam.APIBaseURL == "" {
		return fmt.Errorf("steam.api_base_url is required")
	}
	if c.Steam.StoreBaseURL == "" {
		return fmt.Errorf("steam.store_base_url is required")
	}
	if c.Steam.Timeout < 1*time.Second {
		return fmt.Errorf("steam.timeout must be at least 1 second")
	}

	// Validate Twitch config
	if c.Twitch.Enabled {
		if c.Twitch.APIBaseURL == "" {
			return fmt.Errorf("twitch.api_base_url is required when twitch is enabled")
		}
		if c.Twitch.ClientID == "" {
			return fmt.Errorf("twitch.client_id is required when twitch is enabled")
		}
	}

	// Validate Analysis config
	if len(c.Analysis.TrackedApps) == 0 {
		return fmt.Errorf("analysis.tracked_apps must contain at least one app ID")
	}
	if c.Analysis.PollInterval < 1*time.Minute {
		return fmt.Errorf("analysis.poll_interval must be at least 1 minute")
	}
	if c.Analysis.ReviewBatchSize < 1 || c.Analysis.ReviewBatchSize > 200 {
		return fmt.Errorf("analysis.review_batch_size must be between 1 and 200")
	}
	switch c.Analysis.CorrelationDays {
	case 7, 14, 30, 90:
	default:
		return fmt.Errorf("analysis.correlation_days must be one of: 7, 14, 30, 90")
	}
	if err := scoring.Weights(c.Analysis.TrendingWeights).Validate(); err != nil {
		return fmt.Errorf("analysis.trending_weights: %w", err)
	}
	if c.Analysis.CoreFunMinMatches < 1 {
		return fmt.Errorf("analysis.corefun_min_matches must be at least 1")
	}
	switch c.Analysis.DigestMinGrade {
	case "S", "A", "B", "C", "D":
	default:
		return fmt.Errorf("analysis.digest_min_grade must be one of: S, A, B, C, D")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Storage config
	if c.Storage.MaxGames < 1 {
		return fmt.Errorf("storage.max_games must be at least 1")
	}
	if c.Storage.MaxSnapshotsPerGame < 10 {
		return fmt.Errorf("storage.max_snapshots_per_game must be at least 10")
	}
	if c.Storage.ResultTTL < 1*time.Minute {
		return fmt.Errorf("storage.result_ttl must be at least 1 minute")
	}
	if c.Storage.FilePath == "" {
		return fmt.Errorf("storage.file_path is required")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
