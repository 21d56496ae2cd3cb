package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported fetch strategies.
const (
	StrategyDirect = "direct"
	StrategyApify  = "apify"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	PublishersFile string `mapstructure:"publishers_file"`
	NotifyTemplate string `mapstructure:"notify_template"`

	TargetUsername        string        `mapstructure:"target_username"`
	FetchStrategy         string        `mapstructure:"fetch_strategy"`
	ProfileURLTemplate    string        `mapstructure:"profile_url_template"`
	PostURLTemplate       string        `mapstructure:"post_url_template"`
	UserAgent             string        `mapstructure:"user_agent"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	PollIntervalSeconds   int64         `mapstructure:"poll_interval_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	PollInterval          time.Duration `mapstructure:"-"`

	ApifyToken                 string        `mapstructure:"apify_token"`
	ApifyBaseURL               string        `mapstructure:"apify_base_url"`
	ApifyActorID               string        `mapstructure:"apify_actor_id"`
	ApifyMemoryMB              int           `mapstructure:"apify_memory_mb"`
	ApifyRunTimeoutSeconds     int64         `mapstructure:"apify_run_timeout_seconds"`
	ApifyStatusIntervalSeconds int64         `mapstructure:"apify_status_interval_seconds"`
	ApifyMaxPolls              int           `mapstructure:"apify_max_polls"`
	ApifyRunTimeout            time.Duration `mapstructure:"-"`
	ApifyStatusInterval        time.Duration `mapstructure:"-"`

	StorageType string `mapstructure:"storage_type"`
	StoragePath string `mapstructure:"storage_path"`
	StorageSlot string `mapstructure:"storage_slot"`
}

// DefaultEnvFile is the dotenv file read by Load.
const DefaultEnvFile = "configs/.env"

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	return LoadFrom(DefaultEnvFile)
}

// LoadFrom is Load with an explicit dotenv file. A missing file is ignored;
// variables already set in the environment win over the file.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "profile-post-watcher")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("notify_template", "New post detected! Check it out: %s")

	v.SetDefault("target_username", "thejeweltreecollection")
	v.SetDefault("fetch_strategy", StrategyDirect)
	v.SetDefault("profile_url_template", "https://www.instagram.com/%s/")
	v.SetDefault("post_url_template", "https://www.instagram.com/p/%s/")
	v.SetDefault("user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/117.0")
	v.SetDefault("request_timeout_seconds", 10)
	v.SetDefault("poll_interval_seconds", 900)

	v.SetDefault("apify_token", "")
	v.SetDefault("apify_base_url", "https://api.apify.com")
	v.SetDefault("apify_actor_id", "apify~instagram-profile-scraper")
	v.SetDefault("apify_memory_mb", 256)
	v.SetDefault("apify_run_timeout_seconds", 120)
	v.SetDefault("apify_status_interval_seconds", 3)
	v.SetDefault("apify_max_polls", 30)

	v.SetDefault("storage_type", "file")
	v.SetDefault("storage_path", "./data/last_post.txt")
	v.SetDefault("storage_slot", "last_post_url")
}

// normalize validates raw values and derives the duration fields.
func (cfg *Config) normalize() error {
	cfg.TargetUsername = strings.TrimPrefix(strings.TrimSpace(cfg.TargetUsername), "@")
	if cfg.TargetUsername == "" {
		return fmt.Errorf("target_username is required")
	}

	cfg.FetchStrategy = strings.ToLower(strings.TrimSpace(cfg.FetchStrategy))
	switch cfg.FetchStrategy {
	case StrategyDirect:
	case StrategyApify:
		if strings.TrimSpace(cfg.ApifyToken) == "" {
			return fmt.Errorf("apify_token is required when fetch_strategy is %q", StrategyApify)
		}
		if cfg.ApifyMaxPolls <= 0 {
			return fmt.Errorf("invalid apify_max_polls (must be positive)")
		}
		if cfg.ApifyMemoryMB <= 0 {
			return fmt.Errorf("invalid apify_memory_mb (must be positive)")
		}
	default:
		return fmt.Errorf("unsupported fetch_strategy %q", cfg.FetchStrategy)
	}

	if cfg.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	if cfg.PollIntervalSeconds <= 0 {
		return fmt.Errorf("invalid poll_interval_seconds (must be positive seconds)")
	}
	if cfg.ApifyRunTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid apify_run_timeout_seconds (must be positive seconds)")
	}
	if cfg.ApifyStatusIntervalSeconds <= 0 {
		return fmt.Errorf("invalid apify_status_interval_seconds (must be positive seconds)")
	}

	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	cfg.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	cfg.ApifyRunTimeout = time.Duration(cfg.ApifyRunTimeoutSeconds) * time.Second
	cfg.ApifyStatusInterval = time.Duration(cfg.ApifyStatusIntervalSeconds) * time.Second
	return nil
}

// Redacted returns a copy safe for logging.
func (cfg Config) Redacted() Config {
	if cfg.ApifyToken != "" {
		cfg.ApifyToken = "***"
	}
	return cfg
}
