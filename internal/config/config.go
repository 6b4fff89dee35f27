package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultExperiencePerWorkout = 50
	DefaultMaxImageSizeMB       = 8
	DefaultFoodFactsBaseURL     = "https://world.openfoodfacts.org"
	DefaultVisionBaseURL        = "https://api.openai.com/v1"
	DefaultVisionModel          = "gpt-4o"
)

type Config struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Environment string `toml:"environment"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// storage
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	RedisHost      string `toml:"redis_host"`
	RedisPort      string `toml:"redis_port"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// rate limits
	LoginRateLimitAllowedPerMin  int `toml:"login_rate_limit_allowed_per_min"`
	VisionRateLimitAllowedPerMin int `toml:"vision_rate_limit_allowed_per_min"`

	// progress
	ExperiencePerWorkout   int    `toml:"experience_per_workout"`
	DuplicateCheckInPolicy string `toml:"duplicate_check_in_policy"`

	// food
	FoodFactsBaseURL     string `toml:"food_facts_base_url"`
	FoodFactsCacheSizeMB int    `toml:"food_facts_cache_size_mb"`
	VisionBaseURL        string `toml:"vision_base_url"`
	VisionModel          string `toml:"vision_model"`
	MaxImageSizeMB       int    `toml:"max_image_size_mb"`

	// accounts
	PasswordRecoveryURL string   `toml:"password_recovery_url"`
	MailSender          string   `toml:"mail_sender"`
	AllowedOrigins      []string `toml:"allowed_origins"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] missing", env)
	}
	return cfg, nil
}

// Load reads the TOML file at path and returns the config section for env,
// with defaults applied.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "localhost"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
	if c.LoginRateLimitAllowedPerMin <= 0 {
		c.LoginRateLimitAllowedPerMin = 15
	}
	if c.VisionRateLimitAllowedPerMin <= 0 {
		c.VisionRateLimitAllowedPerMin = 10
	}
	if c.ExperiencePerWorkout <= 0 {
		c.ExperiencePerWorkout = DefaultExperiencePerWorkout
	}
	if c.DuplicateCheckInPolicy == "" {
		c.DuplicateCheckInPolicy = "ignore"
	}
	if c.FoodFactsBaseURL == "" {
		c.FoodFactsBaseURL = DefaultFoodFactsBaseURL
	}
	if c.FoodFactsCacheSizeMB <= 0 {
		c.FoodFactsCacheSizeMB = 50
	}
	if c.VisionBaseURL == "" {
		c.VisionBaseURL = DefaultVisionBaseURL
	}
	if c.VisionModel == "" {
		c.VisionModel = DefaultVisionModel
	}
	if c.MaxImageSizeMB <= 0 {
		c.MaxImageSizeMB = DefaultMaxImageSizeMB
	}
}

func (c *Config) Validate() error {
	switch c.DuplicateCheckInPolicy {
	case "ignore", "reject":
	default:
		return fmt.Errorf("invalid duplicate check-in policy: %s", c.DuplicateCheckInPolicy)
	}
	if c.PostgresHost == "" || c.PostgresDBName == "" {
		return fmt.Errorf("postgres host and db name must be set")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("redis host must be set")
	}
	return nil
}
