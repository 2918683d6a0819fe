package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/selivandex/news-pulse/pkg/models"
)

// AI provider names accepted in AI_PROVIDER
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config represents application configuration
type Config struct {
	Database   DatabaseConfig   `envconfig:"DATABASE"`
	Redis      RedisConfig      `envconfig:"REDIS"`
	ClickHouse ClickHouseConfig `envconfig:"CLICKHOUSE"`
	Finnhub    FinnhubConfig    `envconfig:"FINNHUB"`
	AI         AIConfig         `envconfig:"AI"`
	Scheduler  SchedulerConfig  `envconfig:"SCHEDULER"`
	API        APIConfig        `envconfig:"API"`
	Health     HealthConfig     `envconfig:"HEALTH"`
	Telegram   TelegramConfig   `envconfig:"TELEGRAM"`
	Logging    LoggingConfig    `envconfig:"LOG"`
}

// DatabaseConfig represents database connection parameters
type DatabaseConfig struct {
	Host            string        `envconfig:"HOST" default:"localhost"`
	Name            string        `envconfig:"NAME" default:"pulse"`
	User            string        `envconfig:"USER" required:"true"`
	Password        string        `envconfig:"PASSWORD" required:"true"`
	SSLMode         string        `envconfig:"SSLMODE" default:"disable"`
	Port            int           `envconfig:"PORT" default:"5432"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig represents redis connection parameters
type RedisConfig struct {
	Host     string        `envconfig:"HOST" default:"localhost"`
	Password string        `envconfig:"PASSWORD"`
	Port     int           `envconfig:"PORT" default:"6379"`
	DB       int           `envconfig:"DB" default:"0"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"60s"`
	Enabled  bool          `envconfig:"ENABLED" default:"true"`
}

// ClickHouseConfig represents the optional metrics sink
type ClickHouseConfig struct {
	Host          string        `envconfig:"HOST" default:"localhost"`
	Database      string        `envconfig:"DATABASE" default:"pulse"`
	User          string        `envconfig:"USER" default:"default"`
	Password      string        `envconfig:"PASSWORD"`
	Port          int           `envconfig:"PORT" default:"9000"`
	BatchSize     int           `envconfig:"BATCH_SIZE" default:"100"`
	FlushInterval time.Duration `envconfig:"FLUSH_INTERVAL" default:"10s"`
	Enabled       bool          `envconfig:"ENABLED" default:"false"`
}

// FinnhubConfig represents the news feed
type FinnhubConfig struct {
	APIKey            string        `envconfig:"API_KEY"`
	BaseURL           string        `envconfig:"BASE_URL" default:"https://finnhub.io/api/v1"`
	Categories        []string      `envconfig:"CATEGORIES" default:"general,crypto,forex,merger"`
	PerCategoryLimit  int           `envconfig:"PER_CATEGORY_LIMIT" default:"10"`
	Timeout           time.Duration `envconfig:"TIMEOUT" default:"10s"`
	RequestsPerSecond float64       `envconfig:"REQUESTS_PER_SECOND" default:"1"`
}

// AIConfig represents the text-generation capability
type AIConfig struct {
	Provider           string           `envconfig:"PROVIDER" default:"gemini"`
	TargetLanguage     string           `envconfig:"TARGET_LANGUAGE" default:"English"`
	Gemini             AIProviderConfig `envconfig:"GEMINI"`
	OpenAI             AIProviderConfig `envconfig:"OPENAI"`
	Timeout            time.Duration    `envconfig:"TIMEOUT" default:"30s"`
	Concurrency        int              `envconfig:"CONCURRENCY" default:"4"`
	RequestsPerSecond  float64          `envconfig:"REQUESTS_PER_SECOND" default:"2"`
	ExtractTemperature float32          `envconfig:"EXTRACT_TEMPERATURE" default:"0.1"`
	ExplainTemperature float32          `envconfig:"EXPLAIN_TEMPERATURE" default:"0.4"`
}

// AIProviderConfig represents single AI provider configuration
type AIProviderConfig struct {
	APIKey  string `envconfig:"API_KEY"`
	Model   string `envconfig:"MODEL"`
	BaseURL string `envconfig:"BASE_URL"`
}

// SchedulerConfig defines when ingestion runs
type SchedulerConfig struct {
	Cron        string        `envconfig:"CRON" default:"0 * * * *"`
	Timezone    string        `envconfig:"TIMEZONE" default:"UTC"`
	LockTTL     time.Duration `envconfig:"LOCK_TTL" default:"20m"`
	RunTimeout  time.Duration `envconfig:"RUN_TIMEOUT" default:"15m"`
	RunOnStart  bool          `envconfig:"RUN_ON_START" default:"false"`
	LockEnabled bool          `envconfig:"LOCK_ENABLED" default:"true"`
}

// APIConfig represents the HTTP API
type APIConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// Tokens maps caller identity to bearer token: API_TOKENS=alice:secret1,bob:secret2
	Tokens       map[string]string `envconfig:"TOKENS"`
	WriteTimeout time.Duration     `envconfig:"WRITE_TIMEOUT" default:"60s"`
}

// HealthConfig represents the probe server
type HealthConfig struct {
	Port string `envconfig:"PORT" default:"8081"`
}

// TelegramConfig represents the optional run report channel
type TelegramConfig struct {
	BotToken string `envconfig:"BOT_TOKEN"`
	ChatID   int64  `envconfig:"CHAT_ID"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LEVEL" default:"info"`
	File  string `envconfig:"FILE"`
}

// Load reads configuration from environment variables, after an optional .env file
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Finnhub.APIKey == "" {
		return fmt.Errorf("FINNHUB_API_KEY is required")
	}
	if len(c.Finnhub.Categories) == 0 {
		return fmt.Errorf("at least one news category must be configured")
	}
	for _, category := range c.Finnhub.Categories {
		if !models.IsNewsCategory(category) {
			return fmt.Errorf("unknown news category %q (allowed: %s)", category, strings.Join(models.NewsCategories, ", "))
		}
	}
	if c.Finnhub.PerCategoryLimit < 1 || c.Finnhub.PerCategoryLimit > 100 {
		return fmt.Errorf("per-category limit must be between 1 and 100")
	}
	if c.Finnhub.Timeout <= 0 || c.AI.Timeout <= 0 {
		return fmt.Errorf("external call timeouts must be positive")
	}

	switch c.AI.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown AI provider %q", c.AI.Provider)
	}
	if c.AI.Concurrency < 1 {
		return fmt.Errorf("AI concurrency must be at least 1")
	}
	if c.AI.ExtractTemperature < 0 || c.AI.ExtractTemperature > 2 || c.AI.ExplainTemperature < 0 || c.AI.ExplainTemperature > 2 {
		return fmt.Errorf("AI temperatures must be between 0 and 2")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
	}
	if c.Scheduler.LockTTL <= 0 {
		return fmt.Errorf("scheduler lock TTL must be positive")
	}
	// the lock must outlive a run or a second replica can start a concurrent one
	if c.Scheduler.LockTTL < c.Scheduler.RunTimeout {
		return fmt.Errorf("scheduler lock TTL %s is shorter than run timeout %s", c.Scheduler.LockTTL, c.Scheduler.RunTimeout)
	}

	for caller, token := range c.API.Tokens {
		if caller == "" || token == "" {
			return fmt.Errorf("API tokens must be given as caller:token pairs")
		}
	}

	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram bot token and chat id must be set together")
	}

	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetDSN returns ClickHouse connection string
func (c *ClickHouseConfig) GetDSN() string {
	return fmt.Sprintf("clickhouse://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

// Addr returns host:port of the redis server
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Location resolves the scheduler timezone, falling back to UTC
func (c *SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ActiveProvider returns the settings of the configured AI provider
func (c *AIConfig) ActiveProvider() AIProviderConfig {
	if c.Provider == ProviderOpenAI {
		return c.OpenAI
	}
	return c.Gemini
}

// TelegramEnabled reports whether run reports should be sent
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != 0
}
