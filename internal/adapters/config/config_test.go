package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_USER", "pulse")
	t.Setenv("DATABASE_PASSWORD", "secret")
	t.Setenv("FINNHUB_API_KEY", "fh-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"general", "crypto", "forex", "merger"}, cfg.Finnhub.Categories)
	assert.Equal(t, 10, cfg.Finnhub.PerCategoryLimit)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.InDelta(t, 0.1, cfg.AI.ExtractTemperature, 1e-6)
	assert.InDelta(t, 0.4, cfg.AI.ExplainTemperature, 1e-6)
	assert.Equal(t, "0 * * * *", cfg.Scheduler.Cron)
	assert.Equal(t, 20*time.Minute, cfg.Scheduler.LockTTL)
	assert.GreaterOrEqual(t, cfg.Scheduler.LockTTL, cfg.Scheduler.RunTimeout)
	assert.Equal(t, time.UTC, cfg.Scheduler.Location())
	assert.False(t, cfg.TelegramEnabled())
	assert.Equal(t, "host=localhost port=5432 user=pulse password=secret dbname=pulse sslmode=disable", cfg.Database.GetDSN())
}

func TestLoadNestedOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("AI_OPENAI_API_KEY", "sk-test")
	t.Setenv("AI_OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("API_TOKENS", "alice:t1,bob:t2")
	t.Setenv("FINNHUB_CATEGORIES", "crypto,merger")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.AI.ActiveProvider().APIKey)
	assert.Equal(t, map[string]string{"alice": "t1", "bob": "t2"}, cfg.API.Tokens)
	assert.Equal(t, []string{"crypto", "merger"}, cfg.Finnhub.Categories)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr())
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("DATABASE_USER", "")
	t.Setenv("DATABASE_PASSWORD", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Finnhub: FinnhubConfig{
				APIKey:           "k",
				Categories:       []string{"general"},
				PerCategoryLimit: 10,
				Timeout:          time.Second,
			},
			AI: AIConfig{
				Provider:           ProviderGemini,
				Timeout:            time.Second,
				Concurrency:        1,
				ExtractTemperature: 0.1,
				ExplainTemperature: 0.4,
			},
			Scheduler: SchedulerConfig{Timezone: "UTC", LockTTL: time.Minute, RunTimeout: time.Minute},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing finnhub key", func(c *Config) { c.Finnhub.APIKey = "" }},
		{"unknown category", func(c *Config) { c.Finnhub.Categories = []string{"stocks"} }},
		{"no categories", func(c *Config) { c.Finnhub.Categories = nil }},
		{"limit too large", func(c *Config) { c.Finnhub.PerCategoryLimit = 500 }},
		{"unknown provider", func(c *Config) { c.AI.Provider = "claude" }},
		{"zero concurrency", func(c *Config) { c.AI.Concurrency = 0 }},
		{"temperature out of range", func(c *Config) { c.AI.ExplainTemperature = 3 }},
		{"bad timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }},
		{"lock expires before run timeout", func(c *Config) { c.Scheduler.RunTimeout = 2 * time.Minute }},
		{"half telegram config", func(c *Config) { c.Telegram.BotToken = "token" }},
		{"empty api token", func(c *Config) { c.API.Tokens = map[string]string{"alice": ""} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
