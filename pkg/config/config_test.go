package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
database:
  driver: sqlite
  dsn: "file:sentipulse.db"
window:
  channel_weights:
    news: 2
`))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Window.Size)
	assert.Equal(t, time.Minute, cfg.Window.Grace)
	assert.Equal(t, "direct", cfg.Window.Dispatch)
	assert.Equal(t, 5*time.Minute, cfg.Window.MaxSkew)
	assert.Equal(t, 2.0, cfg.Window.ChannelWeights["news"])
	assert.Equal(t, 30*time.Second, cfg.Cache.ResponseTTL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"driver":         "database: {driver: mysql, dsn: x}",
		"dsn":            "database: {driver: sqlite}",
		"window size":    "database: {driver: sqlite, dsn: x}\nwindow: {size: 90s}",
		"grace":          "database: {driver: sqlite, dsn: x}\nwindow: {size: 30m, grace: 30m}",
		"queue no redis": "database: {driver: sqlite, dsn: x}\nwindow: {dispatch: queue}",
		"weight":         "database: {driver: sqlite, dsn: x}\nwindow: {channel_weights: {news: -1}}",
		"kafka":          "database: {driver: sqlite, dsn: x}\nkafka: {enabled: true}",
		"feed":           "database: {driver: sqlite, dsn: x}\nfeeds: {sources: [{url: 'https://x.example.com/rss'}]}",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DSN", "file:env.db")
	t.Setenv("HTTP_HOST", "127.0.0.1")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_EVENTS_TOPIC", "events")

	cfg, err := LoadWithEnv(writeConfig(t, "database: {driver: sqlite, dsn: file:yaml.db}"))
	require.NoError(t, err)
	assert.Equal(t, "file:env.db", cfg.Database.DSN)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}
