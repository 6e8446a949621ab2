package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "todo-events", cfg.Kafka.Topic)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL.Duration)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.toml")
	content := `
http_port = 9000
log_level = "debug"
session_ttl = "10m"
cors_origins = ["https://todo.example.com"]

[db]
host = "db.internal"
database = "todos"

[kafka]
brokers = ["k1:9092"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("PORT", "9100")
	t.Setenv("KAFKA_BROKERS", "a:1, b:2,")
	t.Setenv("CACHE_TTL_SEC", "60")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL.Duration)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Minute, cfg.Redis.TTL.Duration)
	assert.Contains(t, cfg.DSN(), "dbname=todos")
	assert.Equal(t, []string{"https://todo.example.com"}, cfg.CORSOrigins)
}

func TestCORSOriginsFromEnv(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.Empty(t, Default().CORSOrigins)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := Load("")
	assert.Error(t, err)
}

func TestDatabaseURLWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:secret@h:5432/d")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:secret@h:5432/d", cfg.DSN())
	assert.NotContains(t, cfg.RedactedDSN(), "secret")
}
