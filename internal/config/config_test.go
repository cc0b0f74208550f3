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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Analysis.Interval)
	assert.Equal(t, "batch", cfg.Analysis.Mode)
	assert.Equal(t, "balanced", cfg.Analysis.Extraction)
	assert.Equal(t, "file", cfg.Source.Type)
	assert.Equal(t, 20*time.Second, cfg.Source.Prometheus.Lookback)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.OpenAI.Model)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "memory", cfg.History.Driver)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := writeConfig(t, `
server:
  port: 8081
  apiKeys: ["k1", "k2"]
analysis:
  interval: 30s
  mode: per_record
  concurrency: 8
source:
  type: prometheus
  prometheus:
    address: http://prom:9090
    lookback: 1m
    labels:
      client: remote_addr
llm:
  openai:
    apiKey: from-file
history:
  driver: sqlite
  sqlitePath: /tmp/h.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, 30*time.Second, cfg.Analysis.Interval)
	assert.Equal(t, "per_record", cfg.Analysis.Mode)
	assert.Equal(t, 8, cfg.Analysis.Concurrency)
	assert.Equal(t, "http://prom:9090", cfg.Source.Prometheus.Address)
	assert.Equal(t, time.Minute, cfg.Source.Prometheus.Lookback)
	assert.Equal(t, "remote_addr", cfg.Source.Prometheus.Labels.Client)
	assert.Equal(t, "method", cfg.Source.Prometheus.Labels.Method)
	assert.Equal(t, "from-file", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "/tmp/h.db", cfg.History.SQLitePath)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_FILE_PATH", "/var/log/nginx/access.log")
	path := writeConfig(t, "llm:\n  openai:\n    apiKey: file-key\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/var/log/nginx/access.log", cfg.Source.File.Path)
}

func TestLoadBadPort(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "k")
	t.Setenv("PORT", "abc")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "k")
	_, err := Load(writeConfig(t, "server: [unclosed"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"defaults with key", func(c *Config) {}, true},
		{"missing openai key", func(c *Config) { c.LLM.OpenAI.APIKey = "" }, false},
		{"gemini needs its key", func(c *Config) { c.LLM.Provider = "gemini" }, false},
		{"gemini with key", func(c *Config) { c.LLM.Provider = "gemini"; c.LLM.Gemini.APIKey = "g" }, true},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "claude" }, false},
		{"unknown source", func(c *Config) { c.Source.Type = "syslog" }, false},
		{"prometheus without address", func(c *Config) { c.Source.Type = "prometheus" }, false},
		{"empty file path", func(c *Config) { c.Source.File.Path = " " }, false},
		{"bad mode", func(c *Config) { c.Analysis.Mode = "stream" }, false},
		{"bad extraction", func(c *Config) { c.Analysis.Extraction = "regex" }, false},
		{"postgres without dsn", func(c *Config) { c.History.Driver = "postgres" }, false},
		{"unknown history driver", func(c *Config) { c.History.Driver = "redis" }, false},
		{"minio without endpoint", func(c *Config) { c.Minio.Enabled = true }, false},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, false},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.LLM.OpenAI.APIKey = "k"
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	c := Default()
	c.Database.User = "u"
	c.Database.Password = "p"
	c.Database.Host = "db"
	c.Database.Name = "logwatch"

	assert.Equal(t, "u:p@tcp(db:3306)/logwatch?parseTime=true&charset=utf8mb4&loc=UTC", c.MySQLDSN())
}

func TestLoadDoesNotValidate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}
