package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CANDIDATE_PROFILE_PATH", "APPROVAL_QUEUE_PATH", "DATABASE_URL", "SEEN_DB_PATH",
	"OUTBOX_DIR", "DASHBOARD_URL", "PORT", "LOG_LEVEL", "LOG_FORMAT", "LLM_PROVIDER",
	"GEMINI_API_KEY", "OPENAI_API_KEY", "IMAP_HOST", "IMAP_USER", "IMAP_PASS",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "FROM_EMAIL", "DISCORD_TOKEN",
	"DISCORD_CHANNEL_ID", "COMPILE_TIMEOUT", "RESUME_MAX_PAGES",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()
	assert.Equal(t, DefaultProfilePath, cfg.ProfilePath)
	assert.Equal(t, DefaultQueuePath, cfg.QueuePath)
	assert.Equal(t, DefaultSeenDBPath, cfg.SeenDBPath)
	assert.Equal(t, DefaultOutboxDir, cfg.OutboxDir)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, DefaultIMAPPort, cfg.IMAP.Port)
	assert.Equal(t, "INBOX", cfg.IMAP.Mailbox)
	assert.Equal(t, 60*time.Second, cfg.CompileTimeout)
	assert.False(t, cfg.MailEnabled())
	assert.False(t, cfg.SMTPEnabled())
	assert.False(t, cfg.ChatEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DASHBOARD_URL", "https://triage.example.com/")
	t.Setenv("IMAP_HOST", "imap.example.com")
	t.Setenv("IMAP_USER", "me@example.com")
	t.Setenv("IMAP_PASS", "secret")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USER", "me@example.com")
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DISCORD_CHANNEL_ID", "123")
	t.Setenv("COMPILE_TIMEOUT", "90s")

	cfg := FromEnv()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey())
	assert.Equal(t, "https://triage.example.com", cfg.DashboardURL)
	assert.Equal(t, 90*time.Second, cfg.CompileTimeout)
	assert.True(t, cfg.MailEnabled())
	assert.True(t, cfg.SMTPEnabled())
	assert.True(t, cfg.ChatEnabled())
	assert.Equal(t, "me@example.com", cfg.FromAddress())
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_BadNumberFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")
	assert.Equal(t, DefaultPort, FromEnv().Port)
}

func TestLoad_FileOverlaysEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "from-env")

	content := `{
		"profile": "profiles/me.json",
		"port": 4000,
		"llm": {"provider": "gemini"},
		"smtp": {"host": "smtp.example.com", "from": "me@example.com"}
	}`
	path := filepath.Join(t.TempDir(), "jobtriage.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "profiles/me.json", cfg.ProfilePath)
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "from-env", cfg.LLM.GeminiAPIKey, "absent keys keep env values")
	assert.Equal(t, DefaultQueuePath, cfg.QueuePath)
	assert.Equal(t, "me@example.com", cfg.FromAddress())
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{ invalid json }"), 0o644))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing file", "/nonexistent/path/config.json", "failed to read config file"},
		{"invalid json", bad, "failed to parse config JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.path)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.want)

			var cerr *Error
			assert.True(t, errors.As(err, &cerr))
		})
	}
}

func TestLoad_EmptyPathUsesEnv(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad provider", func(c *Config) { c.LLM.Provider = "claude" }, "Provider"},
		{"port out of range", func(c *Config) { c.Port = 70000 }, "Port"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LogFormat"},
		{"bad from address", func(c *Config) { c.SMTP.From = "not-an-email" }, "From"},
		{"empty queue path", func(c *Config) { c.QueuePath = "" }, "QueuePath"},
		{"bad dashboard url", func(c *Config) { c.DashboardURL = "nope" }, "DashboardURL"},
		{"zero page budget", func(c *Config) { c.MaxPages = 0 }, "MaxPages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg := FromEnv()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			assert.Contains(t, cerr.Field, tt.field)
			assert.Contains(t, err.Error(), "config error: ")
		})
	}
}

func TestError(t *testing.T) {
	cause := errors.New("boom")
	err := &Error{Field: "Config.Port", Message: "bad", Cause: cause}
	assert.Equal(t, "config error: Config.Port: bad", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "config error: bad", (&Error{Message: "bad"}).Error())
}
