// Package config assembles runtime configuration from the environment and an
// optional JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults
const (
	DefaultProfilePath = "data/candidate.json"
	DefaultQueuePath   = "data/approval-queue.json"
	DefaultSeenDBPath  = "data/seen.db"
	DefaultOutboxDir   = "outbox"
	DefaultPort        = 3001
	DefaultIMAPPort    = 993
	DefaultSMTPPort    = 587
	DefaultMaxPages    = 2
)

// LLM selects and authenticates the model provider.
type LLM struct {
	Provider     string `json:"provider,omitempty" validate:"oneof=gemini openai"`
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`
	OpenAIAPIKey string `json:"openai_api_key,omitempty"`
	OpenAIModel  string `json:"openai_model,omitempty"`
}

// APIKey returns the key for the selected provider.
func (l LLM) APIKey() string {
	if l.Provider == "openai" {
		return l.OpenAIAPIKey
	}
	return l.GeminiAPIKey
}

// IMAP is the inbox the mail monitor watches.
type IMAP struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty" validate:"gte=0,lte=65535"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Mailbox  string `json:"mailbox,omitempty"`
}

// SMTP is the outbound mail relay used on approval.
type SMTP struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty" validate:"gte=0,lte=65535"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	From     string `json:"from,omitempty" validate:"omitempty,email"`
}

// Discord is the chat channel pair: one watched for JDs, one for approval notices.
type Discord struct {
	Token           string `json:"token,omitempty"`
	ChannelID       string `json:"channel_id,omitempty"`
	NotifyChannelID string `json:"notify_channel_id,omitempty"`
}

// Config is the runtime configuration. Environment variables provide the
// base values; a JSON file and CLI flags override them.
type Config struct {
	ProfilePath  string `json:"profile,omitempty" validate:"required"`
	QueuePath    string `json:"queue,omitempty" validate:"required"`
	DatabaseURL  string `json:"database_url,omitempty"`
	SeenDBPath   string `json:"seen_db,omitempty" validate:"required"`
	OutboxDir    string `json:"outbox,omitempty" validate:"required"`
	TemplatePath string `json:"template,omitempty"`
	DashboardURL string `json:"dashboard_url,omitempty" validate:"omitempty,url"`
	Port         int    `json:"port,omitempty" validate:"gt=0,lte=65535"`
	MaxPages     int    `json:"max_pages,omitempty" validate:"gte=1"`
	LogLevel     string `json:"log_level,omitempty" validate:"oneof=debug info warn error"`
	LogFormat    string `json:"log_format,omitempty" validate:"oneof=text json color"`
	UseBrowser   bool   `json:"use_browser,omitempty"`
	Verbose      bool   `json:"verbose,omitempty"`

	LLM            LLM           `json:"llm"`
	IMAP           IMAP          `json:"imap"`
	SMTP           SMTP          `json:"smtp"`
	Discord        Discord       `json:"discord"`
	CompileTimeout time.Duration `json:"-"`
}

// Error is a configuration problem naming the offending field.
type Error struct {
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// FromEnv builds a Config from environment variables and defaults.
func FromEnv() *Config {
	return &Config{
		ProfilePath:  getEnvString("CANDIDATE_PROFILE_PATH", DefaultProfilePath),
		QueuePath:    getEnvString("APPROVAL_QUEUE_PATH", DefaultQueuePath),
		DatabaseURL:  getEnvString("DATABASE_URL", ""),
		SeenDBPath:   getEnvString("SEEN_DB_PATH", DefaultSeenDBPath),
		OutboxDir:    getEnvString("OUTBOX_DIR", DefaultOutboxDir),
		TemplatePath: getEnvString("RESUME_TEMPLATE_PATH", ""),
		DashboardURL: strings.TrimRight(getEnvString("DASHBOARD_URL", ""), "/"),
		Port:         getEnvInt("PORT", DefaultPort),
		MaxPages:     getEnvInt("RESUME_MAX_PAGES", DefaultMaxPages),
		LogLevel:     strings.ToLower(getEnvString("LOG_LEVEL", "info")),
		LogFormat:    strings.ToLower(getEnvString("LOG_FORMAT", "text")),
		UseBrowser:   getEnvBool("USE_BROWSER", false),
		LLM: LLM{
			Provider:     strings.ToLower(getEnvString("LLM_PROVIDER", "gemini")),
			GeminiAPIKey: getEnvString("GEMINI_API_KEY", ""),
			OpenAIAPIKey: getEnvString("OPENAI_API_KEY", ""),
			OpenAIModel:  getEnvString("OPENAI_MODEL", ""),
		},
		IMAP: IMAP{
			Host:     getEnvString("IMAP_HOST", ""),
			Port:     getEnvInt("IMAP_PORT", DefaultIMAPPort),
			User:     getEnvString("IMAP_USER", ""),
			Password: getEnvString("IMAP_PASS", ""),
			Mailbox:  getEnvString("IMAP_MAILBOX", "INBOX"),
		},
		SMTP: SMTP{
			Host:     getEnvString("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", DefaultSMTPPort),
			User:     getEnvString("SMTP_USER", ""),
			Password: getEnvString("SMTP_PASS", ""),
			From:     getEnvString("FROM_EMAIL", ""),
		},
		Discord: Discord{
			Token:           getEnvString("DISCORD_TOKEN", ""),
			ChannelID:       getEnvString("DISCORD_CHANNEL_ID", ""),
			NotifyChannelID: getEnvString("DISCORD_NOTIFY_CHANNEL_ID", ""),
		},
		CompileTimeout: getEnvDuration("COMPILE_TIMEOUT", 60*time.Second),
	}
}

// Load returns the environment config, overlaid with the JSON file at path
// when path is non-empty.
func Load(path string) (*Config, error) {
	cfg := FromEnv()
	if path == "" {
		return cfg, nil
	}
	if err := cfg.overlayFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return &Error{Message: "failed to get current directory", Cause: err}
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Message: fmt.Sprintf("failed to read config file %s", path), Cause: err}
	}
	// Decoding onto the populated struct keeps env values for absent keys.
	if err := json.Unmarshal(data, c); err != nil {
		return &Error{Message: "failed to parse config JSON", Cause: err}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field values. The first failing field is reported.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &Error{
			Field:   fe.Namespace(),
			Message: fmt.Sprintf("failed %q check (value %v)", fe.Tag(), fe.Value()),
			Cause:   err,
		}
	}
	return &Error{Message: "invalid configuration", Cause: err}
}

// MailEnabled reports whether the inbox monitor can run.
func (c *Config) MailEnabled() bool {
	return c.IMAP.Host != "" && c.IMAP.User != "" && c.IMAP.Password != ""
}

// SMTPEnabled reports whether approvals can be sent.
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != ""
}

// ChatEnabled reports whether the chat monitor can run.
func (c *Config) ChatEnabled() bool {
	return c.Discord.Token != "" && c.Discord.ChannelID != ""
}

// FromAddress is the sender used for outgoing mail.
func (c *Config) FromAddress() string {
	if c.SMTP.From != "" {
		return c.SMTP.From
	}
	return c.SMTP.User
}

// getEnvString gets an environment variable as a string with a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
