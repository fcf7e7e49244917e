package conf

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/recruitbot/recruit-bot/internal/biz/domain"
	"github.com/recruitbot/recruit-bot/internal/biz/usecase"
)

// -----------------------------------------------------------------------------
// Only DISCORD_TOKEN is required. Everything else has a default that matches
// a single-guild deployment in Japan.
// -----------------------------------------------------------------------------

// Config represents application configuration
type Config struct {
	Discord  DiscordConfig
	Server   ServerConfig
	Store    StoreConfig
	Schedule ScheduleConfig
	Dialog   DialogConfig
	Log      LogConfig

	// Catalog file; empty searches the default locations
	CatalogPath string `envconfig:"CATALOG_PATH"`
	TimeZone    string `envconfig:"TIMEZONE" default:"Asia/Tokyo"`

	// Debug mode
	Debug bool `envconfig:"DEBUG" default:"false"`
}

// DiscordConfig contains Discord configuration
type DiscordConfig struct {
	Token string `envconfig:"DISCORD_TOKEN"`
	AppID string `envconfig:"DISCORD_APP_ID"`
	// Registers commands in this guild only when set
	GuildID string `envconfig:"DISCORD_GUILD_ID"`
}

// ServerConfig contains liveness endpoint configuration
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"3000"`
}

// StoreConfig contains campaign store configuration
type StoreConfig struct {
	Driver string `envconfig:"STORE_DRIVER" default:"json"` // json or sqlite
	Path   string `envconfig:"STORE_PATH"`
}

// ScheduleConfig contains deadline scheduler configuration
type ScheduleConfig struct {
	TickInterval     time.Duration `envconfig:"TICK_INTERVAL" default:"1m"`
	ReminderMode     string        `envconfig:"REMINDER_MODE" default:"lead"`
	ReminderLead     time.Duration `envconfig:"REMINDER_LEAD" default:"12h"`
	ReminderHour     int           `envconfig:"REMINDER_HOUR" default:"12"`
	SupersedeTimeout time.Duration `envconfig:"SUPERSEDE_TIMEOUT" default:"30s"`
}

// DialogConfig contains dialog timeouts
type DialogConfig struct {
	TemplateTimeout time.Duration `envconfig:"DIALOG_TEMPLATE_TIMEOUT" default:"30s"`
	TextTimeout     time.Duration `envconfig:"DIALOG_TEXT_TIMEOUT" default:"60s"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"` // text or json
}

// LoadFromEnv loads .env (if present) and then the process environment
func LoadFromEnv() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process env config")
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = cfg.defaultStorePath()
	}
	return &cfg, nil
}

func (c *Config) defaultStorePath() string {
	if c.Store.Driver == "sqlite" {
		return "data/campaigns.db"
	}
	return "data/tasks.json"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return &ConfigError{Field: "DISCORD_TOKEN", Message: "required"}
	}
	switch c.Store.Driver {
	case "json", "sqlite":
	default:
		return &ConfigError{Field: "STORE_DRIVER", Message: "must be json or sqlite"}
	}
	switch domain.ReminderMode(c.Schedule.ReminderMode) {
	case domain.ReminderModeLead, domain.ReminderModePreviousDay:
	default:
		return &ConfigError{Field: "REMINDER_MODE", Message: "must be lead or previous_day"}
	}
	if c.Schedule.ReminderHour < 0 || c.Schedule.ReminderHour > 23 {
		return &ConfigError{Field: "REMINDER_HOUR", Message: "must be 0-23"}
	}
	if c.Schedule.TickInterval < time.Second {
		return &ConfigError{Field: "TICK_INTERVAL", Message: "must be at least 1s"}
	}
	return nil
}

// Location loads the configured time zone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, &ConfigError{Field: "TIMEZONE", Message: err.Error()}
	}
	return loc, nil
}

// ToDialogConfig converts to dialog usecase configuration
func (c *Config) ToDialogConfig(loc *time.Location) usecase.DialogConfig {
	return usecase.DialogConfig{
		TemplateTimeout: c.Dialog.TemplateTimeout,
		TextTimeout:     c.Dialog.TextTimeout,
		Location:        loc,
	}
}

// ToDeadlineConfig converts to deadline usecase configuration
func (c *Config) ToDeadlineConfig() usecase.DeadlineConfig {
	return usecase.DeadlineConfig{
		Period: c.Schedule.TickInterval,
		Reminder: domain.ReminderPolicy{
			Mode: domain.ReminderMode(c.Schedule.ReminderMode),
			Lead: c.Schedule.ReminderLead,
			Hour: c.Schedule.ReminderHour,
		},
	}
}

// NewLogger builds the process logger
func (c *Config) NewLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if c.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
