// Package config reads the bot configuration from the environment, after loading an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/keshon/orator/internal/platform"
	"github.com/keshon/orator/internal/status"
)

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required,notEmpty"`

	DefaultPrefix       string        `env:"DEFAULT_PREFIX" envDefault:"!"`
	MentionPrefix       bool          `env:"MENTION_PREFIX" envDefault:"true"`
	DeleteInvoking      bool          `env:"DELETE_INVOKING" envDefault:"false"`
	DeleteResponse      bool          `env:"DELETE_RESPONSE" envDefault:"false"`
	DeleteResponseDelay time.Duration `env:"DELETE_RESPONSE_DELAY" envDefault:"10s"`
	NoticeDelay         time.Duration `env:"NOTICE_DELAY" envDefault:"15s"`
	NotifyOnError       bool          `env:"NOTIFY_ON_ERROR" envDefault:"true"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"file"`
	StoragePath   string `env:"STORAGE_PATH" envDefault:"data/datastore.json"`
	DatabaseURL   string `env:"DATABASE_URL"`

	CommandsPath     string `env:"COMMANDS_PATH"`
	PermissionsPath  string `env:"PERMISSIONS_PATH"`
	EventsPath       string `env:"EVENTS_PATH"`
	WatchDefinitions bool   `env:"WATCH_DEFINITIONS" envDefault:"false"`

	DeveloperIDs   []string       `env:"DEVELOPER_IDS" envSeparator:","`
	RoleLevels     map[string]int `env:"ROLE_LEVELS" envSeparator:"," envKeyValSeparator:":"`
	GuildBlacklist []string       `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`

	StatusMode        string        `env:"STATUS_MODE" envDefault:"manual"`
	StatusInterval    time.Duration `env:"STATUS_INTERVAL" envDefault:"5m"`
	DefaultStatus     string        `env:"DEFAULT_STATUS"`
	DefaultStatusType int           `env:"DEFAULT_STATUS_TYPE" envDefault:"0"`

	CommandCooldown time.Duration `env:"COMMAND_COOLDOWN" envDefault:"2s"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogOutput     string `env:"LOG_OUTPUT" envDefault:"stdout"`
	LogFile       string `env:"LOG_FILE" envDefault:"logs/orator.log"`
	LogMaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAge     int    `env:"LOG_MAX_AGE" envDefault:"30"`
}

// Load reads .env files (all optional) and then the process environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return parse(env.Options{})
}

// Parse reads the configuration from environ instead of the process environment.
func Parse(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.DefaultPrefix == "" || strings.ContainsAny(c.DefaultPrefix, " \t\n") {
		errs = append(errs, fmt.Errorf("DEFAULT_PREFIX %q must be non-empty and contain no spaces", c.DefaultPrefix))
	}
	switch c.StorageDriver {
	case "file":
		if c.StoragePath == "" {
			errs = append(errs, errors.New("STORAGE_PATH is required for the file driver"))
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q, want file or postgres", c.StorageDriver))
	}
	if _, err := status.ParseMode(c.StatusMode); err != nil {
		errs = append(errs, fmt.Errorf("STATUS_MODE: %w", err))
	}
	if c.DefaultStatus != "" {
		if err := c.Status().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("DEFAULT_STATUS: %w", err))
		}
	}
	if c.DeleteResponseDelay < 0 || c.NoticeDelay < 0 {
		errs = append(errs, errors.New("DELETE_RESPONSE_DELAY and NOTICE_DELAY must not be negative"))
	}
	switch c.LogOutput {
	case "stdout", "stderr":
	case "file":
		if c.LogFile == "" {
			errs = append(errs, errors.New("LOG_FILE is required when LOG_OUTPUT is file"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_OUTPUT %q, want stdout, stderr or file", c.LogOutput))
	}
	return errors.Join(errs...)
}

// Status is the configured default status. It is zero when DEFAULT_STATUS is empty.
func (c *Config) Status() status.Status {
	if c.DefaultStatus == "" {
		return status.Status{}
	}
	return status.Status{Name: c.DefaultStatus, Type: platform.ActivityType(c.DefaultStatusType)}
}

// Mode is the configured status mode. Call after Validate.
func (c *Config) Mode() status.Mode {
	m, _ := status.ParseMode(c.StatusMode)
	return m
}
