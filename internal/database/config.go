package database

import (
	"fmt"
	"time"

	"github.com/koustreak/pgmeta/internal/errs"
)

const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 5432
	DefaultDatabase       = "postgres"
	DefaultConnectTimeout = 10 * time.Second
)

// Config holds everything needed to open a connection to one database.
// There are no pool settings: every statement gets its own connection.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// SSL requires TLS when true and disables it when false.
	SSL bool `yaml:"ssl"`

	// ConnectTimeout bounds connection setup. Zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// ApplicationName is reported to the server in pg_stat_activity.
	ApplicationName string `yaml:"application_name"`
}

// DefaultConfig returns settings for a local server's postgres database.
func DefaultConfig() *Config {
	return &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		Database:        DefaultDatabase,
		ConnectTimeout:  DefaultConnectTimeout,
		ApplicationName: "pgmeta",
	}
}

// WithDatabase returns a copy of c pointed at another database on the same server.
func (c Config) WithDatabase(name string) *Config {
	c.Database = name
	return &c
}

// Validate reports missing or out-of-range settings.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errs.New(errs.ErrKindInvalidInput, "database host is required")
	}
	if c.Database == "" {
		return errs.New(errs.ErrKindInvalidInput, "database name is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errs.Newf(errs.ErrKindInvalidInput, "database port %d out of range", c.Port)
	}
	if c.ConnectTimeout < 0 {
		return errs.New(errs.ErrKindInvalidInput, "connect timeout must not be negative")
	}
	return nil
}

// Addr returns host:port, applying the default port.
func (c *Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}
