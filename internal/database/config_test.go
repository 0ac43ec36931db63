package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/koustreak/pgmeta/internal/errs"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "postgres", cfg.Database)
	assert.False(t, cfg.SSL)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty host", func(c *Config) { c.Host = "" }},
		{"empty database", func(c *Config) { c.Database = "" }},
		{"negative port", func(c *Config) { c.Port = -1 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"negative timeout", func(c *Config) { c.ConnectTimeout = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.True(t, errs.IsInvalidInput(cfg.Validate()))
		})
	}
}

func TestConfig_WithDatabaseCopies(t *testing.T) {
	cfg := DefaultConfig()
	other := cfg.WithDatabase("pg-meta-test")

	assert.Equal(t, "pg-meta-test", other.Database)
	assert.Equal(t, "postgres", cfg.Database)
	assert.Equal(t, cfg.Host, other.Host)
}

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, "db.internal:5432", (&Config{Host: "db.internal"}).Addr())
	assert.Equal(t, "db.internal:6543", (&Config{Host: "db.internal", Port: 6543}).Addr())
}
