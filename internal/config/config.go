// Package config loads pgmeta settings from a YAML file and PGMETA_*
// environment variables. Precedence, lowest first: built-in defaults, the
// file, the environment. Command-line flags are applied on top by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/filestore"
	"github.com/koustreak/pgmeta/internal/logger"
)

// Config is the full pgmeta configuration.
type Config struct {
	Database  database.Config  `yaml:"database"`
	Log       logger.Config    `yaml:"log"`
	Server    ServerConfig     `yaml:"server"`
	FileStore filestore.Config `yaml:"filestore"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RequestTimeout bounds the catalog work behind a single request.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Database: *database.DefaultConfig(),
		Log:      *logger.DefaultConfig(),
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		FileStore: *filestore.DefaultConfig(),
	}
}

// Load reads path over the defaults and applies the environment. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read config file", err)
		}
		defer f.Close()
		if err := cfg.decode(f); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without consulting the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode rejects unknown keys so typos do not silently fall back to defaults.
func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to parse config", err)
	}
	return nil
}

// Environment variables read by ApplyEnv.
const (
	EnvHost           = "PGMETA_HOST"
	EnvPort           = "PGMETA_PORT"
	EnvDatabase       = "PGMETA_DATABASE"
	EnvUser           = "PGMETA_USER"
	EnvPassword       = "PGMETA_PASSWORD"
	EnvSSL            = "PGMETA_SSL"
	EnvConnectTimeout = "PGMETA_CONNECT_TIMEOUT"
	EnvLogLevel       = "PGMETA_LOG_LEVEL"
	EnvLogFormat      = "PGMETA_LOG_FORMAT"
	EnvListenAddr     = "PGMETA_LISTEN_ADDR"
	EnvS3Endpoint     = "PGMETA_S3_ENDPOINT"
	EnvS3AccessKey    = "PGMETA_S3_ACCESS_KEY"
	EnvS3SecretKey    = "PGMETA_S3_SECRET_KEY"
	EnvS3UseSSL       = "PGMETA_S3_USE_SSL"
	EnvS3Region       = "PGMETA_S3_REGION"
	EnvS3Bucket       = "PGMETA_S3_BUCKET"
	EnvS3Prefix       = "PGMETA_S3_PREFIX"
)

// ApplyEnv overrides fields from lookup, normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var firstErr error
	fail := func(key, v string, err error) {
		if firstErr == nil {
			firstErr = errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("invalid %s=%q", key, v), err)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				fail(key, v, err)
				return
			}
			*dst = b
		}
	}

	str(EnvHost, &c.Database.Host)
	if v, ok := lookup(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			fail(EnvPort, v, err)
		} else {
			c.Database.Port = port
		}
	}
	str(EnvDatabase, &c.Database.Database)
	str(EnvUser, &c.Database.User)
	str(EnvPassword, &c.Database.Password)
	boolean(EnvSSL, &c.Database.SSL)
	if v, ok := lookup(EnvConnectTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			fail(EnvConnectTimeout, v, err)
		} else {
			c.Database.ConnectTimeout = d
		}
	}

	str(EnvLogLevel, &c.Log.Level)
	str(EnvLogFormat, &c.Log.Format)
	str(EnvListenAddr, &c.Server.Addr)

	str(EnvS3Endpoint, &c.FileStore.Endpoint)
	str(EnvS3AccessKey, &c.FileStore.AccessKey)
	str(EnvS3SecretKey, &c.FileStore.SecretKey)
	boolean(EnvS3UseSSL, &c.FileStore.UseSSL)
	str(EnvS3Region, &c.FileStore.Region)
	str(EnvS3Bucket, &c.FileStore.Bucket)
	str(EnvS3Prefix, &c.FileStore.Prefix)

	return firstErr
}

// Validate checks the database section, and the filestore section when an
// endpoint is configured.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.FileStore.Enabled() {
		if err := c.FileStore.Validate(); err != nil {
			return err
		}
	}
	return nil
}
