package filestore

import "github.com/koustreak/pgmeta/internal/errs"

// Provider identifies the object storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// DefaultPrefix is the key prefix snapshots are written under.
const DefaultPrefix = "pgmeta"

// Config holds the settings needed to reach an S3-compatible object store.
// An empty Endpoint means no store is configured.
type Config struct {
	Provider Provider `yaml:"provider"`

	// Endpoint is the host:port of the storage server, e.g. "localhost:9000".
	Endpoint string `yaml:"endpoint"`

	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`

	// Region is used by region-aware backends and when creating buckets.
	Region string `yaml:"region"`

	// Bucket receives catalog snapshots. It is created on first export.
	Bucket string `yaml:"bucket"`

	// Prefix is prepended to every snapshot key.
	Prefix string `yaml:"prefix"`
}

// DefaultConfig returns an unconfigured MinIO store with the default bucket
// and prefix.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderMinIO,
		Bucket:   "pgmeta-snapshots",
		Prefix:   DefaultPrefix,
	}
}

// Enabled reports whether an endpoint is set.
func (c *Config) Enabled() bool {
	return c.Endpoint != ""
}

// Validate checks the settings needed to connect and write snapshots.
func (c *Config) Validate() error {
	if c.Provider != "" && c.Provider != ProviderMinIO {
		return errs.Newf(errs.ErrKindInvalidInput, "unsupported filestore provider %q", c.Provider)
	}
	if c.Endpoint == "" {
		return errs.New(errs.ErrKindInvalidInput, "filestore endpoint is required")
	}
	if c.Bucket == "" {
		return errs.New(errs.ErrKindInvalidInput, "filestore bucket is required")
	}
	return nil
}
