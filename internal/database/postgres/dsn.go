package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/errs"
)

// buildDSN renders cfg as a keyword/value connection string.
func buildDSN(cfg *database.Config) string {
	sslMode := "disable"
	if cfg.SSL {
		sslMode = "require"
	}
	port := cfg.Port
	if port == 0 {
		port = database.DefaultPort
	}
	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = database.DefaultConnectTimeout
	}
	// connect_timeout has one-second granularity; round up so 500ms is not 0 (= forever).
	secs := int((timeout + time.Second - 1) / time.Second)

	parts := []string{
		"host=" + quoteValue(cfg.Host),
		fmt.Sprintf("port=%d", port),
		"dbname=" + quoteValue(cfg.Database),
		"sslmode=" + sslMode,
		fmt.Sprintf("connect_timeout=%d", secs),
	}
	if cfg.User != "" {
		parts = append(parts, "user="+quoteValue(cfg.User))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+quoteValue(cfg.Password))
	}
	if cfg.ApplicationName != "" {
		parts = append(parts, "application_name="+quoteValue(cfg.ApplicationName))
	}
	return strings.Join(parts, " ")
}

// quoteValue single-quotes a connection string value, escaping quotes and backslashes.
func quoteValue(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// connConfig validates cfg and parses it into a pgx connection config.
func connConfig(cfg *database.Config) (*pgx.ConnConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cc, err := pgx.ParseConfig(buildDSN(cfg))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid connection settings", err)
	}
	return cc, nil
}
