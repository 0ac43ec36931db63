package catalog

import (
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/koustreak/pgmeta/internal/errs"
)

// maxIdentifierLen is NAMEDATALEN-1 on a stock server.
const maxIdentifierLen = 63

// ParseTableName splits "name" or "schema.name" into an identifier that is
// safe to splice into SQL once sanitized.
func ParseTableName(s string) (pgx.Identifier, error) {
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "invalid table name %q: at most one dot allowed", s)
	}
	for _, p := range parts {
		switch {
		case p == "":
			return nil, errs.Newf(errs.ErrKindInvalidInput, "invalid table name %q: empty identifier", s)
		case len(p) > maxIdentifierLen:
			return nil, errs.Newf(errs.ErrKindInvalidInput, "invalid table name %q: identifier longer than %d bytes", s, maxIdentifierLen)
		case strings.ContainsRune(p, 0):
			return nil, errs.Newf(errs.ErrKindInvalidInput, "invalid table name %q: contains NUL", s)
		}
	}
	return pgx.Identifier(parts), nil
}
