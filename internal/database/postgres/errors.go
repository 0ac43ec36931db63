package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koustreak/pgmeta/internal/errs"
)

// SQLSTATE classes and codes that change how an error is classified.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnection   = "08" // connection exception
	pgClassInvalidAuth  = "28" // invalid authorization specification
	pgClassOperatorIntv = "57" // operator intervention (admin shutdown, crash)
	pgQueryCanceled     = "57014"
)

// mapConnectError classifies a failure while establishing a connection.
// Anything that is not a deadline is a connection failure: unreachable host,
// rejected credentials, TLS negotiation, unknown database.
func mapConnectError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}
	if isTimeout(err) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// mapError translates pgx / pgconn errors raised after the connection is up.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if isTimeout(err) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := errs.ErrKindQueryFailed
		switch {
		case pgErr.Code == pgQueryCanceled:
			kind = errs.ErrKindTimeout
		case sqlstateClass(pgErr.Code) == pgClassConnection,
			sqlstateClass(pgErr.Code) == pgClassInvalidAuth,
			sqlstateClass(pgErr.Code) == pgClassOperatorIntv:
			kind = errs.ErrKindConnectionFailed
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	if isNetworkError(err) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	// Fallthrough: pgx rejected the statement before sending it
	// (argument count or encoding mismatch).
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

func sqlstateClass(code string) string {
	if len(code) < 2 {
		return ""
	}
	return code[:2]
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		pgconn.Timeout(err)
}

func isNetworkError(err error) bool {
	var netErr net.Error
	var connectErr *pgconn.ConnectError
	return errors.As(err, &netErr) ||
		errors.As(err, &connectErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}
