package database

import "context"

type opKey struct{}

// WithOp labels the statements run under ctx for logging.
func WithOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

// OpFrom returns the label set by WithOp, or "query".
func OpFrom(ctx context.Context) string {
	if op, ok := ctx.Value(opKey{}).(string); ok && op != "" {
		return op
	}
	return "query"
}
