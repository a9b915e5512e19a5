/*
Package log provides request-scoped logfmt logging, plus Context helpers for
carrying logging metadata across component boundaries.
*/
package log

import (
	"context"
)

type metadataKey struct{}

// metadata holds the log fields attached to a context. Deriving a context
// copies the map, so a stored metadata value is never mutated after creation.
type metadata map[string]any

func (m metadata) Flat() []any {
	out := make([]any, 0, 2*len(m))
	for k, v := range m {
		out = append(out, k, v)
	}
	return out
}

// WithLogValues derives a context whose logging metadata additionally holds
// the given key/value pairs. A "request_id" value routes LogCtx output into
// that request's log context.
func WithLogValues(ctx context.Context, keyvals ...string) context.Context {
	merged := metadata{}
	if prev, ok := ctx.Value(metadataKey{}).(metadata); ok {
		for k, v := range prev {
			merged[k] = v
		}
	}
	for i := 0; i+1 < len(keyvals); i += 2 {
		merged[keyvals[i]] = keyvals[i+1]
	}
	return context.WithValue(ctx, metadataKey{}, merged)
}

// LogCtx logs a message with the metadata carried by ctx prepended to args.
func LogCtx(ctx context.Context, message string, args ...any) {
	meta, _ := ctx.Value(metadataKey{}).(metadata)
	fields := append(meta.Flat(), args...)
	if requestID, ok := meta["request_id"].(string); ok && requestID != "" {
		Log(requestID, message, fields...)
		return
	}
	LogNoRequestID(message, fields...)
}
