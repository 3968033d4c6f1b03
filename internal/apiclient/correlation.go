package apiclient

import (
	"context"
	"strings"
)

// CorrelationHeader carries the portal request id to the API.
const CorrelationHeader = "X-Correlation-ID"

type correlationKey struct{}

// WithCorrelationID binds a correlation id to ctx so outgoing calls forward it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id bound by WithCorrelationID, if any.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
