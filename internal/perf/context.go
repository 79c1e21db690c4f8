package perf

import (
	"context"
	"sync/atomic"
)

type ctxKey int

const queryCounterKey ctxKey = iota

// WithQueryCounter attaches a fresh durable-store query counter to the
// context. The request-timing middleware installs one per request and reads
// it back after the handler finishes.
func WithQueryCounter(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryCounterKey, new(atomic.Int64))
}

// CountQueries adds n to the context's query counter, if one is attached.
// Calls without a counter (background jobs, startup) are silently ignored.
func CountQueries(ctx context.Context, n int64) {
	if counter, ok := ctx.Value(queryCounterKey).(*atomic.Int64); ok {
		counter.Add(n)
	}
}

// QueriesFromContext returns the number of queries counted so far, or 0 if
// no counter is attached.
func QueriesFromContext(ctx context.Context) int64 {
	if counter, ok := ctx.Value(queryCounterKey).(*atomic.Int64); ok {
		return counter.Load()
	}
	return 0
}
