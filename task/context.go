package task

import (
	"context"

	"github.com/mwantia/xila/data"
)

type contextKey struct{}

// WithTask returns a context carrying identifier as the current task.
func WithTask(ctx context.Context, identifier data.TaskIdentifier) context.Context {
	return context.WithValue(ctx, contextKey{}, identifier)
}

// FromContext returns the task the context was created for.
func FromContext(ctx context.Context) (data.TaskIdentifier, bool) {
	identifier, ok := ctx.Value(contextKey{}).(data.TaskIdentifier)
	return identifier, ok
}

// Current is FromContext falling back to the root task.
func Current(ctx context.Context) data.TaskIdentifier {
	if identifier, ok := FromContext(ctx); ok {
		return identifier
	}
	return data.RootTaskIdentifier
}
