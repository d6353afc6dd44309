package nodes

import (
	"context"
	"fmt"

	"github.com/leofalp/scriptgraph/patterns/graph"
	"github.com/leofalp/scriptgraph/providers/observability"
)

// upstreamOutput returns the first upstream output of type T.
func upstreamOutput[T any](input *graph.NodeInput) (T, bool) {
	for _, result := range input.UpstreamResults {
		if result == nil {
			continue
		}
		if typed, ok := result.Output.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

// stringInput reads key from the node params first, then from shared state.
func stringInput(ctx context.Context, input *graph.NodeInput, key string) (string, error) {
	if value, ok := input.Params[key].(string); ok && value != "" {
		return value, nil
	}

	if input.SharedState == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingInput, key)
	}
	value, ok, err := graph.Typed[string](ctx, input.SharedState, key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingInput, key)
	}
	return value, nil
}

// observerFor picks the observer of the node client, then the one in ctx.
func observerFor(ctx context.Context, input *graph.NodeInput) observability.Provider {
	if input.Client != nil && input.Client.Observer() != nil {
		return input.Client.Observer()
	}
	return observability.ObserverFromContext(ctx)
}
