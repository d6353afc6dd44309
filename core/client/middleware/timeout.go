package middleware

import (
	"context"
	"time"

	"github.com/leofalp/scriptgraph/core/client"
	"github.com/leofalp/scriptgraph/providers/ai"
)

// NewTimeoutMiddleware bounds each provider call with timeout. A shorter
// deadline already on the caller's context wins.
func NewTimeoutMiddleware(timeout time.Duration) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return next(ctx, request)
		}
	}
}
