package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/leofalp/scriptgraph/core/client"
	"github.com/leofalp/scriptgraph/providers/ai"
)

// NewRateLimitMiddleware allows at most requestsPerSecond provider calls per
// second with bursts of up to burst calls. The bucket is shared by every
// goroutine using the client. Waiting respects context cancellation.
// A non-positive requestsPerSecond disables limiting.
func NewRateLimitMiddleware(requestsPerSecond float64, burst int) client.Middleware {
	if requestsPerSecond <= 0 {
		return func(next client.SendFunc) client.SendFunc { return next }
	}
	if burst < 1 {
		burst = 1
	}

	return NewLimiterMiddleware(rate.NewLimiter(rate.Limit(requestsPerSecond), burst))
}

// NewLimiterMiddleware waits on an existing limiter, so several clients can
// share one budget.
func NewLimiterMiddleware(limiter *rate.Limiter) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
			return next(ctx, request)
		}
	}
}
