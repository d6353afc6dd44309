// Package middleware provides the built-in [client.Middleware] values:
//
//   - [NewRetryMiddleware] retries transient provider errors with exponential
//     backoff and jitter.
//   - [NewTimeoutMiddleware] bounds every provider call with a deadline.
//   - [NewRateLimitMiddleware] shares a token bucket between every caller of
//     one client, which keeps a wide fan-out under the provider's quota.
//   - [NewLoggingMiddleware] writes slog entries around each call.
//
// Middlewares run outermost first:
//
//	c, err := client.New(provider,
//	    client.WithMiddleware(
//	        middleware.NewRateLimitMiddleware(2, 1),
//	        middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: 2}),
//	        middleware.NewTimeoutMiddleware(60*time.Second),
//	    ),
//	)
package middleware
