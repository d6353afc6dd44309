package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/leofalp/scriptgraph/core/client"
	"github.com/leofalp/scriptgraph/providers/ai"
)

// scriptedSend fails with errs in order, then succeeds.
func scriptedSend(calls *atomic.Int32, errs ...error) client.SendFunc {
	return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
		n := int(calls.Add(1))
		if n <= len(errs) {
			return nil, errs[n-1]
		}
		return &ai.ChatResponse{Content: "ok", Model: request.Model}, nil
	}
}

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestRetry_SucceedsAfterTransientErrors(t *testing.T) {
	var calls atomic.Int32
	send := NewRetryMiddleware(fastRetry(3))(scriptedSend(&calls,
		errors.New("non-2xx status 429: slow down"),
		errors.New("non-2xx status 503: unavailable"),
	))

	resp, err := send(context.Background(), ai.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	var calls atomic.Int32
	badRequest := errors.New("non-2xx status 400: bad request")
	send := NewRetryMiddleware(fastRetry(3))(scriptedSend(&calls, badRequest))

	_, err := send(context.Background(), ai.ChatRequest{})
	assert.ErrorIs(t, err, badRequest)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetry_Exhausted(t *testing.T) {
	var calls atomic.Int32
	overloaded := errors.New("non-2xx status 529: overloaded")
	send := NewRetryMiddleware(fastRetry(2))(scriptedSend(&calls, overloaded, overloaded, overloaded, overloaded))

	_, err := send(context.Background(), ai.ChatRequest{})
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.ErrorIs(t, err, overloaded)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_ContextCanceledDuringBackoff(t *testing.T) {
	var calls atomic.Int32
	config := RetryConfig{MaxRetries: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour}
	send := NewRetryMiddleware(config)(scriptedSend(&calls, errors.New("status 500")))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := send(ctx, ai.ChatRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())
}

func TestComputeBackoff_Capped(t *testing.T) {
	config := RetryConfig{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, BackoffFactor: 2, JitterFraction: 0.1}

	assert.GreaterOrEqual(t, computeBackoff(config, 0), time.Second)
	assert.Less(t, computeBackoff(config, 0), 1100*time.Millisecond+time.Nanosecond)
	assert.LessOrEqual(t, computeBackoff(config, 10), 3300*time.Millisecond)
}

func TestTimeout_AppliesDeadline(t *testing.T) {
	send := NewTimeoutMiddleware(5 * time.Millisecond)(func(ctx context.Context, _ ai.ChatRequest) (*ai.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := send(context.Background(), ai.ChatRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimit_Disabled(t *testing.T) {
	var calls atomic.Int32
	send := NewRateLimitMiddleware(0, 0)(scriptedSend(&calls))

	for range 20 {
		_, err := send(context.Background(), ai.ChatRequest{})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(20), calls.Load())
}

func TestRateLimit_WaitHonoursContext(t *testing.T) {
	var calls atomic.Int32
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	send := NewLimiterMiddleware(limiter)(scriptedSend(&calls))

	_, err := send(context.Background(), ai.ChatRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = send(ctx, ai.ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
	assert.Equal(t, int32(1), calls.Load())
}

func TestLogging_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var calls atomic.Int32
	send := NewLoggingMiddleware(logger, LogLevelVerbose)(scriptedSend(&calls))

	_, err := send(context.Background(), ai.ChatRequest{
		Model:    "m",
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "find prices"}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "llm send completed")
	assert.Contains(t, out, "prompt=\"find prices\"")
	assert.Contains(t, out, "content=ok")
}

func TestLogging_Failure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var calls atomic.Int32
	send := NewLoggingMiddleware(logger, LogLevelMinimal)(scriptedSend(&calls, errors.New("boom")))

	_, err := send(context.Background(), ai.ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "llm send failed")
	assert.Contains(t, buf.String(), "error=boom")
}
