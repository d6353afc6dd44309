package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/scriptgraph/core/overview"
	"github.com/leofalp/scriptgraph/providers/ai"
	"github.com/leofalp/scriptgraph/providers/observability"
	slogobs "github.com/leofalp/scriptgraph/providers/observability/slog"
)

// recordingProvider returns a fixed reply and remembers every request.
type recordingProvider struct {
	mu       sync.Mutex
	requests []ai.ChatRequest
	response *ai.ChatResponse
	err      error
}

func (p *recordingProvider) SendMessage(_ context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, request)
	if p.err != nil {
		return nil, p.err
	}
	return p.response, nil
}

func (p *recordingProvider) WithAPIKey(string) ai.Provider             { return p }
func (p *recordingProvider) WithBaseURL(string) ai.Provider            { return p }
func (p *recordingProvider) WithHttpClient(*http.Client) ai.Provider  { return p }

func TestNew_NilProvider(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilProvider)
}

func TestNew_NilMiddleware(t *testing.T) {
	_, err := New(&recordingProvider{}, WithMiddleware(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 0")
}

func TestSendMessage_AppliesDefaults(t *testing.T) {
	provider := &recordingProvider{response: &ai.ChatResponse{Content: "ok"}}
	c, err := New(provider,
		WithDefaultModel("gpt-4o-mini"),
		WithSystemPrompt("You write scrapers."),
		WithGenerationConfig(ai.GenerationConfig{Temperature: 0.2, MaxTokens: 100}),
	)
	require.NoError(t, err)

	resp, err := c.SendMessage(context.Background(), "scrape titles")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)

	require.Len(t, provider.requests, 1)
	sent := provider.requests[0]
	assert.Equal(t, "gpt-4o-mini", sent.Model)
	assert.Equal(t, "You write scrapers.", sent.SystemPrompt)
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, ai.RoleUser, sent.Messages[0].Role)
	assert.Equal(t, "scrape titles", sent.Messages[0].Content)
	require.NotNil(t, sent.GenerationConfig)
	assert.Equal(t, 100, sent.GenerationConfig.MaxTokens)
	assert.Equal(t, "gpt-4o-mini", c.Model())
}

func TestSend_RequestOverridesDefaults(t *testing.T) {
	provider := &recordingProvider{response: &ai.ChatResponse{Content: "ok"}}
	c, err := New(provider, WithDefaultModel("default"), WithSystemPrompt("default prompt"))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), ai.ChatRequest{Model: "custom", SystemPrompt: "custom prompt"})
	require.NoError(t, err)

	assert.Equal(t, "custom", provider.requests[0].Model)
	assert.Equal(t, "custom prompt", provider.requests[0].SystemPrompt)
}

func TestSendMessage_RecordsIntoOverview(t *testing.T) {
	provider := &recordingProvider{response: &ai.ChatResponse{
		Model: "gpt-4o",
		Usage: &ai.Usage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10},
	}}
	c, err := New(provider)
	require.NoError(t, err)

	runOverview := overview.New()
	ctx := runOverview.ToContext(context.Background())

	_, err = c.SendMessage(ctx, "one")
	require.NoError(t, err)
	_, err = c.SendMessage(ctx, "two")
	require.NoError(t, err)

	summary := runOverview.Summary()
	assert.Equal(t, 2, summary.Requests)
	assert.Equal(t, 20, summary.TotalUsage.TotalTokens)
	assert.Equal(t, 20, summary.TokensByModel["gpt-4o"])
}

func TestSendMessage_ErrorIsCountedAndReturned(t *testing.T) {
	boom := errors.New("boom")
	c, err := New(&recordingProvider{err: boom})
	require.NoError(t, err)

	runOverview := overview.New()
	_, err = c.SendMessage(runOverview.ToContext(context.Background()), "x")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, runOverview.Summary().FailedRequests)
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next SendFunc) SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				order = append(order, name+":in")
				resp, err := next(ctx, request)
				order = append(order, name+":out")
				return resp, err
			}
		}
	}

	c, err := New(&recordingProvider{response: &ai.ChatResponse{}}, WithMiddleware(tag("a"), tag("b")))
	require.NoError(t, err)

	_, err = c.SendMessage(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"a:in", "b:in", "b:out", "a:out"}, order)
}

func TestWithObserver_RecordsMetrics(t *testing.T) {
	observer := slogobs.New(slogobs.NewLogger(io.Discard, "text", slogobs.LevelTrace))

	var sawSpan bool
	probe := func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			sawSpan = observability.SpanFromContext(ctx) != nil
			return next(ctx, request)
		}
	}

	c, err := New(&recordingProvider{response: &ai.ChatResponse{Usage: &ai.Usage{TotalTokens: 42}}},
		WithObserver(observer),
		WithDefaultModel("m"),
		WithMiddleware(probe),
	)
	require.NoError(t, err)
	assert.Same(t, observer, c.Observer())

	_, err = c.SendMessage(context.Background(), "x")
	require.NoError(t, err)

	assert.True(t, sawSpan, "observability middleware must be outermost and inject the span")
	assert.Equal(t, int64(1), observer.CounterValue(observability.MetricClientRequestCount))
	assert.Equal(t, int64(42), observer.CounterValue(observability.MetricClientTokensTotal))
}
