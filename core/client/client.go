package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/leofalp/scriptgraph/core/overview"
	"github.com/leofalp/scriptgraph/providers/ai"
	"github.com/leofalp/scriptgraph/providers/observability"
)

// ErrNilProvider is returned by New when no provider is given.
var ErrNilProvider = errors.New("client: provider must not be nil")

// Client sends single-turn prompts to a model through a middleware chain.
type Client struct {
	provider         ai.Provider
	defaultModel     string
	systemPrompt     string
	generationConfig *ai.GenerationConfig
	responseFormat   *ai.ResponseFormat
	observer         observability.Provider
	middlewares      []Middleware

	send SendFunc
}

// Option configures a Client.
type Option func(*Client)

// WithDefaultModel sets the model used by every request.
func WithDefaultModel(model string) Option {
	return func(c *Client) {
		c.defaultModel = model
	}
}

// WithSystemPrompt sets the system prompt sent with every request.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) {
		c.systemPrompt = prompt
	}
}

// WithGenerationConfig sets temperature, token limit and seed.
func WithGenerationConfig(cfg ai.GenerationConfig) Option {
	return func(c *Client) {
		c.generationConfig = &cfg
	}
}

// WithResponseFormat asks the provider for structured output.
func WithResponseFormat(format *ai.ResponseFormat) Option {
	return func(c *Client) {
		c.responseFormat = format
	}
}

// WithObserver enables tracing, metrics and logging for every request. The
// observability middleware is installed as the outermost wrapper.
func WithObserver(observer observability.Provider) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithMiddleware appends middlewares to the chain, outermost first.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, middlewares...)
	}
}

// New builds a Client around provider.
func New(provider ai.Provider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}

	c := &Client{provider: provider}
	for _, opt := range opts {
		opt(c)
	}

	for i, middleware := range c.middlewares {
		if middleware == nil {
			return nil, fmt.Errorf("client: middleware at index %d is nil", i)
		}
	}

	chain := c.middlewares
	if c.observer != nil {
		chain = append([]Middleware{NewObservabilityMiddleware(c.observer, c.defaultModel)}, chain...)
	}
	c.send = buildSendChain(provider, chain)

	return c, nil
}

// Observer returns the observability provider, or nil.
func (c *Client) Observer() observability.Provider {
	return c.observer
}

// Model returns the default model.
func (c *Client) Model() string {
	return c.defaultModel
}

// SendMessage sends prompt as a single user message and returns the reply.
func (c *Client) SendMessage(ctx context.Context, prompt string) (*ai.ChatResponse, error) {
	return c.Send(ctx, ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: prompt}},
	})
}

// Send fills in the client defaults that request leaves empty and sends it
// through the middleware chain.
func (c *Client) Send(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if request.Model == "" {
		request.Model = c.defaultModel
	}
	if request.SystemPrompt == "" {
		request.SystemPrompt = c.systemPrompt
	}
	if request.GenerationConfig == nil && c.generationConfig != nil {
		cfg := *c.generationConfig
		request.GenerationConfig = &cfg
	}
	if request.ResponseFormat == nil {
		request.ResponseFormat = c.responseFormat
	}

	response, err := c.send(ctx, request)

	if runOverview, ok := overview.Lookup(ctx); ok {
		runOverview.RecordRequest(err)
		if err == nil {
			runOverview.IncludeUsage(effectiveModel(response.Model, request.Model), response.Usage)
		}
	}

	if err != nil {
		return nil, err
	}
	return response, nil
}

func effectiveModel(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}
