package graphs

import (
	"fmt"
	"os"

	"golang.org/x/time/rate"

	"github.com/leofalp/scriptgraph/core/client"
	"github.com/leofalp/scriptgraph/core/client/middleware"
	"github.com/leofalp/scriptgraph/providers/ai"
	"github.com/leofalp/scriptgraph/providers/ai/openai"
)

// newProvider returns the configured provider, or builds one from llm.
func newProvider(llm LLMConfig, opts options) (ai.Provider, error) {
	if opts.provider != nil {
		return opts.provider, nil
	}

	switch llm.Provider {
	case "", "openai":
		apiKey := llm.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" && llm.BaseURL == "" {
			return nil, fmt.Errorf("%w: llm.api_key is required", ErrInvalidConfig)
		}

		provider := openai.New().WithDefaultModel(llm.Model).WithHeaders(llm.Headers)
		if apiKey == "" {
			// local OpenAI-compatible servers
			provider = provider.WithoutAuth()
		} else {
			provider.WithAPIKey(apiKey)
		}
		if llm.BaseURL != "" {
			provider.WithBaseURL(llm.BaseURL)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("%w: unknown llm.provider %q", ErrInvalidConfig, llm.Provider)
	}
}

// newRunLimiter returns the limiter shared by the clients of one run, or nil.
func newRunLimiter(llm LLMConfig) *rate.Limiter {
	if llm.RequestsPerSecond <= 0 {
		return nil
	}
	burst := llm.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(llm.RequestsPerSecond), burst)
}

// newClient builds a model client. Retries are added only when retry is set.
func newClient(config Config, opts options, retry bool) (*client.Client, error) {
	provider, err := newProvider(config.LLM, opts)
	if err != nil {
		return nil, err
	}

	chain := make([]client.Middleware, 0, len(opts.middleware)+4)
	if opts.logger != nil {
		level := middleware.LogLevelStandard
		if config.Verbose {
			level = middleware.LogLevelVerbose
		}
		chain = append(chain, middleware.NewLoggingMiddleware(opts.logger, level))
	}
	if retry && config.LLM.MaxRetries > 0 {
		chain = append(chain, middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: config.LLM.MaxRetries}))
	}
	// the limiter sits inside retry so every attempt waits for a token
	if opts.limiter != nil {
		chain = append(chain, middleware.NewLimiterMiddleware(opts.limiter))
	}
	if config.LLM.RequestTimeout > 0 {
		chain = append(chain, middleware.NewTimeoutMiddleware(config.LLM.RequestTimeout))
	}
	chain = append(chain, opts.middleware...)

	clientOptions := []client.Option{
		client.WithDefaultModel(config.LLM.Model),
		client.WithMiddleware(chain...),
	}
	if opts.observer != nil {
		clientOptions = append(clientOptions, client.WithObserver(opts.observer))
	}
	if config.LLM.Temperature > 0 || config.LLM.MaxTokens > 0 {
		clientOptions = append(clientOptions, client.WithGenerationConfig(ai.GenerationConfig{
			Temperature: config.LLM.Temperature,
			MaxTokens:   config.LLM.MaxTokens,
		}))
	}

	return client.New(provider, clientOptions...)
}
