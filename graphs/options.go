package graphs

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/leofalp/scriptgraph/core/client"
	"github.com/leofalp/scriptgraph/providers/ai"
	"github.com/leofalp/scriptgraph/providers/observability"
)

// Option customizes a script creator graph.
type Option func(*options)

type options struct {
	provider   ai.Provider
	observer   observability.Provider
	logger     *slog.Logger
	httpClient *http.Client
	middleware []client.Middleware

	// limiter is shared by every client of one run
	limiter *rate.Limiter
}

// WithProvider replaces the provider built from [LLMConfig].
func WithProvider(provider ai.Provider) Option {
	return func(opts *options) {
		opts.provider = provider
	}
}

// WithObserver reports spans, metrics and logs of every graph, node and
// model call to observer.
func WithObserver(observer observability.Provider) Option {
	return func(opts *options) {
		opts.observer = observer
	}
}

// WithLogger logs every model call. Config.Verbose adds request and
// response content.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithHTTPClient is used for page downloads.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(opts *options) {
		opts.httpClient = httpClient
	}
}

// WithMiddleware appends middleware to every model client.
func WithMiddleware(middleware ...client.Middleware) Option {
	return func(opts *options) {
		opts.middleware = append(opts.middleware, middleware...)
	}
}

func buildOptions(opts []Option) options {
	var built options
	for _, opt := range opts {
		opt(&built)
	}
	return built
}
