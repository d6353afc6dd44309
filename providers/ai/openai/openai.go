package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/leofalp/scriptgraph/internal/utils"
	"github.com/leofalp/scriptgraph/providers/ai"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	chatCompletionsEndpoint = "/chat/completions"
)

// ErrMissingAPIKey is returned by SendMessage when no API key is configured.
var ErrMissingAPIKey = errors.New("openai: API key is not set")

// OpenAIProvider implements ai.Provider for the chat completions API.
type OpenAIProvider struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	headers      map[string]string
	allowNoAuth  bool
	defaultModel string
}

var _ ai.Provider = (*OpenAIProvider)(nil)

// New creates a provider configured from OPENAI_API_KEY and
// OPENAI_API_BASE_URL, falling back to the public OpenAI endpoint.
func New() *OpenAIProvider {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &OpenAIProvider{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
		headers: map[string]string{},
	}
}

// WithAPIKey sets the API key for the provider
func (p *OpenAIProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API
func (p *OpenAIProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

// WithHttpClient sets a custom HTTP client
func (p *OpenAIProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// WithHeaders adds extra request headers, e.g. OpenRouter's HTTP-Referer.
func (p *OpenAIProvider) WithHeaders(headers map[string]string) *OpenAIProvider {
	for key, value := range headers {
		p.headers[key] = value
	}
	return p
}

// WithoutAuth lets requests go out without an API key, for local servers
// such as Ollama that ignore authentication.
func (p *OpenAIProvider) WithoutAuth() *OpenAIProvider {
	p.allowNoAuth = true
	return p
}

// WithDefaultModel sets the model used when a request does not name one.
func (p *OpenAIProvider) WithDefaultModel(model string) *OpenAIProvider {
	p.defaultModel = model
	return p
}

// SendMessage implements the Provider interface
func (p *OpenAIProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if p.apiKey == "" && !p.allowNoAuth {
		return nil, ErrMissingAPIKey
	}

	if request.Model == "" {
		request.Model = p.defaultModel
	}
	if request.Model == "" {
		return nil, errors.New("openai: model is not set")
	}

	_, resp, err := utils.DoPostSync[chatCompletionResponse](ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, p.headers, requestToChatCompletion(request))
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: no choices in response")
	}

	return chatCompletionToGeneric(*resp), nil
}
