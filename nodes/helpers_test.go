package nodes

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leofalp/scriptgraph/core/client"
	"github.com/leofalp/scriptgraph/patterns/graph"
	"github.com/leofalp/scriptgraph/providers/ai"
)

// scriptedProvider answers with reply and records every request.
type scriptedProvider struct {
	mu       sync.Mutex
	requests []ai.ChatRequest
	reply    func(request ai.ChatRequest) (*ai.ChatResponse, error)
}

var _ ai.Provider = (*scriptedProvider)(nil)

func (provider *scriptedProvider) SendMessage(_ context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	provider.mu.Lock()
	provider.requests = append(provider.requests, request)
	provider.mu.Unlock()
	return provider.reply(request)
}

func (provider *scriptedProvider) WithAPIKey(_ string) ai.Provider           { return provider }
func (provider *scriptedProvider) WithBaseURL(_ string) ai.Provider          { return provider }
func (provider *scriptedProvider) WithHttpClient(_ *http.Client) ai.Provider { return provider }

func (provider *scriptedProvider) calls() []ai.ChatRequest {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	return append([]ai.ChatRequest(nil), provider.requests...)
}

func replyWith(content string) func(ai.ChatRequest) (*ai.ChatResponse, error) {
	return func(ai.ChatRequest) (*ai.ChatResponse, error) {
		return &ai.ChatResponse{Content: content, Model: "stub"}, nil
	}
}

func newClient(t *testing.T, provider ai.Provider) *client.Client {
	t.Helper()
	testClient, err := client.New(provider, client.WithDefaultModel("stub"))
	require.NoError(t, err)
	return testClient
}

func nodeInput(state map[string]any, upstream any, testClient *client.Client) *graph.NodeInput {
	input := &graph.NodeInput{
		UpstreamResults: map[string]*graph.NodeResult{},
		SharedState:     graph.NewInMemoryStateProvider(state),
		Client:          testClient,
	}
	if upstream != nil {
		input.UpstreamResults["upstream"] = &graph.NodeResult{Output: upstream}
	}
	return input
}

func userMessage(request ai.ChatRequest) string {
	for _, message := range request.Messages {
		if message.Role == ai.RoleUser {
			return message.Content
		}
	}
	return ""
}
