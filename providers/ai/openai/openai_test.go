package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/scriptgraph/providers/ai"
)

func TestSendMessage_Success(t *testing.T) {
	var received chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "scriptgraph", r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "package main"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15, "prompt_tokens_details": {"cached_tokens": 2}}
		}`))
	}))
	defer server.Close()

	provider := New().WithHeaders(map[string]string{"X-Title": "scriptgraph"})
	provider.WithAPIKey("test-key").WithBaseURL(server.URL + "/")

	resp, err := provider.SendMessage(context.Background(), ai.ChatRequest{
		Model:        "gpt-4o-mini",
		SystemPrompt: "You write scrapers.",
		Messages:     []ai.Message{{Role: ai.RoleUser, Content: "scrape prices"}},
		GenerationConfig: &ai.GenerationConfig{
			Temperature: 0.5,
			MaxTokens:   256,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-1", resp.Id)
	assert.Equal(t, "package main", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.Equal(t, 2, resp.Usage.CachedTokens)

	require.Len(t, received.Messages, 2)
	assert.Equal(t, "system", received.Messages[0].Role)
	assert.Equal(t, "You write scrapers.", received.Messages[0].Content)
	assert.Equal(t, "user", received.Messages[1].Role)
	require.NotNil(t, received.Temperature)
	assert.InDelta(t, 0.5, *received.Temperature, 0.0001)
	require.NotNil(t, received.MaxTokens)
	assert.Equal(t, 256, *received.MaxTokens)
	assert.Nil(t, received.ResponseFormat)
}

func TestSendMessage_MissingAPIKey(t *testing.T) {
	provider := New()
	provider.WithAPIKey("")

	_, err := provider.SendMessage(context.Background(), ai.ChatRequest{Model: "m"})
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
}

func TestSendMessage_WithoutAuthUsesDefaultModel(t *testing.T) {
	var received chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"id":"x","model":"llama3","choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	provider := New().WithoutAuth().WithDefaultModel("llama3")
	provider.WithAPIKey("").WithBaseURL(server.URL)

	resp, err := provider.SendMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Nil(t, resp.Usage)
	assert.Equal(t, "llama3", received.Model)
}

func TestSendMessage_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	provider := New()
	provider.WithAPIKey("k").WithBaseURL(server.URL)

	_, err := provider.SendMessage(context.Background(), ai.ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSendMessage_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer server.Close()

	provider := New()
	provider.WithAPIKey("k").WithBaseURL(server.URL)

	_, err := provider.SendMessage(context.Background(), ai.ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestRequestToChatCompletion_ResponseFormat(t *testing.T) {
	schema := &jsonschema.Schema{Type: "object"}

	withSchema := requestToChatCompletion(ai.ChatRequest{
		Model:          "m",
		ResponseFormat: &ai.ResponseFormat{OutputSchema: schema, Strict: true},
	})
	require.NotNil(t, withSchema.ResponseFormat)
	assert.Equal(t, "json_schema", withSchema.ResponseFormat.Type)
	assert.Same(t, schema, withSchema.ResponseFormat.JSONSchema.Schema)
	assert.True(t, withSchema.ResponseFormat.JSONSchema.Strict)

	jsonMode := requestToChatCompletion(ai.ChatRequest{
		Model:          "m",
		ResponseFormat: &ai.ResponseFormat{Type: "json_object"},
	})
	require.NotNil(t, jsonMode.ResponseFormat)
	assert.Equal(t, "json_object", jsonMode.ResponseFormat.Type)
	assert.Nil(t, jsonMode.ResponseFormat.JSONSchema)
}
