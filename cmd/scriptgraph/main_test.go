package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/scriptgraph/graphs"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/pricing", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Pricing</title></head><body><p>Pro 20 EUR</p></body></html>`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newModelServer(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"local",
			"choices":[{"index":0,"message":{"role":"assistant","content":"` + "```go\\nscrape()\\n```" + `"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SCRIPTGRAPH_LOG_LEVEL", "error")
}

func TestRun_PrintsMergedScript(t *testing.T) {
	isolate(t)
	site := newSite(t)
	var requests atomic.Int32
	model := newModelServer(t, &requests)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--prompt", "plan prices",
		"--source", site.URL + "/pricing",
		"--source", site.URL + "/pricing",
		"--model", "local",
		"--base-url", model.URL,
		"--log-format", "json",
	}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Equal(t, "scrape()\n", stdout.String())
	assert.EqualValues(t, 3, requests.Load())
}

func TestRun_AllSourcesFail(t *testing.T) {
	isolate(t)
	site := newSite(t)
	var requests atomic.Int32
	model := newModelServer(t, &requests)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-p", "plan prices",
		"-s", site.URL + "/broken",
		"--model", "local",
		"--base-url", model.URL,
	}, &stdout, &stderr)

	require.ErrorIs(t, err, errNoScript)
	assert.Equal(t, graphs.FailedScript+"\n", stdout.String())
	assert.Contains(t, stderr.String(), "source 0 failed: "+site.URL+"/broken")
	assert.Zero(t, requests.Load())
}

func TestRun_MissingPrompt(t *testing.T) {
	isolate(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--model", "local", "--base-url", "http://127.0.0.1:1"}, &stdout, &stderr)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--prompt")
	assert.Empty(t, stdout.String())
}

func TestRun_InvalidFailurePolicy(t *testing.T) {
	isolate(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--prompt", "plan prices",
		"--source", "https://example.com",
		"--model", "local",
		"--base-url", "http://127.0.0.1:1",
		"--failure-policy", "sometimes",
	}, &stdout, &stderr)

	require.ErrorIs(t, err, graphs.ErrInvalidConfig)
	assert.Empty(t, stdout.String())
}

func TestRun_UnknownFlag(t *testing.T) {
	isolate(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"--nope"}, &stdout, &stderr)

	require.Error(t, err)
	assert.Contains(t, stderr.String(), "unknown flag")
}

func TestZerologLevel(t *testing.T) {
	assert.Equal(t, "trace", zerologLevel(-8))
	assert.Equal(t, "debug", zerologLevel(-4))
	assert.Equal(t, "info", zerologLevel(0))
	assert.Equal(t, "warn", zerologLevel(4))
	assert.Equal(t, "error", zerologLevel(8))
}
