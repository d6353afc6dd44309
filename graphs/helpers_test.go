package graphs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/leofalp/scriptgraph/providers/ai"
)

var (
	titlePattern  = regexp.MustCompile(`PAGE TITLE: (.*)`)
	scrapePattern = regexp.MustCompile(`scrape\("[^"]*"\)`)
)

// stubModel writes scrape("<page title>") for every page and merges by
// concatenating the scrape calls it is shown, in order.
type stubModel struct {
	mu         sync.Mutex
	requests   []ai.ChatRequest
	mergeError error
}

var _ ai.Provider = (*stubModel)(nil)

func (model *stubModel) SendMessage(_ context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	model.mu.Lock()
	model.requests = append(model.requests, request)
	model.mu.Unlock()

	content := request.Messages[len(request.Messages)-1].Content
	usage := &ai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}

	if isMerge(request) {
		if model.mergeError != nil {
			return nil, model.mergeError
		}
		merged := strings.Join(scrapePattern.FindAllString(content, -1), "\n")
		return &ai.ChatResponse{Content: "```python\n" + merged + "\n```", Model: "stub", Usage: usage}, nil
	}

	title := "untitled"
	if match := titlePattern.FindStringSubmatch(content); match != nil {
		title = strings.TrimSpace(match[1])
	}
	return &ai.ChatResponse{Content: fmt.Sprintf("```python\nscrape(%q)\n```", title), Model: "stub", Usage: usage}, nil
}

func (model *stubModel) WithAPIKey(_ string) ai.Provider           { return model }
func (model *stubModel) WithBaseURL(_ string) ai.Provider          { return model }
func (model *stubModel) WithHttpClient(_ *http.Client) ai.Provider { return model }

func (model *stubModel) calls() (generate, merge []ai.ChatRequest) {
	model.mu.Lock()
	defer model.mu.Unlock()
	for _, request := range model.requests {
		if isMerge(request) {
			merge = append(merge, request)
		} else {
			generate = append(generate, request)
		}
	}
	return generate, merge
}

func isMerge(request ai.ChatRequest) bool {
	return strings.Contains(request.SystemPrompt, "merge")
}

// newSite serves /alpha and /beta pricing pages and fails /broken.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/alpha", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Alpha</title></head><body><p>Basic 10 EUR</p></body></html>`))
	})
	mux.HandleFunc("/beta", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Beta</title></head><body><p>Pro 20 EUR</p></body></html>`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig() Config {
	config := DefaultConfig()
	config.LLM.Model = "stub"
	return config
}
