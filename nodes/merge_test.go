package nodes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/scriptgraph/providers/ai"
)

func twoScripts() *Iteration {
	return &Iteration{
		Prompt: "List all prices",
		Scripts: []SourceScript{
			{URL: "https://a.example/pricing", Index: 0, Script: "scrape_a()"},
			{URL: "https://b.example/pricing", Index: 1, Script: "scrape_b()"},
		},
	}
}

func TestMerge_CombinesScriptsInOrder(t *testing.T) {
	provider := &scriptedProvider{reply: replyWith("```python\nscrape_a()\nscrape_b()\n```")}

	result, err := (&MergeGeneratedScripts{}).Execute(context.Background(), nodeInput(nil, twoScripts(), newClient(t, provider)))
	require.NoError(t, err)

	merged, ok := result.Output.(*Merged)
	require.True(t, ok)
	assert.Equal(t, "scrape_a()\nscrape_b()", merged.Script)
	assert.NoError(t, merged.Err)
	assert.Len(t, merged.Scripts, 2)

	calls := provider.calls()
	require.Len(t, calls, 1)
	prompt := userMessage(calls[0])
	assert.Contains(t, prompt, "List all prices")
	first := strings.Index(prompt, "https://a.example/pricing")
	second := strings.Index(prompt, "https://b.example/pricing")
	assert.True(t, first >= 0 && second > first, "scripts must appear in source order")
	assert.Contains(t, prompt, "scrape_a()")
	assert.Contains(t, prompt, "scrape_b()")
}

func TestMerge_UnwrapsJSONEnvelope(t *testing.T) {
	provider := &scriptedProvider{reply: replyWith(`{"script": "scrape_a()\nscrape_b()"}`)}

	result, err := (&MergeGeneratedScripts{}).Execute(context.Background(), nodeInput(nil, twoScripts(), newClient(t, provider)))
	require.NoError(t, err)

	merged := result.Output.(*Merged)
	assert.Equal(t, "scrape_a()\nscrape_b()", merged.Script)
	assert.NoError(t, merged.Err)
}

func TestMerge_IsDeterministicForSameInput(t *testing.T) {
	provider := &scriptedProvider{reply: func(request ai.ChatRequest) (*ai.ChatResponse, error) {
		return &ai.ChatResponse{Content: "merged:" + userMessage(request)}, nil
	}}
	testClient := newClient(t, provider)

	first, err := (&MergeGeneratedScripts{}).Execute(context.Background(), nodeInput(nil, twoScripts(), testClient))
	require.NoError(t, err)
	second, err := (&MergeGeneratedScripts{}).Execute(context.Background(), nodeInput(nil, twoScripts(), testClient))
	require.NoError(t, err)

	assert.Equal(t, first.Output.(*Merged).Script, second.Output.(*Merged).Script)
}

func TestMerge_EmptyScriptsSkipModel(t *testing.T) {
	provider := &scriptedProvider{reply: replyWith("unused")}
	failure := &SourceFailure{URL: "u", Index: 0, Err: errors.New("down")}
	iteration := &Iteration{Prompt: "p", Scripts: []SourceScript{}, Failures: []*SourceFailure{failure}}

	result, err := (&MergeGeneratedScripts{}).Execute(context.Background(), nodeInput(nil, iteration, newClient(t, provider)))
	require.NoError(t, err)

	merged := result.Output.(*Merged)
	assert.Equal(t, FailedScript, merged.Script)
	assert.Equal(t, []*SourceFailure{failure}, merged.Failures)
	assert.Empty(t, provider.calls())

	// no client is needed when there is nothing to merge
	result, err = (&MergeGeneratedScripts{}).Execute(context.Background(), nodeInput(nil, iteration, nil))
	require.NoError(t, err)
	assert.Equal(t, FailedScript, result.Output.(*Merged).Script)
}

func TestMerge_ModelFailureYieldsSentinel(t *testing.T) {
	modelErr := errors.New("rate limited")
	provider := &scriptedProvider{reply: func(ai.ChatRequest) (*ai.ChatResponse, error) { return nil, modelErr }}

	result, err := (&MergeGeneratedScripts{}).Execute(context.Background(), nodeInput(nil, twoScripts(), newClient(t, provider)))
	require.NoError(t, err)

	merged := result.Output.(*Merged)
	assert.Equal(t, FailedScript, merged.Script)
	assert.ErrorIs(t, merged.Err, modelErr)
	assert.Contains(t, result.Metadata[MetaError], "rate limited")
	assert.Len(t, provider.calls(), 1, "merge is not retried")
}

func TestMerge_BlankReplyYieldsSentinel(t *testing.T) {
	provider := &scriptedProvider{reply: replyWith("   ")}

	result, err := (&MergeGeneratedScripts{}).Execute(context.Background(), nodeInput(nil, twoScripts(), newClient(t, provider)))
	require.NoError(t, err)

	merged := result.Output.(*Merged)
	assert.Equal(t, FailedScript, merged.Script)
	assert.ErrorIs(t, merged.Err, ErrEmptyScript)
}

func TestMerge_PromptFromStateAndMissingInput(t *testing.T) {
	provider := &scriptedProvider{reply: replyWith("ok()")}
	iteration := twoScripts()
	iteration.Prompt = ""

	_, err := (&MergeGeneratedScripts{}).Execute(context.Background(), nodeInput(map[string]any{KeyUserPrompt: "from state"}, iteration, newClient(t, provider)))
	require.NoError(t, err)
	assert.Contains(t, userMessage(provider.calls()[0]), "from state")

	_, err = (&MergeGeneratedScripts{}).Execute(context.Background(), nodeInput(nil, nil, newClient(t, provider)))
	assert.ErrorIs(t, err, ErrMissingInput)
}
