package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/leofalp/scriptgraph/core/parse"
	"github.com/leofalp/scriptgraph/patterns/graph"
	"github.com/leofalp/scriptgraph/providers/ai"
	"github.com/leofalp/scriptgraph/providers/observability"
)

// Merged is the output of [MergeGeneratedScripts]. Scripts and Failures are
// carried over from the upstream [Iteration].
type Merged struct {
	Script   string
	Scripts  []SourceScript
	Failures []*SourceFailure
	// Err is the reason Script is [FailedScript], if a model call was made.
	Err error
}

// MergeGeneratedScripts combines the upstream scripts with a single model
// call. With no scripts it yields [FailedScript] without calling the model.
// A model error or blank reply also yields FailedScript; the cause goes to
// the result metadata, never to the graph. The call is not retried.
type MergeGeneratedScripts struct {
	Schema *jsonschema.Schema
}

var _ graph.NodeExecutor = (*MergeGeneratedScripts)(nil)

// Execute implements graph.NodeExecutor.
func (merger *MergeGeneratedScripts) Execute(ctx context.Context, input *graph.NodeInput) (*graph.NodeResult, error) {
	iteration, ok := upstreamOutput[*Iteration](input)
	if !ok {
		return nil, fmt.Errorf("%w: generated scripts", ErrMissingInput)
	}

	prompt := iteration.Prompt
	if prompt == "" {
		var err error
		if prompt, err = stringInput(ctx, input, KeyUserPrompt); err != nil {
			return nil, err
		}
	}

	merged := &Merged{
		Script:   FailedScript,
		Scripts:  iteration.Scripts,
		Failures: iteration.Failures,
	}
	result := &graph.NodeResult{
		Output:   merged,
		Metadata: map[string]any{MetaScriptCount: len(iteration.Scripts)},
	}

	if len(iteration.Scripts) == 0 {
		return result, nil
	}
	if input.Client == nil {
		return nil, ErrNoClient
	}

	script, err := merger.merge(ctx, input, prompt, iteration.Scripts)
	if err != nil {
		merged.Err = err
		result.Metadata[MetaError] = err.Error()
		if observer := observerFor(ctx, input); observer != nil {
			observer.Warn(ctx, "Script merge failed", observability.Error(err))
		}
		return result, nil
	}

	merged.Script = script
	return result, nil
}

func (merger *MergeGeneratedScripts) merge(ctx context.Context, input *graph.NodeInput, prompt string, scripts []SourceScript) (string, error) {
	observer := observerFor(ctx, input)

	var span observability.Span
	if observer != nil {
		ctx, span = observer.StartSpan(ctx, observability.SpanMergeScripts,
			observability.Int(observability.AttrScriptCount, len(scripts)),
		)
		defer span.End()
	}

	response, err := input.Client.Send(ctx, ai.ChatRequest{
		SystemPrompt: mergeSystemPrompt,
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: buildMergePrompt(prompt, scripts, merger.Schema)},
		},
	})
	if err == nil {
		if script := parse.ExtractScript(response.Content); strings.TrimSpace(script) != "" {
			if span != nil {
				span.SetStatus(observability.StatusOK, "")
			}
			return script, nil
		}
		err = ErrEmptyScript
	}

	if span != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, err.Error())
	}
	return "", fmt.Errorf("merge scripts: %w", err)
}
