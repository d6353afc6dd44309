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

// DefaultLibrary is the scraping library generated scripts use by default.
const DefaultLibrary = "goquery"

// GenerateScraper asks the model for a script that answers the user prompt
// on the upstream [Document]. Its output is the script with code fences
// removed. A blank reply fails with [ErrEmptyScript].
type GenerateScraper struct {
	Library string
	Schema  *jsonschema.Schema
}

var _ graph.NodeExecutor = (*GenerateScraper)(nil)

// Execute implements graph.NodeExecutor.
func (generator *GenerateScraper) Execute(ctx context.Context, input *graph.NodeInput) (*graph.NodeResult, error) {
	if input.Client == nil {
		return nil, ErrNoClient
	}

	prompt, err := stringInput(ctx, input, KeyUserPrompt)
	if err != nil {
		return nil, err
	}
	document, ok := upstreamOutput[*Document](input)
	if !ok {
		return nil, fmt.Errorf("%w: parsed document", ErrMissingInput)
	}

	library := generator.Library
	if library == "" {
		library = DefaultLibrary
	}

	response, err := input.Client.Send(ctx, ai.ChatRequest{
		SystemPrompt: generateSystemPrompt,
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: buildGeneratePrompt(prompt, library, document, generator.Schema)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generate script for %s: %w", document.URL, err)
	}

	script := parse.ExtractScript(response.Content)
	if strings.TrimSpace(script) == "" {
		return nil, fmt.Errorf("generate script for %s: %w", document.URL, ErrEmptyScript)
	}

	if observer := observerFor(ctx, input); observer != nil {
		observer.Debug(ctx, "Script generated",
			observability.String(observability.AttrSourceURL, document.URL),
			observability.Int(observability.AttrScriptLength, len(script)),
		)
	}

	return &graph.NodeResult{Output: script}, nil
}
