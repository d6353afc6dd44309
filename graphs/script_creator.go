package graphs

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/leofalp/scriptgraph/nodes"
	"github.com/leofalp/scriptgraph/patterns/graph"
)

const (
	nodeFetch    = "fetch"
	nodeParse    = "parse"
	nodeGenerate = "generate_scraper"
)

// ScriptCreatorGraph generates a scraping script for a single URL.
type ScriptCreatorGraph struct {
	prompt string
	source string
	config Config
	schema *jsonschema.Schema
	opts   options
}

var _ nodes.Runner = (*ScriptCreatorGraph)(nil)

// NewScriptCreatorGraph validates and copies config and schema.
func NewScriptCreatorGraph(prompt, source string, config Config, schema *jsonschema.Schema, opts ...Option) (*ScriptCreatorGraph, error) {
	return newScriptCreatorGraph(prompt, source, config, schema, buildOptions(opts))
}

func newScriptCreatorGraph(prompt, source string, config Config, schema *jsonschema.Schema, opts options) (*ScriptCreatorGraph, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: source is required", ErrInvalidConfig)
	}
	if _, err := newProvider(config.LLM, opts); err != nil {
		return nil, err
	}

	schemaCopy, err := cloneSchema(schema)
	if err != nil {
		return nil, err
	}

	return &ScriptCreatorGraph{
		prompt: prompt,
		source: source,
		config: config.Clone(),
		schema: schemaCopy,
		opts:   opts,
	}, nil
}

// Run fetches the page, cleans it and asks the model for a script.
func (creator *ScriptCreatorGraph) Run(ctx context.Context) (string, error) {
	executionGraph, err := creator.build()
	if err != nil {
		return "", err
	}

	result, err := executionGraph.Execute(ctx, map[string]any{
		nodes.KeyUserPrompt: creator.prompt,
		nodes.KeyURL:        creator.source,
	})
	if err != nil {
		return "", fmt.Errorf("script creator graph: %w", err)
	}
	return *result.Data, nil
}

// build assembles fetch -> parse -> generate_scraper from a fresh copy of
// the configuration.
func (creator *ScriptCreatorGraph) build() (*graph.Graph[string], error) {
	config := creator.config.Clone()
	schema, err := cloneSchema(creator.schema)
	if err != nil {
		return nil, err
	}

	modelClient, err := newClient(config, creator.opts, true)
	if err != nil {
		return nil, fmt.Errorf("build model client: %w", err)
	}

	executionGraph, err := graph.NewGraphBuilder[string](modelClient, graph.WithOutputNode(nodeGenerate)).
		AddNode(nodeFetch, &nodes.Fetch{
			Timeout:      config.Fetch.Timeout,
			UserAgent:    config.Fetch.UserAgent,
			MaxBodyBytes: config.Fetch.MaxBodyBytes,
			Headers:      config.Fetch.Headers,
			HTTPClient:   creator.opts.httpClient,
		}).
		AddNode(nodeParse, &nodes.Parse{
			ChunkSize:         config.ChunkSize,
			ConvertToMarkdown: config.Fetch.ConvertToMarkdown,
		}).
		AddNode(nodeGenerate, &nodes.GenerateScraper{
			Library: config.Library,
			Schema:  schema,
		}).
		AddEdge(nodeFetch, nodeParse).
		AddEdge(nodeParse, nodeGenerate).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build script creator graph: %w", err)
	}
	return executionGraph, nil
}
