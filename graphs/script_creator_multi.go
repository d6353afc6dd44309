package graphs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"

	"github.com/leofalp/scriptgraph/core/cost"
	"github.com/leofalp/scriptgraph/nodes"
	"github.com/leofalp/scriptgraph/patterns/graph"
	"github.com/leofalp/scriptgraph/providers/observability"
)

const (
	nodeIterator = "graph_iterator"
	nodeMerge    = "merge_generated_scripts"
)

// Result is the full outcome of one [ScriptCreatorMultiGraph] run.
type Result struct {
	RunID  string
	Prompt string
	// MergedScript is FailedScript when no script was produced.
	MergedScript string
	Scripts      []nodes.SourceScript
	Failures     []*nodes.SourceFailure
	// MergeError explains a FailedScript when the merge call was made.
	MergeError error
	Info       graph.ExecutionInfo
	// Cost is set when the LLM pricing is configured.
	Cost *cost.Estimate
}

// ScriptCreatorMultiGraph generates one scraping script per source and
// merges them into a single script.
type ScriptCreatorMultiGraph struct {
	prompt  string
	sources []string
	config  Config
	schema  *jsonschema.Schema
	opts    options
}

// NewScriptCreatorMultiGraph validates and copies config, sources and
// schema. Configuration errors are reported here, before anything is
// fetched.
func NewScriptCreatorMultiGraph(prompt string, sources []string, config Config, schema *jsonschema.Schema, opts ...Option) (*ScriptCreatorMultiGraph, error) {
	built := buildOptions(opts)

	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidConfig)
	}
	for index, source := range sources {
		if strings.TrimSpace(source) == "" {
			return nil, fmt.Errorf("%w: source %d is blank", ErrInvalidConfig, index)
		}
	}
	if _, err := newProvider(config.LLM, built); err != nil {
		return nil, err
	}

	schemaCopy, err := cloneSchema(schema)
	if err != nil {
		return nil, err
	}

	return &ScriptCreatorMultiGraph{
		prompt:  prompt,
		sources: slices.Clone(sources),
		config:  config.Clone(),
		schema:  schemaCopy,
		opts:    built,
	}, nil
}

// Run returns the merged script, or FailedScript when none was produced.
// The error is non-nil only when the graph cannot be built or ctx ends.
func (multi *ScriptCreatorMultiGraph) Run(ctx context.Context) (string, error) {
	result, err := multi.Execute(ctx)
	if err != nil {
		return FailedScript, err
	}
	return result.MergedScript, nil
}

// Execute runs the workflow and returns every artifact it produced. The
// returned Result is non-nil even when err is not.
func (multi *ScriptCreatorMultiGraph) Execute(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:        uuid.NewString(),
		Prompt:       multi.prompt,
		MergedScript: FailedScript,
		Scripts:      []nodes.SourceScript{},
	}

	config := multi.config.Clone()
	schema, err := cloneSchema(multi.schema)
	if err != nil {
		return result, err
	}

	opts := multi.opts
	opts.limiter = newRunLimiter(config.LLM)

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}
	if opts.observer != nil {
		ctx = observability.ContextWithObserver(ctx, opts.observer)
		opts.observer.Info(ctx, "Script creator run started",
			observability.String(observability.AttrRunID, result.RunID),
			observability.Int(observability.AttrSourceCount, len(multi.sources)),
			observability.String(observability.AttrFailurePolicy, string(config.FailurePolicy)),
		)
	}
	executionGraph, err := multi.build(config, schema, opts)
	if err != nil {
		return result, err
	}

	graphResult, err := executionGraph.Execute(ctx, map[string]any{
		nodes.KeyUserPrompt: multi.prompt,
		nodes.KeyURLs:       slices.Clone(multi.sources),
	})
	if graphResult != nil {
		result.Info = graphResult.Info
		if !config.LLM.Pricing.IsZero() {
			estimate := config.LLM.Pricing.Estimate(graphResult.Info.Overview.TotalUsage)
			result.Cost = &estimate
		}
	}
	if err != nil {
		var failure *nodes.SourceFailure
		if ctx.Err() == nil && errors.As(err, &failure) {
			// abort policy: the run ends with the failure, not an error
			result.Failures = []*nodes.SourceFailure{failure}
			multi.logFinished(ctx, opts, result)
			return result, nil
		}
		return result, fmt.Errorf("script creator multi graph: %w", err)
	}

	merged := graphResult.Data
	result.MergedScript = merged.Script
	result.Scripts = merged.Scripts
	result.Failures = merged.Failures
	result.MergeError = merged.Err

	multi.logFinished(ctx, opts, result)
	return result, nil
}

// build assembles graph_iterator -> merge_generated_scripts. Every per-URL
// pipeline is built by the iterator from its own copy of config.
func (multi *ScriptCreatorMultiGraph) build(config Config, schema *jsonschema.Schema, opts options) (*graph.Graph[nodes.Merged], error) {
	modelClient, err := newClient(config, opts, false)
	if err != nil {
		return nil, fmt.Errorf("build model client: %w", err)
	}

	factory := func(prompt, url string) (nodes.Runner, error) {
		creator, err := newScriptCreatorGraph(prompt, url, config.Clone(), schema, opts)
		if err != nil {
			return nil, err
		}
		return creator, nil
	}

	executionGraph, err := graph.NewGraphBuilder[nodes.Merged](modelClient, graph.WithOutputNode(nodeMerge)).
		AddNode(nodeIterator, &nodes.GraphIterator{
			Factory:        factory,
			MaxConcurrency: config.MaxConcurrency,
			FailurePolicy:  config.FailurePolicy,
		}).
		AddNode(nodeMerge, &nodes.MergeGeneratedScripts{Schema: schema}).
		AddEdge(nodeIterator, nodeMerge).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build script creator multi graph: %w", err)
	}
	return executionGraph, nil
}

func (multi *ScriptCreatorMultiGraph) logFinished(ctx context.Context, opts options, result *Result) {
	if opts.observer == nil {
		return
	}
	attrs := []observability.Attribute{
		observability.String(observability.AttrRunID, result.RunID),
		observability.Int(observability.AttrScriptCount, len(result.Scripts)),
		observability.Int(observability.AttrFailureCount, len(result.Failures)),
	}
	if result.MergedScript == FailedScript {
		opts.observer.Warn(ctx, "Script creator run produced no script", attrs...)
		return
	}
	opts.observer.Info(ctx, "Script creator run completed", attrs...)
}
