package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leofalp/scriptgraph/patterns/graph"
	"github.com/leofalp/scriptgraph/providers/observability"
)

// FailurePolicy decides how [GraphIterator] reacts to a failing source.
type FailurePolicy string

const (
	// FailurePartial collects failures and keeps the successful scripts.
	FailurePartial FailurePolicy = "partial"
	// FailureAbort cancels the remaining sources on the first failure.
	FailureAbort FailurePolicy = "abort"
)

// Runner runs one single-source pipeline and returns its script.
type Runner interface {
	Run(ctx context.Context) (string, error)
}

// RunnerFunc adapts a function to [Runner].
type RunnerFunc func(ctx context.Context) (string, error)

// Run implements Runner.
func (runnerFunc RunnerFunc) Run(ctx context.Context) (string, error) {
	return runnerFunc(ctx)
}

// SubGraphFactory builds a fresh pipeline for prompt and url. It is called
// once per source, so every pipeline gets its own configuration copy.
type SubGraphFactory func(prompt, url string) (Runner, error)

// SourceScript is the script generated for one source.
type SourceScript struct {
	URL    string `json:"url"`
	Index  int    `json:"index"`
	Script string `json:"script"`
}

// Iteration is the output of [GraphIterator]. Scripts and Failures are both
// ordered by source index.
type Iteration struct {
	Prompt   string
	Scripts  []SourceScript
	Failures []*SourceFailure
}

// GraphIterator runs one pipeline per URL in the "urls" shared state key,
// with at most MaxConcurrency running at once (zero means no bound).
type GraphIterator struct {
	Factory        SubGraphFactory
	MaxConcurrency int
	FailurePolicy  FailurePolicy
}

var _ graph.NodeExecutor = (*GraphIterator)(nil)

// Execute implements graph.NodeExecutor.
func (iterator *GraphIterator) Execute(ctx context.Context, input *graph.NodeInput) (*graph.NodeResult, error) {
	prompt, err := stringInput(ctx, input, KeyUserPrompt)
	if err != nil {
		return nil, err
	}

	urls, _, err := graph.Typed[[]string](ctx, input.SharedState, KeyURLs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", KeyURLs, err)
	}

	iteration, err := iterator.Iterate(ctx, prompt, urls, observerFor(ctx, input))
	if err != nil {
		return nil, err
	}

	return &graph.NodeResult{
		Output: iteration,
		Metadata: map[string]any{
			MetaScriptCount: len(iteration.Scripts),
			MetaFailures:    len(iteration.Failures),
		},
	}, nil
}

// Iterate runs the pipelines for urls. Output order equals input order
// whatever the completion order. Under FailureAbort the first failure is
// returned as a *SourceFailure; under FailurePartial failures are collected
// and the error is non-nil only when ctx ends.
func (iterator *GraphIterator) Iterate(ctx context.Context, prompt string, urls []string, observer observability.Provider) (*Iteration, error) {
	iteration := &Iteration{Prompt: prompt, Scripts: []SourceScript{}}
	if len(urls) == 0 {
		return iteration, nil
	}
	if iterator.Factory == nil {
		return nil, fmt.Errorf("graph iterator: %w: sub-graph factory", ErrMissingInput)
	}

	abort := iterator.FailurePolicy == FailureAbort

	var group *errgroup.Group
	groupCtx := ctx
	if abort {
		group, groupCtx = errgroup.WithContext(ctx)
	} else {
		group = &errgroup.Group{}
	}
	if iterator.MaxConcurrency > 0 {
		group.SetLimit(iterator.MaxConcurrency)
	}

	scripts := make([]string, len(urls))
	failures := make([]*SourceFailure, len(urls))

	for index, url := range urls {
		group.Go(func() error {
			if abort && groupCtx.Err() != nil {
				return nil
			}

			script, err := iterator.runSource(groupCtx, prompt, url, index, observer)
			if err != nil {
				failures[index] = &SourceFailure{URL: url, Index: index, Err: err}
				if abort {
					return failures[index]
				}
				return nil
			}
			scripts[index] = script
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("graph iterator: %w", err)
	}

	for index, url := range urls {
		if failures[index] != nil {
			iteration.Failures = append(iteration.Failures, failures[index])
			continue
		}
		iteration.Scripts = append(iteration.Scripts, SourceScript{URL: url, Index: index, Script: scripts[index]})
	}

	return iteration, nil
}

// runSource builds and runs the pipeline of one source.
func (iterator *GraphIterator) runSource(ctx context.Context, prompt, url string, index int, observer observability.Provider) (string, error) {
	var span observability.Span
	if observer != nil {
		ctx, span = observer.StartSpan(ctx, observability.SpanSourceScript,
			observability.String(observability.AttrSourceURL, url),
			observability.Int(observability.AttrSourceIndex, index),
		)
		defer span.End()
	}

	start := time.Now()
	script, err := iterator.build(ctx, prompt, url)
	if err == nil && strings.TrimSpace(script) == "" {
		err = ErrEmptyScript
	}

	if observer != nil {
		status := "completed"
		if err != nil {
			status = "failed"
			span.RecordError(err)
			span.SetStatus(observability.StatusError, err.Error())
			observer.Warn(ctx, "Source failed",
				observability.String(observability.AttrSourceURL, url),
				observability.Int(observability.AttrSourceIndex, index),
				observability.Error(err),
			)
		} else {
			span.SetStatus(observability.StatusOK, "")
			span.SetAttributes(observability.Int(observability.AttrScriptLength, len(script)))
		}
		observer.Counter(observability.MetricSourceCount).Add(ctx, 1,
			observability.String(observability.AttrStatus, status),
		)
		observer.Debug(ctx, "Source finished",
			observability.String(observability.AttrSourceURL, url),
			observability.Duration(observability.AttrDuration, time.Since(start)),
		)
	}

	if err != nil {
		return "", err
	}
	return script, nil
}

func (iterator *GraphIterator) build(ctx context.Context, prompt, url string) (string, error) {
	runner, err := iterator.Factory(prompt, url)
	if err != nil {
		return "", fmt.Errorf("build pipeline: %w", err)
	}
	return runner.Run(ctx)
}
