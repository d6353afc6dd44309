package graph

import (
	"context"
	"time"

	"github.com/leofalp/scriptgraph/internal/utils"
	"github.com/leofalp/scriptgraph/providers/observability"
)

const (
	spanGraphExecute     = "graph.execute"
	spanGraphNodeExecute = "graph.node.execute"

	attrGraphNodeID           = "graph.node.id"
	attrGraphNodeLevel        = "graph.node.level"
	attrGraphNodeStatus       = "graph.node.status"
	attrGraphNodeDependencies = "graph.node.dependencies"
	attrGraphNodeOutput       = "graph.node.output"
	attrGraphNodeSkipReason   = "graph.node.skip_reason"
	attrGraphTotalNodes       = "graph.total_nodes"
	attrGraphTotalLevels      = "graph.total_levels"
	attrGraphErrorStrategy    = "graph.error_strategy"
	attrGraphOutputNode       = "graph.output_node"
	attrGraphLevelNodes       = "graph.level.nodes"

	metricGraphNodeDuration      = "scriptgraph.graph.node.duration"
	metricGraphNodeCount         = "scriptgraph.graph.node.count"
	metricGraphExecutionDuration = "scriptgraph.graph.execution.duration"
)

// observeGraphStart resolves the observer (default client first, then the
// context) and opens the root span. Without an observer every observe*
// method is a no-op.
func (run *execution[T]) observeGraphStart(ctx *context.Context) {
	if run.graph.defaultClient != nil {
		run.observer = run.graph.defaultClient.Observer()
	}
	if run.observer == nil {
		run.observer = observability.ObserverFromContext(*ctx)
	}
	if run.observer == nil {
		return
	}

	graph := run.graph
	*ctx, run.rootSpan = run.observer.StartSpan(*ctx, spanGraphExecute,
		observability.Int(attrGraphTotalNodes, len(graph.nodes)),
		observability.Int(attrGraphTotalLevels, len(graph.levels)),
		observability.String(attrGraphErrorStrategy, string(graph.config.errorStrategy)),
		observability.String(attrGraphOutputNode, graph.outputNodeID),
	)
	*ctx = observability.ContextWithSpan(*ctx, run.rootSpan)
	*ctx = observability.ContextWithObserver(*ctx, run.observer)

	run.observer.Info(*ctx, "graph execution started",
		observability.Int(attrGraphTotalNodes, len(graph.nodes)),
		observability.Int(attrGraphTotalLevels, len(graph.levels)),
		observability.String(attrGraphErrorStrategy, string(graph.config.errorStrategy)),
	)
}

func (run *execution[T]) observeGraphCompleted(ctx context.Context, totalDuration time.Duration, completedAll bool) {
	if run.observer == nil {
		return
	}

	run.observer.Histogram(metricGraphExecutionDuration).Record(ctx, totalDuration.Seconds())

	status := "completed"
	if !completedAll {
		status = "partial"
	}

	run.observer.Info(ctx, "graph execution completed",
		observability.String(observability.AttrStatus, status),
		observability.Duration(observability.AttrDuration, totalDuration),
	)

	run.rootSpan.SetStatus(observability.StatusOK, "graph execution "+status)
	run.rootSpan.End()
}

func (run *execution[T]) observeGraphFailed(ctx context.Context, executionError error, totalDuration time.Duration) {
	if run.observer == nil {
		return
	}

	run.observer.Error(ctx, "graph execution failed",
		observability.Error(executionError),
		observability.Duration(observability.AttrDuration, totalDuration),
	)

	run.rootSpan.RecordError(executionError)
	run.rootSpan.SetStatus(observability.StatusError, "graph execution failed")
	run.rootSpan.End()
}

// observeNodeStart opens a child span for the node and attaches it to ctx.
func (run *execution[T]) observeNodeStart(ctx *context.Context, nodeID string, level int, dependencies []string) {
	if run.observer == nil {
		return
	}

	var nodeSpan observability.Span
	*ctx, nodeSpan = run.observer.StartSpan(*ctx, spanGraphNodeExecute,
		observability.String(attrGraphNodeID, nodeID),
		observability.Int(attrGraphNodeLevel, level),
		observability.StringSlice(attrGraphNodeDependencies, dependencies),
	)
	*ctx = observability.ContextWithSpan(*ctx, nodeSpan)

	run.observer.Debug(*ctx, "node execution started",
		observability.String(attrGraphNodeID, nodeID),
		observability.Int(attrGraphNodeLevel, level),
	)
}

func (run *execution[T]) observeNodeCompleted(ctx context.Context, nodeID string, result *NodeResult) {
	if run.observer == nil {
		return
	}

	run.observer.Histogram(metricGraphNodeDuration).Record(ctx, result.Duration.Seconds(),
		observability.String(attrGraphNodeID, nodeID),
	)
	run.observer.Counter(metricGraphNodeCount).Add(ctx, 1,
		observability.String(attrGraphNodeStatus, string(NodeCompleted)),
		observability.String(attrGraphNodeID, nodeID),
	)

	logAttrs := []observability.Attribute{
		observability.String(attrGraphNodeID, nodeID),
		observability.String(attrGraphNodeStatus, string(NodeCompleted)),
		observability.Duration(observability.AttrDuration, result.Duration),
	}
	if outputStr, isString := result.Output.(string); isString {
		logAttrs = append(logAttrs, observability.String(attrGraphNodeOutput, utils.TruncateString(outputStr, 100)))
	}
	run.observer.Info(ctx, "node execution completed", logAttrs...)

	if nodeSpan := observability.SpanFromContext(ctx); nodeSpan != nil {
		nodeSpan.SetAttributes(
			observability.String(attrGraphNodeStatus, string(NodeCompleted)),
			observability.Duration(observability.AttrDuration, result.Duration),
		)
		nodeSpan.SetStatus(observability.StatusOK, "node completed")
		nodeSpan.End()
	}
}

func (run *execution[T]) observeNodeFailed(ctx context.Context, nodeID string, nodeError error, duration time.Duration) {
	if run.observer == nil {
		return
	}

	run.observer.Histogram(metricGraphNodeDuration).Record(ctx, duration.Seconds(),
		observability.String(attrGraphNodeID, nodeID),
	)
	run.observer.Counter(metricGraphNodeCount).Add(ctx, 1,
		observability.String(attrGraphNodeStatus, string(NodeFailed)),
		observability.String(attrGraphNodeID, nodeID),
	)
	run.observer.Error(ctx, "node execution failed",
		observability.String(attrGraphNodeID, nodeID),
		observability.Error(nodeError),
		observability.Duration(observability.AttrDuration, duration),
	)

	if nodeSpan := observability.SpanFromContext(ctx); nodeSpan != nil {
		nodeSpan.RecordError(nodeError)
		nodeSpan.SetAttributes(
			observability.String(attrGraphNodeStatus, string(NodeFailed)),
			observability.Duration(observability.AttrDuration, duration),
		)
		nodeSpan.SetStatus(observability.StatusError, "node failed")
		nodeSpan.End()
	}
}

func (run *execution[T]) observeNodeSkipped(ctx context.Context, nodeID string, reason string) {
	if run.observer == nil {
		return
	}

	run.observer.Counter(metricGraphNodeCount).Add(ctx, 1,
		observability.String(attrGraphNodeStatus, string(NodeSkipped)),
		observability.String(attrGraphNodeID, nodeID),
	)
	run.observer.Info(ctx, "node skipped",
		observability.String(attrGraphNodeID, nodeID),
		observability.String(attrGraphNodeSkipReason, reason),
	)
}

func (run *execution[T]) observeLevelStart(ctx context.Context, level int, nodeIDs []string) {
	if run.observer == nil {
		return
	}

	run.observer.Debug(ctx, "level execution started",
		observability.Int(attrGraphNodeLevel, level),
		observability.StringSlice(attrGraphLevelNodes, nodeIDs),
	)
}
