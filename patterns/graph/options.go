package graph

import (
	"time"

	"github.com/leofalp/scriptgraph/core/client"
)

// Option configures a Graph. Options are passed to NewGraphBuilder.
type Option func(*graphConfig)

// NodeOption configures a single node. Node options are passed to AddNode.
type NodeOption func(*node)

// EdgeOption configures a single edge. Edge options are passed to AddEdge.
type EdgeOption func(*edge)

// --- Graph Options ---

// WithMaxConcurrency limits how many nodes of one topological level run at
// once. Zero (the default) runs every ready node of a level in parallel.
func WithMaxConcurrency(maxConcurrency int) Option {
	return func(config *graphConfig) {
		config.maxConcurrency = maxConcurrency
	}
}

// WithExecutionTimeout bounds the whole Execute call. Zero means no timeout.
func WithExecutionTimeout(timeout time.Duration) Option {
	return func(config *graphConfig) {
		config.executionTimeout = timeout
	}
}

// WithErrorStrategy sets how node failures are handled. The default is
// ErrorStrategyFailFast.
//
//	graph.NewGraphBuilder[string](defaultClient,
//	    graph.WithErrorStrategy(graph.ErrorStrategyContinueOnError),
//	)
func WithErrorStrategy(strategy ErrorStrategy) Option {
	return func(config *graphConfig) {
		config.errorStrategy = strategy
	}
}

// WithOutputNode designates the node whose result is returned as T. By
// default the last node in topological order is used.
func WithOutputNode(nodeID string) Option {
	return func(config *graphConfig) {
		config.outputNodeID = nodeID
	}
}

// WithStateProvider makes every Execute call use provider instead of a fresh
// InMemoryStateProvider. Use it to inspect or persist state between runs.
func WithStateProvider(provider StateProvider) Option {
	return func(config *graphConfig) {
		config.stateProvider = provider
	}
}

// --- Node Options ---

// WithNodeClient overrides the graph's default client for one node.
func WithNodeClient(nodeClient *client.Client) NodeOption {
	return func(nodeConfig *node) {
		nodeConfig.nodeClient = nodeClient
	}
}

// WithNodeParams sets parameters passed to the node via NodeInput.Params.
//
//	builder.AddNode("fetch", nodes.NewFetch(),
//	    graph.WithNodeParams(map[string]any{"url": "https://example.com"}),
//	)
func WithNodeParams(params map[string]any) NodeOption {
	return func(nodeConfig *node) {
		nodeConfig.params = params
	}
}

// WithNodeTimeout bounds one node's execution. The graph-level timeout still
// applies.
func WithNodeTimeout(timeout time.Duration) NodeOption {
	return func(nodeConfig *node) {
		nodeConfig.timeout = timeout
	}
}

// --- Edge Options ---

// WithEdgeCondition makes an edge conditional. A node runs when at least one
// of its incoming edges is unconditional or has a condition returning true.
func WithEdgeCondition(condition EdgeCondition) EdgeOption {
	return func(edgeConfig *edge) {
		edgeConfig.condition = condition
	}
}
