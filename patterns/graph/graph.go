package graph

import (
	"context"
	"time"

	"github.com/leofalp/scriptgraph/core/client"
	"github.com/leofalp/scriptgraph/core/overview"
)

// NodeStatus represents the lifecycle status of a node during graph execution.
type NodeStatus string

const (
	// NodePending indicates the node has not started execution yet.
	NodePending NodeStatus = "pending"

	// NodeRunning indicates the node is currently executing.
	NodeRunning NodeStatus = "running"

	// NodeCompleted indicates the node has finished execution successfully.
	NodeCompleted NodeStatus = "completed"

	// NodeFailed indicates the node encountered an error during execution.
	NodeFailed NodeStatus = "failed"

	// NodeSkipped indicates the node was skipped because a dependency failed
	// or an edge condition evaluated to false.
	NodeSkipped NodeStatus = "skipped"
)

// ErrorStrategy defines how the graph handles node failures within a level.
type ErrorStrategy string

const (
	// ErrorStrategyFailFast cancels the running level and stops execution as
	// soon as any node fails. This is the default.
	ErrorStrategyFailFast ErrorStrategy = "fail_fast"

	// ErrorStrategyContinueOnError lets the other nodes finish. Nodes that
	// depend on the failed one are skipped.
	ErrorStrategyContinueOnError ErrorStrategy = "continue_on_error"
)

// NodeResult contains the output produced by a node after execution.
type NodeResult struct {
	// Output is the data produced by the node.
	Output any

	// Error records the execution error, if the node failed.
	Error error

	// Duration is the wall-clock time the node took to execute.
	Duration time.Duration

	// Metadata carries extra facts about the run, such as a swallowed
	// model error or the number of failed sources.
	Metadata map[string]any
}

// NodeInput contains all the data available to a node during execution.
type NodeInput struct {
	// UpstreamResults maps each upstream node ID to its execution result.
	// Only completed upstream nodes appear in this map.
	UpstreamResults map[string]*NodeResult

	// SharedState provides thread-safe access to state shared across all nodes.
	SharedState StateProvider

	// Params contains node-specific parameters set via WithNodeParams.
	Params map[string]any

	// Client is the node-specific client set via WithNodeClient, or the
	// graph's default client. It may be nil for nodes that never call a model.
	Client *client.Client
}

// NodeExecutor is the interface that every graph node must implement.
//
// Example:
//
//	type SummarizeExecutor struct{}
//
//	func (e *SummarizeExecutor) Execute(ctx context.Context, input *NodeInput) (*NodeResult, error) {
//	    response, err := input.Client.SendMessage(ctx, "Summarize this page")
//	    if err != nil {
//	        return nil, fmt.Errorf("failed to summarize: %w", err)
//	    }
//	    return &NodeResult{Output: response.Content}, nil
//	}
type NodeExecutor interface {
	Execute(ctx context.Context, input *NodeInput) (*NodeResult, error)
}

// NodeExecutorFunc is an adapter that allows using an ordinary function as a
// NodeExecutor.
type NodeExecutorFunc func(ctx context.Context, input *NodeInput) (*NodeResult, error)

// Execute calls the underlying function, satisfying the NodeExecutor interface.
func (executorFunc NodeExecutorFunc) Execute(ctx context.Context, input *NodeInput) (*NodeResult, error) {
	return executorFunc(ctx, input)
}

// EdgeCondition decides whether an edge is traversed. It receives the result
// of the source node and the shared state. A nil EdgeCondition means the edge
// is always traversed.
type EdgeCondition func(ctx context.Context, result *NodeResult, state StateProvider) bool

// NodeInfo summarizes how one node ended.
type NodeInfo struct {
	Status   NodeStatus    `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// ExecutionInfo reports per-node outcomes and aggregated usage for one
// Execute call.
type ExecutionInfo struct {
	Nodes    map[string]NodeInfo `json:"nodes"`
	Overview overview.Summary    `json:"overview"`
}

// Result is what Execute returns: the typed output of the output node plus
// execution details.
type Result[T any] struct {
	Data *T            `json:"data,omitempty"`
	Info ExecutionInfo `json:"info"`
}

type node struct {
	id           string
	executor     NodeExecutor
	nodeClient   *client.Client
	params       map[string]any
	timeout      time.Duration
	dependencies []string
}

type edge struct {
	from      string
	to        string
	condition EdgeCondition
}

type graphConfig struct {
	// maxConcurrency limits parallel nodes within a level. Zero is unlimited.
	maxConcurrency int

	executionTimeout time.Duration
	errorStrategy    ErrorStrategy

	// outputNodeID defaults to the last node in topological order.
	outputNodeID string

	// stateProvider is shared by every Execute call when set. When nil each
	// call gets a fresh InMemoryStateProvider.
	stateProvider StateProvider
}

// Graph is a validated, executable DAG of processing steps producing a T.
// Build one with GraphBuilder[T].Build.
//
// Execute calls on the same Graph may run concurrently as long as no shared
// StateProvider was configured with WithStateProvider.
type Graph[T any] struct {
	defaultClient    *client.Client
	nodes            map[string]*node
	edges            []*edge
	levels           [][]string
	topologicalOrder []string
	outputNodeID     string
	config           *graphConfig
}

// Levels returns the node IDs grouped by topological level.
func (graph *Graph[T]) Levels() [][]string {
	levels := make([][]string, len(graph.levels))
	for index, level := range graph.levels {
		levels[index] = append([]string(nil), level...)
	}
	return levels
}

// OutputNodeID returns the node whose result becomes the graph output.
func (graph *Graph[T]) OutputNodeID() string {
	return graph.outputNodeID
}
