package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/leofalp/scriptgraph/core/client"
)

// GraphBuilder constructs a validated Graph[T] using a fluent API. Errors
// from AddNode and AddEdge accumulate and are reported together by Build,
// which also rejects cycles (Kahn's algorithm).
//
// Example:
//
//	g, err := graph.NewGraphBuilder[string](defaultClient).
//	    AddNode("fetch", fetchExecutor).
//	    AddNode("parse", parseExecutor).
//	    AddNode("generate_scraper", generateExecutor).
//	    AddEdge("fetch", "parse").
//	    AddEdge("parse", "generate_scraper").
//	    Build()
type GraphBuilder[T any] struct {
	defaultClient *client.Client
	config        *graphConfig
	nodes         map[string]*node
	edges         []*edge

	// nodeOrder keeps insertion order so levels are deterministic.
	nodeOrder   []string
	buildErrors []error
}

// NewGraphBuilder creates a GraphBuilder. defaultClient is handed to every
// node without a WithNodeClient override and may be nil.
func NewGraphBuilder[T any](defaultClient *client.Client, opts ...Option) *GraphBuilder[T] {
	config := &graphConfig{
		errorStrategy: ErrorStrategyFailFast,
	}

	for _, opt := range opts {
		opt(config)
	}

	return &GraphBuilder[T]{
		defaultClient: defaultClient,
		config:        config,
		nodes:         make(map[string]*node),
		edges:         make([]*edge, 0),
		nodeOrder:     make([]string, 0),
		buildErrors:   make([]error, 0),
	}
}

// AddNode registers a node under a unique ID.
func (builder *GraphBuilder[T]) AddNode(nodeID string, executor NodeExecutor, opts ...NodeOption) *GraphBuilder[T] {
	if nodeID == "" {
		builder.buildErrors = append(builder.buildErrors, errors.New("node ID must not be empty"))
		return builder
	}

	if executor == nil {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("executor must not be nil for node %q", nodeID))
		return builder
	}

	if _, exists := builder.nodes[nodeID]; exists {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("duplicate node ID %q", nodeID))
		return builder
	}

	graphNode := &node{
		id:       nodeID,
		executor: executor,
	}

	for _, opt := range opts {
		opt(graphNode)
	}

	builder.nodes[nodeID] = graphNode
	builder.nodeOrder = append(builder.nodeOrder, nodeID)

	return builder
}

// AddEdge makes to depend on from. Endpoints are checked by Build.
func (builder *GraphBuilder[T]) AddEdge(from, to string, opts ...EdgeOption) *GraphBuilder[T] {
	if from == "" || to == "" {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("edge endpoints must not be empty (from=%q, to=%q)", from, to))
		return builder
	}

	if from == to {
		builder.buildErrors = append(builder.buildErrors, fmt.Errorf("self-loop detected: node %q cannot have an edge to itself", from))
		return builder
	}

	graphEdge := &edge{
		from: from,
		to:   to,
	}

	for _, opt := range opts {
		opt(graphEdge)
	}

	builder.edges = append(builder.edges, graphEdge)

	return builder
}

// Build validates the graph and computes its topological levels. It fails on
// accumulated AddNode/AddEdge errors, an empty graph, dangling or duplicate
// edges, cycles and an unknown output node.
func (builder *GraphBuilder[T]) Build() (*Graph[T], error) {
	if len(builder.buildErrors) > 0 {
		return nil, fmt.Errorf("graph build errors: %w", errors.Join(builder.buildErrors...))
	}

	if len(builder.nodes) == 0 {
		return nil, errors.New("graph must contain at least one node")
	}

	if err := builder.validateEdges(); err != nil {
		return nil, err
	}

	inDegree, adjacency := builder.buildAdjacency()
	topologicalOrder, levels, err := kahnTopologicalSort(inDegree, adjacency, builder.nodeOrder)
	if err != nil {
		return nil, err
	}

	builder.populateDependencies()

	outputNodeID, err := builder.resolveOutputNode(topologicalOrder)
	if err != nil {
		return nil, err
	}

	return &Graph[T]{
		defaultClient:    builder.defaultClient,
		nodes:            builder.nodes,
		edges:            builder.edges,
		levels:           levels,
		topologicalOrder: topologicalOrder,
		outputNodeID:     outputNodeID,
		config:           builder.config,
	}, nil
}

// validateEdges checks that all edge endpoints reference existing nodes
// and that there are no duplicate edges.
func (builder *GraphBuilder[T]) validateEdges() error {
	edgeSet := make(map[string]bool)

	for _, graphEdge := range builder.edges {
		if _, exists := builder.nodes[graphEdge.from]; !exists {
			return fmt.Errorf("edge references non-existent source node %q", graphEdge.from)
		}
		if _, exists := builder.nodes[graphEdge.to]; !exists {
			return fmt.Errorf("edge references non-existent target node %q", graphEdge.to)
		}

		edgeKey := graphEdge.from + "->" + graphEdge.to
		if edgeSet[edgeKey] {
			return fmt.Errorf("duplicate edge from %q to %q", graphEdge.from, graphEdge.to)
		}
		edgeSet[edgeKey] = true
	}

	return nil
}

// buildAdjacency returns the in-degree map and adjacency list for Kahn's algorithm.
func (builder *GraphBuilder[T]) buildAdjacency() (map[string]int, map[string][]string) {
	inDegree := make(map[string]int, len(builder.nodes))
	adjacency := make(map[string][]string, len(builder.nodes))

	for nodeID := range builder.nodes {
		inDegree[nodeID] = 0
		adjacency[nodeID] = make([]string, 0)
	}

	for _, graphEdge := range builder.edges {
		adjacency[graphEdge.from] = append(adjacency[graphEdge.from], graphEdge.to)
		inDegree[graphEdge.to]++
	}

	return inDegree, adjacency
}

// populateDependencies records, for each node, the sources of its incoming edges.
func (builder *GraphBuilder[T]) populateDependencies() {
	for _, graphEdge := range builder.edges {
		targetNode := builder.nodes[graphEdge.to]
		targetNode.dependencies = append(targetNode.dependencies, graphEdge.from)
	}
}

// resolveOutputNode returns the WithOutputNode node, or the last node in
// topological order.
func (builder *GraphBuilder[T]) resolveOutputNode(topologicalOrder []string) (string, error) {
	if builder.config.outputNodeID != "" {
		if _, exists := builder.nodes[builder.config.outputNodeID]; !exists {
			return "", fmt.Errorf("output node %q does not exist in the graph", builder.config.outputNodeID)
		}
		return builder.config.outputNodeID, nil
	}

	return topologicalOrder[len(topologicalOrder)-1], nil
}

// kahnTopologicalSort orders the nodes and groups them into levels (level 0
// holds the roots). Nodes within a level keep insertion order. Nodes left
// with a positive in-degree form a cycle.
func kahnTopologicalSort(inDegree map[string]int, adjacency map[string][]string, nodeOrder []string) ([]string, [][]string, error) {
	nodePosition := make(map[string]int, len(nodeOrder))
	for index, nodeID := range nodeOrder {
		nodePosition[nodeID] = index
	}

	currentLevel := make([]string, 0)
	for nodeID, degree := range inDegree {
		if degree == 0 {
			currentLevel = append(currentLevel, nodeID)
		}
	}

	byInsertion := func(level []string) {
		sort.Slice(level, func(nodeIndexA, nodeIndexB int) bool {
			return nodePosition[level[nodeIndexA]] < nodePosition[level[nodeIndexB]]
		})
	}
	byInsertion(currentLevel)

	topologicalOrder := make([]string, 0, len(inDegree))
	levels := make([][]string, 0)
	processedCount := 0

	for len(currentLevel) > 0 {
		levels = append(levels, currentLevel)
		topologicalOrder = append(topologicalOrder, currentLevel...)
		processedCount += len(currentLevel)

		nextLevel := make([]string, 0)

		for _, nodeID := range currentLevel {
			for _, neighbor := range adjacency[nodeID] {
				inDegree[neighbor]--
				if inDegree[neighbor] == 0 {
					nextLevel = append(nextLevel, neighbor)
				}
			}
		}

		byInsertion(nextLevel)

		currentLevel = nextLevel
	}

	if processedCount != len(inDegree) {
		cycleNodes := make([]string, 0)
		for nodeID, degree := range inDegree {
			if degree > 0 {
				cycleNodes = append(cycleNodes, nodeID)
			}
		}
		sort.Strings(cycleNodes)
		return nil, nil, fmt.Errorf("cycle detected in graph involving nodes: %v", cycleNodes)
	}

	return topologicalOrder, levels, nil
}
