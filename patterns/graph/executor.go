package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leofalp/scriptgraph/core/overview"
	"github.com/leofalp/scriptgraph/core/parse"
	"github.com/leofalp/scriptgraph/providers/observability"
)

// execution carries the per-call state of one Execute.
type execution[T any] struct {
	graph    *Graph[T]
	state    StateProvider
	observer observability.Provider
	rootSpan observability.Span
}

// Execute runs the graph level by level; nodes of one level run in parallel,
// bounded by WithMaxConcurrency. initialState is loaded into the shared state
// before the first level starts.
//
// The Overview found in ctx (or a new one) collects usage from every client
// call made by the nodes, including nested graphs that share ctx.
//
// On failure the returned Result is still non-nil and its Info describes
// which nodes ran; Data is nil.
func (graph *Graph[T]) Execute(ctx context.Context, initialState map[string]any) (*Result[T], error) {
	executionStart := time.Now()

	run := &execution[T]{graph: graph, state: graph.config.stateProvider}
	if run.state == nil {
		run.state = NewInMemoryStateProvider(nil)
	}

	executionOverview := overview.OverviewFromContext(&ctx)
	executionOverview.StartExecution()

	run.observeGraphStart(&ctx)

	if err := run.initializeState(ctx, initialState); err != nil {
		executionOverview.EndExecution()
		run.observeGraphFailed(ctx, err, time.Since(executionStart))
		return run.result(ctx, executionOverview, nil), fmt.Errorf("failed to initialize graph state: %w", err)
	}

	if graph.config.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, graph.config.executionTimeout)
		defer cancel()
	}

	executionError := run.executeLevels(ctx)

	executionOverview.EndExecution()
	totalDuration := time.Since(executionStart)

	if executionError != nil {
		run.observeGraphFailed(ctx, executionError, totalDuration)
		return run.result(ctx, executionOverview, nil), fmt.Errorf("graph execution failed: %w", executionError)
	}

	parsedResult, parseError := run.parseOutputResult(ctx)
	if parseError != nil {
		run.observeGraphFailed(ctx, parseError, totalDuration)
		return run.result(ctx, executionOverview, nil), fmt.Errorf("failed to parse output from node %q: %w", graph.outputNodeID, parseError)
	}

	run.observeGraphCompleted(ctx, totalDuration, run.allNodesCompleted(ctx))

	return run.result(ctx, executionOverview, parsedResult), nil
}

// initializeState loads initial shared state and marks every node pending.
func (run *execution[T]) initializeState(ctx context.Context, initialState map[string]any) error {
	for key, value := range initialState {
		if err := run.state.Set(ctx, key, value); err != nil {
			return fmt.Errorf("failed to set initial state key %q: %w", key, err)
		}
	}

	nodeIDs := run.graph.topologicalOrder

	if inMemoryProvider, isInMemory := run.state.(*InMemoryStateProvider); isInMemory {
		inMemoryProvider.initializeNodes(nodeIDs)
		return nil
	}

	for _, nodeID := range nodeIDs {
		if err := run.state.SetNodeStatus(ctx, nodeID, NodePending); err != nil {
			return fmt.Errorf("failed to initialize node %q status: %w", nodeID, err)
		}
		if err := run.state.SetNodeResult(ctx, nodeID, nil); err != nil {
			return fmt.Errorf("failed to clear node %q result: %w", nodeID, err)
		}
	}
	return nil
}

func (run *execution[T]) executeLevels(ctx context.Context) error {
	for levelIndex, levelNodeIDs := range run.graph.levels {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled before level %d: %w", levelIndex, err)
		}

		run.observeLevelStart(ctx, levelIndex, levelNodeIDs)

		readyNodes := run.filterReadyNodes(ctx, levelNodeIDs)
		if len(readyNodes) == 0 {
			continue
		}

		if err := run.executeLevel(ctx, readyNodes, levelIndex); err != nil {
			return err
		}
	}

	return nil
}

// filterReadyNodes returns the nodes of a level that should run. A node whose
// dependency failed or was skipped is skipped, and so is a node whose
// incoming edge conditions are all false.
func (run *execution[T]) filterReadyNodes(ctx context.Context, nodeIDs []string) []string {
	readyNodes := make([]string, 0, len(nodeIDs))

	for _, nodeID := range nodeIDs {
		graphNode := run.graph.nodes[nodeID]

		allDependenciesMet := true
		anyDependencyFailed := false

		for _, depID := range graphNode.dependencies {
			depStatus, err := run.state.GetNodeStatus(ctx, depID)
			if err != nil {
				allDependenciesMet = false
				break
			}

			switch depStatus {
			case NodeCompleted:
			case NodeFailed, NodeSkipped:
				anyDependencyFailed = true
			default:
				allDependenciesMet = false
			}
		}

		if !allDependenciesMet {
			continue
		}

		if anyDependencyFailed {
			run.skipNode(ctx, nodeID, "upstream dependency failed or skipped")
			continue
		}

		if !run.evaluateEdgeConditions(ctx, nodeID) {
			run.skipNode(ctx, nodeID, "edge conditions not satisfied")
			continue
		}

		readyNodes = append(readyNodes, nodeID)
	}

	return readyNodes
}

func (run *execution[T]) skipNode(ctx context.Context, nodeID, reason string) {
	if err := run.state.SetNodeStatus(ctx, nodeID, NodeSkipped); err != nil {
		return
	}
	run.observeNodeSkipped(ctx, nodeID, reason)
}

// evaluateEdgeConditions reports whether at least one incoming edge of nodeID
// is active. Root nodes are always active.
func (run *execution[T]) evaluateEdgeConditions(ctx context.Context, nodeID string) bool {
	hasIncoming := false

	for _, graphEdge := range run.graph.edges {
		if graphEdge.to != nodeID {
			continue
		}
		hasIncoming = true

		if graphEdge.condition == nil {
			return true
		}

		sourceResult, err := run.state.GetNodeResult(ctx, graphEdge.from)
		if err != nil {
			continue
		}
		if graphEdge.condition(ctx, sourceResult, run.state) {
			return true
		}
	}

	return !hasIncoming
}

// executeLevel runs the ready nodes of one level in parallel. Under fail
// fast the first failure cancels the rest of the level.
func (run *execution[T]) executeLevel(ctx context.Context, readyNodes []string, levelIndex int) error {
	var waitGroup sync.WaitGroup
	errorChannel := make(chan nodeExecutionError, len(readyNodes))

	levelContext, cancelLevel := context.WithCancel(ctx)
	defer cancelLevel()

	var semaphore chan struct{}
	if run.graph.config.maxConcurrency > 0 {
		semaphore = make(chan struct{}, run.graph.config.maxConcurrency)
	}

	failFast := run.graph.config.errorStrategy != ErrorStrategyContinueOnError

	for _, nodeID := range readyNodes {
		waitGroup.Add(1)

		go func(executingNodeID string) {
			defer waitGroup.Done()

			if semaphore != nil {
				select {
				case semaphore <- struct{}{}:
					defer func() { <-semaphore }()
				case <-levelContext.Done():
					return
				}
			}

			if levelContext.Err() != nil {
				return
			}

			if err := run.executeNode(levelContext, executingNodeID, levelIndex); err != nil {
				errorChannel <- nodeExecutionError{nodeID: executingNodeID, err: err}
				if failFast {
					cancelLevel()
				}
			}
		}(nodeID)
	}

	waitGroup.Wait()
	close(errorChannel)

	var firstError *nodeExecutionError
	for nodeError := range errorChannel {
		if firstError == nil {
			firstError = &nodeError
		}
	}

	// under continue-on-error the failure stays in state and dependents are skipped
	if firstError == nil || !failFast {
		return nil
	}
	return fmt.Errorf("node %q failed: %w", firstError.nodeID, firstError.err)
}

type nodeExecutionError struct {
	nodeID string
	err    error
}

// executeNode runs one node with its timeout, span and status bookkeeping.
func (run *execution[T]) executeNode(ctx context.Context, nodeID string, levelIndex int) error {
	graphNode := run.graph.nodes[nodeID]

	if err := run.state.SetNodeStatus(ctx, nodeID, NodeRunning); err != nil {
		return fmt.Errorf("failed to set node %q status to running: %w", nodeID, err)
	}

	nodeContext := ctx
	run.observeNodeStart(&nodeContext, nodeID, levelIndex, graphNode.dependencies)

	if graphNode.timeout > 0 {
		var cancel context.CancelFunc
		nodeContext, cancel = context.WithTimeout(nodeContext, graphNode.timeout)
		defer cancel()
	}

	nodeInput, err := run.assembleNodeInput(nodeContext, graphNode)
	if err != nil {
		markNodeFailed(nodeContext, run.state, nodeID, err, 0)
		run.observeNodeFailed(nodeContext, nodeID, err, 0)
		return fmt.Errorf("failed to assemble input for node %q: %w", nodeID, err)
	}

	nodeStart := time.Now()
	result, execError := graphNode.executor.Execute(nodeContext, nodeInput)
	executionDuration := time.Since(nodeStart)

	if execError != nil {
		markNodeFailed(nodeContext, run.state, nodeID, execError, executionDuration)
		run.observeNodeFailed(nodeContext, nodeID, execError, executionDuration)
		return fmt.Errorf("node %q execution failed: %w", nodeID, execError)
	}

	if result == nil {
		result = &NodeResult{}
	}
	result.Duration = executionDuration

	if err := run.state.SetNodeResult(nodeContext, nodeID, result); err != nil {
		return fmt.Errorf("failed to store result for node %q: %w", nodeID, err)
	}
	if err := run.state.SetNodeStatus(nodeContext, nodeID, NodeCompleted); err != nil {
		return fmt.Errorf("failed to set node %q status to completed: %w", nodeID, err)
	}

	run.observeNodeCompleted(nodeContext, nodeID, result)

	return nil
}

func (run *execution[T]) assembleNodeInput(ctx context.Context, graphNode *node) (*NodeInput, error) {
	upstreamResults := make(map[string]*NodeResult, len(graphNode.dependencies))
	for _, depID := range graphNode.dependencies {
		result, err := run.state.GetNodeResult(ctx, depID)
		if err != nil {
			return nil, fmt.Errorf("failed to get result for upstream node %q: %w", depID, err)
		}
		if result != nil {
			upstreamResults[depID] = result
		}
	}

	nodeClient := run.graph.defaultClient
	if graphNode.nodeClient != nil {
		nodeClient = graphNode.nodeClient
	}

	return &NodeInput{
		UpstreamResults: upstreamResults,
		SharedState:     run.state,
		Params:          graphNode.params,
		Client:          nodeClient,
	}, nil
}

// parseOutputResult converts the output node's result to T: a direct type
// assertion first, then parse.ParseStringAs for string outputs.
func (run *execution[T]) parseOutputResult(ctx context.Context) (*T, error) {
	outputNodeID := run.graph.outputNodeID

	outputResult, err := run.state.GetNodeResult(ctx, outputNodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get output node result: %w", err)
	}
	if outputResult == nil {
		return nil, fmt.Errorf("output node %q has no result", outputNodeID)
	}
	if outputResult.Error != nil {
		return nil, fmt.Errorf("output node %q failed: %w", outputNodeID, outputResult.Error)
	}

	if typedResult, isTargetType := outputResult.Output.(*T); isTargetType {
		return typedResult, nil
	}
	if typedResult, isTargetType := outputResult.Output.(T); isTargetType {
		return &typedResult, nil
	}

	outputString, isString := outputResult.Output.(string)
	if !isString {
		return nil, fmt.Errorf("output node %q produced non-string, non-%T output of type %T", outputNodeID, *new(T), outputResult.Output)
	}

	parsedResult, parseError := parse.ParseStringAs[T](outputString)
	if parseError != nil {
		return nil, fmt.Errorf("failed to parse output as %T: %w", *new(T), parseError)
	}
	return &parsedResult, nil
}

func (run *execution[T]) allNodesCompleted(ctx context.Context) bool {
	for nodeID := range run.graph.nodes {
		status, err := run.state.GetNodeStatus(ctx, nodeID)
		if err != nil || status != NodeCompleted {
			return false
		}
	}
	return true
}

// result assembles the per-node report. State read errors leave a node out.
func (run *execution[T]) result(ctx context.Context, executionOverview *overview.Overview, data *T) *Result[T] {
	nodes := make(map[string]NodeInfo, len(run.graph.nodes))

	for _, nodeID := range run.graph.topologicalOrder {
		status, err := run.state.GetNodeStatus(context.WithoutCancel(ctx), nodeID)
		if err != nil {
			continue
		}

		info := NodeInfo{Status: status}
		if result, err := run.state.GetNodeResult(context.WithoutCancel(ctx), nodeID); err == nil && result != nil {
			info.Duration = result.Duration
			if result.Error != nil {
				info.Error = result.Error.Error()
			}
		}
		nodes[nodeID] = info
	}

	return &Result[T]{
		Data: data,
		Info: ExecutionInfo{
			Nodes:    nodes,
			Overview: executionOverview.Summary(),
		},
	}
}

// markNodeFailed sets NodeFailed and stores the error. State errors are
// dropped since the execution error is already being reported.
func markNodeFailed(ctx context.Context, stateProvider StateProvider, nodeID string, nodeError error, duration time.Duration) {
	_ = stateProvider.SetNodeStatus(ctx, nodeID, NodeFailed)  //nolint:errcheck
	_ = stateProvider.SetNodeResult(ctx, nodeID, &NodeResult{ //nolint:errcheck
		Error:    nodeError,
		Duration: duration,
	})
}
