// Package graph runs directed acyclic graphs of processing steps. Each node
// is a [NodeExecutor]; nodes of the same topological level run in parallel
// and read their dependencies' results from NodeInput.UpstreamResults.
//
// Graph[T] is generic over the output type: the output node's result is
// returned as T, directly or through parse.ParseStringAs[T] when the node
// produced a string.
//
// Build graphs with [NewGraphBuilder] and run them with [Graph.Execute]. The
// script creator pipelines in package graphs are built on this package.
//
// Features:
//   - Kahn ordering with cycle detection
//   - Per-node client override, params and timeout
//   - Conditional edges
//   - Fail-fast or continue-on-error strategies
//   - Spans, counters and histograms through the client's observer
//   - Token usage aggregated in the context's overview.Overview
//
//	g, err := graph.NewGraphBuilder[string](defaultClient).
//	    AddNode("fetch", fetchExecutor).
//	    AddNode("generate", generateExecutor).
//	    AddEdge("fetch", "generate").
//	    Build()
//
//	result, err := g.Execute(ctx, map[string]any{"url": "https://example.com"})
//	fmt.Println(*result.Data)
package graph
