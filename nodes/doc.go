// Package nodes holds the graph.NodeExecutor implementations the script
// creator workflows are assembled from.
//
// The single-source pipeline chains [Fetch], [Parse] and [GenerateScraper].
// The multi-source workflow runs [GraphIterator], which builds and runs one
// single-source pipeline per URL, followed by [MergeGeneratedScripts].
//
// Nodes read the user prompt and the source list from the graph shared state
// under [KeyUserPrompt], [KeyURL] and [KeyURLs], and hand their artifacts to
// downstream nodes through their NodeResult output.
package nodes
