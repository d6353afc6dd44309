// Package overview tracks what a single run cost: model requests, failed
// requests, token usage per model and wall-clock time. One [Overview] is
// attached to the context at the start of a run with [Overview.ToContext];
// clients and nested graphs pick it up with [OverviewFromContext] and record
// into it concurrently.
package overview
