// Package client wraps an [ai.Provider] with the pieces every model call in
// scriptgraph needs: a default model and system prompt, generation settings,
// a middleware chain and observability.
//
// A Client is stateless between calls and safe for concurrent use, so one
// instance serves every sub-pipeline of a run. Usage is recorded into the
// [overview.Overview] carried by the call's context, if any.
package client
