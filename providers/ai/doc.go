// Package ai defines the shared, provider-agnostic types and the [Provider]
// interface used by every LLM backend. Each provider's conversion layer maps
// [ChatRequest] and [ChatResponse] to its own wire format, keeping nodes and
// graphs decoupled from provider-specific details.
package ai
