// Package utils provides shared low-level helpers used throughout the
// scriptgraph internals: a JSON-over-HTTP POST helper for provider APIs,
// response-body cleanup, and string truncation for logs and prompts.
//
// Key entry points: [DoPostSync] for synchronous JSON round-trips,
// [TruncateString] and [Clip] for bounding text.
package utils
