package middleware

import "errors"

// ErrRetryExhausted is returned by the retry middleware when every attempt
// failed. It is joined with the last provider error.
var ErrRetryExhausted = errors.New("scriptgraph: all retry attempts exhausted")
