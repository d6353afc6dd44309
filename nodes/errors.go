package nodes

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyScript is returned when a model reply holds no script.
	ErrEmptyScript = errors.New("model returned an empty script")
	// ErrEmptyURL is returned when the fetch node has no URL to fetch.
	ErrEmptyURL = errors.New("URL cannot be empty")
	// ErrNoClient is returned by model-backed nodes that run without a client.
	ErrNoClient = errors.New("node requires a model client")
	// ErrMissingInput is returned when a required upstream artifact or state
	// key is absent.
	ErrMissingInput = errors.New("missing node input")
)

// SourceFailure attributes a sub-pipeline failure to its source.
type SourceFailure struct {
	URL   string
	Index int
	Err   error
}

func (failure *SourceFailure) Error() string {
	return fmt.Sprintf("source %d (%s): %v", failure.Index, failure.URL, failure.Err)
}

func (failure *SourceFailure) Unwrap() error {
	return failure.Err
}
