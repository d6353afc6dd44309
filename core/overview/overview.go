package overview

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/leofalp/scriptgraph/providers/ai"
)

type contextKey string

const overviewContextKey contextKey = "overview"

// Overview aggregates request counts, token usage and timing for one run.
// It is safe for concurrent use.
type Overview struct {
	mu sync.Mutex

	totalUsage     ai.Usage
	requests       int
	failedRequests int
	modelUsage     map[string]int

	executionStartTime time.Time
	executionEndTime   time.Time
}

// Summary is a point-in-time copy of an Overview.
type Summary struct {
	TotalUsage         ai.Usage       `json:"total_usage"`
	Requests           int            `json:"requests"`
	FailedRequests     int            `json:"failed_requests"`
	TokensByModel      map[string]int `json:"tokens_by_model,omitempty"`
	ExecutionStartTime time.Time      `json:"execution_start_time,omitempty"`
	ExecutionEndTime   time.Time      `json:"execution_end_time,omitempty"`
	Duration           time.Duration  `json:"duration"`
}

// New returns an empty Overview.
func New() *Overview {
	return &Overview{modelUsage: make(map[string]int)}
}

// OverviewFromContext retrieves the Overview from the context, creating one if
// it does not already exist. The context pointer is updated in place when a
// new Overview is created so callers see the enriched context.
func OverviewFromContext(ctx *context.Context) *Overview {
	if overview, ok := Lookup(*ctx); ok {
		return overview
	}

	overview := New()
	*ctx = overview.ToContext(*ctx)
	return overview
}

// Lookup returns the Overview stored in ctx, if any.
func Lookup(ctx context.Context) (*Overview, bool) {
	if ctx == nil {
		return nil, false
	}
	overview, ok := ctx.Value(overviewContextKey).(*Overview)
	return overview, ok && overview != nil
}

// ToContext stores the Overview in the given context and returns the enriched context.
func (overview *Overview) ToContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, overviewContextKey, overview)
}

// RecordRequest counts one model request. A non-nil err marks it failed.
func (overview *Overview) RecordRequest(err error) {
	overview.mu.Lock()
	defer overview.mu.Unlock()

	overview.requests++
	if err != nil {
		overview.failedRequests++
	}
}

// IncludeUsage accumulates token usage from a model response. model may be
// empty when the provider does not report it.
func (overview *Overview) IncludeUsage(model string, usage *ai.Usage) {
	if usage == nil {
		return
	}

	overview.mu.Lock()
	defer overview.mu.Unlock()

	overview.totalUsage.PromptTokens += usage.PromptTokens
	overview.totalUsage.CompletionTokens += usage.CompletionTokens
	overview.totalUsage.TotalTokens += usage.TotalTokens
	overview.totalUsage.CachedTokens += usage.CachedTokens

	if model != "" {
		if overview.modelUsage == nil {
			overview.modelUsage = make(map[string]int)
		}
		overview.modelUsage[model] += usage.TotalTokens
	}
}

// StartExecution marks the start of the run. Nested graphs share their
// parent's Overview, so only the first call takes effect.
func (overview *Overview) StartExecution() {
	overview.mu.Lock()
	defer overview.mu.Unlock()

	if overview.executionStartTime.IsZero() {
		overview.executionStartTime = time.Now()
	}
}

// EndExecution marks the end of the run. The latest call wins.
func (overview *Overview) EndExecution() {
	overview.mu.Lock()
	defer overview.mu.Unlock()

	overview.executionEndTime = time.Now()
}

// ExecutionDuration returns the run duration, or 0 if the run hasn't both
// started and ended.
func (overview *Overview) ExecutionDuration() time.Duration {
	overview.mu.Lock()
	defer overview.mu.Unlock()

	return overview.durationLocked()
}

func (overview *Overview) durationLocked() time.Duration {
	if overview.executionStartTime.IsZero() || overview.executionEndTime.IsZero() {
		return 0
	}
	return overview.executionEndTime.Sub(overview.executionStartTime)
}

// Summary returns a copy of the current totals.
func (overview *Overview) Summary() Summary {
	overview.mu.Lock()
	defer overview.mu.Unlock()

	return Summary{
		TotalUsage:         overview.totalUsage,
		Requests:           overview.requests,
		FailedRequests:     overview.failedRequests,
		TokensByModel:      maps.Clone(overview.modelUsage),
		ExecutionStartTime: overview.executionStartTime,
		ExecutionEndTime:   overview.executionEndTime,
		Duration:           overview.durationLocked(),
	}
}
