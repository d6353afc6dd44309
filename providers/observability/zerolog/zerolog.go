// Package zerolog provides an observability.Provider backed by
// github.com/rs/zerolog. Spans, metrics and log records are all emitted as
// structured zerolog events, which makes it a drop-in alternative to the slog
// observer for deployments that already ship zerolog JSON logs.
package zerolog

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/leofalp/scriptgraph/providers/observability"
)

// Observer implements observability.Provider on top of a zerolog.Logger.
type Observer struct {
	logger   zerolog.Logger
	mu       sync.Mutex
	counters map[string]*counter
}

var _ observability.Provider = (*Observer)(nil)

// New wraps an existing zerolog logger.
func New(logger zerolog.Logger) *Observer {
	return &Observer{
		logger:   logger,
		counters: make(map[string]*counter),
	}
}

// NewWriter builds a timestamped JSON logger writing to w at level, parsed
// with zerolog.ParseLevel; unknown levels fall back to info.
func NewWriter(w io.Writer, level string) *Observer {
	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsedLevel = zerolog.InfoLevel
	}
	return New(zerolog.New(w).Level(parsedLevel).With().Timestamp().Logger())
}

func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	withAttrs(o.logger.Debug(), attrs).
		Str("span", name).
		Str("event", "span.start").
		Msg("Span started")

	return ctx, &span{
		name:      name,
		startTime: time.Now(),
		logger:    o.logger,
		attrs:     attrs,
	}
}

func (o *Observer) Counter(name string) observability.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()

	existing, exists := o.counters[name]
	if !exists {
		existing = &counter{name: name, logger: o.logger}
		o.counters[name] = existing
	}
	return existing
}

func (o *Observer) Histogram(name string) observability.Histogram {
	return &histogram{name: name, logger: o.logger}
}

func (o *Observer) Trace(_ context.Context, msg string, attrs ...observability.Attribute) {
	withAttrs(o.logger.Trace(), attrs).Msg(msg)
}

func (o *Observer) Debug(_ context.Context, msg string, attrs ...observability.Attribute) {
	withAttrs(o.logger.Debug(), attrs).Msg(msg)
}

func (o *Observer) Info(_ context.Context, msg string, attrs ...observability.Attribute) {
	withAttrs(o.logger.Info(), attrs).Msg(msg)
}

func (o *Observer) Warn(_ context.Context, msg string, attrs ...observability.Attribute) {
	withAttrs(o.logger.Warn(), attrs).Msg(msg)
}

func (o *Observer) Error(_ context.Context, msg string, attrs ...observability.Attribute) {
	withAttrs(o.logger.Error(), attrs).Msg(msg)
}

type span struct {
	name      string
	startTime time.Time
	logger    zerolog.Logger
	mu        sync.Mutex
	attrs     []observability.Attribute
}

func (s *span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	withAttrs(s.logger.Info(), s.attrs).
		Str("span", s.name).
		Str("event", "span.end").
		Dur("duration", time.Since(s.startTime)).
		Msg("Span ended")
}

func (s *span) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *span) SetStatus(code observability.StatusCode, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attrs = append(s.attrs, observability.String(observability.AttrStatus, code.String()))
	if description != "" {
		s.attrs = append(s.attrs, observability.String(observability.AttrStatusDescription, description))
	}
}

func (s *span) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attrs = append(s.attrs, observability.Error(err))
	s.logger.Error().Err(err).Str("span", s.name).Str("event", "error").Msg("Span error")
}

func (s *span) AddEvent(name string, attrs ...observability.Attribute) {
	withAttrs(s.logger.Debug(), attrs).Str("span", s.name).Str("event", name).Msg("Span event")
}

type counter struct {
	name   string
	logger zerolog.Logger
	value  atomic.Int64
}

func (c *counter) Add(_ context.Context, value int64, attrs ...observability.Attribute) {
	current := c.value.Add(value)
	withAttrs(c.logger.Debug(), attrs).
		Str("metric", c.name).
		Str("type", "counter").
		Int64("value", current).
		Int64("delta", value).
		Msg("Counter")
}

type histogram struct {
	name   string
	logger zerolog.Logger
}

func (h *histogram) Record(_ context.Context, value float64, attrs ...observability.Attribute) {
	withAttrs(h.logger.Debug(), attrs).
		Str("metric", h.name).
		Str("type", "histogram").
		Float64("value", value).
		Msg("Histogram")
}

// withAttrs copies attributes onto event; durations keep their unit.
func withAttrs(event *zerolog.Event, attrs []observability.Attribute) *zerolog.Event {
	for _, attr := range attrs {
		switch value := attr.Value.(type) {
		case string:
			event = event.Str(attr.Key, value)
		case int:
			event = event.Int(attr.Key, value)
		case int64:
			event = event.Int64(attr.Key, value)
		case float64:
			event = event.Float64(attr.Key, value)
		case bool:
			event = event.Bool(attr.Key, value)
		case time.Duration:
			event = event.Dur(attr.Key, value)
		case []string:
			event = event.Strs(attr.Key, value)
		default:
			event = event.Interface(attr.Key, value)
		}
	}
	return event
}
