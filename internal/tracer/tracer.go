package tracer

import (
	"context"
	"fmt"
	"time"

	"github.com/hb-chen/skillrt/internal/storage"
	"github.com/hb-chen/skillrt/pkg/logger"
)

// TurnTracer observes a dispatch session
type TurnTracer interface {
	// TraceTransition records a session state change
	TraceTransition(ctx context.Context, sessionID, from, to string) error

	// TraceRoute records a routing decision; skill is empty on no match
	TraceRoute(ctx context.Context, sessionID, text, skill string, confidence float64) error

	// TraceTurn records a completed turn and how long it took
	TraceTurn(ctx context.Context, sessionID string, entry storage.LogEntry, duration time.Duration) error

	// TraceError records a recovered error; stage names where it happened
	TraceError(ctx context.Context, sessionID, stage string, err error) error

	// Close closes the tracer and flushes any pending data
	Close() error
}

// Level selects how much a LogTracer reports.
type Level string

const (
	LevelMinimal  Level = "minimal"
	LevelStandard Level = "standard"
	LevelDetailed Level = "detailed"
)

// MultiTracer combines multiple tracers
type MultiTracer struct {
	tracers []TurnTracer
}

// NewMultiTracer creates a new multi-tracer that forwards events to all tracers
func NewMultiTracer(tracers ...TurnTracer) *MultiTracer {
	return &MultiTracer{tracers: tracers}
}

// each forwards to every tracer; failures are logged and the last one returned.
func (m *MultiTracer) each(event string, fn func(TurnTracer) error) error {
	var lastErr error
	for _, t := range m.tracers {
		if err := fn(t); err != nil {
			logger.Warnf("[MultiTracer] Failed to trace %s: tracer=%T, error=%v", event, t, err)
			lastErr = err
		}
	}
	return lastErr
}

func (m *MultiTracer) TraceTransition(ctx context.Context, sessionID, from, to string) error {
	return m.each("transition", func(t TurnTracer) error {
		return t.TraceTransition(ctx, sessionID, from, to)
	})
}

func (m *MultiTracer) TraceRoute(ctx context.Context, sessionID, text, skill string, confidence float64) error {
	return m.each("route", func(t TurnTracer) error {
		return t.TraceRoute(ctx, sessionID, text, skill, confidence)
	})
}

func (m *MultiTracer) TraceTurn(ctx context.Context, sessionID string, entry storage.LogEntry, duration time.Duration) error {
	return m.each("turn", func(t TurnTracer) error {
		return t.TraceTurn(ctx, sessionID, entry, duration)
	})
}

func (m *MultiTracer) TraceError(ctx context.Context, sessionID, stage string, err error) error {
	return m.each("error", func(t TurnTracer) error {
		return t.TraceError(ctx, sessionID, stage, err)
	})
}

func (m *MultiTracer) Close() error {
	var errors []error
	for _, t := range m.tracers {
		if err := t.Close(); err != nil {
			logger.Warnf("[MultiTracer] Failed to close tracer: tracer=%T, error=%v", t, err)
			errors = append(errors, err)
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("failed to close %d tracer(s): %v", len(errors), errors)
	}
	return nil
}
