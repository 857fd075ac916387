package tracer

import (
	"context"
	"time"

	"github.com/hb-chen/skillrt/internal/storage"
)

// NopTracer discards every event.
type NopTracer struct{}

func (NopTracer) TraceTransition(context.Context, string, string, string) error { return nil }

func (NopTracer) TraceRoute(context.Context, string, string, string, float64) error { return nil }

func (NopTracer) TraceTurn(context.Context, string, storage.LogEntry, time.Duration) error {
	return nil
}

func (NopTracer) TraceError(context.Context, string, string, error) error { return nil }

func (NopTracer) Close() error { return nil }
