package tracer

import (
	"context"
	"time"

	"github.com/hb-chen/skillrt/internal/storage"
	"github.com/hb-chen/skillrt/pkg/logger"
)

// LogTracer implements TurnTracer using the operational logger
type LogTracer struct {
	level Level
	log   logger.Logger
}

// NewLogTracer creates a new log tracer. Unknown levels behave as standard.
func NewLogTracer(level Level) *LogTracer {
	return &LogTracer{level: level, log: logger.Named("tracer")}
}

func (l *LogTracer) TraceTransition(ctx context.Context, sessionID, from, to string) error {
	if l.level != LevelDetailed {
		return nil
	}
	l.log.Debugf("session=%s state %s -> %s", sessionID, from, to)
	return nil
}

func (l *LogTracer) TraceRoute(ctx context.Context, sessionID, text, skill string, confidence float64) error {
	if l.level == LevelMinimal {
		return nil
	}
	if skill == "" {
		l.log.Infof("session=%s no skill for %q", sessionID, truncate(text))
		return nil
	}
	l.log.Infof("session=%s routed %q to %s (confidence=%.2f)", sessionID, truncate(text), skill, confidence)
	return nil
}

func (l *LogTracer) TraceTurn(ctx context.Context, sessionID string, entry storage.LogEntry, duration time.Duration) error {
	if l.level == LevelMinimal && entry.Outcome == storage.OutcomeOK {
		return nil
	}
	l.log.Infof("session=%s turn seq=%d skill=%s outcome=%s duration=%v",
		sessionID, entry.Seq, entry.Skill, entry.Outcome, duration)
	if l.level == LevelDetailed {
		l.log.Debugf("session=%s response=%q", sessionID, truncate(entry.Response))
	}
	return nil
}

func (l *LogTracer) TraceError(ctx context.Context, sessionID, stage string, err error) error {
	// Always log errors regardless of level
	l.log.Errorf("session=%s stage=%s error=%v", sessionID, stage, err)
	return nil
}

func (l *LogTracer) Close() error {
	return nil
}

func truncate(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
