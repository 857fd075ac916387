package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestReplaceLogger_RoutesThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := globalLogger
	t.Cleanup(func() { globalLogger = prev; zapLogger = nil })

	ReplaceLogger(zap.New(core))

	Infof("turn %d complete", 3)
	Named("store").Warnf("append failed: %s", "disk full")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "turn 3 complete", entries[0].Message)
		assert.Equal(t, "store", entries[1].LoggerName)
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	}
}

func TestNoOpLogger_IsDefault(t *testing.T) {
	var l Logger = noOpLogger{}
	assert.NotPanics(t, func() {
		l.Infof("ignored %d", 1)
		l.Named("x").Errorf("ignored")
	})
}
