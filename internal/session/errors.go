package session

import (
	"errors"
	"fmt"
)

var (
	// ErrTerminated is returned for input offered after Terminate.
	ErrTerminated = errors.New("session terminated")

	// ErrTurnEnded is returned by a turn-scoped preference handle used after
	// its turn completed.
	ErrTurnEnded = errors.New("turn has ended")

	errSkillTimeout = errors.New("skill timed out")
	errShutdown     = errors.New("session shutting down")
)

// Cause classifies a SkillExecutionError.
type Cause string

const (
	CauseTimeout  Cause = "timeout"
	CauseShutdown Cause = "shutdown"
	// CauseHandler is a returned error or a recovered panic.
	CauseHandler Cause = "handler"
	// CauseReported is a Reply with StatusError.
	CauseReported Cause = "reported"
)

// SkillExecutionError describes a failed skill execution.
type SkillExecutionError struct {
	Skill string
	Cause Cause
	Err   error
}

func (e *SkillExecutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("skill %s failed: %s", e.Skill, e.Cause)
	}
	return fmt.Sprintf("skill %s failed: %s: %v", e.Skill, e.Cause, e.Err)
}

func (e *SkillExecutionError) Unwrap() error {
	return e.Err
}
