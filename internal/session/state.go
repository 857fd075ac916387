package session

import (
	"github.com/hb-chen/skillrt/internal/skill"
)

// State is a conversation session state.
type State int

const (
	StateIdle State = iota
	StateAwaitingConfirmation
	StateExecuting
	StateResponding
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateExecuting:
		return "executing"
	case StateResponding:
		return "responding"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// Kind tags how a single input was handled.
type Kind int

const (
	// KindOK means a skill ran and succeeded.
	KindOK Kind = iota
	// KindNoMatch means no skill matched; the fallback was spoken.
	KindNoMatch
	// KindDeclined means a pending command was cancelled, explicitly or by
	// timeout.
	KindDeclined
	// KindFault means the skill failed; Err holds a *SkillExecutionError.
	KindFault
	// KindPrompted means the session is waiting for a confirmation.
	KindPrompted
	// KindSkipped means the input did not advance the session.
	KindSkipped
	// KindExit means the user ended the session.
	KindExit
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNoMatch:
		return "no_match"
	case KindDeclined:
		return "declined"
	case KindFault:
		return "fault"
	case KindPrompted:
		return "prompted"
	case KindSkipped:
		return "skipped"
	case KindExit:
		return "exit"
	}
	return "unknown"
}

// Result is the outcome of one input. Expected flow never surfaces as a Go
// error; Err is only set for faults and for input refused after shutdown.
type Result struct {
	Kind       Kind
	State      State // state after the input was handled
	Skill      string
	Params     skill.Params
	Confidence float64
	Response   string

	// Epoch identifies the confirmation prompt for KindPrompted results.
	Epoch uint64

	// Seq is the log sequence number of the turn, zero if nothing was
	// logged or the append failed.
	Seq int64

	Err error
}

// Command is a routed input.
type Command struct {
	Text       string
	Skill      string
	Params     skill.Params
	Confidence float64

	skill *skill.Skill
}
