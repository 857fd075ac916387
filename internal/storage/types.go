package storage

import (
	"errors"
	"fmt"
	"time"
)

// Outcome classifies how a turn ended.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeError     Outcome = "error"
	OutcomeNoMatch   Outcome = "no_match"
	OutcomeCancelled Outcome = "cancelled"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeOK, OutcomeError, OutcomeNoMatch, OutcomeCancelled:
		return true
	}
	return false
}

// LogEntry is one completed turn. Entries are immutable once appended.
type LogEntry struct {
	Seq      int64     `json:"seq"`
	Command  string    `json:"command"`
	Skill    string    `json:"skill,omitempty"` // empty when nothing matched
	Response string    `json:"response"`
	Outcome  Outcome   `json:"outcome"`
	At       time.Time `json:"timestamp"`
}

var (
	// ErrConcurrentModification is returned when another writer changed the
	// store since this handle last wrote or synchronized. The handle is
	// resynchronized before returning, so the caller may retry.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrPersistence wraps failures of the underlying database.
	ErrPersistence = errors.New("persistence failure")

	ErrInvalidEntry = errors.New("invalid log entry")
)

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
