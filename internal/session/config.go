package session

import (
	"time"

	"github.com/hb-chen/skillrt/internal/tracer"
)

const (
	DefaultSkillTimeout = 30 * time.Second

	// confirmation and exit tokens are compared after trimming these
	tokenCutset = ".!?,;: \t"
)

// Messages are the fixed responses the session speaks on its own.
type Messages struct {
	Fallback  string
	Cancelled string
	Apology   string
	// Confirm is used when a skill has no prompt of its own. It may
	// reference {command}, {skill} and any slot.
	Confirm  string
	Farewell string
	// Done is spoken when a skill succeeds without saying anything.
	Done string
}

// Config holds session behaviour settings.
type Config struct {
	Affirmative []string
	Negative    []string
	// Exit tokens end the session from any state.
	Exit         []string
	SkillTimeout time.Duration
	SerialSpeech bool
	Messages     Messages
}

// DefaultConfig returns the default session configuration
func DefaultConfig() Config {
	return Config{
		Affirmative:  []string{"yes", "y", "confirm"},
		Negative:     []string{"no", "n", "cancel"},
		Exit:         []string{"exit", "quit", "goodbye"},
		SkillTimeout: DefaultSkillTimeout,
		SerialSpeech: true,
		Messages: Messages{
			Fallback:  "Sorry, I didn't understand that.",
			Cancelled: "Okay, cancelled.",
			Apology:   "Sorry, something went wrong while running {skill}.",
			Confirm:   "Do you want me to {command}? Say yes or no.",
			Farewell:  "Goodbye!",
			Done:      "Done.",
		},
	}
}

// withDefaults fills zero fields of c from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if len(c.Affirmative) == 0 {
		c.Affirmative = d.Affirmative
	}
	if len(c.Negative) == 0 {
		c.Negative = d.Negative
	}
	if len(c.Exit) == 0 {
		c.Exit = d.Exit
	}
	if c.SkillTimeout <= 0 {
		c.SkillTimeout = d.SkillTimeout
	}
	if c.Messages.Fallback == "" {
		c.Messages.Fallback = d.Messages.Fallback
	}
	if c.Messages.Cancelled == "" {
		c.Messages.Cancelled = d.Messages.Cancelled
	}
	if c.Messages.Apology == "" {
		c.Messages.Apology = d.Messages.Apology
	}
	if c.Messages.Confirm == "" {
		c.Messages.Confirm = d.Messages.Confirm
	}
	if c.Messages.Farewell == "" {
		c.Messages.Farewell = d.Messages.Farewell
	}
	if c.Messages.Done == "" {
		c.Messages.Done = d.Messages.Done
	}
	return c
}

// Option configures a Session.
type Option func(*Session)

// WithConfig replaces the session configuration. Zero fields keep their
// defaults.
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		s.cfg = cfg.withDefaults()
	}
}

// WithTracer installs a turn tracer.
func WithTracer(t tracer.TurnTracer) Option {
	return func(s *Session) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}
