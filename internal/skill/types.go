package skill

import (
	"context"
	"time"
)

// Status is the outcome a handler reports for its own work.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Params are the slot values extracted from the matched trigger pattern.
type Params map[string]string

// Reply is what a handler hands back to the session for the user.
type Reply struct {
	Text   string
	Status Status
}

// OK builds a successful reply.
func OK(text string) Reply {
	return Reply{Text: text, Status: StatusOK}
}

// Failed builds a reply for a failure the handler detected itself.
func Failed(text string) Reply {
	return Reply{Text: text, Status: StatusError}
}

// Preferences is the turn-scoped view of the preference store given to
// handlers. Writes are rejected once the turn that produced the handle ends.
type Preferences interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Unset(ctx context.Context, key string) error
}

// Exchange is one past command/response pair from the interaction log.
type Exchange struct {
	Seq      int64
	Command  string
	Skill    string
	Response string
	Outcome  string
	At       time.Time
}

// SessionContext carries per-turn session state into a handler.
type SessionContext interface {
	SessionID() string
	Turn() int
	Preferences() Preferences
	// History returns up to limit most recent exchanges, oldest first.
	History(ctx context.Context, limit int) ([]Exchange, error)
}

// Handler defines the interface for executing skills. Implementations must
// return promptly once ctx is done.
type Handler interface {
	Execute(ctx context.Context, params Params, sc SessionContext) (Reply, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, params Params, sc SessionContext) (Reply, error)

func (f HandlerFunc) Execute(ctx context.Context, params Params, sc SessionContext) (Reply, error) {
	return f(ctx, params, sc)
}

// MatchHinter is implemented by handlers that can cheaply reject input
// before the router scans their patterns. Returning false skips the skill.
type MatchHinter interface {
	MatchHint(text string) bool
}

// Skill represents an installed skill
type Skill struct {
	Name        string
	Description string

	// Triggers are literal phrases or templates such as "uninstall {app}".
	// Order matters for tie-breaking inside a skill.
	Triggers []string

	RequiresConfirmation bool
	// ConfirmPrompt may reference slots, e.g. "Really uninstall {app}?".
	ConfirmPrompt string

	// Timeout bounds one execution; zero means the runtime default.
	Timeout time.Duration

	Handler Handler

	// Source is "builtin" or the path of the SKILL.md the skill came from.
	Source   string
	LoadedAt time.Time

	patterns []Pattern
}

// Patterns returns the compiled trigger patterns. They are populated when
// the skill is registered.
func (s *Skill) Patterns() []Pattern {
	return s.patterns
}

// Slots lists the distinct slot names used by the skill's triggers, in
// trigger order.
func (s *Skill) Slots() []string {
	var names []string
	seen := make(map[string]bool)
	for _, p := range s.patterns {
		for _, name := range p.Slots() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}
