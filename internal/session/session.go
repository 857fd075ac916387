// Package session implements the per-run conversation state machine.
//
// A Session moves Idle -> (AwaitingConfirmation) -> Executing -> Responding
// -> Idle once per turn and is driven by a single goroutine. Only Terminate
// and the read accessors may be called concurrently with Handle.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hb-chen/skillrt/internal/router"
	"github.com/hb-chen/skillrt/internal/skill"
	"github.com/hb-chen/skillrt/internal/storage"
	"github.com/hb-chen/skillrt/internal/tracer"
	"github.com/hb-chen/skillrt/pkg/logger"
)

// Resolver picks a skill for input text. *router.Router implements it.
type Resolver interface {
	Resolve(ctx context.Context, text string) (router.Match, bool, error)
}

// Store is the part of the preference and log store a session needs.
// *storage.SQLiteStore implements it.
type Store interface {
	GetPreference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
	UnsetPreference(ctx context.Context, key string) (bool, error)
	AppendLog(ctx context.Context, e storage.LogEntry) (storage.LogEntry, error)
	RecentLog(ctx context.Context, limit int) ([]storage.LogEntry, error)
}

// Speaker emits response text. The returned channel yields once when
// playback completes and must be buffered.
type Speaker interface {
	Speak(ctx context.Context, text string) <-chan error
}

// Session is one conversation with the user.
type Session struct {
	id        string
	createdAt time.Time

	resolver Resolver
	store    Store
	speaker  Speaker
	tracer   tracer.TurnTracer
	cfg      Config
	now      func() time.Time
	log      logger.Logger

	affirmative map[string]struct{}
	negative    map[string]struct{}
	exit        map[string]struct{}

	mu      sync.Mutex
	state   State
	pending *Command
	epoch   uint64
	turn    int
	cancel  context.CancelCauseFunc
}

// New creates a session in the Idle state.
func New(resolver Resolver, store Store, speaker Speaker, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		resolver: resolver,
		store:    store,
		speaker:  speaker,
		tracer:   tracer.NopTracer{},
		cfg:      DefaultConfig(),
		now:      time.Now,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.createdAt = s.now()
	s.log = logger.Named("session").Named(s.id[:8])
	s.affirmative = tokenSet(s.cfg.Affirmative)
	s.negative = tokenSet(s.cfg.Negative)
	s.exit = tokenSet(s.cfg.Exit)
	return s
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t = normalizeToken(t); t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

func normalizeToken(text string) string {
	return strings.ToLower(strings.Trim(text, tokenCutset))
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Turn returns the number of inputs accepted so far.
func (s *Session) Turn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn
}

// Pending returns the command awaiting confirmation and its prompt epoch.
func (s *Session) Pending() (Command, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Command{}, 0, false
	}
	return *s.pending, s.epoch, true
}

// transition moves to state to. Terminated is final; the returned bool is
// false if the session was already terminated.
func (s *Session) transition(ctx context.Context, to State) bool {
	s.mu.Lock()
	from := s.state
	if from == StateTerminated {
		s.mu.Unlock()
		return false
	}
	s.state = to
	s.mu.Unlock()

	if from != to {
		s.tracer.TraceTransition(ctx, s.id, from.String(), to.String())
	}
	return true
}

// Skip records an input that produced no transcript. The session does not
// advance and nothing is logged.
func (s *Session) Skip() Result {
	st := s.State()
	r := Result{Kind: KindSkipped, State: st}
	if st == StateTerminated {
		r.Err = ErrTerminated
	}
	return r
}

// Handle processes one line of user input and returns once the turn it
// belongs to is complete or a confirmation has been requested.
func (s *Session) Handle(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	st := s.state
	if st == StateTerminated {
		s.mu.Unlock()
		return Result{Kind: KindSkipped, State: st, Err: ErrTerminated}
	}
	if text == "" {
		s.mu.Unlock()
		return Result{Kind: KindSkipped, State: st}
	}
	s.turn++
	s.mu.Unlock()

	if _, ok := s.exit[normalizeToken(text)]; ok {
		return s.leave(ctx, text)
	}
	if st == StateAwaitingConfirmation {
		return s.confirm(ctx, text)
	}
	return s.dispatch(ctx, text)
}

func (s *Session) dispatch(ctx context.Context, text string) Result {
	m, ok, err := s.resolver.Resolve(ctx, text)
	if err != nil {
		s.log.Warnf("resolve %q: %v", text, err)
		s.tracer.TraceError(ctx, s.id, "route", err)
	}
	if !ok {
		s.tracer.TraceRoute(ctx, s.id, text, "", 0)
		r := Result{Kind: KindNoMatch}
		s.respond(ctx, &r, storage.LogEntry{
			Command:  text,
			Response: s.cfg.Messages.Fallback,
			Outcome:  storage.OutcomeNoMatch,
		})
		return r
	}
	s.tracer.TraceRoute(ctx, s.id, text, m.Skill.Name, m.Confidence)

	cmd := Command{
		Text:       text,
		Skill:      m.Skill.Name,
		Params:     m.Params,
		Confidence: m.Confidence,
		skill:      m.Skill,
	}
	if m.Skill.RequiresConfirmation {
		return s.prompt(ctx, cmd)
	}
	return s.execute(ctx, cmd)
}

func (s *Session) prompt(ctx context.Context, cmd Command) Result {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return Result{Kind: KindSkipped, State: StateTerminated, Err: ErrTerminated}
	}
	s.epoch++
	epoch := s.epoch
	s.pending = &cmd
	s.mu.Unlock()
	s.transition(ctx, StateAwaitingConfirmation)

	text := s.confirmPrompt(cmd)
	s.speak(ctx, text)
	return Result{
		Kind:       KindPrompted,
		State:      StateAwaitingConfirmation,
		Skill:      cmd.Skill,
		Params:     cmd.Params,
		Confidence: cmd.Confidence,
		Response:   text,
		Epoch:      epoch,
	}
}

func (s *Session) confirmPrompt(cmd Command) string {
	template := cmd.skill.ConfirmPrompt
	if template == "" {
		template = s.cfg.Messages.Confirm
	}
	params := make(skill.Params, len(cmd.Params)+2)
	params["command"] = cmd.Text
	params["skill"] = cmd.Skill
	for k, v := range cmd.Params {
		params[k] = v
	}
	return skill.Expand(template, params)
}

// takePending clears and returns the pending command.
func (s *Session) takePending() *Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd := s.pending
	s.pending = nil
	return cmd
}

func (s *Session) confirm(ctx context.Context, text string) Result {
	cmd := s.takePending()
	if cmd == nil {
		// lost a race with Terminate
		return s.Skip()
	}
	token := normalizeToken(text)
	if _, ok := s.affirmative[token]; ok {
		return s.execute(ctx, *cmd)
	}
	if _, ok := s.negative[token]; !ok {
		s.log.Infof("unrecognized confirmation %q, cancelling %s", text, cmd.Skill)
	}
	return s.decline(ctx, *cmd)
}

// Expire cancels the pending command if epoch identifies the prompt that is
// still outstanding. Stale epochs are skipped.
func (s *Session) Expire(ctx context.Context, epoch uint64) Result {
	s.mu.Lock()
	if s.state != StateAwaitingConfirmation || s.pending == nil || s.epoch != epoch {
		st := s.state
		s.mu.Unlock()
		return Result{Kind: KindSkipped, State: st}
	}
	cmd := *s.pending
	s.pending = nil
	s.mu.Unlock()

	s.log.Infof("confirmation for %s timed out", cmd.Skill)
	return s.decline(ctx, cmd)
}

// leave answers an exit command and terminates the session. A pending
// command is cancelled first.
func (s *Session) leave(ctx context.Context, text string) Result {
	if cmd := s.takePending(); cmd != nil {
		s.log.Infof("exit requested, cancelling %s", cmd.Skill)
		s.logCancelled(ctx, *cmd)
	}

	r := Result{Kind: KindExit}
	s.respond(ctx, &r, storage.LogEntry{
		Command:  text,
		Response: s.cfg.Messages.Farewell,
		Outcome:  storage.OutcomeOK,
	})
	s.Terminate(ctx)
	r.State = s.State()
	return r
}

func (s *Session) decline(ctx context.Context, cmd Command) Result {
	r := Result{
		Kind:       KindDeclined,
		Skill:      cmd.Skill,
		Params:     cmd.Params,
		Confidence: cmd.Confidence,
	}
	s.respond(ctx, &r, storage.LogEntry{
		Command:  cmd.Text,
		Skill:    cmd.Skill,
		Response: s.cfg.Messages.Cancelled,
		Outcome:  storage.OutcomeCancelled,
	})
	return r
}

// respond speaks the entry's response, appends it to the log and returns the
// session to Idle. Failures here never fail the turn.
func (s *Session) respond(ctx context.Context, r *Result, entry storage.LogEntry) {
	start := s.now()
	s.transition(ctx, StateResponding)

	r.Response = entry.Response
	s.speak(ctx, entry.Response)

	entry.At = s.now()
	stored, err := s.appendLog(ctx, entry)
	if err != nil {
		s.log.Errorf("append log: %v", err)
		s.tracer.TraceError(ctx, s.id, "log", err)
	} else {
		r.Seq = stored.Seq
		entry = stored
	}
	s.tracer.TraceTurn(ctx, s.id, entry, s.now().Sub(start))

	s.transition(ctx, StateIdle)
	r.State = s.State()
}

// appendLog retries once after a concurrent modification. Shutdown must
// not lose the entry, so cancellation of ctx is ignored.
func (s *Session) appendLog(ctx context.Context, entry storage.LogEntry) (storage.LogEntry, error) {
	ctx = context.WithoutCancel(ctx)
	stored, err := s.store.AppendLog(ctx, entry)
	if errors.Is(err, storage.ErrConcurrentModification) {
		s.log.Warnf("log append conflicted, retrying")
		stored, err = s.store.AppendLog(ctx, entry)
	}
	return stored, err
}

func (s *Session) speak(ctx context.Context, text string) {
	if s.speaker == nil || text == "" {
		return
	}
	done := s.speaker.Speak(ctx, text)
	if !s.cfg.SerialSpeech || done == nil {
		return
	}
	select {
	case err := <-done:
		if err != nil {
			s.log.Warnf("speak: %v", err)
		}
	case <-ctx.Done():
	}
}

// Terminate ends the session. A running skill is cancelled with cause
// shutdown and a pending command is logged as cancelled. Terminate is
// idempotent.
func (s *Session) Terminate(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return
	}
	from := s.state
	s.state = StateTerminated
	pending := s.pending
	s.pending = nil
	cancel := s.cancel
	s.mu.Unlock()

	s.tracer.TraceTransition(ctx, s.id, from.String(), StateTerminated.String())
	if cancel != nil {
		cancel(errShutdown)
	}
	if pending != nil {
		s.logCancelled(ctx, *pending)
	}
	s.log.Infof("session terminated after %d turn(s)", s.Turn())
}

// logCancelled records a pending command that was dropped without a turn
// of its own.
func (s *Session) logCancelled(ctx context.Context, cmd Command) {
	_, err := s.appendLog(ctx, storage.LogEntry{
		Command:  cmd.Text,
		Skill:    cmd.Skill,
		Response: s.cfg.Messages.Cancelled,
		Outcome:  storage.OutcomeCancelled,
		At:       s.now(),
	})
	if err != nil {
		s.log.Errorf("append log for cancelled %s: %v", cmd.Skill, err)
	}
}
