package session

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/hb-chen/skillrt/internal/skill"
	"github.com/hb-chen/skillrt/internal/storage"
)

type execution struct {
	reply skill.Reply
	err   error
}

// execute runs the command's skill in its own goroutine and waits for it,
// the skill timeout or Terminate, whichever comes first.
func (s *Session) execute(ctx context.Context, cmd Command) Result {
	if !s.transition(ctx, StateExecuting) {
		return Result{Kind: KindSkipped, State: StateTerminated, Err: ErrTerminated}
	}

	sk := cmd.skill
	timeout := sk.Timeout
	if timeout <= 0 {
		timeout = s.cfg.SkillTimeout
	}

	execCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	execCtx, cancelTimeout := context.WithTimeoutCause(execCtx, timeout, errSkillTimeout)
	defer cancelTimeout()

	s.mu.Lock()
	s.cancel = cancel
	turn := s.turn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	prefs := &turnPreferences{store: s.store}
	sc := &turnContext{session: s, turn: turn, prefs: prefs}

	done := make(chan execution, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				s.log.Errorf("skill %s panicked: %v\n%s", sk.Name, v, debug.Stack())
				done <- execution{err: fmt.Errorf("panic: %v", v)}
			}
		}()
		reply, err := sk.Handler.Execute(execCtx, cmd.Params, sc)
		done <- execution{reply: reply, err: err}
	}()

	var res execution
	select {
	case res = <-done:
	case <-execCtx.Done():
		select {
		case res = <-done:
		default:
			res.err = context.Cause(execCtx)
		}
	}

	r := Result{
		Kind:       KindOK,
		Skill:      cmd.Skill,
		Params:     cmd.Params,
		Confidence: cmd.Confidence,
	}
	entry := storage.LogEntry{
		Command: cmd.Text,
		Skill:   cmd.Skill,
		Outcome: storage.OutcomeOK,
	}

	execErr := s.classify(execCtx, sk.Name, res)
	// the turn is over for the handler even if it is still running
	cancel(nil)
	prefs.end()

	if execErr != nil {
		s.log.Warnf("%v", execErr)
		s.tracer.TraceError(ctx, s.id, "execute", execErr)
		r.Kind = KindFault
		r.Err = execErr
		entry.Outcome = storage.OutcomeError
		entry.Response = s.apology(sk.Name, res.reply, execErr)
	} else {
		entry.Response = res.reply.Text
		if entry.Response == "" {
			entry.Response = s.cfg.Messages.Done
		}
	}

	s.respond(ctx, &r, entry)
	return r
}

// classify turns a handler result into a *SkillExecutionError, or nil on
// success.
func (s *Session) classify(execCtx context.Context, name string, res execution) *SkillExecutionError {
	switch {
	case res.err == nil && res.reply.Status != skill.StatusError:
		return nil
	case res.err == nil:
		return &SkillExecutionError{Skill: name, Cause: CauseReported, Err: errors.New(res.reply.Text)}
	case errors.Is(context.Cause(execCtx), errSkillTimeout):
		return &SkillExecutionError{Skill: name, Cause: CauseTimeout, Err: res.err}
	case execCtx.Err() != nil:
		return &SkillExecutionError{Skill: name, Cause: CauseShutdown, Err: res.err}
	default:
		return &SkillExecutionError{Skill: name, Cause: CauseHandler, Err: res.err}
	}
}

// apology is the response for a failed execution. A handler that reported
// its own failure text gets that text spoken.
func (s *Session) apology(name string, reply skill.Reply, err *SkillExecutionError) string {
	if err.Cause == CauseReported && reply.Text != "" {
		return reply.Text
	}
	return skill.Expand(s.cfg.Messages.Apology, skill.Params{"skill": name})
}

// turnPreferences is the preference handle given to one execution.
type turnPreferences struct {
	store Store

	mu    sync.RWMutex
	ended bool
}

func (p *turnPreferences) Get(ctx context.Context, key string) (string, bool, error) {
	return p.store.GetPreference(ctx, key)
}

func (p *turnPreferences) Set(ctx context.Context, key, value string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.ended {
		return ErrTurnEnded
	}
	return p.store.SetPreference(ctx, key, value)
}

func (p *turnPreferences) Unset(ctx context.Context, key string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.ended {
		return ErrTurnEnded
	}
	_, err := p.store.UnsetPreference(ctx, key)
	return err
}

// end waits for in-flight writes and rejects later ones.
func (p *turnPreferences) end() {
	p.mu.Lock()
	p.ended = true
	p.mu.Unlock()
}

// turnContext implements skill.SessionContext for one execution.
type turnContext struct {
	session *Session
	turn    int
	prefs   *turnPreferences
}

func (c *turnContext) SessionID() string { return c.session.id }

func (c *turnContext) Turn() int { return c.turn }

func (c *turnContext) Preferences() skill.Preferences { return c.prefs }

func (c *turnContext) History(ctx context.Context, limit int) ([]skill.Exchange, error) {
	entries, err := c.session.store.RecentLog(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]skill.Exchange, 0, len(entries))
	for _, e := range entries {
		out = append(out, skill.Exchange{
			Seq:      e.Seq,
			Command:  e.Command,
			Skill:    e.Skill,
			Response: e.Response,
			Outcome:  string(e.Outcome),
			At:       e.At,
		})
	}
	return out, nil
}
