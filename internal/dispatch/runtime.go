// Package dispatch runs a session against a listener.
//
// A producer goroutine blocks on the listener and queues events on a bounded
// channel. A single consumer drives the session one event at a time, so the
// session and the store only ever see one writer. Confirmation timeouts are
// timers that queue a synthetic event carrying the prompt's epoch.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hb-chen/skillrt/internal/session"
	"github.com/hb-chen/skillrt/pkg/logger"
)

const (
	DefaultQueueSize      = 1
	DefaultConfirmTimeout = 15 * time.Second
)

// ErrNotRecognized is returned by a Listener when input arrived but could
// not be turned into text. The turn is skipped.
var ErrNotRecognized = errors.New("input not recognized")

// Input is one line of user input.
type Input struct {
	Text string
	// From names the sender for listeners that serve more than one peer.
	From string
}

// Listener produces user input. Listen blocks until a line is available,
// ctx is done, or input ends with io.EOF.
type Listener interface {
	Listen(ctx context.Context) (Input, error)
}

type peerKey struct{}

// WithPeer returns a context that carries the sender of the input being
// handled. The runtime sets it for every turn so speakers can address the
// reply.
func WithPeer(ctx context.Context, from string) context.Context {
	return context.WithValue(ctx, peerKey{}, from)
}

// PeerFrom returns the sender stored by WithPeer, or "".
func PeerFrom(ctx context.Context) string {
	from, _ := ctx.Value(peerKey{}).(string)
	return from
}

type eventKind int

const (
	eventInput eventKind = iota
	eventUnrecognized
	eventConfirmTimeout
	eventEOF
)

type event struct {
	kind  eventKind
	text  string
	from  string
	epoch uint64
}

// Config holds runtime settings.
type Config struct {
	QueueSize      int
	ConfirmTimeout time.Duration
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithConfig sets queue size and confirmation timeout. Non-positive values
// keep the defaults.
func WithConfig(cfg Config) Option {
	return func(r *Runtime) {
		if cfg.QueueSize > 0 {
			r.cfg.QueueSize = cfg.QueueSize
		}
		if cfg.ConfirmTimeout > 0 {
			r.cfg.ConfirmTimeout = cfg.ConfirmTimeout
		}
	}
}

// WithObserver registers a callback invoked with every session result, on
// the consumer goroutine.
func WithObserver(fn func(session.Result)) Option {
	return func(r *Runtime) {
		r.observe = fn
	}
}

// Runtime owns the input channel and the session.
type Runtime struct {
	session  *session.Session
	listener Listener
	cfg      Config
	observe  func(session.Result)
	log      logger.Logger

	events chan event
	done   chan struct{}

	timerMu sync.Mutex
	timer   *time.Timer
}

// New creates a runtime for sess fed by listener.
func New(sess *session.Session, listener Listener, opts ...Option) *Runtime {
	r := &Runtime{
		session:  sess,
		listener: listener,
		cfg: Config{
			QueueSize:      DefaultQueueSize,
			ConfirmTimeout: DefaultConfirmTimeout,
		},
		log:  logger.Named("dispatch"),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.events = make(chan event, r.cfg.QueueSize)
	return r
}

// Session returns the session driven by r.
func (r *Runtime) Session() *session.Session {
	return r.session
}

// Run processes input until the listener reports io.EOF, ctx is cancelled,
// the listener fails or the user asks the session to exit. Events queued
// before EOF are handled first. The session is terminated before Run
// returns. Run must be called once.
func (r *Runtime) Run(ctx context.Context) error {
	r.log.Infof("runtime started: session=%s queue=%d confirm_timeout=%v",
		r.session.ID(), r.cfg.QueueSize, r.cfg.ConfirmTimeout)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return r.produce(gctx) })
	g.Go(func() error {
		defer stop()
		return r.consume(gctx)
	})
	err := g.Wait()

	close(r.done)
	r.disarm()
	r.session.Terminate(context.WithoutCancel(ctx))

	if err != nil {
		r.log.Errorf("runtime stopped: %v", err)
		return err
	}
	r.log.Infof("runtime stopped")
	return nil
}

func (r *Runtime) produce(ctx context.Context) error {
	for {
		in, err := r.listener.Listen(ctx)
		var ev event
		switch {
		case err == nil:
			ev = event{kind: eventInput, text: in.Text, from: in.From}
		case errors.Is(err, ErrNotRecognized):
			ev = event{kind: eventUnrecognized}
		case errors.Is(err, io.EOF):
			ev = event{kind: eventEOF}
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("listen: %w", err)
		}

		select {
		case r.events <- ev:
		case <-ctx.Done():
			return nil
		}
		if ev.kind == eventEOF {
			return nil
		}
	}
}

func (r *Runtime) consume(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-r.events:
			if ev.kind == eventEOF {
				r.log.Infof("input ended")
				return nil
			}
			if res := r.handle(ctx, ev); res.State == session.StateTerminated {
				r.log.Infof("session ended by user")
				return nil
			}
		}
	}
}

func (r *Runtime) handle(ctx context.Context, ev event) session.Result {
	ctx = WithPeer(ctx, ev.from)

	var res session.Result
	switch ev.kind {
	case eventInput:
		res = r.session.Handle(ctx, ev.text)
	case eventUnrecognized:
		res = r.session.Skip()
	case eventConfirmTimeout:
		res = r.session.Expire(ctx, ev.epoch)
	}

	switch {
	case res.Kind == session.KindPrompted:
		r.arm(res.Epoch, ev.from)
	case res.State != session.StateAwaitingConfirmation:
		r.disarm()
	}

	if r.observe != nil {
		r.observe(res)
	}
	return res
}

// arm starts the confirmation timer for the prompt with the given epoch,
// replacing any earlier one. The timeout is answered to from.
func (r *Runtime) arm(epoch uint64, from string) {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.cfg.ConfirmTimeout, func() {
		select {
		case r.events <- event{kind: eventConfirmTimeout, epoch: epoch, from: from}:
		case <-r.done:
		}
	})
}

func (r *Runtime) disarm() {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
