// Package console reads commands from a terminal and prints responses.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hb-chen/skillrt/internal/dispatch"
)

type line struct {
	text string
	err  error
}

// Console is a line-oriented listener and speaker. An empty line counts as
// unrecognized input.
type Console struct {
	in     io.Reader
	prompt string

	outMu sync.Mutex
	out   io.Writer

	start sync.Once
	lines chan line
	done  chan struct{}
	close sync.Once
}

// New creates a console over in and out. prompt is printed before each
// read; it may be empty.
func New(in io.Reader, out io.Writer, prompt string) *Console {
	return &Console{
		in:     in,
		out:    out,
		prompt: prompt,
		lines:  make(chan line),
		done:   make(chan struct{}),
	}
}

func (c *Console) read() {
	defer close(c.lines)
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case c.lines <- line{text: scanner.Text()}:
		case <-c.done:
			return
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case c.lines <- line{err: err}:
	case <-c.done:
	}
}

// Listen implements dispatch.Listener.
func (c *Console) Listen(ctx context.Context) (dispatch.Input, error) {
	c.start.Do(func() { go c.read() })

	if c.prompt != "" {
		c.write(c.prompt)
	}

	select {
	case ln, ok := <-c.lines:
		if !ok {
			return dispatch.Input{}, io.EOF
		}
		if ln.err != nil {
			return dispatch.Input{}, ln.err
		}
		text := strings.TrimSpace(ln.text)
		if text == "" {
			return dispatch.Input{}, dispatch.ErrNotRecognized
		}
		return dispatch.Input{Text: text}, nil
	case <-ctx.Done():
		return dispatch.Input{}, ctx.Err()
	}
}

// Speak implements session.Speaker. Printing completes before it returns.
func (c *Console) Speak(_ context.Context, text string) <-chan error {
	done := make(chan error, 1)
	done <- c.write(text + "\n")
	return done
}

func (c *Console) write(s string) error {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, err := fmt.Fprint(c.out, s)
	return err
}

// Close stops the background reader. A read blocked on the underlying
// reader still finishes on its own.
func (c *Console) Close() error {
	c.close.Do(func() { close(c.done) })
	return nil
}
