// Package bus connects the runtime to a websocket message bus. Commands
// arrive as JSON messages of kind "command" and responses are sent back to
// the sender of the command being handled as kind "reply".
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hb-chen/skillrt/internal/dispatch"
	"github.com/hb-chen/skillrt/pkg/logger"
)

const (
	KindCommand = "command"
	KindReply   = "reply"

	writeWait = 5 * time.Second
)

// Message is the wire format on the bus.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Audio   []byte `json:"audio,omitempty"`
}

type incoming struct {
	msg *Message
	err error
}

// Bus is a listener and speaker over one websocket connection.
type Bus struct {
	conn *websocket.Conn
	name string
	log  logger.Logger

	writeMu sync.Mutex

	messages  chan incoming
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Dial connects to the bus at wsURL and identifies as name.
func Dial(ctx context.Context, wsURL, name string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bus url: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial bus: %w", err)
	}

	logger.Infof("Connected to bus: url=%s", wsURL)
	return New(conn, name), nil
}

// New wraps an established connection.
func New(conn *websocket.Conn, name string) *Bus {
	b := &Bus{
		conn:     conn,
		name:     name,
		log:      logger.Named("bus"),
		messages: make(chan incoming),
		done:     make(chan struct{}),
	}
	b.wg.Add(1)
	go b.read()
	return b
}

func (b *Bus) read() {
	defer b.wg.Done()
	defer close(b.messages)
	for {
		_, data, err := b.conn.ReadMessage()
		var in incoming
		if err != nil {
			if isClosed(err) || errors.Is(err, net.ErrClosed) {
				in.err = io.EOF
			} else {
				in.err = fmt.Errorf("bus read: %w", err)
			}
		} else {
			var m Message
			if err := json.Unmarshal(data, &m); err != nil {
				b.log.Warnf("dropping malformed message: %v", err)
				continue
			}
			in.msg = &m
		}

		select {
		case b.messages <- in:
		case <-b.done:
			return
		}
		if in.err != nil {
			return
		}
	}
}

// Listen implements dispatch.Listener. Messages that are not commands are
// ignored; audio without a transcript is reported as unrecognized.
func (b *Bus) Listen(ctx context.Context) (dispatch.Input, error) {
	for {
		select {
		case in, ok := <-b.messages:
			if !ok {
				return dispatch.Input{}, io.EOF
			}
			if in.err != nil {
				return dispatch.Input{}, in.err
			}
			m := in.msg
			if m.Kind != KindCommand {
				continue
			}
			if m.To != "" && m.To != b.name {
				continue
			}

			if m.Content == "" {
				if len(m.Audio) > 0 {
					b.log.Debugf("audio message from %s has no transcript", m.From)
				}
				return dispatch.Input{From: m.From}, dispatch.ErrNotRecognized
			}
			return dispatch.Input{Text: m.Content, From: m.From}, nil
		case <-ctx.Done():
			return dispatch.Input{}, ctx.Err()
		}
	}
}

// Speak implements session.Speaker. The reply goes to the peer carried by
// ctx (see dispatch.WithPeer); without one it is sent unaddressed.
func (b *Bus) Speak(ctx context.Context, text string) <-chan error {
	to := dispatch.PeerFrom(ctx)

	done := make(chan error, 1)
	done <- b.Write(&Message{From: b.name, To: to, Kind: KindReply, Content: text})
	return done
}

// Write sends one message.
func (b *Bus) Write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	b.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

// Close says goodbye to the peer and closes the connection.
func (b *Bus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		b.writeMu.Lock()
		b.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		b.writeMu.Unlock()
		err = b.conn.Close()
		b.wg.Wait()
	})
	return err
}

func isClosed(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure)
}
