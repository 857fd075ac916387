package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hb-chen/skillrt/internal/dispatch"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestConsole_Listen(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	c := New(strings.NewReader("what time is it\n\n  uninstall Zoom  \n"), &out, "> ")
	defer c.Close()

	in, err := c.Listen(ctx)
	require.NoError(t, err)
	assert.Equal(t, "what time is it", in.Text)

	_, err = c.Listen(ctx)
	assert.ErrorIs(t, err, dispatch.ErrNotRecognized)

	in, err = c.Listen(ctx)
	require.NoError(t, err)
	assert.Equal(t, dispatch.Input{Text: "uninstall Zoom"}, in)

	_, err = c.Listen(ctx)
	assert.ErrorIs(t, err, io.EOF)
	_, err = c.Listen(ctx)
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, "> > > > > ", out.String())
}

func TestConsole_Speak(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader(""), &out, "")
	defer c.Close()

	require.NoError(t, <-c.Speak(context.Background(), "It is noon."))
	assert.Equal(t, "It is noon.\n", out.String())
}

func TestConsole_ListenHonorsContext(t *testing.T) {
	r, w := io.Pipe()
	c := New(r, io.Discard, "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Listen(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	c.Close()
	w.Close()
}
