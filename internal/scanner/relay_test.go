package scanner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harrison/codeview/internal/logger"
	"github.com/harrison/codeview/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRelay(batchSize int, interval time.Duration) (*relay, chan result, chan models.Message, chan error) {
	in := make(chan result, 16)
	out := make(chan models.Message, 16)
	walkErr := make(chan error, 1)
	r := &relay{
		in:            in,
		out:           out,
		batchSize:     batchSize,
		flushInterval: interval,
		cancel:        &atomic.Bool{},
		logger:        logger.NewNoOpLogger(),
	}
	return r, in, out, walkErr
}

func receive(t *testing.T, out <-chan models.Message) models.Message {
	t.Helper()
	select {
	case msg := <-out:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message from relay")
		return models.Message{}
	}
}

func TestRelay_FlushesOnSize(t *testing.T) {
	r, in, out, walkErr := newTestRelay(3, time.Hour)
	go r.run(context.Background(), walkErr)

	for _, p := range []string{"/r/a", "/r/b", "/r/c"} {
		in <- result{entry: models.Entry{Path: p}}
	}

	msg := receive(t, out)
	require.Equal(t, models.MsgAddNodes, msg.Kind)
	assert.Len(t, msg.Entries, 3)

	walkErr <- nil
	close(in)
	assert.Equal(t, models.MsgFinished, receive(t, out).Kind)
}

func TestRelay_FlushesOnTimer(t *testing.T) {
	r, in, out, walkErr := newTestRelay(100, 20*time.Millisecond)
	go r.run(context.Background(), walkErr)

	in <- result{entry: models.Entry{Path: "/r/a"}}
	in <- result{entry: models.Entry{Path: "/r/b"}}

	msg := receive(t, out)
	require.Equal(t, models.MsgAddNodes, msg.Kind)
	assert.Equal(t, "/r/a", msg.Entries[0].Path)
	assert.Equal(t, "/r/b", msg.Entries[1].Path)

	walkErr <- nil
	close(in)
	assert.Equal(t, models.MsgFinished, receive(t, out).Kind)
}

func TestRelay_ErrorsBypassBatch(t *testing.T) {
	r, in, out, walkErr := newTestRelay(100, time.Hour)
	go r.run(context.Background(), walkErr)

	in <- result{entry: models.Entry{Path: "/r/a"}}
	in <- result{err: "Failed to process entry '/r/x': denied"}

	msg := receive(t, out)
	require.Equal(t, models.MsgError, msg.Kind, "error must not wait for the pending batch")
	assert.Contains(t, msg.Err, "/r/x")

	walkErr <- nil
	close(in)

	remainder := receive(t, out)
	require.Equal(t, models.MsgAddNode, remainder.Kind, "remainder is flushed on close")
	assert.Equal(t, "/r/a", remainder.Entry.Path)
	assert.Equal(t, models.MsgFinished, receive(t, out).Kind)
}

func TestRelay_WalkErrorBeforeFinished(t *testing.T) {
	r, in, out, walkErr := newTestRelay(100, time.Hour)
	walkErr <- errors.New("walker worker panicked: boom")
	close(in)

	r.run(context.Background(), walkErr)

	msg := receive(t, out)
	require.Equal(t, models.MsgError, msg.Kind)
	assert.Contains(t, msg.Err, "boom")
	assert.Equal(t, models.MsgFinished, receive(t, out).Kind)
	assert.Empty(t, out)
}

func TestRelay_DropsAfterCancel(t *testing.T) {
	r, in, out, walkErr := newTestRelay(100, time.Hour)

	in <- result{entry: models.Entry{Path: "/r/a"}}
	r.cancel.Store(true)
	in <- result{entry: models.Entry{Path: "/r/b"}}
	walkErr <- nil
	close(in)

	r.run(context.Background(), walkErr)

	require.Len(t, out, 1)
	assert.Equal(t, models.MsgFinished, (<-out).Kind)
}

func TestRelay_ConsumerGone(t *testing.T) {
	in := make(chan result, 4)
	out := make(chan models.Message) // Never read
	walkErr := make(chan error, 1)
	r := &relay{in: in, out: out, batchSize: 1, flushInterval: time.Hour, cancel: &atomic.Bool{}, logger: logger.NewNoOpLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in <- result{entry: models.Entry{Path: "/r/a"}}
	in <- result{entry: models.Entry{Path: "/r/b"}}
	walkErr <- nil
	close(in)

	done := make(chan struct{})
	go func() {
		r.run(ctx, walkErr)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay blocked on a consumer that is gone")
	}
	assert.True(t, r.gone)
}
