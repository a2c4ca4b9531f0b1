package reconcile

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheep1986/apex-sub005/internal/events"
	"github.com/sheep1986/apex-sub005/pkg/logging"
)

func TestDispatcherDeliversToHandler(t *testing.T) {
	var handled atomic.Int32
	d := NewDispatcher(8, func(ctx context.Context, evt events.Event) {
		handled.Add(1)
	}, logging.NewText("error"), nil)
	d.Start(context.Background(), 2)

	for i := 0; i < 5; i++ {
		require.True(t, d.Dispatch(endedEvent("evt", "call")))
	}
	d.Close()

	assert.Equal(t, int32(5), handled.Load())
}

func TestDispatchNeverBlocksWhenFull(t *testing.T) {
	block := make(chan struct{})
	d := NewDispatcher(1, func(ctx context.Context, evt events.Event) {
		<-block
	}, logging.NewText("error"), nil)
	d.Start(context.Background(), 1)
	defer func() {
		close(block)
		d.Close()
	}()

	// One event occupies the worker, one fills the buffer; the rest
	// must be rejected immediately rather than queued or blocked.
	require.Eventually(t, func() bool {
		return !d.Dispatch(endedEvent("evt", "call"))
	}, time.Second, time.Millisecond)
}

func TestDispatchAfterCloseReturnsFalse(t *testing.T) {
	d := NewDispatcher(8, func(ctx context.Context, evt events.Event) {}, logging.NewText("error"), nil)
	d.Start(context.Background(), 1)
	d.Close()

	assert.False(t, d.Dispatch(endedEvent("evt", "call")))
}

func TestCloseDrainsQueuedEvents(t *testing.T) {
	var handled atomic.Int32
	d := NewDispatcher(16, func(ctx context.Context, evt events.Event) {
		time.Sleep(time.Millisecond)
		handled.Add(1)
	}, logging.NewText("error"), nil)
	d.Start(context.Background(), 1)

	for i := 0; i < 10; i++ {
		require.True(t, d.Dispatch(endedEvent("evt", "call")))
	}
	d.Close()

	assert.Equal(t, int32(10), handled.Load())
}
