package runtime

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/villager-coder/skynet-go/internal/actor"
	"github.com/villager-coder/skynet-go/internal/handle"
	"github.com/villager-coder/skynet-go/internal/mq"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newNode(t *testing.T, workers int) *Node {
	t.Helper()
	n, err := New(context.Background(), Config{NodeID: 1, WorkerCount: workers}, discardLogger())
	require.NoError(t, err)
	return n
}

// S1: Bootstrap — a service created on a started node receives a message
// sent to its handle.
func TestBootstrapDelivery(t *testing.T) {
	n := newNode(t, 2)
	n.Start(context.Background())
	defer n.Stop(context.Background())

	var mu sync.Mutex
	var got []byte
	done := make(chan struct{})
	cb := func(c *actor.Context, kind mq.Kind, session uint32, source handle.Handle, payload []byte) bool {
		mu.Lock()
		got = payload
		mu.Unlock()
		close(done)
		return false
	}
	ctx, err := actor.Create(n.Registry, n.Global, cb, nil, nil)
	require.NoError(t, err)

	ok := actor.Send(n.Registry, ctx.Handle(), mq.Message{Kind: mq.KindText, Payload: []byte("hello")})
	require.True(t, ok)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bootstrap message never dispatched")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []byte("hello"), got)
}

// S3: FIFO within one mailbox — messages pushed by a single producer to
// one mailbox must be delivered in push order while four workers take
// turns on it (concurrent producers and cross-producer ordering are not
// tested here).
func TestFIFOWithinMailbox(t *testing.T) {
	n := newNode(t, 4)
	n.Start(context.Background())
	defer n.Stop(context.Background())

	const count = 500
	var mu sync.Mutex
	var order []uint32
	done := make(chan struct{})
	cb := func(c *actor.Context, kind mq.Kind, session uint32, source handle.Handle, payload []byte) bool {
		mu.Lock()
		order = append(order, session)
		n := len(order)
		mu.Unlock()
		if n == count {
			close(done)
		}
		return false
	}
	ctx, err := actor.Create(n.Registry, n.Global, cb, nil, nil)
	require.NoError(t, err)

	for i := uint32(0); i < count; i++ {
		ctx.Mailbox().Push(mq.Message{Session: i, Kind: mq.KindText})
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("not all messages delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, s := range order {
		require.Equal(t, uint32(i), s, "messages pushed to one mailbox before any dispatch must come out in push order")
	}
}

// S4: Mailbox growth — pushing well past the default capacity must not
// lose or reorder messages.
func TestMailboxGrowthNoLoss(t *testing.T) {
	global := mq.NewGlobal()
	registry := actor.NewRegistry(0)
	cb := func(*actor.Context, mq.Kind, uint32, handle.Handle, []byte) bool { return false }
	ctx, err := actor.Create(registry, global, cb, nil, nil)
	require.NoError(t, err)

	const count = 2000
	for i := uint32(0); i < count; i++ {
		ctx.Mailbox().Push(mq.Message{Session: i})
	}
	require.Equal(t, count, ctx.Mailbox().Length())

	for i := uint32(0); i < count; i++ {
		msg, ok := ctx.Mailbox().Pop()
		require.True(t, ok)
		require.Equal(t, i, msg.Session)
	}
	_, ok := ctx.Mailbox().Pop()
	require.False(t, ok)
}

// S5: Destruction during dispatch — retiring a service while its mailbox
// still holds messages must eventually destroy it once drained, without
// panicking any in-flight dispatcher.
func TestDestructionDuringDispatch(t *testing.T) {
	n := newNode(t, 2)
	n.Start(context.Background())
	defer n.Stop(context.Background())

	var calls int32
	cb := func(c *actor.Context, kind mq.Kind, session uint32, source handle.Handle, payload []byte) bool {
		atomic.AddInt32(&calls, 1)
		return false
	}
	ctx, err := actor.Create(n.Registry, n.Global, cb, nil, nil)
	require.NoError(t, err)

	var destroyed int32
	ctx.SetOnDestroy(func(*actor.Context) { atomic.StoreInt32(&destroyed, 1) })

	for i := 0; i < 20; i++ {
		ctx.Mailbox().Push(mq.Message{Session: uint32(i)})
	}

	h := ctx.Handle()
	ctx.MarkRetiring()
	n.Registry.Retire(h)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&destroyed) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

// S6: Overload signal — once pending length exceeds the initial threshold,
// OverloadReport must surface it at least once, without dropping messages.
func TestOverloadSignal(t *testing.T) {
	global := mq.NewGlobal()
	registry := actor.NewRegistry(0)
	cb := func(*actor.Context, mq.Kind, uint32, handle.Handle, []byte) bool { return false }
	ctx, err := actor.Create(registry, global, cb, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 1100; i++ {
		ctx.Mailbox().Push(mq.Message{})
	}

	var reported int
	for i := 0; i < 1100; i++ {
		_, ok := ctx.Mailbox().Pop()
		require.True(t, ok)
		if o := ctx.Mailbox().OverloadReport(); o > 0 {
			reported = o
		}
	}
	require.Greater(t, reported, 1024)
}

// S2: Endless loop detection — the registry call the stall monitor makes
// on a stall (MarkEndlessLoop) sets the service's flag, and CLEARSTALL
// clears it. No slow callback or monitor runs here; the monitor's sampling
// is tested in internal/monitor.
func TestEndlessLoopFlaggedThroughRegistry(t *testing.T) {
	n := newNode(t, 1)
	cb := func(*actor.Context, mq.Kind, uint32, handle.Handle, []byte) bool { return false }
	ctx, err := actor.Create(n.Registry, n.Global, cb, nil, nil)
	require.NoError(t, err)

	n.Registry.MarkEndlessLoop(ctx.Handle())
	require.True(t, ctx.EndlessLoop())

	_, err = n.Admin.Dispatch(nil, "CLEARSTALL", ctx.Handle().String())
	require.NoError(t, err)
	require.False(t, ctx.EndlessLoop())
}
