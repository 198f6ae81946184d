package actor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/villager-coder/skynet-go/internal/handle"
	"github.com/villager-coder/skynet-go/internal/mq"
)

func TestContextDestroyOrdering(t *testing.T) {
	g := mq.NewGlobal()
	r := NewRegistry(0)

	var destroyed bool
	ctx := newTestContext(t, g)
	ctx.SetOnDestroy(func(*Context) { destroyed = true })

	h, err := r.Register(ctx)
	require.NoError(t, err)

	extra, ok := r.Lookup(h)
	require.True(t, ok)

	ctx.MarkRetiring()
	require.Equal(t, StateRetiring, ctx.State())
	require.True(t, ctx.Mailbox().Released())

	// Retiring drops the registry's reference, but the Lookup reference is
	// still held; destroy must not fire yet.
	require.True(t, r.Retire(h))
	require.False(t, destroyed, "must not destroy while an in-flight reference is outstanding")

	// Drain the (empty) mailbox, then drop the last outstanding reference.
	ctx.Mailbox().Release(nil)
	extra.Release()

	require.True(t, destroyed)
	require.Equal(t, StateDead, ctx.State())
}

func TestTrapStateMachine(t *testing.T) {
	var tr trapState

	require.False(t, tr.Pending())
	require.True(t, tr.Request())
	require.False(t, tr.Request(), "only one setter may transition idle->requested")

	require.True(t, tr.Observe())
	require.False(t, tr.Observe(), "hook already installed")

	tr.Clear()
	require.False(t, tr.Pending())
	require.True(t, tr.Request())
}

func TestCallbackPanicRecovered(t *testing.T) {
	g := mq.NewGlobal()
	ctx := NewContext(g, func(c *Context, kind mq.Kind, session uint32, source handle.Handle, payload []byte) bool {
		panic("boom")
	}, nil)

	retain, err := ctx.Dispatch(mq.KindText, 1, 0, nil)
	require.False(t, retain)
	require.Error(t, err)

	var actorErr *Error
	require.ErrorAs(t, err, &actorErr)
	require.Equal(t, KindCallbackPanic, actorErr.Kind)
}
