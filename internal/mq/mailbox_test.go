package mq

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/villager-coder/skynet-go/internal/handle"
)

func TestMailboxFIFOAndGrowth(t *testing.T) {
	g := NewGlobal()
	m := NewMailbox(handle.NewHandle(0, 1), g)

	const n = 200
	for i := 0; i < n; i++ {
		m.Push(Message{Session: uint32(i), Kind: KindText, Payload: []byte{byte(i)}})
	}
	require.Equal(t, n, m.Length())
	require.GreaterOrEqual(t, len(m.queue), 256, "capacity should have doubled 64->128->256")

	for i := 0; i < n; i++ {
		msg, ok := m.Pop()
		require.True(t, ok)
		require.Equal(t, uint32(i), msg.Session, "messages must dispatch in push order")
	}
	_, ok := m.Pop()
	require.False(t, ok)
}

func TestMailboxInGlobalInvariant(t *testing.T) {
	g := NewGlobal()
	m := NewMailbox(handle.NewHandle(0, 2), g)
	m.inGlobal = false // simulate post-init state, as Context would do

	require.False(t, m.InGlobal())
	require.Nil(t, g.Pop())

	m.Push(Message{Kind: KindText})
	require.True(t, m.InGlobal())
	require.Same(t, m, g.Pop())

	// Popped from global queue and drained: in_global clears, so pushing
	// again must re-link it.
	_, ok := m.Pop()
	require.True(t, ok)
	require.False(t, m.InGlobal())
	m.Push(Message{Kind: KindText})
	require.Same(t, m, g.Pop())
}

func TestMailboxOverloadThreshold(t *testing.T) {
	g := NewGlobal()
	m := NewMailbox(handle.NewHandle(0, 3), g)

	for i := 0; i < 5000; i++ {
		m.Push(Message{Session: uint32(i)})
	}

	var reports []int
	for {
		if o := m.OverloadReport(); o != 0 {
			reports = append(reports, o)
		}
		_, ok := m.Pop()
		if !ok {
			break
		}
	}

	require.NotEmpty(t, reports)
	for _, want := range []int{1024, 2048, 4096} {
		found := false
		for _, got := range reports {
			if got >= want {
				found = true
				break
			}
		}
		require.Truef(t, found, "expected an overload report at length >= %d", want)
	}
}

func TestMailboxReleaseDrainsPending(t *testing.T) {
	g := NewGlobal()
	m := NewMailbox(handle.NewHandle(0, 4), g)
	m.inGlobal = false

	m.Push(Message{Session: 1})
	m.Push(Message{Session: 2})

	var dropped []uint32
	m.MarkRelease()
	require.True(t, m.Released())

	linked := g.Pop()
	require.Same(t, m, linked)

	m.Release(func(msg Message) {
		dropped = append(dropped, msg.Session)
	})

	require.Equal(t, []uint32{1, 2}, dropped)
}
