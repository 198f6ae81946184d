package module

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/villager-coder/skynet-go/internal/actor"
)

type stubInstance struct{ initErr error }

func (s *stubInstance) Init(ctx *actor.Context, parm string) error { return s.initErr }

func TestRegistryRegisterQuery(t *testing.T) {
	r := New(8)
	r.Register("logger", func() Instance { return &stubInstance{} })

	f, ok := r.Query("logger")
	require.True(t, ok)
	require.NotNil(t, f())

	_, ok = r.Query("does-not-exist")
	require.False(t, ok)

	require.Equal(t, 1, r.Count())
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := New(8)
	r.Register("logger", func() Instance { return &stubInstance{} })
	require.Panics(t, func() {
		r.Register("logger", func() Instance { return &stubInstance{} })
	})
}

func TestQueryPopulatesCache(t *testing.T) {
	r := New(1)
	r.Register("a", func() Instance { return &stubInstance{} })
	r.Register("b", func() Instance { return &stubInstance{} })

	_, ok := r.Query("a")
	require.True(t, ok)
	_, ok = r.Query("b")
	require.True(t, ok)
	require.True(t, r.lookups.Contains("b"), "the last resolved name is cached")
	require.False(t, r.lookups.Contains("a"), "capacity 1 evicts the older name")

	// Cache capacity is 1; both names must still resolve via map fallback.
	_, ok = r.Query("a")
	require.True(t, ok)
}
