package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/villager-coder/skynet-go/internal/actor"
	"github.com/villager-coder/skynet-go/internal/handle"
	"github.com/villager-coder/skynet-go/internal/mq"
)

func nopCallback(*actor.Context, mq.Kind, uint32, handle.Handle, []byte) bool { return false }

func TestHandlesEndpoint(t *testing.T) {
	registry := actor.NewRegistry(0)
	global := mq.NewGlobal()
	ctx, err := actor.Create(registry, global, nopCallback, nil, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(New(registry))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/handles")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got handleCountResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, 1, got.Count)

	resp2, err := http.Get(srv.URL + "/queues/" + ctx.Handle().String())
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var q queueResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&q))
	require.Equal(t, 0, q.Length)
}

func TestQueueNotFound(t *testing.T) {
	registry := actor.NewRegistry(0)
	srv := httptest.NewServer(New(registry))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/queues/:00000099")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	registry := actor.NewRegistry(0)
	srv := httptest.NewServer(New(registry))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
