package socket

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/villager-coder/skynet-go/internal/actor"
	"github.com/villager-coder/skynet-go/internal/handle"
	"github.com/villager-coder/skynet-go/internal/mq"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGatewayForwardsInboundToTarget(t *testing.T) {
	registry := actor.NewRegistry(0)
	global := mq.NewGlobal()

	received := make(chan []byte, 1)
	targetCtx, err := actor.Create(registry, global, func(c *actor.Context, kind mq.Kind, session uint32, source handle.Handle, payload []byte) bool {
		if kind == mq.KindSocket {
			received <- payload
		}
		return false
	}, nil, nil)
	require.NoError(t, err)

	send := func(target handle.Handle, msg mq.Message) bool {
		return actor.Send(registry, target, msg)
	}
	gw := New(registry, global, targetCtx.Handle(), send, discardLogger())
	srv := httptest.NewServer(http.HandlerFunc(gw.ServeHTTP))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))

	// Drain the global queue manually: no worker pool is running in this
	// unit test, so dispatch the bootstrap/target mailboxes inline.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mb := global.Pop()
		if mb == nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		ctx, ok := registry.Lookup(mb.Handle())
		if !ok {
			continue
		}
		for {
			msg, ok := mb.Pop()
			if !ok {
				break
			}
			ctx.Dispatch(msg.Kind, msg.Session, msg.Source, msg.Payload)
		}
		ctx.Release()

		select {
		case payload := <-received:
			require.Equal(t, "ping", string(payload))
			return
		default:
		}
	}

	select {
	case payload := <-received:
		require.Equal(t, "ping", string(payload))
	case <-time.After(2 * time.Second):
		t.Fatal("target never received forwarded frame")
	}
}
