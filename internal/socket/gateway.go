// Package socket stands in for skynet's socket_poll.h-based network I/O
// poller (spec.md §1/§12.3): one goroutine per accepted websocket
// connection, each registered as a service via actor.Bootstrap's two-phase
// pattern so inbound frames are ordinary dispatched messages instead of
// racing the HTTP handler's own goroutine.
package socket

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/villager-coder/skynet-go/internal/actor"
	"github.com/villager-coder/skynet-go/internal/handle"
	"github.com/villager-coder/skynet-go/internal/mq"
)

// Gateway upgrades HTTP connections to websockets and bridges frames onto
// the actor runtime: each inbound frame becomes a KindSocket message
// pushed to Target; each connection's own handle accepts KindSocket
// messages to write back to the client (the outbound path).
type Gateway struct {
	registry *actor.Registry
	global   *mq.Global
	target   handle.Handle
	send     func(handle.Handle, mq.Message) bool
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New builds a Gateway that forwards every inbound frame to target via
// send — ordinarily runtime.Node.Send, so a target on another node is
// routed through the harbor instead of silently dropped, and the worker
// pool is nudged awake the same way any other producer would.
func New(registry *actor.Registry, global *mq.Global, target handle.Handle, send func(handle.Handle, mq.Message) bool, logger *slog.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		global:   global,
		target:   target,
		send:     send,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection, bootstraps a per-connection service
// for the outbound path, and pumps inbound frames to Target until the
// connection closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("socket: upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()

	connCtx, err := actor.Bootstrap(g.registry, g.global, nil, func(c *actor.Context) actor.Callback {
		return outboundCallback(conn, g.logger)
	})
	if err != nil {
		g.logger.Error("socket: bootstrap failed", slog.Any("err", err))
		return
	}
	defer func() {
		connCtx.MarkRetiring()
		g.registry.Retire(connCtx.Handle())
	}()

	g.logger.Info("socket: connection opened", slog.String("handle", connCtx.Handle().String()))

	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		g.send(g.target, mq.Message{
			Source:  connCtx.Handle(),
			Kind:    mq.KindSocket,
			Payload: payload,
		})
	}
}

// outboundCallback is the real per-connection handler installed after the
// bootstrap trampoline runs: any KindSocket message delivered to this
// connection's own handle is written straight back to the client.
func outboundCallback(conn *websocket.Conn, logger *slog.Logger) actor.Callback {
	return func(c *actor.Context, kind mq.Kind, session uint32, source handle.Handle, payload []byte) bool {
		if kind != mq.KindSocket {
			return false
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.Warn("socket: write failed", slog.Any("err", err))
		}
		return false
	}
}
