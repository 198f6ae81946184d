// Package http is the read-only admin introspection surface, spec.md
// §12.5's data source: a chi router exposing registry/queue stats for the
// debug dashboard (cmd/dashboard) and for operators curling a running node.
package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/villager-coder/skynet-go/internal/actor"
	"github.com/villager-coder/skynet-go/internal/handle"
)

// Server builds the chi router over a node's registry.
type Server struct {
	registry *actor.Registry
}

// New builds the introspection router over registry.
func New(registry *actor.Registry) http.Handler {
	s := &Server{registry: registry}
	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/handles", s.handles)
	r.Get("/queues/{handle}", s.queue)
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type handleCountResponse struct {
	Count int `json:"count"`
}

func (s *Server) handles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, handleCountResponse{Count: s.registry.Count()})
}

type queueResponse struct {
	Handle   string `json:"handle"`
	Length   int    `json:"length"`
	InGlobal bool   `json:"in_global"`
	Released bool   `json:"released"`
}

func (s *Server) queue(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(chi.URLParam(r, "handle"), ":")
	n, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		http.Error(w, "invalid handle: "+raw, http.StatusBadRequest)
		return
	}
	h := handle.Handle(n)

	ctx, ok := s.registry.Lookup(h)
	if !ok {
		http.Error(w, "handle not found", http.StatusNotFound)
		return
	}
	defer ctx.Release()

	mb := ctx.Mailbox()
	writeJSON(w, queueResponse{
		Handle:   h.String(),
		Length:   mb.Length(),
		InGlobal: mb.InGlobal(),
		Released: mb.Released(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
