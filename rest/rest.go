// Package rest is the relayer's optional read-only HTTP intake: a
// gorilla/mux server exposing GET /state, which it turns into the same
// DumpState the command channel accepts and forwards to whatever drains
// Requests() — the supervisor loop, at most once per tick.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/relaygo/relayer/command"
	"github.com/relaygo/relayer/common"
)

// requestTimeout bounds how long the HTTP handler waits for the
// supervisor loop to drain and answer one request before failing the
// HTTP call; the loop itself is never blocked waiting on an HTTP client.
// A var, not a const, so tests can shrink it rather than sleep for the
// production value.
var requestTimeout = 5 * time.Second

// Request is what the REST intake hands the supervisor loop.
type Request struct {
	Reply chan<- command.SupervisorState
}

// Server serves GET /state over HTTP, translating each call into a
// Request on the channel Requests() returns.
type Server struct {
	out     chan Request
	http    *http.Server
	started int32
}

// New builds a Server listening on addr. Call Serve to start it.
func New(addr string) *Server {
	s := &Server{out: make(chan Request)}
	r := mux.NewRouter()
	r.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	s.http = &http.Server{Addr: addr, Handler: r}
	return s
}

// Requests returns the channel the supervisor loop drains, at most one
// request per tick.
func (s *Server) Requests() <-chan Request { return s.out }

// Serve blocks serving HTTP until the server is shut down. Calling Serve
// a second time on the same Server is rejected rather than silently
// restarted.
func (s *Server) Serve() error {
	if !atomic.CompareAndSwapInt32(&s.started, 0, 1) {
		return common.ErrSubSystemAlreadyStarted
	}
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server. It is an error to shut down a
// Server that was never served.
func (s *Server) Shutdown(ctx context.Context) error {
	if atomic.LoadInt32(&s.started) == 0 {
		return common.ErrSubSystemNotStarted
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	reply := make(chan command.SupervisorState, 1)

	select {
	case s.out <- Request{Reply: reply}:
	case <-time.After(requestTimeout):
		http.Error(w, "supervisor busy", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}

	select {
	case state := <-reply:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(state)
	case <-time.After(requestTimeout):
		http.Error(w, "supervisor timed out", http.StatusGatewayTimeout)
	}
}
