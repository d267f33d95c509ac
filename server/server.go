// Package server exposes the engine over HTTP: a JSON eval surface for
// tools and an LSP server for editors.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("bfvm.server")

// Server wraps the eval services on a single HTTP port.
type Server struct {
	worker *RunWorker
	mux    *http.ServeMux
}

// New creates a Server with its worker and routes ready.
func New() *Server {
	worker := NewRunWorker()
	s := &Server{
		worker: worker,
		mux:    http.NewServeMux(),
	}

	evalSvc := NewEvalService(worker)
	s.mux.HandleFunc("/v1/run", evalSvc.handleRun)
	s.mux.HandleFunc("/v1/check", evalSvc.handleCheck)
	s.mux.HandleFunc("/v1/healthz", s.handleHealthz)

	return s
}

// Handler returns the HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe blocks serving on the given port.
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	log.Infof("eval server listening on %s", addr)
	return httpServer.ListenAndServe()
}

// Stop shuts down the run worker.
func (s *Server) Stop() {
	s.worker.Stop()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "ok")
}
