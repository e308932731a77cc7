// Package httpapi implements the HTTP receiver: the long-lived endpoint
// exposing POST /extract and GET /status to the browser userscript, with
// permissive CORS since the userscript's origin is not fixed.
package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dogebooch/extractvault/internal/catalog"
	"github.com/dogebooch/extractvault/internal/ingest"
	"github.com/dogebooch/extractvault/internal/logsink"
)

// Server wraps the ingestion orchestrator behind an HTTP mux.
type Server struct {
	orchestrator *ingest.Orchestrator
	repo         catalog.Repository
	logger       *logsink.Sink
	addr         string

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener

	startedAt     time.Time
	totalReceived int64 // atomic
}

// New builds a Server that will listen on addr. repo backs the read-only
// /sources and /questions endpoints; the orchestrator owns all writes.
// logger receives one persisted record per request, tagged with a
// generated request id.
func New(orchestrator *ingest.Orchestrator, repo catalog.Repository, logger *logsink.Sink, addr string) *Server {
	return &Server{orchestrator: orchestrator, repo: repo, logger: logger, addr: addr, startedAt: time.Now().UTC()}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// requestID extracts the id attached by withRequestID, or "-" outside an
// HTTP request (e.g. in tests calling handlers directly).
func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return "-"
}

// withRequestID tags each request with a fresh uuid and logs its arrival,
// giving every persisted log record from this request a correlation id.
func (s *Server) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		s.logger.Infof(ctx, "http", "[%s] %s %s", id, r.Method, r.URL.Path)
		next(w, r.WithContext(ctx))
	}
}

// Start builds the mux and serves until ctx is cancelled, at which point
// it shuts down gracefully, draining in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/extract", s.withCORS(s.withRequestID(s.handleExtract)))
	mux.HandleFunc("/status", s.withCORS(s.withRequestID(s.handleStatus)))
	mux.HandleFunc("/sources", s.withCORS(s.withRequestID(s.handleSources)))
	mux.HandleFunc("/questions/", s.withCORS(s.withRequestID(s.handleQuestion)))

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  0, // clients may hold /extract open arbitrarily long
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	err = srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Addr returns the address actually bound (useful when addr was ":0").
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// withCORS answers preflight OPTIONS requests and sets permissive headers
// on every response, since the userscript's origin is not fixed.
func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func (s *Server) incrementReceived() int64 {
	return atomic.AddInt64(&s.totalReceived, 1)
}

func atomicLoad(v *int64) int64 {
	return atomic.LoadInt64(v)
}
