// ABOUTME: HTTP API for chat2db built on chi
// ABOUTME: Chat, direct execution, schema memory and database listing as JSON endpoints
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harper/chat2db/internal/core"
	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/models"
	"github.com/harper/chat2db/internal/storage"
)

const maxBodyBytes = 1 << 20

// Server serves the JSON API
type Server struct {
	router   chi.Router
	mediator *core.Mediator
	users    *storage.UserRegistry
	schema   *storage.SchemaStore
	log      *logger.Logger
}

// New creates a Server and mounts its routes
func New(mediator *core.Mediator, users *storage.UserRegistry, schema *storage.SchemaStore, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{mediator: mediator, users: users, schema: schema, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/execute", s.handleExecute)
		r.Get("/schema", s.handleSchema)
		r.Get("/databases", s.handleDatabases)
	})
	s.router = r
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type chatRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
	Database string `json:"database"`
}

type chatResponse struct {
	*core.Turn
	ExecutionError string `json:"execution_error,omitempty"`
}

type executeRequest struct {
	Username string `json:"username"`
	SQL      string `json:"sql"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	user, err := s.users.Lookup(req.Username)
	if err != nil {
		s.writeError(w, err)
		return
	}

	turn, err := s.mediator.Ask(r.Context(), core.Session{User: *user, Database: req.Database}, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Turn: turn, ExecutionError: turn.ExecError()})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	user, err := s.users.Lookup(req.Username)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !user.IsAdmin() {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "admin role required", Kind: "forbidden"})
		return
	}

	exec, err := s.mediator.Execute(r.Context(), req.SQL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	database := r.URL.Query().Get("database")
	tables := make([]models.TableSchema, 0)
	for _, t := range s.schema.Load() {
		if database == "" || strings.EqualFold(t.Database, database) {
			tables = append(tables, t)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables, "count": len(tables)})
}

func (s *Server) handleDatabases(w http.ResponseWriter, r *http.Request) {
	dbs, err := s.mediator.AvailableDatabases(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if dbs == nil {
		dbs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"databases": dbs})
}

// requestLogger logs one line per request
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Zerolog().Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorErr("request failed", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: errs.KindOf(err).String()})
}

// StatusFor maps an error kind to an HTTP status
func StatusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidState:
		return http.StatusConflict
	case errs.ErrKindQueryFailed:
		return http.StatusUnprocessableEntity
	case errs.ErrKindUpstream:
		return http.StatusBadGateway
	case errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
