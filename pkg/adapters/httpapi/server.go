// Package httpapi exposes the engine over HTTP for browser and service
// clients: schema discovery, validation, conditional state, and dependency
// introspection. Handlers are stateless; form data travels with every
// request.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/schema"
)

// Server resolves schemas through a loader and caches one engine per
// schema ID.
type Server struct {
	loader     ports.SchemaLoader
	logger     *slog.Logger
	engineOpts []lattice.Option

	mu      sync.Mutex
	engines map[string]*lattice.Engine
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEngineOptions forwards options to every engine the server builds,
// e.g. a remote checker.
func WithEngineOptions(opts ...lattice.Option) Option {
	return func(s *Server) { s.engineOpts = append(s.engineOpts, opts...) }
}

// NewServer builds the API server. Use Handler to mount it.
func NewServer(loader ports.SchemaLoader, opts ...Option) *Server {
	s := &Server{
		loader:  loader,
		logger:  logging.NewNop(),
		engines: map[string]*lattice.Engine{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler builds the HTTP handler for the API.
func NewHandler(loader ports.SchemaLoader, opts ...Option) http.Handler {
	return NewServer(loader, opts...).Handler()
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.getHealth)
	r.Get("/schemas", s.listSchemas)
	r.Route("/schemas/{schemaID}", func(r chi.Router) {
		r.Get("/", s.getSchema)
		r.Get("/dependents", s.getDependents)
		r.Post("/validate", s.postValidate)
		r.Post("/conditional", s.postConditional)
		r.Post("/evaluate", s.postEvaluate)
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ReloadSchema drops the cached engine so the next request rebuilds it,
// used by hot reload.
func (s *Server) ReloadSchema(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.engines, id)
}

func (s *Server) engineFor(r *http.Request) (*lattice.Engine, error) {
	id := chi.URLParam(r, "schemaID")

	s.mu.Lock()
	eng, ok := s.engines[id]
	s.mu.Unlock()
	if ok {
		return eng, nil
	}

	sch, err := s.loader.Load(r.Context(), id)
	if err != nil {
		return nil, err
	}
	eng, err = lattice.New(sch, s.engineOpts...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.engines[id] = eng
	s.mu.Unlock()
	return eng, nil
}

type evalRequest struct {
	Data    domain.Snapshot `json:"data"`
	Trigger schema.Trigger  `json:"trigger,omitempty"`
	Field   string          `json:"field,omitempty"`
}

func (req *evalRequest) trigger() schema.Trigger {
	if req.Trigger == "" {
		return schema.TriggerChange
	}
	return req.Trigger
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listSchemas(w http.ResponseWriter, r *http.Request) {
	ids, err := s.loader.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": ids})
}

func (s *Server) getSchema(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eng.Schema())
}

func (s *Server) getDependents(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	field := r.URL.Query().Get("field")
	if _, ok := eng.Schema().Field(field); !ok {
		http.Error(w, "unknown field", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"field":      field,
		"dependents": eng.Dependents(field),
		"depends_on": eng.Dependencies(field),
	})
}

func (s *Server) postValidate(w http.ResponseWriter, r *http.Request) {
	eng, req, ok := s.decode(w, r)
	if !ok {
		return
	}

	if req.Field != "" {
		results, err := eng.ValidateField(r.Context(), req.Field, req.Data, req.trigger())
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
		return
	}
	writeJSON(w, http.StatusOK, eng.ValidateAll(r.Context(), req.Data, req.trigger()))
}

func (s *Server) postConditional(w http.ResponseWriter, r *http.Request) {
	eng, req, ok := s.decode(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, eng.ConditionalState(req.Data))
}

func (s *Server) postEvaluate(w http.ResponseWriter, r *http.Request) {
	eng, req, ok := s.decode(w, r)
	if !ok {
		return
	}

	if req.Field != "" {
		out, err := eng.EvaluateField(r.Context(), req.Field, req.Data, req.trigger())
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	writeJSON(w, http.StatusOK, eng.Evaluate(r.Context(), req.Data, req.trigger()))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*lattice.Engine, evalRequest, bool) {
	var req evalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		s.logger.Warn("invalid request body", "error", err)
		return nil, req, false
	}
	eng, err := s.engineFor(r)
	if err != nil {
		s.writeError(w, err)
		return nil, req, false
	}
	return eng, req, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var serr *schema.SchemaError
	switch {
	case errors.Is(err, domain.ErrSchemaNotFound):
		http.Error(w, "schema not found", http.StatusNotFound)
	case errors.As(err, &serr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"kind":   string(serr.Kind),
			"field":  serr.FieldID,
			"detail": serr.Detail,
		})
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		s.logger.Error("request failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}
