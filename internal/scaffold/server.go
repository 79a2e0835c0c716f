package scaffold

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/ident"
)

// Server exposes a Generator over HTTP for the authoring canvas.
type Server struct {
	gen    Generator
	logger *slog.Logger
	router chi.Router
}

// NewServer creates a Server in front of gen.
func NewServer(gen Generator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{gen: gen, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors)

	r.Get("/health", s.handleHealth)
	r.Post("/generate", s.handleGenerate)
	r.Post("/delete", s.handleDelete)
	r.Post("/write", s.handleWrite)
	r.Get("/exists/{id}", s.handleExists)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Mount adds the routes of s under pattern on r.
func (s *Server) Mount(r chi.Router, pattern string) {
	r.Mount(pattern, s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Component Helper is running"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	res, err := s.gen.Generate(r.Context(), req.ComponentID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{
		Success: true,
		Message: "Component " + req.ComponentID + " created successfully",
		Result:  res,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	if err := s.gen.Delete(r.Context(), req.ComponentID); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Component " + req.ComponentID + " deleted"})
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	if err := s.gen.WriteSourceAndMarkup(r.Context(), req.ComponentID, req.Source, req.Markup); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Component " + req.ComponentID + " written"})
}

func (s *Server) handleExists(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := ident.Validate(id); err != nil {
		s.fail(w, err)
		return
	}
	ok, err := s.gen.Exists(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Exists: ok})
}

// decode reads the request body and validates its id before any handler
// runs the generator.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (request, bool) {
	var req request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: "Invalid request body", Code: "E200"})
		return req, false
	}
	if req.ComponentID == "" {
		writeJSON(w, http.StatusBadRequest, response{Error: "Component ID is required", Code: "E200"})
		return req, false
	}
	if err := ident.Validate(req.ComponentID); err != nil {
		s.fail(w, err)
		return req, false
	}
	return req, true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.IsCategory(err, errors.CategoryValidation) {
		status = http.StatusBadRequest
	}

	fe := errors.FromError(err, "E211")
	msg := fe.Detail
	if msg == "" {
		msg = err.Error()
	}
	if status >= 500 {
		s.logger.Error("scaffold request failed", "error", err)
	}
	writeJSON(w, status, response{Error: msg, Code: fe.Code})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("scaffold request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// cors lets the canvas page, served from another port, call the helper.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
