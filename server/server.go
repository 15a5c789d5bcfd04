package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"auto_spec_builder/pipeline"
	"auto_spec_builder/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Server struct {
	pipeline *pipeline.Pipeline
	store    *store.Store
	logger   *zap.Logger
}

func New(p *pipeline.Pipeline, st *store.Store, logger *zap.Logger) (*Server, error) {
	if p == nil || st == nil {
		return nil, errors.New("pipeline and store required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{pipeline: p, store: st, logger: logger.Named("http")}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/crm/systems", s.handleDomains)
			r.Post("/ai/structure", s.handleStructure)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", s.handleProjectList)
				r.Post("/", s.handleProjectCreate)
			})

			r.Route("/specifications", func(r chi.Router) {
				r.Get("/", s.handleSpecList)
				r.Post("/", s.handleSpecCreate)
				r.Post("/generate", s.handleGenerate)
				r.Post("/upload-doc", s.handleUploadDoc)
				r.Get("/{id}", s.handleSpecGet)
				r.Put("/{id}", s.handleSpecUpdate)
				r.Delete("/{id}", s.handleSpecDelete)
			})

			r.Get("/export/doc/{id}", s.handleExport(pipeline.FormatDOCX))
			r.Get("/export/html/{id}", s.handleExport(pipeline.FormatHTML))

			r.Post("/attachments/{itemID}", s.handleAttachmentUpload)
			r.Delete("/attachments/{id}", s.handleAttachmentDelete)

			r.Route("/prompts", func(r chi.Router) {
				r.Get("/", s.handlePromptList)
				r.Post("/", s.handlePromptCreate)
				r.Get("/default-text", s.handlePromptDefaultText)
				r.Put("/{id}", s.handlePromptUpdate)
				r.Delete("/{id}", s.handlePromptDelete)
			})
		})
	})
	return r
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("kind", body.Kind),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Kind: "validation"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid "+name)
		return 0, false
	}
	return id, true
}
