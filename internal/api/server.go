// Package api exposes the handlers over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	apperrors "insurance-backoffice/internal/common/errors"
	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/common/observability"
	completestep "insurance-backoffice/internal/handlers/agent/complete-step"
	getapplication "insurance-backoffice/internal/handlers/agent/get-application"
	listapplications "insurance-backoffice/internal/handlers/agent/list-applications"
	reviewdecision "insurance-backoffice/internal/handlers/agent/review-decision"
	rollbackstep "insurance-backoffice/internal/handlers/agent/rollback-step"
	syncapplication "insurance-backoffice/internal/handlers/agent/sync-application"
	createclaimapplication "insurance-backoffice/internal/handlers/claims/create-claim-application"
	updateclaimdocuments "insurance-backoffice/internal/handlers/claims/update-claim-documents"
	deletedocument "insurance-backoffice/internal/handlers/documents/delete-document"
	listcategories "insurance-backoffice/internal/handlers/documents/list-categories"
	uploaddocument "insurance-backoffice/internal/handlers/documents/upload-document"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxJSONBytes = 1 << 20
	// DefaultMaxSyncBytes bounds agent sync pushes, whose agentData can carry
	// large OCR and scoring payloads.
	DefaultMaxSyncBytes = 16 << 20
)

// Handlers holds one handler per operation.
type Handlers struct {
	Sync           *syncapplication.Handler
	Get            *getapplication.Handler
	List           *listapplications.Handler
	Review         *reviewdecision.Handler
	CompleteStep   *completestep.Handler
	RollbackStep   *rollbackstep.Handler
	Upload         *uploaddocument.Handler
	Delete         *deletedocument.Handler
	Categories     *listcategories.Handler
	CreateClaim    *createclaimapplication.Handler
	ClaimDocuments *updateclaimdocuments.Handler
}

type Options struct {
	MaxUploadBytes int64
	MaxSyncBytes   int64
	// UploadsDir is served under /uploads/ when documents are stored locally.
	UploadsDir string
	// Ready reports whether the backing stores answer.
	Ready func(ctx context.Context) error
}

type Server struct {
	mux      *http.ServeMux
	handlers Handlers
	opts     Options
	errors   *apperrors.ErrorHandler
	obs      *observability.Observability
	logger   logger.Logger
}

func NewServer(handlers Handlers, obs *observability.Observability, log logger.Logger, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.MaxSyncBytes <= 0 {
		opts.MaxSyncBytes = DefaultMaxSyncBytes
	}
	s := &Server{
		mux:      http.NewServeMux(),
		handlers: handlers,
		opts:     opts,
		errors:   apperrors.NewErrorHandler(log),
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("POST /agent/sync", s.handleSync)
	s.mux.HandleFunc("GET /agent/applications", s.handleListApplications)
	s.mux.HandleFunc("GET /agent/application/{id}", s.handleGetApplication)
	s.mux.HandleFunc("POST /agent/review", s.handleReview)
	s.mux.HandleFunc("POST /agent/step/complete", s.handleCompleteStep)
	s.mux.HandleFunc("POST /agent/step/rollback", s.handleRollbackStep)

	s.mux.HandleFunc("POST /documents/upload", s.handleUpload)
	s.mux.HandleFunc("DELETE /documents/{id}", s.handleDeleteDocument)
	s.mux.HandleFunc("GET /documents/categories/{claimType}", s.handleCategories)

	s.mux.HandleFunc("POST /claims/application", s.handleCreateClaim)
	s.mux.HandleFunc("PATCH /claims/application/{id}", s.handleUpdateClaimDocuments)

	if s.opts.UploadsDir != "" {
		s.mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.opts.UploadsDir))))
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	s.mux.ServeHTTP(rec, r)

	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	if s.obs != nil {
		s.obs.RecordRequest(r.Context(), route, rec.status, time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func invalidBody(err error) *apperrors.StandardError {
	return apperrors.NewInvalidInputError(fmt.Sprintf("invalid request body: %v", err)).
		WithStatus(http.StatusUnprocessableEntity)
}

// bodyError reports 413 only when the size limit tripped.
func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.NewPayloadTooLargeError("Request body too large")
	}
	return invalidBody(err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return bodyError(err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		if err := s.opts.Ready(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", map[string]interface{}{"error": err})
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxSyncBytes))
	if err != nil {
		s.errors.WriteError(w, r, bodyError(err))
		return
	}
	out, err := s.handlers.Sync.Execute(r.Context(), &syncapplication.Input{Payload: payload})
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := s.handlers.List.Execute(r.Context(), &listapplications.Input{
		Type:   q.Get("type"),
		Status: q.Get("status"),
	})
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out.Applications)
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	out, err := s.handlers.Get.Execute(r.Context(), &getapplication.Input{ApplicationID: r.PathValue("id")})
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out.Application)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var in reviewdecision.Input
	if err := decodeJSON(w, r, &in); err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	out, err := s.handlers.Review.Execute(r.Context(), &in)
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCompleteStep(w http.ResponseWriter, r *http.Request) {
	var in completestep.Input
	if err := decodeJSON(w, r, &in); err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	out, err := s.handlers.CompleteStep.Execute(r.Context(), &in)
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out.Application)
}

func (s *Server) handleRollbackStep(w http.ResponseWriter, r *http.Request) {
	var in rollbackstep.Input
	if err := decodeJSON(w, r, &in); err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	out, err := s.handlers.RollbackStep.Execute(r.Context(), &in)
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out.Application)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.errors.WriteError(w, r, invalidBody(fmt.Errorf("document id must be an integer")))
		return
	}
	out, err := s.handlers.Delete.Execute(r.Context(), &deletedocument.Input{DocumentID: id})
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	out, err := s.handlers.Categories.Execute(r.Context(), &listcategories.Input{ClaimType: r.PathValue("claimType")})
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateClaim(w http.ResponseWriter, r *http.Request) {
	var fields map[string]json.RawMessage
	if err := decodeJSON(w, r, &fields); err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	out, err := s.handlers.CreateClaim.Execute(r.Context(), &createclaimapplication.Input{Fields: fields})
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleUpdateClaimDocuments(w http.ResponseWriter, r *http.Request) {
	var fields map[string]json.RawMessage
	if err := decodeJSON(w, r, &fields); err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	out, err := s.handlers.ClaimDocuments.Execute(r.Context(), &updateclaimdocuments.Input{
		ApplicationID: r.PathValue("id"),
		Fields:        fields,
	})
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
