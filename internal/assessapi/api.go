// Package assessapi exposes the assessment service over HTTP.
package assessapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/esitriage/internal/assess"
	"github.com/linnemanlabs/esitriage/internal/esi"
)

// AssessService defines the business operations assessapi needs.
type AssessService interface {
	Submit(ctx context.Context, obs esi.Observation) (*assess.Result, error)
	LocalQueue() ([]esi.Entry, error)
	RemoteQueue(ctx context.Context) ([]esi.RemoteRow, error)
	Symptoms(term string) []esi.Symptom
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    AssessService
}

// New creates a new API handler.
func New(logger log.Logger, svc AssessService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("assess service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router. Extra middlewares
// wrap only the /api/v1 group.
func (a *API) RegisterRoutes(r chi.Router, mws ...func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mws...)
		r.Post("/assessments", a.handleSubmit)
		r.Get("/queue", a.handleLocalQueue)
		r.Get("/queue/remote", a.handleRemoteQueue)
		r.Get("/symptoms", a.handleSymptoms)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
