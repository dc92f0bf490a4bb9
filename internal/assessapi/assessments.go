package assessapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/esitriage/internal/esi"
	"github.com/linnemanlabs/esitriage/internal/predictor"
)

type submitResponse struct {
	SubmissionID string      `json:"submission_id"`
	Outcome      esi.Outcome `json:"outcome"`
	Entry        esi.Entry   `json:"entry"`
	Urgency      string      `json:"urgency"`
	Persisted    bool        `json:"persisted"`
}

type failureResponse struct {
	Error       string          `json:"error"`
	Observation esi.Observation `json:"observation"`
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	obs := esi.NewObservation()
	if err := json.NewDecoder(r.Body).Decode(&obs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if obs.AdditionalSymptoms == nil {
		obs.AdditionalSymptoms = esi.NewSymptomSet()
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int("esitriage.symptoms", len(obs.AdditionalSymptoms)))

	res, err := a.svc.Submit(ctx, obs)
	if err != nil {
		var ve *esi.ValidationError
		var ee *predictor.ExchangeError
		var ce *predictor.ContractError
		switch {
		case errors.As(err, &ve):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  ve.Error(),
				"fields": ve.Fields,
			})
		case errors.As(err, &ee), errors.As(err, &ce):
			writeJSON(w, http.StatusBadGateway, failureResponse{Error: err.Error(), Observation: obs})
		default:
			a.logger.Error(ctx, err, "assessment failed")
			writeJSON(w, http.StatusInternalServerError, failureResponse{Error: "internal error", Observation: obs})
		}
		return
	}

	span.SetAttributes(
		attribute.String("esitriage.submission_id", res.SubmissionID),
		attribute.Int("esitriage.esi_level", int(res.Outcome.Level)),
	)

	writeJSON(w, http.StatusOK, submitResponse{
		SubmissionID: res.SubmissionID,
		Outcome:      res.Outcome,
		Entry:        res.Entry,
		Urgency:      res.Outcome.Level.Label(),
		Persisted:    res.Persisted,
	})
}
