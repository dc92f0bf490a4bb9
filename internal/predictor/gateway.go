// Package predictor performs the request/response exchange with the external
// ESI predictor and turns its answer into an esi.Outcome.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/esitriage/internal/esi"
)

var tracer = otel.Tracer("github.com/linnemanlabs/esitriage/internal/predictor")

// Response is the predictor's answer: either a level or an error message.
type Response struct {
	PredictedESI *int   `json:"predicted_esi,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Backend performs one raw exchange with a predictor implementation.
type Backend interface {
	Name() string
	Exchange(ctx context.Context, payload esi.Payload) (*Response, error)
}

// Exchange outcomes reported to hooks.
const (
	OutcomeSuccess  = "success"
	OutcomeExchange = "exchange_error"
	OutcomeContract = "contract_error"
)

// Hooks receives instrumentation callbacks. Nil fields are skipped.
type Hooks struct {
	OnExchange func(backend, outcome string, level esi.Level, duration float64)
}

// Gateway exchanges encoded observations for severity outcomes. It makes
// exactly one attempt per call and caches nothing.
type Gateway struct {
	backend Backend
	logger  log.Logger
	hooks   Hooks
}

// NewGateway creates a gateway over backend.
func NewGateway(backend Backend, logger log.Logger, hooks Hooks) *Gateway {
	if backend == nil {
		panic(xerrors.New("predictor backend is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Gateway{backend: backend, logger: logger, hooks: hooks}
}

// Predict sends payload to the predictor and interprets the answer.
func (g *Gateway) Predict(ctx context.Context, payload esi.Payload) (*esi.Outcome, error) {
	ctx, span := tracer.Start(ctx, "predictor.exchange", trace.WithAttributes(
		attribute.String("predictor.backend", g.backend.Name()),
		attribute.Int("predictor.features", len(payload)),
	))
	defer span.End()

	start := time.Now()
	resp, err := g.backend.Exchange(ctx, payload)
	if err == nil {
		var out *esi.Outcome
		out, err = Interpret(resp)
		if err == nil {
			span.SetAttributes(attribute.Int("esi.level", int(out.Level)))
			g.observe(OutcomeSuccess, out.Level, start)
			return out, nil
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	outcome := OutcomeExchange
	var ce *ContractError
	if errors.As(err, &ce) {
		outcome = OutcomeContract
	}
	g.observe(outcome, 0, start)
	g.logger.Warn(ctx, "predictor exchange failed",
		"backend", g.backend.Name(),
		"outcome", outcome,
		"error", err,
	)
	return nil, err
}

func (g *Gateway) observe(outcome string, level esi.Level, start time.Time) {
	if g.hooks.OnExchange != nil {
		g.hooks.OnExchange(g.backend.Name(), outcome, level, time.Since(start).Seconds())
	}
}

// Interpret maps a raw predictor response to an outcome. A missing or zero
// level yields a ContractError carrying the predictor's own message when it
// sent one; a level outside 1..5 is also a contract violation.
func Interpret(resp *Response) (*esi.Outcome, error) {
	if resp == nil || resp.PredictedESI == nil || *resp.PredictedESI == 0 {
		msg := UnexpectedResponse
		if resp != nil && resp.Error != "" {
			msg = resp.Error
		}
		return nil, &ContractError{Message: msg}
	}

	level := esi.Level(*resp.PredictedESI)
	if !level.Valid() {
		return nil, &ContractError{Message: fmt.Sprintf("predictor returned out-of-range ESI level %d", level)}
	}

	out := esi.NewOutcome(level)
	return &out, nil
}
