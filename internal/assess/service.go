package assess

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/esitriage/internal/esi"
	"github.com/linnemanlabs/esitriage/internal/predictor"
	"github.com/linnemanlabs/esitriage/internal/queue"
)

const defaultNotifyTimeout = 15 * time.Second

// ErrRemoteDisabled is returned by RemoteQueue when no server queue is configured.
var ErrRemoteDisabled = errors.New("server queue is not configured")

// Predictor exchanges an encoded observation for an outcome.
type Predictor interface {
	Predict(ctx context.Context, payload esi.Payload) (*esi.Outcome, error)
}

// RemoteReader reads the server-side queue.
type RemoteReader interface {
	Read(ctx context.Context) ([]esi.RemoteRow, error)
}

// Notifier is told about assessments at a critical level.
type Notifier interface {
	Send(ctx context.Context, submissionID string, e esi.Entry) error
}

// Result is the outcome of one successful submission.
type Result struct {
	SubmissionID string
	Outcome      esi.Outcome
	Entry        esi.Entry
	// Persisted is false when the entry is in the session queue but the slot
	// write failed.
	Persisted bool
}

// Option configures a Service.
type Option func(*Service)

// WithRemote enables RemoteQueue.
func WithRemote(r RemoteReader) Option {
	return func(s *Service) { s.remote = r }
}

// WithNotifier sends critical outcomes to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records submission metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock sets the clock and the zone entry timestamps are rendered in.
func WithClock(now func() time.Time, loc *time.Location) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
		if loc != nil {
			s.loc = loc
		}
	}
}

// Service owns the submission pipeline.
type Service struct {
	queue     *queue.Store
	predictor Predictor
	remote    RemoteReader
	notifier  Notifier
	metrics   *Metrics
	logger    log.Logger
	now       func() time.Time
	loc       *time.Location

	notifyTimeout time.Duration
	wg            sync.WaitGroup
}

// NewService creates a new assessment service.
func NewService(store *queue.Store, p Predictor, logger log.Logger, opts ...Option) *Service {
	if store == nil {
		panic(xerrors.New("queue store is required"))
	}
	if p == nil {
		panic(xerrors.New("predictor is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	s := &Service{
		queue:         store,
		predictor:     p,
		logger:        logger,
		now:           time.Now,
		loc:           time.Local,
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs one assessment cycle. Validation, exchange and contract errors
// are returned unchanged and leave the queue untouched. A slot write failure
// does not fail the submission; it is reported through Result.Persisted.
func (s *Service) Submit(ctx context.Context, obs esi.Observation) (*Result, error) {
	id := ulid.Make().String()
	L := s.logger.With("submission_id", id, "patient_id", obs.PatientID)

	if err := obs.Validate(); err != nil {
		s.metrics.submitted("invalid")
		L.Info(ctx, "assessment rejected", "error", err)
		return nil, err
	}

	out, err := s.predictor.Predict(ctx, esi.Encode(obs))
	if err != nil {
		var ce *predictor.ContractError
		if errors.As(err, &ce) {
			s.metrics.submitted("contract_error")
		} else {
			s.metrics.submitted("exchange_error")
		}
		L.Warn(ctx, "assessment failed", "error", err)
		return nil, err
	}

	entry := esi.NewEntry(obs, *out, s.now().In(s.loc))
	perr := s.queue.Append(ctx, entry)

	s.metrics.submitted("ok")
	s.metrics.assessed(out.Level, s.queue.Len())
	L.Info(ctx, "assessment recorded",
		"esi_level", int(out.Level),
		"urgency", out.Level.Label(),
		"persisted", perr == nil,
	)

	if s.notifier != nil && out.Level.Critical() {
		s.wg.Add(1)
		go s.notify(context.WithoutCancel(ctx), id, entry.Clone())
	}

	return &Result{
		SubmissionID: id,
		Outcome:      *out,
		Entry:        entry,
		Persisted:    perr == nil,
	}, nil
}

func (s *Service) notify(ctx context.Context, id string, e esi.Entry) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	if err := s.notifier.Send(ctx, id, e); err != nil {
		s.metrics.notified("error")
		s.logger.Error(ctx, err, "failed to send notification", "submission_id", id, "patient_id", e.ID)
		return
	}
	s.metrics.notified("sent")
}

// Wait blocks until in-flight notifications finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LocalQueue returns the ordered local entries and the diagnostic from the
// last load, if it failed.
func (s *Service) LocalQueue() ([]esi.Entry, error) {
	return s.queue.Snapshot(), s.queue.LoadErr()
}

// RemoteQueue reads the server queue once.
func (s *Service) RemoteQueue(ctx context.Context) ([]esi.RemoteRow, error) {
	if s.remote == nil {
		return nil, ErrRemoteDisabled
	}
	rows, err := s.remote.Read(ctx)
	if err != nil {
		s.metrics.remoteRead("error")
		s.logger.Warn(ctx, "server queue read failed", "error", err)
		return nil, err
	}
	s.metrics.remoteRead("ok")
	return rows, nil
}

// Symptoms returns the symptom vocabulary filtered by term.
func (s *Service) Symptoms(term string) []esi.Symptom {
	return esi.SearchSymptoms(term)
}
