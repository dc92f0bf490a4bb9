package assessapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/esitriage/internal/assess"
	"github.com/linnemanlabs/esitriage/internal/esi"
	"github.com/linnemanlabs/esitriage/internal/predictor"
	"github.com/linnemanlabs/esitriage/internal/queue"
	"github.com/linnemanlabs/esitriage/internal/queue/memslot"
	"github.com/linnemanlabs/esitriage/internal/remotequeue"
)

const validBody = `{"patientId":"P-55","age":"55","gender":"Male","chestPain":true,"fever":false,` +
	`"breathingDifficulty":false,"consciousness":"Alert","pulseRate":"85","additionalSymptoms":["abdomnlpain"]}`

type predictorStub struct {
	status int
	body   atomic.Value
	calls  atomic.Int32
}

func (p *predictorStub) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	p.calls.Add(1)
	w.WriteHeader(p.status)
	_, _ = w.Write([]byte(p.body.Load().(string)))
}

type testEnv struct {
	router    chi.Router
	store     *queue.Store
	predictor *predictorStub
}

func newTestEnv(t *testing.T, status int, body string, opts ...assess.Option) *testEnv {
	t.Helper()

	stub := &predictorStub{status: status}
	stub.body.Store(body)
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	store := queue.New(memslot.New(), "", log.Nop(), queue.Hooks{})
	gw := predictor.NewGateway(predictor.NewHTTPBackend(srv.URL, time.Second), log.Nop(), predictor.Hooks{})
	opts = append([]assess.Option{assess.WithClock(func() time.Time {
		return time.Date(2025, 5, 5, 8, 0, 0, 0, time.UTC)
	}, time.UTC)}, opts...)
	svc := assess.NewService(store, gw, log.Nop(), opts...)

	r := chi.NewRouter()
	New(nil, svc).RegisterRoutes(r)
	return &testEnv{router: r, store: store, predictor: stub}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

var _ AssessService = (*assess.Service)(nil)

func newOfflineService() *assess.Service {
	store := queue.New(memslot.New(), "", nil, queue.Hooks{})
	gw := predictor.NewGateway(predictor.NewHTTPBackend("http://127.0.0.1:0", 0), nil, predictor.Hooks{})
	return assess.NewService(store, gw, nil)
}

// New / constructor

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	api := New(nil, newOfflineService())
	if api.logger == nil {
		t.Fatal("New(nil, svc) left logger nil; expected Nop logger")
	}
}

func TestNew_NilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New(nil, nil) did not panic; expected panic for nil service")
		}
	}()
	New(nil, nil)
}

// Routing

func TestRegisterRoutes_MethodsAndPaths(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusOK, `{"predicted_esi":3}`)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"POST assessment", http.MethodPost, "/api/v1/assessments", validBody, http.StatusOK},
		{"GET assessments not allowed", http.MethodGet, "/api/v1/assessments", "", http.StatusMethodNotAllowed},
		{"GET local queue", http.MethodGet, "/api/v1/queue", "", http.StatusOK},
		{"DELETE local queue not allowed", http.MethodDelete, "/api/v1/queue", "", http.StatusMethodNotAllowed},
		{"GET symptoms", http.MethodGet, "/api/v1/symptoms", "", http.StatusOK},
		{"unknown path", http.MethodGet, "/api/v1/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.wantStatus)
			}
		})
	}
}

// Submission

func TestSubmit_Success(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusOK, `{"predicted_esi":1}`)
	rec := env.do(http.MethodPost, "/api/v1/assessments", validBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	resp := decode[submitResponse](t, rec)
	if resp.Outcome.Level != 1 || len(resp.Outcome.Actions) != 3 {
		t.Errorf("outcome = %+v", resp.Outcome)
	}
	if resp.Urgency != "IMMEDIATE" || !resp.Persisted || resp.SubmissionID == "" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Entry.ID != "P-55" || resp.Entry.Timestamp != "8:00:00 AM" {
		t.Errorf("entry = %+v", resp.Entry)
	}
	if !resp.Entry.Data.AdditionalSymptoms.Has("abdomnlpain") {
		t.Errorf("symptoms = %v", resp.Entry.Data.AdditionalSymptoms)
	}
	if env.store.Len() != 1 {
		t.Errorf("queue len = %d, want 1", env.store.Len())
	}
}

func TestSubmit_ValidationError(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusOK, `{"predicted_esi":1}`)
	rec := env.do(http.MethodPost, "/api/v1/assessments", `{"patientId":"x","age":"200"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	resp := decode[struct {
		Error  string           `json:"error"`
		Fields []esi.FieldError `json:"fields"`
	}](t, rec)
	if len(resp.Fields) == 0 || resp.Error == "" {
		t.Errorf("response = %+v", resp)
	}
	if env.predictor.calls.Load() != 0 {
		t.Error("predictor was called for an invalid observation")
	}
}

func TestSubmit_BadPayload(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusOK, `{"predicted_esi":1}`)
	for _, body := range []string{`{bad`, `{"additionalSymptoms":"cough"}`, ``} {
		rec := env.do(http.MethodPost, "/api/v1/assessments", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestSubmit_PredictorFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, `boom`, "Network error: Internal Server Error"},
		{"predictor message", http.StatusOK, `{"error":"Model or preprocessor not loaded."}`, "Model or preprocessor not loaded."},
		{"empty answer", http.StatusOK, `{}`, predictor.UnexpectedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t, tt.status, tt.body)
			rec := env.do(http.MethodPost, "/api/v1/assessments", validBody)
			if rec.Code != http.StatusBadGateway {
				t.Fatalf("status = %d, want 502", rec.Code)
			}

			resp := decode[failureResponse](t, rec)
			if resp.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantErr)
			}
			if resp.Observation.PatientID != "P-55" || !resp.Observation.ChestPain {
				t.Errorf("observation not echoed: %+v", resp.Observation)
			}
			if env.store.Len() != 0 {
				t.Errorf("queue len = %d, want 0", env.store.Len())
			}
		})
	}
}

// Queues

func TestLocalQueue_Ordered(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusOK, `{"predicted_esi":3}`)
	_ = env.do(http.MethodPost, "/api/v1/assessments", validBody)
	env.predictor.body.Store(`{"predicted_esi":1}`)
	_ = env.do(http.MethodPost, "/api/v1/assessments", strings.Replace(validBody, "P-55", "P-56", 1))

	rec := env.do(http.MethodGet, "/api/v1/queue", "")
	resp := decode[localQueueResponse](t, rec)
	if len(resp.Entries) != 2 || resp.Entries[0].ID != "P-56" || resp.Entries[1].ID != "P-55" {
		t.Errorf("entries = %+v", resp.Entries)
	}
}

func TestLocalQueue_HidesLoadFailure(t *testing.T) {
	t.Parallel()

	slot := memslot.New()
	if err := slot.Put(context.Background(), queue.DefaultKey, []byte(`{not json`)); err != nil {
		t.Fatal(err)
	}
	store := queue.New(slot, "", log.Nop(), queue.Hooks{})
	store.Load(context.Background())
	if store.LoadErr() == nil {
		t.Fatal("expected a load diagnostic on the store")
	}

	gw := predictor.NewGateway(predictor.NewHTTPBackend("http://127.0.0.1:0", 0), nil, predictor.Hooks{})
	r := chi.NewRouter()
	New(nil, assess.NewService(store, gw, nil)).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queue", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"entries":[]}` {
		t.Errorf("body = %s, want only the empty entries list", rec.Body.String())
	}
}

func TestLocalQueue_EmptyIsArray(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusOK, `{}`)
	rec := env.do(http.MethodGet, "/api/v1/queue", "")
	if !strings.Contains(rec.Body.String(), `"entries":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRemoteQueue(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusOK, `{}`)
	if rec := env.do(http.MethodGet, "/api/v1/queue/remote", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled remote = %d, want 503", rec.Code)
	}

	remoteSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"patient_id":"r1","age":30,"gender":"Female","predicted_esi":2,"assessment_time":"2025-05-05T07:00:00Z"}]`))
	}))
	defer remoteSrv.Close()
	reader, err := remotequeue.NewReader(remoteSrv.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	env = newTestEnv(t, http.StatusOK, `{}`, assess.WithRemote(reader))
	rec := env.do(http.MethodGet, "/api/v1/queue/remote", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	rows := decode[[]esi.RemoteRow](t, rec)
	if len(rows) != 1 || rows[0].PatientID != "r1" || rows[0].PredictedESI != 2 {
		t.Errorf("rows = %+v", rows)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	reader, _ = remotequeue.NewReader(failing.URL, time.Second)
	env = newTestEnv(t, http.StatusOK, `{}`, assess.WithRemote(reader))
	rec = env.do(http.MethodGet, "/api/v1/queue/remote", "")
	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), remotequeue.FetchFailed) {
		t.Errorf("failing remote = %d %s", rec.Code, rec.Body.String())
	}
}

func TestSymptoms_Search(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusOK, `{}`)
	all := decode[[]esi.Symptom](t, env.do(http.MethodGet, "/api/v1/symptoms", ""))
	some := decode[[]esi.Symptom](t, env.do(http.MethodGet, "/api/v1/symptoms?q=PAIN", ""))
	if len(all) == 0 || len(some) == 0 || len(some) >= len(all) {
		t.Errorf("all %d, filtered %d", len(all), len(some))
	}
	for _, s := range some {
		if !strings.Contains(strings.ToLower(s.Name), "pain") {
			t.Errorf("%+v does not match pain", s)
		}
	}

	rec := env.do(http.MethodGet, "/api/v1/symptoms?q=zzzzqq", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("no match = %d %q, want 200 []", rec.Code, rec.Body.String())
	}
}

func TestRegisterRoutes_Middleware(t *testing.T) {
	t.Parallel()

	svc := newOfflineService()

	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	r := chi.NewRouter()
	r.Get("/-/healthy", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	New(nil, svc).RegisterRoutes(r, deny)

	for path, want := range map[string]int{"/api/v1/queue": http.StatusUnauthorized, "/-/healthy": http.StatusOK} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, want)
		}
	}
}

func FuzzSubmitPayload(f *testing.F) {
	f.Add(validBody)
	f.Add(`{}`)
	f.Add(`{"additionalSymptoms":null}`)
	f.Add(`{"age":"NaN","pulseRate":"1e400"}`)
	f.Add(`[]`)
	f.Add(`{"additionalSymptoms":[1,2]}`)

	stub := &predictorStub{status: http.StatusOK}
	stub.body.Store(`{"predicted_esi":2}`)
	srv := httptest.NewServer(stub)
	defer srv.Close()

	store := queue.New(memslot.New(), "", log.Nop(), queue.Hooks{})
	gw := predictor.NewGateway(predictor.NewHTTPBackend(srv.URL, time.Second), log.Nop(), predictor.Hooks{})
	r := chi.NewRouter()
	New(nil, assess.NewService(store, gw, log.Nop())).RegisterRoutes(r)

	f.Fuzz(func(t *testing.T, body string) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments", strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		switch rec.Code {
		case http.StatusOK, http.StatusBadRequest, http.StatusUnprocessableEntity:
		default:
			t.Fatalf("unexpected status %d for %q: %s", rec.Code, body, rec.Body.String())
		}
		if !json.Valid(rec.Body.Bytes()) {
			t.Fatalf("response is not JSON: %s", rec.Body.String())
		}
	})
}

func TestSubmit_CanceledRequest(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, http.StatusOK, `{"predicted_esi":1}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments", strings.NewReader(validBody)).WithContext(ctx)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}
