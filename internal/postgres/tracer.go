package postgres

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
)

const modulePrefix = "github.com/linnemanlabs/esitriage/"

var (
	queryObserver atomic.Pointer[queryObserverHolder]
	logThreshold  atomic.Int64
)

type queryStateKey struct{}

type dbStatsKey struct{}

// queryState travels from TraceQueryStart to TraceQueryEnd.
type queryState struct {
	op     string
	caller string
	bytes  int
	start  time.Time
}

type queryObserverHolder struct{ QueryObserver }

// QueryObserver receives per-query metrics (wired by main for Prometheus).
// operation is the leading SQL keyword, route the chi pattern of the request
// that issued the query.
type QueryObserver interface {
	ObserveQuery(ctx context.Context, operation, route, outcome string, dur time.Duration)
}

// QueryObserverFunc adapts a plain function to QueryObserver.
type QueryObserverFunc func(ctx context.Context, operation, route, outcome string, dur time.Duration)

// ObserveQuery implements QueryObserver.
func (f QueryObserverFunc) ObserveQuery(ctx context.Context, operation, route, outcome string, dur time.Duration) {
	f(ctx, operation, route, outcome, dur)
}

// SetQueryObserver sets the global query observer (typically a Prometheus histogram).
func SetQueryObserver(o QueryObserver) {
	if o == nil {
		queryObserver.Store(nil)
		return
	}
	queryObserver.Store(&queryObserverHolder{QueryObserver: o})
}

// SetLogThreshold suppresses the log line for successful queries faster than d.
// Failed queries are always logged. 0 logs every query.
func SetLogThreshold(d time.Duration) {
	logThreshold.Store(int64(d))
}

func getQueryObserver() QueryObserver {
	h := queryObserver.Load()
	if h == nil {
		return nil
	}
	return h.QueryObserver
}

// ReqDBStats accumulates per-request database query statistics.
type ReqDBStats struct {
	mu            sync.Mutex
	QueryCount    int
	TotalDuration time.Duration
	ErrorCount    int
}

// AddQuery records a single query execution.
func (s *ReqDBStats) AddQuery(dur time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.QueryCount++
	s.TotalDuration += dur
	if err != nil {
		s.ErrorCount++
	}
}

func (s *ReqDBStats) snapshot() (count int, total time.Duration, errs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.QueryCount, s.TotalDuration, s.ErrorCount
}

// NewReqDBStatsContext returns a new context with an empty ReqDBStats attached.
func NewReqDBStatsContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, dbStatsKey{}, &ReqDBStats{})
}

// ReqDBStatsFromContext extracts the ReqDBStats from the context, if present.
func ReqDBStatsFromContext(ctx context.Context) (*ReqDBStats, bool) {
	s, ok := ctx.Value(dbStatsKey{}).(*ReqDBStats)
	return s, ok
}

// RequestStats attaches a ReqDBStats to every request and, once the handler
// returns, records the totals on the request span.
func RequestStats(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := NewReqDBStatsContext(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))

		s, _ := ReqDBStatsFromContext(ctx)
		count, total, errs := s.snapshot()
		if count == 0 {
			return
		}
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(
				attribute.Int("db.query_count", count),
				attribute.Int("db.error_count", errs),
				attribute.Float64("db.total_duration_seconds", total.Seconds()),
			)
		}
	})
}

// loggingTracer wraps another pgx.QueryTracer (otelpgx) and adds a structured
// log line and an observer call for every query. Query arguments carry
// patient records, so only their size is logged.
type loggingTracer struct {
	inner pgx.QueryTracer
}

func wrapQueryTracer(inner pgx.QueryTracer) pgx.QueryTracer {
	return loggingTracer{inner: inner}
}

func (t loggingTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	st := &queryState{
		op:     operationName(data.SQL),
		caller: appCaller(),
		bytes:  argBytes(data.Args),
		start:  time.Now(),
	}

	if t.inner != nil {
		ctx = t.inner.TraceQueryStart(ctx, conn, data)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() && st.caller != "" {
		span.SetAttributes(attribute.String("db.caller", st.caller))
	}
	return context.WithValue(ctx, queryStateKey{}, st)
}

func (t loggingTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	// inner first so the otelpgx span ends with the query
	if t.inner != nil {
		t.inner.TraceQueryEnd(ctx, conn, data)
	}

	st, ok := ctx.Value(queryStateKey{}).(*queryState)
	if !ok {
		return
	}
	dur := time.Since(st.start)

	if s, ok := ReqDBStatsFromContext(ctx); ok {
		s.AddQuery(dur, data.Err)
	}

	outcome := "ok"
	if data.Err != nil {
		outcome = "error"
	}
	if obs := getQueryObserver(); obs != nil {
		obs.ObserveQuery(ctx, st.op, routePattern(ctx), outcome, dur)
	}

	if data.Err == nil && dur < time.Duration(logThreshold.Load()) {
		return
	}

	fields := []any{
		"db.operation.name", st.op,
		"db.args_bytes", st.bytes,
		"db.duration", dur.Seconds(),
	}
	if tag := data.CommandTag.String(); tag != "" {
		fields = append(fields, "pg.command_tag", tag, "db.rows", data.CommandTag.RowsAffected())
	}
	if st.caller != "" {
		fields = append(fields, "db.caller", st.caller)
	}

	L := log.FromContext(ctx)
	if data.Err != nil {
		var pgErr *pgconn.PgError
		if errors.As(data.Err, &pgErr) {
			fields = append(fields, "db.error_code", pgErr.Code)
		}
		L.Error(ctx, data.Err, "db query failed", fields...)
		return
	}
	L.Info(ctx, "db query", fields...)
}

func routePattern(ctx context.Context) string {
	if rc := chi.RouteContext(ctx); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "none"
}

// operationName returns the leading SQL keyword, upper-cased.
func operationName(sql string) string {
	f := strings.Fields(sql)
	if len(f) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(f[0])
}

func argBytes(args []any) int {
	n := 0
	for _, a := range args {
		switch v := a.(type) {
		case string:
			n += len(v)
		case []byte:
			n += len(v)
		}
	}
	return n
}

// appCaller returns the first frame inside this module that is not part of
// the postgres package, e.g. "pgslot.(*Slot).Put".
func appCaller() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		fr, more := frames.Next()
		if strings.HasPrefix(fr.Function, modulePrefix) &&
			!strings.HasPrefix(fr.Function, modulePrefix+"internal/postgres.") {
			return shortenFuncName(fr.Function)
		}
		if !more {
			return ""
		}
	}
}

// shortenFuncName keeps the last package name, receiver and method.
func shortenFuncName(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	return fn
}
