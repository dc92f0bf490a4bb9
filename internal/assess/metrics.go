package assess

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/esitriage/internal/esi"
	"github.com/linnemanlabs/esitriage/internal/predictor"
	"github.com/linnemanlabs/esitriage/internal/queue"
)

// Metrics holds Prometheus metrics for the assessment pipeline.
type Metrics struct {
	SubmitsTotal        *prometheus.CounterVec
	AssessmentsTotal    *prometheus.CounterVec
	PredictorCalls      *prometheus.CounterVec
	PredictorDuration   *prometheus.HistogramVec
	QueuePersistTotal   *prometheus.CounterVec
	QueuePersistSeconds prometheus.Histogram
	QueueLoadsTotal     *prometheus.CounterVec
	QueueEntries        prometheus.Gauge
	NotificationsTotal  *prometheus.CounterVec
	RemoteReadsTotal    *prometheus.CounterVec
}

// NewMetrics registers and returns assessment metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esitriage_submits_total",
			Help: "Total assessment submissions by result.",
		}, []string{"result"}),
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esitriage_assessments_total",
			Help: "Completed assessments by predicted ESI level.",
		}, []string{"level"}),
		PredictorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esitriage_predictor_calls_total",
			Help: "Predictor exchanges by backend and outcome.",
		}, []string{"backend", "outcome"}),
		PredictorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "esitriage_predictor_call_duration_seconds",
			Help:    "Duration of predictor exchanges in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"backend"}),
		QueuePersistTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esitriage_queue_persist_total",
			Help: "Local queue writes by outcome.",
		}, []string{"outcome"}),
		QueuePersistSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "esitriage_queue_persist_duration_seconds",
			Help:    "Duration of local queue writes in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		}),
		QueueLoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esitriage_queue_loads_total",
			Help: "Local queue loads by outcome.",
		}, []string{"outcome"}),
		QueueEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "esitriage_queue_entries",
			Help: "Entries currently held in the local queue.",
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esitriage_notifications_total",
			Help: "Critical-level notifications by result.",
		}, []string{"result"}),
		RemoteReadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esitriage_remote_queue_reads_total",
			Help: "Server queue reads by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.SubmitsTotal,
		m.AssessmentsTotal,
		m.PredictorCalls,
		m.PredictorDuration,
		m.QueuePersistTotal,
		m.QueuePersistSeconds,
		m.QueueLoadsTotal,
		m.QueueEntries,
		m.NotificationsTotal,
		m.RemoteReadsTotal,
	)

	return m
}

// PredictorHooks returns predictor hooks that increment the corresponding metrics.
func (m *Metrics) PredictorHooks() predictor.Hooks {
	return predictor.Hooks{
		OnExchange: func(backend, outcome string, _ esi.Level, duration float64) {
			m.PredictorCalls.WithLabelValues(backend, outcome).Inc()
			m.PredictorDuration.WithLabelValues(backend).Observe(duration)
		},
	}
}

// QueueHooks returns queue store hooks that increment the corresponding metrics.
func (m *Metrics) QueueHooks() queue.Hooks {
	return queue.Hooks{
		OnPersist: func(outcome string, duration float64) {
			m.QueuePersistTotal.WithLabelValues(outcome).Inc()
			m.QueuePersistSeconds.Observe(duration)
		},
		OnLoad: func(outcome string, entries int) {
			m.QueueLoadsTotal.WithLabelValues(outcome).Inc()
			m.QueueEntries.Set(float64(entries))
		},
	}
}

func (m *Metrics) submitted(result string) {
	if m == nil {
		return
	}
	m.SubmitsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) assessed(level esi.Level, queueLen int) {
	if m == nil {
		return
	}
	m.AssessmentsTotal.WithLabelValues(strconv.Itoa(int(level))).Inc()
	m.QueueEntries.Set(float64(queueLen))
}

func (m *Metrics) notified(result string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) remoteRead(result string) {
	if m == nil {
		return
	}
	m.RemoteReadsTotal.WithLabelValues(result).Inc()
}
