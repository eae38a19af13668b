package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/healthili/internal/version"
	"github.com/keithlinneman/healthili/internal/xerrors"
)

// CheckMetrics instruments one or more health endpoints sharing a registerer.
// A nil *CheckMetrics is valid and records nothing.
type CheckMetrics struct {
	inflight    prometheus.Gauge
	reqTotal    *prometheus.CounterVec
	reqDur      *prometheus.HistogramVec
	checksTotal *prometheus.CounterVec
	checkDur    prometheus.Histogram
	timeouts    prometheus.Counter
	panics      prometheus.Counter
}

// NewRegistry returns a fresh registry with the standard Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the gathered metrics in text or OpenMetrics format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// New registers the health collectors on reg. Collectors already registered
// by another endpoint on the same registerer are reused.
func New(reg prometheus.Registerer) (*CheckMetrics, error) {
	m := &CheckMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "health_checks_total",
			Help: "Total health check invocations by canonical status",
		}, []string{"status"}),
		checkDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "health_check_duration_seconds",
			Help:    "Time spent waiting on the health check, timeouts included",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "health_check_timeouts_total",
			Help: "Total health checks that lost the race against their timeout",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "health_check_panics_total",
			Help: "Total recovered panics in health checks and their handler",
		}),
	}

	var err error
	if m.inflight, err = register(reg, m.inflight); err != nil {
		return nil, err
	}
	if m.reqTotal, err = register(reg, m.reqTotal); err != nil {
		return nil, err
	}
	if m.reqDur, err = register(reg, m.reqDur); err != nil {
		return nil, err
	}
	if m.checksTotal, err = register(reg, m.checksTotal); err != nil {
		return nil, err
	}
	if m.checkDur, err = register(reg, m.checkDur); err != nil {
		return nil, err
	}
	if m.timeouts, err = register(reg, m.timeouts); err != nil {
		return nil, err
	}
	if m.panics, err = register(reg, m.panics); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, xerrors.Wrap(err, "register health metrics")
}

func (m *CheckMetrics) ObserveCheck(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(status).Inc()
	m.checkDur.Observe(d.Seconds())
}

func (m *CheckMetrics) IncTimeout() {
	if m == nil {
		return
	}
	m.timeouts.Inc()
}

func (m *CheckMetrics) IncPanic() {
	if m == nil {
		return
	}
	m.panics.Inc()
}

// SetBuildInfo publishes a build_info gauge, set once at startup.
func SetBuildInfo(reg prometheus.Registerer, app string, vi version.Info) error {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1)",
	}, []string{"app", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"})
	if err := reg.Register(g); err != nil {
		return xerrors.Wrap(err, "register build_info")
	}
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	g.With(prometheus.Labels{
		"app":         app,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildId,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
	return nil
}
