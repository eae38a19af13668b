package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}
func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

// Middleware measures inflight, total and duration. route maps a request to a
// bounded label value so arbitrary paths cannot explode cardinality.
func (m *CheckMetrics) Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.inflight.Inc()
			defer m.inflight.Dec()

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			code := sw.status
			if code == 0 {
				code = http.StatusOK
			}
			label := route(r)
			m.reqTotal.WithLabelValues(r.Method, label, strconv.Itoa(code)).Inc()

			lat := time.Since(start).Seconds()
			obs := m.reqDur.WithLabelValues(r.Method, label)
			if ex := traceExemplar(r.Context()); ex != nil {
				if eo, ok := obs.(prometheus.ExemplarObserver); ok {
					eo.ObserveWithExemplar(lat, ex)
					return
				}
			}
			obs.Observe(lat)
		})
	}
}

// if a sampled trace is present attach its trace_id as an exemplar
func traceExemplar(ctx context.Context) prometheus.Labels {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || !sc.IsSampled() {
		return nil
	}
	return prometheus.Labels{"trace_id": sc.TraceID().String()}
}
