package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/healthili/internal/httpmw"
	"github.com/keithlinneman/healthili/internal/log"
	"github.com/keithlinneman/healthili/internal/metrics"
)

// ContentType of every health response.
const ContentType = "application/health+json"

const tracerName = "github.com/keithlinneman/healthili/health"

var failBody = []byte(`{"status":"fail"}`)

type handler struct {
	check  Check
	opts   Options
	L      log.Logger
	m      *metrics.CheckMetrics
	tracer trace.Tracer
}

// NewHandler returns the endpoint's HTTP handler without a listener, for
// mounting on a server the caller already runs.
func NewHandler(check Check, opts Options) http.Handler {
	opts = opts.normalized()
	L := log.FromSlog(opts.Logger)
	if err := opts.metadataErr(); err != nil {
		L.Error(context.Background(), err, "unencodable health metadata left out of the payload")
		opts = opts.withoutInvalidMetadata()
	}

	var m *metrics.CheckMetrics
	if opts.Registerer != nil {
		var err error
		if m, err = metrics.New(opts.Registerer); err != nil {
			L.Error(context.Background(), err, "health metrics disabled")
			m = nil
		}
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	h := &handler{check: check, opts: opts, L: L, m: m, tracer: tp.Tracer(tracerName)}

	route := func(r *http.Request) string {
		if r.RequestURI == opts.Path {
			return opts.Path
		}
		return "unmatched"
	}

	var out http.Handler = httpmw.Chain(h,
		httpmw.Recover(L, m.IncPanic),
		httpmw.RequestID("X-Request-Id"),
		httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id"),
		httpmw.WithLogger(L),
		httpmw.AccessLog(),
		m.Middleware(route),
	)
	if opts.EnableTracing {
		out = otelhttp.NewHandler(out, "health",
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + route(r)
			}),
		)
	}
	return out
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.RequestURI != h.opts.Path {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "health.check")
	defer span.End()

	start := time.Now()
	out, err := Invoke(ctx, h.check, h.opts.Timeout)
	status, code := Classify(out, err)
	h.record(ctx, span, status, err, time.Since(start))

	body, merr := json.Marshal(BuildPayload(status, err, h.opts))
	if merr != nil {
		log.FromContext(ctx).Error(ctx, merr, "encode health payload")
		body, code = failBody, http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func (h *handler) record(ctx context.Context, span trace.Span, status Status, err error, d time.Duration) {
	h.m.ObserveCheck(status.String(), d)
	span.SetAttributes(attribute.String("health.status", status.String()))

	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	L := log.FromContext(ctx)
	var pe *PanicError
	switch {
	case errors.Is(err, ErrTimeout):
		h.m.IncTimeout()
		L.Warn(ctx, "health check timed out", "timeout", h.opts.Timeout.String())
	case errors.As(err, &pe):
		h.m.IncPanic()
		L.Error(ctx, err, "health check panicked", "panic_stack", string(pe.Stack))
	default:
		L.Warn(ctx, "health check failed", "err", err.Error())
	}
}
