package httpmw

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/healthili/internal/log"
	"github.com/keithlinneman/healthili/internal/xerrors"
)

// responseWriter records status and size and times the response write as a
// "response.write" child span when the request is traced.
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64

	ctx       context.Context
	reqStart  time.Time
	writeSpan trace.Span
	started   bool
}

func (rw *responseWriter) startWrite() {
	if rw.started {
		return
	}
	rw.started = true
	if !trace.SpanFromContext(rw.ctx).IsRecording() {
		return
	}
	_, rw.writeSpan = otel.Tracer("healthili/httpmw").Start(rw.ctx, "response.write",
		trace.WithAttributes(attribute.Float64("http.server.ttfb_seconds", time.Since(rw.reqStart).Seconds())),
	)
}

func (rw *responseWriter) endWrite() {
	if rw.writeSpan == nil {
		return
	}
	rw.writeSpan.SetAttributes(
		attribute.Int("http.response.status_code", rw.statusCode()),
		attribute.Int64("http.response.body.size", rw.bytes),
	)
	rw.writeSpan.End()
}

func (rw *responseWriter) statusCode() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.startWrite()
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.startWrite()
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, xerrors.New("underlying ResponseWriter does not implement http.Hijacker")
	}
	return h.Hijack()
}

// WithLogger stores a request-scoped logger in the context, derived from base
// with the request ID, method and target.
func WithLogger(base log.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := RequestIDFromContext(ctx)

			peer := r.RemoteAddr
			if host, _, err := net.SplitHostPort(peer); err == nil {
				peer = host
			}

			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(
					attribute.String("request_id", reqID),
					attribute.String("network.peer.address", peer),
				)
			}

			L := base.With(
				"request_id", reqID,
				"network.peer.address", peer,
				"http.request.method", r.Method,
				"url.path", r.URL.Path,
				"http.request.target", r.RequestURI,
			)
			next.ServeHTTP(w, r.WithContext(log.WithContext(ctx, L)))
		})
	}
}

// AccessLog logs one debug line per request using the context logger.
// Probes hit the endpoint every few seconds, so it never logs above debug.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, ctx: r.Context(), reqStart: start}

			next.ServeHTTP(rw, r)
			rw.endWrite()

			log.FromContext(r.Context()).Debug(r.Context(), "http request",
				"http.response.status_code", rw.statusCode(),
				"http.server.request.duration", time.Since(start).Seconds(),
				"http.response.body.size", rw.bytes,
			)
		})
	}
}
