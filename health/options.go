package health

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/healthili/internal/xerrors"
)

const (
	DefaultPort = 3000
	DefaultPath = "/health"
)

// Options configures an endpoint. The zero value listens on :3000 at /health
// with no timeout and no metadata.
type Options struct {
	ServiceID   Value
	Description string
	Version     Value
	ReleaseID   Value

	// Host is the bind address; empty means all interfaces.
	Host string
	// Port 0 means DefaultPort.
	Port int
	// Path is matched exactly against the request target. A missing leading
	// "/" is added.
	Path string

	// HideError drops the failure message from the payload.
	HideError bool
	// Timeout bounds each check; 0 disables it.
	Timeout time.Duration

	// Logger defaults to discarding everything.
	Logger *slog.Logger
	// Registerer receives the endpoint's metrics when set.
	Registerer prometheus.Registerer
	// EnableTracing adds otelhttp server spans around each request.
	EnableTracing bool
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// NormalizePath returns DefaultPath for "" and ensures a leading "/".
func NormalizePath(p string) string {
	if p == "" {
		return DefaultPath
	}
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

func (o Options) normalized() Options {
	o.Path = NormalizePath(o.Path)
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.Timeout < 0 {
		o.Timeout = 0
	}
	return o
}

// metadataErr reports payload values that cannot be encoded, such as NaN.
func (o Options) metadataErr() error {
	var errs []error
	for _, f := range []struct {
		name string
		v    Value
	}{
		{"serviceId", o.ServiceID},
		{"version", o.Version},
		{"releaseId", o.ReleaseID},
	} {
		if err := f.v.validate(); err != nil {
			errs = append(errs, xerrors.Wrap(err, f.name))
		}
	}
	return errors.Join(errs...)
}

// withoutInvalidMetadata unsets the values metadataErr complains about.
func (o Options) withoutInvalidMetadata() Options {
	for _, v := range []*Value{&o.ServiceID, &o.Version, &o.ReleaseID} {
		if v.validate() != nil {
			*v = Value{}
		}
	}
	return o
}
