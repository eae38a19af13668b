package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/keithlinneman/healthili/internal/log"
)

// App is the healthili daemon configuration.
type App struct {
	LogJSON           bool
	LogLevel          string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	Host           string
	Port           int
	Path           string
	Check          string
	CheckTimeout   time.Duration
	HideError      bool
	ServiceID      string
	Description    string
	ServiceVersion string
	ReleaseID      string
	ReleaseSSM     string
	DrainDelay     time.Duration

	AdminPort       int
	EnablePprof     bool
	EnableTracing   bool
	OTLPEndpoint    string
	TraceSample     float64
	EnablePyroscope bool
	PyroServer      string
	PyroTenantID    string
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")

	fs.StringVar(&c.Host, "host", "", "health listener bind host (empty = all interfaces)")
	fs.IntVar(&c.Port, "port", 3000, "health listener TCP port (1..65535)")
	fs.StringVar(&c.Path, "path", "/health", "health endpoint path")
	fs.StringVar(&c.Check, "check", "static:pass", "check target: static:pass|warn|fail, tcp://host:port, http(s)://url, s3://bucket")
	fs.DurationVar(&c.CheckTimeout, "timeout", 0, "max duration of one check (0 disables)")
	fs.BoolVar(&c.HideError, "hide-error", false, "omit the failure message from the payload")
	fs.StringVar(&c.ServiceID, "service-id", "", "serviceId reported in the payload")
	fs.StringVar(&c.Description, "description", "", "description reported in the payload")
	fs.StringVar(&c.ServiceVersion, "service-version", "", "version reported in the payload (numbers are sent as JSON numbers)")
	fs.StringVar(&c.ReleaseID, "release-id", "", "releaseId reported in the payload")
	fs.StringVar(&c.ReleaseSSM, "release-ssm-param", "", "ssm parameter to read releaseId from (overrides -release-id)")
	fs.DurationVar(&c.DrainDelay, "drain-delay", 0, "time to report fail before closing listeners on shutdown")

	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535, 0 disables)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := EnvKey(prefix, f.Name)
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// EnvKey maps a flag name to its environment variable.
func EnvKey(prefix, flagName string) string {
	return prefix + strings.ReplaceAll(strings.ToUpper(flagName), "-", "_")
}

func validPort(p int) bool { return p >= 1 && p <= 65535 }

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	// Ports
	if !validPort(c.Port) {
		errs = append(errs, fmt.Errorf("invalid PORT %d (must be 1..65535)", c.Port))
	}
	if c.AdminPort != 0 {
		if !validPort(c.AdminPort) {
			errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535 or 0)", c.AdminPort))
		} else if c.AdminPort == c.Port {
			errs = append(errs, fmt.Errorf("ADMIN_PORT and PORT must differ (both %d)", c.Port))
		}
	}

	// Endpoint
	if c.Check == "" {
		errs = append(errs, fmt.Errorf("CHECK is required"))
	}
	if c.CheckTimeout < 0 {
		errs = append(errs, fmt.Errorf("invalid TIMEOUT %s (must be >= 0)", c.CheckTimeout))
	}
	if c.DrainDelay < 0 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_DELAY %s (must be >= 0)", c.DrainDelay))
	}
	if strings.ContainsAny(c.Path, " ?#") {
		errs = append(errs, fmt.Errorf("PATH %q must not contain spaces, '?' or '#'", c.Path))
	}

	// Log levels
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}

	// Tracing sample
	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	// Pyroscope (URL, scheme and tenant)
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, fmt.Errorf("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	// OTLP tracing (grpc exporter wants host:port, no scheme)
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	// Error link limits
	if c.IncludeErrorLinks {
		if c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64 {
			errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
