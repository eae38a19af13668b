package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"golang.org/x/sync/errgroup"

	"github.com/keithlinneman/healthili/health"
	"github.com/keithlinneman/healthili/internal/cfg"
	"github.com/keithlinneman/healthili/internal/checks"
	"github.com/keithlinneman/healthili/internal/log"
	"github.com/keithlinneman/healthili/internal/metrics"
	"github.com/keithlinneman/healthili/internal/opshttp"
	"github.com/keithlinneman/healthili/internal/otelx"
	"github.com/keithlinneman/healthili/internal/prof"
	"github.com/keithlinneman/healthili/internal/release"
	v "github.com/keithlinneman/healthili/internal/version"
	"github.com/keithlinneman/healthili/internal/xerrors"
)

const envPrefix = "HEALTHILI_"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(vi.String())
		return 0
	}

	cfg.FillFromEnv(flag.CommandLine, envPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 1
	}

	// Setup logging
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	logOpts := log.Options{
		App:               v.AppName,
		Version:           vi.Version,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JSONFormat:        conf.LogJSON,
		MaxErrorLinks:     conf.MaxErrorLinks,
		IncludeErrorLinks: conf.IncludeErrorLinks,
	}
	lg, err := log.New(logOpts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		return 1
	}
	defer func() { _ = lg.Sync() }()
	L := lg.With("component", "daemon")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildId,
		"go_version", vi.GoVersion,
		"check", conf.Check,
		"addr", net.JoinHostPort(conf.Host, fmt.Sprint(conf.Port)),
		"path", conf.Path,
		"timeout", conf.CheckTimeout.String(),
		"hide_error", conf.HideError,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"trace_sample", conf.TraceSample,
	)

	// Setup pyroscope profiling
	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":      v.AppName,
			"version":  vi.Version,
			"commit":   vi.Commit,
			"build_id": vi.BuildId,
			"source":   "go-agent",
		},
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer stopProf()

	// Insecure because traces go to a collector on localhost
	tracing, err := otelx.Init(ctx, otelx.Options{
		Enabled:  conf.EnableTracing,
		Endpoint: conf.OTLPEndpoint,
		Insecure: true,
		Sample:   conf.TraceSample,
		Service:  v.AppName,
		Version:  vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed, tracing disabled")
		if tracing, err = otelx.Init(ctx, otelx.Options{}); err != nil {
			L.Error(ctx, err, "otel fallback init failed")
			return 1
		}
	}

	reg := metrics.NewRegistry()
	if err := metrics.SetBuildInfo(reg, v.AppName, vi); err != nil {
		L.Error(ctx, err, "build info metric")
	}

	// AWS config is only loaded when a target or flag needs it
	awsConfig := sync.OnceValues(func() (aws.Config, error) {
		c, err := config.LoadDefaultConfig(ctx)
		return c, xerrors.Wrap(err, "load AWS config")
	})

	if conf.ReleaseSSM != "" {
		awsCfg, err := awsConfig()
		if err != nil {
			L.Error(ctx, err, "release id lookup needs AWS config")
			return 1
		}
		id, err := release.FromSSM(ctx, ssm.NewFromConfig(awsCfg), conf.ReleaseSSM)
		if err != nil {
			L.Error(ctx, err, "failed to resolve release id", "ssm_param", conf.ReleaseSSM)
			return 1
		}
		conf.ReleaseID = id
		L.Info(ctx, "resolved release id", "ssm_param", conf.ReleaseSSM, "release_id", id)
	}

	builder := checks.Builder{
		NewS3: func(context.Context) (checks.HeadBucketAPI, error) {
			awsCfg, err := awsConfig()
			if err != nil {
				return nil, err
			}
			return s3.NewFromConfig(awsCfg), nil
		},
	}
	check, err := builder.Build(ctx, conf.Check)
	if err != nil {
		L.Error(ctx, err, "invalid check", "check", conf.Check)
		return 1
	}
	if conf.EnablePyroscope {
		check = prof.Tagged(check, conf.Check)
	}

	// the gate fails the endpoint while draining so balancers stop routing here
	var gate health.ShutdownGate

	hopts := conf.HealthOptions()
	hopts.Logger = slog.New(log.NewHandler(logOpts)).With("app", v.AppName, "component", "endpoint")
	hopts.Registerer = reg
	hopts.EnableTracing = conf.EnableTracing
	hopts.TracerProvider = tracing.Provider

	ep, err := health.Start(ctx, gate.Wrap(check), hopts)
	if err != nil {
		L.Error(ctx, err, "failed to start health endpoint")
		return 1
	}

	// ops listener is restricted to private networks in its middleware
	var opsStop func(context.Context) error
	if conf.AdminPort != 0 {
		opsStop, err = opshttp.Start(ctx, L, opshttp.Options{
			Port:        conf.AdminPort,
			Metrics:     metrics.Handler(reg),
			EnablePprof: conf.EnablePprof,
			Ready:       gate.Wrap(health.Fixed(health.Pass)),
		})
		if err != nil {
			L.Error(ctx, err, "failed to start ops http listener")
			_ = ep.Close(context.Background())
			return 1
		}
	}

	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	exit := 0
	select {
	case <-ctx.Done():
		L.Info(context.Background(), "shutdown signal received")
	case <-ep.Done():
		L.Warn(context.Background(), "health endpoint stopped unexpectedly")
		exit = 1
	}
	stop()

	gate.Set("shutting down")
	if conf.DrainDelay > 0 && exit == 0 {
		L.Info(context.Background(), "draining", "delay", conf.DrainDelay.String())
		forceCh := make(chan os.Signal, 1)
		signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
		select {
		case <-time.After(conf.DrainDelay):
			L.Info(context.Background(), "drain period complete")
		case <-forceCh:
			L.Warn(context.Background(), "second signal received, skipping drain")
		}
		signal.Stop(forceCh)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error { return ep.Close(shutdownCtx) })
	if opsStop != nil {
		g.Go(func() error { return opsStop(shutdownCtx) })
	}
	g.Go(func() error { return xerrors.Wrap(tracing.Shutdown(shutdownCtx), "otel shutdown") })
	if err := g.Wait(); err != nil {
		L.Error(context.Background(), err, "shutdown")
		exit = 1
	}

	L.Info(context.Background(), "shutdown complete")
	return exit
}

func notifySystemd() error {
	// systemd sets NOTIFY_SOCKET when started with Type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return xerrors.New("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return xerrors.Wrap(err, "systemd notify dial")
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		return xerrors.Wrap(err, "systemd notify write")
	}
	return nil
}
