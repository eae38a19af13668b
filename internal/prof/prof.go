// Package prof pushes continuous profiles to Pyroscope.
package prof

import (
	"context"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"

	"github.com/keithlinneman/healthili/health"
	"github.com/keithlinneman/healthili/internal/log"
	"github.com/keithlinneman/healthili/internal/xerrors"
)

type Options struct {
	Enabled              bool
	AppName              string
	ServerAddress        string
	TenantID             string
	Tags                 map[string]string
	ProfileMutexFraction int
	BlockProfileRate     int
}

var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
	pyroscope.ProfileMutexCount,
	pyroscope.ProfileMutexDuration,
	pyroscope.ProfileBlockCount,
	pyroscope.ProfileBlockDuration,
}

// Start begins profiling. The returned stop is always callable and safe to
// call more than once, even when err is set.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx)
	noop := func() {}

	if !opts.Enabled {
		L.Debug(ctx, "pyroscope disabled")
		return noop, nil
	}
	if opts.ServerAddress == "" {
		return noop, xerrors.Newf("invalid server address (%q)", opts.ServerAddress)
	}

	if opts.ProfileMutexFraction > 0 {
		runtime.SetMutexProfileFraction(opts.ProfileMutexFraction)
	}
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: opts.AppName,
		ServerAddress:   opts.ServerAddress,
		TenantID:        opts.TenantID,
		Tags:            opts.Tags,
		ProfileTypes:    profileTypes,
	})
	if err != nil {
		return noop, xerrors.Wrapf(err, "start pyroscope for %s", opts.ServerAddress)
	}
	L.Info(ctx, "pyroscope started", "server_address", opts.ServerAddress, "app_name", opts.AppName)

	var once sync.Once
	return func() {
		once.Do(func() {
			profiler.Stop()
			L.Info(context.Background(), "pyroscope stopped", "server_address", opts.ServerAddress)
		})
	}, nil
}

// Tagged labels the CPU time spent in check with its target, so profiles can
// be split per probed dependency.
func Tagged(check health.Check, target string) health.Check {
	return func(ctx context.Context) (out health.Outcome, err error) {
		pyroscope.TagWrapper(ctx, pyroscope.Labels("health_check", target), func(ctx context.Context) {
			out, err = health.Invoke(ctx, check, 0)
		})
		return out, err
	}
}
