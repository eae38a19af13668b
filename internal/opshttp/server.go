// Package opshttp runs the admin listener: metrics, pprof and the daemon's
// own liveness and readiness. It only answers loopback, private and
// link-local clients.
package opshttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/keithlinneman/healthili/health"
	"github.com/keithlinneman/healthili/internal/httpmw"
	"github.com/keithlinneman/healthili/internal/log"
	"github.com/keithlinneman/healthili/internal/xerrors"
)

const DefaultPort = 9000

// admin routes only take small bodies (pprof symbol lookups)
const maxBodyBytes = 64 << 10

// NewHandler builds the admin router.
func NewHandler(L log.Logger, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(httpmw.Recover(L, opts.OnPanic))
	r.Use(func(next http.Handler) http.Handler { return requireNonPublicNetwork(L, next) })
	r.Use(httpmw.MaxBody(maxBodyBytes))

	r.Get("/-/healthy", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/-/ready", readyHandler(opts.Ready))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	if opts.EnablePprof {
		r.Mount("/debug", middleware.Profiler())
	} else {
		r.HandleFunc("/debug/*", http.NotFound)
	}
	return r
}

func readyHandler(check health.Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := health.Invoke(r.Context(), check, 0)
		status, _ := health.Classify(out, err)
		switch {
		case err != nil:
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		case status == health.StatusFail:
			http.Error(w, "not ready", http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
		}
	}
}

func requireNonPublicNetwork(L log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ap, err := netip.ParseAddrPort(r.RemoteAddr)
		if err != nil {
			L.Warn(r.Context(), "ops request with unparseable remote addr", "remote_addr", r.RemoteAddr)
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		ip := ap.Addr().Unmap()
		if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsLinkLocalUnicast() {
			L.Warn(r.Context(), "ops request from public address rejected", "remote_addr", r.RemoteAddr, "url.path", r.URL.Path)
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		// only a proxy sets this, and nothing should proxy to the ops port
		if r.Header.Get("X-Forwarded-For") != "" {
			L.Warn(r.Context(), "ops request via proxy rejected", "remote_addr", r.RemoteAddr, "url.path", r.URL.Path)
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start admin HTTP server with /metrics, /-/healthy, /-/ready, pprof debug endpoints
// Returns stop(ctx) for graceful shutdown
func Start(ctx context.Context, L log.Logger, opts Options) (func(context.Context) error, error) {
	if L == nil {
		L = log.Nop()
	}
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(port))

	srv := &http.Server{
		Handler:           NewHandler(L, opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// pprof profile and trace default to 30s captures
		WriteTimeout:   45 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "could not listen for admin port on addr=%v", addr)
	}

	go func() {
		L.Info(ctx, "ops http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			L.Error(ctx, err, "ops http server error")
		}
	}()

	var once sync.Once
	var stopErr error
	stop := func(sctx context.Context) error {
		once.Do(func() {
			L.Info(sctx, "ops http server shutting down")
			c, cancel := context.WithTimeout(sctx, 5*time.Second)
			defer cancel()
			stopErr = xerrors.Wrap(srv.Shutdown(c), "shutdown ops http server")
		})
		return stopErr
	}
	return stop, nil
}
