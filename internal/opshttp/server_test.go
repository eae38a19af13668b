package opshttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keithlinneman/healthili/health"
	"github.com/keithlinneman/healthili/internal/log"
)

func getFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func startOps(t *testing.T, opts Options) int {
	t.Helper()
	opts.Host = "127.0.0.1"
	if opts.Port == 0 {
		opts.Port = getFreePort(t)
	}
	stop, err := Start(context.Background(), log.Nop(), opts)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = stop(context.Background()) })
	return opts.Port
}

func opsGet(t *testing.T, port int, path string) (int, string) {
	t.Helper()
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d%s", port, path))
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(b)
}

func TestStart_Healthy(t *testing.T) {
	port := startOps(t, Options{})
	if code, body := opsGet(t, port, "/-/healthy"); code != http.StatusOK || body != "ok\n" {
		t.Fatalf("got %d %q", code, body)
	}
}

func TestStart_ReadyNilCheck(t *testing.T) {
	port := startOps(t, Options{})
	if code, body := opsGet(t, port, "/-/ready"); code != http.StatusOK || body != "ready\n" {
		t.Fatalf("got %d %q", code, body)
	}
}

func TestStart_ReadyFollowsGate(t *testing.T) {
	var gate health.ShutdownGate
	port := startOps(t, Options{Ready: gate.Wrap(health.Fixed(health.Pass))})

	if code, _ := opsGet(t, port, "/-/ready"); code != http.StatusOK {
		t.Fatalf("before drain: status = %d", code)
	}
	gate.Set("shutting down")
	code, body := opsGet(t, port, "/-/ready")
	if code != http.StatusServiceUnavailable || !strings.Contains(body, "shutting down") {
		t.Fatalf("after drain: got %d %q", code, body)
	}
}

func TestStart_ReadyFailOutcome(t *testing.T) {
	port := startOps(t, Options{Ready: health.Fixed(health.Bool(false))})
	if code, _ := opsGet(t, port, "/-/ready"); code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
}

func TestStart_ReadyWarnIsReady(t *testing.T) {
	port := startOps(t, Options{Ready: health.Fixed(health.Warn)})
	if code, _ := opsGet(t, port, "/-/ready"); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
}

func TestStart_MetricsEndpoint(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# HELP test_metric\n"))
	})
	port := startOps(t, Options{Metrics: metrics})
	if code, body := opsGet(t, port, "/metrics"); code != http.StatusOK || !strings.Contains(body, "test_metric") {
		t.Fatalf("got %d %q", code, body)
	}
}

func TestStart_MetricsEndpoint_Nil(t *testing.T) {
	port := startOps(t, Options{})
	if code, _ := opsGet(t, port, "/metrics"); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
}

func TestStart_PprofEnabled(t *testing.T) {
	port := startOps(t, Options{EnablePprof: true})
	if code, _ := opsGet(t, port, "/debug/pprof/"); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
}

func TestStart_PprofDisabled(t *testing.T) {
	port := startOps(t, Options{})
	if code, _ := opsGet(t, port, "/debug/pprof/"); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
}

func TestStart_PortConflict(t *testing.T) {
	port := startOps(t, Options{})
	_, err := Start(context.Background(), log.Nop(), Options{Host: "127.0.0.1", Port: port})
	if err == nil {
		t.Fatal("expected error on port conflict")
	}
	if !strings.Contains(err.Error(), "could not listen for admin port") {
		t.Fatalf("error = %v", err)
	}
}

func TestStart_StopIdempotentAndReleasesPort(t *testing.T) {
	port := getFreePort(t)
	stop, err := Start(context.Background(), nil, Options{Host: "127.0.0.1", Port: port})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if code, _ := opsGet(t, port, "/-/healthy"); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if err := stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second); err == nil {
		conn.Close()
		t.Fatal("port still accepting after stop")
	}
}

func TestNewHandler_RecoversPanics(t *testing.T) {
	var panics atomic.Int32
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(errors.New("boom")) })
	h := NewHandler(log.Nop(), Options{Metrics: boom, OnPanic: func() { panics.Add(1) }})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	req.RemoteAddr = "127.0.0.1:1234"
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError || panics.Load() != 1 {
		t.Fatalf("status = %d panics = %d", rec.Code, panics.Load())
	}
}

// requireNonPublicNetwork

func guarded(t *testing.T, remote string) int {
	t.Helper()
	h := requireNonPublicNetwork(log.Nop(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	req.RemoteAddr = remote
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireNonPublicNetwork_Allowed(t *testing.T) {
	for _, addr := range []string{
		"127.0.0.1:12345",
		"[::1]:12345",
		"10.0.0.1:8080",
		"172.16.0.1:8080",
		"192.168.1.1:8080",
		"169.254.1.1:8080",
		"[fe80::1]:8080",
		"[fd00::1]:8080",
		"[::ffff:10.0.0.1]:12345",
	} {
		if code := guarded(t, addr); code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", addr, code)
		}
	}
}

func TestRequireNonPublicNetwork_Rejected(t *testing.T) {
	for _, addr := range []string{
		"8.8.8.8:12345",
		"1.1.1.1:443",
		"203.0.113.1:80",
		"[2001:4860:4860::8888]:443",
		"[::ffff:8.8.8.8]:12345",
		"not-an-address",
		"",
		"999.999.999.999:8080",
	} {
		if code := guarded(t, addr); code != http.StatusForbidden {
			t.Errorf("%q: status = %d, want 403", addr, code)
		}
	}
}

func TestRequireNonPublicNetwork_ForwardedRejected(t *testing.T) {
	h := requireNonPublicNetwork(log.Nop(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called for proxied requests")
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	req.RemoteAddr = "10.0.0.5:4444"
	req.Header.Set("X-Forwarded-For", "8.8.8.8")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestNewHandler_RejectsOversizedBody(t *testing.T) {
	h := NewHandler(log.Nop(), Options{})

	req := httptest.NewRequest(http.MethodPost, "/-/healthy", strings.NewReader(strings.Repeat("x", maxBodyBytes+1)))
	req.RemoteAddr = "127.0.0.1:4321"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}
