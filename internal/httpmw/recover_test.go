package httpmw

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/keithlinneman/healthili/internal/log"
)

func bufLogger(t *testing.T, buf *bytes.Buffer) log.Logger {
	t.Helper()
	L, err := log.New(log.Options{App: "test", JSONFormat: true, Writer: buf, StacktraceLevel: 12})
	if err != nil {
		t.Fatalf("log.New: %v", err)
	}
	return L
}

func TestRecover_StringPanic(t *testing.T) {
	var buf bytes.Buffer
	panics := 0
	h := Recover(bufLogger(t, &buf), func() { panics++ })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if panics != 1 {
		t.Fatalf("onPanic called %d times", panics)
	}
	out := buf.String()
	if !strings.Contains(out, "http handler panic recovered") || !strings.Contains(out, "panic: boom") {
		t.Fatalf("log missing panic record: %s", out)
	}
}

func TestRecover_ErrorPanic(t *testing.T) {
	var buf bytes.Buffer
	h := Recover(bufLogger(t, &buf), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("disk gone"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(buf.String(), "panic: disk gone") {
		t.Fatalf("log missing wrapped error: %s", buf.String())
	}
}

func TestRecover_NoPanicPassesThrough(t *testing.T) {
	h := Recover(nil, func() { t.Fatal("onPanic should not run") })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRecover_AbortHandlerRepanics(t *testing.T) {
	h := Recover(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler { //nolint:errorlint // sentinel identity
			t.Fatalf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
