package xerrors

import (
	"errors"
	"runtime"
	"strings"
	"testing"
)

var errSentinel = errors.New("sentinel")

type hasStack interface{ StackPCs() []uintptr }

func stackContains(pcs []uintptr, substr string) bool {
	frames := runtime.CallersFrames(pcs)
	for {
		fr, more := frames.Next()
		if strings.Contains(fr.Function, substr) {
			return true
		}
		if !more {
			return false
		}
	}
}

// New / Newf

func TestNew_ErrorMessage(t *testing.T) {
	err := New("listener gone")
	if err.Error() != "listener gone" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestNew_StackContainsCaller(t *testing.T) {
	err := New("boom")

	var hs hasStack
	if !errors.As(err, &hs) {
		t.Fatal("New error should carry a stack")
	}
	if !stackContains(hs.StackPCs(), "TestNew_StackContainsCaller") {
		t.Fatal("stack should start at the caller")
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	err := Newf("invalid port %d", 70000)
	if err.Error() != "invalid port 70000" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestNew_IsXerrorsWrapper(t *testing.T) {
	var marker interface{ IsXerrorsWrapper() }
	if !errors.As(New("x"), &marker) {
		t.Fatal("New error should implement IsXerrorsWrapper")
	}
}

// WithStack

func TestWithStack_NilReturnsNil(t *testing.T) {
	if WithStack(nil) != nil {
		t.Fatal("WithStack(nil) should return nil")
	}
}

func TestWithStack_PreservesMessageAndChain(t *testing.T) {
	err := WithStack(errSentinel)
	if err.Error() != "sentinel" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !errors.Is(err, errSentinel) {
		t.Fatal("should unwrap to sentinel")
	}
}

// Wrap / Wrapf

func TestWrap_NilReturnsNil(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Fatal("Wrap(nil) should return nil")
	}
	if Wrapf(nil, "ctx %d", 1) != nil {
		t.Fatal("Wrapf(nil) should return nil")
	}
}

func TestWrap_ErrorMessage(t *testing.T) {
	err := Wrap(errors.New("connection refused"), "dial target")
	if err.Error() != "dial target: connection refused" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestWrapf_FormatsMessage(t *testing.T) {
	err := Wrapf(errSentinel, "listen on %s", ":3000")
	if err.Error() != "listen on :3000: sentinel" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !errors.Is(err, errSentinel) {
		t.Fatal("should unwrap to sentinel")
	}
}

func TestWrap_HasPC(t *testing.T) {
	var hp interface{ PC() uintptr }
	if !errors.As(Wrap(errSentinel, "ctx"), &hp) {
		t.Fatal("Wrap should capture PC")
	}
	if hp.PC() == 0 {
		t.Fatal("PC should be non-zero")
	}
}

func TestWrap_DistinctCallSites(t *testing.T) {
	w1 := Wrap(errSentinel, "l1")
	w2 := Wrap(w1, "l2")

	pc1 := w1.(*wrapped).PC() //nolint:errorlint // internal type
	pc2 := w2.(*wrapped).PC() //nolint:errorlint // internal type
	if pc1 == pc2 {
		t.Fatal("PCs from different call sites should differ")
	}
	if w2.Error() != "l2: l1: sentinel" {
		t.Fatalf("Error() = %q", w2.Error())
	}
}

// EnsureTrace

func TestEnsureTrace_NilReturnsNil(t *testing.T) {
	if EnsureTrace(nil) != nil {
		t.Fatal("EnsureTrace(nil) should return nil")
	}
}

func TestEnsureTrace_AddsStackToPlainError(t *testing.T) {
	var hs hasStack
	if !errors.As(EnsureTrace(errSentinel), &hs) || len(hs.StackPCs()) == 0 {
		t.Fatal("should add a stack to a plain error")
	}
}

func TestEnsureTrace_Idempotent(t *testing.T) {
	first := New("already traced")
	if EnsureTrace(first) != first { //nolint:errorlint // identity
		t.Fatal("EnsureTrace should not re-wrap a stacked error")
	}
}

func TestEnsureTrace_WrappedErrorGetsStack(t *testing.T) {
	var hs hasStack
	if !errors.As(EnsureTrace(Wrap(errSentinel, "ctx")), &hs) {
		t.Fatal("Wrap carries only a PC, EnsureTrace should add a stack")
	}
}
