package health

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestFixed(t *testing.T) {
	out, err := Fixed(Warn)(context.Background())
	if err != nil || out != Warn {
		t.Fatalf("got %v %v", out, err)
	}
}

func TestFromProbe_Pass(t *testing.T) {
	out, err := FromProbe(func(context.Context) error { return nil })(context.Background())
	if err != nil || out != Pass {
		t.Fatalf("got %v %v", out, err)
	}
}

func TestFromProbe_Fail(t *testing.T) {
	want := errors.New("db offline")
	_, err := FromProbe(func(context.Context) error { return want })(context.Background())
	if err != want { //nolint:errorlint // identity
		t.Fatalf("err = %v", err)
	}
}

func TestShutdownGate_PassThroughWhenOpen(t *testing.T) {
	var g ShutdownGate
	out, err := g.Wrap(Fixed(Warn))(context.Background())
	if err != nil || out != Warn {
		t.Fatalf("got %v %v", out, err)
	}
}

func TestShutdownGate_FailsWhenSet(t *testing.T) {
	var g ShutdownGate
	check := g.Wrap(Fixed(Pass))

	g.Set("shutting down")
	if !g.Draining() {
		t.Fatal("Draining should be true after Set")
	}
	_, err := check(context.Background())
	if err == nil || err.Error() != "shutting down" {
		t.Fatalf("err = %v, want drain reason", err)
	}

	g.Clear()
	if _, err := check(context.Background()); err != nil {
		t.Fatalf("after Clear: %v", err)
	}
}

func TestShutdownGate_DefaultReason(t *testing.T) {
	var g ShutdownGate
	g.Set("")
	if _, err := g.Wrap(Fixed(Pass))(context.Background()); err == nil || err.Error() != "draining" {
		t.Fatalf("err = %v, want draining", err)
	}
}

func TestShutdownGate_ConcurrentAccess(t *testing.T) {
	var g ShutdownGate
	check := g.Wrap(Fixed(Pass))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); g.Set("drain") }()
		go func() { defer wg.Done(); _, _ = check(context.Background()) }()
	}
	wg.Wait()
	if !g.Draining() {
		t.Fatal("gate should be draining")
	}
}
