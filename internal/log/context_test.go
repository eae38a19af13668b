package log

import (
	"context"
	"testing"
)

func TestFromContext_ReturnsStoredLogger(t *testing.T) {
	l, _ := New(Options{App: "test"})
	ctx := WithContext(context.Background(), l)

	if got := FromContext(ctx); got != l {
		t.Fatal("FromContext returned a different logger than what was stored")
	}
}

func TestFromContext_EmptyContext_ReturnsNop(t *testing.T) {
	got := FromContext(context.Background())
	if _, ok := got.(nopLogger); !ok {
		t.Fatalf("FromContext = %T, want nopLogger", got)
	}
}

func TestFromContext_NilLogger_ReturnsNop(t *testing.T) {
	ctx := WithContext(context.Background(), nil)
	if FromContext(ctx) == nil {
		t.Fatal("nil stored logger should fall back to Nop")
	}
}

func TestNop_AllMethodsSafe(t *testing.T) {
	l := Nop().With("k", "v", "odd")
	ctx := context.Background()
	l.Debug(ctx, "d")
	l.Info(ctx, "i")
	l.Warn(ctx, "w")
	l.Error(ctx, nil, "e")
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}
