package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger interface {
	With(kv ...any) Logger

	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, err error, msg string, kv ...any)

	Sync() error
}

type Options struct {
	App               string
	Version           string
	Level             slog.Level
	StacktraceLevel   slog.Level
	JSONFormat        bool
	MaxErrorLinks     int
	IncludeErrorLinks bool
	Writer            io.Writer
}

// NewHandler builds the enriched slog.Handler used by New. Exposed so the
// same pipeline can back a plain *slog.Logger handed to library code.
func NewHandler(opts Options) slog.Handler {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	if opts.StacktraceLevel == 0 {
		opts.StacktraceLevel = slog.LevelError
	}

	var h slog.Handler
	ho := &slog.HandlerOptions{Level: opts.Level, AddSource: true}
	if opts.JSONFormat {
		h = slog.NewJSONHandler(w, ho)
	} else {
		h = slog.NewTextHandler(w, ho)
	}
	return stackHandler{next: otelHandler{next: h}, level: opts.StacktraceLevel}
}

func New(opts Options) (Logger, error) {
	attrs := []slog.Attr{slog.String("app", opts.App)}
	if opts.Version != "" {
		attrs = append(attrs, slog.String("version", opts.Version))
	}
	if opts.MaxErrorLinks <= 0 {
		opts.MaxErrorLinks = 8
	}
	return &slogLogger{
		h:                 NewHandler(opts),
		attrs:             attrs,
		includeErrorLinks: opts.IncludeErrorLinks,
		maxErrorLinks:     opts.MaxErrorLinks,
	}, nil
}

// FromSlog adapts a caller supplied *slog.Logger. Trace ids are added to
// its records; nil yields Nop().
func FromSlog(l *slog.Logger) Logger {
	if l == nil {
		return Nop()
	}
	return &slogLogger{h: otelHandler{next: l.Handler()}, maxErrorLinks: 8}
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %s (valid levels are debug|info|warn|error)", s)
	}
}
