// Package xerrors wraps errors with call-site information that the logger
// renders as error links and stack traces.
package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

const maxStackDepth = 64

// stacked carries the full call stack captured where the error was created.
type stacked struct {
	err error
	pcs []uintptr
}

func (s *stacked) Error() string       { return s.err.Error() }
func (s *stacked) Unwrap() error       { return s.err }
func (s *stacked) StackPCs() []uintptr { return s.pcs }
func (s *stacked) IsXerrorsWrapper()   {}

// wrapped prefixes a message and remembers the single frame that wrapped it.
type wrapped struct {
	err error
	msg string
	pc  uintptr
}

func (w *wrapped) Error() string     { return w.msg + ": " + w.err.Error() }
func (w *wrapped) Unwrap() error     { return w.err }
func (w *wrapped) PC() uintptr       { return w.pc }
func (w *wrapped) IsXerrorsWrapper() {}

// skip counts frames above runtime.Callers
func stackFrom(skip int) []uintptr {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip, pcs)
	return pcs[:n]
}

func pcFrom(skip int) uintptr {
	var pcs [1]uintptr
	if runtime.Callers(skip, pcs[:]) == 0 {
		return 0
	}
	return pcs[0]
}

// New returns an error with a stack rooted at the caller.
func New(msg string) error { return &stacked{err: errors.New(msg), pcs: stackFrom(3)} }

// Newf is New with formatting.
func Newf(format string, args ...any) error {
	return &stacked{err: fmt.Errorf(format, args...), pcs: stackFrom(3)}
}

// WithStack attaches the caller's stack to err.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return &stacked{err: err, pcs: stackFrom(3)}
}

// EnsureTrace attaches a stack only if no error in the chain already has one.
func EnsureTrace(err error) error {
	if err == nil {
		return nil
	}
	var hs interface{ StackPCs() []uintptr }
	if errors.As(err, &hs) && hs != nil && len(hs.StackPCs()) > 0 {
		return err
	}
	return &stacked{err: err, pcs: stackFrom(3)}
}

// Wrap prefixes err with msg. Returns nil for a nil err.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrapped{err: err, msg: msg, pc: pcFrom(3)}
}

// Wrapf is Wrap with formatting.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrapped{err: err, msg: fmt.Sprintf(format, args...), pc: pcFrom(3)}
}
