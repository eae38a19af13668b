package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/keithlinneman/healthili/internal/log"
	"github.com/keithlinneman/healthili/internal/xerrors"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
	maxHeaderBytes    = 1 << 16
	shutdownTimeout   = 5 * time.Second
)

// slack added on top of a configured check timeout for the read and write
// deadlines; vars so tests can shrink them.
var (
	readSlack  = 10 * time.Second
	writeSlack = 10 * time.Second
)

// requestDeadlines bounds a whole request only when the check itself is
// bounded. Without a check timeout a slow check must still be answered, so
// only the header read is limited.
func requestDeadlines(timeout time.Duration) (read, write time.Duration) {
	if timeout <= 0 {
		return 0, 0
	}
	return timeout + readSlack, timeout + writeSlack
}

// Endpoint is a running health listener.
type Endpoint struct {
	srv  *http.Server
	ln   net.Listener
	L    log.Logger
	done chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Start binds the configured host and port and serves check on it. It fails
// when the address cannot be bound, e.g. the port is taken, or when a
// metadata Value cannot be encoded. ctx only bounds the bind; use Close to
// stop the endpoint.
func Start(ctx context.Context, check Check, opts Options) (*Endpoint, error) {
	opts = opts.normalized()
	if err := opts.metadataErr(); err != nil {
		return nil, xerrors.Wrap(err, "invalid health payload metadata")
	}
	L := log.FromSlog(opts.Logger)

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "listen on %s", addr)
	}

	rt, wt := requestDeadlines(opts.Timeout)
	e := &Endpoint{
		srv: &http.Server{
			Handler:           NewHandler(check, opts),
			ReadHeaderTimeout: readHeaderTimeout,
			ReadTimeout:       rt,
			WriteTimeout:      wt,
			IdleTimeout:       idleTimeout,
			MaxHeaderBytes:    maxHeaderBytes,
		},
		ln:   ln,
		L:    L.With("addr", ln.Addr().String(), "path", opts.Path),
		done: make(chan struct{}),
	}

	go func() {
		defer close(e.done)
		e.L.Info(ctx, "health endpoint listening")
		if err := e.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.L.Error(context.Background(), err, "health endpoint serve error")
		}
	}()
	return e, nil
}

// Addr is the bound listener address.
func (e *Endpoint) Addr() net.Addr { return e.ln.Addr() }

// Done is closed once the serve loop has exited.
func (e *Endpoint) Done() <-chan struct{} { return e.done }

// Close stops accepting connections, waits for in-flight requests (bounded by
// ctx and 5s) and releases the port. Later calls return the first result.
func (e *Endpoint) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		e.L.Info(ctx, "health endpoint shutting down")

		c, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		err := e.srv.Shutdown(c)
		if err != nil {
			// stragglers past the deadline are cut off
			_ = e.srv.Close()
		}
		<-e.done
		e.closeErr = xerrors.Wrap(err, "close health endpoint")
	})
	return e.closeErr
}
