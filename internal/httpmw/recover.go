package httpmw

import (
	"net/http"
	"runtime/debug"

	"github.com/keithlinneman/healthili/internal/log"
	"github.com/keithlinneman/healthili/internal/xerrors"
)

// Recover turns a handler panic into a logged error and a 500 response.
// onPanic, when set, runs after logging (e.g. to bump a counter).
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recover(L log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if L == nil {
		L = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
					panic(rec)
				}

				var err error
				if e, ok := rec.(error); ok {
					err = xerrors.Wrap(e, "panic")
				} else {
					err = xerrors.Newf("panic: %v", rec)
				}
				L.With(
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
					"request_id", RequestIDFromContext(r.Context()),
				).Error(r.Context(), err, "http handler panic recovered", "panic_stack", string(debug.Stack()))

				if onPanic != nil {
					onPanic()
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
