package httphandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/avalette/credgate/internal/domain/port/driven"
)

// HandlerFunc is a request handler returning an explicit failure result. A
// nil return means the handler wrote its own success response.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) *Error

// Gate validates a request's primary authentication before dispatching to
// the wrapped handler, and maps every failure -- its own and the handler's --
// onto exactly one response status. Dispatch and rejection are mutually
// exclusive; exactly one happens per request.
type Gate struct {
	validator driven.AuthValidator
	logger    *slog.Logger
}

// NewGate creates a Gate delegating to the given auth validator.
func NewGate(validator driven.AuthValidator, logger *slog.Logger) *Gate {
	return &Gate{validator: validator, logger: logger}
}

// Authenticated wraps next with the authentication check. The gate waits for
// the validator's verdict: false rejects with 401, a validator failure goes
// through the classification umbrella, and only a true verdict dispatches.
func (g *Gate) Authenticated(next HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, err := g.validator.Validate(r.Context(), func() string {
			return r.Header.Get("Authorization")
		})
		if err != nil {
			g.reject(w, r, classify(err))
			return
		}
		if !ok {
			g.reject(w, r, NewError(http.StatusUnauthorized, "HTTP authorization required"))
			return
		}

		if herr := next(w, r); herr != nil {
			g.reject(w, r, herr)
		}
	}
}

// reject renders a failure result. A 407 carries the Basic challenge so the
// caller knows to retry with per-request override credentials.
func (g *Gate) reject(w http.ResponseWriter, r *http.Request, herr *Error) {
	if herr.Status == http.StatusProxyAuthRequired {
		w.Header().Set("Proxy-Authenticate", "Basic")
	}

	if herr.Status >= http.StatusInternalServerError {
		g.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", herr.Status, "error", herr.Cause)
	}

	writeError(w, herr.Status, herr.Message)
}

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the embedded writer.
func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs each HTTP request with method, path, status, and duration.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}

// recoveryMiddleware recovers from panics in HTTP handlers, logs the error,
// and returns a 500 response.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic recovered",
					"panic", v,
					"path", r.URL.Path,
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
