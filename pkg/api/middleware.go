package api

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"envelope-service/pkg/common"
	"envelope-service/pkg/config"
	"envelope-service/pkg/envelope"
	"envelope-service/pkg/logger"
	"envelope-service/pkg/metrics"
)

// CorrelationMiddleware tags each request with an X-Correlation-Id, logs
// start and end, and counts the final status in rec (which may be nil).
func CorrelationMiddleware(rec *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			correlationID := r.Header.Get("X-Correlation-Id")
			if correlationID == "" {
				correlationID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), common.CorrelationIDKey, correlationID)
			r = r.WithContext(ctx)

			w.Header().Set("X-Correlation-Id", correlationID)

			logger.Info("request_start", map[string]interface{}{
				"correlationId": correlationID,
				"method":        r.Method,
				"path":          r.URL.Path,
			})

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(ww, r)

			if rec != nil {
				rec.Observe(ww.status)
			}

			fields := map[string]interface{}{
				"correlationId": correlationID,
				"method":        r.Method,
				"path":          r.URL.Path,
				"statusCode":    ww.status,
				"durationMs":    time.Since(start).Milliseconds(),
			}
			if o, ok := envelope.OutcomeForStatus(ww.status); ok {
				fields["outcome"] = o.String()
			}
			logger.Info("request_end", fields)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Recoverer turns a handler panic into a 500 envelope.
func Recoverer(env envelope.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logger.Error("panic serving "+r.Method+" "+r.URL.Path, fmt.Errorf("%v\n%s", p, debug.Stack()))
				respond(w, env.InternalServerError(nil, envelope.InternalServerError.DefaultMessage()))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout answers 408 when the handler has not finished within d. The
// handler's output is buffered and discarded if it loses the race.
func Timeout(d time.Duration, env envelope.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{header: make(http.Header)}
			done := make(chan struct{})
			panicCh := make(chan interface{}, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicCh <- p
						return
					}
					close(done)
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case p := <-panicCh:
				panic(p)
			case <-done:
				tw.mu.Lock()
				defer tw.mu.Unlock()
				dst := w.Header()
				for k, v := range tw.header {
					dst[k] = v
				}
				if tw.code == 0 {
					tw.code = http.StatusOK
				}
				w.WriteHeader(tw.code)
				w.Write(tw.buf.Bytes())
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()
				tw.timedOut = true
				if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return
				}
				respond(w, env.RequestTimeout(
					envelope.Messages(fmt.Sprintf("request exceeded %s", d)),
					envelope.RequestTimeout.DefaultMessage(),
				))
			}
		})
	}
}

type timeoutWriter struct {
	mu       sync.Mutex
	header   http.Header
	buf      bytes.Buffer
	code     int
	timedOut bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.header }

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.code != 0 {
		return
	}
	tw.code = code
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if tw.code == 0 {
		tw.code = http.StatusOK
	}
	return tw.buf.Write(b)
}

// APIKeyAuth resolves the caller's role from X-Api-Key. With no write key
// configured every caller is a writer. An unknown key is rejected with 401.
func APIKeyAuth(cfg config.AuthConfig, env envelope.Builder) func(http.Handler) http.Handler {
	writeKey := []byte(cfg.WriteKey)
	readKey := []byte(cfg.ReadOnlyKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := common.RoleAnonymous
			key := r.Header.Get("X-Api-Key")

			switch {
			case len(writeKey) == 0:
				role = common.RoleWriter
			case key == "":
			case subtle.ConstantTimeCompare([]byte(key), writeKey) == 1:
				role = common.RoleWriter
			case len(readKey) > 0 && subtle.ConstantTimeCompare([]byte(key), readKey) == 1:
				role = common.RoleReader
			default:
				logger.Warn("rejected api key", map[string]interface{}{
					"correlationId": common.GetCorrelationID(r.Context()),
					"path":          r.URL.Path,
				})
				respond(w, env.Unauthorized(envelope.Messages("invalid API key"), envelope.Unauthorized.DefaultMessage()))
				return
			}

			ctx := context.WithValue(r.Context(), common.RoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireWriter lets only writer-role requests through: anonymous callers
// get 401 and read-only callers get 403.
func RequireWriter(env envelope.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch common.GetRole(r.Context()) {
			case common.RoleWriter:
				next.ServeHTTP(w, r)
			case common.RoleReader:
				respond(w, env.Forbidden(envelope.Messages("API key is read-only"), envelope.Forbidden.DefaultMessage()))
			default:
				respond(w, env.Unauthorized(envelope.Messages("missing X-Api-Key header"), envelope.Unauthorized.DefaultMessage()))
			}
		})
	}
}

// RequireJSON rejects request bodies that are not application/json with 415.
func RequireJSON(env envelope.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ct := r.Header.Get("Content-Type")
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				respond(w, env.UnsupportedMediaType(
					envelope.Messages(fmt.Sprintf("content type %q is not supported, use application/json", ct)),
					envelope.UnsupportedMediaType.DefaultMessage(),
				))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
