package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// timeoutWriter buffers the handler's response so the watchdog and the
// handler goroutine never touch the underlying ResponseWriter at the
// same time. After a timeout, handler writes are discarded.
type timeoutWriter struct {
	w http.ResponseWriter
	h http.Header

	mu          sync.Mutex
	timedOut    bool
	wroteHeader bool
	code        int
	buf         bytes.Buffer
}

func newTimeoutWriter(w http.ResponseWriter) *timeoutWriter {
	return &timeoutWriter{w: w, h: make(http.Header), code: http.StatusOK}
}

func (tw *timeoutWriter) Header() http.Header { return tw.h }

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.wroteHeader {
		return
	}
	tw.wroteHeader = true
	tw.code = code
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	tw.wroteHeader = true
	return tw.buf.Write(b)
}

// flush copies the buffered response to the underlying writer. No-op
// once the watchdog has answered.
func (tw *timeoutWriter) flush() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return
	}
	dst := tw.w.Header()
	for k, v := range tw.h {
		dst[k] = v
	}
	tw.w.WriteHeader(tw.code)
	_, _ = tw.w.Write(tw.buf.Bytes())
}

// writeTimeout answers 504 on the underlying writer and marks the
// request timed out, discarding whatever the handler buffered.
func (tw *timeoutWriter) writeTimeout() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return
	}
	tw.timedOut = true
	tw.w.Header().Set("Content-Type", "application/json")
	tw.w.WriteHeader(http.StatusGatewayTimeout)
	_ = json.NewEncoder(tw.w).Encode(map[string]string{
		"error": "request timeout",
	})
}

// Timeout enforces a per-request deadline using context.WithTimeout.
// If the deadline is exceeded, the request context is cancelled and a
// 504 Gateway Timeout is returned; the handler's late writes go to a
// buffer that is never flushed. The budget must cover one upstream
// call plus a full renewal cycle.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := newTimeoutWriter(w)
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
				tw.flush()

			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					tw.writeTimeout()
				}
			}
		})
	}
}
