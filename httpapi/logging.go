package httpapi

import (
	"net"
	"net/http"
	"strings"
	"time"

	"pkt.systems/gridstate/internal/logx"
	"pkt.systems/gridstate/schema"
)

// statusWriter records the status and size of a response.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

type userLookupFunc func(*http.Request) schema.UserID

// withRequestLogging logs one line per request with the user and table it
// addressed. Server errors log at warn; event streams log at debug since the
// stream handler reports its own lifetime.
func withRequestLogging(next http.Handler, lookup userLookupFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		logger := logx.Ctx(r.Context()).With("remote", clientIP(r))
		if lookup != nil {
			if userID := lookup(r); userID != "" {
				logger = logger.With("user", userID)
			}
		}
		if table := strings.TrimSpace(r.URL.Query().Get("table")); table != "" {
			logger = logger.With("table", table)
		}
		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", sw.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Warn("http request failed", fields...)
		case strings.HasSuffix(r.URL.Path, "/api/stream"):
			logger.Debug("http stream request", fields...)
		default:
			logger.Info("http request", fields...)
		}
	})
}

// clientIP returns the first forwarded hop, or the remote host without its port.
func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
