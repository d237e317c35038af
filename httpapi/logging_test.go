package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pkt.systems/gridstate/schema"
	"pkt.systems/pslog"
)

func captureRequestLog(t *testing.T, handler http.Handler, req *http.Request) []map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := pslog.NewWithOptions(&buf, pslog.Options{
		Mode:     pslog.ModeStructured,
		NoColor:  true,
		MinLevel: pslog.InfoLevel,
	})
	req = req.WithContext(pslog.ContextWithLogger(context.Background(), logger))
	lookup := func(r *http.Request) schema.UserID {
		return schema.UserID(r.Header.Get(DefaultUserHeader))
	}
	withRequestLogging(handler, lookup).ServeHTTP(httptest.NewRecorder(), req)

	var entries []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		entry := map[string]any{}
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func hasValue(entry map[string]any, want string) bool {
	for _, value := range entry {
		if value == want {
			return true
		}
	}
	return false
}

func TestRequestLogCarriesUserAndTable(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})
	req := httptest.NewRequest(http.MethodGet, "/api/tables/snapshot?table=orders", nil)
	req.Header.Set(DefaultUserHeader, "alice")
	entries := captureRequestLog(t, ok, req)
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %+v", entries)
	}
	entry := entries[0]
	if !hasValue(entry, "http request") {
		t.Fatalf("expected http request message, got %+v", entry)
	}
	if entry["user"] != "alice" || entry["table"] != "orders" {
		t.Fatalf("expected user and table fields, got %+v", entry)
	}
	if entry["remote"] != "192.0.2.1" {
		t.Fatalf("expected remote host without port, got %+v", entry)
	}
	if entry["status"] != float64(http.StatusOK) || entry["bytes"] != float64(2) {
		t.Fatalf("unexpected status or size: %+v", entry)
	}
}

func TestRequestLogFlagsServerErrors(t *testing.T) {
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	req := httptest.NewRequest(http.MethodPost, "/api/tables/open", nil)
	entries := captureRequestLog(t, failing, req)
	if len(entries) != 1 || !hasValue(entries[0], "http request failed") {
		t.Fatalf("expected a failed request entry, got %+v", entries)
	}
	if _, ok := entries[0]["user"]; ok {
		t.Fatalf("expected no user field for anonymous request, got %+v", entries[0])
	}
}

func TestRequestLogKeepsStreamsQuiet(t *testing.T) {
	stream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(": ok\n\n"))
	})
	req := httptest.NewRequest(http.MethodGet, "/api/stream?table=orders", nil)
	if entries := captureRequestLog(t, stream, req); len(entries) != 0 {
		t.Fatalf("expected stream requests below info, got %+v", entries)
	}
}

func TestClientIPPrefersForwardedHop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
	req.Header.Del("X-Forwarded-For")
	req.RemoteAddr = "unix"
	if got := clientIP(req); got != "unix" {
		t.Fatalf("expected raw remote addr fallback, got %q", got)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- ListenAndServe(ctx, "127.0.0.1:0", http.NotFoundHandler())
	}()
	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
