package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/scaffcalc/internal/metrics"
)

// statusCounter はRecordHTTPStatusだけを数えるメトリクスのモック。
type statusCounter struct {
	metrics.Nop
	statuses []int
}

func (s *statusCounter) RecordHTTPStatus(code int) { s.statuses = append(s.statuses, code) }

func parseLogEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

// TestLoggingMiddleware_LogsRequestFields はリクエストログに必要なフィールドが含まれることを検証する。
func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := NewLoggingMiddleware(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	entry := parseLogEntry(t, &buf)

	if entry["method"] != "GET" {
		t.Errorf("method = %q, want %q", entry["method"], "GET")
	}
	if entry["path"] != "/health" {
		t.Errorf("path = %q, want %q", entry["path"], "/health")
	}
	if status, ok := entry["status"].(float64); !ok || status != 200 {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected 'duration_ms' field in log entry")
	}
	if _, ok := entry["token"]; ok {
		t.Error("token field should be absent for unauthenticated requests")
	}
}

// TestLoggingMiddleware_LogsTokenPrefixOnly はアクセスミドルウェアを通過した場合、
// トークンの先頭8文字だけがログに出ることを検証する。
func TestLoggingMiddleware_LogsTokenPrefixOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	const fullToken = "0123456789abcdef-secret"
	handler := NewLoggingMiddleware(logger, nil)(
		NewAccessMiddleware(&mockAuthorizer{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/token", nil)
	req.Header.Set("Authorization", "Bearer "+fullToken)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if strings.Contains(buf.String(), fullToken) {
		t.Fatalf("full token leaked into log: %s", buf.String())
	}
	entry := parseLogEntry(t, &buf)
	if entry["token"] != "01234567" {
		t.Errorf("token = %v, want %q", entry["token"], "01234567")
	}
}

// TestLoggingMiddleware_CapturesStatusCode はステータスコードに応じたログレベルを検証する。
func TestLoggingMiddleware_CapturesStatusCode(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"ok", http.StatusOK, "INFO"},
		{"forbidden", http.StatusForbidden, "WARN"},
		{"rate limited", http.StatusTooManyRequests, "WARN"},
		{"internal", http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			collector := &statusCounter{}

			handler := NewLoggingMiddleware(logger, collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/calculate", nil))

			entry := parseLogEntry(t, &buf)
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if status, _ := entry["status"].(float64); int(status) != tt.status {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
			if len(collector.statuses) != 1 || collector.statuses[0] != tt.status {
				t.Errorf("recorded statuses = %v, want [%d]", collector.statuses, tt.status)
			}
		})
	}
}

// TestLoggingMiddleware_BodyWriteCapture はWriteHeaderなしの書き込みが200として記録されることを検証する。
func TestLoggingMiddleware_BodyWriteCapture(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := NewLoggingMiddleware(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	entry := parseLogEntry(t, &buf)
	if status, _ := entry["status"].(float64); status != 200 {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if w.Body.String() != "ok" {
		t.Errorf("body = %q, want %q", w.Body.String(), "ok")
	}
}
