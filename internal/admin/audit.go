package admin

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	maxAuditBodyBytes = 1024
	requestIDHeader   = "X-Request-Id"
)

// AuditMiddleware logs every POST to the admin API. Verify calls are logged
// as claim counts, anything else as a truncated body. A caller-supplied
// request id is kept, otherwise one is generated.
func AuditMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	auditLogger := logger.With("component", "admin_audit")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		var head []byte
		if r.Body != nil {
			var err error
			head, err = io.ReadAll(io.LimitReader(r.Body, maxAuditBodyBytes+1))
			if err == nil {
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))
			}
		}

		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sw, r)

		attrs := []any{
			"request_id", requestID,
			"remote_addr", r.RemoteAddr,
			"path", r.URL.Path,
			"response_status", sw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if r.URL.Path == "/admin/verify" {
			attrs = append(attrs, summarizeVerify(head)...)
		} else {
			attrs = append(attrs, "body_summary", truncate(head))
		}
		auditLogger.Info("admin API audit", attrs...)
	})
}

// summarizeVerify reports what a verify request asked for. Bodies longer
// than the audit window are not decoded.
func summarizeVerify(head []byte) []any {
	if len(head) > maxAuditBodyBytes {
		return []any{"body_summary", truncate(head)}
	}
	var req verifyRequest
	if err := json.Unmarshal(head, &req); err != nil {
		return []any{"body_summary", truncate(head)}
	}
	items := 0
	for _, claimed := range req.Claims {
		items += len(claimed)
	}
	return []any{
		"category", req.Category,
		"addresses", len(req.Claims),
		"items", items,
		"bypass_cache", req.BypassCache,
	}
}

func truncate(body []byte) string {
	if len(body) > maxAuditBodyBytes {
		return string(body[:maxAuditBodyBytes]) + "...(truncated)"
	}
	return string(body)
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.statusCode = code
		sw.written = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.written = true
	return sw.ResponseWriter.Write(b)
}
