package jobs

import (
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hibiken/asynq"

	_ "github.com/shiftline/shiftline/testing"
)

func TestJobsHealthWithoutInspector(t *testing.T) {
	h := NewHandler(nil, nil, slog.Default())

	rec := httptest.NewRecorder()
	h.health(rec, httptest.NewRequest("GET", "/jobs/health", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"pending":0`) {
		t.Fatalf("body = %q, want pending 0", body)
	}
}

func TestTriggerIntegrityScanWithoutClient(t *testing.T) {
	h := NewHandler(nil, nil, slog.Default())

	rec := httptest.NewRecorder()
	h.triggerIntegrityScan(rec, httptest.NewRequest("POST", "/jobs/integrity-scan", nil))

	if rec.Code != 503 {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestTriggerIntegrityScanRejectsBadPayload(t *testing.T) {
	client := &Client{client: asynq.NewClient(asynq.RedisClientOpt{Addr: "127.0.0.1:0"})}
	t.Cleanup(func() { _ = client.Close() })
	h := NewHandler(nil, client, slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/jobs/integrity-scan", strings.NewReader(`{"year":`))
	h.triggerIntegrityScan(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
