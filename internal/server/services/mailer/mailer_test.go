package mailer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"apimon/internal/features/monitor/models"
)

type alertData struct {
	Alert         models.Alert
	SeverityLabel string
}

func testData() alertData {
	return alertData{
		Alert: models.Alert{
			ID:           "a1",
			EndpointID:   "e1",
			EndpointName: "Payments API",
			Kind:         models.AlertDown,
			Severity:     models.SeverityCritical,
			Message:      "Payments API is DOWN",
			Timestamp:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		},
		SeverityLabel: "CRITICAL",
	}
}

func TestSendRendersTemplate(t *testing.T) {
	var got SMTP2GORequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Write([]byte(`{"request_id":"r1","data":{"email_id":"m1"}}`))
	}))
	defer srv.Close()

	m := New("key", "Monitor <alerts@example.com>", slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithAPIURL(srv.URL, time.Millisecond)

	if err := m.Send(context.Background(), "ops@example.com", "alert.tmpl", testData()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if got.Subject != "[CRITICAL] Payments API is DOWN" {
		t.Errorf("Unexpected subject %q", got.Subject)
	}
	if len(got.To) != 1 || got.To[0] != "ops@example.com" || got.APIKey != "key" {
		t.Errorf("Unexpected request %+v", got)
	}
	if !strings.Contains(got.TextBody, "2024-05-01 12:00:00 UTC") || !strings.Contains(got.HtmlBody, "Payments API") {
		t.Errorf("Expected rendered bodies, got %q", got.TextBody)
	}
}

func TestSendRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"request_id":"r1"}`))
	}))
	defer srv.Close()

	m := New("key", "sender", slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithAPIURL(srv.URL, time.Millisecond)

	if err := m.Send(context.Background(), "ops@example.com", "alert.tmpl", testData()); err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestSendGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := New("key", "sender", slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithAPIURL(srv.URL, time.Millisecond)

	err := m.Send(context.Background(), "ops@example.com", "alert.tmpl", testData())
	if err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("Expected failure after 3 attempts, got %v", err)
	}
}

func TestSendUnknownTemplate(t *testing.T) {
	m := New("key", "sender", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := m.Send(context.Background(), "ops@example.com", "missing.tmpl", nil); err == nil {
		t.Error("Expected error for unknown template")
	}
}
