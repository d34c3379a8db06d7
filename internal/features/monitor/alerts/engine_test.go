package alerts

import (
	"testing"
	"time"

	"apimon/internal/features/monitor/models"
)

func testEngine() *Engine {
	return NewEngine(Config{SlowThresholdMs: 1000, ErrorRateThreshold: 10, HistorySize: 100})
}

var api = models.Endpoint{ID: "ep-1", Name: "Payments API"}

func check(outcome models.Outcome, latency int64) models.CheckResult {
	return models.CheckResult{EndpointID: api.ID, Outcome: outcome, LatencyMs: latency, Timestamp: time.Now()}
}

func TestSlowResponseOnOnlineEndpoint(t *testing.T) {
	e := testEngine()

	alert, ok := e.Evaluate(Evaluation{Endpoint: api, Result: check(models.OutcomeSuccess, 1500), Status: models.StatusOnline})
	if !ok {
		t.Fatal("Expected a slow response alert")
	}
	if alert.Kind != models.AlertSlowResponse || alert.Severity != models.SeverityWarning {
		t.Errorf("Expected warning slow_response, got %s %s", alert.Severity, alert.Kind)
	}
	if alert.Message != "Payments API slow: 1500ms" {
		t.Errorf("Unexpected message %q", alert.Message)
	}
	if got := len(e.List()); got != 1 {
		t.Errorf("Expected exactly one alert, got %d", got)
	}
}

func TestRulePriority(t *testing.T) {
	tests := []struct {
		name      string
		result    models.CheckResult
		status    models.Status
		errorRate float64
		want      models.AlertKind
	}{
		{"timeout beats slow", check(models.OutcomeTimeout, 10000), models.StatusOnline, 50, models.AlertDown},
		{"offline error is down", check(models.OutcomeError, 20), models.StatusOffline, 80, models.AlertDown},
		{"slow beats error rate", check(models.OutcomeSuccess, 2000), models.StatusDegraded, 15, models.AlertSlowResponse},
		{"error rate", check(models.OutcomeError, 50), models.StatusDegraded, 15, models.AlertHighErrorRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEngine()
			alert, ok := e.Evaluate(Evaluation{Endpoint: api, Result: tt.result, Status: tt.status, ErrorRate: tt.errorRate})
			if !ok {
				t.Fatal("Expected an alert")
			}
			if alert.Kind != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, alert.Kind)
			}
			if len(e.List()) != 1 {
				t.Errorf("Expected one alert per result, got %d", len(e.List()))
			}
		})
	}
}

func TestNoAlertForHealthyCheck(t *testing.T) {
	e := testEngine()
	if _, ok := e.Evaluate(Evaluation{Endpoint: api, Result: check(models.OutcomeSuccess, 80), Status: models.StatusOnline}); ok {
		t.Error("Expected no alert")
	}
}

func TestSlowSuppressedWhenOffline(t *testing.T) {
	e := testEngine()
	// a slow success on an endpoint still classified offline raises nothing slow
	alert, ok := e.Evaluate(Evaluation{Endpoint: api, Result: check(models.OutcomeSuccess, 5000), Status: models.StatusOffline})
	if ok && alert.Kind == models.AlertSlowResponse {
		t.Error("Slow response must not fire while offline")
	}
}

func TestRecovered(t *testing.T) {
	e := testEngine()

	if _, ok := e.Evaluate(Evaluation{Endpoint: api, Result: check(models.OutcomeSuccess, 50), Status: models.StatusOnline}); ok {
		t.Fatal("First healthy check must not fire recovered")
	}
	if _, ok := e.Evaluate(Evaluation{Endpoint: api, Result: check(models.OutcomeSuccess, 50), Status: models.StatusOnline}); ok {
		t.Fatal("Online to online must not fire recovered")
	}

	e.Evaluate(Evaluation{Endpoint: api, Result: check(models.OutcomeError, 50), Status: models.StatusOffline})
	alert, ok := e.Evaluate(Evaluation{Endpoint: api, Result: check(models.OutcomeSuccess, 50), Status: models.StatusOnline})
	if !ok || alert.Kind != models.AlertRecovered || alert.Severity != models.SeverityInfo {
		t.Fatalf("Expected info recovered alert, got %+v (ok=%v)", alert, ok)
	}
}

func TestRepeatedDownAlertsAreEmittedAndGrouped(t *testing.T) {
	e := testEngine()

	for i := 0; i < 2; i++ {
		if _, ok := e.Evaluate(Evaluation{Endpoint: api, Result: check(models.OutcomeTimeout, 1000), Status: models.StatusOffline}); !ok {
			t.Fatalf("Expected down alert %d to be emitted", i+1)
		}
	}

	all := e.List()
	if len(all) != 2 {
		t.Fatalf("Expected 2 emitted alerts, got %d", len(all))
	}

	groups := Group(all)
	if len(groups) != 1 {
		t.Fatalf("Expected one group, got %d", len(groups))
	}
	if groups[0].Count != 2 || groups[0].Kind != models.AlertDown {
		t.Errorf("Expected down group with count 2, got %+v", groups[0])
	}
}

func TestGroupKeepsDistinctMessages(t *testing.T) {
	now := time.Now()
	alerts := []models.Alert{
		{ID: "3", EndpointID: "a", Kind: models.AlertSlowResponse, Severity: models.SeverityWarning, Message: "a slow: 1200ms", Timestamp: now},
		{ID: "2", EndpointID: "a", Kind: models.AlertSlowResponse, Severity: models.SeverityWarning, Message: "a slow: 1100ms", Timestamp: now.Add(-time.Second)},
		{ID: "1", EndpointID: "b", Kind: models.AlertDown, Severity: models.SeverityCritical, Message: "b is DOWN", Timestamp: now.Add(-2 * time.Second), Acknowledged: true},
		{ID: "0", EndpointID: "b", Kind: models.AlertDown, Severity: models.SeverityCritical, Message: "b is DOWN", Timestamp: now.Add(-3 * time.Second)},
	}

	groups := Group(alerts)
	if len(groups) != 3 {
		t.Fatalf("Expected 3 groups, got %d", len(groups))
	}
	if groups[0].ID != "3" {
		t.Errorf("Expected newest group first, got %s", groups[0].ID)
	}
	last := groups[2]
	if last.Count != 2 || last.ID != "1" {
		t.Errorf("Expected b group to show newest alert with count 2, got %+v", last)
	}
	if last.Acknowledged {
		t.Error("Group with an unacknowledged member must not be acknowledged")
	}
}

func TestHistoryCapAndAcknowledge(t *testing.T) {
	e := NewEngine(Config{SlowThresholdMs: 1000, ErrorRateThreshold: 10, HistorySize: 3})

	var lastID string
	for i := 0; i < 5; i++ {
		a, _ := e.Evaluate(Evaluation{Endpoint: api, Result: check(models.OutcomeTimeout, 1000), Status: models.StatusOffline})
		lastID = a.ID
	}

	all := e.List()
	if len(all) != 3 {
		t.Fatalf("Expected history capped at 3, got %d", len(all))
	}
	if all[0].ID != lastID {
		t.Error("Expected newest alert first")
	}

	acked, err := e.Acknowledge(lastID)
	if err != nil || !acked.Acknowledged {
		t.Fatalf("Acknowledge failed: %v", err)
	}
	if !e.List()[0].Acknowledged {
		t.Error("Expected acknowledged flag to persist")
	}
	if _, err := e.Acknowledge("missing"); err != models.ErrAlertNotFound {
		t.Errorf("Expected ErrAlertNotFound, got %v", err)
	}
}

func TestNameSnapshotSurvivesRename(t *testing.T) {
	e := testEngine()
	alert, _ := e.Evaluate(Evaluation{Endpoint: api, Result: check(models.OutcomeTimeout, 1000), Status: models.StatusOffline})

	renamed := api
	renamed.Name = "Billing API"
	e.Evaluate(Evaluation{Endpoint: renamed, Result: check(models.OutcomeTimeout, 1000), Status: models.StatusOffline})

	for _, a := range e.List() {
		if a.ID == alert.ID && a.EndpointName != "Payments API" {
			t.Errorf("Expected stored name snapshot, got %s", a.EndpointName)
		}
	}
}
