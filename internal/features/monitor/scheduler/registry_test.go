package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"apimon/internal/features/monitor/models"
)

// fakeProber returns success results and can hold probes for chosen endpoints
type fakeProber struct {
	mu      sync.Mutex
	calls   map[string]int
	active  map[string]int
	overlap atomic.Bool
	block   map[string]chan struct{}
	started chan string
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		calls:   make(map[string]int),
		active:  make(map[string]int),
		block:   make(map[string]chan struct{}),
		started: make(chan string, 64),
	}
}

func (f *fakeProber) Execute(ctx context.Context, ep models.Endpoint) models.CheckResult {
	f.mu.Lock()
	f.calls[ep.ID]++
	f.active[ep.ID]++
	if f.active[ep.ID] > 1 {
		f.overlap.Store(true)
	}
	gate := f.block[ep.ID]
	f.mu.Unlock()

	select {
	case f.started <- ep.ID:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	f.active[ep.ID]--
	f.mu.Unlock()

	return models.CheckResult{
		ID:         ep.ID + "-result",
		EndpointID: ep.ID,
		Timestamp:  time.Now(),
		Outcome:    models.OutcomeSuccess,
		StatusCode: 200,
		LatencyMs:  1,
	}
}

func (f *fakeProber) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

// recordingSink collects delivered results
type recordingSink struct {
	mu      sync.Mutex
	results map[string][]models.CheckResult
	notify  chan string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{results: make(map[string][]models.CheckResult), notify: make(chan string, 64)}
}

func (s *recordingSink) HandleResult(ep models.Endpoint, result models.CheckResult) {
	s.mu.Lock()
	s.results[ep.ID] = append(s.results[ep.ID], result)
	s.mu.Unlock()
	select {
	case s.notify <- ep.ID:
	default:
	}
}

func (s *recordingSink) count(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results[id])
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func endpoint(id string, interval time.Duration) models.Endpoint {
	return models.Endpoint{
		ID:                 id,
		Name:               id,
		URL:                "http://example.invalid/" + id,
		Method:             "GET",
		ExpectedStatusCode: 200,
		TimeoutMs:          1000,
		IntervalMs:         interval.Milliseconds(),
		CreatedAt:          time.Now(),
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestRegisterFiresImmediately(t *testing.T) {
	prober := newFakeProber()
	sink := newRecordingSink()
	reg := NewRegistry(prober, sink, testLogger())
	defer reg.StopAll()

	if err := reg.Register(endpoint("a", time.Hour)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	select {
	case id := <-sink.notify:
		if id != "a" {
			t.Errorf("Expected result for a, got %s", id)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected the first check to fire without waiting an interval")
	}
}

func TestRegisterRejectsZeroInterval(t *testing.T) {
	reg := NewRegistry(newFakeProber(), newRecordingSink(), testLogger())
	defer reg.StopAll()

	if err := reg.Register(endpoint("a", 0)); err == nil {
		t.Error("Expected an error for a zero interval")
	}
	if reg.Len() != 0 {
		t.Error("Rejected endpoint must not be registered")
	}
}

func TestReRegisterKeepsOneTask(t *testing.T) {
	prober := newFakeProber()
	sink := newRecordingSink()
	reg := NewRegistry(prober, sink, testLogger())
	defer reg.StopAll()

	for i := 0; i < 20; i++ {
		if err := reg.Register(endpoint("a", 10*time.Millisecond)); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	time.Sleep(100 * time.Millisecond)

	if got := reg.ListActive(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Expected exactly one active id, got %v", got)
	}
	if prober.overlap.Load() {
		t.Error("Two checks for the same endpoint ran concurrently")
	}
}

func TestUnregisterStopsChecks(t *testing.T) {
	prober := newFakeProber()
	sink := newRecordingSink()
	reg := NewRegistry(prober, sink, testLogger())
	defer reg.StopAll()

	if err := reg.Register(endpoint("a", 5*time.Millisecond)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	waitFor(t, time.Second, func() bool { return sink.count("a") >= 2 })

	if !reg.Unregister("a") {
		t.Fatal("Expected Unregister to report a registered endpoint")
	}
	after := sink.count("a")
	time.Sleep(50 * time.Millisecond)

	if got := sink.count("a"); got != after {
		t.Errorf("Expected no results after unregister, got %d more", got-after)
	}
	if reg.Unregister("a") {
		t.Error("Second Unregister should be a no-op")
	}
}

func TestUnregisterDiscardsInFlightResult(t *testing.T) {
	prober := newFakeProber()
	gate := make(chan struct{})
	prober.block["a"] = gate
	sink := newRecordingSink()
	reg := NewRegistry(prober, sink, testLogger())
	defer reg.StopAll()

	if err := reg.Register(endpoint("a", time.Hour)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	<-prober.started

	reg.Unregister("a")
	close(gate)
	time.Sleep(50 * time.Millisecond)

	if got := sink.count("a"); got != 0 {
		t.Errorf("Expected the in-flight result to be discarded, got %d results", got)
	}
}

func TestRemovingOneEndpointDoesNotDelayAnother(t *testing.T) {
	prober := newFakeProber()
	gateA := make(chan struct{})
	gateB := make(chan struct{})
	prober.block["a"] = gateA
	prober.block["b"] = gateB
	sink := newRecordingSink()
	reg := NewRegistry(prober, sink, testLogger())
	defer reg.StopAll()
	defer close(gateA)

	if err := reg.Register(endpoint("a", time.Hour)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := reg.Register(endpoint("b", time.Hour)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	waitFor(t, time.Second, func() bool { return prober.callCount("a") == 1 && prober.callCount("b") == 1 })

	done := make(chan struct{})
	go func() {
		reg.Unregister("a")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Unregister blocked on an in-flight probe")
	}

	close(gateB)
	waitFor(t, time.Second, func() bool { return sink.count("b") == 1 })
}

func TestTriggerNow(t *testing.T) {
	prober := newFakeProber()
	sink := newRecordingSink()
	reg := NewRegistry(prober, sink, testLogger())
	defer reg.StopAll()

	if _, err := reg.TriggerNow("missing"); err != models.ErrEndpointNotFound {
		t.Errorf("Expected ErrEndpointNotFound, got %v", err)
	}

	if err := reg.Register(endpoint("a", time.Hour)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	waitFor(t, time.Second, func() bool { return sink.count("a") == 1 })

	result, err := reg.TriggerNow("a")
	if err != nil {
		t.Fatalf("TriggerNow failed: %v", err)
	}
	if result.EndpointID != "a" {
		t.Errorf("Expected result for a, got %s", result.EndpointID)
	}
	if got := sink.count("a"); got != 2 {
		t.Errorf("Expected manual result to be delivered, got %d results", got)
	}
}

func TestStopAll(t *testing.T) {
	prober := newFakeProber()
	prober.block["a"] = make(chan struct{})
	reg := NewRegistry(prober, newRecordingSink(), testLogger())

	if err := reg.Register(endpoint("a", time.Hour)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	<-prober.started

	done := make(chan struct{})
	go func() {
		reg.StopAll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StopAll did not abort the in-flight probe")
	}

	if err := reg.Register(endpoint("b", time.Hour)); err == nil {
		t.Error("Expected Register to fail after StopAll")
	}
}

type panickyProber struct{}

func (panickyProber) Execute(ctx context.Context, ep models.Endpoint) models.CheckResult {
	panic("boom")
}

func TestProbePanicBecomesErrorResult(t *testing.T) {
	sink := newRecordingSink()
	reg := NewRegistry(panickyProber{}, sink, testLogger())
	defer reg.StopAll()

	if err := reg.Register(endpoint("a", time.Hour)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	waitFor(t, time.Second, func() bool { return sink.count("a") == 1 })

	sink.mu.Lock()
	result := sink.results["a"][0]
	sink.mu.Unlock()
	if result.Outcome != models.OutcomeError {
		t.Errorf("Expected error outcome, got %s", result.Outcome)
	}
}
