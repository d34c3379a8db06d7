package core

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

type testFeature struct {
	*BaseFeature
	events  *[]string
	initErr error
}

func newTestFeature(name string, enabled bool, events *[]string) *testFeature {
	return &testFeature{
		BaseFeature: NewBaseFeature(name, name+" feature", enabled, NewDiscardLogger()),
		events:      events,
	}
}

func (f *testFeature) Init(ctx context.Context) error {
	*f.events = append(*f.events, "init:"+f.Name())
	return f.initErr
}

func (f *testFeature) Shutdown(ctx context.Context) error {
	*f.events = append(*f.events, "shutdown:"+f.Name())
	return nil
}

func (f *testFeature) Routes() []Route {
	return []Route{{Method: http.MethodGet, Path: "/" + f.Name(), Handler: func(http.ResponseWriter, *http.Request) {}}}
}

func TestRegistryLifecycleOrder(t *testing.T) {
	var events []string
	r := NewRegistry(NewDiscardLogger())

	for _, f := range []*testFeature{
		newTestFeature("a", true, &events),
		newTestFeature("b", false, &events),
		newTestFeature("c", true, &events),
	} {
		if err := r.Register(f); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	if err := r.Register(newTestFeature("a", true, &events)); err == nil {
		t.Error("Expected duplicate registration to fail")
	}

	if err := r.InitAll(context.Background()); err != nil {
		t.Fatalf("InitAll failed: %v", err)
	}
	if err := r.ShutdownAll(context.Background()); err != nil {
		t.Fatalf("ShutdownAll failed: %v", err)
	}

	want := []string{"init:a", "init:c", "shutdown:c", "shutdown:a"}
	if len(events) != len(want) {
		t.Fatalf("Expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], events[i])
		}
	}

	if routes := r.GetAllRoutes(); len(routes) != 2 {
		t.Errorf("Expected routes from enabled features only, got %d", len(routes))
	}
	if status := r.GetFeatureStatus(); len(status) != 3 || status["b"].Enabled {
		t.Errorf("Unexpected feature status %+v", status)
	}
}

func TestRegistryInitError(t *testing.T) {
	var events []string
	r := NewRegistry(NewDiscardLogger())

	failing := newTestFeature("broken", true, &events)
	failing.initErr = errors.New("boom")
	r.Register(failing)

	err := r.InitAll(context.Background())
	if !IsCode(err, ErrCodeFeature) {
		t.Fatalf("Expected feature error, got %v", err)
	}
	if !errors.Is(err, failing.initErr) {
		t.Errorf("Expected the cause to be wrapped")
	}
}
