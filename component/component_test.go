package component

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   Health
	events   *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.events != nil {
		*m.events = append(*m.events, "start:"+m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.events != nil {
		*m.events = append(*m.events, "stop:"+m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health { return m.health }
func (m *mockComponent) Describe() Description {
	return Description{Type: "mock", Details: m.name}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Register(&mockComponent{name: "db"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&mockComponent{name: "db"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
	if r.Get("db") == nil {
		t.Error("expected Get to return registered component")
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unknown component")
	}
}

func TestStartStopOrder(t *testing.T) {
	var events []string
	r := NewRegistry(nil)
	for _, n := range []string{"db", "redis", "http"} {
		_ = r.Register(&mockComponent{name: n, events: &events})
	}
	ctx := context.Background()
	if err := r.StartAll(ctx); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := r.StopAll(ctx); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	want := "start:db,start:redis,start:http,stop:http,stop:redis,stop:db"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestStartAll_SkipsRunning(t *testing.T) {
	var events []string
	r := NewRegistry(nil)
	_ = r.Register(&mockComponent{name: "db", events: &events})
	ctx := context.Background()
	if err := r.StartAll(ctx); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	_ = r.Register(&mockComponent{name: "http", events: &events})
	if err := r.StartAll(ctx); err != nil {
		t.Fatalf("second StartAll: %v", err)
	}
	want := "start:db,start:http"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestStartAll_FailureStopsStarted(t *testing.T) {
	var events []string
	r := NewRegistry(nil)
	_ = r.Register(&mockComponent{name: "db", events: &events})
	_ = r.Register(&mockComponent{name: "redis", events: &events, startErr: fmt.Errorf("refused")})
	_ = r.Register(&mockComponent{name: "http", events: &events})

	err := r.StartAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected redis start error, got %v", err)
	}
	want := "start:db,start:redis,stop:db"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("events = %s, want %s", got, want)
	}
}

func TestStopAll_CollectsErrors(t *testing.T) {
	r := NewRegistry(nil)
	_ = r.Register(&mockComponent{name: "a", stopErr: fmt.Errorf("a failed")})
	_ = r.Register(&mockComponent{name: "b", stopErr: fmt.Errorf("b failed")})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "a failed") || !strings.Contains(err.Error(), "b failed") {
		t.Errorf("expected both errors, got %v", err)
	}
}

func TestHealthAllAndOverall(t *testing.T) {
	r := NewRegistry(nil)
	_ = r.Register(&mockComponent{name: "db", health: Health{Name: "db", Status: StatusHealthy}})
	_ = r.Register(&mockComponent{name: "redis", health: Health{Name: "redis", Status: StatusDegraded}})

	hs := r.HealthAll(context.Background())
	if len(hs) != 2 {
		t.Fatalf("expected 2 health entries, got %d", len(hs))
	}
	if got := Overall(hs); got != StatusDegraded {
		t.Errorf("expected degraded, got %s", got)
	}
	hs = append(hs, Health{Name: "x", Status: StatusUnhealthy})
	if got := Overall(hs); got != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", got)
	}
	if got := Overall(nil); got != StatusHealthy {
		t.Errorf("expected healthy for no components, got %s", got)
	}
}

func TestHealthString(t *testing.T) {
	h := Health{Name: "redis", Status: StatusUnhealthy, Message: "ping failed"}
	if got := h.String(); got != "redis=unhealthy(ping failed)" {
		t.Errorf("String() = %q", got)
	}
	if got := (Health{Name: "db", Status: StatusHealthy}).String(); got != "db=healthy" {
		t.Errorf("String() = %q", got)
	}
}
