package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestLogger(t *testing.T, level AuditLogLevel) AuditLogger {
	t.Helper()
	config := AuditConfig{
		Enabled:  true,
		LogLevel: level,
		BasePath: t.TempDir(),
		FilePath: "audit.log",
	}
	l, err := NewFileAuditLogger(config)
	if err != nil {
		t.Fatalf("NewFileAuditLogger failed: %v", err)
	}
	return l
}

func TestFileAuditLogger_LogAndQuery(t *testing.T) {
	l := newTestLogger(t, AuditLogAll)
	defer func() {
		_ = l.Close()
	}()

	ctx := context.Background()
	if err := l.Log(ctx, NewFetchEvent("agent-1", "req-1", 40, 10*time.Millisecond, nil)); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if err := l.Log(ctx, NewFetchEvent("agent-2", "req-2", 0, time.Millisecond, errors.New("down"))); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := l.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Peer != "agent-1" || events[0].Status != "success" {
		t.Errorf("Unexpected first event: %+v", events[0])
	}
	if events[1].Type != AuditEventFetchError || events[1].Error != "down" {
		t.Errorf("Unexpected second event: %+v", events[1])
	}
}

func TestFileAuditLogger_QueryFilters(t *testing.T) {
	l := newTestLogger(t, AuditLogAll)
	ctx := context.Background()

	_ = l.Log(ctx, NewFetchEvent("agent-1", "r1", 10, time.Millisecond, nil))
	_ = l.Log(ctx, NewFetchEvent("agent-2", "r2", 10, time.Millisecond, nil))
	_ = l.Log(ctx, NewFetchEvent("agent-2", "r3", 10, time.Millisecond, errors.New("down")))

	events, err := l.Query(ctx, &AuditFilter{Peer: "agent-2"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("Expected 2 events for agent-2, got %d", len(events))
	}

	events, _ = l.Query(ctx, &AuditFilter{Type: AuditEventFetchError})
	if len(events) != 1 {
		t.Errorf("Expected 1 error event, got %d", len(events))
	}

	events, _ = l.Query(ctx, &AuditFilter{Limit: 1})
	if len(events) != 1 {
		t.Errorf("Expected limit to cap results, got %d", len(events))
	}
}

func TestFileAuditLogger_FailureLevel(t *testing.T) {
	l := newTestLogger(t, AuditLogFailures)
	ctx := context.Background()

	_ = l.Log(ctx, NewFetchEvent("agent-1", "r1", 10, time.Millisecond, nil))
	_ = l.Log(ctx, NewFetchEvent("agent-1", "r2", 0, time.Millisecond, errors.New("down")))

	events, err := l.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected only the failure to be logged, got %d", len(events))
	}
	if events[0].Status != "failure" {
		t.Errorf("Expected failure event, got %s", events[0].Status)
	}
}

func TestFileAuditLogger_Disabled(t *testing.T) {
	config := AuditConfig{
		Enabled:  false,
		BasePath: t.TempDir(),
		FilePath: "audit.log",
	}
	l, err := NewFileAuditLogger(config)
	if err != nil {
		t.Fatalf("NewFileAuditLogger failed: %v", err)
	}

	if err := l.Log(context.Background(), NewFetchEvent("p", "r", 0, 0, nil)); err != nil {
		t.Errorf("Disabled logger should not error: %v", err)
	}
}

func TestNewOverrideEvent(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  AuditEventType
	}{
		{"PATH", "/usr/bin", AuditEventOverride},
		{"PATH+maven", "/opt/maven/bin", AuditEventMerge},
		{"PATH", "", AuditEventDelete},
		{"+weird", "x", AuditEventOverride},
	}

	for _, tt := range tests {
		event := NewOverrideEvent(tt.key, tt.value)
		if event.Type != tt.want {
			t.Errorf("NewOverrideEvent(%q, %q): expected %s, got %s", tt.key, tt.value, tt.want, event.Type)
		}
		if event.ID == "" {
			t.Error("Expected event ID to be assigned")
		}
	}
}

func TestNewProfileApplyEvent(t *testing.T) {
	event := NewProfileApplyEvent("maven", 5)
	if event.Type != AuditEventProfileApply {
		t.Errorf("Expected profile_apply, got %s", event.Type)
	}
	if event.Profile != "maven" || event.VarCount != 5 {
		t.Errorf("Unexpected event: %+v", event)
	}
}

func TestNoopAuditLogger(t *testing.T) {
	l := NoopAuditLogger()
	if err := l.Log(context.Background(), &AuditEvent{}); err != nil {
		t.Errorf("Noop Log should not error: %v", err)
	}
	events, err := l.Query(context.Background(), nil)
	if err != nil || events != nil {
		t.Error("Noop Query should return nothing")
	}
}
