package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/victoralfred/gowritter/safepath"
)

// AuditLogger provides immutable audit logging.
type AuditLogger interface {
	// Log logs an audit event.
	Log(ctx context.Context, event *AuditEvent) error

	// Query queries audit events.
	Query(ctx context.Context, filter *AuditFilter) ([]*AuditEvent, error)

	// Close closes the audit logger.
	Close() error
}

// AuditEvent represents an audit log entry.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ID        string            `json:"id"`
	Type      AuditEventType    `json:"type"`
	Peer      string            `json:"peer,omitempty"`
	Key       string            `json:"key,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Profile   string            `json:"profile,omitempty"`
	Status    string            `json:"status"`
	Error     string            `json:"error,omitempty"`
	TraceID   string            `json:"trace_id,omitempty"`
	Duration  time.Duration     `json:"duration,omitempty"`
	VarCount  int               `json:"var_count,omitempty"`
}

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// AuditEventOverride is an overlay override event.
	AuditEventOverride AuditEventType = "override"

	// AuditEventDelete is a variable deletion event.
	AuditEventDelete AuditEventType = "delete"

	// AuditEventMerge is a path-list merge event.
	AuditEventMerge AuditEventType = "merge"

	// AuditEventFetch is a remote snapshot fetch event.
	AuditEventFetch AuditEventType = "fetch"

	// AuditEventFetchError is a failed fetch event.
	AuditEventFetchError AuditEventType = "fetch_error"

	// AuditEventProfileApply is a profile application event.
	AuditEventProfileApply AuditEventType = "profile_apply"
)

// AuditFilter filters audit events.
type AuditFilter struct {
	// StartTime is the start of the time range.
	StartTime time.Time

	// EndTime is the end of the time range.
	EndTime time.Time

	// Peer filters by peer name.
	Peer string

	// Type filters by event type.
	Type AuditEventType

	// Status filters by status.
	Status string

	// Limit is the maximum number of events to return.
	Limit int
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	LogLevel AuditLogLevel
	BasePath string
	FilePath string
	Enabled  bool
}

// AuditLogLevel determines what events to log.
type AuditLogLevel string

const (
	// AuditLogAll logs all events.
	AuditLogAll AuditLogLevel = "all"

	// AuditLogFailures logs only failures.
	AuditLogFailures AuditLogLevel = "failures"

	// AuditLogFetches logs only remote fetch events.
	AuditLogFetches AuditLogLevel = "fetches"
)

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:  true,
		LogLevel: AuditLogAll,
		BasePath: "/var/log",
		FilePath: "goenviron/audit.log",
	}
}

// fileAuditLogger implements AuditLogger using gowritter.
type fileAuditLogger struct {
	safePath *safepath.SafePath
	config   AuditConfig
	mu       sync.Mutex
}

// NewFileAuditLogger creates a new file-based audit logger.
func NewFileAuditLogger(config AuditConfig) (AuditLogger, error) {
	sp, err := safepath.New(config.BasePath)
	if err != nil {
		return nil, fmt.Errorf("creating safe path: %w", err)
	}

	return &fileAuditLogger{
		config:   config,
		safePath: sp,
	}, nil
}

// Log implements AuditLogger.Log.
func (l *fileAuditLogger) Log(ctx context.Context, event *AuditEvent) error {
	if !l.config.Enabled {
		return nil
	}

	if !l.shouldLog(event) {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling audit event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.safePath.AppendFile(l.config.FilePath, data, 0o644); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}

	return nil
}

// Query implements AuditLogger.Query. The log is line-delimited JSON;
// unparseable lines are skipped.
func (l *fileAuditLogger) Query(ctx context.Context, filter *AuditFilter) ([]*AuditEvent, error) {
	data, err := l.safePath.ReadFile(l.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	var events []*AuditEvent
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var event AuditEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		if !matchesFilter(&event, filter) {
			continue
		}

		events = append(events, &event)
		if filter != nil && filter.Limit > 0 && len(events) >= filter.Limit {
			break
		}
	}

	return events, nil
}

// Close implements AuditLogger.Close.
func (l *fileAuditLogger) Close() error {
	return nil
}

func (l *fileAuditLogger) shouldLog(event *AuditEvent) bool {
	switch l.config.LogLevel {
	case AuditLogAll:
		return true
	case AuditLogFailures:
		return event.Status != "success"
	case AuditLogFetches:
		return event.Type == AuditEventFetch || event.Type == AuditEventFetchError
	default:
		return true
	}
}

func matchesFilter(event *AuditEvent, filter *AuditFilter) bool {
	if filter == nil {
		return true
	}
	if !filter.StartTime.IsZero() && event.Timestamp.Before(filter.StartTime) {
		return false
	}
	if !filter.EndTime.IsZero() && event.Timestamp.After(filter.EndTime) {
		return false
	}
	if filter.Peer != "" && event.Peer != filter.Peer {
		return false
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.Status != "" && event.Status != filter.Status {
		return false
	}
	return true
}

// NewFetchEvent creates an audit event for a completed fetch.
func NewFetchEvent(peer, requestID string, varCount int, duration time.Duration, fetchErr error) *AuditEvent {
	event := &AuditEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Type:      AuditEventFetch,
		Peer:      peer,
		RequestID: requestID,
		VarCount:  varCount,
		Duration:  duration,
		Status:    "success",
	}

	if fetchErr != nil {
		event.Type = AuditEventFetchError
		event.Status = "failure"
		event.Error = fetchErr.Error()
	}

	return event
}

// NewOverrideEvent creates an audit event for a single override.
func NewOverrideEvent(key, value string) *AuditEvent {
	event := &AuditEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Type:      AuditEventOverride,
		Key:       key,
		Status:    "success",
	}

	switch {
	case value == "":
		event.Type = AuditEventDelete
	case containsMergeMarker(key):
		event.Type = AuditEventMerge
	}

	return event
}

// NewProfileApplyEvent creates an audit event for a profile application.
func NewProfileApplyEvent(profile string, varCount int) *AuditEvent {
	return &AuditEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Type:      AuditEventProfileApply,
		Profile:   profile,
		VarCount:  varCount,
		Status:    "success",
	}
}

func containsMergeMarker(key string) bool {
	for i := 1; i < len(key); i++ {
		if key[i] == '+' {
			return true
		}
	}
	return false
}

// NoopAuditLogger returns a no-op audit logger.
func NoopAuditLogger() AuditLogger {
	return &noopAuditLogger{}
}

type noopAuditLogger struct{}

func (l *noopAuditLogger) Log(ctx context.Context, event *AuditEvent) error { return nil }
func (l *noopAuditLogger) Query(ctx context.Context, filter *AuditFilter) ([]*AuditEvent, error) {
	return nil, nil
}
func (l *noopAuditLogger) Close() error { return nil }
