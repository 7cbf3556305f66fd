package log

import (
	"path/filepath"
	"testing"
	"time"
)

// mockLogger records events for testing
type mockLogger struct {
	events []Event
}

func (m *mockLogger) Log(event Event) {
	m.events = append(m.events, event)
}

func TestMultiLoggerCallsAll(t *testing.T) {
	mock1 := &mockLogger{}
	mock2 := &mockLogger{}

	multi := NewMultiLogger(mock1, mock2)
	multi.Log(Event{
		Timestamp: time.Now(),
		LinkID:    "link-123",
		Direction: DirectionOut,
		Layer:     LayerSysEx,
		Category:  CategoryMessage,
	})

	for i, mock := range []*mockLogger{mock1, mock2} {
		if len(mock.events) != 1 {
			t.Errorf("logger %d: got %d events, want 1", i, len(mock.events))
			continue
		}
		if mock.events[0].LinkID != "link-123" {
			t.Errorf("logger %d: LinkID = %q, want %q", i, mock.events[0].LinkID, "link-123")
		}
	}
}

func TestMultiLoggerEmptyList(t *testing.T) {
	NewMultiLogger().Log(Event{Timestamp: time.Now()})
}

func TestMultiLoggerSkipsNil(t *testing.T) {
	mock := &mockLogger{}
	multi := NewMultiLogger(nil, mock, nil)
	multi.Log(Event{LinkID: "a"})
	if len(mock.events) != 1 {
		t.Fatalf("got %d events, want 1", len(mock.events))
	}
}

func TestMultiLoggerClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session"+FileExtension)
	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	multi := NewMultiLogger(&mockLogger{}, fl)
	multi.Log(Event{Timestamp: time.Now(), LinkID: "before"})
	if err := multi.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	multi.Log(Event{Timestamp: time.Now(), LinkID: "after"})

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()
	events, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 1 || events[0].LinkID != "before" {
		t.Errorf("events = %+v, want only the one logged before Close", events)
	}
}
