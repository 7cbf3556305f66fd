package log

import (
	"testing"
	"time"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := NoopLogger{}

	event := Event{
		Timestamp: time.Now(),
		LinkID:    "test-link",
		Direction: DirectionIn,
		Layer:     LayerTransport,
		Category:  CategoryMessage,
	}
	logger.Log(event)

	event.Frame = NewFrameEvent([]byte{0xF0, 0x7D, 0xF7})
	logger.Log(event)

	event.Frame = nil
	event.Channel = &ChannelEvent{Kind: ChannelControlChange, Channel: 1, Number: 32, Value: 64}
	logger.Log(event)

	event.Channel = nil
	event.Error = &ErrorEventData{Message: "test error"}
	logger.Log(event)
}

func TestNoopLoggerIsZeroValue(t *testing.T) {
	var logger NoopLogger
	logger.Log(Event{})
}

func TestLoggerFunc(t *testing.T) {
	var got []string
	var logger Logger = LoggerFunc(func(e Event) { got = append(got, e.LinkID) })

	logger.Log(Event{LinkID: "a"})
	NewMultiLogger(logger, NoopLogger{}).Log(Event{LinkID: "b"})

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v, want [a b]", got)
	}
}
