package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/gridctl/gridctl-go/pkg/sysex"
)

func logOne(t *testing.T, level slog.Level, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	slogger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))
	NewSlogAdapter(slogger).Log(event)

	if buf.Len() == 0 {
		return nil
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	return entry
}

func TestSlogAdapterLogsMessageEvent(t *testing.T) {
	id := uint8(2)
	entry := logOne(t, slog.LevelDebug, Event{
		Timestamp: time.Now(),
		LinkID:    "link-123",
		Direction: DirectionIn,
		Layer:     LayerSysEx,
		Category:  CategoryMessage,
		Device:    "16n",
		Message:   &MessageEvent{Command: sysex.CmdConfigDump, DeviceID: &id, Firmware: "2.1.0", BodySize: 90},
	})
	if entry == nil {
		t.Fatal("no output produced")
	}

	want := map[string]any{
		"msg":       "protocol",
		"link_id":   "link-123",
		"direction": "IN",
		"layer":     "SYSEX",
		"command":   "CONFIG_DUMP",
		"device":    "16n",
		"firmware":  "2.1.0",
		"device_id": float64(2),
		"body_size": float64(90),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s: got %v, want %v", k, entry[k], v)
		}
	}
}

func TestSlogAdapterLogsChannelEvent(t *testing.T) {
	entry := logOne(t, slog.LevelDebug, Event{
		Category: CategoryChannel,
		Channel:  &ChannelEvent{Kind: ChannelNoteOn, Channel: 1, Number: 36, Value: 100},
	})
	if entry["kind"] != "NOTE_ON" || entry["number"] != float64(36) {
		t.Errorf("entry = %v", entry)
	}
}

func TestSlogAdapterLogsError(t *testing.T) {
	entry := logOne(t, slog.LevelDebug, Event{
		Category: CategoryError,
		Error:    &ErrorEventData{Layer: LayerSysEx, Message: "truncated", Context: "parse"},
	})
	if entry["error_msg"] != "truncated" || entry["error_layer"] != "SYSEX" {
		t.Errorf("entry = %v", entry)
	}
}

func TestSlogAdapterUsesDebugLevel(t *testing.T) {
	if entry := logOne(t, slog.LevelInfo, Event{LinkID: "x"}); entry != nil {
		t.Errorf("event logged above debug level: %v", entry)
	}
}
