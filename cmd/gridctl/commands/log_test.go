package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gridctl/gridctl-go/pkg/log"
	"github.com/gridctl/gridctl-go/pkg/sysex"
)

func TestFormatFrameEvent(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 15, 32, 123456000, time.UTC)
	event := log.Event{
		Timestamp: ts,
		LinkID:    "abc12345-6789-0123-4567-890abcdef012",
		Direction: log.DirectionOut,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Device:    "16n",
		Frame:     log.NewFrameEvent(sysex.RequestConfig()),
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"2026-03-02T10:15:32.123456Z",
		"[link:abc12345]",
		"OUT",
		"TRANSPORT",
		"Frame (16n)",
		"Size: 6 bytes",
		"f07d00001ff7",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatMessageEvent(t *testing.T) {
	id := uint8(2)
	event := log.Event{
		LinkID:   "short",
		Layer:    log.LayerSysEx,
		Category: log.CategoryMessage,
		Message: &log.MessageEvent{
			Command:  sysex.CmdConfigDump,
			DeviceID: &id,
			Firmware: "2.1.0",
			BodySize: 90,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{"[link:short]", "SYSEX CONFIG_DUMP", "Body: 90 bytes", "Device: 2", "Firmware: 2.1.0"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatChannelStateErrorEvents(t *testing.T) {
	tests := []struct {
		name  string
		event log.Event
		want  []string
	}{
		{
			name: "channel",
			event: log.Event{
				Category: log.CategoryChannel,
				Channel:  &log.ChannelEvent{Kind: log.ChannelControlChange, Channel: 1, Number: 32, Value: 64},
			},
			want: []string{"CC", "Channel: 1  Number: 32  Value: 64"},
		},
		{
			name: "state",
			event: log.Event{
				Layer:       log.LayerSession,
				Category:    log.CategoryState,
				StateChange: &log.StateChangeEvent{Entity: log.StateEntityEdit, OldState: "editing", NewState: "committed", Reason: "sent"},
			},
			want: []string{"SESSION State", "Entity: EDIT", "editing -> committed", "Reason: sent"},
		},
		{
			name: "error",
			event: log.Event{
				Layer:    log.LayerSysEx,
				Category: log.CategoryError,
				Error:    &log.ErrorEventData{Layer: log.LayerSysEx, Message: "truncated message", Context: "parse"},
			},
			want: []string{"Error", "Layer: SYSEX", "Message: truncated message", "Context: parse"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatEvent(&buf, tt.event)
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("expected %q in output, got: %s", want, buf.String())
				}
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("SysEx"); err != nil || l != log.LayerSysEx {
		t.Errorf("ParseLayerFlag(SysEx) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("wire"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if d, err := parseDirection("OUT"); err != nil || d != log.DirectionOut {
		t.Errorf("parseDirection(OUT) = %v, %v", d, err)
	}
	if c, err := parseCategory("channel"); err != nil || c != log.CategoryChannel {
		t.Errorf("parseCategory(channel) = %v, %v", c, err)
	}
	if _, err := parseCategory("control"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		want    sysex.Command
		wantErr bool
	}{
		{"config_dump", sysex.CmdConfigDump, false},
		{"update-usb-options", sysex.CmdUpdateUSBOptions, false},
		{"0x1a", sysex.CmdFactoryReset, false},
		{"0x42", 0, true},
		{"dump", 0, true},
	}

	for _, tt := range tests {
		got, err := parseCommand(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseCommand(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseCommand(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func writeLog(t *testing.T, events ...log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.glog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func sampleEvents() []log.Event {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return []log.Event{
		{Timestamp: base, LinkID: "link-a", Direction: log.DirectionOut, Layer: log.LayerTransport,
			Category: log.CategoryMessage, Frame: log.NewFrameEvent(sysex.RequestConfig())},
		{Timestamp: base.Add(time.Second), LinkID: "link-a", Direction: log.DirectionIn, Layer: log.LayerSysEx,
			Category: log.CategoryMessage, Message: &log.MessageEvent{Command: sysex.CmdConfigDump, BodySize: 90}},
		{Timestamp: base.Add(2 * time.Second), LinkID: "link-a", Direction: log.DirectionIn, Layer: log.LayerSysEx,
			Category: log.CategoryError, Error: &log.ErrorEventData{Layer: log.LayerSysEx, Message: "bad"}},
	}
}

func TestRunLog_Filter(t *testing.T) {
	path := writeLog(t, sampleEvents()...)

	var buf bytes.Buffer
	if err := RunLog(path, LogOptions{Layer: "sysex", Category: "message"}, &buf); err != nil {
		t.Fatalf("RunLog: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "CONFIG_DUMP") {
		t.Errorf("expected dump event, got: %s", out)
	}
	if strings.Contains(out, "Frame") || strings.Contains(out, "Error") {
		t.Errorf("filter let other events through: %s", out)
	}

	if err := RunLog(path, LogOptions{Direction: "sideways"}, &buf); err == nil {
		t.Error("expected error for invalid direction")
	}
	if err := RunLog(path, LogOptions{TimeStart: "yesterday"}, &buf); err == nil {
		t.Error("expected error for invalid time")
	}
}

func TestRunLog_MissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := RunLog(filepath.Join(t.TempDir(), "missing.glog"), LogOptions{}, &buf); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRunStats(t *testing.T) {
	path := writeLog(t, sampleEvents()...)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Total Events: 3", "Links: 1", "Errors: 1", "CONFIG_DUMP", "(2s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in stats, got: %s", want, out)
		}
	}
}

func TestRunStats_Empty(t *testing.T) {
	path := writeLog(t)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("unexpected stats: %s", buf.String())
	}
}
