package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gridctl/gridctl-go/pkg/device"
)

func TestRunDevices(t *testing.T) {
	var buf bytes.Buffer
	if err := RunDevices(device.Default(), &buf); err != nil {
		t.Fatalf("RunDevices: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1+device.Default().Len() {
		t.Fatalf("expected header plus %d rows, got %d lines", device.Default().Len(), len(lines))
	}
	if !strings.HasPrefix(lines[0], "ID") {
		t.Errorf("unexpected header: %s", lines[0])
	}

	var sixteen, eightMu string
	for _, l := range lines[1:] {
		fields := strings.Fields(l)
		switch fields[0] {
		case "2":
			sixteen = l
		case "6":
			eightMu = l
		}
	}
	if !strings.Contains(sixteen, "16n") || !strings.Contains(sixteen, "highResolution>=2.1.0") {
		t.Errorf("unexpected 16n row: %s", sixteen)
	}
	if !strings.Contains(eightMu, "8mu") || !strings.Contains(eightMu, "0.3.0") {
		t.Errorf("unexpected 8mu row: %s", eightMu)
	}
}
