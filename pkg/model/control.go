package model

import "strconv"

// MaxSlots is the number of control slots on each bus, and the upper bound
// for any control sequence.
const MaxSlots = 16

// MaxButtons is the number of button records per bus in a config message.
const MaxButtons = 4

// Bus identifies one of the two physical control groups.
type Bus uint8

const (
	// BusUSB is the USB-side control group.
	BusUSB Bus = iota
	// BusTRS is the TRS-side control group.
	BusTRS
)

// String returns the bus name.
func (b Bus) String() string {
	switch b {
	case BusUSB:
		return "usb"
	case BusTRS:
		return "trs"
	default:
		return "unknown"
	}
}

// Control is one fader or knob binding.
type Control struct {
	// Channel is the MIDI channel the control transmits on.
	Channel uint8

	// CC is the controller number.
	CC uint8

	// HighResolution enables 14-bit output via the shadow controller CC+32.
	// Only meaningful when the owning configuration has the HighResolution
	// capability.
	HighResolution bool

	// Value is the last observed reading. Runtime only.
	Value int

	// MSB and LSB hold the last raw bytes seen for a high-resolution control.
	// Runtime only.
	MSB uint8
	LSB uint8
	// SeenMSB records whether MSB has been received since the last decode.
	SeenMSB bool
}

// ButtonMode selects what a button transmits.
type ButtonMode uint8

const (
	// ButtonModeNote sends note on/off with ParamA as the note number and
	// ParamB as the velocity.
	ButtonModeNote ButtonMode = 0
	// ButtonModeCC sends a controller change with ParamA as the CC number.
	ButtonModeCC ButtonMode = 1
)

// String returns the display name of the mode.
func (m ButtonMode) String() string {
	switch m {
	case ButtonModeNote:
		return "Keyboard"
	case ButtonModeCC:
		return "CC"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ButtonControl is one button binding (8mu family).
type ButtonControl struct {
	Channel uint8
	Mode    ButtonMode
	ParamA  uint8
	ParamB  uint8

	// Record is the index of the button's record in a config message, and
	// so the physical button it belongs to. Decoding sets it. A button whose
	// record is out of range or already taken by an earlier button is placed
	// in the lowest free record.
	Record int

	// Pressed is the live input state. Runtime only.
	Pressed bool
}

// PlaceButtons returns the record each button is written to, or -1 for nil
// buttons and buttons that find no free record.
func PlaceButtons(buttons []*ButtonControl) []int {
	places := make([]int, len(buttons))
	var taken [MaxButtons]bool
	for i, b := range buttons {
		places[i] = -1
		if b != nil && b.Record >= 0 && b.Record < MaxButtons && !taken[b.Record] {
			places[i] = b.Record
			taken[b.Record] = true
		}
	}
	next := 0
	for i, b := range buttons {
		if b == nil || places[i] >= 0 {
			continue
		}
		for next < MaxButtons && taken[next] {
			next++
		}
		if next == MaxButtons {
			break
		}
		places[i] = next
		taken[next] = true
	}
	return places
}

// ButtonRecords lays buttons out by record. Unused records are nil.
func ButtonRecords(buttons []*ButtonControl) [MaxButtons]*ButtonControl {
	var out [MaxButtons]*ButtonControl
	for i, r := range PlaceButtons(buttons) {
		if r >= 0 {
			out[r] = buttons[i]
		}
	}
	return out
}

var chromatic = [12]string{"C", "Db", "D", "Eb", "E", "F", "F#", "G", "Ab", "A", "Bb", "B"}

// NoteName returns the note name for a MIDI note number, e.g. 60 -> "C4".
func NoteName(note uint8) string {
	return chromatic[note%12] + strconv.Itoa(int(note)/12-1)
}
