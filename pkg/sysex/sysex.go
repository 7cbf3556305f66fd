// Package sysex frames and parses the vendor SysEx messages spoken by the
// controllers.
//
// Every message has the shape
//
//	F0 7D 00 00 <command> <payload...> F7
//
// where 7D is the non-commercial manufacturer id and 00 00 the device class.
// A config dump carries a configuration body starting at the device id; an
// update carries an encoded body or one of its option ranges.
package sysex

import (
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// Framing bytes.
const (
	Start        = 0xF0
	End          = 0xF7
	Manufacturer = 0x7D
)

// PrefixLength is the number of bytes before the payload: start, vendor,
// two device class bytes and the command.
const PrefixLength = 5

// Framing errors.
var (
	// ErrNotSysEx indicates bytes without a complete F0..F7 envelope.
	ErrNotSysEx = errors.New("not a sysex message")

	// ErrForeignVendor indicates a SysEx message for another manufacturer or
	// device class.
	ErrForeignVendor = errors.New("foreign vendor")

	// ErrUnknownCommand indicates a command byte outside the known set.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrTruncated indicates a message too short for its command.
	ErrTruncated = errors.New("truncated message")

	// ErrInvalidPayload indicates a payload byte that is not a MIDI data byte.
	ErrInvalidPayload = errors.New("invalid payload")
)

// Command is the command byte of a vendor message.
type Command byte

// Commands.
const (
	CmdRequestConfig       Command = 0x1F
	CmdConfigDump          Command = 0x0F
	CmdUpdateConfig        Command = 0x0E
	CmdUpdateDeviceOptions Command = 0x0D
	CmdUpdateUSBOptions    Command = 0x0C
	CmdUpdateTRSOptions    Command = 0x0B
	CmdFactoryReset        Command = 0x1A
)

var commandNames = map[Command]string{
	CmdRequestConfig:       "REQUEST_CONFIG",
	CmdConfigDump:          "CONFIG_DUMP",
	CmdUpdateConfig:        "UPDATE_CONFIG",
	CmdUpdateDeviceOptions: "UPDATE_DEVICE_OPTIONS",
	CmdUpdateUSBOptions:    "UPDATE_USB_OPTIONS",
	CmdUpdateTRSOptions:    "UPDATE_TRS_OPTIONS",
	CmdFactoryReset:        "FACTORY_RESET",
}

// String returns the command name.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(0x%02X)", byte(c))
}

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// Commands returns the known commands in wire order of their bytes.
func Commands() []Command {
	return []Command{
		CmdUpdateTRSOptions,
		CmdUpdateUSBOptions,
		CmdUpdateDeviceOptions,
		CmdUpdateConfig,
		CmdConfigDump,
		CmdFactoryReset,
		CmdRequestConfig,
	}
}

// IsUpdate reports whether c writes configuration to the device.
func (c Command) IsUpdate() bool {
	switch c {
	case CmdUpdateConfig, CmdUpdateDeviceOptions, CmdUpdateUSBOptions, CmdUpdateTRSOptions:
		return true
	}
	return false
}

// Message is a parsed vendor message.
type Message struct {
	Command Command
	// Body is everything between the command byte and F7. For a config
	// dump it starts at the device id.
	Body []byte
}

// Frame builds a complete vendor message.
func Frame(cmd Command, payload []byte) (midi.Message, error) {
	if !cmd.Valid() {
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, byte(cmd))
	}
	for i, b := range payload {
		if b > 0x7F {
			return nil, fmt.Errorf("%w: byte %d is 0x%02X", ErrInvalidPayload, i, b)
		}
	}
	data := make([]byte, 0, PrefixLength-1+len(payload))
	data = append(data, Manufacturer, 0x00, 0x00, byte(cmd))
	data = append(data, payload...)
	return midi.SysEx(data), nil
}

// RequestConfig returns the message asking a device for its config dump.
func RequestConfig() midi.Message {
	msg, _ := Frame(CmdRequestConfig, nil)
	return msg
}

// FactoryReset returns the message restoring factory defaults.
func FactoryReset() midi.Message {
	msg, _ := Frame(CmdFactoryReset, nil)
	return msg
}

// Update frames an update command carrying payload.
func Update(cmd Command, payload []byte) (midi.Message, error) {
	if !cmd.IsUpdate() {
		return nil, fmt.Errorf("%w: %s is not an update", ErrUnknownCommand, cmd)
	}
	return Frame(cmd, payload)
}

// IsVendorMessage reports whether raw is a complete SysEx message for this
// vendor and device class.
func IsVendorMessage(raw []byte) bool {
	return len(raw) >= PrefixLength+1 &&
		raw[0] == Start && raw[len(raw)-1] == End &&
		raw[1] == Manufacturer && raw[2] == 0x00 && raw[3] == 0x00
}

// Parse validates the envelope of raw and splits it into command and
// body. The body aliases raw.
func Parse(raw []byte) (*Message, error) {
	var data []byte
	if !midi.Message(raw).GetSysEx(&data) || len(raw) < 2 || raw[len(raw)-1] != End {
		return nil, fmt.Errorf("%w: % X", ErrNotSysEx, head(raw))
	}
	if len(raw) < PrefixLength+1 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(raw))
	}
	if !IsVendorMessage(raw) {
		return nil, fmt.Errorf("%w: % X", ErrForeignVendor, raw[1:4])
	}

	cmd := Command(raw[4])
	if !cmd.Valid() {
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, raw[4])
	}
	payload := raw[PrefixLength : len(raw)-1]
	if cmd == CmdConfigDump && len(payload) < 4 {
		return nil, fmt.Errorf("%w: config dump has %d payload bytes, need device id and firmware",
			ErrTruncated, len(payload))
	}
	return &Message{Command: cmd, Body: payload}, nil
}

func head(b []byte) []byte {
	if len(b) > 8 {
		return b[:8]
	}
	return b
}
