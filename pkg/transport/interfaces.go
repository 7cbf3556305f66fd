package transport

import (
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Sender writes raw MIDI bytes to a controller.
// Implemented by Ports and by gomidi's drivers.Out.
type Sender interface {
	// Send writes one complete MIDI message.
	Send(data []byte) error
}

// Listener delivers raw MIDI messages from a controller.
// Implemented by Ports.
type Listener interface {
	// Listen calls fn for every message until stop is called. fn runs on
	// the driver's goroutine.
	Listen(fn func(msg []byte)) (stop func(), err error)
}

// Compile-time interface satisfaction checks.
var (
	_ Sender   = (drivers.Out)(nil)
	_ Sender   = (*Ports)(nil)
	_ Listener = (*Ports)(nil)
)
