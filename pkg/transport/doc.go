// Package transport connects controllers over MIDI.
//
// The transport layer handles:
//   - Opening matched input and output ports through gomidi
//   - Routing inbound config dumps and channel traffic to a session store
//   - Sending config requests, updates, factory resets and program changes
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      Configuration body        │
//	├────────────────────────────────┤
//	│   Vendor SysEx (F0 7D 00 00)   │
//	├────────────────────────────────┤
//	│       MIDI 1.0 stream          │
//	├────────────────────────────────┤
//	│     USB MIDI port driver       │
//	└────────────────────────────────┘
//
// # Requests
//
// A config request is answered by a config dump. Controllers that do not
// answer within a few seconds usually carry a corrupt configuration and
// need a factory reset. RequestConfig honors its context's deadline and
// reports ErrTimeout when it passes.
//
// # Short messages
//
// Some controllers cannot receive a full configuration in one SysEx
// message. For those, SendConfig writes the device options, USB options and
// TRS options as three separate updates.
package transport
