// Package model implements the controller configuration data model.
//
// # Configuration Structure
//
// A Configuration mirrors what a grid controller reports in its config dump:
//
//	Configuration (16n, firmware 2.1.0)
//	├── device options (LED, flip, MIDI thru, fader calibration, ...)
//	├── USB bus: 16 control slots (channel, CC, high-resolution flag)
//	├── TRS bus: 16 control slots
//	└── USB/TRS buttons (8mu family only)
//
// # Slots
//
// Control identity is positional: index i of a bus sequence is physical slot
// i. Sequences are sparse; a nil entry is a slot the device reports as
// unbound (the 0x7F sentinel on the wire).
//
// # Optional Fields
//
// Which optional fields carry meaning is declared by the Capabilities value
// attached to the configuration, never inferred from field values. Fields
// whose capability is false are kept at their zero value.
//
// # Runtime State
//
// Control.Value and ButtonControl.Pressed track live input and are never
// encoded, persisted or compared.
package model
