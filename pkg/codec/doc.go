// Package codec translates controller configurations to and from the
// family-specific SysEx body layouts.
//
// A body starts at the device id byte of a config message:
//
//	[0]     device id
//	[1..3]  firmware major, minor, patch
//	[4..]   family-specific options, control tables, trailers
//
// Two families exist. The 16n family (16n, 16n LC, 16nx, 16rx and the Oxion
// development board) carries LED, I2C and fader calibration options and an
// optional high-resolution trailer. The 8mu family (8mu2040) carries a
// 16-byte options block, per-bus button records and a current bank.
//
// # Layout Tables
//
// Every field's offset and width is declared once in a Layout. Decoders read
// and encoders write through the same table, so the two directions cannot
// drift apart.
//
// # Capability Gating
//
// Optional fields are read and written only when the device catalog says the
// device, at the configuration's firmware version, has the capability. The
// decoded Configuration carries the resolved set in its Capabilities field.
package codec
