// Package packing provides the bit-level transforms shared by every
// controller family.
//
// SysEx data bytes carry 7 bits each, so wider values travel as groups of
// 7-bit bytes:
//   - 14-bit values (fader calibration bounds, high-resolution readings)
//     are split into an (LSB, MSB) pair.
//   - The 16 per-bus high-resolution flags are packed into three bytes,
//     the last of which only uses its low two bits.
package packing
