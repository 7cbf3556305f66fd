package packing

import (
	"errors"
	"fmt"
)

// ErrOutOfRange indicates a value outside the range a field can carry.
var ErrOutOfRange = errors.New("value out of range")

const (
	// Max14 is the largest 14-bit value.
	Max14 = 0x3FFF

	// DataMask masks a byte to the 7-bit SysEx data range.
	DataMask = 0x7F

	// HighResFlags is the number of high-resolution flags per bus.
	HighResFlags = 16

	// HighResBytes is the packed size of one bus's high-resolution flags.
	HighResBytes = 3

	// highResTopMask keeps bits 14-15 in the last packed byte.
	highResTopMask = 0x03
)

// Split14 splits a 14-bit value into its LSB and MSB data bytes.
func Split14(value int) (lsb, msb byte, err error) {
	if value < 0 || value > Max14 {
		return 0, 0, fmt.Errorf("%w: %d is not a 14-bit value", ErrOutOfRange, value)
	}
	return byte(value & DataMask), byte(value >> 7), nil
}

// Combine14 joins an LSB and MSB data byte into a 14-bit value.
// Bits above the 7-bit data range are ignored.
func Combine14(lsb, msb byte) int {
	return int(msb&DataMask)<<7 | int(lsb&DataMask)
}

// PackHighRes packs 16 flags into three data bytes: bits 0-6, bits 7-13
// and bits 14-15.
func PackHighRes(flags [HighResFlags]bool) [HighResBytes]byte {
	var acc uint16
	for i, on := range flags {
		if on {
			acc |= 1 << i
		}
	}
	return [HighResBytes]byte{
		byte(acc & DataMask),
		byte((acc >> 7) & DataMask),
		byte((acc >> 14) & highResTopMask),
	}
}

// UnpackHighRes is the inverse of PackHighRes.
func UnpackHighRes(b [HighResBytes]byte) [HighResFlags]bool {
	acc := uint16(b[0]&DataMask) |
		uint16(b[1]&DataMask)<<7 |
		uint16(b[2]&highResTopMask)<<14

	var flags [HighResFlags]bool
	for i := range flags {
		flags[i] = acc&(1<<i) != 0
	}
	return flags
}
