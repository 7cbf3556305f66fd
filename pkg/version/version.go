// Package version provides firmware version parsing and comparison.
//
// Controller firmware reports its version as three 7-bit data bytes
// (major, minor, patch). The editor side works with "major.minor.patch"
// strings; both forms convert losslessly through Firmware.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Version errors.
var (
	// ErrMalformedVersion indicates a version string that is not three
	// dot-separated unsigned integers.
	ErrMalformedVersion = errors.New("malformed version string")

	// ErrOutOfRange indicates a version segment that does not fit in a
	// 7-bit SysEx data byte.
	ErrOutOfRange = errors.New("version segment out of range")
)

// maxSegment is the largest segment value a data byte can carry.
const maxSegment = 0x7F

// Firmware represents a parsed "major.minor.patch" firmware version.
type Firmware struct {
	Major uint16
	Minor uint16
	Patch uint16
}

// Parse parses a "major.minor.patch" version string.
//
// Missing segments are an error; "1.2" is not read as "1.2.0".
func Parse(s string) (Firmware, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Firmware{}, fmt.Errorf("%w: %q: expected major.minor.patch", ErrMalformedVersion, s)
	}

	var segs [3]uint16
	for i, p := range parts {
		if p == "" {
			return Firmware{}, fmt.Errorf("%w: %q: empty segment %d", ErrMalformedVersion, s, i)
		}
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return Firmware{}, fmt.Errorf("%w: %q: bad segment %q", ErrMalformedVersion, s, p)
		}
		segs[i] = uint16(n)
	}

	return Firmware{Major: segs[0], Minor: segs[1], Patch: segs[2]}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Firmware {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FromBytes builds a version from the three firmware bytes of a config dump.
func FromBytes(major, minor, patch byte) Firmware {
	return Firmware{Major: uint16(major), Minor: uint16(minor), Patch: uint16(patch)}
}

// String returns the version as "major.minor.patch".
func (v Firmware) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Bytes returns the version as three SysEx data bytes.
func (v Firmware) Bytes() ([3]byte, error) {
	segs := [3]uint16{v.Major, v.Minor, v.Patch}
	var out [3]byte
	for i, s := range segs {
		if s > maxSegment {
			return out, fmt.Errorf("%w: %s segment %d is %d", ErrOutOfRange, v, i, s)
		}
		out[i] = byte(s)
	}
	return out, nil
}

// Compare returns -1, 0 or 1 comparing v with other segment by segment.
func (v Firmware) Compare(other Firmware) int {
	switch {
	case v.Major != other.Major:
		return cmp(v.Major, other.Major)
	case v.Minor != other.Minor:
		return cmp(v.Minor, other.Minor)
	default:
		return cmp(v.Patch, other.Patch)
	}
}

// AtLeast reports whether v >= min.
func (v Firmware) AtLeast(min Firmware) bool {
	return v.Compare(min) >= 0
}

func cmp(a, b uint16) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
