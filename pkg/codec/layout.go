package codec

import (
	"fmt"
	"sort"
)

// Sentinel marks an unbound control slot or button record on the wire.
const Sentinel = 0x7F

// Field names a region of a SysEx body.
type Field string

// Body fields. Not every family has every field.
const (
	FieldDeviceID      Field = "deviceId"
	FieldFirmware      Field = "firmwareVersion"
	FieldLEDOn         Field = "ledOn"
	FieldLEDFlash      Field = "ledFlash"
	FieldLEDFlashAccel Field = "ledFlashAccel"
	FieldFlip          Field = "controllerFlip"
	FieldI2CLeader     Field = "i2cLeader"
	FieldFaderMin      Field = "faderMin"
	FieldFaderMax      Field = "faderMax"
	FieldMIDIThru      Field = "midiThru"
	FieldTRSMode       Field = "trsMode"
	FieldCurrentBank   Field = "currentBank"
	FieldUSBChannels   Field = "usbChannels"
	FieldTRSChannels   Field = "trsChannels"
	FieldUSBCCs        Field = "usbCCs"
	FieldTRSCCs        Field = "trsCCs"
	FieldUSBHighRes    Field = "usbHighResolution"
	FieldTRSHighRes    Field = "trsHighResolution"
	FieldUSBButtons    Field = "usbButtons"
	FieldTRSButtons    Field = "trsButtons"
)

// Span is a byte range within a body.
type Span struct {
	Offset int
	Width  int
}

// End returns the offset just past the span.
func (s Span) End() int {
	return s.Offset + s.Width
}

// Layout is the byte map of one family's SysEx body.
type Layout struct {
	Family Family

	// MinLength is the shortest valid body.
	MinLength int

	// Fields maps each field to its position.
	Fields map[Field]Span

	// DeviceOptions is the range sent in a device-options update.
	DeviceOptions Span

	// USBOptions and TRSOptions list the fields, in order, that make up a
	// bus-options update.
	USBOptions []Field
	TRSOptions []Field
}

// Span returns the position of a field. It panics for a field the family
// does not have; layouts are static and covered by tests.
func (l *Layout) Span(f Field) Span {
	s, ok := l.Fields[f]
	if !ok {
		panic(fmt.Sprintf("codec: %s layout has no field %q", l.Family, f))
	}
	return s
}

// Has reports whether the layout defines f.
func (l *Layout) Has(f Field) bool {
	_, ok := l.Fields[f]
	return ok
}

// Extract concatenates the bytes of the given fields from an encoded body.
func (l *Layout) Extract(body []byte, fields ...Field) ([]byte, error) {
	var out []byte
	for _, f := range fields {
		s := l.Span(f)
		if s.End() > len(body) {
			return nil, fmt.Errorf("%w: field %s needs %d bytes, body has %d",
				ErrBufferTooShort, f, s.End(), len(body))
		}
		out = append(out, body[s.Offset:s.End()]...)
	}
	return out, nil
}

// ExtractSpan returns a copy of one span of an encoded body.
func (l *Layout) ExtractSpan(body []byte, s Span) ([]byte, error) {
	if s.End() > len(body) {
		return nil, fmt.Errorf("%w: range %d..%d, body has %d bytes",
			ErrBufferTooShort, s.Offset, s.End(), len(body))
	}
	return append([]byte(nil), body[s.Offset:s.End()]...), nil
}

// check verifies that no two fields overlap.
func (l *Layout) check() error {
	type named struct {
		f Field
		s Span
	}
	all := make([]named, 0, len(l.Fields))
	for f, s := range l.Fields {
		if s.Offset < 0 || s.Width <= 0 {
			return fmt.Errorf("%s: field %s has invalid span %+v", l.Family, f, s)
		}
		all = append(all, named{f, s})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].s.Offset < all[j].s.Offset })
	for i := 1; i < len(all); i++ {
		if all[i].s.Offset < all[i-1].s.End() {
			return fmt.Errorf("%s: fields %s and %s overlap", l.Family, all[i-1].f, all[i].f)
		}
	}
	return nil
}

// reader reads fields from a body that has already been length-checked.
type reader struct {
	layout *Layout
	body   []byte
}

func (r reader) get(f Field) []byte {
	s := r.layout.Span(f)
	return r.body[s.Offset:s.End()]
}

func (r reader) byte(f Field) byte {
	return r.get(f)[0]
}

func (r reader) flag(f Field) bool {
	return r.byte(f) == 1
}

// writer assembles a body of fixed length field by field. The first error
// sticks and is reported by bytes.
type writer struct {
	layout *Layout
	buf    []byte
	err    error
}

func newWriter(l *Layout, length int) *writer {
	return &writer{layout: l, buf: make([]byte, length)}
}

func (w *writer) put(f Field, data ...byte) {
	if w.err != nil {
		return
	}
	s := w.layout.Span(f)
	if len(data) != s.Width {
		w.err = fmt.Errorf("codec: field %s is %d bytes, got %d", f, s.Width, len(data))
		return
	}
	if s.End() > len(w.buf) {
		w.err = fmt.Errorf("codec: field %s ends at %d past body length %d", f, s.End(), len(w.buf))
		return
	}
	for i, b := range data {
		if b > Sentinel {
			w.err = fmt.Errorf("%w: field %s byte %d is %#x, not a data byte", ErrOutOfRange, f, i, b)
			return
		}
	}
	copy(w.buf[s.Offset:], data)
}

func (w *writer) flag(f Field, on bool) {
	if on {
		w.put(f, 1)
	} else {
		w.put(f, 0)
	}
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}
