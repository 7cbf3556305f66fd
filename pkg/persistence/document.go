package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gridctl/gridctl-go/pkg/device"
	"github.com/gridctl/gridctl-go/pkg/model"
)

// Document errors.
var (
	ErrInvalidDocument  = errors.New("invalid document")
	ErrWrongDevice      = errors.New("document is for a different device")
	ErrUnsupportedField = errors.New("field not supported by device")
)

// Control is one control slot in a document.
type Control struct {
	Channel        uint8 `json:"channel"`
	CC             uint8 `json:"cc"`
	HighResolution *bool `json:"highResolution,omitempty"`
}

// Button is one button record in a document.
type Button struct {
	Channel uint8 `json:"channel"`
	Mode    uint8 `json:"mode"`
	ParamA  uint8 `json:"paramA"`
	ParamB  uint8 `json:"paramB"`
	// Record is the physical button. Files without it fill records in
	// order.
	Record *int `json:"record,omitempty"`
}

// Document is the JSON form of a configuration. Nil fields are absent from
// the file and are left untouched by Merge. A null control slot is unbound.
type Document struct {
	DeviceID        *uint8  `json:"deviceId,omitempty"`
	FirmwareVersion *string `json:"firmwareVersion,omitempty"`
	LEDOn           *bool   `json:"ledOn,omitempty"`
	LEDFlash        *bool   `json:"ledFlash,omitempty"`
	LEDFlashAccel   *bool   `json:"ledFlashAccel,omitempty"`
	ControllerFlip  *bool   `json:"controllerFlip,omitempty"`
	MIDIThru        *bool   `json:"midiThru,omitempty"`
	I2CLeader       *bool   `json:"i2cLeader,omitempty"`
	FaderMin        *int    `json:"faderMin,omitempty"`
	FaderMax        *int    `json:"faderMax,omitempty"`
	TRSMode         *uint8  `json:"trsMode,omitempty"`

	USBControls []*Control `json:"usbControls,omitempty"`
	TRSControls []*Control `json:"trsControls,omitempty"`
	USBButtons  []*Button  `json:"usbButtonControls,omitempty"`
	TRSButtons  []*Button  `json:"trsButtonControls,omitempty"`

	USBHighResolution []bool `json:"usbHighResolution,omitempty"`
	TRSHighResolution []bool `json:"trsHighResolution,omitempty"`
}

// Export converts cfg to a document. Control sequences are cut to the
// device's control count and runtime readings are left out. d may be nil,
// in which case sequences are exported in full.
func Export(cfg *model.Configuration, d *device.Descriptor) *Document {
	count := model.MaxSlots
	if d != nil && d.ControlCount > 0 {
		count = d.ControlCount
	}
	caps := cfg.Capabilities

	doc := &Document{
		DeviceID:        ptr(cfg.DeviceID),
		FirmwareVersion: ptr(cfg.FirmwareVersion),
		LEDFlash:        ptr(cfg.LEDFlash),
		ControllerFlip:  ptr(cfg.ControllerFlip),
		MIDIThru:        ptr(cfg.MIDIThru),
		USBControls:     exportControls(cfg.USBControls, count, caps.HighResolution),
		TRSControls:     exportControls(cfg.TRSControls, count, caps.HighResolution),
	}
	if caps.LED {
		doc.LEDOn = ptr(cfg.LEDOn)
	}
	if caps.I2C {
		doc.I2CLeader = ptr(cfg.I2CLeader)
	}
	if caps.FaderCalibration {
		doc.FaderMin = ptr(cfg.FaderMin)
		doc.FaderMax = ptr(cfg.FaderMax)
	}
	if caps.LEDFlashAccel {
		doc.LEDFlashAccel = ptr(cfg.LEDFlashAccel)
	}
	if caps.TRSMode {
		doc.TRSMode = ptr(cfg.TRSMode)
	}
	if caps.HighResolution {
		doc.USBHighResolution = cfg.HighResFlags(model.BusUSB)[:count]
		doc.TRSHighResolution = cfg.HighResFlags(model.BusTRS)[:count]
	}
	if caps.Buttons {
		doc.USBButtons = exportButtons(cfg.USBButtons)
		doc.TRSButtons = exportButtons(cfg.TRSButtons)
	}
	return doc
}

func exportControls(controls []*model.Control, count int, highRes bool) []*Control {
	out := make([]*Control, 0, count)
	for i := 0; i < count && i < len(controls); i++ {
		c := controls[i]
		if c == nil {
			out = append(out, nil)
			continue
		}
		dc := &Control{Channel: c.Channel, CC: c.CC}
		if highRes {
			dc.HighResolution = ptr(c.HighResolution)
		}
		out = append(out, dc)
	}
	return out
}

// exportButtons writes each button with the record it is encoded to.
func exportButtons(buttons []*model.ButtonControl) []*Button {
	out := make([]*Button, 0, len(buttons))
	for i, r := range model.PlaceButtons(buttons) {
		b := buttons[i]
		if b == nil || r < 0 {
			continue
		}
		out = append(out, &Button{
			Channel: b.Channel,
			Mode:    uint8(b.Mode),
			ParamA:  b.ParamA,
			ParamB:  b.ParamB,
			Record:  ptr(r),
		})
	}
	return out
}

// Marshal renders a document as indented JSON.
func Marshal(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Parse reads a document. Unknown keys are an error.
func Parse(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a document from r. Unknown keys are an error.
func Decode(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	doc := &Document{}
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after document", ErrInvalidDocument)
	}
	return doc, nil
}

// CheckDevice refuses a document written for a different device than
// target.
func CheckDevice(doc *Document, target *model.Configuration) error {
	if doc.DeviceID == nil {
		return fmt.Errorf("%w: document has no deviceId", ErrWrongDevice)
	}
	if *doc.DeviceID != target.DeviceID {
		return fmt.Errorf("%w: document is for device %d, target is device %d",
			ErrWrongDevice, *doc.DeviceID, target.DeviceID)
	}
	return nil
}

// Merge copies the fields present in doc into target. Fields the target's
// capabilities do not declare are rejected. The firmware version is never
// taken from a document; the device reports its own.
//
// Control slots are merged by index. Slots past the end of a document's
// sequence keep their current binding. Button sequences are replaced.
// On error target is left unchanged.
func Merge(target *model.Configuration, doc *Document) error {
	if err := CheckDevice(doc, target); err != nil {
		return err
	}
	caps := target.Capabilities

	unsupported := func(key string) error {
		return fmt.Errorf("%w: %s", ErrUnsupportedField, key)
	}
	switch {
	case doc.LEDOn != nil && !caps.LED:
		return unsupported("ledOn")
	case doc.I2CLeader != nil && !caps.I2C:
		return unsupported("i2cLeader")
	case (doc.FaderMin != nil || doc.FaderMax != nil) && !caps.FaderCalibration:
		return unsupported("faderMin/faderMax")
	case doc.LEDFlashAccel != nil && !caps.LEDFlashAccel:
		return unsupported("ledFlashAccel")
	case doc.TRSMode != nil && !caps.TRSMode:
		return unsupported("trsMode")
	case (doc.USBButtons != nil || doc.TRSButtons != nil) && !caps.Buttons:
		return unsupported("usbButtonControls/trsButtonControls")
	case (doc.USBHighResolution != nil || doc.TRSHighResolution != nil) && !caps.HighResolution:
		return unsupported("usbHighResolution/trsHighResolution")
	}

	next := target.Clone()
	setBool(&next.LEDFlash, doc.LEDFlash)
	setBool(&next.ControllerFlip, doc.ControllerFlip)
	setBool(&next.MIDIThru, doc.MIDIThru)
	setBool(&next.LEDOn, doc.LEDOn)
	setBool(&next.I2CLeader, doc.I2CLeader)
	setBool(&next.LEDFlashAccel, doc.LEDFlashAccel)
	if doc.FaderMin != nil {
		next.FaderMin = *doc.FaderMin
	}
	if doc.FaderMax != nil {
		next.FaderMax = *doc.FaderMax
	}
	if doc.TRSMode != nil {
		next.TRSMode = *doc.TRSMode
	}

	var err error
	if next.USBControls, err = mergeControls(model.BusUSB, next.USBControls, doc.USBControls, doc.USBHighResolution, caps); err != nil {
		return err
	}
	if next.TRSControls, err = mergeControls(model.BusTRS, next.TRSControls, doc.TRSControls, doc.TRSHighResolution, caps); err != nil {
		return err
	}
	if doc.USBButtons != nil {
		if next.USBButtons, err = importButtons(model.BusUSB, doc.USBButtons); err != nil {
			return err
		}
	}
	if doc.TRSButtons != nil {
		if next.TRSButtons, err = importButtons(model.BusTRS, doc.TRSButtons); err != nil {
			return err
		}
	}

	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	*target = *next
	return nil
}

func mergeControls(bus model.Bus, target []*model.Control, in []*Control, flags []bool, caps model.Capabilities) ([]*model.Control, error) {
	if len(in) > model.MaxSlots || len(flags) > model.MaxSlots {
		return nil, fmt.Errorf("%w: %s has more than %d slots", ErrInvalidDocument, bus, model.MaxSlots)
	}
	n := max(len(target), len(in))
	out := make([]*model.Control, n)
	copy(out, target)

	for i, dc := range in {
		if dc == nil {
			out[i] = nil
			continue
		}
		c := &model.Control{Channel: dc.Channel, CC: dc.CC}
		if dc.HighResolution != nil {
			if *dc.HighResolution && !caps.HighResolution {
				return nil, fmt.Errorf("%w: %s control %d highResolution", ErrUnsupportedField, bus, i)
			}
			c.HighResolution = *dc.HighResolution
		}
		out[i] = c
	}
	for i, on := range flags {
		if i < len(out) && out[i] != nil {
			out[i].HighResolution = on
		}
	}
	return out, nil
}

func importButtons(bus model.Bus, in []*Button) ([]*model.ButtonControl, error) {
	out := make([]*model.ButtonControl, 0, len(in))
	for i, b := range in {
		if b == nil {
			continue
		}
		mb := &model.ButtonControl{
			Channel: b.Channel,
			Mode:    model.ButtonMode(b.Mode),
			ParamA:  b.ParamA,
			ParamB:  b.ParamB,
		}
		if b.Record != nil {
			if *b.Record < 0 || *b.Record >= model.MaxButtons {
				return nil, fmt.Errorf("%w: %s button %d record %d outside 0-%d",
					ErrInvalidDocument, bus, i, *b.Record, model.MaxButtons-1)
			}
			mb.Record = *b.Record
		}
		out = append(out, mb)
	}
	return out, nil
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func ptr[T any](v T) *T {
	return &v
}
