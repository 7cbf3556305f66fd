package codec

import (
	"errors"
	"fmt"

	"github.com/gridctl/gridctl-go/pkg/device"
	"github.com/gridctl/gridctl-go/pkg/model"
	"github.com/gridctl/gridctl-go/pkg/packing"
	"github.com/gridctl/gridctl-go/pkg/version"
)

// Codec errors.
var (
	// ErrBufferTooShort indicates a body shorter than its layout requires.
	ErrBufferTooShort = errors.New("buffer too short")

	// ErrOutOfRange indicates a value that does not fit its wire field.
	ErrOutOfRange = packing.ErrOutOfRange

	// ErrCapabilityMismatch indicates a configuration that uses a field the
	// device does not support at its firmware version.
	ErrCapabilityMismatch = errors.New("capability mismatch")
)

// Codec decodes and encodes one family's SysEx body.
type Codec interface {
	// Family returns the family this codec handles.
	Family() Family

	// Layout returns the family's byte map.
	Layout() *Layout

	// Capabilities resolves the optional fields the family carries for a
	// device at a firmware version.
	Capabilities(d *device.Descriptor, fw version.Firmware) model.Capabilities

	// Decode parses a body that starts at the device id byte.
	Decode(body []byte, d *device.Descriptor, deviceID uint8, firmware string) (*model.Configuration, error)

	// Encode produces a body that starts at the device id byte.
	Encode(cfg *model.Configuration, d *device.Descriptor) ([]byte, error)
}

// Family identifies a wire layout.
type Family uint8

// Supported families.
const (
	FamilySixteenN Family = iota
	FamilyEightMu
)

// String returns the family name.
func (f Family) String() string {
	switch f {
	case FamilySixteenN:
		return "16n"
	case FamilyEightMu:
		return "8mu"
	default:
		return fmt.Sprintf("Family(%d)", uint8(f))
	}
}

// FamilyFor maps a device name to its family. Names outside the catalog
// fall back to the 16n layout, which every early device shares.
func FamilyFor(name string) Family {
	switch name {
	case "8mu2040":
		return FamilyEightMu
	case "16n", "16n (LC)", "16nx", "16rx", "Oxion development board":
		return FamilySixteenN
	default:
		return FamilySixteenN
	}
}

var (
	sixteenN = &sixteenNCodec{}
	eightMu  = &eightMuCodec{}
)

// ForFamily returns the codec of a family.
func ForFamily(f Family) Codec {
	if f == FamilyEightMu {
		return eightMu
	}
	return sixteenN
}

// For returns the codec for a device. A nil descriptor gets the 16n codec.
func For(d *device.Descriptor) Codec {
	if d == nil {
		return sixteenN
	}
	return ForFamily(FamilyFor(d.Name))
}

// parseFirmware converts a firmware string and returns the capabilities a
// family resolves for it.
func parseFirmware(c Codec, d *device.Descriptor, firmware string) (version.Firmware, model.Capabilities, error) {
	fw, err := version.Parse(firmware)
	if err != nil {
		return version.Firmware{}, model.Capabilities{}, err
	}
	return fw, c.Capabilities(d, fw), nil
}

// firmwareBytes returns the three wire bytes of a firmware version.
func firmwareBytes(fw version.Firmware) ([3]byte, error) {
	b, err := fw.Bytes()
	if err != nil {
		return b, fmt.Errorf("%w: firmware %s: %v", ErrOutOfRange, fw, err)
	}
	return b, nil
}

// checkEncodable validates cfg against the capabilities resolved for the
// target device rather than whatever the configuration claims.
func checkEncodable(cfg *model.Configuration, caps model.Capabilities) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil configuration", model.ErrInvalidConfiguration)
	}
	if cfg.DeviceID > Sentinel {
		return fmt.Errorf("%w: device id %d", ErrOutOfRange, cfg.DeviceID)
	}
	if !caps.HighResolution {
		for _, bus := range []model.Bus{model.BusUSB, model.BusTRS} {
			for i, ctl := range cfg.Controls(bus) {
				if ctl != nil && ctl.HighResolution {
					return fmt.Errorf("%w: %s control %d is high-resolution, device does not support it",
						ErrCapabilityMismatch, bus, i)
				}
			}
		}
	}
	check := *cfg
	check.Capabilities = caps
	return check.Validate()
}

// decodeControls pairs a bus's channel and CC tables into slots. A slot with
// the sentinel in either byte is unbound.
func decodeControls(channels, ccs []byte) []*model.Control {
	controls := make([]*model.Control, model.MaxSlots)
	for i := range controls {
		ch, cc := channels[i], ccs[i]
		if ch == Sentinel || cc == Sentinel {
			continue
		}
		controls[i] = &model.Control{Channel: ch, CC: cc}
	}
	return controls
}

// encodeControls writes a bus's slots into channel and CC tables. Unbound
// and missing slots get the sentinel in both.
func encodeControls(bus model.Bus, controls []*model.Control) (channels, ccs []byte, err error) {
	channels = make([]byte, model.MaxSlots)
	ccs = make([]byte, model.MaxSlots)
	for i := range channels {
		channels[i], ccs[i] = Sentinel, Sentinel
	}
	for i, ctl := range controls {
		if ctl == nil {
			continue
		}
		if ctl.Channel >= Sentinel || ctl.CC >= Sentinel {
			return nil, nil, fmt.Errorf("%w: %s control %d channel %d cc %d",
				ErrOutOfRange, bus, i, ctl.Channel, ctl.CC)
		}
		channels[i], ccs[i] = ctl.Channel, ctl.CC
	}
	return channels, ccs, nil
}

// applyHighRes copies trailer flags onto bound slots.
func applyHighRes(controls []*model.Control, trailer []byte) {
	flags := packing.UnpackHighRes([packing.HighResBytes]byte(trailer))
	for i, ctl := range controls {
		if ctl != nil && i < len(flags) {
			ctl.HighResolution = flags[i]
		}
	}
}

// highResTrailer packs the per-control flags of a bus.
func highResTrailer(controls []*model.Control) []byte {
	var flags [packing.HighResFlags]bool
	for i, ctl := range controls {
		if ctl != nil && i < len(flags) {
			flags[i] = ctl.HighResolution
		}
	}
	b := packing.PackHighRes(flags)
	return b[:]
}
