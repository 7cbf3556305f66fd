package codec

import (
	"fmt"

	"github.com/gridctl/gridctl-go/pkg/device"
	"github.com/gridctl/gridctl-go/pkg/model"
	"github.com/gridctl/gridctl-go/pkg/packing"
	"github.com/gridctl/gridctl-go/pkg/version"
)

var sixteenNLayout = &Layout{
	Family:    FamilySixteenN,
	MinLength: 84,
	Fields: map[Field]Span{
		FieldDeviceID:    {0, 1},
		FieldFirmware:    {1, 3},
		FieldLEDOn:       {4, 1},
		FieldLEDFlash:    {5, 1},
		FieldFlip:        {6, 1},
		FieldI2CLeader:   {7, 1},
		FieldFaderMin:    {8, 2},
		FieldFaderMax:    {10, 2},
		FieldMIDIThru:    {12, 1},
		FieldUSBChannels: {20, 16},
		FieldTRSChannels: {36, 16},
		FieldUSBCCs:      {52, 16},
		FieldTRSCCs:      {68, 16},
		FieldUSBHighRes:  {84, 3},
		FieldTRSHighRes:  {87, 3},
	},
	DeviceOptions: Span{4, 16},
	USBOptions:    []Field{FieldUSBChannels, FieldUSBCCs},
	TRSOptions:    []Field{FieldTRSChannels, FieldTRSCCs},
}

type sixteenNCodec struct{}

func (*sixteenNCodec) Family() Family  { return FamilySixteenN }
func (*sixteenNCodec) Layout() *Layout { return sixteenNLayout }

func (*sixteenNCodec) Capabilities(d *device.Descriptor, fw version.Firmware) model.Capabilities {
	all := device.Resolve(d, fw)
	return model.Capabilities{
		LED:              all.LED,
		I2C:              all.I2C,
		FaderCalibration: all.FaderCalibration,
		HighResolution:   all.HighResolution,
	}
}

// bodyLength is the encoded length for a capability set.
func (*sixteenNCodec) bodyLength(caps model.Capabilities) int {
	if caps.HighResolution {
		return sixteenNLayout.Span(FieldTRSHighRes).End()
	}
	return sixteenNLayout.MinLength
}

func (c *sixteenNCodec) Decode(body []byte, d *device.Descriptor, deviceID uint8, firmware string) (*model.Configuration, error) {
	fw, caps, err := parseFirmware(c, d, firmware)
	if err != nil {
		return nil, err
	}
	if need := c.bodyLength(caps); len(body) < need {
		return nil, fmt.Errorf("%w: 16n body is %d bytes, need %d", ErrBufferTooShort, len(body), need)
	}

	r := reader{layout: sixteenNLayout, body: body}
	cfg := &model.Configuration{
		DeviceID:        deviceID,
		FirmwareVersion: fw.String(),
		LEDFlash:        r.flag(FieldLEDFlash),
		ControllerFlip:  r.flag(FieldFlip),
		MIDIThru:        r.flag(FieldMIDIThru),
		USBControls:     decodeControls(r.get(FieldUSBChannels), r.get(FieldUSBCCs)),
		TRSControls:     decodeControls(r.get(FieldTRSChannels), r.get(FieldTRSCCs)),
		Capabilities:    caps,
	}

	if caps.LED {
		cfg.LEDOn = r.flag(FieldLEDOn)
	}
	if caps.I2C {
		cfg.I2CLeader = r.flag(FieldI2CLeader)
	}
	if caps.FaderCalibration {
		lo, hi := r.get(FieldFaderMin), r.get(FieldFaderMax)
		cfg.FaderMin = packing.Combine14(lo[0], lo[1])
		cfg.FaderMax = packing.Combine14(hi[0], hi[1])
	}
	if caps.HighResolution {
		applyHighRes(cfg.USBControls, r.get(FieldUSBHighRes))
		applyHighRes(cfg.TRSControls, r.get(FieldTRSHighRes))
	}
	return cfg, nil
}

func (c *sixteenNCodec) Encode(cfg *model.Configuration, d *device.Descriptor) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil configuration", model.ErrInvalidConfiguration)
	}
	fw, caps, err := parseFirmware(c, d, cfg.FirmwareVersion)
	if err != nil {
		return nil, err
	}
	if err := checkEncodable(cfg, caps); err != nil {
		return nil, err
	}
	fwBytes, err := firmwareBytes(fw)
	if err != nil {
		return nil, err
	}

	w := newWriter(sixteenNLayout, c.bodyLength(caps))
	w.put(FieldDeviceID, cfg.DeviceID)
	w.put(FieldFirmware, fwBytes[:]...)
	w.flag(FieldLEDFlash, cfg.LEDFlash)
	w.flag(FieldFlip, cfg.ControllerFlip)
	w.flag(FieldMIDIThru, cfg.MIDIThru)

	if caps.LED {
		w.flag(FieldLEDOn, cfg.LEDOn)
	}
	if caps.I2C {
		w.flag(FieldI2CLeader, cfg.I2CLeader)
	}
	if caps.FaderCalibration {
		putFader(w, FieldFaderMin, cfg.FaderMin)
		putFader(w, FieldFaderMax, cfg.FaderMax)
	}

	for _, bus := range []struct {
		bus           model.Bus
		channels, ccs Field
		highRes       Field
	}{
		{model.BusUSB, FieldUSBChannels, FieldUSBCCs, FieldUSBHighRes},
		{model.BusTRS, FieldTRSChannels, FieldTRSCCs, FieldTRSHighRes},
	} {
		controls := cfg.Controls(bus.bus)
		channels, ccs, err := encodeControls(bus.bus, controls)
		if err != nil {
			return nil, err
		}
		w.put(bus.channels, channels...)
		w.put(bus.ccs, ccs...)
		if caps.HighResolution {
			w.put(bus.highRes, highResTrailer(controls)...)
		}
	}
	return w.bytes()
}

func putFader(w *writer, f Field, value int) {
	lsb, msb, err := packing.Split14(value)
	if err != nil {
		w.fail(fmt.Errorf("%s: %w", f, err))
		return
	}
	w.put(f, lsb, msb)
}
