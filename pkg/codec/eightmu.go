package codec

import (
	"fmt"

	"github.com/gridctl/gridctl-go/pkg/device"
	"github.com/gridctl/gridctl-go/pkg/model"
	"github.com/gridctl/gridctl-go/pkg/version"
)

// buttonRecord is the width of one button record: channel, mode, paramA,
// paramB.
const buttonRecord = 4

var eightMuLayout = &Layout{
	Family:    FamilyEightMu,
	MinLength: 116,
	Fields: map[Field]Span{
		FieldDeviceID:      {0, 1},
		FieldFirmware:      {1, 3},
		FieldLEDFlash:      {4, 1},
		FieldLEDFlashAccel: {5, 1},
		FieldFlip:          {6, 1},
		FieldMIDIThru:      {11, 1},
		FieldTRSMode:       {12, 1},
		FieldCurrentBank:   {19, 1},
		FieldUSBChannels:   {20, 16},
		FieldTRSChannels:   {36, 16},
		FieldUSBCCs:        {52, 16},
		FieldTRSCCs:        {68, 16},
		FieldUSBButtons:    {84, model.MaxButtons * buttonRecord},
		FieldTRSButtons:    {100, model.MaxButtons * buttonRecord},
	},
	DeviceOptions: Span{4, 16},
	USBOptions:    []Field{FieldUSBChannels, FieldUSBCCs, FieldUSBButtons},
	TRSOptions:    []Field{FieldTRSChannels, FieldTRSCCs, FieldTRSButtons},
}

type eightMuCodec struct{}

func (*eightMuCodec) Family() Family  { return FamilyEightMu }
func (*eightMuCodec) Layout() *Layout { return eightMuLayout }

func (*eightMuCodec) Capabilities(d *device.Descriptor, fw version.Firmware) model.Capabilities {
	all := device.Resolve(d, fw)
	return model.Capabilities{
		LEDFlashAccel: all.LEDFlashAccel,
		TRSMode:       all.TRSMode,
		Banks:         all.Banks,
		Buttons:       all.Buttons,
	}
}

func (c *eightMuCodec) Decode(body []byte, d *device.Descriptor, deviceID uint8, firmware string) (*model.Configuration, error) {
	fw, caps, err := parseFirmware(c, d, firmware)
	if err != nil {
		return nil, err
	}
	if len(body) < eightMuLayout.MinLength {
		return nil, fmt.Errorf("%w: 8mu body is %d bytes, need %d",
			ErrBufferTooShort, len(body), eightMuLayout.MinLength)
	}

	r := reader{layout: eightMuLayout, body: body}
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

	if caps.LEDFlashAccel {
		cfg.LEDFlashAccel = r.flag(FieldLEDFlashAccel)
	}
	if caps.TRSMode {
		cfg.TRSMode = r.byte(FieldTRSMode)
	}
	if caps.Banks {
		cfg.CurrentBank = r.byte(FieldCurrentBank)
	}
	if caps.Buttons {
		count := 0
		if d != nil {
			count = d.ButtonCount
		}
		cfg.USBButtons = decodeButtons(r.get(FieldUSBButtons), count)
		cfg.TRSButtons = decodeButtons(r.get(FieldTRSButtons), count)
	}
	return cfg, nil
}

func (c *eightMuCodec) Encode(cfg *model.Configuration, d *device.Descriptor) ([]byte, error) {
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

	w := newWriter(eightMuLayout, eightMuLayout.MinLength)
	w.put(FieldDeviceID, cfg.DeviceID)
	w.put(FieldFirmware, fwBytes[:]...)
	w.flag(FieldLEDFlash, cfg.LEDFlash)
	// Acceleration is fixed off when writing; the current bank is device
	// state and is never written.
	w.put(FieldLEDFlashAccel, 0)
	w.flag(FieldFlip, cfg.ControllerFlip)
	w.flag(FieldMIDIThru, cfg.MIDIThru)
	if caps.TRSMode {
		w.put(FieldTRSMode, cfg.TRSMode)
	}

	for _, bus := range []struct {
		bus                    model.Bus
		channels, ccs, buttons Field
	}{
		{model.BusUSB, FieldUSBChannels, FieldUSBCCs, FieldUSBButtons},
		{model.BusTRS, FieldTRSChannels, FieldTRSCCs, FieldTRSButtons},
	} {
		channels, ccs, err := encodeControls(bus.bus, cfg.Controls(bus.bus))
		if err != nil {
			return nil, err
		}
		w.put(bus.channels, channels...)
		w.put(bus.ccs, ccs...)

		var buttons []*model.ButtonControl
		if caps.Buttons {
			buttons = cfg.Buttons(bus.bus)
		}
		records, err := encodeButtons(bus.bus, buttons)
		if err != nil {
			return nil, err
		}
		w.put(bus.buttons, records...)
	}
	return w.bytes()
}

// decodeButtons reads up to count records. Records with the sentinel
// channel are skipped, so the result is compacted; each button keeps its
// record index in Record.
func decodeButtons(records []byte, count int) []*model.ButtonControl {
	n := min(count, model.MaxButtons)
	buttons := make([]*model.ButtonControl, 0, n)
	for i := 0; i < n; i++ {
		rec := records[i*buttonRecord : (i+1)*buttonRecord]
		if rec[0] == Sentinel {
			continue
		}
		buttons = append(buttons, &model.ButtonControl{
			Channel: rec[0],
			Mode:    model.ButtonMode(rec[1]),
			ParamA:  rec[2],
			ParamB:  rec[3],
			Record:  i,
		})
	}
	return buttons
}

// encodeButtons writes all records of a bus, each button at the record
// model.PlaceButtons assigns. Records no button occupies get the sentinel
// channel.
func encodeButtons(bus model.Bus, buttons []*model.ButtonControl) ([]byte, error) {
	out := make([]byte, model.MaxButtons*buttonRecord)
	for i := 0; i < model.MaxButtons; i++ {
		out[i*buttonRecord] = Sentinel
	}
	for i, r := range model.PlaceButtons(buttons) {
		b := buttons[i]
		if b == nil {
			continue
		}
		if r < 0 {
			return nil, fmt.Errorf("%w: %s button %d has no free record", ErrOutOfRange, bus, i)
		}
		if b.Channel >= Sentinel || b.Mode > Sentinel || b.ParamA > Sentinel || b.ParamB > Sentinel {
			return nil, fmt.Errorf("%w: %s button %d", ErrOutOfRange, bus, i)
		}
		copy(out[r*buttonRecord:], []byte{b.Channel, byte(b.Mode), b.ParamA, b.ParamB})
	}
	return out, nil
}
