package interactive

import (
	"fmt"
	"text/tabwriter"

	"github.com/gridctl/gridctl-go/pkg/model"
	"github.com/gridctl/gridctl-go/pkg/version"
)

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// printConfiguration writes a configuration as a settings list followed by
// one table row per control slot.
func (s *Shell) printConfiguration(cfg *model.Configuration) {
	d, err := s.translator.Descriptor(cfg.DeviceID)
	if err != nil {
		fmt.Fprintf(s.out, "Device %d (%v)\n", cfg.DeviceID, err)
		return
	}

	fmt.Fprintf(s.out, "%s (id %d), firmware %s", d.Name, cfg.DeviceID, cfg.FirmwareVersion)
	if fw, err := version.Parse(cfg.FirmwareVersion); err == nil && d.NeedsUpdate(fw) {
		fmt.Fprintf(s.out, " (update to %s available", d.LatestFirmware)
		if d.FirmwareURL != "" {
			fmt.Fprintf(s.out, " at %s", d.FirmwareURL)
		}
		fmt.Fprint(s.out, ")")
	}
	fmt.Fprintln(s.out)

	caps := cfg.Capabilities
	fmt.Fprintf(s.out, "  ledFlash: %s  flip: %s  midiThru: %s\n",
		onOff(cfg.LEDFlash), onOff(cfg.ControllerFlip), onOff(cfg.MIDIThru))
	if caps.LED {
		fmt.Fprintf(s.out, "  ledOn: %s\n", onOff(cfg.LEDOn))
	}
	if caps.LEDFlashAccel {
		fmt.Fprintf(s.out, "  ledFlashAccel: %s\n", onOff(cfg.LEDFlashAccel))
	}
	if caps.I2C {
		fmt.Fprintf(s.out, "  i2cLeader: %s\n", onOff(cfg.I2CLeader))
	}
	if caps.FaderCalibration {
		fmt.Fprintf(s.out, "  faders: %d-%d\n", cfg.FaderMin, cfg.FaderMax)
	}
	if caps.TRSMode {
		fmt.Fprintf(s.out, "  trsMode: %d\n", cfg.TRSMode)
	}
	if caps.Banks {
		fmt.Fprintf(s.out, "  bank: %d\n", cfg.CurrentBank+1)
	}

	count := d.ControlCount
	if count <= 0 {
		count = model.MaxSlots
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\n  SLOT\tLABEL\tUSB\tTRS\tVALUE")
	for i := 0; i < count; i++ {
		value := "-"
		if c := slotControl(cfg.USBControls, i); c != nil && (c.SeenMSB || c.Value != 0) {
			value = fmt.Sprint(c.Value)
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\n", i+1, d.ControlLabel(i),
			formatControl(slotControl(cfg.USBControls, i)),
			formatControl(slotControl(cfg.TRSControls, i)), value)
	}
	tw.Flush()

	if caps.Buttons {
		for _, bus := range []model.Bus{model.BusUSB, model.BusTRS} {
			for i, b := range model.ButtonRecords(cfg.Buttons(bus)) {
				if b == nil {
					continue
				}
				fmt.Fprintf(s.out, "  %s button %d: ch %d %s", bus, i+1, b.Channel, b.Mode)
				if b.Mode == model.ButtonModeNote {
					fmt.Fprintf(s.out, " %s vel %d", model.NoteName(b.ParamA), b.ParamB)
				} else {
					fmt.Fprintf(s.out, " cc %d val %d", b.ParamA, b.ParamB)
				}
				if b.Pressed {
					fmt.Fprint(s.out, " [pressed]")
				}
				fmt.Fprintln(s.out)
			}
		}
	}
}

func slotControl(controls []*model.Control, i int) *model.Control {
	if i < len(controls) {
		return controls[i]
	}
	return nil
}

func formatControl(c *model.Control) string {
	if c == nil {
		return "off"
	}
	s := fmt.Sprintf("ch%d cc%d", c.Channel, c.CC)
	if c.HighResolution {
		s += " 14bit"
	}
	return s
}
