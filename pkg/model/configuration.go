package model

import (
	"errors"
	"fmt"
)

// Configuration errors.
var (
	// ErrInvalidConfiguration indicates a configuration that violates a model
	// invariant and cannot be encoded.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// MaxFader is the largest fader calibration bound (14-bit).
const MaxFader = 0x3FFF

// Capabilities declares which optional configuration fields are present.
//
// It is resolved from the device catalog and firmware version when a
// configuration is decoded and travels with the configuration, so encoders
// and comparisons branch on a declared set instead of guessing from values.
type Capabilities struct {
	LED              bool // LEDOn
	I2C              bool // I2CLeader
	FaderCalibration bool // FaderMin, FaderMax
	HighResolution   bool // per-control HighResolution, bus flag arrays
	LEDFlashAccel    bool // LEDFlashAccel
	TRSMode          bool // TRSMode
	Banks            bool // CurrentBank
	Buttons          bool // USBButtons, TRSButtons
}

// Configuration is the full controller state.
type Configuration struct {
	// Universal fields.
	DeviceID        uint8
	FirmwareVersion string
	LEDFlash        bool
	ControllerFlip  bool
	MIDIThru        bool
	USBControls     []*Control
	TRSControls     []*Control

	// Capabilities declares which of the fields below are meaningful.
	Capabilities Capabilities

	LEDOn         bool
	I2CLeader     bool
	FaderMin      int
	FaderMax      int
	LEDFlashAccel bool
	TRSMode       uint8
	CurrentBank   uint8
	USBButtons    []*ButtonControl
	TRSButtons    []*ButtonControl
}

// Controls returns the control sequence of a bus.
func (c *Configuration) Controls(bus Bus) []*Control {
	if bus == BusTRS {
		return c.TRSControls
	}
	return c.USBControls
}

// Buttons returns the button sequence of a bus.
func (c *Configuration) Buttons(bus Bus) []*ButtonControl {
	if bus == BusTRS {
		return c.TRSButtons
	}
	return c.USBButtons
}

// HighResFlags returns the per-slot high-resolution flags of a bus, or nil
// when the configuration lacks the HighResolution capability.
func (c *Configuration) HighResFlags(bus Bus) []bool {
	if !c.Capabilities.HighResolution {
		return nil
	}
	flags := make([]bool, MaxSlots)
	for i, ctl := range c.Controls(bus) {
		if i >= MaxSlots {
			break
		}
		if ctl != nil {
			flags[i] = ctl.HighResolution
		}
	}
	return flags
}

// Validate checks the invariants an encoder relies on.
func (c *Configuration) Validate() error {
	for _, bus := range []Bus{BusUSB, BusTRS} {
		controls := c.Controls(bus)
		if len(controls) > MaxSlots {
			return fmt.Errorf("%w: %s bus has %d controls, max %d",
				ErrInvalidConfiguration, bus, len(controls), MaxSlots)
		}
		for i, ctl := range controls {
			if ctl != nil && ctl.HighResolution && !c.Capabilities.HighResolution {
				return fmt.Errorf("%w: %s control %d is high-resolution without the capability",
					ErrInvalidConfiguration, bus, i)
			}
		}
		if n := len(c.Buttons(bus)); n > MaxButtons {
			return fmt.Errorf("%w: %s bus has %d buttons, max %d",
				ErrInvalidConfiguration, bus, n, MaxButtons)
		}
	}

	if c.Capabilities.FaderCalibration {
		if c.FaderMin < 0 || c.FaderMax > MaxFader || c.FaderMin > c.FaderMax {
			return fmt.Errorf("%w: fader range [%d, %d] outside 0 <= min <= max <= %d",
				ErrInvalidConfiguration, c.FaderMin, c.FaderMax, MaxFader)
		}
	}
	return nil
}

// Clone returns a deep copy suitable for editing.
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return nil
	}
	out := *c
	out.USBControls = cloneControls(c.USBControls)
	out.TRSControls = cloneControls(c.TRSControls)
	out.USBButtons = cloneButtons(c.USBButtons)
	out.TRSButtons = cloneButtons(c.TRSButtons)
	return &out
}

// PresentControls returns the number of bound slots on a bus.
func (c *Configuration) PresentControls(bus Bus) int {
	n := 0
	for _, ctl := range c.Controls(bus) {
		if ctl != nil {
			n++
		}
	}
	return n
}

// TrimControls drops wire padding past count slots on both buses and clears
// runtime readings.
func (c *Configuration) TrimControls(count int) {
	c.USBControls = trim(c.USBControls, count)
	c.TRSControls = trim(c.TRSControls, count)
	for _, ctl := range append(append([]*Control{}, c.USBControls...), c.TRSControls...) {
		if ctl != nil {
			ctl.Value, ctl.MSB, ctl.LSB, ctl.SeenMSB = 0, 0, 0, false
		}
	}
}

func trim(controls []*Control, count int) []*Control {
	if count < 0 || len(controls) <= count {
		return controls
	}
	return controls[:count]
}

func cloneControls(in []*Control) []*Control {
	if in == nil {
		return nil
	}
	out := make([]*Control, len(in))
	for i, ctl := range in {
		if ctl != nil {
			cp := *ctl
			out[i] = &cp
		}
	}
	return out
}

func cloneButtons(in []*ButtonControl) []*ButtonControl {
	if in == nil {
		return nil
	}
	out := make([]*ButtonControl, len(in))
	for i, b := range in {
		if b != nil {
			cp := *b
			out[i] = &cp
		}
	}
	return out
}
