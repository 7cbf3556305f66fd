package model

// Equivalent reports whether two configurations would program a device the
// same way. Runtime readings are ignored.
//
// Control sequences are compared slot by slot. A slot past the end of the
// shorter sequence counts as unbound, so trailing nil padding is ignored while
// a trailing bound control makes the configurations differ. Buttons are
// compared by the record they occupy.
func Equivalent(a, b *Configuration) bool {
	if a == nil || b == nil {
		return a == b
	}

	if a.DeviceID != b.DeviceID ||
		a.FirmwareVersion != b.FirmwareVersion ||
		a.LEDFlash != b.LEDFlash ||
		a.ControllerFlip != b.ControllerFlip ||
		a.MIDIThru != b.MIDIThru {
		return false
	}

	ca, cb := a.Capabilities, b.Capabilities
	if !optionalEqual(ca.LED, cb.LED, a.LEDOn == b.LEDOn) ||
		!optionalEqual(ca.I2C, cb.I2C, a.I2CLeader == b.I2CLeader) ||
		!optionalEqual(ca.FaderCalibration, cb.FaderCalibration,
			a.FaderMin == b.FaderMin && a.FaderMax == b.FaderMax) ||
		!optionalEqual(ca.LEDFlashAccel, cb.LEDFlashAccel, a.LEDFlashAccel == b.LEDFlashAccel) ||
		!optionalEqual(ca.TRSMode, cb.TRSMode, a.TRSMode == b.TRSMode) {
		return false
	}

	if !controlsEqual(a.USBControls, b.USBControls) ||
		!controlsEqual(a.TRSControls, b.TRSControls) {
		return false
	}

	if ca.Buttons || cb.Buttons {
		if ca.Buttons != cb.Buttons ||
			!buttonsEqual(a.USBButtons, b.USBButtons) ||
			!buttonsEqual(a.TRSButtons, b.TRSButtons) {
			return false
		}
	}
	return true
}

// optionalEqual applies the presence rule for an optional field: absent on
// both sides is equal, present on one side only is not.
func optionalEqual(presentA, presentB, valuesEqual bool) bool {
	if !presentA && !presentB {
		return true
	}
	return presentA == presentB && valuesEqual
}

func controlsEqual(a, b []*Control) bool {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		x, y := slot(a, i), slot(b, i)
		if x == nil || y == nil {
			if x != y {
				return false
			}
			continue
		}
		if x.Channel != y.Channel || x.CC != y.CC || x.HighResolution != y.HighResolution {
			return false
		}
	}
	return true
}

// buttonsEqual compares buttons by the record they are written to.
func buttonsEqual(a, b []*ButtonControl) bool {
	ra, rb := ButtonRecords(a), ButtonRecords(b)
	for i := range ra {
		x, y := ra[i], rb[i]
		if x == nil || y == nil {
			if x != y {
				return false
			}
			continue
		}
		if x.Channel != y.Channel || x.Mode != y.Mode || x.ParamA != y.ParamA || x.ParamB != y.ParamB {
			return false
		}
	}
	return true
}

func slot(controls []*Control, i int) *Control {
	if i < len(controls) {
		return controls[i]
	}
	return nil
}
