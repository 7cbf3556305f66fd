package device

import (
	"github.com/gridctl/gridctl-go/pkg/model"
	"github.com/gridctl/gridctl-go/pkg/version"
)

// HasCapability reports whether device d running firmware fw has capability c.
//
// A nil descriptor is indeterminate and reported as false. A capability the
// descriptor does not list is false.
func HasCapability(d *Descriptor, c Capability, fw version.Firmware) bool {
	if d == nil {
		return false
	}
	req, ok := d.Capabilities[c]
	if !ok {
		return false
	}
	return req.Met(fw)
}

// Resolve evaluates every capability of d for firmware fw.
func Resolve(d *Descriptor, fw version.Firmware) model.Capabilities {
	if d == nil {
		return model.Capabilities{}
	}
	return model.Capabilities{
		LED:              HasCapability(d, CapLED, fw),
		I2C:              HasCapability(d, CapI2C, fw),
		FaderCalibration: HasCapability(d, CapFaderCalibration, fw),
		HighResolution:   HasCapability(d, CapHighResolution, fw),
		LEDFlashAccel:    HasCapability(d, CapLED8mu, fw),
		TRSMode:          HasCapability(d, CapSoftwareTRSToggle, fw),
		Banks:            HasCapability(d, CapBanks, fw),
		Buttons:          d.ButtonCount > 0,
	}
}

// HasCapabilityAt is HasCapability for a firmware version string as carried
// in a configuration.
func HasCapabilityAt(d *Descriptor, c Capability, firmware string) (bool, error) {
	fw, err := version.Parse(firmware)
	if err != nil {
		return false, err
	}
	return HasCapability(d, c, fw), nil
}
