package device

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/gridctl/gridctl-go/pkg/model"
	"github.com/gridctl/gridctl-go/pkg/version"
)

// Capability names an optional device feature.
type Capability string

// Known capabilities.
const (
	CapLED               Capability = "led"
	CapLED8mu            Capability = "8muLed"
	CapMIDIThru          Capability = "midiThru"
	CapSoftwareTRSToggle Capability = "softwareTrsToggle"
	CapI2C               Capability = "i2c"
	CapFaderCalibration  Capability = "faderCalibration"
	CapHighResolution    Capability = "highResolution"
	CapBanks             Capability = "banks"
)

var knownCapabilities = map[Capability]bool{
	CapLED: true, CapLED8mu: true, CapMIDIThru: true, CapSoftwareTRSToggle: true,
	CapI2C: true, CapFaderCalibration: true, CapHighResolution: true, CapBanks: true,
}

// Requirement is the condition under which a capability is available:
// always, never, or from a minimum firmware version on.
type Requirement struct {
	// Enabled is the fixed answer when MinFirmware is nil.
	Enabled bool

	// MinFirmware gates the capability on the device firmware version.
	MinFirmware *version.Firmware
}

// Always returns a requirement that is unconditionally met.
func Always() Requirement { return Requirement{Enabled: true} }

// Never returns a requirement that is never met.
func Never() Requirement { return Requirement{} }

// Since returns a requirement met by firmware v and later.
func Since(v version.Firmware) Requirement { return Requirement{MinFirmware: &v} }

// Met reports whether firmware fw satisfies the requirement.
func (r Requirement) Met(fw version.Firmware) bool {
	if r.MinFirmware != nil {
		return fw.AtLeast(*r.MinFirmware)
	}
	return r.Enabled
}

// String returns "true", "false" or ">= x.y.z".
func (r Requirement) String() string {
	if r.MinFirmware != nil {
		return ">= " + r.MinFirmware.String()
	}
	return fmt.Sprint(r.Enabled)
}

// UnmarshalYAML accepts a boolean or a firmware version string.
func (r *Requirement) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: capability requirement must be a scalar", node.Line)
	}
	if node.Tag == "!!bool" {
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*r = Requirement{Enabled: b}
		return nil
	}
	v, err := version.Parse(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*r = Since(v)
	return nil
}

// MarshalYAML writes the requirement back in catalog form.
func (r Requirement) MarshalYAML() (any, error) {
	if r.MinFirmware != nil {
		return r.MinFirmware.String(), nil
	}
	return r.Enabled, nil
}

// Descriptor is a static catalog entry for one controller model.
type Descriptor struct {
	ID           uint8                      `yaml:"id"`
	Name         string                     `yaml:"name"`
	ControlCount int                        `yaml:"control_count"`
	ButtonCount  int                        `yaml:"button_count,omitempty"`
	Capabilities map[Capability]Requirement `yaml:"capabilities"`

	// SendShortMessages asks editors to transmit device and bus options as
	// separate updates rather than one full configuration.
	SendShortMessages bool `yaml:"send_short_messages,omitempty"`

	LatestFirmware string   `yaml:"latest_firmware,omitempty"`
	FirmwareURL    string   `yaml:"firmware_url,omitempty"`
	ControlLabels  []string `yaml:"control_labels,omitempty"`
	ButtonLabels   []string `yaml:"button_labels,omitempty"`
}

// ControlLabel returns the label for a control slot, falling back to its
// 1-based number.
func (d *Descriptor) ControlLabel(slot int) string {
	if slot >= 0 && slot < len(d.ControlLabels) {
		return d.ControlLabels[slot]
	}
	return fmt.Sprint(slot + 1)
}

// NeedsUpdate reports whether fw is older than the latest known firmware.
func (d *Descriptor) NeedsUpdate(fw version.Firmware) bool {
	if d.LatestFirmware == "" {
		return false
	}
	latest, err := version.Parse(d.LatestFirmware)
	if err != nil {
		return false
	}
	return !fw.AtLeast(latest)
}

func (d *Descriptor) validate() error {
	if d.Name == "" {
		return fmt.Errorf("device %d: missing name", d.ID)
	}
	if d.ControlCount < 0 || d.ControlCount > model.MaxSlots {
		return fmt.Errorf("device %q: control_count %d outside 0..%d", d.Name, d.ControlCount, model.MaxSlots)
	}
	if d.ButtonCount < 0 || d.ButtonCount > model.MaxButtons {
		return fmt.Errorf("device %q: button_count %d outside 0..%d", d.Name, d.ButtonCount, model.MaxButtons)
	}
	for c := range d.Capabilities {
		if !knownCapabilities[c] {
			return fmt.Errorf("device %q: unknown capability %q", d.Name, c)
		}
	}
	return nil
}
