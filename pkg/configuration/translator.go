// Package configuration resolves a device from its id and dispatches to the
// family codec. It is the entry point for turning config dumps into
// configurations and configurations into update payloads.
package configuration

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gridctl/gridctl-go/pkg/codec"
	"github.com/gridctl/gridctl-go/pkg/device"
	"github.com/gridctl/gridctl-go/pkg/model"
	"github.com/gridctl/gridctl-go/pkg/sysex"
	"github.com/gridctl/gridctl-go/pkg/version"
)

// ErrUnknownDevice indicates a device id missing from the catalog.
var ErrUnknownDevice = errors.New("unknown device")

// headerLength is the device id plus three firmware bytes.
const headerLength = 4

// Config configures a Translator.
type Config struct {
	// Catalog resolves device ids. Defaults to the embedded catalog.
	Catalog *device.Catalog

	// UnknownDeviceFallback treats ids missing from the catalog as a
	// capability-free 16-slot 16n instead of failing.
	UnknownDeviceFallback bool

	// Logger receives operational messages. Defaults to slog.Default().
	Logger *slog.Logger
}

// Translator converts between wire messages and configurations.
type Translator struct {
	catalog  *device.Catalog
	fallback bool
	logger   *slog.Logger
}

// NewTranslator creates a translator.
func NewTranslator(cfg Config) *Translator {
	t := &Translator{
		catalog:  cfg.Catalog,
		fallback: cfg.UnknownDeviceFallback,
		logger:   cfg.Logger,
	}
	if t.catalog == nil {
		t.catalog = device.Default()
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// Catalog returns the catalog used for lookups.
func (t *Translator) Catalog() *device.Catalog {
	return t.catalog
}

// Descriptor resolves a device id.
func (t *Translator) Descriptor(id uint8) (*device.Descriptor, error) {
	d, err := t.catalog.ByID(id)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, device.ErrNotFound) {
		return nil, err
	}
	if !t.fallback {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownDevice, id)
	}

	t.logger.Warn("unknown device id, decoding as generic 16n", "deviceId", id)
	return &device.Descriptor{
		ID:           id,
		Name:         fmt.Sprintf("unknown device %d", id),
		ControlCount: model.MaxSlots,
		Capabilities: map[device.Capability]device.Requirement{},
	}, nil
}

// Decode parses a complete config dump message, F0 through F7.
func (t *Translator) Decode(msg []byte) (*model.Configuration, error) {
	if len(msg) > 0 && msg[len(msg)-1] == sysex.End {
		msg = msg[:len(msg)-1]
	}
	if len(msg) < sysex.PrefixLength+headerLength {
		return nil, fmt.Errorf("%w: message is %d bytes, need %d",
			codec.ErrBufferTooShort, len(msg), sysex.PrefixLength+headerLength)
	}
	return t.DecodeBody(msg[sysex.PrefixLength:])
}

// DecodeBody parses a config dump body that starts at the device id.
func (t *Translator) DecodeBody(body []byte) (*model.Configuration, error) {
	if len(body) < headerLength {
		return nil, fmt.Errorf("%w: body is %d bytes, need %d",
			codec.ErrBufferTooShort, len(body), headerLength)
	}

	id := body[0]
	fw := version.FromBytes(body[1], body[2], body[3])
	d, err := t.Descriptor(id)
	if err != nil {
		return nil, err
	}

	c := codec.For(d)
	cfg, err := c.Decode(body, d, id, fw.String())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.Name, err)
	}
	t.logger.Debug("decoded configuration",
		"device", d.Name, "family", c.Family().String(), "firmware", fw.String())
	return cfg, nil
}

// Blank returns an empty configuration for a device at the given firmware:
// capabilities resolved, every control slot unbound, faders uncalibrated.
// Documents are merged onto it when no device is connected.
func (t *Translator) Blank(id uint8, firmware string) (*model.Configuration, error) {
	fw, err := version.Parse(firmware)
	if err != nil {
		return nil, err
	}
	d, err := t.Descriptor(id)
	if err != nil {
		return nil, err
	}

	cfg := &model.Configuration{
		DeviceID:        id,
		FirmwareVersion: fw.String(),
		USBControls:     make([]*model.Control, d.ControlCount),
		TRSControls:     make([]*model.Control, d.ControlCount),
		Capabilities:    codec.For(d).Capabilities(d, fw),
	}
	if cfg.Capabilities.FaderCalibration {
		cfg.FaderMax = model.MaxFader
	}
	return cfg, nil
}

// Encode produces the full configuration body for an update message.
func (t *Translator) Encode(cfg *model.Configuration) ([]byte, error) {
	body, _, err := t.encode(cfg)
	return body, err
}

// DeviceOptions returns the device-options range of the encoded body.
func (t *Translator) DeviceOptions(cfg *model.Configuration) ([]byte, error) {
	body, c, err := t.encode(cfg)
	if err != nil {
		return nil, err
	}
	return c.Layout().ExtractSpan(body, c.Layout().DeviceOptions)
}

// USBOptions returns the USB bus range of the encoded body.
func (t *Translator) USBOptions(cfg *model.Configuration) ([]byte, error) {
	body, c, err := t.encode(cfg)
	if err != nil {
		return nil, err
	}
	return c.Layout().Extract(body, c.Layout().USBOptions...)
}

// TRSOptions returns the TRS bus range of the encoded body.
func (t *Translator) TRSOptions(cfg *model.Configuration) ([]byte, error) {
	body, c, err := t.encode(cfg)
	if err != nil {
		return nil, err
	}
	return c.Layout().Extract(body, c.Layout().TRSOptions...)
}

func (t *Translator) encode(cfg *model.Configuration) ([]byte, codec.Codec, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("%w: nil configuration", model.ErrInvalidConfiguration)
	}
	d, err := t.Descriptor(cfg.DeviceID)
	if err != nil {
		return nil, nil, err
	}
	c := codec.For(d)
	body, err := c.Encode(cfg, d)
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s: %w", d.Name, err)
	}
	return body, c, nil
}
