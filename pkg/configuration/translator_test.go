package configuration

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridctl/gridctl-go/pkg/codec"
	"github.com/gridctl/gridctl-go/pkg/model"
	"github.com/gridctl/gridctl-go/pkg/sysex"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// dump16n builds a config dump for a 16n at firmware 2.1.0.
func dump16n(id byte) []byte {
	body := make([]byte, 90)
	body[0] = id
	body[1], body[2], body[3] = 2, 1, 0
	body[5] = 1
	body[10], body[11] = 0x7F, 0x7F
	for i := 0; i < 16; i++ {
		body[36+i] = 1
		body[52+i] = byte(32 + i)
		body[68+i] = byte(32 + i)
	}
	body[84] = 0x01
	msg, err := sysex.Frame(sysex.CmdConfigDump, body)
	if err != nil {
		panic(err)
	}
	return msg
}

func TestTranslator_Decode(t *testing.T) {
	tr := NewTranslator(Config{Logger: quietLogger()})

	cfg, err := tr.Decode(dump16n(2))
	require.NoError(t, err)

	assert.Equal(t, uint8(2), cfg.DeviceID)
	assert.Equal(t, "2.1.0", cfg.FirmwareVersion)
	assert.True(t, cfg.LEDFlash)
	assert.Equal(t, 16383, cfg.FaderMax)
	assert.True(t, cfg.Capabilities.HighResolution)
	assert.True(t, cfg.USBControls[0].HighResolution)
	assert.Equal(t, uint8(1), cfg.TRSControls[0].Channel)
}

func TestTranslator_RoundTrip(t *testing.T) {
	tr := NewTranslator(Config{Logger: quietLogger()})
	msg := dump16n(2)

	cfg, err := tr.Decode(msg)
	require.NoError(t, err)

	body, err := tr.Encode(cfg)
	require.NoError(t, err)
	assert.Equal(t, msg[sysex.PrefixLength:len(msg)-1], body)
}

func TestTranslator_DecodeTooShort(t *testing.T) {
	tr := NewTranslator(Config{Logger: quietLogger()})

	_, err := tr.Decode([]byte{0xF0, 0x7D, 0x00, 0x00, 0x0F, 2, 2, 0xF7})
	assert.ErrorIs(t, err, codec.ErrBufferTooShort)

	_, err = tr.DecodeBody([]byte{2, 2})
	assert.ErrorIs(t, err, codec.ErrBufferTooShort)

	// header present, family body missing
	_, err = tr.Decode([]byte{0xF0, 0x7D, 0x00, 0x00, 0x0F, 2, 2, 1, 0, 0xF7})
	assert.ErrorIs(t, err, codec.ErrBufferTooShort)
}

func TestTranslator_UnknownDevice(t *testing.T) {
	strict := NewTranslator(Config{Logger: quietLogger()})
	_, err := strict.Decode(dump16n(42))
	assert.ErrorIs(t, err, ErrUnknownDevice)

	_, err = strict.Encode(&model.Configuration{DeviceID: 42, FirmwareVersion: "1.0.0"})
	assert.ErrorIs(t, err, ErrUnknownDevice)

	lenient := NewTranslator(Config{Logger: quietLogger(), UnknownDeviceFallback: true})
	cfg, err := lenient.Decode(dump16n(42))
	require.NoError(t, err)
	assert.Equal(t, uint8(42), cfg.DeviceID)
	assert.Equal(t, model.Capabilities{}, cfg.Capabilities)
	assert.Len(t, cfg.USBControls, model.MaxSlots)
	assert.False(t, cfg.USBControls[0].HighResolution, "no capabilities, no trailer")

	d, err := lenient.Descriptor(42)
	require.NoError(t, err)
	assert.Equal(t, codec.FamilySixteenN, codec.For(d).Family())
}

func TestTranslator_OptionRanges16n(t *testing.T) {
	tr := NewTranslator(Config{Logger: quietLogger()})
	cfg, err := tr.Decode(dump16n(2))
	require.NoError(t, err)

	opts, err := tr.DeviceOptions(cfg)
	require.NoError(t, err)
	require.Len(t, opts, 16)
	assert.Equal(t, byte(1), opts[1], "ledFlash")
	assert.Equal(t, []byte{0x7F, 0x7F}, opts[6:8], "fader max")

	usb, err := tr.USBOptions(cfg)
	require.NoError(t, err)
	require.Len(t, usb, 32)
	assert.Equal(t, byte(0), usb[0])
	assert.Equal(t, byte(32), usb[16])

	trs, err := tr.TRSOptions(cfg)
	require.NoError(t, err)
	require.Len(t, trs, 32)
	assert.Equal(t, byte(1), trs[0])
}

func TestTranslator_OptionRanges8mu(t *testing.T) {
	tr := NewTranslator(Config{Logger: quietLogger()})
	cfg := &model.Configuration{
		DeviceID:        6,
		FirmwareVersion: "0.3.0",
		USBControls:     []*model.Control{{Channel: 0, CC: 34}},
		Capabilities:    model.Capabilities{Buttons: true},
		USBButtons:      []*model.ButtonControl{{Channel: 0, ParamA: 36, ParamB: 127}},
	}

	usb, err := tr.USBOptions(cfg)
	require.NoError(t, err)
	require.Len(t, usb, 48)
	assert.Equal(t, []byte{0, 0, 36, 127}, usb[32:36])
	assert.Equal(t, byte(codec.Sentinel), usb[36], "unused record padded")

	trs, err := tr.TRSOptions(cfg)
	require.NoError(t, err)
	assert.Len(t, trs, 48)
}

func TestTranslator_EncodeErrors(t *testing.T) {
	tr := NewTranslator(Config{Logger: quietLogger()})

	_, err := tr.Encode(nil)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)

	_, err = tr.Encode(&model.Configuration{
		DeviceID:        2,
		FirmwareVersion: "2.0.0",
		USBControls:     []*model.Control{{CC: 1, HighResolution: true}},
	})
	assert.ErrorIs(t, err, codec.ErrCapabilityMismatch)
}

func TestTranslator_Blank(t *testing.T) {
	tr := NewTranslator(Config{Logger: quietLogger()})

	cfg, err := tr.Blank(2, "2.1.0")
	require.NoError(t, err)
	assert.True(t, cfg.Capabilities.FaderCalibration)
	assert.Equal(t, model.MaxFader, cfg.FaderMax)
	assert.Equal(t, 0, cfg.PresentControls(model.BusUSB))

	body, err := tr.Encode(cfg)
	require.NoError(t, err)
	assert.Equal(t, byte(codec.Sentinel), body[20], "unbound slots encode as sentinel")

	mu, err := tr.Blank(6, "0.3.0")
	require.NoError(t, err)
	assert.True(t, mu.Capabilities.Buttons)
	assert.False(t, mu.Capabilities.FaderCalibration)

	_, err = tr.Blank(2, "2.1")
	assert.Error(t, err)
	_, err = tr.Blank(42, "1.0.0")
	assert.ErrorIs(t, err, ErrUnknownDevice)
}
