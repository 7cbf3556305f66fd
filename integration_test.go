package gridctl_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridctl/gridctl-go/pkg/configuration"
	"github.com/gridctl/gridctl-go/pkg/log"
	"github.com/gridctl/gridctl-go/pkg/model"
	"github.com/gridctl/gridctl-go/pkg/persistence"
	"github.com/gridctl/gridctl-go/pkg/session"
	"github.com/gridctl/gridctl-go/pkg/sysex"
	"github.com/gridctl/gridctl-go/pkg/transport"
)

// fakeController answers config requests with its stored body and applies
// full config updates, the way 16n firmware does.
type fakeController struct {
	t    *testing.T
	mu   sync.Mutex
	body []byte
	link *transport.Link
	cmds []sysex.Command
}

func (f *fakeController) Send(data []byte) error {
	msg, err := sysex.Parse(data)
	if err != nil {
		// channel messages
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, msg.Command)

	switch msg.Command {
	case sysex.CmdRequestConfig:
		dump, err := sysex.Frame(sysex.CmdConfigDump, f.body)
		require.NoError(f.t, err)
		go f.link.HandleMessage(dump)
	case sysex.CmdUpdateConfig:
		f.body = append([]byte(nil), msg.Body...)
	}
	return nil
}

func (f *fakeController) commands() []sysex.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sysex.Command(nil), f.cmds...)
}

func sixteenNBody() []byte {
	body := make([]byte, 90)
	body[0] = 2
	body[1], body[2], body[3] = 2, 1, 0
	body[4] = 1
	body[8], body[9] = 0x0F, 0x00
	body[10], body[11] = 0x70, 0x7F
	for i := 0; i < 16; i++ {
		body[20+i] = 1
		body[36+i] = 2
		body[52+i] = byte(32 + i)
		body[68+i] = byte(32 + i)
	}
	return body
}

func connect(t *testing.T, body []byte) (*fakeController, *transport.Link, *configuration.Translator) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tr := configuration.NewTranslator(configuration.Config{Logger: logger})
	dev := &fakeController{t: t, body: body}
	link := transport.NewLink(dev, tr, session.NewStore())
	link.SetLogger(logger)
	dev.link = link
	t.Cleanup(func() { link.Close() })
	return dev, link, tr
}

func request(t *testing.T, link *transport.Link) *model.Configuration {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cfg, err := link.RequestConfig(ctx)
	require.NoError(t, err)
	return cfg
}

func TestE2E_EditRoundTrip(t *testing.T) {
	dev, link, _ := connect(t, sixteenNBody())

	cfg := request(t, link)
	assert.Equal(t, "2.1.0", cfg.FirmwareVersion)
	assert.Equal(t, 15, cfg.FaderMin)
	assert.True(t, cfg.Capabilities.HighResolution)

	store := link.Store()
	_, err := store.BeginEdit()
	require.NoError(t, err)
	require.NoError(t, store.UpdateEditing(func(c *model.Configuration) error {
		c.MIDIThru = true
		c.FaderMin = 40
		c.USBControls[3].CC = 99
		c.USBControls[5].HighResolution = true
		c.TRSControls[15] = nil
		return nil
	}))
	edited, _ := store.Editing()
	require.NoError(t, link.SendEdit())
	assert.False(t, store.Dirty())

	readBack := request(t, link)
	assert.True(t, model.Equivalent(edited, readBack), "device reports the sent configuration")
	assert.True(t, readBack.MIDIThru)
	assert.Equal(t, 40, readBack.FaderMin)
	assert.Equal(t, uint8(99), readBack.USBControls[3].CC)
	assert.True(t, readBack.USBControls[5].HighResolution)
	assert.Nil(t, readBack.TRSControls[15])

	assert.Equal(t, []sysex.Command{
		sysex.CmdRequestConfig,
		sysex.CmdUpdateConfig,
		sysex.CmdRequestConfig,
	}, dev.commands())
}

func TestE2E_ExportImport(t *testing.T) {
	_, link, tr := connect(t, sixteenNBody())
	cfg := request(t, link)

	d, err := tr.Descriptor(cfg.DeviceID)
	require.NoError(t, err)
	fs := persistence.NewFileStore(filepath.Join(t.TempDir(), "preset.json"))
	require.NoError(t, fs.Save(persistence.Export(cfg, d)))

	// a second controller with a different layout takes the preset
	other := sixteenNBody()
	for i := 0; i < 16; i++ {
		other[52+i] = byte(i)
	}
	dev2, link2, _ := connect(t, other)
	before := request(t, link2)
	assert.False(t, model.Equivalent(cfg, before))

	doc, err := fs.Load()
	require.NoError(t, err)
	_, err = link2.Store().BeginEdit()
	require.NoError(t, err)
	require.NoError(t, link2.Store().UpdateEditing(func(c *model.Configuration) error {
		return persistence.Merge(c, doc)
	}))
	require.NoError(t, link2.SendEdit())

	after := request(t, link2)
	assert.True(t, model.Equivalent(cfg, after))
	assert.Len(t, dev2.commands(), 3)
}

func TestE2E_ProtocolLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session"+log.FileExtension)
	fl, err := log.NewFileLogger(path)
	require.NoError(t, err)

	_, link, _ := connect(t, sixteenNBody())
	link.SetPortName("16n")
	link.SetProtocolLogger(fl)
	// the device name is known from the first dump on
	request(t, link)
	request(t, link)
	require.NoError(t, fl.Close())

	r, err := log.NewFilteredReader(path, log.Filter{Device: "16n"})
	require.NoError(t, err)
	defer r.Close()
	events, err := r.ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, events)

	var dump bool
	for _, e := range events {
		assert.Equal(t, link.ID(), e.LinkID)
		if e.Message != nil && e.Message.Command == sysex.CmdConfigDump {
			dump = true
			assert.Equal(t, "2.1.0", e.Message.Firmware)
		}
	}
	assert.True(t, dump, "config dump logged")
}
