package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridctl/gridctl-go/pkg/model"
)

func testConfig() *model.Configuration {
	return &model.Configuration{
		DeviceID:        2,
		FirmwareVersion: "2.1.0",
		Capabilities:    model.Capabilities{HighResolution: true, Buttons: true},
		USBControls: []*model.Control{
			{Channel: 1, CC: 32},
			{Channel: 1, CC: 33, HighResolution: true},
			nil,
		},
		USBButtons: []*model.ButtonControl{
			{Channel: 1, Mode: model.ButtonModeNote, ParamA: 36},
			{Channel: 1, Mode: model.ButtonModeCC, ParamA: 36},
		},
	}
}

func TestStore_EditLifecycle(t *testing.T) {
	s := NewStore()

	_, err := s.BeginEdit()
	assert.ErrorIs(t, err, ErrNoConfiguration)

	s.ReplaceCurrent(testConfig())
	id, err := s.BeginEdit()
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "edit id should be a uuid")

	_, err = s.BeginEdit()
	assert.ErrorIs(t, err, ErrEditInProgress)
	assert.False(t, s.Dirty())

	require.NoError(t, s.UpdateEditing(func(c *model.Configuration) error {
		c.LEDFlash = true
		return nil
	}))
	assert.True(t, s.Dirty())

	editing, gotID := s.Editing()
	assert.Equal(t, id, gotID)
	assert.True(t, editing.LEDFlash)
	assert.False(t, s.Current().LEDFlash)

	committed, err := s.Commit()
	require.NoError(t, err)
	assert.True(t, committed.LEDFlash)
	assert.True(t, s.Current().LEDFlash)
	assert.False(t, s.Dirty())

	editing, gotID = s.Editing()
	assert.Nil(t, editing)
	assert.Empty(t, gotID)
	_, err = s.Commit()
	assert.ErrorIs(t, err, ErrNotEditing)
}

func TestStore_UpdateEditingFailureKeepsState(t *testing.T) {
	s := NewStore()
	s.ReplaceCurrent(testConfig())
	_, err := s.BeginEdit()
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.UpdateEditing(func(c *model.Configuration) error {
		c.MIDIThru = true
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.Dirty())

	s.Discard()
	assert.ErrorIs(t, s.UpdateEditing(func(*model.Configuration) error { return nil }), ErrNotEditing)
}

func TestStore_InboundDumpLeavesEditAlone(t *testing.T) {
	s := NewStore()
	s.ReplaceCurrent(testConfig())
	_, err := s.BeginEdit()
	require.NoError(t, err)
	require.NoError(t, s.UpdateEditing(func(c *model.Configuration) error {
		c.ControllerFlip = true
		return nil
	}))

	dump := testConfig()
	dump.MIDIThru = true
	s.ReplaceCurrent(dump)

	editing, _ := s.Editing()
	assert.True(t, editing.ControllerFlip)
	assert.False(t, editing.MIDIThru, "dump must not leak into the edit")
	assert.True(t, s.Current().MIDIThru)
}

func TestStore_CurrentIsACopy(t *testing.T) {
	s := NewStore()
	cfg := testConfig()
	s.ReplaceCurrent(cfg)

	cfg.USBControls[0].CC = 99
	got := s.Current()
	assert.Equal(t, uint8(32), got.USBControls[0].CC)

	got.USBControls[0].CC = 98
	assert.Equal(t, uint8(32), s.Current().USBControls[0].CC)
}

func TestStore_ApplyControlChange(t *testing.T) {
	s := NewStore()
	assert.False(t, s.ApplyControlChange(1, 32, 64), "no configuration yet")

	s.ReplaceCurrent(testConfig())

	assert.True(t, s.ApplyControlChange(1, 32, 64))
	assert.Equal(t, 64, s.Current().USBControls[0].Value)

	assert.False(t, s.ApplyControlChange(2, 32, 10), "wrong channel")
	assert.False(t, s.ApplyControlChange(1, 64, 10), "shadow of a standard control")

	// high-resolution: LSB before MSB keeps the raw value at zero
	assert.True(t, s.ApplyControlChange(1, 65, 0x7F))
	assert.Equal(t, 0, s.Current().USBControls[1].Value)

	assert.True(t, s.ApplyControlChange(1, 33, 0x7F))
	assert.Equal(t, 16383, s.Current().USBControls[1].Value)

	assert.True(t, s.ApplyControlChange(1, 65, 0))
	assert.Equal(t, 16256, s.Current().USBControls[1].Value)
}

func TestStore_ApplyNote(t *testing.T) {
	s := NewStore()
	s.ReplaceCurrent(testConfig())

	assert.True(t, s.ApplyNote(1, 36, true))
	cur := s.Current()
	assert.True(t, cur.USBButtons[0].Pressed)
	assert.False(t, cur.USBButtons[1].Pressed, "CC-mode buttons ignore notes")

	assert.False(t, s.ApplyNote(1, 37, true))
	assert.True(t, s.ApplyNote(1, 36, false))
	assert.False(t, s.Current().USBButtons[0].Pressed)
}

func TestStore_NeedsFactoryReset(t *testing.T) {
	s := NewStore()
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, s.NeedsFactoryReset(t0))

	s.MarkRequested(t0)
	s.MarkRequested(t0.Add(5 * time.Second))
	assert.False(t, s.NeedsFactoryReset(t0.Add(8*time.Second)))
	assert.True(t, s.NeedsFactoryReset(t0.Add(9*time.Second)), "measured from the first request")

	s.ReplaceCurrent(testConfig())
	assert.False(t, s.NeedsFactoryReset(t0.Add(time.Minute)))

	s.MarkRequested(t0)
	s.Disconnect()
	assert.False(t, s.NeedsFactoryReset(t0.Add(time.Minute)))
	assert.Nil(t, s.Current())
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore()
	s.ReplaceCurrent(testConfig())
	_, err := s.BeginEdit()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.ReplaceCurrent(testConfig())
				s.ApplyControlChange(1, 32, uint8(j))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.UpdateEditing(func(c *model.Configuration) error {
					c.LEDFlash = !c.LEDFlash
					return nil
				})
				_ = s.Dirty()
			}
		}()
	}
	wg.Wait()

	editing, _ := s.Editing()
	assert.NotNil(t, editing)
}
