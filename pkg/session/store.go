// Package session holds the configuration state of one connected controller:
// the configuration last read from the device and an optional edited copy.
//
// The device's config dumps only ever replace the current configuration.
// An edit in progress is never touched by inbound traffic, so a dump arriving
// mid-edit cannot overwrite the user's changes.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gridctl/gridctl-go/pkg/model"
	"github.com/gridctl/gridctl-go/pkg/packing"
)

// FactoryResetAfter is how long a config request may go unanswered before
// the device is assumed to need a factory reset.
const FactoryResetAfter = 8 * time.Second

// highResShadow is the offset of the LSB controller of a high-resolution CC.
const highResShadow = 32

// Session errors.
var (
	ErrNoConfiguration = errors.New("no configuration received")
	ErrNotEditing      = errors.New("no edit in progress")
	ErrEditInProgress  = errors.New("edit already in progress")
)

// Store holds the current and editing configurations.
type Store struct {
	mu sync.RWMutex

	current *model.Configuration
	editing *model.Configuration
	editID  string

	// requestedAt is when the oldest unanswered config request was sent.
	requestedAt time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Current returns a copy of the current configuration, or nil.
func (s *Store) Current() *model.Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// ReplaceCurrent installs a freshly decoded configuration. The editing copy
// is left alone.
func (s *Store) ReplaceCurrent(cfg *model.Configuration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = cfg.Clone()
	s.requestedAt = time.Time{}
}

// MarkRequested records that a config request was sent at now. Only the
// first unanswered request counts.
func (s *Store) MarkRequested(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requestedAt.IsZero() {
		s.requestedAt = now
	}
}

// NeedsFactoryReset reports whether a request has gone unanswered for longer
// than FactoryResetAfter.
func (s *Store) NeedsFactoryReset(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.requestedAt.IsZero() && now.Sub(s.requestedAt) > FactoryResetAfter
}

// BeginEdit starts editing a copy of the current configuration and returns
// the edit id.
func (s *Store) BeginEdit() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return "", ErrNoConfiguration
	}
	if s.editing != nil {
		return "", fmt.Errorf("%w: %s", ErrEditInProgress, s.editID)
	}
	s.editing = s.current.Clone()
	s.editID = uuid.NewString()
	return s.editID, nil
}

// Editing returns a copy of the editing configuration and its edit id. The
// configuration is nil when no edit is in progress.
func (s *Store) Editing() (*model.Configuration, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editing.Clone(), s.editID
}

// UpdateEditing applies fn to the editing configuration. A failing fn leaves
// the editing configuration unchanged.
func (s *Store) UpdateEditing(fn func(*model.Configuration) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editing == nil {
		return ErrNotEditing
	}
	next := s.editing.Clone()
	if err := fn(next); err != nil {
		return err
	}
	s.editing = next
	return nil
}

// Discard drops the editing configuration.
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = nil
	s.editID = ""
}

// Commit makes the editing configuration current once it has been sent to
// the device, and returns it.
func (s *Store) Commit() (*model.Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editing == nil {
		return nil, ErrNotEditing
	}
	s.current = s.editing
	s.editing = nil
	s.editID = ""
	return s.current.Clone(), nil
}

// Disconnect forgets everything about the device.
func (s *Store) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.editing = nil
	s.editID = ""
	s.requestedAt = time.Time{}
}

// Dirty reports whether the editing configuration differs from the current
// one.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editing != nil && !model.Equivalent(s.current, s.editing)
}

// ApplyControlChange records a CC reading against the current
// configuration's USB controls. Channels are 1-based as stored in the
// configuration. It reports whether any control matched.
func (s *Store) ApplyControlChange(channel, cc, value uint8) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return false
	}
	matched := false
	for _, c := range s.current.USBControls {
		if c == nil || c.Channel != channel {
			continue
		}
		switch {
		case cc == c.CC:
			c.MSB = value
			c.SeenMSB = true
		case c.HighResolution && int(cc) == int(c.CC)+highResShadow:
			c.LSB = value
		default:
			continue
		}
		matched = true
		if c.HighResolution && c.SeenMSB {
			c.Value = packing.Combine14(c.LSB, c.MSB)
		} else {
			c.Value = int(c.MSB)
		}
	}
	return matched
}

// ApplyNote tracks the pressed state of USB buttons in note mode.
func (s *Store) ApplyNote(channel, note uint8, on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return false
	}
	matched := false
	for _, b := range s.current.USBButtons {
		if b == nil || b.Mode != model.ButtonModeNote || b.Channel != channel || b.ParamA != note {
			continue
		}
		b.Pressed = on
		matched = true
	}
	return matched
}
