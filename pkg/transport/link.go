package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gitlab.com/gomidi/midi/v2"

	"github.com/gridctl/gridctl-go/pkg/configuration"
	"github.com/gridctl/gridctl-go/pkg/log"
	"github.com/gridctl/gridctl-go/pkg/model"
	"github.com/gridctl/gridctl-go/pkg/session"
	"github.com/gridctl/gridctl-go/pkg/sysex"
)

// Link errors.
var (
	ErrTimeout    = errors.New("timed out waiting for config dump")
	ErrLinkClosed = errors.New("link is closed")
)

// programChangeChannel is the 0-based channel program changes are sent on.
const programChangeChannel = 0

// Link connects one controller to a translator and a session store. Inbound
// config dumps replace the store's current configuration; CC and note
// traffic updates its runtime readings.
type Link struct {
	id         string
	sender     Sender
	translator *configuration.Translator
	store      *session.Store

	mu          sync.Mutex
	logger      *slog.Logger
	protoLogger log.Logger
	port        string
	device      string
	waiters     map[chan *model.Configuration]struct{}
	onConfig    func(*model.Configuration)
	now         func() time.Time

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeCh   chan struct{}
}

// NewLink creates a link sending through sender.
func NewLink(sender Sender, translator *configuration.Translator, store *session.Store) *Link {
	return &Link{
		id:          uuid.NewString(),
		sender:      sender,
		translator:  translator,
		store:       store,
		logger:      slog.Default(),
		protoLogger: log.NoopLogger{},
		waiters:     make(map[chan *model.Configuration]struct{}),
		now:         time.Now,
		closeCh:     make(chan struct{}),
	}
}

// ID returns the link's unique id.
func (l *Link) ID() string {
	return l.id
}

// Store returns the link's session store.
func (l *Link) Store() *session.Store {
	return l.store
}

// SetLogger sets the operational logger.
func (l *Link) SetLogger(logger *slog.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = logger
}

// SetProtocolLogger sets the protocol event logger. Nil disables protocol
// logging.
func (l *Link) SetProtocolLogger(logger log.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if logger == nil {
		logger = log.NoopLogger{}
	}
	l.protoLogger = logger
}

// SetPortName records the port name for log events.
func (l *Link) SetPortName(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.port = name
}

// SetConfigHandler registers fn to run after each config dump is stored.
func (l *Link) SetConfigHandler(fn func(*model.Configuration)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onConfig = fn
}

// HandleMessage processes one inbound MIDI message. It is safe to call from
// the driver's goroutine.
func (l *Link) HandleMessage(raw []byte) {
	l.logFrame(log.DirectionIn, raw)
	if len(raw) == 0 {
		return
	}
	if raw[0] == sysex.Start {
		l.handleSysEx(raw)
		return
	}
	l.handleChannel(raw)
}

func (l *Link) handleSysEx(raw []byte) {
	if !sysex.IsVendorMessage(raw) {
		l.getLogger().Debug("ignoring foreign sysex", "size", len(raw))
		return
	}
	msg, err := sysex.Parse(raw)
	if err != nil {
		l.logError(log.LayerSysEx, err, "parse inbound sysex")
		return
	}
	l.logMessage(log.DirectionIn, msg)

	if msg.Command != sysex.CmdConfigDump {
		l.getLogger().Debug("ignoring inbound command", "command", msg.Command.String())
		return
	}

	cfg, err := l.translator.DecodeBody(msg.Body)
	if err != nil {
		l.logError(log.LayerSysEx, err, "decode config dump")
		l.getLogger().Warn("config dump rejected", "error", err)
		return
	}

	l.store.ReplaceCurrent(cfg)
	if d, err := l.translator.Descriptor(cfg.DeviceID); err == nil {
		l.mu.Lock()
		l.device = d.Name
		l.mu.Unlock()
	}
	l.logState(log.StateEntityConfiguration, "", "received", "config dump")

	l.mu.Lock()
	for ch := range l.waiters {
		select {
		case ch <- cfg.Clone():
		default:
		}
	}
	onConfig := l.onConfig
	l.mu.Unlock()

	if onConfig != nil {
		onConfig(cfg.Clone())
	}
}

func (l *Link) handleChannel(raw []byte) {
	msg := midi.Message(raw)
	var ch, num, val uint8

	switch {
	case msg.GetControlChange(&ch, &num, &val):
		l.store.ApplyControlChange(ch+1, num, val)
		l.logChannel(log.ChannelControlChange, ch+1, num, val)
	case msg.GetNoteStart(&ch, &num, &val):
		l.store.ApplyNote(ch+1, num, true)
		l.logChannel(log.ChannelNoteOn, ch+1, num, val)
	case msg.GetNoteEnd(&ch, &num):
		l.store.ApplyNote(ch+1, num, false)
		l.logChannel(log.ChannelNoteOff, ch+1, num, 0)
	}
}

// RequestConfig asks the controller for its configuration and waits for the
// next config dump or for ctx to end.
func (l *Link) RequestConfig(ctx context.Context) (*model.Configuration, error) {
	ch := make(chan *model.Configuration, 1)
	l.mu.Lock()
	l.waiters[ch] = struct{}{}
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.waiters, ch)
		l.mu.Unlock()
	}()

	l.store.MarkRequested(l.now())
	if err := l.send(sysex.RequestConfig()); err != nil {
		return nil, err
	}

	select {
	case cfg := <-ch:
		return cfg, nil
	case <-l.closeCh:
		return nil, ErrLinkClosed
	case <-ctx.Done():
		if l.store.NeedsFactoryReset(l.now()) {
			l.getLogger().Warn("controller has not answered config requests; it may need a factory reset")
		}
		return nil, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}

// SendConfig writes cfg to the controller. Devices that cannot take a full
// update in one message get the device, USB and TRS ranges separately.
func (l *Link) SendConfig(cfg *model.Configuration) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil configuration", model.ErrInvalidConfiguration)
	}
	d, err := l.translator.Descriptor(cfg.DeviceID)
	if err != nil {
		return err
	}

	if d.SendShortMessages {
		if err := l.SendDeviceOptions(cfg); err != nil {
			return err
		}
		if err := l.SendUSBOptions(cfg); err != nil {
			return err
		}
		return l.SendTRSOptions(cfg)
	}

	body, err := l.translator.Encode(cfg)
	if err != nil {
		return err
	}
	return l.sendUpdate(sysex.CmdUpdateConfig, body)
}

// SendDeviceOptions writes the device options range of cfg.
func (l *Link) SendDeviceOptions(cfg *model.Configuration) error {
	body, err := l.translator.DeviceOptions(cfg)
	if err != nil {
		return err
	}
	return l.sendUpdate(sysex.CmdUpdateDeviceOptions, body)
}

// SendUSBOptions writes the USB bus range of cfg.
func (l *Link) SendUSBOptions(cfg *model.Configuration) error {
	body, err := l.translator.USBOptions(cfg)
	if err != nil {
		return err
	}
	return l.sendUpdate(sysex.CmdUpdateUSBOptions, body)
}

// SendTRSOptions writes the TRS bus range of cfg.
func (l *Link) SendTRSOptions(cfg *model.Configuration) error {
	body, err := l.translator.TRSOptions(cfg)
	if err != nil {
		return err
	}
	return l.sendUpdate(sysex.CmdUpdateTRSOptions, body)
}

// SendEdit writes the store's editing configuration and, once sent, makes it
// current.
func (l *Link) SendEdit() error {
	cfg, id := l.store.Editing()
	if cfg == nil {
		return session.ErrNotEditing
	}
	if err := l.SendConfig(cfg); err != nil {
		return err
	}
	if _, err := l.store.Commit(); err != nil {
		return err
	}
	l.logState(log.StateEntityEdit, "editing", "committed", id)
	return nil
}

// FactoryReset restores the controller's factory configuration.
func (l *Link) FactoryReset() error {
	return l.send(sysex.FactoryReset())
}

// SendProgramChange sends a program change on channel 1.
func (l *Link) SendProgramChange(program uint8) error {
	if program > 0x7F {
		return fmt.Errorf("program %d out of range 0-127", program)
	}
	if err := l.send(midi.ProgramChange(programChangeChannel, program)); err != nil {
		return err
	}
	l.logChannel(log.ChannelProgramChange, programChangeChannel+1, program, 0)
	return nil
}

// Close stops the link. Pending requests fail with ErrLinkClosed.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		close(l.closeCh)
		l.logState(log.StateEntityLink, "open", "closed", "")
	})
	return nil
}

func (l *Link) sendUpdate(cmd sysex.Command, body []byte) error {
	msg, err := sysex.Update(cmd, body)
	if err != nil {
		return err
	}
	if err := l.send(msg); err != nil {
		return err
	}
	parsed, err := sysex.Parse(msg)
	if err == nil {
		l.logMessage(log.DirectionOut, parsed)
	}
	return nil
}

func (l *Link) send(msg []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	select {
	case <-l.closeCh:
		return ErrLinkClosed
	default:
	}

	l.logFrame(log.DirectionOut, msg)
	if err := l.sender.Send(msg); err != nil {
		l.logError(log.LayerTransport, err, "send")
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (l *Link) getLogger() *slog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logger
}

func (l *Link) emit(event log.Event) {
	l.mu.Lock()
	pl := l.protoLogger
	event.Timestamp = l.now()
	event.LinkID = l.id
	event.Port = l.port
	event.Device = l.device
	l.mu.Unlock()
	pl.Log(event)
}

func (l *Link) logFrame(dir log.Direction, raw []byte) {
	l.emit(log.Event{
		Direction: dir,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Frame:     log.NewFrameEvent(raw),
	})
}

func (l *Link) logMessage(dir log.Direction, msg *sysex.Message) {
	me := &log.MessageEvent{Command: msg.Command, BodySize: len(msg.Body)}
	if (msg.Command == sysex.CmdConfigDump || msg.Command == sysex.CmdUpdateConfig) && len(msg.Body) >= 4 {
		id := msg.Body[0]
		me.DeviceID = &id
		me.Firmware = fmt.Sprintf("%d.%d.%d", msg.Body[1], msg.Body[2], msg.Body[3])
	}
	l.emit(log.Event{
		Direction: dir,
		Layer:     log.LayerSysEx,
		Category:  log.CategoryMessage,
		Message:   me,
	})
}

func (l *Link) logChannel(kind log.ChannelKind, channel, number, value uint8) {
	dir := log.DirectionIn
	if kind == log.ChannelProgramChange {
		dir = log.DirectionOut
	}
	l.emit(log.Event{
		Direction: dir,
		Layer:     log.LayerTransport,
		Category:  log.CategoryChannel,
		Channel:   &log.ChannelEvent{Kind: kind, Channel: channel, Number: number, Value: value},
	})
}

func (l *Link) logState(entity log.StateEntity, from, to, reason string) {
	l.emit(log.Event{
		Layer:       log.LayerSession,
		Category:    log.CategoryState,
		StateChange: &log.StateChangeEvent{Entity: entity, OldState: from, NewState: to, Reason: reason},
	})
}

func (l *Link) logError(layer log.Layer, err error, where string) {
	l.emit(log.Event{
		Direction: log.DirectionIn,
		Layer:     layer,
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Layer: layer, Message: err.Error(), Context: where},
	})
}
