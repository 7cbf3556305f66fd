package log

import (
	"time"

	"github.com/gridctl/gridctl-go/pkg/sysex"
)

// MaxFrameData is the number of frame bytes kept in a FrameEvent. Longer
// frames are truncated.
const MaxFrameData = 4096

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// LinkID uniquely identifies the MIDI link (UUID).
	LinkID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Port is the MIDI port name.
	Port string `cbor:"6,keyasint,omitempty"`

	// Device is the catalog name of the controller, once known.
	Device string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"` // SysEx layer
	Channel     *ChannelEvent     `cbor:"12,keyasint,omitempty"` // Channel voice traffic
	StateChange *StateChangeEvent `cbor:"13,keyasint,omitempty"` // Link/edit state
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates a message from the controller.
	DirectionIn Direction = 0
	// DirectionOut indicates a message to the controller.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the MIDI port layer (raw bytes).
	LayerTransport Layer = 0
	// LayerSysEx is the vendor message layer.
	LayerSysEx Layer = 1
	// LayerSession is the configuration session layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerSysEx:
		return "SYSEX"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a SysEx message.
	CategoryMessage Category = 0
	// CategoryChannel indicates channel voice traffic.
	CategoryChannel Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryChannel:
		return "CHANNEL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw bytes at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// NewFrameEvent copies raw into a FrameEvent, truncating at MaxFrameData.
func NewFrameEvent(raw []byte) *FrameEvent {
	f := &FrameEvent{Size: len(raw)}
	data := raw
	if len(data) > MaxFrameData {
		data = data[:MaxFrameData]
		f.Truncated = true
	}
	f.Data = append([]byte(nil), data...)
	return f
}

// MessageEvent captures a parsed vendor SysEx message.
type MessageEvent struct {
	// Command is the command byte.
	Command sysex.Command `cbor:"1,keyasint"`

	// DeviceID is the controller's device id (config dumps and updates).
	DeviceID *uint8 `cbor:"2,keyasint,omitempty"`

	// Firmware is the firmware version reported in a config dump.
	Firmware string `cbor:"3,keyasint,omitempty"`

	// BodySize is the number of bytes between the command and F7.
	BodySize int `cbor:"4,keyasint"`
}

// ChannelKind distinguishes channel voice messages.
type ChannelKind uint8

const (
	// ChannelControlChange indicates a control change.
	ChannelControlChange ChannelKind = 0
	// ChannelNoteOn indicates a note on.
	ChannelNoteOn ChannelKind = 1
	// ChannelNoteOff indicates a note off.
	ChannelNoteOff ChannelKind = 2
	// ChannelProgramChange indicates a program change.
	ChannelProgramChange ChannelKind = 3
)

// String returns the channel message kind name.
func (k ChannelKind) String() string {
	switch k {
	case ChannelControlChange:
		return "CC"
	case ChannelNoteOn:
		return "NOTE_ON"
	case ChannelNoteOff:
		return "NOTE_OFF"
	case ChannelProgramChange:
		return "PROGRAM_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// ChannelEvent captures a channel voice message. Channels are 1-based.
type ChannelEvent struct {
	Kind    ChannelKind `cbor:"1,keyasint"`
	Channel uint8       `cbor:"2,keyasint"`
	// Number is the controller, key or program number.
	Number uint8 `cbor:"3,keyasint"`
	Value  uint8 `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures link and edit lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityLink indicates a link state change.
	StateEntityLink StateEntity = 0
	// StateEntityConfiguration indicates the current configuration changed.
	StateEntityConfiguration StateEntity = 1
	// StateEntityEdit indicates an edit session change.
	StateEntityEdit StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityLink:
		return "LINK"
	case StateEntityConfiguration:
		return "CONFIGURATION"
	case StateEntityEdit:
		return "EDIT"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
