package transport

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrPortNotFound indicates no MIDI port matched.
var ErrPortNotFound = errors.New("midi port not found")

// sysExBufferSize fits the largest config dump with room to spare.
const sysExBufferSize = 1024

// Ports is a matched pair of MIDI input and output ports.
type Ports struct {
	In  drivers.In
	Out drivers.Out

	// OnError receives listener errors, usually a disconnected device.
	OnError func(error)
}

// PortNames lists the input and output ports of the registered driver.
func PortNames() (ins, outs []string) {
	for _, p := range midi.GetInPorts() {
		ins = append(ins, p.String())
	}
	for _, p := range midi.GetOutPorts() {
		outs = append(outs, p.String())
	}
	return ins, outs
}

// OpenPorts opens the first input and output port whose names contain match,
// compared case-insensitively.
func OpenPorts(match string) (*Ports, error) {
	in, err := findPort(midi.GetInPorts(), match)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	out, err := findPort(midi.GetOutPorts(), match)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}

	if err := in.Open(); err != nil {
		return nil, fmt.Errorf("open %s: %w", in, err)
	}
	if err := out.Open(); err != nil {
		in.Close()
		return nil, fmt.Errorf("open %s: %w", out, err)
	}
	return &Ports{In: in, Out: out}, nil
}

func findPort[P fmt.Stringer](ports []P, match string) (P, error) {
	needle := strings.ToLower(match)
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p.String()), needle) {
			return p, nil
		}
	}
	var zero P
	return zero, fmt.Errorf("%w: no port matching %q", ErrPortNotFound, match)
}

// Name returns the output port name.
func (p *Ports) Name() string {
	return p.Out.String()
}

// Send writes a message to the output port.
func (p *Ports) Send(data []byte) error {
	return p.Out.Send(data)
}

// Listen receives messages, SysEx included, from the input port.
func (p *Ports) Listen(fn func(msg []byte)) (func(), error) {
	opts := []midi.Option{midi.UseSysEx(), midi.SysExBufferSize(sysExBufferSize)}
	if p.OnError != nil {
		opts = append(opts, midi.HandleError(p.OnError))
	}
	return midi.ListenTo(p.In, func(msg midi.Message, _ int32) {
		fn(msg.Bytes())
	}, opts...)
}

// Close closes both ports.
func (p *Ports) Close() error {
	return errors.Join(p.In.Close(), p.Out.Close())
}
