// Package commands implements the gridctl CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gridctl/gridctl-go/pkg/log"
	"github.com/gridctl/gridctl-go/pkg/sysex"
)

// LogOptions specifies filtering criteria for the log command.
type LogOptions struct {
	LinkID    string
	Device    string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
	Command   string
}

// Filter converts the options into a reader filter.
func (o LogOptions) Filter() (log.Filter, error) {
	filter := log.Filter{
		LinkID: o.LinkID,
		Device: o.Device,
	}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	if o.Layer != "" {
		l, err := parseLayer(o.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}
	if o.Direction != "" {
		d, err := parseDirection(o.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}
	if o.Category != "" {
		c, err := parseCategory(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	if o.Command != "" {
		c, err := parseCommand(o.Command)
		if err != nil {
			return filter, err
		}
		filter.Command = &c
	}
	return filter, nil
}

// RunLog prints the matching events of a protocol log file.
func RunLog(path string, opts LogOptions, w io.Writer) error {
	filter, err := opts.Filter()
	if err != nil {
		return err
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [link:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame"
	case event.Message != nil:
		typeLabel = event.Message.Command.String()
	case event.Channel != nil:
		typeLabel = event.Channel.Kind.String()
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [link:%s] %-3s %s %s", ts, shortenID(event.LinkID),
		event.Direction.String(), event.Layer.String(), typeLabel)
	if event.Device != "" {
		fmt.Fprintf(w, " (%s)", event.Device)
	}
	fmt.Fprintln(w)

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.Channel != nil:
		ch := event.Channel
		fmt.Fprintf(w, "  Channel: %d  Number: %d  Value: %d\n", ch.Channel, ch.Number, ch.Value)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// shortenID returns the first 8 characters of a link ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	fmt.Fprintf(w, "  Body: %d bytes\n", msg.BodySize)
	if msg.DeviceID != nil {
		fmt.Fprintf(w, "  Device: %d", *msg.DeviceID)
		if msg.Firmware != "" {
			fmt.Fprintf(w, "  Firmware: %s", msg.Firmware)
		}
		fmt.Fprintln(w)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	EventsByCommand   map[sysex.Command]int
	Links             map[string]int
	Errors            int
	Start, End        time.Time
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		EventsByCommand:   make(map[sysex.Command]int),
		Links:             make(map[string]int),
	}
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++
	s.Links[event.LinkID]++
	if event.Message != nil {
		s.EventsByCommand[event.Message.Command]++
	}
	if event.Error != nil {
		s.Errors++
	}
	if s.Start.IsZero() || event.Timestamp.Before(s.Start) {
		s.Start = event.Timestamp
	}
	if event.Timestamp.After(s.End) {
		s.End = event.Timestamp
	}
}

func printStats(w io.Writer, s *Stats) {
	fmt.Fprintln(w, "=== Protocol Log Statistics ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total Events: %d\n", s.TotalEvents)
	if s.TotalEvents == 0 {
		return
	}
	fmt.Fprintf(w, "Time Range: %s to %s (%s)\n",
		s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339), s.End.Sub(s.Start))
	fmt.Fprintf(w, "Links: %d\n", len(s.Links))
	fmt.Fprintf(w, "Errors: %d\n", s.Errors)

	fmt.Fprintln(w, "\nBy Direction:")
	for _, d := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		fmt.Fprintf(w, "  %-10s %d\n", d.String(), s.EventsByDirection[d])
	}
	fmt.Fprintln(w, "\nBy Layer:")
	for _, l := range []log.Layer{log.LayerTransport, log.LayerSysEx, log.LayerSession} {
		fmt.Fprintf(w, "  %-10s %d\n", l.String(), s.EventsByLayer[l])
	}
	fmt.Fprintln(w, "\nBy Category:")
	for _, c := range []log.Category{log.CategoryMessage, log.CategoryChannel, log.CategoryState, log.CategoryError} {
		fmt.Fprintf(w, "  %-10s %d\n", c.String(), s.EventsByCategory[c])
	}

	if len(s.EventsByCommand) > 0 {
		cmds := make([]sysex.Command, 0, len(s.EventsByCommand))
		for c := range s.EventsByCommand {
			cmds = append(cmds, c)
		}
		sort.Slice(cmds, func(i, j int) bool { return cmds[i] < cmds[j] })
		fmt.Fprintln(w, "\nBy Command:")
		for _, c := range cmds {
			fmt.Fprintf(w, "  %-22s %d\n", c.String(), s.EventsByCommand[c])
		}
	}
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	return parseLayer(s)
}

func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "sysex":
		return log.LayerSysEx, nil
	case "session":
		return log.LayerSession, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, sysex, or session)", s)
	}
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "channel":
		return log.CategoryChannel, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, channel, state, or error)", s)
	}
}

// parseCommand accepts a command name such as config_dump or a hex byte
// such as 0x0f.
func parseCommand(s string) (sysex.Command, error) {
	name := strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	for _, c := range sysex.Commands() {
		if c.String() == name {
			return c, nil
		}
	}
	var b byte
	if _, err := fmt.Sscanf(strings.ToLower(s), "0x%x", &b); err == nil && sysex.Command(b).Valid() {
		return sysex.Command(b), nil
	}
	return 0, fmt.Errorf("invalid command: %s", s)
}
