// Package log provides structured protocol logging for controller links.
//
// This package defines the Logger interface and Event types for capturing
// MIDI traffic between the host and a controller at several layers (raw
// transport bytes, parsed SysEx messages, session state). It is separate
// from operational logging (slog): protocol capture is a complete
// machine-readable trace for debugging firmware and editor behaviour.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	link.SetProtocolLogger(log.NewSlogAdapter(slog.Default()))
//
//	// For capture: write to binary file
//	fl, _ := log.NewFileLogger("/tmp/16n.glog")
//	link.SetProtocolLogger(fl)
//
//	// Both: use MultiLogger
//	link.SetProtocolLogger(log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fl,
//	))
//
// # Event Types
//
//   - Transport: raw bytes sent or received (FrameEvent)
//   - SysEx: parsed vendor messages (MessageEvent)
//   - Channel: CC, note and program change traffic (ChannelEvent)
//   - Session: link and edit state changes (StateChangeEvent)
//
// Errors at any layer have a dedicated event type.
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with the .glog extension.
// `gridctl log` prints them.
package log
