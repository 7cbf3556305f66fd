package log

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileExtension is the conventional extension of protocol log files.
const FileExtension = ".glog"

// FileLogger appends protocol events to a .glog file. MIDI drivers deliver
// input on their own goroutine while the shell sends from another, so Log
// is serialized.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	// err is the first write failure, reported by Close.
	err error
}

// NewFileLogger opens path for appending, creating it and any missing
// parent directories.
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("protocol log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("protocol log: %w", err)
	}
	return &FileLogger{file: f, encoder: newEncoder(f)}, nil
}

// Log appends an event. A failed write does not reach the caller, since a
// broken log must not break the link; Close reports it. Events logged after
// Close are dropped.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil || l.err != nil {
		return
	}
	if err := l.encoder.Encode(event); err != nil {
		l.err = fmt.Errorf("write %s: %w", l.file.Name(), err)
	}
}

// Close closes the file and returns the first write error, if any.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := errors.Join(l.err, l.file.Close())
	l.file = nil
	return err
}

var _ Logger = (*FileLogger)(nil)
