// Package logsink owns the append-only diagnostic log file.
//
// Exactly one Sink should exist per log file. It is opened at startup and
// handed to every component that writes diagnostics.
package logsink

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// TimestampLayout renders as MM/dd/yyyy hh:mm:ss.ff tt.
const TimestampLayout = "01/02/2006 03:04:05.00 PM"

const separator = " | "

var (
	ErrReadUnsupported = errors.New("logsink: read is not supported")
	ErrInvalidLevel    = errors.New("logsink: invalid level")
	ErrClosed          = errors.New("logsink: sink is closed")
)

type Level string

const (
	Debug  Level = "DEBUG"
	Access Level = "ACCESS"
	Error  Level = "ERROR"
)

func ParseLevel(raw string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(raw)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, raw)
	}
	return l, nil
}

func (l Level) Valid() bool {
	switch l {
	case Debug, Access, Error:
		return true
	}
	return false
}

type Sink struct {
	path string
	now  func() time.Time

	mu   sync.Mutex
	file *os.File
}

// Open creates the backing file if needed and returns a ready sink.
func Open(path string) (*Sink, error) {
	return open(path, time.Now)
}

func open(path string, now func() time.Time) (*Sink, error) {
	s := &Sink{path: path, now: now}
	if err := s.reopen(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sink) Path() string {
	return s.path
}

// Append writes one formatted line. Concurrent callers never interleave.
func (s *Sink) Append(level Level, message string) error {
	if !level.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}

	// Lines are one per event.
	message = strings.ReplaceAll(message, "\n", " ")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrClosed
	}

	line := s.now().Format(TimestampLayout) + separator + string(level) + separator + message + "\n"
	if _, err := s.file.WriteString(line); err != nil {
		return fmt.Errorf("logsink: append: %w", err)
	}
	return nil
}

func (s *Sink) Read() ([]string, error) {
	return nil, ErrReadUnsupported
}

// Delete removes the backing file and starts a fresh empty one.
func (s *Sink) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrClosed
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("logsink: close: %w", err)
	}
	s.file = nil

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("logsink: delete: %w", err)
	}
	return s.reopen()
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// reopen expects s.mu to be held or the sink to be unpublished.
func (s *Sink) reopen() error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logsink: open %s: %w", s.path, err)
	}
	s.file = f
	return nil
}
