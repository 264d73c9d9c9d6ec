// Package logging sets up the process-wide structured logger. It keeps the
// teacher's rotating-file mechanism (open-existing-or-new, rename-on-rotate
// numbered backups) but wires it as a zerolog writer instead of the
// standard library's log.Logger, multi-written to stdout.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// rotator implements io.Writer and rotates the underlying file once it
// crosses MaxSize, keeping up to MaxBackups numbered copies.
type rotator struct {
	filename   string
	maxSize    int64
	maxBackups int

	mu   sync.Mutex
	file *os.File
	size int64
}

func newRotator(filename string, maxSizeMB int64, maxBackups int) (*rotator, error) {
	r := &rotator{
		filename:   filename,
		maxSize:    maxSizeMB * 1024 * 1024,
		maxBackups: maxBackups,
	}
	if err := r.openExistingOrNew(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rotator) openExistingOrNew() error {
	info, err := os.Stat(r.filename)
	if os.IsNotExist(err) {
		return r.openNew()
	}
	if err != nil {
		return err
	}
	f, err := os.OpenFile(r.filename, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	r.file = f
	r.size = info.Size()
	return nil
}

func (r *rotator) openNew() error {
	f, err := os.OpenFile(r.filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	r.file = f
	r.size = 0
	return nil
}

func (r *rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.openExistingOrNew(); err != nil {
			return 0, err
		}
	}

	if r.size+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// rotate closes the current file, shifts numbered backups up by one, and
// opens a fresh file in the original name's place.
func (r *rotator) rotate() error {
	if r.file != nil {
		r.file.Close()
	}

	for i := r.maxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", r.filename, i)
		newPath := fmt.Sprintf("%s.%d", r.filename, i+1)
		if _, err := os.Stat(oldPath); os.IsNotExist(err) {
			continue
		}
		os.Rename(oldPath, newPath)
	}

	if _, err := os.Stat(r.filename); err == nil {
		os.Rename(r.filename, fmt.Sprintf("%s.1", r.filename))
	}

	return r.openNew()
}

// New builds the root logger: JSON events written to stdout and to a
// size-rotated file, at the configured level. Every component receives a
// sub-logger (via zerolog.Logger.With()) rather than reaching for a
// package-global — see the design note on eliminating singleton loggers.
func New(filename string, maxSizeMB int64, maxBackups int, level string) (zerolog.Logger, error) {
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000Z07:00"

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var writer io.Writer = os.Stdout
	if filename != "" {
		rot, err := newRotator(filename, maxSizeMB, maxBackups)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("opening log file: %w", err)
		}
		writer = io.MultiWriter(os.Stdout, rot)
	}

	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger(), nil
}
