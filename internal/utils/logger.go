package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger writes structured log lines to a file, or to stderr when no file is set.
type Logger struct {
	zerolog.Logger

	mu   sync.Mutex
	path string
	file *os.File
	stop chan struct{}
}

// NewLogger creates a new logger instance. An empty filePath logs to stderr.
func NewLogger(filePath, level string, pretty bool) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	l := &Logger{path: filePath, stop: make(chan struct{})}
	var out io.Writer = os.Stderr
	if filePath != "" {
		if err := EnsureParentDir(filePath); err != nil {
			return nil, fmt.Errorf("failed to create log dir: %w", err)
		}
		file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
		out = l
	}
	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	l.Logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return l, nil
}

// NewNopLogger discards everything; used by tests.
func NewNopLogger() *Logger {
	return &Logger{Logger: zerolog.Nop(), stop: make(chan struct{})}
}

// Write lets the reopenable file sit behind zerolog.
func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return os.Stderr.Write(p)
	}
	return l.file.Write(p)
}

// Close stops rotation and closes the log file.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

// RotateLog starts reopening the log file every interval until Close, so
// external rotation (logrotate, mv) is picked up. It returns immediately.
func (l *Logger) RotateLog(interval time.Duration) {
	if l.path == "" || interval <= 0 {
		return
	}
	go l.rotate(interval)
}

func (l *Logger) rotate(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			if err := l.reopen(); err != nil {
				l.Error().Err(err).Msg("failed to rotate log file")
				return
			}
		}
	}
}

func (l *Logger) reopen() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	l.file.Close()
	l.file = file
	return nil
}
