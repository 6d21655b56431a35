package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rexliu/jamctl/pkg/config"
)

// Logger wraps a charm logger and owns its optional log file.
type Logger struct {
	*log.Logger
	file *rollingFile
}

// New returns a logger writing to stdout at info level.
func New(prefix string) *Logger {
	return &Logger{Logger: log.NewWithOptions(os.Stdout, log.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           log.InfoLevel,
	})}
}

// Configure applies logging settings from config. FilePath is used as given;
// callers resolve it against the profile directory.
func (l *Logger) Configure(cfg config.LoggingConfig) error {
	if l == nil || l.Logger == nil {
		return nil
	}
	if cfg.Level != "" {
		level, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		l.SetLevel(level)
	}
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o700); err != nil {
			return err
		}
		writer, err := newRollingFile(cfg.FilePath, cfg.FileMaxSize)
		if err != nil {
			return err
		}
		l.closeFile()
		l.file = writer
		l.SetOutput(io.MultiWriter(os.Stdout, writer))
	}
	return nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.SetOutput(os.Stdout)
	return l.closeFile()
}

func (l *Logger) closeFile() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// rollingFile renames the file to <path>.1 once it would exceed max MB. A
// failed reopen leaves file nil and the next Write retries it.
type rollingFile struct {
	mu   sync.Mutex
	path string
	max  int64
	size int64
	file *os.File
	open func(path string) (*os.File, error)
}

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

func newRollingFile(path string, maxMB int) (*rollingFile, error) {
	r := &rollingFile{path: path, max: int64(maxMB) * 1024 * 1024, open: openLogFile}
	if err := r.reopen(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rollingFile) reopen() error {
	f, err := r.open(r.path)
	if err != nil {
		return err
	}
	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	r.file, r.size = f, size
	return nil
}

func (r *rollingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	r.file = nil
	// A failed rename keeps appending to the current file.
	_ = os.Rename(r.path, r.path+".1")
	return r.reopen()
}

func (r *rollingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		if err := r.reopen(); err != nil {
			return 0, err
		}
	}
	if r.max > 0 && r.size > 0 && r.size+int64(len(p)) > r.max {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *rollingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
