// Package eventlog records connection lifecycle and channel metadata events
// as tab-separated lines, one record per line, in a file and on the console.
package eventlog

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultFileName is used when activation is requested without a path.
const DefaultFileName = "server.log"

// TimeLayout renders local time as "2006-09-30 11:38:08".
const TimeLayout = "2006-01-02 15:04:05"

// Category identifies the record type.
type Category string

const (
	CategoryConnect Category = "CONNECT"
	CategoryIdle    Category = "IDLE"
	CategoryChannel Category = "CHANNEL"
)

// Record is a single formatted event.
type Record struct {
	Time     time.Time
	Category Category
	Fields   []string
}

// String renders the record without a trailing newline.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString(r.Time.Format(TimeLayout))
	b.WriteByte('\t')
	b.WriteString(string(r.Category))
	for _, f := range r.Fields {
		b.WriteByte('\t')
		b.WriteString(f)
	}
	return b.String()
}

// Logger owns the event log file. The zero value is not usable; call New.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	enabled bool
	console io.Writer
	now     func() time.Time
}

// Option customises a Logger.
type Option func(*Logger)

// WithConsole replaces the console mirror (stdout by default). A nil writer
// disables mirroring.
func WithConsole(w io.Writer) Option {
	return func(l *Logger) { l.console = w }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// New returns an inactive logger; only console mirroring happens until
// Activate succeeds.
func New(opts ...Option) *Logger {
	l := &Logger{console: os.Stdout, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Activate opens path for appending. On failure the file sink stays
// disabled and the error is returned for the caller's diagnostics only.
// Calling Activate again switches to the new file.
func (l *Logger) Activate(path string) error {
	if path == "" {
		path = DefaultFileName
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
		l.enabled = false
	}
	if err != nil {
		return err
	}
	l.file = f
	l.enabled = true
	return nil
}

// Enabled reports whether records are written to the file.
func (l *Logger) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Close closes the file sink.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = false
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Connect records a client joining; active is the connection count
// including the new client.
func (l *Logger) Connect(address string, active int) {
	l.emit(CategoryConnect, address, "connected ("+strconv.Itoa(active)+")")
}

// Idle records the server becoming empty.
func (l *Logger) Idle() {
	l.emit(CategoryIdle)
}

// ChannelInfoChanged records a client's channel name change. Nothing is
// formatted or printed unless the file sink is active.
func (l *Logger) ChannelInfoChanged(address, name string) {
	if !l.Enabled() {
		return
	}
	l.emit(CategoryChannel, address, SanitizeName(name))
}

func (l *Logger) emit(category Category, fields ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := Record{Time: l.now(), Category: category, Fields: fields}.String() + "\n"
	if l.console != nil {
		io.WriteString(l.console, line)
	}
	if !l.enabled || l.file == nil {
		return
	}
	// Best effort: a failed write is not retried.
	if _, err := l.file.WriteString(line); err == nil {
		l.file.Sync()
	}
}

var nameReplacer = strings.NewReplacer(
	"\n", " ",
	"\r", " ",
	"\t", " ",
	`\`, `\\`,
	`"`, `\"`,
)

// SanitizeName keeps a channel name on one line and inside one TSV column:
// CR, LF and tab become spaces, backslash and double quote are escaped.
func SanitizeName(name string) string {
	return nameReplacer.Replace(name)
}
