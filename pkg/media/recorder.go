package media

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rexliu/jamctl/pkg/control"
)

// recorder tracks where sessions are written. A session directory is open
// while recording is enabled and the directory is usable. Callers hold
// Server.mu.
type recorder struct {
	dir         string
	enabled     bool
	initialised bool
	errMsg      string
	session     string
	now         func() time.Time
}

func (r *recorder) status() control.RecorderStatus {
	return control.RecorderStatus{
		Initialised:        r.initialised,
		ErrorMessage:       r.errMsg,
		Enabled:            r.enabled,
		RecordingDirectory: r.dir,
	}
}

// setDirectory switches the target directory. The directory must be
// creatable and writable, otherwise the recorder is left uninitialised with
// the reason in errMsg.
func (r *recorder) setDirectory(dir string) {
	r.endSession()
	r.dir = dir
	r.initialised = false
	r.errMsg = ""
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.errMsg = err.Error()
		return
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		r.errMsg = err.Error()
		return
	}
	probe.Close()
	os.Remove(probe.Name())
	r.initialised = true
	r.startSession()
}

func (r *recorder) setEnabled(enabled bool) {
	r.enabled = enabled
	if !enabled {
		r.endSession()
		return
	}
	if r.session == "" {
		r.startSession()
	}
}

// restart closes the current session and opens a fresh one.
func (r *recorder) restart() {
	if !r.enabled {
		return
	}
	r.endSession()
	r.startSession()
}

func (r *recorder) startSession() {
	if !r.enabled || !r.initialised {
		return
	}
	now := r.now()
	id := ulid.MustNew(ulid.Timestamp(now), rand.Reader)
	name := fmt.Sprintf("Jam-%s-%s", now.Format("20060102-150405"), id.String())
	path := filepath.Join(r.dir, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		r.errMsg = err.Error()
		return
	}
	r.errMsg = ""
	r.session = path
}

func (r *recorder) endSession() {
	r.session = ""
}
