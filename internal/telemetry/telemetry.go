// Package telemetry appends structured JSONL events describing turns and
// tool executions. Only sizes, durations and identifiers are recorded,
// never message or tool payload text.
package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventsFile is the file name written inside the configured directory.
const EventsFile = "events.jsonl"

var (
	mu      sync.Mutex
	enabled bool
	baseDir = ".calagent"
)

// Configure enables or disables emission and sets the output directory.
func Configure(on bool, dir string) {
	mu.Lock()
	defer mu.Unlock()
	enabled = on
	if dir != "" {
		baseDir = dir
	}
}

// Enabled reports whether Emit writes anything.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Path returns the events file location.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return filepath.Join(baseDir, EventsFile)
}

// Emit writes a single JSON line to <dir>/events.jsonl when enabled.
// It augments fields with RFC3339Nano time and the event name.
func Emit(name string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return
	}

	// Make a shallow copy so callers' maps aren't mutated.
	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	b, err := json.Marshal(m)
	if err != nil {
		log.WithError(err).Warn("telemetry: marshal")
		return
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		log.WithError(err).WithField("dir", baseDir).Warn("telemetry: mkdir")
		return
	}
	path := filepath.Join(baseDir, EventsFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("telemetry: open")
		return
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		log.WithError(err).WithField("path", path).Warn("telemetry: write")
	}
}
