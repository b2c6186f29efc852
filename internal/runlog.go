package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunLog writes one line per event to a global log under the target root
// and mirrors it to a per-month log inside the destination directory.
// Pre-existing logs are rotated to <name>.<N> before the run's first write:
// the global one at construction, each monthly one on first touch.
//
// A single mutex covers the rotated-months check-and-set and the paired
// appends, so concurrent workers can neither double-rotate a month nor
// interleave another event between the two halves of an entry.
type RunLog struct {
	mu      sync.Mutex
	target  string
	name    string
	preview bool
	rotated map[string]bool
}

func NewRunLog(target, name string, preview bool) (*RunLog, error) {
	l := &RunLog{
		target:  target,
		name:    name,
		preview: preview,
		rotated: make(map[string]bool),
	}
	if !preview {
		if err := rotateLog(filepath.Join(target, name)); err != nil {
			return nil, fmt.Errorf("failed to rotate global log: %w", err)
		}
	}
	return l, nil
}

// Record appends "<ISO timestamp> | src -> dst" to the global log and to the
// month log for monthDir. In preview mode nothing is written.
func (l *RunLog) Record(monthDir, src, dst string) {
	entry := fmt.Sprintf("%s | %s -> %s\n", time.Now().Format(time.RFC3339), src, dst)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.preview {
		return
	}

	if monthDir != "" && !l.rotated[monthDir] {
		if err := rotateLog(filepath.Join(monthDir, l.name)); err != nil {
			fmt.Printf("[!] Failed to rotate log in %s: %v\n", monthDir, err)
		}
		l.rotated[monthDir] = true
	}

	appendLine(filepath.Join(l.target, l.name), entry)
	if monthDir != "" {
		appendLine(filepath.Join(monthDir, l.name), entry)
	}
}

// RecordGlobal logs an event that has no destination month, e.g. archive
// unpacking or a skipped item.
func (l *RunLog) RecordGlobal(src, description string) {
	l.Record("", src, description)
}

// rotateLog moves an existing log aside to the first unused .N backup.
// Missing log means nothing to rotate.
func rotateLog(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}
	for i := 1; ; i++ {
		backup := fmt.Sprintf("%s.%d", path, i)
		if _, err := os.Stat(backup); errors.Is(err, os.ErrNotExist) {
			return os.Rename(path, backup)
		}
	}
}

func appendLine(path, line string) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Printf("[!] Failed to open log %s: %v\n", path, err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		fmt.Printf("[!] Failed to write log %s: %v\n", path, err)
	}
}
