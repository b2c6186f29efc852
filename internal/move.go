package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Mover performs the physical relocation of a media item and its companions
// to a finalized destination, then normalizes timestamps. In preview mode it
// only reports intent.
type Mover struct {
	Target  string
	Log     *RunLog
	Stamper TagStamper
	Config  *Config
	Preview bool
}

// Relocate executes a conflict resolution: duplicates are skipped or their
// source removed, everything else is moved to res.Path together with any
// companions. Per-companion log entries are written; a missing companion is
// not an error.
func (m *Mover) Relocate(item MediaItem, comp CompanionSet, cand DateCandidate, dest Destination, res Resolution) error {
	switch res.Action {
	case ActionSkipDuplicate:
		fmt.Printf("[=] Identical: %s (skipped)\n", item.Name)
		m.Log.RecordGlobal(item.Path, "skipped duplicate of "+dest.Path())
		return nil

	case ActionRemoveDuplicate:
		if m.Preview {
			fmt.Printf("[=] Identical: %s (would remove source)\n", item.Name)
			return nil
		}
		if err := os.Remove(item.Path); err != nil {
			return fmt.Errorf("failed to remove duplicate %s: %w", item.Path, err)
		}
		fmt.Printf("[=] Identical: %s (source removed)\n", item.Name)
		m.Log.RecordGlobal(item.Path, "removed duplicate of "+dest.Path())
		return nil

	case ActionConflictRename:
		fmt.Printf("[!] Conflict: %s → %s\n", item.Name, filepath.Base(res.Path))
	case ActionQuarantine:
		fmt.Printf("[!] Size conflict: %s → %s\n", item.Name,
			filepath.Join(ConflictsDirName, filepath.Base(res.Path)))
	}

	finalDir := filepath.Dir(res.Path)

	if m.Preview {
		fmt.Printf("[+] Would move: %s → %s\n", item.Name, m.display(res.Path))
		m.previewCompanions(comp, finalDir)
		return nil
	}

	if err := EnsureDir(finalDir); err != nil {
		return err
	}
	if err := moveFile(item.Path, res.Path); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", item.Path, res.Path, err)
	}
	m.Log.Record(dest.Dir, item.Path, res.Path)
	fmt.Printf("[+] Moved: %s → %s\n", item.Name, m.display(res.Path))

	m.restamp(res.Path, m.Config.CaptureTag(item.Ext), cand)
	m.moveCompanions(comp, finalDir, dest.Dir, cand)
	return nil
}

// moveCompanions relocates the thumbnail and sidecar into the primary's
// final directory, each with its own log entry and timestamp normalization.
func (m *Mover) moveCompanions(comp CompanionSet, finalDir, monthDir string, cand DateCandidate) {
	if comp.Thumbnail != "" {
		name := TransliterateName(filepath.Base(comp.Thumbnail))
		dest := safePath(filepath.Join(finalDir, name))
		if err := moveFile(comp.Thumbnail, dest); err != nil {
			fmt.Printf("[!] Failed to move thumbnail %s: %v\n", comp.Thumbnail, err)
		} else {
			m.Log.Record(monthDir, comp.Thumbnail, dest)
			fmt.Printf("[+] Moved thumbnail: %s → %s\n", filepath.Base(comp.Thumbnail), m.display(dest))
			m.restamp(dest, TagImageTaken, cand)
		}
	}

	if comp.Sidecar != "" {
		name := TransliterateName(filepath.Base(comp.Sidecar))
		dest := safePath(filepath.Join(finalDir, name))
		if err := moveFile(comp.Sidecar, dest); err != nil {
			fmt.Printf("[!] Failed to move sidecar %s: %v\n", comp.Sidecar, err)
		} else {
			m.Log.Record(monthDir, comp.Sidecar, dest)
			fmt.Printf("[+] Moved sidecar: %s → %s\n", filepath.Base(comp.Sidecar), m.display(dest))
			// Sidecars carry no embedded capture tag; normalize file times only.
			m.restamp(dest, "", cand)
		}
	}
}

func (m *Mover) previewCompanions(comp CompanionSet, finalDir string) {
	if comp.Thumbnail != "" {
		name := TransliterateName(filepath.Base(comp.Thumbnail))
		fmt.Printf("[+] Would move thumbnail: %s → %s\n",
			filepath.Base(comp.Thumbnail), m.display(filepath.Join(finalDir, name)))
	}
	if comp.Sidecar != "" {
		name := TransliterateName(filepath.Base(comp.Sidecar))
		fmt.Printf("[+] Would move sidecar: %s → %s\n",
			filepath.Base(comp.Sidecar), m.display(filepath.Join(finalDir, name)))
	}
}

// restamp rewrites the embedded capture tag (when one applies) and the file
// timestamps, skipped entirely when the modification time already matches
// the resolved date.
func (m *Mover) restamp(path, tag string, cand DateCandidate) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("[!] Failed to stat %s for restamp: %v\n", path, err)
		return
	}
	if info.ModTime().Truncate(time.Second).Equal(cand.Time) {
		return
	}

	if tag != "" {
		if err := m.Stamper.StampDate(path, tag, cand.Value); err != nil {
			fmt.Printf("[!] Failed to stamp metadata on %s: %v\n", path, err)
		}
	}
	if err := os.Chtimes(path, cand.Time, cand.Time); err != nil {
		fmt.Printf("[!] Failed to set timestamps on %s: %v\n", path, err)
	}
}

// display renders a destination path relative to the target root for
// console output.
func (m *Mover) display(path string) string {
	rel, err := filepath.Rel(m.Target, path)
	if err != nil {
		return path
	}
	return rel
}

// moveFile renames within a volume and degrades to copy+delete across
// volumes; the cross-volume path is not atomic.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	if err := copyFileAtomic(src, dest); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFileAtomic copies a file atomically (copy temp → rename)
func copyFileAtomic(src, dest string) error {
	tmp := dest + ".tmp"
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	out.Close()

	return os.Rename(tmp, dest)
}
