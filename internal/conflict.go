package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ConflictsDirName is the quarantine subdirectory for same-name files of
// differing size inside a destination month directory.
const ConflictsDirName = "conflicts"

// Action classifies what the relocation executor must do with an item.
type Action int

const (
	ActionMove Action = iota
	ActionSkipDuplicate
	ActionRemoveDuplicate
	ActionConflictRename
	ActionQuarantine
)

func (a Action) String() string {
	switch a {
	case ActionMove:
		return "move"
	case ActionSkipDuplicate:
		return "skip-duplicate"
	case ActionRemoveDuplicate:
		return "remove-duplicate"
	case ActionConflictRename:
		return "conflict-rename"
	case ActionQuarantine:
		return "quarantine"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of conflict resolution. Path is the final
// destination; empty for duplicate outcomes, which never touch the
// destination.
type Resolution struct {
	Action Action
	Path   string
}

// ResolveConflict decides what happens when a candidate destination may be
// occupied. Precedence: size mismatch quarantines without hashing; equal
// size compares fingerprints, equal digests are duplicates and differing
// digests get a _copy_<timestamp> rename in the same month directory.
func ResolveConflict(item MediaItem, dest Destination, removeDuplicates bool, stamp time.Time) (Resolution, error) {
	destPath := dest.Path()

	info, err := os.Stat(destPath)
	if errors.Is(err, os.ErrNotExist) {
		return Resolution{Action: ActionMove, Path: destPath}, nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to stat %s: %w", destPath, err)
	}

	if info.Size() != item.Size {
		// Different size, same name: a distinct file. Keep the name, place
		// it under conflicts/. No hashing needed.
		quarantine := filepath.Join(dest.Dir, ConflictsDirName, dest.Name)
		return Resolution{Action: ActionQuarantine, Path: safePath(quarantine)}, nil
	}

	srcHash, err := Fingerprint(item.Path)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to hash source %s: %w", item.Path, err)
	}
	destHash, err := Fingerprint(destPath)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to hash destination %s: %w", destPath, err)
	}

	if srcHash == destHash {
		if removeDuplicates {
			return Resolution{Action: ActionRemoveDuplicate}, nil
		}
		return Resolution{Action: ActionSkipDuplicate}, nil
	}

	// Two conflicts against the same occupant within one second would
	// synthesize the same name; walk to a free slot.
	renamed := copyName(dest.Name, stamp)
	return Resolution{Action: ActionConflictRename, Path: safePath(filepath.Join(dest.Dir, renamed))}, nil
}

// copyName inserts a _copy_<timestamp> token before the extension.
func copyName(name string, stamp time.Time) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_copy_%s%s", stem, stamp.Format("20060102_150405"), ext)
}
