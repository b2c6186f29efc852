package internal

import (
	"fmt"
	"sync/atomic"
)

// RunStats counts per-run outcomes. Workers increment concurrently.
type RunStats struct {
	Scanned     atomic.Int64
	Moved       atomic.Int64
	Duplicates  atomic.Int64
	Conflicts   atomic.Int64
	Quarantined atomic.Int64
	Skipped     atomic.Int64
	Errors      atomic.Int64
}

func (s *RunStats) Summary() string {
	return fmt.Sprintf("%d scanned, %d moved, %d duplicates, %d conflicts, %d quarantined, %d skipped, %d errors",
		s.Scanned.Load(), s.Moved.Load(), s.Duplicates.Load(), s.Conflicts.Load(),
		s.Quarantined.Load(), s.Skipped.Load(), s.Errors.Load())
}

// Count records a resolved action.
func (s *RunStats) Count(action Action) {
	switch action {
	case ActionMove:
		s.Moved.Add(1)
	case ActionSkipDuplicate, ActionRemoveDuplicate:
		s.Duplicates.Add(1)
	case ActionConflictRename:
		s.Conflicts.Add(1)
	case ActionQuarantine:
		s.Quarantined.Add(1)
	}
}
