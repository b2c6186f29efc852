package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// pathLocks hands out one mutex per destination path so that occupancy
// checks and the move that follows are atomic per destination. Without it,
// two workers carrying same-named files into the same month can both see
// the path unoccupied and the second rename would replace the first file.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *pathLocks) lock(path string) *sync.Mutex {
	p.mu.Lock()
	m, ok := p.locks[path]
	if !ok {
		m = &sync.Mutex{}
		p.locks[path] = m
	}
	p.mu.Unlock()
	m.Lock()
	return m
}

// Options carries the per-run configuration from the CLI.
type Options struct {
	Source            string
	Target            string
	Preview           bool
	FallbackToModTime bool
	RemoveDuplicates  bool
	ExtractArchives   bool
	Password          string
	Workers           int
}

// Organizer coordinates a run: archive draining, enumeration, fan-out over a
// bounded worker pool, and the end-of-run empty-directory sweep. All shared
// mutable state lives in the RunLog and RunStats it owns.
type Organizer struct {
	cfg       *Config
	opts      Options
	log       *RunLog
	metadata  MetadataClient
	extractor ArchiveExtractor
	prompt    CredentialPrompt
	stats     RunStats
	resolver  *DateResolver
	mover     *Mover
	destLocks *pathLocks
}

func NewOrganizer(cfg *Config, opts Options, metadata MetadataClient, extractor ArchiveExtractor, prompt CredentialPrompt) (*Organizer, error) {
	if opts.Workers < 1 {
		opts.Workers = cfg.DefaultWorkers()
	}
	if !opts.Preview {
		if err := os.MkdirAll(opts.Target, 0755); err != nil {
			return nil, fmt.Errorf("failed to create target directory %s: %w", opts.Target, err)
		}
	}

	log, err := NewRunLog(opts.Target, cfg.LogName, opts.Preview)
	if err != nil {
		return nil, err
	}

	o := &Organizer{
		cfg:       cfg,
		opts:      opts,
		log:       log,
		metadata:  metadata,
		extractor: extractor,
		prompt:    prompt,
		destLocks: newPathLocks(),
	}
	o.resolver = &DateResolver{
		Tags:              metadata,
		Config:            cfg,
		FallbackToModTime: opts.FallbackToModTime,
	}
	o.mover = &Mover{
		Target:  opts.Target,
		Log:     log,
		Stamper: metadata,
		Config:  cfg,
		Preview: opts.Preview,
	}
	return o, nil
}

func (o *Organizer) Stats() *RunStats {
	return &o.stats
}

// Run executes the full pipeline. Per-item failures are contained at the
// item boundary; only enumeration failure is returned.
func (o *Organizer) Run() error {
	if o.opts.ExtractArchives {
		DrainArchives(o.opts.Source, o.cfg, o.extractor, o.log, o.opts.Password, o.opts.Preview, o.prompt)
	}

	files, err := ScanMediaFiles(o.opts.Source, o.cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d media files\n", len(files))

	workers := pool.New().WithMaxGoroutines(o.opts.Workers)
	for _, path := range files {
		path := path // per-iteration copy: required while go.mod targets go < 1.22
		workers.Go(func() {
			o.stats.Scanned.Add(1)
			if err := o.processFile(path); err != nil {
				o.stats.Errors.Add(1)
				fmt.Printf("[!] Error processing %s: %v\n", path, err)
				o.log.RecordGlobal(path, fmt.Sprintf("error: %v", err))
			}
		})
	}
	workers.Wait()

	if !o.opts.Preview {
		o.removeEmptyDirs()
	}

	fmt.Printf("Done: %s\n", o.stats.Summary())
	return nil
}

// processFile runs one item through date resolution, destination naming,
// conflict resolution and relocation.
func (o *Organizer) processFile(path string) error {
	item, err := NewMediaItem(path)
	if err != nil {
		return err
	}
	comp := FindCompanions(item, o.cfg.ThumbExt)

	cand, err := o.resolver.Resolve(item, comp)
	if err != nil {
		o.stats.Skipped.Add(1)
		fmt.Printf("[!] Skipping: %s (%v)\n", path, err)
		o.log.RecordGlobal(path, fmt.Sprintf("skipped: %v", err))
		return nil
	}
	switch cand.Provenance {
	case ProvenanceThumbnail:
		fmt.Printf("[~] Using thumbnail metadata: %s → %s\n", comp.Thumbnail, cand.Value)
	case ProvenanceModTime:
		fmt.Printf("[~] Fallback to file timestamp: %s → %s\n", path, cand.Value)
	}

	dest := ResolveDestination(o.opts.Target, cand, item)
	if !o.opts.Preview {
		if err := EnsureDir(dest.Dir); err != nil {
			return err
		}
	}

	// The occupancy check and the move must be one atomic unit per
	// destination path, or concurrent same-named items both classify as
	// plain moves and the later rename replaces the earlier file.
	lock := o.destLocks.lock(dest.Path())
	defer lock.Unlock()

	res, err := ResolveConflict(item, dest, o.opts.RemoveDuplicates, time.Now())
	if err != nil {
		return err
	}
	if err := o.mover.Relocate(item, comp, cand, dest, res); err != nil {
		return err
	}
	o.stats.Count(res.Action)
	return nil
}

// removeEmptyDirs prunes directories under the source root left empty by the
// relocations, deepest first. Removal errors are logged, never fatal.
func (o *Organizer) removeEmptyDirs() {
	var dirs []string
	filepath.Walk(o.opts.Source, func(path string, info os.FileInfo, err error) error {
		if err == nil && info.IsDir() && path != o.opts.Source {
			dirs = append(dirs, path)
		}
		return nil
	})

	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], string(os.PathSeparator)) > strings.Count(dirs[j], string(os.PathSeparator))
	})

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			fmt.Printf("[!] Failed to read %s during cleanup: %v\n", dir, err)
			continue
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			fmt.Printf("[!] Failed to remove empty directory %s: %v\n", dir, err)
		}
	}
}
