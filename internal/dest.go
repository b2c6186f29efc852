package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/mozillazg/go-unidecode"
)

var cyrillicRe = regexp.MustCompile(`\p{Cyrillic}`)

// Destination is the resolved (directory, filename) pair for a media item.
type Destination struct {
	Dir  string // <target>/YYYY/MM
	Name string
}

func (d Destination) Path() string {
	return filepath.Join(d.Dir, d.Name)
}

// ResolveDestination derives the candidate destination from an accepted
// date: the year/month folder verbatim from the candidate, the filename
// transliterated when it carries Cyrillic characters.
func ResolveDestination(targetRoot string, cand DateCandidate, item MediaItem) Destination {
	dir := filepath.Join(targetRoot,
		fmt.Sprintf("%04d", cand.Time.Year()),
		fmt.Sprintf("%02d", cand.Time.Month()))
	return Destination{Dir: dir, Name: TransliterateName(item.Name)}
}

// TransliterateName converts a Cyrillic filename to its Latin phonetic
// equivalent. Names without Cyrillic pass through untouched.
func TransliterateName(name string) string {
	if !cyrillicRe.MatchString(name) {
		return name
	}
	return unidecode.Unidecode(name)
}

// EnsureDir creates the destination directory. Safe to race across workers:
// MkdirAll tolerates "already exists".
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// safePath generates an unoccupied path if dest exists by appending _2, _3...
func safePath(dest string) string {
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return dest
	}
	ext := filepath.Ext(dest)
	base := dest[:len(dest)-len(ext)]
	for i := 2; ; i++ {
		try := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(try); os.IsNotExist(err) {
			return try
		}
	}
}
