package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MediaItem identifies one candidate file discovered under the source root.
type MediaItem struct {
	Path string // absolute source path
	Ext  string // lowercase extension including the dot
	Size int64
	Name string // raw filename
}

// CompanionSet holds the auxiliary artifacts bound to a MediaItem by name
// stem: a thumbnail sharing the stem and a JSON sidecar named <file>.json.
// Empty path means the companion does not exist.
type CompanionSet struct {
	Thumbnail string
	Sidecar   string
}

func NewMediaItem(path string) (MediaItem, error) {
	info, err := os.Stat(path)
	if err != nil {
		return MediaItem{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return MediaItem{
		Path: path,
		Ext:  strings.ToLower(filepath.Ext(path)),
		Size: info.Size(),
		Name: filepath.Base(path),
	}, nil
}

// FindCompanions locates the thumbnail and sidecar for an item. The
// thumbnail replaces the item's extension (IMG_0001.jpg -> IMG_0001.THM,
// either case); the sidecar appends .json to the full name.
func FindCompanions(item MediaItem, thumbExt string) CompanionSet {
	var comp CompanionSet

	stem := strings.TrimSuffix(item.Path, filepath.Ext(item.Path))
	for _, ext := range []string{strings.ToUpper(thumbExt), strings.ToLower(thumbExt)} {
		candidate := stem + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			comp.Thumbnail = candidate
			break
		}
	}

	sidecar := item.Path + ".json"
	if info, err := os.Stat(sidecar); err == nil && !info.IsDir() {
		comp.Sidecar = sidecar
	}

	return comp
}

// ScanMediaFiles scans the source directory recursively for files whose
// extension is in the configured image or video sets. Archives are never
// media candidates; they are drained by the extraction pass beforehand.
func ScanMediaFiles(sourceDir string, cfg *Config) ([]string, error) {
	var files []string
	err := filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(info.Name()))
		if cfg.IsImage(ext) || cfg.IsVideo(ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning files: %w", err)
	}
	return files, nil
}
