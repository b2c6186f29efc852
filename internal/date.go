package internal

import (
	"errors"
	"regexp"
	"time"

	"github.com/djherbis/times"
)

// DateLayout is the canonical local-time date string every source must
// produce: YYYY-MM-DD HH:MM:SS.
const DateLayout = "2006-01-02 15:04:05"

var (
	strictDateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
	zeroDateRe     = regexp.MustCompile(`^0000[-:]00[-:]00 00:00:00`)
	filenameDateRe = regexp.MustCompile(`(\d{8})_(\d{6})`)
)

// Provenance names the source that supplied an accepted date. Recorded for
// diagnostics only; downstream logic cares only that a date exists.
type Provenance string

const (
	ProvenanceEmbedded  Provenance = "embedded-capture-tag"
	ProvenanceSidecar   Provenance = "companion-json-sidecar"
	ProvenanceThumbnail Provenance = "companion-thumbnail-tag"
	ProvenanceFilename  Provenance = "filename-pattern"
	ProvenanceModTime   Provenance = "filesystem-modification-time"
)

// DateCandidate is the single authoritative timestamp accepted for a media
// item. Local-time semantics, no timezone conversion.
type DateCandidate struct {
	Value      string // canonical DateLayout string
	Time       time.Time
	Provenance Provenance
}

var (
	ErrNoDate      = errors.New("no valid date")
	ErrInvalidDate = errors.New("invalid date")
)

// DateResolver applies an ordered, short-circuiting chain of metadata
// sources: embedded capture tag, JSON sidecar, thumbnail tag, filename
// pattern, and (opt-in) filesystem modification time.
type DateResolver struct {
	Tags              TagReader
	Config            *Config
	FallbackToModTime bool
}

// Resolve returns the first valid DateCandidate for the item, or ErrNoDate
// when every source comes up empty. A source yielding a malformed value
// falls through to the next one.
func (r *DateResolver) Resolve(item MediaItem, comp CompanionSet) (DateCandidate, error) {
	sources := []struct {
		provenance Provenance
		read       func() string
	}{
		{ProvenanceEmbedded, func() string {
			return r.Tags.ReadTag(item.Path, r.Config.CaptureTag(item.Ext))
		}},
		{ProvenanceSidecar, func() string {
			if comp.Sidecar == "" {
				return ""
			}
			taken, ok := SidecarTakenTime(comp.Sidecar)
			if !ok {
				return ""
			}
			return taken.Format(DateLayout)
		}},
		{ProvenanceThumbnail, func() string {
			if comp.Thumbnail == "" {
				return ""
			}
			return r.Tags.ReadTag(comp.Thumbnail, TagVideoCreated)
		}},
		{ProvenanceFilename, func() string {
			return dateFromFilename(item.Name)
		}},
		{ProvenanceModTime, func() string {
			if !r.FallbackToModTime {
				return ""
			}
			ts, err := times.Stat(item.Path)
			if err != nil {
				return ""
			}
			return ts.ModTime().Format(DateLayout)
		}},
	}

	for _, source := range sources {
		raw := source.read()
		if raw == "" {
			continue
		}
		cand, err := parseCandidate(raw, source.provenance)
		if err != nil {
			continue
		}
		// Final guard: the accepted string must be strictly canonical even
		// if a source handed back something non-conforming but non-empty.
		if !strictDateRe.MatchString(cand.Value) {
			return DateCandidate{}, ErrInvalidDate
		}
		return cand, nil
	}

	return DateCandidate{}, ErrNoDate
}

// parseCandidate validates a raw date string: strict layout, a real calendar
// date, and not the all-zero sentinel some tools emit for missing tags.
func parseCandidate(raw string, provenance Provenance) (DateCandidate, error) {
	if zeroDateRe.MatchString(raw) {
		return DateCandidate{}, ErrInvalidDate
	}
	if !strictDateRe.MatchString(raw) {
		return DateCandidate{}, ErrInvalidDate
	}
	t, err := time.ParseInLocation(DateLayout, raw, time.Local)
	if err != nil {
		return DateCandidate{}, ErrInvalidDate
	}
	return DateCandidate{
		Value:      raw,
		Time:       t,
		Provenance: provenance,
	}, nil
}

// dateFromFilename extracts a YYYYMMDD_HHMMSS token (e.g.
// VID_20200714_153000.mp4) and rejects values that do not form a real
// calendar date.
func dateFromFilename(name string) string {
	m := filenameDateRe.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	t, err := time.ParseInLocation("20060102_150405", m[1]+"_"+m[2], time.Local)
	if err != nil {
		return ""
	}
	return t.Format(DateLayout)
}
