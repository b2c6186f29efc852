package internal

import (
	"fmt"
	"os"
	"time"

	exiftool "github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"
)

// Embedded tag names for the capture moment.
const (
	TagImageTaken   = "DateTimeOriginal"
	TagVideoCreated = "CreateDate"
)

// exiftool emits and accepts dates in this shape when configured with
// exiftoolDateFormat.
const (
	exiftoolDateFormat = "%Y-%m-%d %H:%M:%S"
	goexifDateLayout   = "2006:01:02 15:04:05"
)

// TagReader extracts an embedded date tag from a media file. A missing or
// unreadable tag yields the empty string, never an error.
type TagReader interface {
	ReadTag(path, tag string) string
}

// TagStamper writes the capture date back into a relocated file's embedded
// metadata.
type TagStamper interface {
	StampDate(path, tag, value string) error
}

// MetadataClient is the injected metadata collaborator: tag reads during
// date resolution, tag writes after relocation.
type MetadataClient interface {
	TagReader
	TagStamper
	Close() error
}

// NewMetadataClient returns an exiftool-backed client when the binary is
// available, otherwise a pure-Go EXIF reader that handles images only.
func NewMetadataClient() MetadataClient {
	et, err := exiftool.NewExiftool(exiftool.DateFormant(exiftoolDateFormat))
	if err != nil {
		fmt.Printf("[~] exiftool unavailable (%v), falling back to built-in EXIF reader\n", err)
		return nativeClient{}
	}
	return &exiftoolClient{et: et}
}

type exiftoolClient struct {
	et *exiftool.Exiftool
}

func (c *exiftoolClient) ReadTag(path, tag string) string {
	metas := c.et.ExtractMetadata(path)
	if len(metas) == 0 || metas[0].Err != nil {
		return ""
	}
	value, err := metas[0].GetString(tag)
	if err != nil {
		return ""
	}
	return value
}

func (c *exiftoolClient) StampDate(path, tag, value string) error {
	meta := exiftool.FileMetadata{
		File:   path,
		Fields: map[string]interface{}{},
	}
	meta.SetString(tag, value)
	metas := []exiftool.FileMetadata{meta}
	c.et.WriteMetadata(metas)
	if metas[0].Err != nil {
		return fmt.Errorf("failed to stamp %s on %s: %w", tag, path, metas[0].Err)
	}
	return nil
}

func (c *exiftoolClient) Close() error {
	return c.et.Close()
}

// nativeClient decodes EXIF with rwcarlsen/goexif. Video containers carry no
// EXIF, so video tags read as absent; embedded stamping is skipped (file
// timestamps are still normalized by the relocation step).
type nativeClient struct{}

func (nativeClient) ReadTag(path, tag string) string {
	if tag != TagImageTaken {
		return ""
	}

	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return ""
	}
	t, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return ""
	}
	raw, err := t.StringVal()
	if err != nil {
		return ""
	}

	parsed, err := time.ParseInLocation(goexifDateLayout, raw, time.Local)
	if err != nil {
		return ""
	}
	return parsed.Format(DateLayout)
}

func (nativeClient) StampDate(path, tag, value string) error { return nil }

func (nativeClient) Close() error { return nil }
