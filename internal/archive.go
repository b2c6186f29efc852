package internal

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/yeka/zip"
)

// ExtractOutcome reports how an archive extraction ended.
type ExtractOutcome int

const (
	ExtractOK ExtractOutcome = iota
	ExtractFailed
	ExtractNeedsCredential
	ExtractWrongCredential
)

var (
	ErrNeedsCredential = errors.New("archive requires a password")
	ErrBadCredential   = errors.New("wrong archive password")
)

// ArchiveExtractor is the injected extraction collaborator: archive path,
// destination directory, optional credential.
type ArchiveExtractor interface {
	Extract(path, destDir, password string) (ExtractOutcome, error)
}

// CredentialPrompt asks the operator for a password when the supplied one is
// wrong or absent. Returns the password and whether one was given.
type CredentialPrompt func(archive string) (string, bool)

func NewArchiveExtractor() ArchiveExtractor {
	return stdExtractor{}
}

type stdExtractor struct{}

func (stdExtractor) Extract(path, destDir, password string) (ExtractOutcome, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return extractZip(path, destDir, password)
	case ".tar", ".gz", ".tgz", ".bz2", ".xz":
		return extractTar(path, destDir)
	default:
		return ExtractFailed, fmt.Errorf("unsupported archive type: %s", path)
	}
}

// DrainArchives unpacks every recognized archive under root in place, before
// media enumeration. On success the archive file itself is removed. Failures
// are logged and skipped; they never abort the run.
func DrainArchives(root string, cfg *Config, extractor ArchiveExtractor, log *RunLog, password string, preview bool, prompt CredentialPrompt) {
	var archives []string
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if cfg.IsArchive(strings.ToLower(filepath.Ext(info.Name()))) {
			archives = append(archives, path)
		}
		return nil
	})

	for _, archive := range archives {
		if preview {
			fmt.Printf("[+] Would unpack: %s\n", archive)
			continue
		}

		destDir := filepath.Dir(archive)
		outcome, err := extractor.Extract(archive, destDir, password)
		if outcome == ExtractNeedsCredential || outcome == ExtractWrongCredential {
			if prompt != nil {
				if pw, ok := prompt(archive); ok {
					outcome, err = extractor.Extract(archive, destDir, pw)
				}
			}
		}
		if outcome != ExtractOK {
			fmt.Printf("[!] Failed to unpack %s: %v\n", archive, err)
			log.RecordGlobal(archive, fmt.Sprintf("unpack failed: %v", err))
			continue
		}

		log.RecordGlobal(archive, "Unpacked to "+destDir)
		fmt.Printf("[~] Unpacked: %s\n", archive)
		if err := os.Remove(archive); err != nil {
			fmt.Printf("[!] Failed to remove unpacked archive %s: %v\n", archive, err)
		}
	}
}

func extractZip(path, destDir, password string) (ExtractOutcome, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return ExtractFailed, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.IsEncrypted() {
			if password == "" {
				return ExtractNeedsCredential, fmt.Errorf("%s: %w", path, ErrNeedsCredential)
			}
			f.SetPassword(password)
		}
		if err := writeZipEntry(f, destDir); err != nil {
			if f.IsEncrypted() {
				// Decryption failures surface as read/checksum errors.
				return ExtractWrongCredential, fmt.Errorf("%s: %w", path, ErrBadCredential)
			}
			return ExtractFailed, err
		}
	}
	return ExtractOK, nil
}

func writeZipEntry(f *zip.File, destDir string) error {
	target, err := securePath(destDir, f.Name)
	if err != nil {
		return err
	}
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(target)
		return err
	}
	return out.Close()
}

func extractTar(path, destDir string) (ExtractOutcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return ExtractFailed, err
	}
	defer f.Close()

	var reader io.Reader = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".tgz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return ExtractFailed, err
		}
		defer gz.Close()
		reader = gz
	case ".bz2":
		reader = bzip2.NewReader(f)
	case ".xz":
		xzr, err := xz.NewReader(f)
		if err != nil {
			return ExtractFailed, err
		}
		reader = xzr
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return ExtractOK, nil
		}
		if err != nil {
			return ExtractFailed, err
		}

		target, err := securePath(destDir, hdr.Name)
		if err != nil {
			return ExtractFailed, err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return ExtractFailed, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return ExtractFailed, err
			}
			out, err := os.Create(target)
			if err != nil {
				return ExtractFailed, err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				os.Remove(target)
				return ExtractFailed, err
			}
			if err := out.Close(); err != nil {
				return ExtractFailed, err
			}
		}
	}
}

// securePath joins an archive entry name to the destination and rejects
// entries that would escape it. A leading "./" entry (tar -cf x.tar .)
// cleans to the destination itself and is legitimate.
func securePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	clean := filepath.Clean(destDir)
	if target == clean {
		return target, nil
	}
	if !strings.HasPrefix(target, clean+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return target, nil
}
