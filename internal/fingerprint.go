package internal

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// Fingerprint computes the SHA256 hash of a file's content. Used only for
// equality comparison between files, never reversed.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
