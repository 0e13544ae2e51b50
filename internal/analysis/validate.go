package analysis

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultMaxUploadBytes is the upload size ceiling (100 MB).
const DefaultMaxUploadBytes = 100 * 1024 * 1024

// ValidExtensions is the capture file extension allow-list.
var ValidExtensions = []string{".pcap", ".pcapng", ".cap"}

// ValidateUpload checks an upload before any work happens: filename
// extension, non-empty content, and the size ceiling. The returned errors
// are user-facing.
func ValidateUpload(filename string, size, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if filename == "" {
		return fmt.Errorf("no filename provided")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	valid := false
	for _, v := range ValidExtensions {
		if ext == v {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid file type %q, supported types: %s", ext, strings.Join(ValidExtensions, ", "))
	}

	if size == 0 {
		return fmt.Errorf("empty file")
	}
	if size > maxBytes {
		return fmt.Errorf("file too large, maximum size is %d MB", maxBytes/(1024*1024))
	}
	return nil
}
