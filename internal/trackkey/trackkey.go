// Package trackkey derives the canonical identity used for a file across the
// track and criteria stores.
package trackkey

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// Normalize returns the canonical store key for a path: separators flattened
// to forward slashes, then lowercased. No filesystem access; idempotent. Two
// paths that differ only by separator style or case collapse to the same key.
func Normalize(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, `\`, "/"))
}

// Stem returns the file name without its extension.
func Stem(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, `\`, "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WaveformName returns the deterministic waveform cache file name for a path:
// the stem joined with a 10-character hash of the normalized key. Concurrent
// generation for the same key lands on the same name.
func WaveformName(path string) string {
	sum := sha1.Sum([]byte(Normalize(path)))
	return Stem(path) + "_" + hex.EncodeToString(sum[:])[:10] + ".png"
}

var supportedExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".aif":  {},
	".aiff": {},
}

// SupportedAudio reports whether the path carries a recognized audio extension.
func SupportedAudio(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
