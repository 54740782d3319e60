// Package paths maps raw transcript files back to the working directory of
// the project that produced them.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// EncodePathForClaude encodes a filesystem path the way Claude does for project directories.
// Claude replaces every character other than ASCII letters, digits and "-"
// with "-" and ensures a leading dash.
func EncodePathForClaude(path string) string {
	encoded := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '-'
	}, path)
	encoded = strings.TrimPrefix(encoded, "-")
	return "-" + encoded
}

// segmentSeparators are the characters that can sit between decoded parts
// inside a single path component, most common first.
var segmentSeparators = []string{".", "-", "_", " "}

// DecodeClaudeProjectPath reverses EncodePathForClaude. The encoding is lossy
// so every candidate split is checked against the filesystem, depth first
// with the shortest matching component tried first. The second return value
// reports whether the path was verified on disk; when no decomposition
// exists the naive "-" to "/" substitution is returned unverified.
func DecodeClaudeProjectPath(encoded string) (string, bool) {
	if !strings.HasPrefix(encoded, "-") {
		return encoded, false
	}

	parts := strings.Split(encoded[1:], "-")
	if found, ok := findPath(parts, string(filepath.Separator)); ok {
		return found, true
	}

	return "/" + strings.ReplaceAll(encoded[1:], "-", "/"), false
}

func findPath(parts []string, current string) (string, bool) {
	if len(parts) == 0 {
		return current, exists(current)
	}

	for length := 1; length <= len(parts); length++ {
		remaining := parts[length:]
		for _, segment := range candidateSegments(parts[:length]) {
			candidate := filepath.Join(current, segment)
			if !exists(candidate) {
				continue
			}
			if len(remaining) == 0 {
				return candidate, true
			}
			if found, ok := findPath(remaining, candidate); ok {
				return found, true
			}
		}
	}
	return "", false
}

// candidateSegments lists the directory names a run of decoded parts could
// have come from.
func candidateSegments(run []string) []string {
	if len(run) == 1 {
		return []string{run[0]}
	}
	out := make([]string, 0, len(segmentSeparators))
	for _, sep := range segmentSeparators {
		out = append(out, strings.Join(run, sep))
	}
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsValidSessionUUID checks if a string is a valid Claude session UUID.
// Valid UUIDs are 36 characters with 4 dashes (e.g., cf568042-7147-4fba-a2ca-c6a646581260)
func IsValidSessionUUID(s string) bool {
	return len(s) == 36 && strings.Count(s, "-") == 4
}
