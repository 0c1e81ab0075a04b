package utils

import (
	"path/filepath"
	"strings"
)

// SanitizeFilename replaces characters that are invalid in file or folder
// names on common filesystems.
func SanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")
	return result
}

// IsPlainFilename reports whether name can be joined under a directory
// without leaving it: no separators, no dot segments.
func IsPlainFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.Base(name) == name
}
