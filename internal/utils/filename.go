package utils

import (
	"regexp"
	"strings"
)

var (
	// Anything outside word characters, whitespace, dashes and dots
	disallowedFilenameChars = regexp.MustCompile(`[^\w\s\-.]`)
	// Whitespace runs become a single underscore
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// SanitizeFilename makes a course code or title safe to use as a file name.
// It drops every character other than letters, digits, underscore,
// whitespace, dash and dot, then replaces whitespace runs with "_".
func SanitizeFilename(filename string) string {
	filename = disallowedFilenameChars.ReplaceAllString(filename, "")
	filename = strings.TrimSpace(filename)
	filename = whitespaceRuns.ReplaceAllString(filename, "_")

	// Limit length (most filesystems support 255, but leave room for extension)
	if len(filename) > 200 {
		filename = filename[:200]
	}

	// Dot-only names would point at the parent or current directory
	if strings.Trim(filename, ".") == "" {
		filename = "Untitled"
	}

	return filename
}
