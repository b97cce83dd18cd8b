package config

import "strings"

const (
	// DefaultDatabasePath is the default path for the course metadata database
	DefaultDatabasePath = "./courseshelf.db"

	// DefaultDownloadsDir holds downloaded course files under courses/
	DefaultDownloadsDir = "./data"

	DefaultFirebaseStorageURL = "https://firebasestorage.googleapis.com"
)

// splitList parses a comma separated env value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
