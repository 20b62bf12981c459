package util

import (
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".pdf":  true,
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// AllowedFile reports whether the filename has an accepted image or PDF extension.
func AllowedFile(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ContentTypeByExt resolves the MIME type from the file extension, defaulting to
// application/octet-stream for anything unknown.
func ContentTypeByExt(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// StoredName builds a collision-free object name for an upload: a fresh UUID
// prefix plus the sanitized original base name.
func StoredName(filename string) string {
	base := filepath.Base(filename)
	base = unsafeChars.ReplaceAllString(base, "_")
	return uuid.New().String() + "_" + base
}
