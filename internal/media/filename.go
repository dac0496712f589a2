package media

import (
	"regexp"
	"strings"
)

// DefaultUploader names files whose uploader is unknown.
const DefaultUploader = "Guest"

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func safeName(s string) string {
	return unsafeChars.ReplaceAllString(s, "_")
}

// BuildUploadFilename prefixes the original file name with the uploader's
// display name so the album can attribute it later.
func BuildUploadFilename(displayName, originalName string) string {
	if strings.TrimSpace(displayName) == "" {
		displayName = DefaultUploader
	}
	return safeName(displayName) + "_" + safeName(originalName)
}

// ParseUploader recovers the uploader from a name built by BuildUploadFilename.
func ParseUploader(fileName string) string {
	idx := strings.Index(fileName, "_")
	if idx <= 0 {
		return DefaultUploader
	}
	return fileName[:idx]
}
