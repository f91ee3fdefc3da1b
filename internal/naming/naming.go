// Package naming provides the default file-naming collaborators used
// by the downloader: base name sanitization and content-type to
// extension mapping. Both are pure functions with no filesystem or
// network access.
package naming

import (
	"mime"
	"strings"
)

const fallbackBaseName = "download"

// maxBaseNameLength keeps derived names comfortably inside common
// filesystem limits once an extension is appended.
const maxBaseNameLength = 200

// SanitizeBaseName reduces an arbitrary display name to something safe
// to use as a file name on the major platforms. Path separators and
// reserved characters become underscores, control characters are
// dropped, whitespace runs collapse, and an empty result falls back to
// a generic name.
func SanitizeBaseName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		case r < 0x20 || r == 0x7f:
			// control characters are dropped outright
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.Join(strings.Fields(b.String()), " ")
	cleaned = strings.TrimRight(cleaned, ". ")
	if len(cleaned) > maxBaseNameLength {
		cleaned = strings.TrimRight(cleaned[:maxBaseNameLength], ". ")
	}
	if cleaned == "" {
		return fallbackBaseName
	}
	return cleaned
}

// extensionOverrides pins the extension for media types where the
// platform MIME database is inconsistent across systems.
var extensionOverrides = map[string]string{
	"application/json":         ".json",
	"application/octet-stream": ".bin",
	"application/pdf":          ".pdf",
	"application/zip":          ".zip",
	"image/jpeg":               ".jpeg",
	"image/png":                ".png",
	"text/csv":                 ".csv",
	"text/html":                ".html",
	"text/plain":               ".txt",
	"text/xml":                 ".xml",
}

// ExtensionForContentType maps a Content-Type header value to a file
// extension including the leading dot. Unknown and unparseable types
// get ".bin"; a blank content type gets no extension at all.
func ExtensionForContentType(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".bin"
	}

	if ext, ok := extensionOverrides[mediaType]; ok {
		return ext
	}

	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	return exts[0]
}
