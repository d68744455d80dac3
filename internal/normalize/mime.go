package normalize

import (
	"net/url"
	"path"
	"strings"
)

// GenericBinaryKind is used when a media URL's extension is unrecognized.
const GenericBinaryKind = "application/octet-stream"

// mimeKinds maps known image file extensions to MIME kinds.
var mimeKinds = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
}

// MimeKind infers the MIME kind of a media URL from its file extension.
// The inference is pure: the same URL always yields the same kind, which
// lets stored media be re-inferred at render time.
func MimeKind(rawURL string) string {
	ext := path.Ext(rawURL)
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		ext = path.Ext(parsed.Path)
	}

	if kind, ok := mimeKinds[strings.ToLower(ext)]; ok {
		return kind
	}
	return GenericBinaryKind
}
