package normalize

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

// Kind is the inferred media type class of a post URL.
type Kind int

const (
	// KindPage is anything that is not an image; it gets fetched.
	KindPage Kind = iota
	// KindImage is never fetched.
	KindImage
)

func (k Kind) String() string {
	if k == KindImage {
		return "image"
	}
	return "page"
}

// imageExtensions backs up the MIME table, whose contents depend on the host.
var imageExtensions = map[string]bool{
	".jpeg": true, ".jpg": true, ".png": true, ".gif": true,
	".bmp": true, ".webp": true, ".svg": true, ".ico": true,
	".tif": true, ".tiff": true, ".avif": true,
}

// Classify infers whether rawURL points at an image from its path suffix.
// The suffix is looked up in the MIME table first and then in a fixed list.
// Query strings and fragments are ignored.
func Classify(rawURL string) Kind {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return KindPage
	}
	if imageExtensions[ext] {
		return KindImage
	}
	if strings.HasPrefix(mime.TypeByExtension(ext), "image/") {
		return KindImage
	}
	return KindPage
}
