// Package render assembles the HTML digest and converts it into archive formats.
// This file implements the digest assembler: one markup fragment per post,
// wrapped in a fixed style block.
package render

import (
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/gaurav-prasanna/subdigest/core"
	"github.com/gaurav-prasanna/subdigest/core/markup"
	"github.com/gaurav-prasanna/subdigest/core/normalize"
)

// GalleryPrefix identifies gallery posts, which have no text to quote.
const GalleryPrefix = "https://www.reddit.com/gallery"

// DefaultExclusions drop posts whose normalized content contains any of them.
var DefaultExclusions = []string{normalize.SkippedImageContent, GalleryPrefix}

const (
	titleLinkStyle   = "color: black !important; text-decoration: none;"
	contentLinkStyle = "color: #FF4500 !important; text-decoration: none; font-weight: bold;"
)

const styleBlock = `
    <style>
        .container { font-family: Arial, sans-serif; margin-bottom: 20px; }
        h1 { font-size: 30px; margin: 0; color: black; }
        h1 a { color: black !important; text-decoration: none; font-weight: normal; }
        p { font-size: 14px; margin: 5px 0; }
        a { color: #FF4500 !important; text-decoration: none; font-weight: bold; }
    </style>
    `

// Options tune the assembler.
type Options struct {
	// Exclusions replaces DefaultExclusions when non-nil.
	Exclusions []string
	Now        func() time.Time
}

// BuildDigest assembles posts with the default options and returns the HTML.
func BuildDigest(posts []core.PostRecord) string {
	return Assemble(posts, Options{}).HTML
}

// Assemble builds one fragment per surviving post, in input order.
func Assemble(posts []core.PostRecord, opts Options) core.Digest {
	exclusions := opts.Exclusions
	if exclusions == nil {
		exclusions = DefaultExclusions
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	d := core.Digest{GeneratedAt: now().UTC()}
	var body strings.Builder
	for _, post := range posts {
		content := normalize.Normalize(post)
		if excluded(content, exclusions) {
			d.Excluded++
			continue
		}
		body.WriteString(Fragment(post.Title, post.URL, content).Render())

		post.Content = content
		d.Posts = append(d.Posts, post)
	}

	d.Body = body.String()
	d.HTML = styleBlock + d.Body + "\n    "
	return d
}

// Fragment builds the markup for one post with already-normalized content.
func Fragment(title, postURL, content string) *markup.Node {
	div := markup.MustNew("div", "", markup.A("class_", "container"))
	h1 := markup.MustNew("h1", "")
	attach(h1, markup.MustNew("a", title, markup.A("href", postURL), markup.A("style", titleLinkStyle)))

	var p *markup.Node
	if IsAbsoluteURL(content) {
		p = markup.MustNew("p", "")
		attach(p, markup.MustNew("a", content, markup.A("href", content), markup.A("style", contentLinkStyle)))
	} else {
		p = markup.MustNew("p", content)
	}

	attach(div, h1, p, markup.MustNew("br", ""), markup.MustNew("br", ""))
	return div
}

// IsAbsoluteURL reports whether s is a well-formed absolute http(s) or ftp URL.
func IsAbsoluteURL(s string) bool {
	if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp":
	default:
		return false
	}
	return u.Host != "" && u.Hostname() != ""
}

func excluded(content string, exclusions []string) bool {
	for _, phrase := range exclusions {
		if phrase != "" && strings.Contains(content, phrase) {
			return true
		}
	}
	return false
}

// attach adds freshly built children; failure means a programming error.
func attach(parent *markup.Node, children ...*markup.Node) {
	for _, c := range children {
		if err := parent.AddChild(c); err != nil {
			panic(err)
		}
	}
}
