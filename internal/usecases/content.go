package usecases

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ContentFormatter strips markup from stored message text and renders it as
// safe HTML for display.
type ContentFormatter struct {
	strict   *bluemonday.Policy
	ugc      *bluemonday.Policy
	markdown goldmark.Markdown
}

func NewContentFormatter() *ContentFormatter {
	return &ContentFormatter{
		strict:   bluemonday.StrictPolicy(),
		ugc:      bluemonday.UGCPolicy(),
		markdown: goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough)),
	}
}

// maxCleanPasses bounds entity decoding for nested encodings.
const maxCleanPasses = 4

// Clean returns plain text with all HTML removed. Entities are decoded and the
// result sanitized again until it stops changing, so encoded markup cannot
// come back as tags. Input that is still changing after maxCleanPasses is
// returned in its escaped form.
func (f *ContentFormatter) Clean(s string) string {
	s = SanitizeString(s)
	for range maxCleanPasses {
		sanitized := f.strict.Sanitize(s)
		decoded := html.UnescapeString(sanitized)
		if decoded == s {
			return strings.TrimSpace(decoded)
		}
		if f.strict.Sanitize(decoded) == sanitized {
			return strings.TrimSpace(decoded)
		}
		s = decoded
	}
	return strings.TrimSpace(f.strict.Sanitize(s))
}

// RenderHTML converts markdown text to sanitized HTML.
func (f *ContentFormatter) RenderHTML(s string) string {
	var buf bytes.Buffer
	if err := f.markdown.Convert([]byte(s), &buf); err != nil {
		return html.EscapeString(s)
	}
	return strings.TrimSpace(f.ugc.Sanitize(buf.String()))
}
