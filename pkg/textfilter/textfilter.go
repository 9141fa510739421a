// Package textfilter converts untrusted text into safe HTML or plain text.
// The functions back the sanitize, striptags and markdown template filters.
package textfilter

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	strictPolicy   *bluemonday.Policy
	safePolicy     *bluemonday.Policy
	markdownPolicy *bluemonday.Policy
	md             goldmark.Markdown
	initOnce       sync.Once
)

func initFilters() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		// basic formatting for user-generated content
		safePolicy = bluemonday.NewPolicy()
		safePolicy.AllowStandardURLs()
		safePolicy.AllowElements(
			"p", "br",
			"strong", "b", "em", "i",
			"ul", "ol", "li",
			"code", "pre", "blockquote",
		)
		safePolicy.AllowAttrs("href").OnElements("a")
		safePolicy.RequireNoFollowOnLinks(true)

		markdownPolicy = bluemonday.UGCPolicy()

		md = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
}

// Sanitize keeps basic formatting tags and strips everything else,
// including scripts, event handlers and javascript: URLs.
func Sanitize(s string) template.HTML {
	initFilters()
	return template.HTML(safePolicy.Sanitize(s)) //nolint:gosec // sanitized above
}

// StripTags removes all markup and returns plain text.
func StripTags(s string) string {
	initFilters()
	return strictPolicy.Sanitize(s)
}

// Markdown renders GitHub-flavored markdown and sanitizes the result.
func Markdown(s string) (template.HTML, error) {
	initFilters()
	var buf bytes.Buffer
	if err := md.Convert([]byte(s), &buf); err != nil {
		return "", fmt.Errorf("textfilter: render markdown: %w", err)
	}
	return template.HTML(markdownPolicy.SanitizeBytes(buf.Bytes())), nil //nolint:gosec // sanitized above
}

// WithPolicy applies a custom bluemonday policy.
// Returns input unchanged if policy is nil.
func WithPolicy(s string, policy *bluemonday.Policy) string {
	if policy == nil {
		return s
	}
	return policy.Sanitize(s)
}

// Funcs returns the filters as a template.FuncMap.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"sanitize":  Sanitize,
		"striptags": StripTags,
		"markdown":  Markdown,
	}
}
