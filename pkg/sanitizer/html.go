package sanitizer

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	lessonPolicy *bluemonday.Policy
	initOnce     sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		// strictPolicy strips ALL HTML, returns plain text
		strictPolicy = bluemonday.StrictPolicy()

		// lessonPolicy allows the formatting teachers use in lesson
		// content and course descriptions.
		lessonPolicy = bluemonday.NewPolicy()
		lessonPolicy.AllowStandardURLs()
		lessonPolicy.AllowElements(
			"p", "br", "h2", "h3", "h4",
			"strong", "b", "em", "i", "u",
			"ul", "ol", "li",
			"table", "thead", "tbody", "tr", "th", "td",
			"code", "pre", "blockquote",
		)
		lessonPolicy.AllowAttrs("href").OnElements("a")
		lessonPolicy.RequireNoFollowOnLinks(true)
	})
}

// StripHTML removes every tag, returning plain text. Use for titles,
// names, and any field that must never carry markup.
func StripHTML(s string) string {
	initPolicies()
	return strictPolicy.Sanitize(s)
}

// SanitizeHTML allows the safe formatting subset used in lesson content
// (paragraphs, headings, emphasis, lists, tables, code). Scripts, event
// handlers, and javascript: URLs are stripped.
func SanitizeHTML(s string) string {
	initPolicies()
	return lessonPolicy.Sanitize(s)
}

// SanitizeHTMLCustom applies a custom bluemonday policy.
// Returns input unchanged if policy is nil.
func SanitizeHTMLCustom(s string, policy *bluemonday.Policy) string {
	if policy == nil {
		return s
	}
	return policy.Sanitize(s)
}

// SanitizeFilename strips path components and dangerous characters from
// an upload name. Only letters, digits, dots, dashes, and underscores
// survive; everything else becomes an underscore. Leading dots are
// removed so the result can't be a hidden file or traversal fragment.
func SanitizeFilename(name string) string {
	// Drop any path prefix, both separator styles.
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := strings.TrimLeft(b.String(), ".")
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	return out
}
