package blog

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"blog/domain/shared"
)

// MaxTitleLength is the upper bound for a post title.
const MaxTitleLength = 200

// Title post title value object.
// Always valid once constructed: trimmed, non-empty, at most 200 characters.
type Title struct {
	value string
}

// NewTitle creates a validated Title
func NewTitle(raw string) (Title, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return Title{}, shared.NewValidationError("post", "title", "title cannot be empty")
	}
	// Limits count characters, not bytes
	if n := utf8.RuneCountInString(cleaned); n > MaxTitleLength {
		return Title{}, shared.NewValidationError("post", "title",
			fmt.Sprintf("title exceeds %d characters (current: %d)", MaxTitleLength, n))
	}
	return Title{value: cleaned}, nil
}

func (t Title) Value() string  { return t.value }
func (t Title) String() string { return t.value }

// Slug derives the url-safe slug from the title: ASCII lowercase, accents
// folded, non-alphanumerics dropped, whitespace collapsed to hyphens.
func (t Title) Slug() Slug {
	return Slug{value: slugify(t.value)}
}

// accentFold maps common accented latin letters to their ASCII base.
var accentFold = strings.NewReplacer(
	"á", "a", "à", "a", "ä", "a", "â", "a",
	"é", "e", "è", "e", "ë", "e", "ê", "e",
	"í", "i", "ì", "i", "ï", "i", "î", "i",
	"ó", "o", "ò", "o", "ö", "o", "ô", "o",
	"ú", "u", "ù", "u", "ü", "u", "û", "u",
	"ñ", "n",
)

func slugify(raw string) string {
	s := accentFold.Replace(strings.ToLower(raw))

	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := true // suppress leading hyphen
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastHyphen = false
		case r == ' ' || r == '\t' || r == '\n' || r == '-' || r == '_':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// Slug url-safe post identifier: lowercase letters, digits and hyphens only.
type Slug struct {
	value string
}

// NewSlug validates an externally supplied slug (e.g. loaded from storage)
func NewSlug(raw string) (Slug, error) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return Slug{}, shared.NewValidationError("post", "slug", "slug cannot be empty")
	}
	prev := rune(0)
	for i, r := range cleaned {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') ||
			(r == '-' && i > 0 && i < len(cleaned)-1 && prev != '-')
		if !valid {
			return Slug{}, shared.NewValidationError("post", "slug",
				fmt.Sprintf("invalid slug %q: only lowercase letters, digits and single hyphens", cleaned))
		}
		prev = r
	}
	return Slug{value: cleaned}, nil
}

func (s Slug) Value() string  { return s.value }
func (s Slug) String() string { return s.value }

// MinContentLengthToPublish is the minimum trimmed content length a post
// needs before it can be published.
const MinContentLengthToPublish = 100

// Content post body. Markdown is allowed; the domain only cares about length.
type Content struct {
	value string
}

// NewContent creates validated Content (non-empty; publishability is checked
// separately at publish time)
func NewContent(raw string) (Content, error) {
	if strings.TrimSpace(raw) == "" {
		return Content{}, shared.NewValidationError("post", "content", "content cannot be empty")
	}
	return Content{value: raw}, nil
}

func (c Content) Value() string  { return c.value }
func (c Content) String() string { return c.value }

// PublishableLength is the trimmed character count measured against the
// publish minimum.
func (c Content) PublishableLength() int {
	return utf8.RuneCountInString(strings.TrimSpace(c.value))
}

// IsPublishable reports whether the content meets the publish minimum
func (c Content) IsPublishable() bool {
	return c.PublishableLength() >= MinContentLengthToPublish
}

// WordCount returns the number of whitespace-separated words
func (c Content) WordCount() int {
	return len(strings.Fields(c.value))
}

// Excerpt returns a truncated summary, cut at a word boundary.
// maxChars counts characters; the cut never splits a multibyte rune.
func (c Content) Excerpt(maxChars int) string {
	if utf8.RuneCountInString(c.value) <= maxChars {
		return c.value
	}
	seen := 0
	end := len(c.value)
	for i := range c.value {
		if seen == maxChars {
			end = i
			break
		}
		seen++
	}
	cut := c.value[:end]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}
