package blog

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewTitle(t *testing.T) {
	title, err := NewTitle("  My First Post  ")
	if err != nil {
		t.Fatalf("NewTitle failed: %v", err)
	}
	if title.Value() != "My First Post" {
		t.Errorf("expected trimmed title, got %q", title.Value())
	}

	if _, err := NewTitle("   "); err == nil {
		t.Error("blank title should be rejected")
	}

	if _, err := NewTitle(strings.Repeat("a", MaxTitleLength+1)); err == nil {
		t.Error("title over max length should be rejected")
	}

	boundary, err := NewTitle(strings.Repeat("a", MaxTitleLength))
	if err != nil {
		t.Fatalf("title at max length should be accepted: %v", err)
	}
	if len(boundary.Value()) != MaxTitleLength {
		t.Errorf("unexpected title length %d", len(boundary.Value()))
	}
}

func TestTitleSlug(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"Go: The Good Parts!", "go-the-good-parts"},
		{"  Multiple   Spaces  ", "multiple-spaces"},
		{"Café déjà-vu", "cafe-deja-vu"},
		{"100% Coverage", "100-coverage"},
	}

	for _, tc := range cases {
		title, err := NewTitle(tc.title)
		if err != nil {
			t.Fatalf("NewTitle(%q) failed: %v", tc.title, err)
		}
		if got := title.Slug().Value(); got != tc.want {
			t.Errorf("Slug(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestNewSlug(t *testing.T) {
	if _, err := NewSlug("valid-slug-123"); err != nil {
		t.Errorf("valid slug rejected: %v", err)
	}

	for _, bad := range []string{"", "UPPER", "trailing-", "-leading", "double--dash", "spa ce", "under_score"} {
		if _, err := NewSlug(bad); err == nil {
			t.Errorf("slug %q should be rejected", bad)
		}
	}
}

func TestContentPublishable(t *testing.T) {
	short, err := NewContent("too short")
	if err != nil {
		t.Fatalf("NewContent failed: %v", err)
	}
	if short.IsPublishable() {
		t.Error("short content should not be publishable")
	}

	long, err := NewContent(strings.Repeat("x", MinContentLengthToPublish))
	if err != nil {
		t.Fatalf("NewContent failed: %v", err)
	}
	if !long.IsPublishable() {
		t.Error("content at minimum length should be publishable")
	}

	// Surrounding whitespace does not count toward the minimum
	padded, err := NewContent("  " + strings.Repeat("x", MinContentLengthToPublish-1) + "  ")
	if err != nil {
		t.Fatalf("NewContent failed: %v", err)
	}
	if padded.IsPublishable() {
		t.Error("padding should not make content publishable")
	}

	if _, err := NewContent(""); err == nil {
		t.Error("empty content should be rejected")
	}
}

func TestTitleLengthCountsCharacters(t *testing.T) {
	// 150 characters but 240 bytes: must be accepted.
	mixed := strings.Repeat("a", 90) + strings.Repeat("é", 60)
	if _, err := NewTitle(mixed); err != nil {
		t.Fatalf("multibyte title under the limit rejected: %v", err)
	}

	if _, err := NewTitle(strings.Repeat("あ", MaxTitleLength)); err != nil {
		t.Errorf("multibyte title at max length rejected: %v", err)
	}
	if _, err := NewTitle(strings.Repeat("あ", MaxTitleLength+1)); err == nil {
		t.Error("multibyte title over max length should be rejected")
	}
}

func TestContentPublishableCountsCharacters(t *testing.T) {
	// 40 characters is 120 bytes; a byte count would call this publishable.
	short, err := NewContent(strings.Repeat("あ", 40))
	if err != nil {
		t.Fatalf("NewContent failed: %v", err)
	}
	if short.IsPublishable() {
		t.Error("40-character content should not be publishable")
	}
	if got := short.PublishableLength(); got != 40 {
		t.Errorf("PublishableLength = %d, want 40", got)
	}

	long, err := NewContent(strings.Repeat("あ", MinContentLengthToPublish))
	if err != nil {
		t.Fatalf("NewContent failed: %v", err)
	}
	if !long.IsPublishable() {
		t.Error("content at the character minimum should be publishable")
	}
}

func TestExcerptKeepsRunesIntact(t *testing.T) {
	content, err := NewContent(strings.Repeat("あ", 300))
	if err != nil {
		t.Fatalf("NewContent failed: %v", err)
	}
	excerpt := content.Excerpt(50)
	if !utf8.ValidString(excerpt) {
		t.Fatalf("excerpt is not valid UTF-8: %q", excerpt)
	}
	trimmed := strings.TrimSuffix(excerpt, "...")
	if got := utf8.RuneCountInString(trimmed); got > 50 {
		t.Errorf("excerpt has %d characters, want at most 50", got)
	}

	full, err := NewContent("short body")
	if err != nil {
		t.Fatalf("NewContent failed: %v", err)
	}
	if got := full.Excerpt(50); got != "short body" {
		t.Errorf("content under the limit should be returned as-is, got %q", got)
	}
}

func TestContentTooShortErrorCarriesLengths(t *testing.T) {
	err := NewContentTooShortError(42)
	if !errors.Is(err, ErrContentTooShort) {
		t.Fatal("expected ErrContentTooShort sentinel")
	}
	var tooShort *ContentTooShortError
	if !errors.As(err, &tooShort) {
		t.Fatal("expected *ContentTooShortError")
	}
	if tooShort.Current != 42 || tooShort.Min != MinContentLengthToPublish {
		t.Errorf("unexpected lengths: current=%d min=%d", tooShort.Current, tooShort.Min)
	}
}
