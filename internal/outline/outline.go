// Package outline infers a document title and a three-level heading outline
// from typographic layout data, and assembles the per-document result.
package outline

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FallbackTitle is reported when no title candidate exists.
const FallbackTitle = "Untitled Document"

// Level is a coarse heading rank.
type Level string

const (
	H1 Level = "H1"
	H2 Level = "H2"
	H3 Level = "H3"
)

// Depth returns 1, 2 or 3 for a valid level and 0 otherwise.
func (l Level) Depth() int {
	switch l {
	case H1:
		return 1
	case H2:
		return 2
	case H3:
		return 3
	}
	return 0
}

// LevelForDepth maps a structural heading depth (1-based) to a Level.
// Depths outside 1..3 have no level.
func LevelForDepth(depth int) (Level, bool) {
	switch depth {
	case 1:
		return H1, true
	case 2:
		return H2, true
	case 3:
		return H3, true
	}
	return "", false
}

// Heading is one entry of an outline.
type Heading struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
	Page  int    `json:"page"`
}

// Result is the document-structure summary of one file.
type Result struct {
	Title   string    `json:"title"`
	Outline []Heading `json:"outline"`
}

// Empty returns the result for a document with no content.
func Empty() Result {
	return Result{Title: FallbackTitle, Outline: []Heading{}}
}

// Builder accumulates headings for one document, enforcing that the title
// line never appears and that each case-insensitive text appears once.
// A Builder is not safe for concurrent use; create one per document.
type Builder struct {
	title    string
	titleKey string
	seen     map[string]struct{}
	headings []Heading
}

// NewBuilder starts an outline for a document with the given title.
func NewBuilder(title string) *Builder {
	title = strings.TrimSpace(title)
	return &Builder{
		title:    title,
		titleKey: lowerKey(title),
		seen:     make(map[string]struct{}),
		headings: []Heading{},
	}
}

// Add appends a heading unless its text is empty, matches the title, or was
// already seen. It reports whether the heading was kept.
func (b *Builder) Add(level Level, text string, page int) bool {
	text = CleanText(text)
	if text == "" || level.Depth() == 0 {
		return false
	}
	key := lowerKey(text)
	if key == b.titleKey {
		return false
	}
	if _, dup := b.seen[key]; dup {
		return false
	}
	b.seen[key] = struct{}{}
	b.headings = append(b.headings, Heading{Level: level, Text: text, Page: page})
	return true
}

// IsTitle reports whether text normalizes to the document title.
func (b *Builder) IsTitle(text string) bool {
	return lowerKey(text) == b.titleKey
}

// Result returns the finished outline. The builder must not be used after.
func (b *Builder) Result() Result {
	return Result{Title: b.title, Outline: b.headings}
}

// lowerKey is the comparison key for titles and headings: trimmed, then
// lowercased with Unicode rules. "Straße" and "STRASSE" stay distinct.
func lowerKey(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}
