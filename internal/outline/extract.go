package outline

import (
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Size thresholds, all exclusive.
const (
	headingMinSize = 12.0
	h1MinSize      = 16.0
	h2MinSize      = 13.0
	h3MinSize      = 11.0
)

// ClassifyLevel maps a font size to a heading level. Sizes of 11 and below
// have no level.
func ClassifyLevel(size float64) (Level, bool) {
	switch {
	case size > h1MinSize:
		return H1, true
	case size > h2MinSize:
		return H2, true
	case size > h3MinSize:
		return H3, true
	}
	return "", false
}

// Extract builds the title and outline of doc in a single pass over its
// pages in reading order. A document without pages yields Empty().
func Extract(doc *doctree.Document) Result {
	if doc == nil || len(doc.Pages) == 0 {
		return Empty()
	}

	b := NewBuilder(ExtractTitle(&doc.Pages[0]))
	for i := range doc.Pages {
		page := &doc.Pages[i]
		for _, line := range page.Lines() {
			scanLine(b, line, page.Number)
		}
	}
	return b.Result()
}

// scanLine offers one line to the builder. A bold line passes the heading
// gate regardless of size, but still needs a size-derived level to be kept.
func scanLine(b *Builder, line doctree.Line, page int) {
	if len(line.Spans) == 0 {
		return
	}
	text := LineText(line)
	if text == "" || b.IsTitle(text) {
		return
	}

	size := MaxSize(line)
	if !IsBold(line) && size <= headingMinSize {
		return
	}
	level, ok := ClassifyLevel(size)
	if !ok {
		return
	}
	b.Add(level, text, page)
}

// LineText joins the cleaned text of each span with single spaces.
// Spans that clean to nothing are skipped.
func LineText(line doctree.Line) string {
	parts := make([]string, 0, len(line.Spans))
	for _, s := range line.Spans {
		if t := CleanText(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// MaxSize returns the largest font size among the line's spans.
func MaxSize(line doctree.Line) float64 {
	var size float64
	for i, s := range line.Spans {
		if i == 0 || s.Size > size {
			size = s.Size
		}
	}
	return size
}

// IsBold reports whether any span of the line is bold.
func IsBold(line doctree.Line) bool {
	for _, s := range line.Spans {
		if s.Bold() {
			return true
		}
	}
	return false
}
