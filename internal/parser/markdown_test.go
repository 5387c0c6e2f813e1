package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docoutline/internal/outline"
)

func TestMarkdownParser_HeadingHierarchy(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

#### Too deep

## Section B

Section B content.
`
	p := &MarkdownParser{}
	res, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Title != "Title" {
		t.Errorf("expected title %q, got %q", "Title", res.Title)
	}

	want := []outline.Heading{
		{Level: outline.H2, Text: "Section A", Page: 1},
		{Level: outline.H3, Text: "Subsection A1", Page: 1},
		{Level: outline.H2, Text: "Section B", Page: 1},
	}
	if len(res.Outline) != len(want) {
		t.Fatalf("expected %d headings, got %+v", len(want), res.Outline)
	}
	for i := range want {
		if res.Outline[i] != want[i] {
			t.Errorf("heading %d: expected %+v, got %+v", i, want[i], res.Outline[i])
		}
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := `Just some plain text.

Another paragraph here.`

	p := &MarkdownParser{}
	res, err := p.Parse(strings.NewReader(input), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != outline.FallbackTitle {
		t.Errorf("expected fallback title, got %q", res.Title)
	}
	if res.Outline == nil || len(res.Outline) != 0 {
		t.Errorf("expected empty non-nil outline, got %#v", res.Outline)
	}
}

func TestMarkdownParser_InlineMarkupAndDuplicates(t *testing.T) {
	input := "# API `Reference`\n\n## The *Endpoints*\n\nText.\n\n## the endpoints\n\nSetext Heading\n--------------\n"

	p := &MarkdownParser{}
	res, err := p.Parse(strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "API Reference" {
		t.Errorf("expected title %q, got %q", "API Reference", res.Title)
	}
	if len(res.Outline) != 2 {
		t.Fatalf("expected 2 headings, got %+v", res.Outline)
	}
	if res.Outline[0].Text != "The Endpoints" {
		t.Errorf("expected %q, got %q", "The Endpoints", res.Outline[0].Text)
	}
	if res.Outline[1].Text != "Setext Heading" || res.Outline[1].Level != outline.H2 {
		t.Errorf("unexpected setext heading %+v", res.Outline[1])
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	res, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Outline) != 0 {
		t.Errorf("expected 0 headings for empty input, got %d", len(res.Outline))
	}
}
