package parser

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docoutline/internal/outline"
)

var (
	// ErrUnsupported is returned for file types no parser handles.
	ErrUnsupported = errors.New("unsupported file extension")

	// ErrUnreadable wraps failures to open or decode a document.
	ErrUnreadable = errors.New("unreadable document")
)

// Parser extracts the outline of one document.
type Parser interface {
	Parse(r io.Reader, filename string) (*outline.Result, error)
}

// Options tune the parsers returned by ForFile.
type Options struct {
	// PreferBookmarks builds PDF outlines from embedded bookmarks when the
	// file carries any.
	PreferBookmarks bool

	Log *slog.Logger
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFParser{PreferBookmarks: opts.PreferBookmarks, Log: log}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// heading is a structural heading read from a markup format.
type heading struct {
	depth int
	text  string
}

// buildStructured turns explicit heading markup into an outline. The title
// is the given one when set, else the first depth-1 heading. Headings deeper
// than three levels are dropped. Markup formats have no pages, so every
// heading reports page 1.
func buildStructured(title string, headings []heading) *outline.Result {
	title = outline.CleanText(title)
	if title == "" {
		for _, h := range headings {
			if h.depth == 1 && outline.CleanText(h.text) != "" {
				title = outline.CleanText(h.text)
				break
			}
		}
	}
	if title == "" {
		title = outline.FallbackTitle
	}

	b := outline.NewBuilder(title)
	for _, h := range headings {
		level, ok := outline.LevelForDepth(h.depth)
		if !ok {
			continue
		}
		b.Add(level, h.text, 1)
	}
	res := b.Result()
	return &res
}
