package outline

import (
	"math"

	"github.com/dgallion1/docoutline/internal/doctree"
)

const (
	// centerTolerance is how far a span's midpoint may sit from the page's
	// horizontal center and still count as centered.
	centerTolerance = 50.0

	// titleMinSize is the exclusive lower bound on title font size.
	titleMinSize = 16.0
)

// ExtractTitle returns the largest centered text on page. Ties on size go to
// the span that comes first in reading order.
func ExtractTitle(page *doctree.Page) string {
	if page == nil {
		return FallbackTitle
	}

	var (
		best     string
		bestSize float64
		found    bool
	)
	for _, b := range page.Blocks {
		for _, l := range b.Lines {
			for _, s := range l.Spans {
				if s.Size <= titleMinSize || !isCentered(s, page.Width) {
					continue
				}
				text := CleanText(s.Text)
				if text == "" {
					continue
				}
				if !found || s.Size > bestSize {
					best, bestSize, found = text, s.Size, true
				}
			}
		}
	}
	if !found {
		return FallbackTitle
	}
	return best
}

func isCentered(s doctree.Span, pageWidth float64) bool {
	return math.Abs(s.BBox.MidX()-pageWidth/2) <= centerTolerance
}
