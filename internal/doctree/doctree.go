package doctree

// FlagBold is the style-flag bit that marks a bold span.
const FlagBold = 2

// BBox is a bounding box in page coordinates, origin at the top-left.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// MidX returns the horizontal midpoint of the box.
func (b BBox) MidX() float64 {
	return (b.X0 + b.X1) / 2
}

// Span is a run of text with uniform styling.
type Span struct {
	Text  string  // Raw text as drawn
	BBox  BBox    // Position on the page
	Size  float64 // Font size in points
	Flags int     // Style bitmask, see FlagBold
	Font  string  // Base font name (informational)
}

// Bold reports whether the span carries the bold flag.
func (s Span) Bold() bool {
	return s.Flags&FlagBold != 0
}

// Line is an ordered group of spans sharing a visual text line.
type Line struct {
	Spans []Span
}

// Block is a group of lines the layout engine considers one paragraph.
type Block struct {
	Lines []Line
}

// Page is one page of a document.
type Page struct {
	Number int // 1-based
	Width  float64
	Height float64
	Blocks []Block
}

// Lines flattens the page's blocks into reading order.
func (p *Page) Lines() []Line {
	var lines []Line
	for _, b := range p.Blocks {
		lines = append(lines, b.Lines...)
	}
	return lines
}

// Document is the layout of a whole file, pages in order.
type Document struct {
	Pages []Page
}

// MeanFontSize returns the arithmetic mean of every span size in the
// document. ok is false when the document holds no spans.
func (d *Document) MeanFontSize() (mean float64, ok bool) {
	var sum float64
	var n int
	for i := range d.Pages {
		for _, b := range d.Pages[i].Blocks {
			for _, l := range b.Lines {
				for _, s := range l.Spans {
					sum += s.Size
					n++
				}
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
