package parser

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/outline"
	pdflib "github.com/ledongthuc/pdf"
)

// Default page size (US Letter) used when a page has no usable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// PDFParser builds a glyph layout with ledongthuc/pdf and runs the outline
// heuristic over it. With PreferBookmarks, embedded bookmarks read by pdfcpu
// replace the heuristic outline when the file has any.
type PDFParser struct {
	PreferBookmarks bool
	Log             *slog.Logger
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*outline.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	log := p.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("file", filename)

	doc, err := ReadLayout(data)
	if err != nil {
		return nil, err
	}

	if mean, ok := doc.MeanFontSize(); ok {
		log.Debug("font size baseline", "mean_size", math.Round(mean*100)/100, "pages", len(doc.Pages))
	}

	res := outline.Extract(doc)
	if !p.PreferBookmarks {
		return &res, nil
	}

	info, err := InspectPDF(data)
	if err != nil {
		log.Debug("pdf inspection failed", "error", err)
		return &res, nil
	}
	if info.PageCount != len(doc.Pages) {
		log.Warn("page count mismatch", "layout_pages", len(doc.Pages), "pdfcpu_pages", info.PageCount)
	}
	if len(info.Bookmarks) > 0 {
		log.Info("using embedded bookmarks", "bookmarks", countBookmarks(info.Bookmarks))
		res = OutlineFromBookmarks(res.Title, info.Bookmarks)
	}
	return &res, nil
}

// ReadLayout decodes every page of a PDF into lines and spans. Pages the
// library cannot resolve are kept as empty pages so numbering stays stable.
func ReadLayout(data []byte) (doc *doctree.Document, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = fmt.Errorf("%w: pdf decoder panic: %v", ErrUnreadable, rec)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	doc = &doctree.Document{}
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, doctree.Page{Number: i, Width: defaultPageWidth, Height: defaultPageHeight})
			continue
		}
		box := pageBox(page)
		doc.Pages = append(doc.Pages, BuildPage(i, box, page.Content().Text))
	}
	return doc, nil
}

// Box is the visible page area in PDF user space plus the page's clockwise
// display rotation (0, 90, 180 or 270).
type Box struct {
	LLX, LLY, URX, URY float64
	Rotate             int
}

func (b Box) width() float64  { return b.URX - b.LLX }
func (b Box) height() float64 { return b.URY - b.LLY }

// displaySize is the page size as shown, after rotation.
func (b Box) displaySize() (w, h float64) {
	if b.Rotate == 90 || b.Rotate == 270 {
		return b.height(), b.width()
	}
	return b.width(), b.height()
}

// toDisplay maps a user-space point to display coordinates with a top-left
// origin.
func (b Box) toDisplay(x, y float64) (float64, float64) {
	u, v := x-b.LLX, b.URY-y
	switch b.Rotate {
	case 90:
		return b.height() - v, u
	case 180:
		return b.width() - u, b.height() - v
	case 270:
		return v, b.width() - u
	}
	return u, v
}

// rect maps a user-space rectangle to a display bbox.
func (b Box) rect(x0, y0, x1, y1 float64) doctree.BBox {
	ax, ay := b.toDisplay(x0, y0)
	bx, by := b.toDisplay(x1, y1)
	return doctree.BBox{
		X0: math.Min(ax, bx), Y0: math.Min(ay, by),
		X1: math.Max(ax, bx), Y1: math.Max(ay, by),
	}
}

// maxInherit bounds Parent chain walks on malformed files.
const maxInherit = 32

// pageBox resolves the page's CropBox, falling back to its MediaBox, and
// its rotation. All three may be inherited from the page tree.
func pageBox(page pdflib.Page) Box {
	box, ok := inheritedRect(page.V, "CropBox")
	if !ok {
		box, ok = inheritedRect(page.V, "MediaBox")
	}
	if !ok {
		box = Box{URX: defaultPageWidth, URY: defaultPageHeight}
	}
	box.Rotate = inheritedRotate(page.V)
	return box
}

func inheritedRect(v pdflib.Value, key string) (Box, bool) {
	for depth := 0; depth < maxInherit && !v.IsNull(); depth++ {
		r := v.Key(key)
		if r.Len() == 4 {
			b := Box{
				LLX: math.Min(r.Index(0).Float64(), r.Index(2).Float64()),
				LLY: math.Min(r.Index(1).Float64(), r.Index(3).Float64()),
				URX: math.Max(r.Index(0).Float64(), r.Index(2).Float64()),
				URY: math.Max(r.Index(1).Float64(), r.Index(3).Float64()),
			}
			if b.width() > 0 && b.height() > 0 {
				return b, true
			}
		}
		v = v.Key("Parent")
	}
	return Box{}, false
}

func inheritedRotate(v pdflib.Value) int {
	for depth := 0; depth < maxInherit && !v.IsNull(); depth++ {
		if r := v.Key("Rotate"); !r.IsNull() {
			return normalizeRotate(int(r.Int64()))
		}
		v = v.Key("Parent")
	}
	return 0
}

// normalizeRotate maps any multiple of 90 into 0..270; other values are
// invalid and read as 0.
func normalizeRotate(r int) int {
	if r%90 != 0 {
		return 0
	}
	return ((r % 360) + 360) % 360
}

// BuildPage groups positioned glyphs into blocks, lines and spans.
// Coordinates are converted to a top-left origin relative to box.
func BuildPage(number int, box Box, glyphs []pdflib.Text) doctree.Page {
	w, h := box.displaySize()
	page := doctree.Page{Number: number, Width: w, Height: h}

	var texts []pdflib.Text
	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		texts = append(texts, g)
	}
	if len(texts) == 0 {
		return page
	}

	rows := groupRows(texts)

	var block doctree.Block
	var prevBase, prevSize float64
	for _, row := range rows {
		base, size := row[0].Y, rowSize(row)
		if len(block.Lines) > 0 && prevBase-base > blockGapFactor*math.Max(size, prevSize) {
			page.Blocks = append(page.Blocks, block)
			block = doctree.Block{}
		}
		added := false
		for _, seg := range splitColumns(row) {
			if l := buildLine(seg, box); len(l.Spans) > 0 {
				block.Lines = append(block.Lines, l)
				added = true
			}
		}
		if added {
			prevBase, prevSize = base, size
		}
	}
	if len(block.Lines) > 0 {
		page.Blocks = append(page.Blocks, block)
	}
	return page
}

const (
	// rowTolerance is the fraction of font size two baselines may differ
	// by and still share a line.
	rowTolerance = 0.3

	// spaceFactor is the fraction of font size a horizontal gap must exceed
	// to be read as a word break.
	spaceFactor = 0.2

	// blockGapFactor is the multiple of font size a vertical gap between
	// lines must exceed to start a new block.
	blockGapFactor = 1.8

	// columnGapFactor is the multiple of font size a horizontal gap within
	// a row must exceed to split it into separate lines.
	columnGapFactor = 3.0
)

// groupRows buckets glyphs by baseline, top row first, each row sorted
// left to right.
func groupRows(texts []pdflib.Text) [][]pdflib.Text {
	sorted := make([]pdflib.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var rows [][]pdflib.Text
	var cur []pdflib.Text
	var curY float64
	for _, t := range sorted {
		tol := math.Max(1.0, rowTolerance*t.FontSize)
		if len(cur) > 0 && math.Abs(curY-t.Y) > tol {
			rows = append(rows, cur)
			cur = nil
		}
		if len(cur) == 0 {
			curY = t.Y
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		rows = append(rows, cur)
	}

	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
	}
	return rows
}

// splitColumns cuts a left-to-right sorted row wherever the horizontal gap
// is wide enough to separate columns.
func splitColumns(row []pdflib.Text) [][]pdflib.Text {
	var segs [][]pdflib.Text
	start := 0
	right := row[0].X + row[0].W
	for i := 1; i < len(row); i++ {
		t := row[i]
		size := math.Max(t.FontSize, row[i-1].FontSize)
		if t.X-right > columnGapFactor*size {
			segs = append(segs, row[start:i])
			start = i
			right = t.X + t.W
			continue
		}
		right = math.Max(right, t.X+t.W)
	}
	return append(segs, row[start:])
}

func rowSize(row []pdflib.Text) float64 {
	var size float64
	for _, t := range row {
		size = math.Max(size, t.FontSize)
	}
	return size
}

// buildLine merges a row of glyphs into spans of uniform font and size.
func buildLine(row []pdflib.Text, box Box) doctree.Line {
	var line doctree.Line
	var sb strings.Builder
	var cur pdflib.Text
	var x0, x1, top, bottom float64
	open := false

	flush := func() {
		if !open {
			return
		}
		flags := 0
		if isBoldFont(cur.Font) {
			flags |= doctree.FlagBold
		}
		line.Spans = append(line.Spans, doctree.Span{
			Text:  sb.String(),
			BBox:  box.rect(x0, top, x1, bottom),
			Size:  cur.FontSize,
			Flags: flags,
			Font:  cur.Font,
		})
		sb.Reset()
		open = false
	}

	for _, t := range row {
		if open && (t.Font != cur.Font || math.Abs(t.FontSize-cur.FontSize) > 0.01) {
			flush()
		}
		if !open {
			cur = t
			x0, x1 = t.X, t.X+t.W
			top, bottom = t.Y+t.FontSize, t.Y
			open = true
			sb.WriteString(t.S)
			continue
		}
		if gap := t.X - x1; gap > spaceFactor*t.FontSize && !strings.HasSuffix(sb.String(), " ") && !strings.HasPrefix(t.S, " ") {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.S)
		x1 = math.Max(x1, t.X+t.W)
		top = math.Max(top, t.Y+t.FontSize)
		bottom = math.Min(bottom, t.Y)
	}
	flush()
	return line
}

var boldMarkers = []string{"bold", "black", "heavy"}

// isBoldFont infers weight from a base font name such as
// "ABCDEF+Helvetica-Bold" or "Arial,Bold".
func isBoldFont(name string) bool {
	if i := strings.IndexByte(name, '+'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ToLower(name)
	for _, m := range boldMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}
