package parser

import (
	"bytes"
	"fmt"

	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Bookmark is one node of a PDF's embedded outline tree.
type Bookmark struct {
	Title string
	Page  int
	Kids  []Bookmark
}

// PDFInfo holds document-level structure read by pdfcpu.
type PDFInfo struct {
	PageCount int
	Bookmarks []Bookmark
}

// InspectPDF reads page count and embedded bookmarks. A file without an
// outline tree is not an error; Bookmarks is empty.
func InspectPDF(data []byte) (info *PDFInfo, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			info = nil
			err = fmt.Errorf("%w: pdfcpu panic: %v", ErrUnreadable, rec)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: pdfcpu read: %v", ErrUnreadable, err)
	}

	info = &PDFInfo{PageCount: ctx.PageCount}
	bms, err := pdfcpu.Bookmarks(ctx)
	if err != nil {
		// pdfcpu reports a missing outline tree as an error.
		return info, nil
	}
	info.Bookmarks = convertBookmarks(bms)
	return info, nil
}

func convertBookmarks(in []pdfcpu.Bookmark) []Bookmark {
	if len(in) == 0 {
		return nil
	}
	out := make([]Bookmark, 0, len(in))
	for _, b := range in {
		out = append(out, Bookmark{
			Title: b.Title,
			Page:  b.PageFrom,
			Kids:  convertBookmarks(b.Kids),
		})
	}
	return out
}

func countBookmarks(bms []Bookmark) int {
	n := 0
	for _, b := range bms {
		n += 1 + countBookmarks(b.Kids)
	}
	return n
}

// OutlineFromBookmarks builds an outline from a bookmark tree, depth-first
// in document order. Nesting depth 1..3 maps to H1..H3; deeper entries are
// dropped. The usual title-exclusion and dedup rules apply.
func OutlineFromBookmarks(title string, bms []Bookmark) outline.Result {
	b := outline.NewBuilder(title)
	var walk func([]Bookmark, int)
	walk = func(nodes []Bookmark, depth int) {
		level, ok := outline.LevelForDepth(depth)
		if !ok {
			return
		}
		for _, n := range nodes {
			b.Add(level, n.Title, n.Page)
			walk(n.Kids, depth+1)
		}
	}
	walk(bms, 1)
	return b.Result()
}
