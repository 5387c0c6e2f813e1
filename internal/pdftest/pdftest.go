// Package pdftest builds small, valid PDF files for tests.
package pdftest

import (
	"fmt"
	"strings"
)

// Fonts available to a Run. F1 is Helvetica, F2 is Helvetica-Bold.
const (
	Regular = "F1"
	Bold    = "F2"
)

// Run is one text-showing operation.
type Run struct {
	Font string
	Size float64
	X, Y float64
	Text string
}

// Page is the content of one US Letter page.
type Page []Run

// Options adjusts the page tree. A zero CropBox is omitted. Rotate is set
// on the Pages node so pages inherit it.
type Options struct {
	CropBox [4]float64
	Rotate  int
}

// Build writes a PDF with one page per entry. Text must not contain
// parentheses or backslashes.
func Build(pages ...Page) []byte {
	return BuildOpts(Options{}, pages...)
}

// BuildOpts is Build with page tree options.
func BuildOpts(opts Options, pages ...Page) []byte {
	var crop, rotate string
	if opts.CropBox != [4]float64{} {
		c := opts.CropBox
		crop = fmt.Sprintf(" /CropBox [%g %g %g %g]", c[0], c[1], c[2], c[3])
	}
	if opts.Rotate != 0 {
		rotate = fmt.Sprintf(" /Rotate %d", opts.Rotate)
	}

	// Objects: 1 catalog, 2 pages, 3 regular font, 4 bold font, then a
	// page object and a content stream per page.
	n := 4 + 2*len(pages)
	bodies := make([]string, n+1)
	bodies[1] = "<< /Type /Catalog /Pages 2 0 R >>"

	var kids []string
	for i, pg := range pages {
		pageObj, contentObj := 5+2*i, 6+2*i
		kids = append(kids, fmt.Sprintf("%d 0 R", pageObj))

		var stream strings.Builder
		for _, r := range pg {
			fmt.Fprintf(&stream, "BT\n/%s %g Tf\n1 0 0 1 %g %g Tm\n(%s) Tj\nET\n", r.Font, r.Size, r.X, r.Y, r.Text)
		}
		content := stream.String()

		bodies[pageObj] = fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792]%s /Contents %d 0 R /Resources << /Font << /F1 3 0 R /F2 4 0 R >> >> >>", crop, contentObj)
		bodies[contentObj] = fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)
	}
	bodies[2] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d%s >>", strings.Join(kids, " "), len(pages), rotate)
	bodies[3] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"
	bodies[4] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold >>"

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, n+1)
	for i := 1; i <= n; i++ {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i, bodies[i])
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", n+1)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", n+1, xref)
	return []byte(b.String())
}
