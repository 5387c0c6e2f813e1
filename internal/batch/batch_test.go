package batch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pdftest"
)

func testDriver(t *testing.T, mutate func(*config.Config)) (*Driver, string, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Defaults()
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	if err := os.MkdirAll(cfg.InputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, slog.New(slog.DiscardHandler)), cfg.InputDir, cfg.OutputDir
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func readResult(t *testing.T, path string) outline.Result {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var res outline.Result
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return res
}

func TestRun_WritesOneJSONPerPDF(t *testing.T) {
	d, in, out := testDriver(t, nil)

	writeFile(t, filepath.Join(in, "report.pdf"), pdftest.Build(pdftest.Page{
		{Font: pdftest.Regular, Size: 20, X: 280, Y: 720, Text: "Report"},
		{Font: pdftest.Bold, Size: 14, X: 72, Y: 680, Text: "Intro"},
	}))
	writeFile(t, filepath.Join(in, "notes.md"), []byte("# Not picked up\n"))
	if err := os.Mkdir(filepath.Join(in, "nested.pdf"), 0o755); err != nil {
		t.Fatal(err)
	}

	sum, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sum.Files) != 1 || sum.Failed != 0 {
		t.Fatalf("expected 1 successful file, got %+v", sum)
	}

	res := readResult(t, filepath.Join(out, "report.json"))
	if res.Title != "Report" {
		t.Errorf("expected title %q, got %q", "Report", res.Title)
	}
	if len(res.Outline) != 1 || res.Outline[0] != (outline.Heading{Level: outline.H2, Text: "Intro", Page: 1}) {
		t.Errorf("unexpected outline %+v", res.Outline)
	}
	if _, err := os.Stat(filepath.Join(out, "notes.json")); !os.IsNotExist(err) {
		t.Error("expected markdown input to be ignored by the default pattern")
	}
}

func TestRun_IsolatesBadFiles(t *testing.T) {
	d, in, out := testDriver(t, func(c *config.Config) { c.BatchWorkers = 3 })

	writeFile(t, filepath.Join(in, "broken.pdf"), []byte("not a pdf"))
	writeFile(t, filepath.Join(in, "good.pdf"), pdftest.Build(pdftest.Page{
		{Font: pdftest.Regular, Size: 14, X: 72, Y: 700, Text: "Summary"},
	}))
	writeFile(t, filepath.Join(in, "empty.pdf"), pdftest.Build())

	sum, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sum.Files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(sum.Files))
	}
	if sum.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", sum.Failed)
	}
	// Results come back in sorted input order.
	if filepath.Base(sum.Files[0].Input) != "broken.pdf" || sum.Files[0].Err == nil {
		t.Errorf("expected broken.pdf to fail first, got %+v", sum.Files[0])
	}

	good := readResult(t, filepath.Join(out, "good.json"))
	if len(good.Outline) != 1 || good.Outline[0].Text != "Summary" {
		t.Errorf("unexpected good outline %+v", good)
	}

	empty := readResult(t, filepath.Join(out, "empty.json"))
	if empty.Title != outline.FallbackTitle || len(empty.Outline) != 0 {
		t.Errorf("expected fallback result for empty pdf, got %+v", empty)
	}
	if _, err := os.Stat(filepath.Join(out, "broken.json")); !os.IsNotExist(err) {
		t.Error("expected no output for the broken file")
	}
}

func TestRun_ExtraPatterns(t *testing.T) {
	d, in, out := testDriver(t, func(c *config.Config) { c.InputPatterns = []string{"*.pdf", "*.md", "*.md"} })
	writeFile(t, filepath.Join(in, "guide.md"), []byte("# Guide\n\n## Setup\n"))

	sum, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sum.Files) != 1 {
		t.Fatalf("expected duplicate patterns to match once, got %d files", len(sum.Files))
	}
	res := readResult(t, filepath.Join(out, "guide.json"))
	if res.Title != "Guide" || len(res.Outline) != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	d, in, _ := testDriver(t, nil)
	writeFile(t, filepath.Join(in, "a.pdf"), pdftest.Build(pdftest.Page{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := d.Run(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Failed != 1 || !errors.Is(sum.Files[0].Err, context.Canceled) {
		t.Errorf("expected cancellation error, got %+v", sum.Files)
	}
}

// stallOn returns an extractor that blocks on files named name until the
// test ends and parses everything else normally.
func stallOn(t *testing.T, name string) func(string, parser.Options) (*outline.Result, error) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	return func(path string, opts parser.Options) (*outline.Result, error) {
		if filepath.Base(path) == name {
			<-release
			return nil, errors.New("released")
		}
		return ExtractFile(path, opts)
	}
}

func TestExtract_Timeout(t *testing.T) {
	d, in, _ := testDriver(t, func(c *config.Config) { c.DocumentTimeout = 20 * time.Millisecond })
	d.extractFn = stallOn(t, "slow.pdf")
	path := filepath.Join(in, "slow.pdf")
	writeFile(t, path, pdftest.Build(pdftest.Page{{Font: pdftest.Regular, Size: 14, X: 72, Y: 700, Text: "A"}}))

	res, err := d.extract(context.Background(), path)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if res != nil {
		t.Errorf("expected no result, got %+v", res)
	}
}

func TestRun_TimeoutFailsOnlyThatFile(t *testing.T) {
	d, in, out := testDriver(t, func(c *config.Config) { c.DocumentTimeout = 20 * time.Millisecond })
	d.extractFn = stallOn(t, "slow.pdf")
	page := pdftest.Page{{Font: pdftest.Bold, Size: 14, X: 72, Y: 700, Text: "Intro"}}
	writeFile(t, filepath.Join(in, "fast.pdf"), pdftest.Build(page))
	writeFile(t, filepath.Join(in, "slow.pdf"), pdftest.Build(page))

	sum, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sum.Files) != 2 || sum.Failed != 1 {
		t.Fatalf("expected 2 files with 1 failure, got %+v", sum)
	}
	if !errors.Is(sum.Files[1].Err, ErrTimeout) {
		t.Errorf("expected slow.pdf to time out, got %v", sum.Files[1].Err)
	}
	if _, err := os.Stat(filepath.Join(out, "slow.json")); !os.IsNotExist(err) {
		t.Errorf("expected no slow.json, stat returned %v", err)
	}
	res := readResult(t, filepath.Join(out, "fast.json"))
	if len(res.Outline) != 1 || res.Outline[0].Text != "Intro" {
		t.Errorf("expected fast.pdf outline [Intro], got %+v", res.Outline)
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"input/report.pdf", "report.json"},
		{"/a/b/file.name.pdf", "file.name.json"},
		{"noext", "noext.json"},
		{"input/Upper.PDF", "Upper.json"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.in); got != tt.want {
			t.Errorf("OutputName(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestEncode_TwoSpaceIndentNoHTMLEscape(t *testing.T) {
	res := &outline.Result{
		Title:   "Q&A <draft>",
		Outline: []outline.Heading{{Level: outline.H1, Text: "Überblick", Page: 2}},
	}
	data, err := Encode(res)
	if err != nil {
		t.Fatal(err)
	}
	want := `{
  "title": "Q&A <draft>",
  "outline": [
    {
      "level": "H1",
      "text": "Überblick",
      "page": 2
    }
  ]
}
`
	if string(data) != want {
		t.Errorf("unexpected encoding:\n%s", data)
	}
}

func TestWriteResult_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	writeFile(t, path, []byte("old"))

	if err := WriteResult(path, &outline.Result{Title: "New", Outline: []outline.Heading{}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"title": "New"`) {
		t.Errorf("expected new content, got %s", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected temp file to be cleaned up, found %d entries", len(entries))
	}

	if err := WriteResult(filepath.Join(dir, "missing", "x.json"), &outline.Result{}); err == nil {
		t.Error("expected error for missing directory")
	}
}
