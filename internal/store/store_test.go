package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/docoutline/internal/outline"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult() outline.Result {
	return outline.Result{
		Title: "Annual Report",
		Outline: []outline.Heading{
			{Level: outline.H1, Text: "Overview", Page: 1},
			{Level: outline.H2, Text: "Revenue", Page: 3},
		},
	}
}

func TestPutGet(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	hash := Hash([]byte("pdf bytes"))

	if err := s.Put(ctx, Record{Hash: hash, Filename: "report.pdf", Result: sampleResult()}); err != nil {
		t.Fatalf("put: %v", err)
	}
	rec, err := s.Get(ctx, hash)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Filename != "report.pdf" {
		t.Errorf("expected filename %q, got %q", "report.pdf", rec.Filename)
	}
	if rec.Result.Title != "Annual Report" || len(rec.Result.Outline) != 2 {
		t.Fatalf("unexpected result %+v", rec.Result)
	}
	if rec.Result.Outline[1] != (outline.Heading{Level: outline.H2, Text: "Revenue", Page: 3}) {
		t.Errorf("unexpected heading %+v", rec.Result.Outline[1])
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestPutReplaces(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	s.Put(ctx, Record{Hash: "h", Filename: "a.pdf", Result: sampleResult()})
	if err := s.Put(ctx, Record{Hash: "h", Filename: "b.pdf", Result: outline.Empty()}); err != nil {
		t.Fatalf("put: %v", err)
	}
	rec, err := s.Get(ctx, "h")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Filename != "b.pdf" || rec.Result.Title != outline.FallbackTitle {
		t.Errorf("expected replacement, got %+v", rec)
	}
	if rec.Result.Outline == nil {
		t.Error("expected non-nil empty outline")
	}
}

func TestPutRequiresHash(t *testing.T) {
	s := openTest(t)
	if err := s.Put(context.Background(), Record{Filename: "x.pdf"}); err == nil {
		t.Error("expected error for empty hash")
	}
}

func TestGetMissing(t *testing.T) {
	s := openTest(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"old.pdf", "mid.pdf", "new.pdf"} {
		s.Put(ctx, Record{
			Hash:      Hash([]byte(name)),
			Filename:  name,
			Result:    sampleResult(),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	list, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}
	if list[0].Filename != "new.pdf" || list[1].Filename != "mid.pdf" {
		t.Errorf("unexpected order %q, %q", list[0].Filename, list[1].Filename)
	}
	if list[0].Title != "Annual Report" || list[0].Headings != 2 {
		t.Errorf("unexpected summary %+v", list[0])
	}
}

func TestListEmpty(t *testing.T) {
	s := openTest(t)
	list, err := s.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty non-nil list, got %v", list)
	}
}

func TestDelete(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	s.Put(ctx, Record{Hash: "h", Filename: "a.pdf", Result: sampleResult()})

	if err := s.Delete(ctx, "h"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "h"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "h"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "outlines.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if err := s.Put(context.Background(), Record{Hash: "h", Filename: "a.pdf", Result: sampleResult()}); err != nil {
		t.Fatalf("put: %v", err)
	}
}

func TestHash(t *testing.T) {
	got := Hash([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
