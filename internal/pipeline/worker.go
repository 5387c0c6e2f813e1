package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/stats"
	"github.com/dgallion1/docoutline/internal/store"
)

// ResultStore is the persistence the worker needs. *store.Store satisfies it.
type ResultStore interface {
	Get(ctx context.Context, hash string) (*store.Record, error)
	Put(ctx context.Context, rec store.Record) error
}

// Outcome is the result of extracting one upload.
type Outcome struct {
	Hash      string
	Result    *outline.Result
	Duplicate bool
	// StoreErr is set when extraction succeeded but persisting failed.
	StoreErr error
}

// Worker extracts outlines from uploaded documents.
type Worker struct {
	store ResultStore
	stats *stats.Extraction
	opts  parser.Options
	log   *slog.Logger
}

func NewWorker(rs ResultStore, es *stats.Extraction, opts parser.Options, log *slog.Logger) *Worker {
	return &Worker{store: rs, stats: es, opts: opts, log: log}
}

// Extract returns the outline for data, reusing a stored result when the
// same bytes were processed before.
func (w *Worker) Extract(ctx context.Context, filename string, data []byte) (Outcome, error) {
	return w.extract(ctx, filename, data, nil)
}

// extract is Extract with a hook run just before a fresh result is stored.
func (w *Worker) extract(ctx context.Context, filename string, data []byte, beforeStore func()) (Outcome, error) {
	out := Outcome{Hash: store.Hash(data)}
	log := w.log.With("file", filename, "hash", out.Hash[:12])

	if w.store != nil {
		rec, err := w.store.Get(ctx, out.Hash)
		switch {
		case err == nil:
			log.Info("duplicate document, reusing stored outline")
			out.Result = &rec.Result
			out.Duplicate = true
			return out, nil
		case !errors.Is(err, store.ErrNotFound):
			log.Warn("dedup check failed, proceeding", "error", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}

	p, err := parser.ForFile(filename, w.opts)
	if err != nil {
		return out, err
	}

	start := time.Now()
	res, err := p.Parse(bytes.NewReader(data), filename)
	elapsed := time.Since(start)
	if err != nil {
		w.record(elapsed, 0, true)
		return out, fmt.Errorf("parse: %w", err)
	}
	w.record(elapsed, len(res.Outline), false)
	log.Info("outline extracted", "title", res.Title, "headings", len(res.Outline), "duration_ms", elapsed.Milliseconds())
	out.Result = res

	if w.store != nil {
		if beforeStore != nil {
			beforeStore()
		}
		err := w.store.Put(ctx, store.Record{Hash: out.Hash, Filename: filename, Result: *res})
		if err != nil {
			log.Error("store failed", "error", err)
			out.StoreErr = err
		}
	}
	return out, nil
}

func (w *Worker) record(d time.Duration, headings int, failed bool) {
	if w.stats != nil {
		w.stats.Record(d, headings, failed)
	}
}

// Process runs extraction for a queued job and updates its state.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)

	job.SetStatus(StatusParsing, "parsing")
	out, err := w.extract(ctx, job.Filename, job.FileData(), func() {
		job.SetStatus(StatusStoring, "storing")
	})
	// The upload is no longer needed once extraction has run.
	job.SetFileData(nil)
	if err != nil {
		log.Error("job failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	job.SetResult(out.Result)
	if out.Duplicate {
		job.SetStatus(StatusDuplicate, "done")
		return
	}
	if out.StoreErr != nil {
		job.AddError(fmt.Sprintf("store: %s", out.StoreErr))
	}
	job.SetStatus(StatusCompleted, "done")
}
