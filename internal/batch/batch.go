// Package batch converts every matching document in an input directory into
// a JSON outline in an output directory.
package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
)

// ErrTimeout is reported for a document whose extraction exceeded the
// configured per-document timeout.
var ErrTimeout = errors.New("document timed out")

// FileResult describes the outcome for one input file.
type FileResult struct {
	Input    string
	Output   string
	Headings int
	Duration time.Duration
	Err      error
}

// Summary aggregates a batch run.
type Summary struct {
	Files  []FileResult
	Failed int
}

// Driver runs the batch conversion.
type Driver struct {
	inputDir  string
	outputDir string
	patterns  []string
	workers   int
	timeout   time.Duration
	opts      parser.Options
	log       *slog.Logger

	// extractFn parses one file; ExtractFile unless a test swaps it.
	extractFn func(path string, opts parser.Options) (*outline.Result, error)
}

// New creates a driver from configuration.
func New(cfg config.Config, log *slog.Logger) *Driver {
	workers := cfg.BatchWorkers
	if workers <= 0 {
		workers = 1
	}
	return &Driver{
		inputDir:  cfg.InputDir,
		outputDir: cfg.OutputDir,
		patterns:  cfg.InputPatterns,
		workers:   workers,
		timeout:   cfg.DocumentTimeout,
		opts:      parser.Options{PreferBookmarks: cfg.PreferBookmarks, Log: log},
		log:       log,
		extractFn: ExtractFile,
	}
}

// Files lists the input files matching the configured patterns, sorted and
// without duplicates. Subdirectories are not searched.
func (d *Driver) Files() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range d.patterns {
		matches, err := filepath.Glob(filepath.Join(d.inputDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Run processes every input file. A failing file is logged and counted but
// does not stop the batch; the returned error covers only failures that
// prevent the batch from starting.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	files, err := d.Files()
	if err != nil {
		return Summary{}, err
	}
	if err := os.MkdirAll(d.outputDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create output dir: %w", err)
	}
	d.log.Info("batch started", "input_dir", d.inputDir, "output_dir", d.outputDir, "files", len(files), "workers", d.workers)

	results := make([]FileResult, len(files))
	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup
	for i, path := range files {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = d.ProcessFile(ctx, path)
		}(i, path)
	}
	wg.Wait()

	sum := Summary{Files: results}
	for _, r := range results {
		if r.Err != nil {
			sum.Failed++
		}
	}
	d.log.Info("batch complete", "files", len(results), "failed", sum.Failed)
	return sum, nil
}

// ProcessFile extracts one file and writes its JSON result.
func (d *Driver) ProcessFile(ctx context.Context, path string) FileResult {
	start := time.Now()
	out := filepath.Join(d.outputDir, OutputName(path))
	log := d.log.With("file", filepath.Base(path))

	res, err := d.extract(ctx, path)
	if err == nil {
		err = WriteResult(out, res)
	}

	fr := FileResult{Input: path, Output: out, Duration: time.Since(start), Err: err}
	if err != nil {
		log.Error("outline failed", "error", err)
		return fr
	}
	fr.Headings = len(res.Outline)
	log.Info("outline written", "output", out, "title", res.Title, "headings", fr.Headings, "duration_ms", fr.Duration.Milliseconds())
	return fr
}

// extract runs the file parser under the per-document timeout. The parser
// cannot be interrupted, so a timed-out extraction is abandoned.
func (d *Driver) extract(ctx context.Context, path string) (*outline.Result, error) {
	if d.timeout <= 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return d.extractFn(path, d.opts)
	}

	type done struct {
		res *outline.Result
		err error
	}
	ch := make(chan done, 1)
	go func() {
		res, err := d.extractFn(path, d.opts)
		ch <- done{res, err}
	}()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.res, r.err
	case <-timer.C:
		return nil, fmt.Errorf("%w after %s", ErrTimeout, d.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ExtractFile parses one document from disk.
func ExtractFile(path string, opts parser.Options) (*outline.Result, error) {
	p, err := parser.ForFile(path, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	res, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return res, nil
}

// OutputName maps an input path to its result file name.
func OutputName(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
}

// Encode renders a result as UTF-8 JSON with 2-space indentation.
func Encode(res *outline.Result) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteResult writes res to path through a temp file and rename, so an
// existing file is either replaced whole or left untouched.
func WriteResult(path string, res *outline.Result) error {
	data, err := Encode(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".outline-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename result: %w", err)
	}
	return nil
}
