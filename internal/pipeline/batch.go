package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ProcessFunc runs after a document converts, typically to chunk and write it.
// It returns the number of chunks produced.
type ProcessFunc func(ctx context.Context, job *Job, res *Result) (int, error)

// Progress summarizes a batch run.
type Progress struct {
	Total      int `json:"total"`
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Partial    int `json:"partial"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// Batch converts many files with a bounded pool of workers.
type Batch struct {
	Converter *Converter
	Workers   int
	// AbortOnError cancels jobs that have not started once any job fails.
	AbortOnError bool
	Process      ProcessFunc
	Log          *slog.Logger
}

// Run converts every path and returns the per-job state in input order. The
// error is non-nil only when AbortOnError stopped the batch.
func (b *Batch) Run(ctx context.Context, paths []string) (Progress, []*Job, error) {
	log := b.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	workers := b.Workers
	if workers <= 0 {
		workers = 1
	}

	jobs := make([]*Job, len(paths))
	for i, p := range paths {
		jobs[i] = NewJob(fmt.Sprintf("%04d", i+1), p)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		g.Go(func() error {
			err := b.runJob(gctx, job, log)
			if err != nil && b.AbortOnError {
				return err
			}
			return nil
		})
	}
	err := g.Wait()

	progress := Progress{Total: len(jobs)}
	for _, job := range jobs {
		snap := job.Snapshot()
		switch snap.Status {
		case StatusCompleted:
			progress.Processed++
			progress.Successful++
			if snap.Partial {
				progress.Partial++
			}
		case StatusFailed:
			progress.Processed++
			progress.Failed++
		default:
			progress.Skipped++
		}
	}
	log.Info("batch finished",
		"total", progress.Total,
		"successful", progress.Successful,
		"failed", progress.Failed,
		"skipped", progress.Skipped,
	)
	return progress, jobs, err
}

func (b *Batch) runJob(ctx context.Context, job *Job, log *slog.Logger) error {
	if ctx.Err() != nil {
		job.SetStatus(StatusSkipped, "canceled")
		return nil
	}
	log = log.With("job_id", job.ID, "path", job.Path)

	job.SetStatus(StatusParsing, "parsing")
	res, err := b.Converter.ConvertFile(ctx, job.Path)
	if err != nil {
		log.Error("conversion failed", "error", err)
		job.Fail("parsing", err)
		return err
	}
	job.RecordResult(res)

	if b.Process != nil {
		job.SetStatus(StatusChunking, "chunking")
		n, err := b.Process(ctx, job, res)
		if err != nil {
			log.Error("processing failed", "error", err)
			job.Fail("chunking", err)
			return err
		}
		job.SetChunks(n)
	}

	if res.Status == StatusPartialSuccess {
		job.AddError("no extractable content")
	}
	job.SetStatus(StatusCompleted, "done")
	log.Info("job completed", "nodes", res.Metrics.TotalNodes, "elapsed", res.Metrics.ProcessingTime)
	return nil
}

// CollectFiles returns the files under root accepted by keep, sorted. A root
// that is itself a file is returned as is. Hidden directories are skipped.
func CollectFiles(root string, keep func(name string) bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("collect files: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && (keep == nil || keep(path)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect files: %w", err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, errors.New("collect files: no supported files found")
	}
	return files, nil
}
