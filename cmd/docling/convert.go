package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docling/internal/export"
	"github.com/dgallion1/docling/internal/parser"
	"github.com/dgallion1/docling/internal/pipeline"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		to, from, outDir string
		abort, keepGoing bool
	)
	cmd := &cobra.Command{
		Use:   "convert INPUT",
		Short: "Convert a file or directory of documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseDocFormat(to)
			if err != nil {
				return err
			}
			formats, err := parseFormats(from)
			if err != nil {
				return err
			}

			out := newSink(cmd.OutOrStdout(), args[0], outDir, format.Extension())
			batch := &pipeline.Batch{
				Converter:    pipeline.NewConverter(a.log, a.parserOptions(), formats...),
				Workers:      a.cfg.WorkerCount,
				AbortOnError: abort || (cmd.Flags().Changed("continue-on-error") && !keepGoing),
				Log:          a.log,
				Process: func(ctx context.Context, job *pipeline.Job, res *pipeline.Result) (int, error) {
					var buf bytes.Buffer
					if err := export.WriteDocument(&buf, res.Document, format); err != nil {
						return 0, err
					}
					return 0, out.write(job.Path, buf.Bytes())
				},
			}
			return runBatch(cmd.Context(), batch, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&to, "to", "markdown", "Output format: markdown, json, text")
	f.StringVar(&from, "from", "", "Comma-separated input formats to accept (default all)")
	f.StringVarP(&outDir, "output", "o", "", "Output directory (default stdout)")
	f.BoolVar(&abort, "abort-on-error", false, "Stop at the first failed document")
	f.BoolVar(&keepGoing, "continue-on-error", true, "Keep going after a failed document")
	cmd.MarkFlagsMutuallyExclusive("abort-on-error", "continue-on-error")
	return cmd
}

// runBatch collects the inputs under root and runs b over them. Any failed
// document makes the command fail.
func runBatch(ctx context.Context, b *pipeline.Batch, root string) error {
	files, err := pipeline.CollectFiles(root, b.Converter.Accepts)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(ctx)
	defer cancel()

	progress, _, err := b.Run(ctx, files)
	if err != nil {
		return fmt.Errorf("batch aborted: %w", err)
	}
	if progress.Failed > 0 {
		return fmt.Errorf("%d of %d documents failed", progress.Failed, progress.Total)
	}
	return nil
}

func parseFormats(list string) ([]parser.Format, error) {
	var formats []parser.Format
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		f, err := parser.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// sink writes per-document output either to one stream or to files under a
// directory that mirrors the input tree.
type sink struct {
	mu     sync.Mutex
	w      io.Writer
	root   string
	outDir string
	ext    string
}

func newSink(w io.Writer, root, outDir, ext string) *sink {
	return &sink{w: w, root: root, outDir: outDir, ext: ext}
}

func (s *sink) write(input string, data []byte) error {
	if s.outDir == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, err := s.w.Write(data)
		return err
	}

	path, err := outputPath(s.root, input, s.outDir, s.ext)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// outputPath maps input, found under root, to a path under dir with its
// extension replaced by ext.
func outputPath(root, input, dir, ext string) (string, error) {
	rel := filepath.Base(input)
	if info, err := os.Stat(root); err == nil && info.IsDir() {
		r, err := filepath.Rel(root, input)
		if err != nil {
			return "", fmt.Errorf("output path for %s: %w", input, err)
		}
		rel = r
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ext
	return filepath.Join(dir, rel), nil
}
