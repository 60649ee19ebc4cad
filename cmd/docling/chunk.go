package main

import (
	"bytes"
	"context"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docling/internal/chunker"
	"github.com/dgallion1/docling/internal/doctree"
	"github.com/dgallion1/docling/internal/export"
	"github.com/dgallion1/docling/internal/pipeline"
	"github.com/dgallion1/docling/internal/tokenizer"
)

func newChunkCmd(a *app) *cobra.Command {
	var (
		kind, format, from, outDir string
		contextualize, abort       bool
	)
	cmd := &cobra.Command{
		Use:   "chunk INPUT",
		Short: "Convert documents and split them into chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := chunker.ParseKind(kind)
			if err != nil {
				return err
			}
			outFormat, err := export.ParseChunkFormat(format)
			if err != nil {
				return err
			}
			formats, err := parseFormats(from)
			if err != nil {
				return err
			}

			var irreducible atomic.Int64
			opts := chunker.Options{
				Kind:           k,
				MaxTokens:      a.cfg.MaxTokens,
				MergePeers:     a.cfg.MergePeers,
				MergeListItems: a.cfg.MergeListItems,
				Logger:         a.log,
				OnIrreducible:  func(doctree.Chunk, int) { irreducible.Add(1) },
			}
			var tok tokenizer.Tokenizer
			if k == chunker.KindHybrid {
				if tok, err = a.tokenizer(); err != nil {
					return err
				}
			}
			c, err := chunker.New(opts, tok)
			if err != nil {
				return err
			}

			var ctxFn func(doctree.Chunk) string
			if contextualize {
				ctxFn = c.Contextualize
			}

			out := newSink(cmd.OutOrStdout(), args[0], outDir, outFormat.Extension())
			batch := &pipeline.Batch{
				Converter:    pipeline.NewConverter(a.log, a.parserOptions(), formats...),
				Workers:      a.cfg.WorkerCount,
				AbortOnError: abort,
				Log:          a.log,
				Process: func(ctx context.Context, job *pipeline.Job, res *pipeline.Result) (int, error) {
					var buf bytes.Buffer
					n, err := export.WriteChunks(&buf, c.Chunk(res.Document), outFormat, ctxFn)
					if err != nil {
						return n, err
					}
					return n, out.write(job.Path, buf.Bytes())
				},
			}
			err = runBatch(cmd.Context(), batch, args[0])
			if n := irreducible.Load(); n > 0 {
				a.log.Warn("some chunks exceed the token budget", "irreducible", n)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&kind, "chunker", "hybrid", "Chunker: hybrid or hierarchical")
	f.Int("max-tokens", 0, "Token budget per chunk (default the tokenizer's)")
	f.Bool("merge-peers", true, "Merge undersized neighbours with the same headings")
	f.Bool("merge-list-items", true, "Emit consecutive list items as one chunk")
	f.StringVar(&format, "format", "json", "Output format: json, jsonl, yaml")
	f.BoolVar(&contextualize, "contextualize", false, "Include heading-prefixed text for embedding")
	f.StringVar(&from, "from", "", "Comma-separated input formats to accept (default all)")
	f.StringVarP(&outDir, "output", "o", "", "Output directory (default stdout)")
	f.BoolVar(&abort, "abort-on-error", false, "Stop at the first failed document")
	return cmd
}
