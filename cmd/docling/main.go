package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docling/internal/config"
	"github.com/dgallion1/docling/internal/logging"
	"github.com/dgallion1/docling/internal/parser"
	"github.com/dgallion1/docling/internal/tokenizer"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	cfg config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "docling",
		Short:         "Convert documents and split them into retrieval chunks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("env-file", ".env", "Optional .env file to load")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: json or console")
	pf.BoolP("verbose", "v", false, "Debug logging")
	pf.BoolP("quiet", "q", false, "Only log errors")
	pf.String("tokenizer-model", "", "Tiktoken model id or encoding name")
	pf.String("tokenizer-file", "", "Tiktoken BPE rank file")
	pf.String("tokenizer-cache-dir", "", "Directory for downloaded BPE files")
	pf.Int("worker-count", 0, "Concurrent workers for directory input")
	pf.Bool("pdf-fallback-pdftotext", true, "Use pdftotext when the PDF reader fails")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.AddCommand(newConvertCmd(a), newChunkCmd(a), newServeCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	v := config.New(envFile)
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	a.cfg = config.Load(v)
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := a.cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		level = "error"
	}
	log, err := logging.New(level, a.cfg.LogFormat)
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

func (a *app) parserOptions() parser.Options {
	return parser.Options{PDFTextFallback: a.cfg.PDFFallbackPdftotext}
}

func (a *app) tokenizer() (tokenizer.Tokenizer, error) {
	tok, err := tokenizer.Load(a.cfg.TokenizerModel, a.cfg.TokenizerFile, a.cfg.TokenizerCacheDir, 0)
	if err != nil {
		return nil, err
	}
	a.log.Debug("tokenizer ready", "model", a.cfg.TokenizerModel, "file", a.cfg.TokenizerFile, "max_tokens", tok.MaxTokens())
	return tok, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "docling: %v\n", err)
		os.Exit(1)
	}
}
