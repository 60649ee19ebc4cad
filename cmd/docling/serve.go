package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docling/internal/api"
	"github.com/dgallion1/docling/internal/pipeline"
	"github.com/dgallion1/docling/internal/tokenizer"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := a.tokenizer()
			if err != nil {
				return err
			}
			srv := api.NewServer(
				pipeline.NewConverter(a.log, a.parserOptions()),
				tokenizer.Instrument(tok),
				a.log,
				a.cfg,
			)

			httpServer := &http.Server{
				Addr:         ":" + a.cfg.Port,
				Handler:      srv,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			// Graceful shutdown.
			go func() {
				<-ctx.Done()
				a.log.Info("shutting down...")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				httpServer.Shutdown(shutdownCtx)
			}()

			a.log.Info("starting docling", "port", a.cfg.Port, "auth", a.cfg.APIKey != "")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("port", "", "Listen port (default 8090)")
	cmd.Flags().String("api-key", "", "Require this bearer token on /api routes")
	return cmd
}
