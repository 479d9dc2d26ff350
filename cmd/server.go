package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"handoff-client/internal/mockapi"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMockServerCmd(a *app) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run an in-memory backend for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Mock
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}

			// Create HTTP server
			srv := &http.Server{
				Addr:         cfg.Addr(),
				Handler:      mockapi.New(cfg),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				log.Info().
					Str("host", cfg.Host).
					Int("port", cfg.Port).
					Bool("seed", cfg.Seed).
					Msg("Starting mock backend")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			// Wait for interrupt signal for graceful shutdown
			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			log.Info().Msg("Shutting down mock backend...")

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("Server forced to shutdown")
			}

			log.Info().Msg("Mock backend exited")
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "preload demo accounts and products")
	return cmd
}
