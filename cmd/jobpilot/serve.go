package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/manthysbr/jobpilot/pkg/kernel"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept runs over HTTP and expose run history and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(root)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if cfg.Store.Path == "" {
				return errors.New("serve needs run history (store.path is empty)")
			}

			a, err := newApp(root, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			g, gCtx := errgroup.WithContext(cmd.Context())

			apiServer := kernel.NewServer(gCtx, logger, a.orch, a.creds, a.repo, a.events, kernel.Settings{
				Run:            cfg.Run,
				Poll:           cfg.Poll,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				Metrics:        a.metrics.Handler(),
			})
			httpServer := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           apiServer.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g.Go(func() error {
				logger.Info("starting api server", "addr", cfg.Server.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("api server failed: %w", err)
				}
				return nil
			})

			if cfg.Metrics.Addr != "" {
				g.Go(func() error {
					return a.metrics.Serve(gCtx, logger, cfg.Metrics.Addr)
				})
			}

			g.Go(func() error {
				<-gCtx.Done()
				logger.Info("shutting down api server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				err := httpServer.Shutdown(shutdownCtx)
				apiServer.Wait()
				return err
			})

			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
