package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"auto_spec_builder/attachments"
	"auto_spec_builder/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config server_addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := server.New(a.pipeline, a.store, logger)
	if err != nil {
		return err
	}
	listen := cfg.ServerAddr
	if serveAddr != "" {
		listen = serveAddr
	}
	httpServer := &http.Server{
		Addr:              listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Reaper.Enabled() {
		grace, err := cfg.Reaper.Grace()
		if err != nil {
			return err
		}
		reaper := attachments.NewReaper(a.files, a.store, grace, logger)
		c, err := reaper.Schedule(ctx, cfg.Reaper.Schedule)
		if err != nil {
			return err
		}
		defer func() { <-c.Stop().Done() }()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting web server", zap.String("addr", listen))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("shutting down web server")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
