package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/signdesk/signdesk/internal/collab"
	"github.com/signdesk/signdesk/internal/config"
	"github.com/signdesk/signdesk/internal/pdfdoc"
	"github.com/signdesk/signdesk/internal/store"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfg *config.Config

	cmd := &cobra.Command{
		Use:           "signdesk",
		Short:         "Contract signing backend: PDF geometry, signature fields and signed documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				slog.Error("load config", "error", err)
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and websocket feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(cmd.Context(), cfg.DatabaseDriver, cfg.DatabaseURL)
			if err != nil {
				slog.Error("migrate", "error", err)
				return err
			}
			slog.Info("migrations applied", "driver", cfg.DatabaseDriver)
			return st.Close()
		},
	})

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	st, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		return err
	}
	defer st.Close()

	hub := collab.NewHub()
	go hub.Run()

	r := newRouter(cfg, st, pdfdoc.New(), hub)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "driver", cfg.DatabaseDriver, "files", cfg.FileDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		return err
	}
	return nil
}
