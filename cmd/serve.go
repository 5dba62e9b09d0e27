// Package cmd — serve command.
// Starts the read-only viewer over the archive database.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kalhel/postkeep/core/store"
	"github.com/kalhel/postkeep/viewer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the archive over HTTP",
	Long: `Serve starts a read-only HTTP API over the archive: post listing, post
detail with blocks, full-text search and Markdown export.

Examples:
  postkeep serve
  postkeep serve --addr :9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: 127.0.0.1:8080)")
	viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := store.Open(viper.GetString("db"))
	if err != nil {
		return err
	}
	defer st.Close()

	cfg := viewer.DefaultServerConfig()
	cfg.Addr = viper.GetString("addr")
	srv := viewer.HTTPServer(cfg, viewer.NewServer(viewer.NewHandler(st)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Viewer listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	slog.Info("Viewer stopped")
	return nil
}
