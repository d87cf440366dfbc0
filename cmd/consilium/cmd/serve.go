package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/consilium/internal/api"
	"github.com/hugo-lorenzo-mato/consilium/internal/config"
	"github.com/hugo-lorenzo-mato/consilium/internal/diagnostics"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read API over persisted deliberations",
	Long: `Expose debate listings, chunk-level artifact reads and health checks
over HTTP. Configuration changes on disk are reloaded and logged; the
running server keeps the settings it started with.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "bind host (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "bind port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, loader, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)

	host := cfg.Server.Host
	if serveHost != "" {
		host = serveHost
	}
	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}

	opts := []api.ServerOption{
		api.WithLogger(logger),
		api.WithResourceMonitor(diagnostics.NewResourceMonitor()),
	}
	idx, idxErr := openIndex(cfg)
	if idxErr == nil {
		defer idx.Close()
		opts = append(opts, api.WithIndex(idx))
	} else {
		logger.Warn("debate index unavailable, listings fall back to store walk", "error", idxErr)
	}

	server := api.NewServer(openStore(cfg), cfg.Server.AllowedOrigins, opts...)
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving read API", "addr", addr)
		return server.ListenAndServe(ctx, addr)
	})
	if watcher, err := config.NewWatcher(loader, func(updated *config.Config) {
		logger.Info("configuration reloaded", "log_level", updated.Log.Level)
	}); err == nil {
		g.Go(func() error { return watcher.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "shutdown complete")
	return nil
}
