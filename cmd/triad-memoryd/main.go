// Command triad-memoryd runs the memory agent daemon (C6): it serves
// get_memories/store_turn over a Unix socket to the dispatcher, backed by
// one of the in-memory, SQLite, or PostgreSQL memstore.Store
// implementations. Grounded on the teacher's cmd/nexus serve command.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/triadhq/assistant/internal/config"
	"github.com/triadhq/assistant/internal/memoryagent"
	"github.com/triadhq/assistant/internal/memstore"
	"github.com/triadhq/assistant/internal/memstore/pgstore"
	"github.com/triadhq/assistant/internal/memstore/sqlitestore"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:   "triad-memoryd",
		Short: "Run the memory agent daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, debug)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	return cmd
}

func run(ctx context.Context, configPath string, debug bool) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg.Memory, logger)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer closeStore()

	srv := memoryagent.New(store, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	socketPath := config.ResolveSocketPath(cfg.MemoryAgent.SocketPath, config.MemoryAgentSocketName)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("memory agent listening", "socket", socketPath, "backend", cfg.Memory.Backend)
		errCh <- srv.Serve(ctx, socketPath)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	return srv.Close()
}

// openStore builds the configured memstore.Store, wrapping it in an
// AsyncStore for non-blocking StoreTurn writes (spec §4.6) unless the
// backend is the ephemeral in-memory one.
func openStore(ctx context.Context, cfg config.MemoryConfig, logger *slog.Logger) (memstore.Store, func() error, error) {
	switch cfg.Backend {
	case "", "memory":
		return memstore.NewMemoryStore(), func() error { return nil }, nil

	case "sqlite":
		store, err := sqlitestore.Open(sqlitestore.Config{Path: cfg.SQLitePath})
		if err != nil {
			return nil, nil, err
		}
		async := memstore.NewAsyncStore(store, asyncDepth(cfg), logger)
		return async, func() error { async.Close(); return store.Close() }, nil

	case "postgres":
		store, err := pgstore.Open(ctx, pgstore.Config{DSN: cfg.PostgresDSN})
		if err != nil {
			return nil, nil, err
		}
		async := memstore.NewAsyncStore(store, asyncDepth(cfg), logger)
		return async, func() error { async.Close(); return store.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
	}
}

func asyncDepth(cfg config.MemoryConfig) int {
	if cfg.AsyncQueueDepth > 0 {
		return cfg.AsyncQueueDepth
	}
	return memstore.AsyncQueueDepth
}
