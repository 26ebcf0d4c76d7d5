// Command triad-toolhostd runs the tool-host daemon (C4+C5): it supervises
// the configured child tool-server processes over stdio JSON-RPC and serves
// their aggregated capabilities/execute_tool contract on a Unix socket to
// the dispatcher. Grounded on the teacher's cmd/nexus serve command
// (cobra root command, config flag, signal.NotifyContext shutdown) trimmed
// to a single-purpose daemon rather than a multi-channel gateway.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/triadhq/assistant/internal/childproc"
	"github.com/triadhq/assistant/internal/config"
	"github.com/triadhq/assistant/internal/memstore"
	"github.com/triadhq/assistant/internal/toolhost"
	"github.com/triadhq/assistant/internal/toolhostd"
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
		Use:   "triad-toolhostd",
		Short: "Run the tool-host daemon",
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

	host := toolhost.New(logger)

	if cfg.ToolHost.ToolServersPath != "" {
		servers, err := config.LoadToolServers(cfg.ToolHost.ToolServersPath)
		if err != nil {
			return fmt.Errorf("load tool servers: %w", err)
		}
		for name, spec := range servers.Servers {
			if !spec.IsEnabled() {
				logger.Info("tool server disabled, skipping", "name", name)
				continue
			}
			sup, err := childproc.New(childproc.Config{
				Name:    name,
				Command: spec.Command,
				Args:    spec.Args,
				Env:     spec.Env,
			}, logger)
			if err != nil {
				logger.Error("configure tool server", "name", name, "error", err)
				continue
			}
			if err := sup.Launch(ctx); err != nil {
				logger.Error("launch tool server", "name", name, "error", err)
				continue
			}
			host.AddServer(name, sup)
			logger.Info("tool server launched", "name", name)
		}
	}

	memStore, closeStore, err := openMemStore(ctx, cfg.Memory, logger)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	if memStore != nil {
		host.SetMemoryStore(memStore)
		host.SetEmbedder(memstore.HashEmbedder{})
		defer closeStore()
	}

	srv := toolhostd.New(host, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	socketPath := config.ResolveSocketPath(cfg.ToolHost.SocketPath, config.ToolHostSocketName)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("tool host listening", "socket", socketPath)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	host.Shutdown(shutdownCtx)
	return srv.Close()
}

// openMemStore constructs the embedded memstore.Store used by the
// memory-store-mcp virtual tools (spec §4.5), if the tool host is
// configured to embed one. A nil store with a nil error means the tool
// host runs without embedded memory tools.
func openMemStore(ctx context.Context, cfg config.MemoryConfig, logger *slog.Logger) (memstore.Store, func(), error) {
	switch cfg.Backend {
	case "", "none":
		return nil, func() {}, nil
	case "memory":
		return memstore.NewMemoryStore(), func() {}, nil
	default:
		logger.Warn("toolhostd does not embed durable memory backends directly; run triad-memoryd instead", "backend", cfg.Backend)
		return nil, func() {}, nil
	}
}
