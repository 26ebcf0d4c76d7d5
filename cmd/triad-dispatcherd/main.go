// Command triad-dispatcherd runs the dispatcher daemon (C7+C8): it owns
// session state and orchestrates the retrieve→prompt→tool-loop→respond→
// persist cycle against the memory agent and tool host over their Unix
// sockets, exposing itself to clients over a Unix socket and an optional
// HTTP façade. Grounded on the teacher's cmd/nexus serve command.
package main

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/triadhq/assistant/internal/config"
	"github.com/triadhq/assistant/internal/dispatcher"
	"github.com/triadhq/assistant/internal/dispatcher/agentwire"
	"github.com/triadhq/assistant/internal/dispatcher/hostwire"
	"github.com/triadhq/assistant/internal/dispatcher/httpapi"
	"github.com/triadhq/assistant/internal/llm"
	"github.com/triadhq/assistant/internal/llm/anthropic"
	"github.com/triadhq/assistant/internal/llm/openai"
	"github.com/triadhq/assistant/internal/session"
	"github.com/triadhq/assistant/internal/wire"
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
		Use:   "triad-dispatcherd",
		Short: "Run the dispatcher daemon",
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

	provider, err := buildProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("build LLM provider: %w", err)
	}

	memorySocket := config.ResolveSocketPath(cfg.Dispatcher.MemoryAgentSocketPath, config.MemoryAgentSocketName)
	toolHostSocket := config.ResolveSocketPath(cfg.Dispatcher.ToolHostSocketPath, config.ToolHostSocketName)
	memory := agentwire.New(memorySocket)
	tools := hostwire.New(toolHostSocket)

	sessions := session.NewMemoryStore()

	coord := dispatcher.New(dispatcher.Config{
		SystemPrompt:          cfg.Dispatcher.SystemPrompt,
		MaxToolLoopIterations: cfg.Dispatcher.MaxToolLoopIterations,
		DefaultModel:          cfg.Dispatcher.DefaultModel,
		MaxTokens:             cfg.Dispatcher.MaxTokens,
		SessionTTL:            time.Duration(cfg.Dispatcher.SessionTTLSeconds) * time.Second,
		Registerer:            prometheus.DefaultRegisterer,
	}, logger, memory, tools, provider, sessions)

	unixSrv := wire.New(coord, sessions, logger)
	unixSocket := config.ResolveSocketPath(cfg.Dispatcher.SocketPath, config.DispatcherSocketName)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("dispatcher listening", "socket", unixSocket)
		return unixSrv.Serve(groupCtx, unixSocket)
	})

	var httpSrv *http.Server
	if cfg.Dispatcher.HTTPAddr != "" {
		ttl := time.Duration(cfg.Dispatcher.HTTPSessionTTLSeconds) * time.Second
		facade := httpapi.New(coord, sessions, ttl, logger, nil)
		httpSrv = &http.Server{Addr: cfg.Dispatcher.HTTPAddr, Handler: facade.Handler()}
		group.Go(func() error {
			logger.Info("dispatcher HTTP façade listening", "addr", cfg.Dispatcher.HTTPAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	<-groupCtx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if httpSrv != nil {
		_ = httpSrv.Shutdown(shutdownCtx)
	}
	_ = unixSrv.Close()

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildProvider(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "", "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey:       cfg.Anthropic.APIKey,
			BaseURL:      cfg.Anthropic.BaseURL,
			DefaultModel: cfg.Anthropic.DefaultModel,
		})
	case "openai":
		return openai.New(openai.Config{
			APIKey:       cfg.OpenAI.APIKey,
			DefaultModel: cfg.OpenAI.DefaultModel,
		})
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
