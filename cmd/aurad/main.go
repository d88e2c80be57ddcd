// Command aurad runs the assistant daemon: it loads configuration, wires
// the memory manager, intention router, plugin catalog, and brain
// together, and serves the websocket speech gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hearthware/aura/brain"
	"github.com/hearthware/aura/config"
	"github.com/hearthware/aura/gateway"
	"github.com/hearthware/aura/intent"
	"github.com/hearthware/aura/memory"
	"github.com/hearthware/aura/memory/store/badgerstore"
	"github.com/hearthware/aura/memory/store/local"
	"github.com/hearthware/aura/plugin"
	"github.com/hearthware/aura/plugins"
)

func main() {
	configPath := flag.String("config", "", "path to config file (yaml or json)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)

	if err := run(cfg, logger); err != nil {
		logger.Error("daemon exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedder, closeEmbedder, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	defer closeEmbedder()

	store, err := newStore(cfg.Storage, embedder.Dimensions())
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	// The brain closes the store on shutdown; until then any failed
	// wiring step must release it here.
	brainClosed := false
	defer func() {
		if !brainClosed {
			_ = store.Close()
		}
	}()

	manager, err := memory.NewManager(store, embedder, &memory.Config{
		ShortTermCapacity: cfg.Memory.ShortTermCapacity,
		LongTermCapacity:  cfg.Memory.LongTermCapacity,
		PromoteThreshold:  cfg.Memory.PromoteThreshold,
		MinSimilarity:     cfg.Memory.MinSimilarity,
		StabilityHours:    cfg.Memory.StabilityHours,
	}, memory.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("memory manager: %w", err)
	}

	router := intent.NewRouter(embedder, cfg.Router.ConfidenceThreshold)
	registry := plugin.NewRegistry()
	if err := plugins.RegisterAll(ctx, registry, router, plugins.Builtin()); err != nil {
		return fmt.Errorf("register plugins: %w", err)
	}

	responder, err := newResponder(cfg.Responder)
	if err != nil {
		return err
	}

	b := brain.New(router, manager, plugin.NewDispatcher(registry, logger), responder,
		brain.WithLogger(logger),
		brain.WithRecallK(cfg.Memory.RecallK),
	)

	interval, err := time.ParseDuration(cfg.Memory.ConsolidateInterval)
	if err != nil {
		return fmt.Errorf("parse consolidate_interval: %w", err)
	}
	go consolidateLoop(ctx, b, interval, logger)

	mux := http.NewServeMux()
	mux.Handle("/speech", gateway.New(b, gateway.Config{AllowedOrigins: cfg.Gateway.AllowedOrigins}, logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "plugins", len(registry.List()))
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
	// Final consolidation flushes promotions to disk before exit.
	brainClosed = true
	if err := b.Close(shutdownCtx); err != nil {
		if serveErr == nil {
			serveErr = fmt.Errorf("close brain: %w", err)
		} else {
			logger.Error("close brain", "error", err)
		}
	}
	return serveErr
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func newStore(cfg config.StorageConfig, dimension int) (memory.Store, error) {
	switch cfg.Backend {
	case "badger":
		return badgerstore.Open(badgerstore.Config{
			Path:       cfg.Path,
			SyncWrites: cfg.SyncWrites,
			Dimension:  dimension,
		})
	default:
		return local.New(dimension), nil
	}
}

func newResponder(cfg config.ResponderConfig) (brain.Responder, error) {
	switch cfg.Provider {
	case "claude":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("responder.provider is claude but ANTHROPIC_API_KEY is not set")
		}
		client := anthropic.NewClient(option.WithAPIKey(key))
		return brain.NewClaudeResponder(&client,
			brain.WithModel(cfg.Model),
			brain.WithMaxTokens(cfg.MaxTokens),
		), nil
	default:
		return brain.StaticResponder{}, nil
	}
}

func consolidateLoop(ctx context.Context, b *brain.Brain, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := b.Consolidate(ctx)
			if err != nil {
				logger.Error("consolidation failed", "error", err)
				continue
			}
			logger.Debug("consolidated",
				"decayed", res.Decayed,
				"promoted", res.Promoted,
				"evicted_short", res.EvictedShort,
				"evicted_long", res.EvictedLong,
			)
		}
	}
}
