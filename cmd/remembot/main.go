// Package main is the entry point for the remembot webhook service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/remembot/remembot/internal/api"
	"github.com/remembot/remembot/internal/assistant"
	"github.com/remembot/remembot/internal/categorize"
	"github.com/remembot/remembot/internal/config"
	"github.com/remembot/remembot/internal/intent"
	"github.com/remembot/remembot/internal/llm"
	"github.com/remembot/remembot/internal/memory"
	"github.com/remembot/remembot/internal/recall"
	"github.com/remembot/remembot/internal/rules"
	"github.com/remembot/remembot/internal/telegram"
)

func main() {
	root := &cobra.Command{
		Use:   "remembot",
		Short: "Single-user conversational memory assistant",
		Long:  "A Telegram webhook bot that remembers what you tell it, answers questions from those records, and keeps dated reminders.",
	}
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := newLogger(cfg.LogLevel)
	log.Info().
		Str("db_driver", cfg.DBDriver).
		Str("recall_mode", cfg.RecallMode).
		Int("http_port", cfg.HTTPPort).
		Msg("remembot starting")

	table, err := rules.LoadFile(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("load rule table: %w", err)
	}
	log.Info().Int("rules", table.Len()).Msg("rule table loaded")

	store, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	var embedder recall.Embedder
	var completer assistant.Completer
	if cfg.GoogleAPIKey != "" {
		client, err := llm.NewClient(ctx, cfg.GoogleAPIKey)
		if err != nil {
			return fmt.Errorf("create llm client: %w", err)
		}
		completer = client
		if cfg.RecallMode == config.RecallSemantic {
			embedder = client
		}
	}

	engine := recall.NewEngine(store, embedder, cfg.SimilarityThreshold, cfg.RecallLimit, log.With().Str("component", "recall").Logger())
	bot := assistant.New(assistant.Config{
		Store:       store,
		Engine:      engine,
		Classifier:  intent.NewClassifier(table, cfg.MinStoreLength),
		Categorizer: categorize.New(table),
		Embedder:    embedder,
		Completer:   completer,
		CallTimeout: cfg.CallTimeout,
		Logger:      log.With().Str("component", "assistant").Logger(),
	})

	handler := api.NewHandler(bot, telegram.NewClient(cfg.TelegramToken), log.With().Str("component", "api").Logger())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("server exited")
	return nil
}

func newStore(ctx context.Context, cfg *config.Config) (memory.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		store, err := memory.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.InitSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		store, err := memory.NewSQLiteStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.InitSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
