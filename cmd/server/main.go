package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kenshulab/reportchat/internal/api"
	"github.com/kenshulab/reportchat/internal/chat"
	"github.com/kenshulab/reportchat/internal/config"
	"github.com/kenshulab/reportchat/internal/llm"
	"github.com/kenshulab/reportchat/internal/question"
	"github.com/kenshulab/reportchat/internal/report"
	"github.com/kenshulab/reportchat/internal/session"
)

func main() {
	// Local development convenience; absence of .env is fine.
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the LLM client.
	stats := llm.NewStats(cfg.StatsWindow)
	openai := llm.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIProject, cfg.OpenAIModel, stats)

	// Session store with TTL eviction.
	store := session.NewStore(cfg.SessionTTL)
	store.StartJanitor(ctx, 5*time.Minute)

	// Conversation wiring.
	generator := question.NewGenerator(openai)
	drafter := report.NewDrafter(openai, cfg.ReportExcerptChars)
	controller := chat.NewController(cfg, openai, generator, drafter, log)

	// Initialize HTTP server.
	srv := api.NewServer(store, controller, openai, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		openai.Close()
		cancel()
	}()

	log.Info("starting reportchat", "port", cfg.Port, "model", cfg.OpenAIModel)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
