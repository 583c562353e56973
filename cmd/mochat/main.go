package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getmetherapy/mochat/internal/chatlog"
	"github.com/getmetherapy/mochat/internal/config"
	"github.com/getmetherapy/mochat/internal/conversation"
	"github.com/getmetherapy/mochat/internal/genai"
	"github.com/getmetherapy/mochat/internal/httpapi"
	"github.com/getmetherapy/mochat/internal/observability"
	"github.com/getmetherapy/mochat/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := chatlog.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("chat store init failed: %v", err)
	}
	defer store.Close()
	if cfg.DatabaseURL == "" {
		log.Printf("chat store: in-memory (no DATABASE_URL)")
	} else {
		log.Printf("chat store: postgres")
	}

	gen, err := genai.NewAdapter(genai.Config{
		Mode:    cfg.GenProvider,
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.GenTimeout,
	})
	if err != nil {
		log.Fatalf("generation adapter init failed: %v", err)
	}
	switch gen.(type) {
	case *genai.GeminiAdapter:
		log.Printf("generation provider: gemini (%s)", cfg.GeminiModel)
	default:
		log.Printf("generation provider: mock")
	}

	classifier := conversation.NewClassifier(store, cfg.TrailingWindow)
	sampling := conversation.Sampling{
		MaxOutputTokens: cfg.ReplyMaxOutputTokens,
		Temperature:     cfg.ReplyTemperature,
	}
	turns := conversation.NewTurnHandler(store, gen, classifier, sampling, metrics)
	summarizer := conversation.NewSummarizer(store, gen, cfg.TrailingWindow, cfg.SummaryMinTurns, metrics)

	sessions := session.NewManager(cfg.IdleTimeout)
	sessions.SetFireHook(func(s *session.Session) {
		metrics.SessionEvents.WithLabelValues("idle_fired").Inc()
		// Detached on purpose: the trigger site (janitor tick, ws teardown)
		// must never wait on the summary, and a failed summary must never
		// disturb the conversation.
		go func(userID string) {
			sumCtx, cancel := context.WithTimeout(context.Background(), cfg.GenTimeout)
			defer cancel()
			res, err := summarizer.Summarize(sumCtx, userID)
			switch {
			case err != nil:
				log.Printf("idle summary failed for session user: %v", err)
			case res.Skipped:
				log.Printf("idle summary skipped: %s", res.Reason)
			default:
				log.Printf("idle summary updated")
			}
		}(s.UserID)
	})

	api := httpapi.New(cfg, sessions, turns, summarizer, metrics)
	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 15*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
