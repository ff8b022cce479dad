// Package main implements the Mindkeep API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/mindkeep-ai/mindkeep/engine/ideas"
	"github.com/mindkeep-ai/mindkeep/engine/rag"
	"github.com/mindkeep-ai/mindkeep/engine/semantic"
	"github.com/mindkeep-ai/mindkeep/engine/tasks"
	"github.com/mindkeep-ai/mindkeep/pkg/groq"
	"github.com/mindkeep-ai/mindkeep/pkg/metrics"
	"github.com/mindkeep-ai/mindkeep/pkg/mid"
	"github.com/mindkeep-ai/mindkeep/pkg/prompt"
	"github.com/mindkeep-ai/mindkeep/pkg/voyage"
)

const apiVersion = "0.1.0"

// Config holds all environment-based configuration.
type Config struct {
	Port           string
	GroqAPIKey     string
	GroqModel      string
	VoyageAPIKey   string
	VoyageModel    string
	VoyageDim      int
	QdrantURL      string
	Collection     string
	TopK           int
	ScoreThreshold float64
	Temperature    float64
	MaxTokens      int
	PromptsDir     string
	NATSURL        string
	CORSOrigin     string
}

func loadConfig() Config {
	return Config{
		Port:           envOr("PORT", "8080"),
		GroqAPIKey:     envOr("GROQ_API_KEY", ""),
		GroqModel:      envOr("GROQ_MODEL", "llama-3.3-70b-versatile"),
		VoyageAPIKey:   envOr("VOYAGE_API_KEY", ""),
		VoyageModel:    envOr("VOYAGE_EMBEDDING_MODEL", "voyage-3"),
		VoyageDim:      envIntOr("VOYAGE_EMBEDDING_DIM", 1024),
		QdrantURL:      envOr("QDRANT_URL", "localhost:6334"),
		Collection:     envOr("QDRANT_COLLECTION", "mindkeep_ideas"),
		TopK:           envIntOr("RAG_TOP_K", 5),
		ScoreThreshold: envFloatOr("RAG_SCORE_THRESHOLD", 0.7),
		Temperature:    envFloatOr("LLM_TEMPERATURE", 0.7),
		MaxTokens:      envIntOr("LLM_MAX_TOKENS", 1024),
		PromptsDir:     envOr("PROMPTS_DIR", "prompts"),
		NATSURL:        envOr("NATS_URL", ""),
		CORSOrigin:     envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("ignoring non-integer env value", "key", key, "value", v)
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		slog.Warn("ignoring non-numeric env value", "key", key, "value", v)
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Local development convenience; absent .env is fine.
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded .env file")
	}

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Providers ---
	embedder := voyage.NewClient(voyage.Config{
		APIKey:    cfg.VoyageAPIKey,
		Model:     cfg.VoyageModel,
		Dimension: cfg.VoyageDim,
	})
	llm := groq.NewClient(groq.Config{
		APIKey:      cfg.GroqAPIKey,
		Model:       cfg.GroqModel,
		Temperature: float32(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
	})

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	ensureCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err = vectorStore.EnsureCollection(ensureCtx, cfg.VoyageDim)
	cancel()
	if err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	// --- Optional NATS events ---
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL, nats.Name("mindkeep-api"))
		if err != nil {
			logger.Warn("nats unavailable, idea events disabled", "err", err)
			nc = nil
		} else {
			defer nc.Drain()
		}
	}

	// --- Services ---
	prompts := prompt.NewStore(cfg.PromptsDir)
	retriever := rag.New(embedder, vectorStore, nc, logger)
	ideaSvc := ideas.New(prompts, retriever, llm, ideas.Options{
		TopK:           cfg.TopK,
		ScoreThreshold: float32(cfg.ScoreThreshold),
	}, logger)
	taskSvc := tasks.New(prompts, llm, logger)

	// --- HTTP server ---
	reg := metrics.New()
	mux := http.NewServeMux()
	registerRoutes(mux, ideaSvc, taskSvc, retriever, reg, logger)

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("mindkeep-api"),
		mid.Metrics(reg),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "version", apiVersion)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
