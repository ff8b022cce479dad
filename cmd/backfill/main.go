// Command backfill bulk-imports notes into vector memory. It reads a
// JSONL file (one {"text": ..., "metadata": {...}} object per line),
// embeds the texts in batches, and upserts them into the Qdrant
// collection so existing note archives become searchable context.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/mindkeep-ai/mindkeep/engine/semantic"
	"github.com/mindkeep-ai/mindkeep/pkg/voyage"
)

const defaultBatchSize = 32

type record struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

func main() {
	var (
		file      = flag.String("file", "", "path to JSONL file of notes (required)")
		batchSize = flag.Int("batch", defaultBatchSize, "embedding batch size")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: backfill -file notes.jsonl [-batch n]")
		os.Exit(2)
	}

	godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *file, *batchSize, logger); err != nil {
		logger.Error("backfill failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, batchSize int, logger *slog.Logger) error {
	dim := 1024
	if v := os.Getenv("VOYAGE_EMBEDDING_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			dim = n
		}
	}

	embedder := voyage.NewClient(voyage.Config{
		APIKey:    os.Getenv("VOYAGE_API_KEY"),
		Model:     envOr("VOYAGE_EMBEDDING_MODEL", "voyage-3"),
		Dimension: dim,
	})

	store, err := semantic.New(envOr("QDRANT_URL", "localhost:6334"), envOr("QDRANT_COLLECTION", "mindkeep_ideas"))
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx, dim); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		imported, skipped int
		batch             []record
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.Text
		}
		vectors, err := embedder.EmbedBatch(ctx, texts, voyage.InputDocument)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		metas := make([]map[string]any, len(batch))
		for i, r := range batch {
			meta := map[string]any{"source": "backfill", "imported_at": time.Now().UTC().Format(time.RFC3339)}
			for k, v := range r.Metadata {
				meta[k] = v
			}
			metas[i] = meta
		}
		ids, err := store.AddBatch(ctx, vectors, texts, metas)
		if err != nil {
			return fmt.Errorf("store batch: %w", err)
		}
		imported += len(ids)
		logger.Info("batch imported", "count", len(ids), "total", imported)
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r record
		if err := json.Unmarshal(line, &r); err != nil || r.Text == "" {
			skipped++
			continue
		}
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Info("backfill done", "imported", imported, "skipped", skipped)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
