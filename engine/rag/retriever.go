// Package rag orchestrates the retrieval side of the pipeline: it embeds
// idea text, writes it to the vector store, and pulls semantically
// similar prior ideas back out for prompt context.
package rag

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mindkeep-ai/mindkeep/engine/domain"
	"github.com/mindkeep-ai/mindkeep/engine/semantic"
	"github.com/mindkeep-ai/mindkeep/pkg/natsutil"
)

// NATS subjects for idea lifecycle events.
const (
	SubjectIdeaStored  = "mindkeep.idea.stored"
	SubjectIdeaDeleted = "mindkeep.idea.deleted"
)

// defaultInspectLimit caps GetAll snapshots.
const defaultInspectLimit = 100

// Embedder converts text into vectors in query or document role.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	ProviderName() string
}

// VectorStore abstracts the Qdrant-backed store.
type VectorStore interface {
	Add(ctx context.Context, embedding []float32, text string, metadata map[string]any) (string, error)
	Search(ctx context.Context, embedding []float32, topK int, scoreThreshold float32) ([]semantic.SearchResult, error)
	GetAll(ctx context.Context, limit int) ([]semantic.StoredRecord, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) int
	HealthCheck(ctx context.Context) domain.HealthStatus
}

// Retriever composes the embedder and vector store. A nil NATS conn
// disables event publishing.
type Retriever struct {
	embed  Embedder
	store  VectorStore
	nc     *nats.Conn
	logger *slog.Logger
}

// New creates a Retriever.
func New(embed Embedder, store VectorStore, nc *nats.Conn, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embed: embed, store: store, nc: nc, logger: logger}
}

// StoreIdea embeds text in document role and upserts it tagged as an
// idea. There is no transactional coupling with retrieval; visibility
// to concurrent searches is whatever the store provides.
func (r *Retriever) StoreIdea(ctx context.Context, text string, metadata map[string]any) (string, error) {
	embedding, err := r.embed.EmbedDocument(ctx, text)
	if err != nil {
		return "", err
	}

	storedAt := time.Now().UTC()
	full := map[string]any{
		"type":      "idea",
		"stored_at": storedAt.Format(time.RFC3339),
	}
	for k, v := range metadata {
		full[k] = v
	}

	id, err := r.store.Add(ctx, embedding, text, full)
	if err != nil {
		return "", err
	}

	r.publish(ctx, SubjectIdeaStored, domain.IdeaStoredEvent{ID: id, StoredAt: storedAt})
	r.logger.Info("idea stored", "id", id)
	return id, nil
}

// RetrieveSimilar returns the texts of stored ideas similar to text,
// embedding it in query role.
func (r *Retriever) RetrieveSimilar(ctx context.Context, text string, topK int, scoreThreshold float32) ([]string, error) {
	results, err := r.RetrieveSimilarScored(ctx, text, topK, scoreThreshold)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Text
	}
	return texts, nil
}

// RetrieveSimilarScored returns full search hits with scores and metadata.
func (r *Retriever) RetrieveSimilarScored(ctx context.Context, text string, topK int, scoreThreshold float32) ([]semantic.SearchResult, error) {
	embedding, err := r.embed.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	results, err := r.store.Search(ctx, embedding, topK, scoreThreshold)
	if err != nil {
		return nil, err
	}
	r.logger.Info("retrieved similar ideas", "count", len(results))
	return results, nil
}

// GetAll returns a snapshot of stored memories for inspection.
func (r *Retriever) GetAll(ctx context.Context) ([]domain.Memory, error) {
	records, err := r.store.GetAll(ctx, defaultInspectLimit)
	if err != nil {
		return nil, err
	}
	memories := make([]domain.Memory, len(records))
	for i, rec := range records {
		memories[i] = domain.Memory{ID: rec.ID, Text: rec.Text, Metadata: rec.Meta}
	}
	return memories, nil
}

// Delete removes a stored idea by id. False means the id was unknown.
func (r *Retriever) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := r.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		r.publish(ctx, SubjectIdeaDeleted, domain.IdeaDeletedEvent{ID: id, DeletedAt: time.Now().UTC()})
		r.logger.Info("idea deleted", "id", id)
	}
	return ok, nil
}

// Stats reports memory size plus embedding provider metadata.
func (r *Retriever) Stats(ctx context.Context) domain.MemoryStats {
	return domain.MemoryStats{
		TotalIdeas:         r.store.Count(ctx),
		EmbeddingProvider:  r.embed.ProviderName(),
		EmbeddingDimension: r.embed.Dimension(),
		Health:             r.store.HealthCheck(ctx),
	}
}

// publish is fire-and-forget: event delivery never fails the request.
func (r *Retriever) publish(ctx context.Context, subject string, event any) {
	if r.nc == nil {
		return
	}
	if err := natsutil.Publish(ctx, r.nc, subject, event); err != nil {
		r.logger.Warn("event publish failed", "subject", subject, "err", err)
	}
}
