package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mindkeep-ai/mindkeep/engine/domain"
	"github.com/mindkeep-ai/mindkeep/pkg/metrics"
)

var validate = validator.New()

// ideaProcessor is the slice of the idea service the handlers need.
type ideaProcessor interface {
	Process(ctx context.Context, rawText string, storeInMemory bool) (domain.IdeaResult, error)
}

// taskExtractor is the slice of the task service the handlers need.
type taskExtractor interface {
	Extract(ctx context.Context, thought string) ([]domain.TaskItem, error)
}

// memoryAdmin is the slice of the retriever the inspection endpoints need.
type memoryAdmin interface {
	GetAll(ctx context.Context) ([]domain.Memory, error)
	Delete(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) domain.MemoryStats
}

func registerRoutes(mux *http.ServeMux, ideaSvc ideaProcessor, taskSvc taskExtractor, memory memoryAdmin, reg *metrics.Registry, logger *slog.Logger) {
	mux.HandleFunc("GET /", handleRoot)
	mux.HandleFunc("GET /health", handleHealth(memory))
	mux.Handle("GET /metrics", reg.Handler())
	mux.HandleFunc("POST /ideas", handleProcessIdea(ideaSvc, logger))
	mux.HandleFunc("GET /ideas/memory", handleListMemory(memory, logger))
	mux.HandleFunc("GET /ideas/memory/stats", handleMemoryStats(memory))
	mux.HandleFunc("DELETE /ideas/memory/{id}", handleDeleteMemory(memory, logger))
	mux.HandleFunc("POST /tasks/extract", handleExtractTasks(taskSvc, logger))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps pipeline errors onto HTTP statuses: validation
// sentinels are the caller's fault, provider failures are upstream
// outages, everything else is a plain 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyContent), errors.Is(err, domain.ErrContentTooLong):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		if pe, ok := domain.AsProviderError(err); ok {
			logger.Error("provider failure", "kind", pe.Kind, "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": pe.Message,
				"kind":  pe.Kind,
			})
			return
		}
		logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	// "GET /" also matches every unregistered path.
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "mindkeep-api",
		"version": apiVersion,
		"status":  "running",
	})
}

func handleHealth(memory memoryAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := memory.Stats(r.Context())
		status := "ok"
		if !stats.Health.Healthy() {
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  status,
			"version": apiVersion,
			"services": map[string]any{
				"vector_store": stats.Health,
				"embeddings":   stats.EmbeddingProvider,
			},
		})
	}
}

// IdeaRequest is the JSON body for POST /ideas.
type IdeaRequest struct {
	Content       string `json:"content" validate:"required,max=10000"`
	StoreInMemory *bool  `json:"store_in_memory"`
}

func handleProcessIdea(svc ideaProcessor, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req IdeaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}

		store := true
		if req.StoreInMemory != nil {
			store = *req.StoreInMemory
		}

		result, err := svc.Process(r.Context(), req.Content, store)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleListMemory(memory memoryAdmin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memories, err := memory.GetAll(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":    len(memories),
			"memories": memories,
		})
	}
}

func handleMemoryStats(memory memoryAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, memory.Stats(r.Context()))
	}
}

func handleDeleteMemory(memory memoryAdmin, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		deleted, err := memory.Delete(r.Context(), id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if !deleted {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "memory not found", "id": id})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"deleted_id": id,
		})
	}
}

// TaskRequest is the JSON body for POST /tasks/extract.
type TaskRequest struct {
	Content string `json:"content" validate:"required,max=10000"`
}

func handleExtractTasks(svc taskExtractor, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}

		items, err := svc.Extract(r.Context(), req.Content)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count": len(items),
			"tasks": items,
		})
	}
}
