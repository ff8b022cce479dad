// Package domain defines core types, validation, and the provider error
// family for the Mindkeep pipeline. It acts as the validation gate at
// pipeline entry points.
package domain

import "time"

// Priority classifies how urgent an extracted task is.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ValidPriorities is the set of recognised task priorities.
var ValidPriorities = map[Priority]bool{
	PriorityHigh: true, PriorityMedium: true, PriorityLow: true,
}

// NormalizePriority maps unknown priority strings to medium.
func NormalizePriority(s string) Priority {
	p := Priority(s)
	if ValidPriorities[p] {
		return p
	}
	return PriorityMedium
}

// TaskItem is a single actionable task extracted from user text.
type TaskItem struct {
	Task     string   `json:"task"`
	Priority Priority `json:"priority"`
}

// IdeaResult is the outcome of the idea processing pipeline. Exactly one
// of the two variants is populated: the structured fields on success, or
// Err (plus the verbatim RawOutput) when the model reply was unusable.
// Callers check Err rather than relying on an error return; provider
// failures are reported separately as *ProviderError.
type IdeaResult struct {
	CleanNote         string     `json:"clean_note,omitempty"`
	Themes            []string   `json:"themes,omitempty"`
	SuggestedTasks    []TaskItem `json:"suggested_tasks,omitempty"`
	ContextUsed       bool       `json:"context_used"`
	RelatedIdeasCount int        `json:"related_ideas_count"`
	Err               string     `json:"error,omitempty"`
	RawOutput         string     `json:"raw_output,omitempty"`
}

// IsError reports whether the result carries the error variant.
func (r IdeaResult) IsError() bool { return r.Err != "" }

// Memory is a stored idea record as seen by inspection endpoints.
type Memory struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// MemoryStats summarises the state of the vector memory.
type MemoryStats struct {
	TotalIdeas         int          `json:"total_ideas"`
	EmbeddingProvider  string       `json:"embedding_provider"`
	EmbeddingDimension int          `json:"embedding_dimension"`
	Health             HealthStatus `json:"health"`
}

// HealthStatus is the non-failing health report of the vector store.
type HealthStatus struct {
	Status      string `json:"status"`
	Collection  string `json:"collection,omitempty"`
	PointsCount int    `json:"points_count"`
	Error       string `json:"error,omitempty"`
}

// Healthy reports whether the store answered its health probe.
func (h HealthStatus) Healthy() bool { return h.Status == "healthy" }

// IdeaStoredEvent is published when an idea lands in vector memory.
type IdeaStoredEvent struct {
	ID       string    `json:"id"`
	StoredAt time.Time `json:"stored_at"`
}

// IdeaDeletedEvent is published when an idea is removed from vector memory.
type IdeaDeletedEvent struct {
	ID        string    `json:"id"`
	DeletedAt time.Time `json:"deleted_at"`
}
