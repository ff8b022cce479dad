// Package tasks extracts actionable items from free-form thoughts.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mindkeep-ai/mindkeep/engine/domain"
)

// ExtractPromptID names the task extraction prompt template.
const ExtractPromptID = "task_extract"

// Generator is the slice of the LLM client the service needs. Task
// extraction always runs in JSON mode.
type Generator interface {
	GenerateJSON(ctx context.Context, systemPrompt, userInput string) (string, error)
}

// PromptRenderer loads and renders prompt templates.
type PromptRenderer interface {
	Render(id string, subs map[string]string) (string, error)
}

// Service extracts tasks from a thought via the LLM.
type Service struct {
	prompts PromptRenderer
	llm     Generator
	logger  *slog.Logger
}

// New creates a task extraction Service.
func New(prompts PromptRenderer, llm Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{prompts: prompts, llm: llm, logger: logger}
}

// Extract asks the model for the actionable items in thought. Provider
// and parse failures are returned as errors; an empty list is only ever
// a genuine "nothing to do here" answer from the model.
func (s *Service) Extract(ctx context.Context, thought string) ([]domain.TaskItem, error) {
	return s.extract(ctx, thought, nil)
}

// ExtractWithContext extracts tasks with prior notes appended to the
// thought, so the model can resolve references like "that shed idea".
func (s *Service) ExtractWithContext(ctx context.Context, thought string, contexts []string) ([]domain.TaskItem, error) {
	return s.extract(ctx, thought, contexts)
}

func (s *Service) extract(ctx context.Context, thought string, contexts []string) ([]domain.TaskItem, error) {
	if err := domain.ValidateContent(thought); err != nil {
		return nil, err
	}

	input := thought
	if len(contexts) > 0 {
		var b strings.Builder
		b.WriteString(thought)
		b.WriteString("\n\nRelated notes:\n")
		for _, c := range contexts {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
		input = b.String()
	}

	prompt, err := s.prompts.Render(ExtractPromptID, map[string]string{"thought": input})
	if err != nil {
		return nil, err
	}

	out, err := s.llm.GenerateJSON(ctx, prompt, input)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Tasks []struct {
			Task     string `json:"task"`
			Priority string `json:"priority"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		s.logger.Warn("task extraction returned invalid JSON", "err", err, "output_len", len(out))
		return nil, domain.NewProviderError(domain.KindLLM,
			fmt.Sprintf("task extraction returned invalid JSON: %v", err), err)
	}

	items := make([]domain.TaskItem, 0, len(payload.Tasks))
	for _, t := range payload.Tasks {
		if strings.TrimSpace(t.Task) == "" {
			continue
		}
		items = append(items, domain.TaskItem{
			Task:     t.Task,
			Priority: domain.NormalizePriority(t.Priority),
		})
	}
	return items, nil
}
