// Package ideas implements the idea processing pipeline: retrieve
// similar prior ideas, generate a structured note with that context,
// optionally store the raw input, and parse the model output.
package ideas

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mindkeep-ai/mindkeep/engine/domain"
	"github.com/mindkeep-ai/mindkeep/pkg/fn"
)

// RefinePromptID names the system prompt template for note refinement.
const RefinePromptID = "refine"

// Retriever is the slice of the rag package the pipeline needs.
type Retriever interface {
	RetrieveSimilar(ctx context.Context, text string, topK int, scoreThreshold float32) ([]string, error)
	StoreIdea(ctx context.Context, text string, metadata map[string]any) (string, error)
}

// Generator is the slice of the LLM client the pipeline needs.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userInput string) (string, error)
	GenerateWithContext(ctx context.Context, systemPrompt, userInput string, contexts []string) (string, error)
}

// PromptRenderer loads and renders prompt templates.
type PromptRenderer interface {
	Render(id string, subs map[string]string) (string, error)
}

// Options configures retrieval for the pipeline.
type Options struct {
	TopK           int
	ScoreThreshold float32
}

// DefaultOptions returns the default retrieval settings.
func DefaultOptions() Options {
	return Options{TopK: 5, ScoreThreshold: 0.7}
}

// Service runs the idea pipeline.
type Service struct {
	prompts   PromptRenderer
	retriever Retriever
	llm       Generator
	opts      Options
	logger    *slog.Logger
}

// New creates an idea Service.
func New(prompts PromptRenderer, retriever Retriever, llm Generator, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{prompts: prompts, retriever: retriever, llm: llm, opts: opts, logger: logger}
}

// llmPayload is the JSON shape the refine prompt asks the model for.
type llmPayload struct {
	CleanNote      string `json:"clean_note"`
	Themes         []string `json:"themes"`
	SuggestedTasks []struct {
		Task     string `json:"task"`
		Priority string `json:"priority"`
	} `json:"suggested_tasks"`
}

type generated struct {
	related []string
	output  string
}

// Process runs the pipeline. A missing prompt template yields a
// configuration-error result, not an error return; provider failures
// return an error; unparseable model output yields the error variant
// carrying the verbatim raw text.
func (s *Service) Process(ctx context.Context, rawText string, storeInMemory bool) (domain.IdeaResult, error) {
	if err := domain.ValidateContent(rawText); err != nil {
		return domain.IdeaResult{}, err
	}

	systemPrompt, err := s.prompts.Render(RefinePromptID, nil)
	if err != nil {
		s.logger.Error("refine prompt unavailable", "err", err)
		return domain.IdeaResult{Err: "system configuration error"}, nil
	}

	retrieve := fn.Traced("ideas.retrieve", fn.Stage[string, []string](
		func(ctx context.Context, text string) ([]string, error) {
			return s.retriever.RetrieveSimilar(ctx, text, s.opts.TopK, s.opts.ScoreThreshold)
		}))

	generate := fn.Traced("ideas.generate", fn.Stage[[]string, generated](
		func(ctx context.Context, related []string) (generated, error) {
			out, err := s.llm.GenerateWithContext(ctx, systemPrompt, rawText, related)
			if err != nil {
				return generated{}, err
			}
			return generated{related: related, output: out}, nil
		}))

	// The raw input is stored regardless of whether the model output
	// parses; generate and store are independent side effects.
	store := fn.Traced("ideas.store", fn.Stage[generated, generated](
		func(ctx context.Context, g generated) (generated, error) {
			if !storeInMemory {
				return g, nil
			}
			if _, err := s.retriever.StoreIdea(ctx, rawText, map[string]any{"source": "user_input"}); err != nil {
				return generated{}, err
			}
			return g, nil
		}))

	pipeline := fn.Then(fn.Then(retrieve, generate), store)
	g, err := pipeline(ctx, rawText)
	if err != nil {
		return domain.IdeaResult{}, err
	}

	return s.parse(g.output, len(g.related)), nil
}

// ProcessWithoutMemory runs a one-off refinement with no retrieval and
// no storage.
func (s *Service) ProcessWithoutMemory(ctx context.Context, rawText string) (domain.IdeaResult, error) {
	if err := domain.ValidateContent(rawText); err != nil {
		return domain.IdeaResult{}, err
	}

	systemPrompt, err := s.prompts.Render(RefinePromptID, nil)
	if err != nil {
		s.logger.Error("refine prompt unavailable", "err", err)
		return domain.IdeaResult{Err: "system configuration error"}, nil
	}

	out, err := s.llm.Generate(ctx, systemPrompt, rawText)
	if err != nil {
		return domain.IdeaResult{}, err
	}
	return s.parse(out, 0), nil
}

func (s *Service) parse(output string, relatedCount int) domain.IdeaResult {
	var payload llmPayload
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		s.logger.Warn("model returned invalid JSON", "err", err, "output_len", len(output))
		return domain.IdeaResult{
			Err:               "model returned invalid JSON",
			RawOutput:         output,
			ContextUsed:       relatedCount > 0,
			RelatedIdeasCount: relatedCount,
		}
	}

	tasks := make([]domain.TaskItem, len(payload.SuggestedTasks))
	for i, item := range payload.SuggestedTasks {
		tasks[i] = domain.TaskItem{
			Task:     item.Task,
			Priority: domain.NormalizePriority(item.Priority),
		}
	}

	return domain.IdeaResult{
		CleanNote:         payload.CleanNote,
		Themes:            payload.Themes,
		SuggestedTasks:    tasks,
		ContextUsed:       relatedCount > 0,
		RelatedIdeasCount: relatedCount,
	}
}
