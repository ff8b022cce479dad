package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mindkeep-ai/mindkeep/engine/domain"
)

type mockJSONLLM struct {
	output    string
	err       error
	gotSystem string
	gotInput  string
	calls     int
}

func (m *mockJSONLLM) GenerateJSON(_ context.Context, systemPrompt, userInput string) (string, error) {
	m.calls++
	m.gotSystem = systemPrompt
	m.gotInput = userInput
	return m.output, m.err
}

type mockPrompts struct {
	gotID   string
	gotSubs map[string]string
	err     error
}

func (m *mockPrompts) Render(id string, subs map[string]string) (string, error) {
	m.gotID = id
	m.gotSubs = subs
	if m.err != nil {
		return "", m.err
	}
	return "extract tasks from: " + subs["thought"], nil
}

func TestExtract(t *testing.T) {
	llm := &mockJSONLLM{output: `{"tasks":[{"task":"call dentist","priority":"high"},{"task":"water plants","priority":"low"},{"task":"tidy desk","priority":"someday"}]}`}
	prompts := &mockPrompts{}
	svc := New(prompts, llm, nil)

	items, err := svc.Extract(context.Background(), "busy week ahead")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].Task != "call dentist" || items[0].Priority != domain.PriorityHigh {
		t.Errorf("item 0 = %+v", items[0])
	}
	if items[2].Priority != domain.PriorityMedium {
		t.Errorf("unknown priority normalized to %q, want medium", items[2].Priority)
	}
	if prompts.gotID != ExtractPromptID {
		t.Errorf("prompt id = %q", prompts.gotID)
	}
	if prompts.gotSubs["thought"] != "busy week ahead" {
		t.Errorf("thought substitution = %q", prompts.gotSubs["thought"])
	}
}

func TestExtractEmptyList(t *testing.T) {
	llm := &mockJSONLLM{output: `{"tasks":[]}`}
	svc := New(&mockPrompts{}, llm, nil)

	items, err := svc.Extract(context.Background(), "just musing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items", len(items))
	}
}

func TestExtractSkipsBlankTasks(t *testing.T) {
	llm := &mockJSONLLM{output: `{"tasks":[{"task":"  ","priority":"high"},{"task":"real one","priority":"medium"}]}`}
	svc := New(&mockPrompts{}, llm, nil)

	items, err := svc.Extract(context.Background(), "thought")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Task != "real one" {
		t.Errorf("items = %+v", items)
	}
}

func TestExtractRejectsEmptyThought(t *testing.T) {
	llm := &mockJSONLLM{}
	svc := New(&mockPrompts{}, llm, nil)

	_, err := svc.Extract(context.Background(), "  ")
	if !errors.Is(err, domain.ErrEmptyContent) {
		t.Errorf("err = %v, want ErrEmptyContent", err)
	}
	if llm.calls != 0 {
		t.Errorf("llm called %d times for rejected input", llm.calls)
	}
}

func TestExtractInvalidJSON(t *testing.T) {
	llm := &mockJSONLLM{output: "here are your tasks"}
	svc := New(&mockPrompts{}, llm, nil)

	_, err := svc.Extract(context.Background(), "thought")
	if err == nil {
		t.Fatal("expected error")
	}
	pe, ok := domain.AsProviderError(err)
	if !ok || pe.Kind != domain.KindLLM {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExtractProviderError(t *testing.T) {
	llm := &mockJSONLLM{err: domain.NewProviderError(domain.KindLLM, "groq down", nil)}
	svc := New(&mockPrompts{}, llm, nil)

	_, err := svc.Extract(context.Background(), "thought")
	if err == nil {
		t.Fatal("expected error")
	}
	pe, ok := domain.AsProviderError(err)
	if !ok || pe.Kind != domain.KindLLM {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExtractMissingTemplate(t *testing.T) {
	prompts := &mockPrompts{err: domain.NewProviderError(domain.KindConfiguration, "template not found", nil)}
	llm := &mockJSONLLM{}
	svc := New(prompts, llm, nil)

	_, err := svc.Extract(context.Background(), "thought")
	if err == nil {
		t.Fatal("expected error")
	}
	pe, ok := domain.AsProviderError(err)
	if !ok || pe.Kind != domain.KindConfiguration {
		t.Errorf("unexpected error: %v", err)
	}
	if llm.calls != 0 {
		t.Errorf("llm called %d times despite missing template", llm.calls)
	}
}

func TestExtractWithContext(t *testing.T) {
	llm := &mockJSONLLM{output: `{"tasks":[{"task":"buy lumber","priority":"high"}]}`}
	svc := New(&mockPrompts{}, llm, nil)

	_, err := svc.ExtractWithContext(context.Background(), "follow up on that shed idea", []string{"Build a garden shed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(llm.gotInput, "Related notes:") || !strings.Contains(llm.gotInput, "- Build a garden shed") {
		t.Errorf("context not threaded into input: %q", llm.gotInput)
	}
}

func TestExtractWithContextEmpty(t *testing.T) {
	llm := &mockJSONLLM{output: `{"tasks":[]}`}
	svc := New(&mockPrompts{}, llm, nil)

	if _, err := svc.ExtractWithContext(context.Background(), "plain thought", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.gotInput != "plain thought" {
		t.Errorf("input = %q, want unmodified thought", llm.gotInput)
	}
}
