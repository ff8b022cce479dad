package main

import "testing"

func TestEnvOr(t *testing.T) {
	t.Setenv("MINDKEEP_TEST_KEY", "set")
	if got := envOr("MINDKEEP_TEST_KEY", "fallback"); got != "set" {
		t.Errorf("envOr = %q", got)
	}
	if got := envOr("MINDKEEP_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("envOr = %q", got)
	}
}

func TestEnvIntOr(t *testing.T) {
	t.Setenv("MINDKEEP_TEST_INT", "42")
	if got := envIntOr("MINDKEEP_TEST_INT", 5); got != 42 {
		t.Errorf("envIntOr = %d", got)
	}
	t.Setenv("MINDKEEP_TEST_INT", "not a number")
	if got := envIntOr("MINDKEEP_TEST_INT", 5); got != 5 {
		t.Errorf("envIntOr = %d, want fallback", got)
	}
}

func TestEnvFloatOr(t *testing.T) {
	t.Setenv("MINDKEEP_TEST_FLOAT", "0.85")
	if got := envFloatOr("MINDKEEP_TEST_FLOAT", 0.7); got != 0.85 {
		t.Errorf("envFloatOr = %v", got)
	}
	t.Setenv("MINDKEEP_TEST_FLOAT", "high")
	if got := envFloatOr("MINDKEEP_TEST_FLOAT", 0.7); got != 0.7 {
		t.Errorf("envFloatOr = %v, want fallback", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "RAG_TOP_K", "RAG_SCORE_THRESHOLD", "QDRANT_COLLECTION"} {
		t.Setenv(key, "")
	}
	cfg := loadConfig()
	if cfg.Port != "8080" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.TopK != 5 {
		t.Errorf("topK = %d", cfg.TopK)
	}
	if cfg.ScoreThreshold != 0.7 {
		t.Errorf("threshold = %v", cfg.ScoreThreshold)
	}
	if cfg.Collection != "mindkeep_ideas" {
		t.Errorf("collection = %q", cfg.Collection)
	}
}
