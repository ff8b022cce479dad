package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"ok", "call the dentist tomorrow", nil},
		{"empty", "", ErrEmptyContent},
		{"whitespace only", "   \n\t ", ErrEmptyContent},
		{"at limit", strings.Repeat("a", MaxContentLength), nil},
		{"over limit", strings.Repeat("a", MaxContentLength+1), ErrContentTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContent(tt.content)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateContent_MultibyteCountsRunes(t *testing.T) {
	// 10000 multibyte runes are within the limit even though the byte
	// count is larger.
	s := strings.Repeat("é", MaxContentLength)
	if err := ValidateContent(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{"high", PriorityHigh},
		{"medium", PriorityMedium},
		{"low", PriorityLow},
		{"urgent", PriorityMedium},
		{"", PriorityMedium},
	}
	for _, tt := range tests {
		if got := NormalizePriority(tt.in); got != tt.want {
			t.Errorf("NormalizePriority(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProviderError(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewProviderError(KindVectorStore, "upsert failed", inner)

	if !errors.Is(err, inner) {
		t.Error("expected wrapped error to match with errors.Is")
	}
	pe, ok := AsProviderError(err)
	if !ok {
		t.Fatal("expected AsProviderError to match")
	}
	if pe.Kind != KindVectorStore {
		t.Errorf("kind = %q, want %q", pe.Kind, KindVectorStore)
	}
	if !strings.Contains(err.Error(), "upsert failed") {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestAsProviderError_Plain(t *testing.T) {
	if _, ok := AsProviderError(errors.New("boom")); ok {
		t.Error("plain error should not match")
	}
}

func TestIdeaResult_IsError(t *testing.T) {
	if (IdeaResult{CleanNote: "n"}).IsError() {
		t.Error("success variant reported as error")
	}
	if !(IdeaResult{Err: "model returned invalid JSON"}).IsError() {
		t.Error("error variant not reported")
	}
}
