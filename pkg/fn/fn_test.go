package fn

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"
)

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), DefaultRetry, func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 || calls != 1 {
		t.Errorf("v=%d calls=%d", v, calls)
	}
}

func TestRetry_EventualSuccess(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
	calls := 0
	v, err := Retry(context.Background(), opts, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" || calls != 3 {
		t.Errorf("v=%q calls=%d", v, calls)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
	calls := 0
	want := errors.New("permanent")
	_, err := Retry(context.Background(), opts, func(context.Context) (int, error) {
		calls++
		return 0, want
	})
	if !errors.Is(err, want) {
		t.Fatalf("got %v, want %v", err, want)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := RetryOpts{MaxAttempts: 5, InitialWait: time.Hour, MaxWait: time.Hour}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Retry(ctx, opts, func(context.Context) (int, error) {
		return 0, errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestThen_Composes(t *testing.T) {
	parse := Stage[string, int](func(_ context.Context, s string) (int, error) {
		return strconv.Atoi(s)
	})
	double := Stage[int, int](func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	})
	v, err := Then(parse, double)(context.Background(), "21")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Errorf("v = %d, want 42", v)
	}
}

func TestThen_ShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	first := Stage[int, int](func(_ context.Context, n int) (int, error) {
		return 0, boom
	})
	secondCalled := false
	second := Stage[int, int](func(_ context.Context, n int) (int, error) {
		secondCalled = true
		return n, nil
	})
	_, err := Then(first, second)(context.Background(), 1)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if secondCalled {
		t.Error("second stage ran after failure")
	}
}

func TestTap_PassesThrough(t *testing.T) {
	var seen string
	tap := Tap(func(_ context.Context, s string) { seen = s })
	v, err := tap(context.Background(), "hello")
	if err != nil || v != "hello" || seen != "hello" {
		t.Errorf("v=%q seen=%q err=%v", v, seen, err)
	}
}

func TestTraced_PropagatesError(t *testing.T) {
	stage := Traced("failing", Stage[int, int](func(_ context.Context, n int) (int, error) {
		return 0, fmt.Errorf("n=%d failed", n)
	}))
	if _, err := stage(context.Background(), 7); err == nil {
		t.Fatal("expected error")
	}
}
