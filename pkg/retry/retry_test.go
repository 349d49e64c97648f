package retry

import (
	"errors"
	"testing"
	"time"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func quickConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Retry(quickConfig(3), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Retry returned %v", err)
	}
	if calls != 1 {
		t.Errorf("action ran %d times, want 1", calls)
	}
}

func TestRetryRecoversAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(quickConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry returned %v", err)
	}
	if calls != 3 {
		t.Errorf("action ran %d times, want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	base := errors.New("still broken")
	err := Retry(quickConfig(3), func() error {
		calls++
		return base
	})
	if err == nil {
		t.Fatal("expected an error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("action ran %d times, want 3", calls)
	}
	if !errors.Is(err, base) {
		t.Errorf("final error %v does not wrap the last failure", err)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Retry(quickConfig(5), func() error {
		calls++
		return &permanentError{err: errors.New("bad request")}
	})
	if err == nil {
		t.Fatal("expected the non-retryable error to be returned")
	}
	if calls != 1 {
		t.Errorf("action ran %d times, want 1", calls)
	}
}
