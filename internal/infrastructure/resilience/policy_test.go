package resilience

import (
	"testing"
	"time"
)

func TestDisabledMakesOneAttempt(t *testing.T) {
	cfg := Disabled()
	if cfg.RetryMaxAttempts != 1 || cfg.BreakerEnabled {
		t.Fatalf("unexpected disabled config %+v", cfg)
	}
	if cfg.MaxRetryDelay() != 0 {
		t.Fatalf("expected no retry delay, got %s", cfg.MaxRetryDelay())
	}
}

func TestMaxRetryDelayFollowsBackoff(t *testing.T) {
	cfg := DefaultConfig()
	// 100ms then 200ms between three attempts.
	if got := cfg.MaxRetryDelay(); got != 300*time.Millisecond {
		t.Fatalf("MaxRetryDelay() = %s", got)
	}
	cfg.RetryMaxAttempts = 5
	// 100 + 200 + 400 + 400 (capped).
	if got := cfg.MaxRetryDelay(); got != 1100*time.Millisecond {
		t.Fatalf("MaxRetryDelay() = %s", got)
	}
}

func TestBestEffortFitsMirrorDeadline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryMaxAttempts = 6
	cfg.RetryInitialBackoff = time.Second
	cfg.RetryMaxBackoff = 10 * time.Second

	got := cfg.BestEffort()
	if got.RetryMaxAttempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", got.RetryMaxAttempts)
	}
	if got.MaxRetryDelay() > 50*time.Millisecond {
		t.Fatalf("best-effort delay too long: %s", got.MaxRetryDelay())
	}
	if !got.BreakerEnabled {
		t.Fatalf("breaker must stay enabled")
	}

	single := Disabled().BestEffort()
	if single.RetryMaxAttempts != 1 {
		t.Fatalf("best effort must not add attempts, got %d", single.RetryMaxAttempts)
	}
}
