package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type transientErr struct{ transient bool }

func (e transientErr) Error() string   { return "boom" }
func (e transientErr) Transient() bool { return e.transient }

func fastConfig(attempts int) Config {
	return Config{
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		MaxAttempts:  attempts,
		Multiplier:   2,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "op", fastConfig(3), zerolog.Nop(), func() error {
		calls++
		if calls < 3 {
			return transientErr{transient: true}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_PermanentErrorFailsImmediately(t *testing.T) {
	calls := 0
	wantErr := errors.New("bad request")
	err := Do(context.Background(), "op", fastConfig(5), zerolog.Nop(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Do() error = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent errors)", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "op", fastConfig(3), zerolog.Nop(), func() error {
		calls++
		return transientErr{transient: true}
	})
	if err == nil {
		t.Fatal("Do() succeeded, want exhaustion error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ContextCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, "op", fastConfig(10), zerolog.Nop(), func() error {
		calls++
		cancel()
		return transientErr{transient: true}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(nil) {
		t.Error("IsTransient(nil) = true")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("plain error classified transient")
	}
	if !IsTransient(transientErr{transient: true}) {
		t.Error("tagged error not classified transient")
	}
	if IsTransient(transientErr{transient: false}) {
		t.Error("explicitly non-transient error classified transient")
	}
}
