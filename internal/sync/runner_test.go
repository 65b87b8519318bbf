package sync

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunnerRunsImmediatelyThenOnInterval(t *testing.T) {
	cycles := make(chan struct{}, 16)
	cycle := func(ctx context.Context) (*CycleReport, error) {
		cycles <- struct{}{}
		return &CycleReport{}, nil
	}

	runner := NewRunner(cycle, 25*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	// First cycle fires without waiting for the interval
	select {
	case <-cycles:
	case <-time.After(time.Second):
		t.Fatal("expected an immediate first cycle")
	}

	// At least one more on the ticker
	select {
	case <-cycles:
	case <-time.After(time.Second):
		t.Fatal("expected a second cycle on the interval")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runner did not stop on cancellation")
	}
}

func TestRunnerKickTriggersEarlyCycle(t *testing.T) {
	cycles := make(chan struct{}, 16)
	cycle := func(ctx context.Context) (*CycleReport, error) {
		cycles <- struct{}{}
		return &CycleReport{}, nil
	}

	kicks := make(chan struct{}, 1)
	runner := NewRunner(cycle, time.Hour, kicks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Run(ctx)

	// Immediate cycle
	select {
	case <-cycles:
	case <-time.After(time.Second):
		t.Fatal("expected an immediate first cycle")
	}

	// A kick must not wait for the hour-long interval
	kicks <- struct{}{}
	select {
	case <-cycles:
	case <-time.After(time.Second):
		t.Fatal("expected a kicked cycle")
	}
}

func TestRunnerSurvivesCycleErrors(t *testing.T) {
	cycles := make(chan struct{}, 16)
	cycle := func(ctx context.Context) (*CycleReport, error) {
		cycles <- struct{}{}
		return nil, errors.New("boom")
	}

	runner := NewRunner(cycle, 25*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-cycles:
		case <-time.After(time.Second):
			t.Fatalf("expected cycle %d despite errors", i+1)
		}
	}
}

func TestRunnerDefaultInterval(t *testing.T) {
	runner := NewRunner(func(ctx context.Context) (*CycleReport, error) {
		return &CycleReport{}, nil
	}, 0, nil)

	if runner.interval != DefaultInterval {
		t.Errorf("expected default interval %v, got %v", DefaultInterval, runner.interval)
	}
}
