package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger = zap.NewNop()
	// go.opencensus.io (via google.golang.org/genai) starts a background
	// worker goroutine at package init that can never be stopped.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func TestDebounceCoalescesBursts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 16)
	var fired atomic.Int32

	done := make(chan struct{})
	go func() {
		defer close(done)
		debounceLoop(ctx, changed, 20*time.Millisecond, func() { fired.Add(1) })
	}()

	for i := 0; i < 5; i++ {
		changed <- "general.json"
		time.Sleep(2 * time.Millisecond)
	}

	deadline := time.After(time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("debounced callback never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := fired.Load(); got != 1 {
		t.Errorf("burst of 5 changes fired %d times, want 1", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounce loop did not exit on cancel")
	}
}

func TestDebounceStopsCleanlyMidBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	changed := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		debounceLoop(ctx, changed, time.Hour, func() {
			t.Error("callback fired before the quiet window elapsed")
		})
	}()

	changed <- "domain.json"
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounce loop did not exit on cancel")
	}
}
