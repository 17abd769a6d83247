package puzzles

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestStartWorker_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc, _ := testService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartWorker(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestStartWorker_TickTopsUpStock(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc, store := testService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartWorker(ctx)
		close(done)
	}()

	// The 1-second tick queues every empty cell and generates for the
	// first claimed tasks.
	deadline := time.Now().Add(5 * time.Second)
	for {
		rows, err := store.CandidatesForUser(ctx, "probe", time.Now().Add(-time.Hour), 500)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rows) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected the worker tick to generate inventory")
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
