package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSerialRunsInOrder(t *testing.T) {
	t.Parallel()
	e := newSerial(Config{})
	defer func() { _ = e.Stop(context.Background()) }()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		e.Spawn("unit", func(ctx context.Context) {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

func TestPoolRunsConcurrently(t *testing.T) {
	t.Parallel()
	e := newPool(Config{Workers: 4})
	defer func() { _ = e.Stop(context.Background()) }()

	gate := make(chan struct{})
	var running atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		e.Spawn("unit", func(ctx context.Context) {
			defer wg.Done()
			running.Add(1)
			<-gate
		})
	}

	deadline := time.Now().Add(2 * time.Second)
	for running.Load() != 4 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d units running concurrently, want 4", running.Load())
		}
		time.Sleep(time.Millisecond)
	}
	close(gate)
	wg.Wait()
}

func TestSpawnSurvivesPanic(t *testing.T) {
	t.Parallel()
	for _, kind := range []Kind{KindSerial, KindPool} {
		kind := kind
		t.Run(string(kind), func(t *testing.T) {
			t.Parallel()
			e, err := New(Config{Kind: kind, Workers: 2})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer func() { _ = e.Stop(context.Background()) }()

			e.Spawn("boom", func(ctx context.Context) { panic("boom") })

			done := make(chan struct{})
			e.Spawn("after", func(ctx context.Context) { close(done) })
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("executor dead after panic")
			}
		})
	}
}

func TestSpawnBlockingDoesNotStallAsyncLane(t *testing.T) {
	t.Parallel()
	e := newSerial(Config{})
	defer func() { _ = e.Stop(context.Background()) }()

	release := make(chan struct{})
	started := make(chan struct{})
	e.SpawnBlocking("slow", func(ctx context.Context) {
		close(started)
		<-release
	})
	<-started

	done := make(chan struct{})
	e.Spawn("fast", func(ctx context.Context) { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async lane stalled behind blocking work")
	}
	close(release)
}

func TestStopWaitsForInFlight(t *testing.T) {
	t.Parallel()
	e := newPool(Config{Workers: 2})

	var finished atomic.Bool
	started := make(chan struct{})
	e.Spawn("work", func(ctx context.Context) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})
	<-started

	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !finished.Load() {
		t.Fatal("Stop returned before in-flight work finished")
	}
}

func TestBodyVariants(t *testing.T) {
	t.Parallel()

	t.Run("func", func(t *testing.T) {
		t.Parallel()
		ran := false
		b := Func(func() { ran = true })
		if err := b.Run(context.Background()); err != nil || !ran {
			t.Fatalf("Run = %v, ran = %v", err, ran)
		}
	})

	t.Run("async error", func(t *testing.T) {
		t.Parallel()
		want := errors.New("nope")
		b := Async(func(ctx context.Context) error { return want })
		if err := b.Run(context.Background()); !errors.Is(err, want) {
			t.Fatalf("Run = %v, want %v", err, want)
		}
	})

	t.Run("panic becomes error", func(t *testing.T) {
		t.Parallel()
		b := Async(func(ctx context.Context) error { panic("kaboom") })
		if err := b.Run(context.Background()); err == nil {
			t.Fatal("expected error from panicking body")
		}
	})

	t.Run("command", func(t *testing.T) {
		t.Parallel()
		if err := Command("true").Run(context.Background()); err != nil {
			t.Fatalf("true: %v", err)
		}
		if err := Command("exit 3").Run(context.Background()); err == nil {
			t.Fatal("expected error from failing command")
		}
	})

	t.Run("command cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := Command("sleep 10").Run(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Run = %v, want deadline exceeded", err)
		}
	})

	t.Run("validate", func(t *testing.T) {
		t.Parallel()
		if err := (Body{}).Validate(); err == nil {
			t.Fatal("zero body must not validate")
		}
		if err := Command("  ").Validate(); err == nil {
			t.Fatal("blank command must not validate")
		}
		if err := Async(nil).Validate(); err == nil {
			t.Fatal("nil async must not validate")
		}
	})
}
