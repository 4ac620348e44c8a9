package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitAndWait(t *testing.T) {
	p := New(4)
	defer p.Shutdown()

	var ran atomic.Int64
	for i := 0; i < 100; i++ {
		if err := p.Submit(func() { ran.Add(1) }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	p.Wait()

	if got := ran.Load(); got != 100 {
		t.Fatalf("ran = %d, want 100", got)
	}
}

func TestClampWorkers(t *testing.T) {
	p := New(0)
	if p.Workers() != DefaultWorkers {
		t.Fatalf("Workers() = %d, want %d", p.Workers(), DefaultWorkers)
	}
	p.Shutdown()

	p = New(100)
	if p.Workers() != MaxWorkers {
		t.Fatalf("Workers() = %d, want %d", p.Workers(), MaxWorkers)
	}
	p.Shutdown()
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	p := New(2)
	p.Shutdown()

	if err := p.Submit(func() {}); err != ErrShutdown {
		t.Fatalf("Submit after Shutdown = %v, want ErrShutdown", err)
	}
}

func TestShutdownDrainsInFlight(t *testing.T) {
	p := New(1)

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	if err := p.Submit(func() {
		close(started)
		<-release
		finished.Store(true)
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started

	done := make(chan struct{})
	go func() {
		p.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Shutdown returned while a task was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done

	if !finished.Load() {
		t.Fatal("in-flight task was not drained to completion")
	}
}

func TestShutdownDiscardsQueued(t *testing.T) {
	p := New(1)

	started := make(chan struct{})
	release := make(chan struct{})
	if err := p.Submit(func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started

	// Queued behind the blocked worker; must be discarded by Shutdown.
	var queuedRan atomic.Bool
	for i := 0; i < 10; i++ {
		if err := p.Submit(func() { queuedRan.Store(true) }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	p.Shutdown()

	if queuedRan.Load() {
		t.Fatal("queued-but-unstarted task ran during shutdown")
	}
}

func TestFIFOOrderSingleWorker(t *testing.T) {
	p := New(1)
	defer p.Shutdown()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 20; i++ {
		i := i
		if err := p.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	p.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d", i, v, i)
		}
	}
}
