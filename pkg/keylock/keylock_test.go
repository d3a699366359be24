package keylock

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAcquireSerializesSameKey(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	ctx := context.Background()

	var mu sync.Mutex
	inCritical := 0
	maxInCritical := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := reg.Acquire(ctx, "room-101")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			inCritical++
			if inCritical > maxInCritical {
				maxInCritical = inCritical
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxInCritical != 1 {
		t.Fatalf("expected at most one holder for the same key, saw %d", maxInCritical)
	}
}

func TestAcquireDifferentKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(WithWait(100*time.Millisecond), WithRetries(1))
	ctx := context.Background()

	releaseA, err := reg.Acquire(ctx, "resource-a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB, err := reg.Acquire(ctx, "resource-b")
		if err != nil {
			t.Errorf("acquire b: %v", err)
		} else {
			releaseB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key should not contend")
	}
}

func TestAcquireTimesOut(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(WithWait(10*time.Millisecond), WithRetries(2))
	ctx := context.Background()

	release, err := reg.Acquire(ctx, "busy")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer release()

	if _, err := reg.Acquire(ctx, "busy"); err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestAcquireHonorsContext(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(WithWait(time.Minute), WithRetries(1))

	release, err := reg.Acquire(context.Background(), "busy")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := reg.Acquire(ctx, "busy"); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestReleaseMakesKeyAvailable(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(WithWait(50*time.Millisecond), WithRetries(1))
	ctx := context.Background()

	release, err := reg.Acquire(ctx, "table-9")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()

	release2, err := reg.Acquire(ctx, "table-9")
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	release2()
}
