package lock

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLocalLock(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	ok, _ := l.Lock(ctx, "a", "t1", time.Minute)
	if !ok {
		t.Fatal("first lock should succeed")
	}
	ok, _ = l.Lock(ctx, "a", "t2", time.Minute)
	if ok {
		t.Fatal("second lock on same key should fail")
	}
	ok, _ = l.Lock(ctx, "b", "t3", time.Minute)
	if !ok {
		t.Fatal("other key should be free")
	}

	_ = l.Unlock(ctx, "a", "t1")
	ok, _ = l.Lock(ctx, "a", "t4", time.Minute)
	if !ok {
		t.Fatal("lock after unlock should succeed")
	}
}

func TestLocalLockExpires(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	l.Lock(ctx, "a", "t1", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if ok, _ := l.Lock(ctx, "a", "t2", time.Minute); !ok {
		t.Fatal("expired lock should be free")
	}
}

// a holder whose lock expired must not free the lock taken after it
func TestLocalUnlockStaleHolder(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	l.Lock(ctx, "k", "old", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if ok, _ := l.Lock(ctx, "k", "new", time.Minute); !ok {
		t.Fatal("expired lock should be free")
	}

	_ = l.Unlock(ctx, "k", "old")
	if ok, _ := l.Lock(ctx, "k", "third", time.Minute); ok {
		t.Fatal("stale unlock released the current holder")
	}

	_ = l.Unlock(ctx, "k", "new")
	if ok, _ := l.Lock(ctx, "k", "third", time.Minute); !ok {
		t.Fatal("owner unlock should release")
	}
}

func TestAcquireTimesOut(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()
	l.Lock(ctx, "busy", "holder", time.Minute)

	err := Acquire(ctx, l, "busy", NewToken(), time.Minute, 50*time.Millisecond)
	if !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired, got %v", err)
	}
}

func TestAcquireWaitsForRelease(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()
	l.Lock(ctx, "k", "holder", time.Minute)

	go func() {
		time.Sleep(30 * time.Millisecond)
		l.Unlock(ctx, "k", "holder")
	}()

	if err := Acquire(ctx, l, "k", NewToken(), time.Minute, 2*time.Second); err != nil {
		t.Fatalf("acquire: %v", err)
	}
}

// ----- concurrent -----

func TestLocalLockConcurrent(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Lock(ctx, "same", NewToken(), time.Minute); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly 1 winner, got %d", wins)
	}
}

func TestRedisLock(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	r, err := NewRedisLock(addr, os.Getenv("REDIS_PASSWORD"))
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	t.Cleanup(func() { r.Close() })

	ctx := context.Background()
	key := "test-" + uuid.NewString()

	ok, err := r.Lock(ctx, key, "t1", 10*time.Second)
	if err != nil || !ok {
		t.Fatalf("lock: %v %v", ok, err)
	}
	ok, _ = r.Lock(ctx, key, "t2", 10*time.Second)
	if ok {
		t.Fatal("second lock should fail")
	}

	if err := r.Unlock(ctx, key, "t2"); err != nil {
		t.Fatalf("foreign unlock: %v", err)
	}
	if ok, _ = r.Lock(ctx, key, "t3", 10*time.Second); ok {
		t.Fatal("foreign unlock released the lock")
	}

	if err := r.Unlock(ctx, key, "t1"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	ok, _ = r.Lock(ctx, key, "t4", 10*time.Second)
	if !ok {
		t.Fatal("lock after unlock should succeed")
	}
	r.Unlock(ctx, key, "t4")
}
