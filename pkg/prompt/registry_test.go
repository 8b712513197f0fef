package prompt

import (
	"sync"
	"testing"
)

func TestRegistryAcquireRelease(t *testing.T) {
	r := NewRegistry()

	if !r.TryAcquire("u1") {
		t.Fatal("first acquire failed")
	}
	if r.TryAcquire("u1") {
		t.Fatal("second acquire for the same user succeeded")
	}
	if !r.Open("u1") {
		t.Error("Open = false for a held user")
	}
	if !r.TryAcquire("u2") {
		t.Error("acquire for a different user failed")
	}

	r.Release("u1")
	if r.Open("u1") {
		t.Error("Open = true after release")
	}
	if !r.TryAcquire("u1") {
		t.Error("re-acquire after release failed")
	}
}

func TestRegistryReleaseIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Release("ghost")
	r.Release("ghost")

	if !r.TryAcquire("ghost") {
		t.Fatal("acquire failed after releasing a never-held user")
	}
	r.Release("ghost")
	r.Release("ghost")
	if r.Count() != 0 {
		t.Fatalf("Count = %d, want 0", r.Count())
	}
}

func TestRegistryCount(t *testing.T) {
	r := NewRegistry()

	for _, u := range []string{"a", "b", "c"} {
		if !r.TryAcquire(u) {
			t.Fatalf("acquire %q failed", u)
		}
	}
	if r.Count() != 3 {
		t.Fatalf("Count = %d, want 3", r.Count())
	}
	r.Release("b")
	if r.Count() != 2 {
		t.Fatalf("Count = %d, want 2", r.Count())
	}
}

func TestRegistryConcurrentAcquire(t *testing.T) {
	r := NewRegistry()

	const attempts = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.TryAcquire("contested") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("%d concurrent acquires won, want exactly 1", wins)
	}
}
