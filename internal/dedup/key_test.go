package dedup

import (
	"strings"
	"sync"
	"testing"
)

func TestHashBytes_DeterministicFixedWidth(t *testing.T) {
	a := HashBytes([]byte("hello world"))
	b := HashBytes([]byte("hello world"))
	if a != b {
		t.Fatalf("same input produced different digests: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("digest width = %d, want 64", len(a))
	}
	if a != strings.ToLower(a) {
		t.Fatalf("digest not lowercase hex: %s", a)
	}
	if c := HashBytes([]byte("hello world!")); c == a {
		t.Fatalf("distinct inputs produced equal digests")
	}
}

func TestHashBytes_EmptyInput(t *testing.T) {
	// SHA-256 of the empty string is well known.
	const want = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := HashBytes(nil); got != want {
		t.Fatalf("HashBytes(nil) = %s, want %s", got, want)
	}
}

func TestNewKey_PromptDistinguishesKeys(t *testing.T) {
	hash := HashBytes([]byte("doc"))
	p1, p2 := "prompt-1", "prompt-2"

	k1 := NewKey(hash, &p1)
	k2 := NewKey(hash, &p2)
	if k1 == k2 {
		t.Fatalf("distinct templates must produce distinct keys")
	}
	if k1.String() == k2.String() {
		t.Fatalf("distinct templates must produce distinct string keys")
	}

	// Equal inputs, equal keys.
	if k1 != NewKey(hash, &p1) {
		t.Fatalf("equal inputs produced unequal keys")
	}

	// Nil template is a valid legacy key.
	k3 := NewKey(hash, nil)
	if k3.PromptTemplateID != "" {
		t.Fatalf("nil template should yield empty template id, got %q", k3.PromptTemplateID)
	}
	if k3.String() != hash+":" {
		t.Fatalf("unexpected legacy key string: %s", k3.String())
	}
}

func TestKeyLock_SerializesSameKey(t *testing.T) {
	kl := NewKeyLock()

	const workers = 8
	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			unlock := kl.Lock("same-key")
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("critical section concurrency = %d, want 1", maxActive)
	}
	if kl.Len() != 0 {
		t.Fatalf("lock table should be empty after release, has %d entries", kl.Len())
	}
}

func TestKeyLock_DistinctKeysIndependent(t *testing.T) {
	kl := NewKeyLock()

	unlockA := kl.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := kl.Lock("b") // must not block on key "a"
		unlockB()
		close(done)
	}()
	<-done
	unlockA()

	if kl.Len() != 0 {
		t.Fatalf("expected empty table, got %d entries", kl.Len())
	}
}

func TestKeyLock_UnlockIdempotent(t *testing.T) {
	kl := NewKeyLock()
	unlock := kl.Lock("k")
	unlock()
	unlock() // second call must be a no-op

	unlock2 := kl.Lock("k")
	unlock2()
}
