package quota

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable clock for deterministic window arithmetic.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestLedger(hourly, daily int) (*Ledger, *fakeClock) {
	clk := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewLedger(Limits{HourlyBurst: hourly, Daily: daily}, clk.Now), clk
}

func TestAdmit_BurstCeilingThenReject(t *testing.T) {
	l, _ := newTestLedger(3, 100)

	for i := 0; i < 3; i++ {
		if d := l.Admit("k"); !d.OK {
			t.Fatalf("admission %d rejected, retry after %v", i+1, d.RetryAfter)
		}
	}
	d := l.Admit("k")
	if d.OK {
		t.Fatalf("admission above ceiling must be rejected")
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("rejection must carry a positive retry-after, got %v", d.RetryAfter)
	}
}

func TestAdmit_WindowRollsOver(t *testing.T) {
	l, clk := newTestLedger(2, 100)

	if !l.Admit("k").OK || !l.Admit("k").OK {
		t.Fatalf("first two admissions should pass")
	}
	if l.Admit("k").OK {
		t.Fatalf("third admission should be rejected")
	}

	// One token refills every 30 minutes at 2/hour.
	clk.Advance(31 * time.Minute)
	if !l.Admit("k").OK {
		t.Fatalf("admission should succeed after the window rolled over")
	}
}

func TestAdmit_DailyCeilingWins(t *testing.T) {
	l, clk := newTestLedger(10, 2)

	if !l.Admit("k").OK || !l.Admit("k").OK {
		t.Fatalf("daily allowance should admit two")
	}
	d := l.Admit("k")
	if d.OK {
		t.Fatalf("daily ceiling must reject the third admission")
	}
	// The wait stems from the day bucket, far beyond the hourly refill.
	if d.RetryAfter <= time.Hour {
		t.Fatalf("retry-after should reflect the daily window, got %v", d.RetryAfter)
	}

	// Rejection must not have consumed anything: advance past one daily
	// refill (12h per token at 2/day) and we get exactly one more.
	clk.Advance(12*time.Hour + time.Minute)
	if !l.Admit("k").OK {
		t.Fatalf("admission should succeed after daily refill")
	}
	if l.Admit("k").OK {
		t.Fatalf("only one token should have refilled")
	}
}

func TestAdmit_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLedger(1, 10)

	if !l.Admit("a").OK {
		t.Fatalf("first admission for a should pass")
	}
	if l.Admit("a").OK {
		t.Fatalf("second admission for a should be rejected")
	}
	if !l.Admit("b").OK {
		t.Fatalf("key b must not be affected by key a's counters")
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 tracked keys, got %d", l.Len())
	}
}

func TestAdmit_ConcurrentNeverExceedsCeiling(t *testing.T) {
	l, _ := newTestLedger(5, 100)

	const callers = 20
	var admitted int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			if l.Admit("shared").OK {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 5 {
		t.Fatalf("admitted %d callers, ceiling is 5", admitted)
	}
}

func TestNewLedger_CoercesCeilings(t *testing.T) {
	l := NewLedger(Limits{}, nil)
	if !l.Admit("k").OK {
		t.Fatalf("coerced ceilings should still admit one")
	}
	if l.Admit("k").OK {
		t.Fatalf("ceiling of 1 should reject the second admission")
	}
}
