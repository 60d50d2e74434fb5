package resilience

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestGate_Interval(t *testing.T) {
	g := NewGate(50, 5*time.Second)
	if got := g.Interval(); got != 100*time.Millisecond {
		t.Errorf("expected 100ms interval, got %v", got)
	}
}

func TestGate_NilAndUnlimited(t *testing.T) {
	var g *Gate
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("nil gate should admit: %v", err)
	}
	if g.Interval() != 0 {
		t.Error("nil gate should have zero interval")
	}

	u := NewGate(0, time.Second)
	if err := u.Wait(context.Background()); err != nil {
		t.Fatalf("unlimited gate should admit: %v", err)
	}
}

func TestGate_NeverExceedsRateUnderConcurrency(t *testing.T) {
	// 10 requests per 100ms window: one admission every 10ms, no burst.
	g := NewGate(10, 100*time.Millisecond)

	const callers = 20
	var (
		mu    sync.Mutex
		times []time.Time
		wg    sync.WaitGroup
	)
	start := time.Now()
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Wait(context.Background()); err != nil {
				t.Errorf("wait: %v", err)
				return
			}
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	// 20 admissions spaced 10ms apart need at least 19 intervals.
	if elapsed := time.Since(start); elapsed < 180*time.Millisecond {
		t.Errorf("expected >= 180ms for %d admissions, got %v", callers, elapsed)
	}
	if len(times) != callers {
		t.Errorf("expected %d admissions, got %d", callers, len(times))
	}
}

func TestGate_WaitHonorsContext(t *testing.T) {
	g := NewGate(1, time.Hour)
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := g.Wait(ctx); err == nil {
		t.Error("expected error when the next slot is beyond the deadline")
	}
}
