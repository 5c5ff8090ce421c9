package ratelimit

import (
	"testing"
)

func TestCheckLimit_AllowsWithinCapacity(t *testing.T) {
	l := New()
	d := l.CheckLimit("user-1", TierAnonymous)
	if !d.Allowed {
		t.Fatal("expected first request to be allowed")
	}
	if d.Remaining != 99 {
		t.Errorf("Remaining = %d, want 99", d.Remaining)
	}
	if d.Limit != 100 {
		t.Errorf("Limit = %d, want 100", d.Limit)
	}
}

func TestCheckLimit_BlocksAfterCapacityExhausted(t *testing.T) {
	l := New()
	for i := 0; i < 100; i++ {
		d := l.CheckLimit("user-2", TierAnonymous)
		if !d.Allowed {
			t.Fatalf("request %d unexpectedly blocked", i+1)
		}
	}
	d := l.CheckLimit("user-2", TierAnonymous)
	if d.Allowed {
		t.Fatal("expected 101st request to be blocked")
	}
	if d.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %d, want > 0", d.RetryAfter)
	}
	if d.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", d.Remaining)
	}
}

func TestCheckLimit_BucketsAreIndependentPerIdentifier(t *testing.T) {
	l := New()
	for i := 0; i < 100; i++ {
		l.CheckLimit("user-a", TierAnonymous)
	}
	d := l.CheckLimit("user-b", TierAnonymous)
	if !d.Allowed {
		t.Fatal("a distinct identifier's bucket must not be affected by another's")
	}
}

func TestGetStatus_DoesNotConsume(t *testing.T) {
	l := New()
	before := l.GetStatus("user-3", TierAnonymous)
	after := l.GetStatus("user-3", TierAnonymous)
	if before.Remaining != after.Remaining {
		t.Errorf("GetStatus must not consume tokens: before=%d after=%d", before.Remaining, after.Remaining)
	}
}

func TestStats_BlockRateZeroWithNoRequests(t *testing.T) {
	l := New()
	stats := l.Stats()
	if stats.BlockRate != 0 {
		t.Errorf("BlockRate = %f, want 0", stats.BlockRate)
	}
}

func TestResetStats_ZeroesCounters(t *testing.T) {
	l := New()
	l.CheckLimit("user-4", TierAnonymous)
	l.ResetStats()
	stats := l.Stats()
	if stats.TotalRequests != 0 || stats.Allowed != 0 || stats.Blocked != 0 {
		t.Errorf("ResetStats() left non-zero counters: %+v", stats)
	}
}

func TestReset_RestoresFullCapacity(t *testing.T) {
	l := New()
	for i := 0; i < 100; i++ {
		l.CheckLimit("user-5", TierAnonymous)
	}
	l.Reset("user-5", TierAnonymous)
	d := l.CheckLimit("user-5", TierAnonymous)
	if !d.Allowed {
		t.Fatal("expected bucket to be full after Reset")
	}
}

func TestGetViolations_FiltersByIdentifier(t *testing.T) {
	l := New()
	for i := 0; i < 101; i++ {
		l.CheckLimit("user-6", TierAnonymous)
	}
	l.CheckLimit("user-7", TierAnonymous)

	violations := l.GetViolations("user-6")
	if len(violations) == 0 {
		t.Fatal("expected at least one violation for user-6")
	}
	for _, v := range violations {
		if v.Identifier != "user-6" {
			t.Errorf("GetViolations(\"user-6\") returned violation for %s", v.Identifier)
		}
	}
}
