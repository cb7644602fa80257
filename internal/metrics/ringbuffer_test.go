package metrics

import (
	"testing"
	"time"
)

func TestNewDefaultsInvalidCapacityTo1000(t *testing.T) {
	rb := New(0)
	if rb.capacity != 1000 {
		t.Errorf("got capacity %d, want 1000 for a non-positive input", rb.capacity)
	}
	rb = New(-5)
	if rb.capacity != 1000 {
		t.Errorf("got capacity %d, want 1000 for a negative input", rb.capacity)
	}
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	rb := New(10)
	rb.Record(Call{Operation: "first", Success: true})
	rb.Record(Call{Operation: "second", Success: true})
	rb.Record(Call{Operation: "third", Success: true})

	recent := rb.Recent(3)
	want := []string{"third", "second", "first"}
	if len(recent) != len(want) {
		t.Fatalf("got %d calls, want %d", len(recent), len(want))
	}
	for i, op := range want {
		if recent[i].Operation != op {
			t.Errorf("Recent()[%d] = %q, want %q", i, recent[i].Operation, op)
		}
	}
}

func TestRecentCapsAtAvailableEntries(t *testing.T) {
	rb := New(10)
	rb.Record(Call{Operation: "only-one"})
	if got := rb.Recent(5); len(got) != 1 {
		t.Errorf("got %d entries, want 1 when fewer than n were ever recorded", len(got))
	}
}

func TestRecordOverwritesOldestOnceFull(t *testing.T) {
	rb := New(2)
	rb.Record(Call{Operation: "a"})
	rb.Record(Call{Operation: "b"})
	rb.Record(Call{Operation: "c"})

	recent := rb.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("got %d entries, want 2 (capacity reached)", len(recent))
	}
	if recent[0].Operation != "c" || recent[1].Operation != "b" {
		t.Errorf("got %+v, want [c, b] after overwriting the oldest entry", recent)
	}
}

func TestSnapshotComputesSuccessFailureAndAvgLatency(t *testing.T) {
	rb := New(10)
	rb.Record(Call{Success: true, Latency: 10 * time.Millisecond})
	rb.Record(Call{Success: false, Latency: 30 * time.Millisecond})

	stats := rb.Snapshot()
	if stats.TotalCalls != 2 {
		t.Errorf("got %d total calls, want 2", stats.TotalCalls)
	}
	if stats.SuccessCount != 1 || stats.FailureCount != 1 {
		t.Errorf("got success=%d failure=%d, want 1 and 1", stats.SuccessCount, stats.FailureCount)
	}
	if stats.AvgLatency != 20*time.Millisecond {
		t.Errorf("got avg latency %v, want 20ms", stats.AvgLatency)
	}
}

func TestSnapshotOnEmptyBufferIsZeroed(t *testing.T) {
	rb := New(10)
	stats := rb.Snapshot()
	if stats.TotalCalls != 0 || stats.AvgLatency != 0 {
		t.Errorf("got %+v, want a zero-valued Stats for an empty buffer", stats)
	}
}
