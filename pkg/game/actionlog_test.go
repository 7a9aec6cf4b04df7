package game

import (
	"sync"
	"testing"
	"time"
)

func TestLogAppendOrdersStragglers(t *testing.T) {
	l := NewLog()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	l.Append(Action{ID: "a1", Round: 1, Timestamp: base})
	l.Append(Action{ID: "a3", Round: 2, Timestamp: base.Add(10 * time.Second)})
	// Straggler from round 1 arrives after round 2 started.
	l.Append(Action{ID: "a2", Round: 1, Timestamp: base.Add(2 * time.Second)})

	got := l.Snapshot()
	want := []string{"a1", "a2", "a3"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestLogSnapshotIsDetached(t *testing.T) {
	l := NewLog()
	l.Append(Action{ID: "a1", Round: 1, Timestamp: time.Now()})

	snap := l.Snapshot()
	snap[0].ID = "mutated"

	if l.Snapshot()[0].ID != "a1" {
		t.Fatal("snapshot mutation leaked into the log")
	}
}

func TestLogConcurrentAppend(t *testing.T) {
	l := NewLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.Append(Action{ID: "a", Round: 1, Timestamp: time.Now().Add(time.Duration(n) * time.Millisecond)})
		}(i)
	}
	wg.Wait()

	if l.Len() != 50 {
		t.Fatalf("got %d actions, want 50", l.Len())
	}
	snap := l.Snapshot()
	for i := 1; i < len(snap); i++ {
		if actionBefore(snap[i], snap[i-1]) {
			t.Fatalf("log out of order at %d", i)
		}
	}
}

func TestRestoreSortsPersistedActions(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := Restore([]Action{
		{ID: "a3", Round: 2, Timestamp: base.Add(time.Minute)},
		{ID: "a1", Round: 1, Timestamp: base},
		{ID: "a2", Round: 1, Timestamp: base.Add(time.Second)},
	})

	snap := l.Snapshot()
	if snap[0].ID != "a1" || snap[1].ID != "a2" || snap[2].ID != "a3" {
		t.Fatalf("restored order wrong: %s %s %s", snap[0].ID, snap[1].ID, snap[2].ID)
	}
}
