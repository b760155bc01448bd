package app

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"homework_intake_bot/internal/domain/submission"
)

// fakeClock lets tests drive the aggregator's notion of time.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testContext() GroupContext {
	return GroupContext{
		Kind:       submission.KindHomework,
		Section:    sectionPythonBasics,
		TopicID:    "op3",
		TopicTitle: "Цикл for",
	}
}

func TestTakeStaleWaitsForQuietWindow(t *testing.T) {
	clock := newFakeClock()
	agg := NewMediaGroupAggregator()
	agg.now = clock.Now

	key := GroupKey{StudentID: 1, MediaGroupID: "g1"}

	agg.Append(key, "f1", "", testContext())
	clock.Advance(500 * time.Millisecond)
	agg.Append(key, "f2", "", testContext())
	clock.Advance(500 * time.Millisecond)
	agg.Append(key, "f3", "подпись", testContext())

	// t=1s: last arrival just happened, nothing is stale.
	if got := agg.TakeStale(2 * time.Second); len(got) != 0 {
		t.Fatalf("group flushed before the debounce window elapsed: %+v", got)
	}

	// t=3s: 2s of quiet since the last arrival.
	clock.Advance(2 * time.Second)
	got := agg.TakeStale(2 * time.Second)
	if len(got) != 1 {
		t.Fatalf("expected exactly one finished group, got %d", len(got))
	}
	g := got[0]
	if g.Key != key {
		t.Fatalf("unexpected key: %+v", g.Key)
	}
	if !reflect.DeepEqual(g.FileIDs, []string{"f1", "f2", "f3"}) {
		t.Fatalf("file ids must keep arrival order, got %v", g.FileIDs)
	}
	if g.Caption != "подпись" {
		t.Fatalf("expected last non-empty caption, got %q", g.Caption)
	}
	if g.Context != testContext() {
		t.Fatalf("context was not frozen at first arrival: %+v", g.Context)
	}

	if agg.Len() != 0 {
		t.Fatalf("taken group must be removed from the aggregator")
	}
	if again := agg.TakeStale(2 * time.Second); len(again) != 0 {
		t.Fatalf("a group must never be flushed twice: %+v", again)
	}
}

func TestAppendAfterTakeStartsFreshGroup(t *testing.T) {
	clock := newFakeClock()
	agg := NewMediaGroupAggregator()
	agg.now = clock.Now

	key := GroupKey{StudentID: 2, MediaGroupID: "g2"}
	agg.Append(key, "a", "", testContext())
	clock.Advance(3 * time.Second)

	if got := agg.TakeStale(2 * time.Second); len(got) != 1 {
		t.Fatalf("expected the first group to be taken, got %d", len(got))
	}

	// A late arrival after the flush opens a new entry instead of resurrecting
	// the taken one.
	agg.Append(key, "b", "", testContext())
	clock.Advance(3 * time.Second)
	got := agg.TakeStale(2 * time.Second)
	if len(got) != 1 || len(got[0].FileIDs) != 1 || got[0].FileIDs[0] != "b" {
		t.Fatalf("late arrival must form its own group, got %+v", got)
	}
}

func TestAggregatorKeepsGroupsIndependent(t *testing.T) {
	clock := newFakeClock()
	agg := NewMediaGroupAggregator()
	agg.now = clock.Now

	old := GroupKey{StudentID: 3, MediaGroupID: "old"}
	agg.Append(old, "x", "", testContext())

	clock.Advance(3 * time.Second)
	fresh := GroupKey{StudentID: 3, MediaGroupID: "fresh"}
	agg.Append(fresh, "y", "", testContext())

	got := agg.TakeStale(2 * time.Second)
	if len(got) != 1 || got[0].Key != old {
		t.Fatalf("only the quiet group may be taken, got %+v", got)
	}
	if agg.Len() != 1 {
		t.Fatalf("the fresh group must remain staged")
	}
}

func TestAggregatorConcurrentAppendsAreNotLost(t *testing.T) {
	agg := NewMediaGroupAggregator()

	const writers = 8
	const perWriter = 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := GroupKey{StudentID: int64(w), MediaGroupID: "g"}
			for i := 0; i < perWriter; i++ {
				agg.Append(key, fmt.Sprintf("%d-%d", w, i), "", testContext())
			}
		}(w)
	}
	wg.Wait()

	groups := agg.TakeStale(-time.Second)
	if len(groups) != writers {
		t.Fatalf("expected %d groups, got %d", writers, len(groups))
	}
	total := 0
	for _, g := range groups {
		total += len(g.FileIDs)
	}
	if total != writers*perWriter {
		t.Fatalf("appends lost under concurrency: got %d items, want %d", total, writers*perWriter)
	}
}
