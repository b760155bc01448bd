package app

import (
	"sync"
	"time"

	"homework_intake_bot/internal/domain/submission"
)

// GroupKey identifies one in-flight media group of one student. Telegram
// delivers album photos as independent messages sharing a media-group id, with
// no terminal marker.
type GroupKey struct {
	StudentID    int64
	MediaGroupID string
}

// GroupContext is the selection frozen when the first album item arrives.
// Later items reuse it even if the student's dialogue state moves on.
type GroupContext struct {
	Kind       submission.Kind
	Section    string
	TopicID    string
	TopicTitle string
}

type groupEntry struct {
	fileIDs    []string
	caption    string
	lastUpdate time.Time
	ctx        GroupContext
}

// FinishedGroup is a completed album handed to the flush job. It is a private
// copy: the aggregator no longer holds the entry once it is returned.
type FinishedGroup struct {
	Key     GroupKey
	FileIDs []string
	Caption string
	Context GroupContext
}

// MediaGroupAggregator stages album photos until a group has been quiet for the
// debounce window. The live message path appends, the flush job removes via
// TakeStale; selection and removal happen under one lock acquisition, so an
// entry can never be appended to after it has been taken.
type MediaGroupAggregator struct {
	mu      sync.Mutex
	entries map[GroupKey]*groupEntry
	now     func() time.Time
}

func NewMediaGroupAggregator() *MediaGroupAggregator {
	return &MediaGroupAggregator{
		entries: make(map[GroupKey]*groupEntry),
		now:     time.Now,
	}
}

// Append merges one album photo into its group, creating the entry with the
// frozen context on first arrival. A non-empty caption replaces the stored one,
// and the last-update timestamp is refreshed so the debounce window restarts.
func (a *MediaGroupAggregator) Append(key GroupKey, fileID, caption string, ctx GroupContext) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[key]
	if !ok {
		e = &groupEntry{ctx: ctx}
		a.entries[key] = e
	}
	e.fileIDs = append(e.fileIDs, fileID)
	if caption != "" {
		e.caption = caption
	}
	e.lastUpdate = a.now()
}

// TakeStale removes and returns every group whose last arrival is at least
// maxQuiet old. Returned groups belong solely to the caller.
func (a *MediaGroupAggregator) TakeStale(maxQuiet time.Duration) []FinishedGroup {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.now().Add(-maxQuiet)
	var done []FinishedGroup
	for key, e := range a.entries {
		if e.lastUpdate.After(cutoff) {
			continue
		}
		done = append(done, FinishedGroup{
			Key:     key,
			FileIDs: e.fileIDs,
			Caption: e.caption,
			Context: e.ctx,
		})
		delete(a.entries, key)
	}
	return done
}

// Len reports the number of in-flight groups.
func (a *MediaGroupAggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
