// Package mediagroup collects the photos of a Telegram album, which arrive as
// separate updates, and flushes them as one group after a quiet period.
package mediagroup

import (
	"sync"
	"time"
)

type Item struct {
	ChatID       int64
	UserID       int64
	MediaGroupID string
	FileID       string
}

// Group holds the file ids of one album in arrival order.
type Group struct {
	ChatID  int64
	UserID  int64
	FileIDs []string
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Group)
}

type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	onFlush  func(Group)
	groups   map[groupKey]*pendingGroup
}

// Album ids are only unique within a chat.
type groupKey struct {
	chatID  int64
	albumID string
}

type pendingGroup struct {
	group Group
	timer *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}

	return &Aggregator{
		debounce: debounce,
		onFlush:  opts.OnFlush,
		groups:   make(map[groupKey]*pendingGroup),
	}
}

// Add records one album item and restarts the group's quiet timer. Items
// without an album id or file id are ignored.
func (a *Aggregator) Add(item Item) {
	if item.MediaGroupID == "" || item.FileID == "" {
		return
	}

	key := groupKey{chatID: item.ChatID, albumID: item.MediaGroupID}

	a.mu.Lock()
	defer a.mu.Unlock()

	pg, ok := a.groups[key]
	if !ok {
		pg = &pendingGroup{group: Group{ChatID: item.ChatID, UserID: item.UserID}}
		a.groups[key] = pg
	}
	pg.group.FileIDs = append(pg.group.FileIDs, item.FileID)

	if pg.timer != nil {
		pg.timer.Stop()
	}
	pg.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key)
	})
}

// Pending reports how many albums are still waiting for their quiet period.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

// Stop cancels every pending flush. Groups not yet flushed are dropped.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, pg := range a.groups {
		if pg.timer != nil {
			pg.timer.Stop()
		}
		delete(a.groups, key)
	}
}

func (a *Aggregator) flush(key groupKey) {
	a.mu.Lock()
	pg, ok := a.groups[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.groups, key)
	group := pg.group
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(group)
	}
}
