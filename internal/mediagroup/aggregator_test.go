package mediagroup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorFlushesInArrivalOrder(t *testing.T) {
	flushed := make(chan Group, 4)
	ag := New(Options{
		Debounce: 20 * time.Millisecond,
		OnFlush:  func(g Group) { flushed <- g },
	})

	ag.Add(Item{ChatID: 1, UserID: 9, MediaGroupID: "m1", FileID: "person"})
	ag.Add(Item{ChatID: 1, UserID: 9, MediaGroupID: "m1", FileID: "product"})
	ag.Add(Item{ChatID: 2, UserID: 8, MediaGroupID: "m1", FileID: "other"})

	got := map[int64]Group{}
	for range 2 {
		select {
		case g := <-flushed:
			got[g.ChatID] = g
		case <-time.After(2 * time.Second):
			t.Fatal("group was not flushed")
		}
	}

	require.Contains(t, got, int64(1))
	assert.Equal(t, []string{"person", "product"}, got[1].FileIDs)
	assert.Equal(t, int64(9), got[1].UserID)
	assert.Equal(t, []string{"other"}, got[2].FileIDs)
	assert.Zero(t, ag.Pending())
}

func TestAggregatorIgnoresIncompleteItems(t *testing.T) {
	ag := New(Options{Debounce: time.Hour})
	ag.Add(Item{ChatID: 1, FileID: "x"})
	ag.Add(Item{ChatID: 1, MediaGroupID: "m"})
	assert.Zero(t, ag.Pending())
}

func TestAggregatorStopDropsPending(t *testing.T) {
	flushed := make(chan Group, 1)
	ag := New(Options{
		Debounce: 20 * time.Millisecond,
		OnFlush:  func(g Group) { flushed <- g },
	})

	ag.Add(Item{ChatID: 1, MediaGroupID: "m", FileID: "a"})
	assert.Equal(t, 1, ag.Pending())
	ag.Stop()
	assert.Zero(t, ag.Pending())

	select {
	case <-flushed:
		t.Fatal("stopped group was flushed")
	case <-time.After(100 * time.Millisecond):
	}
}
