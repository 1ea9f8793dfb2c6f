package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionProgress_Percent(t *testing.T) {
	tests := []struct {
		name string
		p    CollectionProgress
		want int
	}{
		{"unknown total", CollectionProgress{}, 0},
		{"empty but complete", CollectionProgress{Phase: PhaseComplete}, 100},
		{"halfway", CollectionProgress{Total: 200, Migrated: 100}, 50},
		{"clamped when count was stale", CollectionProgress{Total: 10, Migrated: 12}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Percent(); got != tt.want {
				t.Errorf("Percent() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTracker_SubscribeReceivesUpdatesUntilFinish(t *testing.T) {
	tr := NewTracker("run-1", "shop", ModeFull, "out.db")
	ch := tr.Subscribe()

	initial := <-ch
	assert.Equal(t, "run-1", initial.RunID)
	assert.False(t, initial.Done)

	tr.begin([]string{"users"})
	tr.setTotal("users", 10)
	tr.advance("users", 4, 1)

	var last Progress
	for i := 0; i < 3; i++ {
		select {
		case last = <-ch:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for update")
		}
	}
	require.Len(t, last.Collections, 1)
	assert.Equal(t, int64(4), last.Collections[0].Migrated)
	assert.Equal(t, int64(4), last.Documents)

	tr.finish(nil)

	final, ok := <-ch
	require.True(t, ok)
	assert.True(t, final.Done)

	_, ok = <-ch
	assert.False(t, ok, "channel should be closed after finish")

	select {
	case <-tr.Done():
	default:
		t.Fatal("Done() should be closed")
	}
}

func TestTracker_Unsubscribe(t *testing.T) {
	tr := NewTracker("run-4", "shop", ModeFull, "out.db")
	gone := tr.Subscribe()
	kept := tr.Subscribe()
	<-gone
	<-kept

	tr.Unsubscribe(gone)
	tr.mu.Lock()
	assert.Len(t, tr.listeners, 1)
	tr.mu.Unlock()

	_, ok := <-gone
	assert.False(t, ok, "unsubscribed channel should be closed")

	tr.Unsubscribe(gone)
	tr.begin([]string{"a"})
	_, ok = <-kept
	assert.True(t, ok, "other subscribers keep receiving")

	tr.finish(nil)
	tr.Unsubscribe(kept)
}

func TestTracker_SubscribeAfterFinish(t *testing.T) {
	tr := NewTracker("run-2", "shop", ModeFull, "out.db")
	tr.begin([]string{"a"})
	tr.fail("a", errors.New("boom"))
	tr.finish(errors.New("boom"))

	ch := tr.Subscribe()
	snap, ok := <-ch
	require.True(t, ok)
	assert.True(t, snap.Done)
	assert.Equal(t, "boom", snap.Error)
	assert.Equal(t, PhaseFailed, snap.Collections[0].Phase)

	_, ok = <-ch
	assert.False(t, ok)
}

func TestTracker_UpdatesAfterFinishAreIgnored(t *testing.T) {
	tr := NewTracker("run-3", "shop", ModeFull, "out.db")
	tr.begin([]string{"a"})
	tr.finish(nil)
	tr.advance("a", 99, 1)

	assert.Zero(t, tr.Snapshot().Documents)
}

func TestTracker_NilIsSafe(t *testing.T) {
	var tr *Tracker
	tr.begin([]string{"a"})
	tr.setPhase("a", PhaseCopying)
	tr.advance("a", 1, 1)
	tr.finish(nil)

	assert.Equal(t, Progress{}, tr.Snapshot())
	ch := tr.Subscribe()
	_, ok := <-ch
	assert.False(t, ok)
	tr.Unsubscribe(ch)
	<-tr.Done()
}

func TestTracker_SnapshotIsACopy(t *testing.T) {
	tr := NewTracker("run-4", "shop", ModeFull, "out.db")
	tr.begin([]string{"a"})

	snap := tr.Snapshot()
	snap.Collections[0].Migrated = 500

	assert.Zero(t, tr.Snapshot().Collections[0].Migrated)
}
