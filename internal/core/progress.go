package core

import (
	"slices"
	"sync"
	"time"
)

// Phase indicates the current stage of a collection's migration.
type Phase string

const (
	PhasePending  Phase = "pending"
	PhaseSchema   Phase = "schema"
	PhaseCounting Phase = "counting"
	PhaseCopying  Phase = "copying"
	PhaseComplete Phase = "complete"
	PhaseSkipped  Phase = "skipped"
	PhaseFailed   Phase = "failed"
)

// CollectionProgress is the state of one collection within a run.
type CollectionProgress struct {
	Collection string `json:"collection"`
	Phase      Phase  `json:"phase"`
	Total      int64  `json:"total"`
	Migrated   int64  `json:"migrated"`
	Batches    int    `json:"batches"`
	Error      string `json:"error,omitempty"`
}

// Percent returns the copy progress as a percentage (0-100).
func (p CollectionProgress) Percent() int {
	if p.Total <= 0 {
		if p.Phase == PhaseComplete {
			return 100
		}
		return 0
	}
	pct := int((p.Migrated * 100) / p.Total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Progress is a point-in-time snapshot of a migration run.
type Progress struct {
	RunID       string               `json:"run_id"`
	Database    string               `json:"database"`
	Mode        Mode                 `json:"mode"`
	Target      string               `json:"target"`
	StartedAt   time.Time            `json:"started_at"`
	FinishedAt  time.Time            `json:"finished_at,omitzero"`
	Collections []CollectionProgress `json:"collections"`
	Documents   int64                `json:"documents"`
	Done        bool                 `json:"done"`
	Error       string               `json:"error,omitempty"`
}

// Elapsed returns the run duration so far, or in total once done.
func (p Progress) Elapsed() time.Duration {
	if p.StartedAt.IsZero() {
		return 0
	}
	if p.Done && !p.FinishedAt.IsZero() {
		return p.FinishedAt.Sub(p.StartedAt)
	}
	return time.Since(p.StartedAt)
}

// TablesMigrated counts collections whose data phase completed.
func (p Progress) TablesMigrated() int {
	n := 0
	for _, c := range p.Collections {
		if c.Phase == PhaseComplete {
			n++
		}
	}
	return n
}

// Tracker records run progress and fans updates out to subscribers.
// All methods are safe for concurrent use and on a nil *Tracker.
type Tracker struct {
	mu        sync.Mutex
	state     Progress
	index     map[string]int
	listeners []chan Progress
	done      chan struct{}
}

// NewTracker creates a tracker for one run.
func NewTracker(runID, database string, mode Mode, target string) *Tracker {
	return &Tracker{
		state: Progress{
			RunID:    runID,
			Database: database,
			Mode:     mode,
			Target:   target,
		},
		index: make(map[string]int),
		done:  make(chan struct{}),
	}
}

// Subscribe returns a channel that receives progress updates.
// The current state is sent immediately. The channel is closed when the
// run finishes.
func (t *Tracker) Subscribe() <-chan Progress {
	ch := make(chan Progress, 10)
	if t == nil {
		close(ch)
		return ch
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ch <- t.snapshotLocked()
	if t.state.Done {
		close(ch)
		return ch
	}
	t.listeners = append(t.listeners, ch)
	return ch
}

// Unsubscribe stops updates to a channel returned by Subscribe and closes
// it. Unknown or already closed channels are ignored.
func (t *Tracker) Unsubscribe(ch <-chan Progress) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, l := range t.listeners {
		if l == ch {
			t.listeners = slices.Delete(t.listeners, i, i+1)
			close(l)
			return
		}
	}
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Progress {
	if t == nil {
		return Progress{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Done is closed when the run finishes.
func (t *Tracker) Done() <-chan struct{} {
	if t == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return t.done
}

func (t *Tracker) begin(collections []string) {
	t.update(func(p *Progress) {
		p.StartedAt = time.Now()
		p.Collections = make([]CollectionProgress, len(collections))
		for i, c := range collections {
			p.Collections[i] = CollectionProgress{Collection: c, Phase: PhasePending}
			t.index[c] = i
		}
	})
}

func (t *Tracker) setPhase(coll string, phase Phase) {
	t.updateCollection(coll, func(c *CollectionProgress) { c.Phase = phase })
}

func (t *Tracker) setTotal(coll string, total int64) {
	t.updateCollection(coll, func(c *CollectionProgress) { c.Total = total })
}

func (t *Tracker) advance(coll string, migrated int64, batches int) {
	t.update(func(p *Progress) {
		if i, ok := t.index[coll]; ok {
			p.Documents += migrated - p.Collections[i].Migrated
			p.Collections[i].Migrated = migrated
			p.Collections[i].Batches = batches
		}
	})
}

func (t *Tracker) fail(coll string, err error) {
	t.updateCollection(coll, func(c *CollectionProgress) {
		c.Phase = PhaseFailed
		c.Error = err.Error()
	})
}

// finish marks the run done, notifies listeners one last time and closes
// their channels.
func (t *Tracker) finish(err error) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Done {
		return
	}
	t.state.Done = true
	t.state.FinishedAt = time.Now()
	if err != nil {
		t.state.Error = err.Error()
	}

	t.notifyLocked()
	for _, ch := range t.listeners {
		close(ch)
	}
	t.listeners = nil
	close(t.done)
}

func (t *Tracker) updateCollection(coll string, fn func(*CollectionProgress)) {
	t.update(func(p *Progress) {
		if i, ok := t.index[coll]; ok {
			fn(&p.Collections[i])
		}
	})
}

func (t *Tracker) update(fn func(*Progress)) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Done {
		return
	}
	fn(&t.state)
	t.notifyLocked()
}

func (t *Tracker) notifyLocked() {
	snap := t.snapshotLocked()
	for _, ch := range t.listeners {
		select {
		case ch <- snap:
		default:
			// Listener is slow, skip this update
		}
	}
}

func (t *Tracker) snapshotLocked() Progress {
	snap := t.state
	snap.Collections = append([]CollectionProgress(nil), t.state.Collections...)
	return snap
}
