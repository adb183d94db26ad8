package relay

import (
	"sort"
	"sync"
)

type entry struct {
	state State
	busy  bool
	set   *ServerChannelSet
}

// table tracks provisioning state and channel sets for every server name.
// A name without an entry is StateUnknown. claim is the only way to start
// work on a name, and it checks and marks under one lock.
type table struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func newTable() *table {
	return &table{entries: make(map[string]*entry)}
}

// claim marks name busy and reports whether the caller now owns it.
// Unknown names are always claimable. Ready names are claimable only for a
// refresh. Busy names never are.
func (t *table) claim(name string, refresh bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[name]
	switch {
	case !ok:
		t.entries[name] = &entry{state: StateUnknown, busy: true}
		return true
	case e.busy:
		return false
	case e.state == StateReady && refresh:
		e.busy = true
		return true
	default:
		return false
	}
}

// creating moves a claimed name to StateCreating. Any previous set is dropped
// since its category no longer exists.
func (t *table) creating(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[name]; ok {
		e.state = StateCreating
		e.set = nil
	}
}

// ready stores set and releases the claim.
func (t *table) ready(name string, set *ServerChannelSet) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[name] = &entry{state: StateReady, set: set}
}

// release returns name to StateUnknown.
func (t *table) release(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, name)
}

// abort gives up a claim without changing the outcome of earlier work:
// a refreshed Ready name keeps its set, anything else becomes Unknown.
func (t *table) abort(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[name]
	if !ok {
		return
	}
	if e.state == StateReady {
		e.busy = false
		return
	}
	delete(t.entries, name)
}

// lookup returns the stored set for a Ready name.
func (t *table) lookup(name string) *ServerChannelSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[name]
	if !ok || e.state != StateReady {
		return nil
	}
	return e.set
}

func (t *table) state(name string) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if e, ok := t.entries[name]; ok {
		return e.state
	}
	return StateUnknown
}

func (t *table) snapshot() []ServerStatus {
	t.mu.RLock()
	out := make([]ServerStatus, 0, len(t.entries))
	for name, e := range t.entries {
		out = append(out, ServerStatus{Name: name, State: e.state, Busy: e.busy, Set: e.set})
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
