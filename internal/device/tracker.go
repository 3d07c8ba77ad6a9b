package device

import "sync"

// StateTracker diffs successive device enumerations to detect state
// transitions (e.g. Active -> Unplugged) for callers that only learn about
// device availability by re-listing devices, rather than through a native
// hot-plug callback. One tracker should be kept per direction (output or
// input) for the lifetime of an adapter.
type StateTracker struct {
	mu   sync.Mutex
	last map[string]State
}

// NewStateTracker returns a tracker with no prior observations; the first
// Diff call after construction never reports a change, since every device
// in it is new rather than transitioned.
func NewStateTracker() *StateTracker {
	return &StateTracker{last: make(map[string]State)}
}

// Diff compares current against the last enumeration seen by this tracker
// and returns the descriptors whose State differs from what was previously
// observed for the same ID. A device that disappears from current entirely
// is dropped from the tracker's memory without producing a change (the
// caller has no descriptor left to report); a device appearing for the
// first time is recorded but not reported.
func (t *StateTracker) Diff(current []Descriptor) []Descriptor {
	t.mu.Lock()
	defer t.mu.Unlock()

	var changed []Descriptor
	seen := make(map[string]bool, len(current))
	for _, d := range current {
		seen[d.ID] = true
		prev, ok := t.last[d.ID]
		t.last[d.ID] = d.State
		if ok && prev != d.State {
			changed = append(changed, d)
		}
	}
	for id := range t.last {
		if !seen[id] {
			delete(t.last, id)
		}
	}
	return changed
}
