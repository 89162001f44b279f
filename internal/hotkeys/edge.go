package hotkeys

// EdgeTable converts level-triggered samples into single-shot rising edges.
// It is shared by the primary and debugging binding sets.
//
// Not safe for concurrent use: the poll goroutine is its only reader and
// writer.
type EdgeTable struct {
	active map[ActionBinding]bool
}

// NewEdgeTable creates an empty table; every binding starts inactive.
func NewEdgeTable() *EdgeTable {
	return &EdgeTable{active: make(map[ActionBinding]bool)}
}

// Observe records the current level for ab and reports whether it is a
// false->true transition. A true->false transition only clears the entry.
func (t *EdgeTable) Observe(ab ActionBinding, active bool) bool {
	was := t.active[ab]
	if active == was {
		return false
	}
	if active {
		t.active[ab] = true
		return true
	}
	delete(t.active, ab)
	return false
}

// Active reports the recorded level for ab.
func (t *EdgeTable) Active(ab ActionBinding) bool { return t.active[ab] }

// Retain drops entries for bindings not present in set.
func (t *EdgeTable) Retain(set BindingSet) {
	if len(t.active) == 0 {
		return
	}
	keep := make(map[ActionBinding]struct{}, set.Len())
	for _, ab := range set.Primary {
		keep[ab] = struct{}{}
	}
	for _, ab := range set.Debugging {
		keep[ab] = struct{}{}
	}
	for ab := range t.active {
		if _, ok := keep[ab]; !ok {
			delete(t.active, ab)
		}
	}
}

// Len returns the number of bindings currently recorded as active.
func (t *EdgeTable) Len() int { return len(t.active) }
