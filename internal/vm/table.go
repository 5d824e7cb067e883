package vm

const tableMaxLoad = 0.75

// entry is one slot of a Table. An empty slot has a nil key and a nil value;
// a tombstone has a nil key and the value true.
type entry struct {
	key   *ObjString
	value Value
}

func (e *entry) isTombstone() bool {
	return e.key == nil && !e.value.IsNil()
}

// Table is an open-addressed hash map keyed by interned strings, probed
// linearly. Keys compare by identity, which interning makes equivalent to
// content comparison. Capacity is always zero or a power of two.
type Table struct {
	count   int // live entries plus tombstones
	live    int
	entries []entry
}

// Len returns the number of live entries.
func (t *Table) Len() int { return t.live }

// Capacity returns the number of slots.
func (t *Table) Capacity() int { return len(t.entries) }

// findEntry returns the slot holding key, or the slot where key should be
// inserted: the first tombstone passed, otherwise the empty slot that ended
// the probe.
func findEntry(entries []entry, key *ObjString) *entry {
	mask := uint32(len(entries) - 1)
	index := key.Hash & mask
	var tombstone *entry

	for {
		e := &entries[index]
		if e.key == nil {
			if e.value.IsNil() {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key == key {
			return e
		}
		index = (index + 1) & mask
	}
}

func (t *Table) Get(key *ObjString) (Value, bool) {
	if t.live == 0 {
		return NilVal(), false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return NilVal(), false
	}
	return e.value, true
}

// Set stores value under key and reports whether the key was new.
func (t *Table) Set(key *ObjString, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.adjustCapacity(growCapacity(len(t.entries)))
	}

	e := findEntry(t.entries, key)
	isNew := e.key == nil
	if isNew {
		t.live++
		// Reusing a tombstone does not change count.
		if e.value.IsNil() {
			t.count++
		}
	}
	e.key = key
	e.value = value
	return isNew
}

// Delete removes key, leaving a tombstone so later probes keep walking.
func (t *Table) Delete(key *ObjString) bool {
	if t.live == 0 {
		return false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = BoolVal(true)
	t.live--
	return true
}

// FindString looks a key up by content rather than identity. It is how the
// intern table finds an existing string before one is allocated.
func (t *Table) FindString(chars string, hash uint32) *ObjString {
	if t.live == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	index := hash & mask
	for {
		e := &t.entries[index]
		if e.key == nil {
			if e.value.IsNil() {
				return nil
			}
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		index = (index + 1) & mask
	}
}

// Range calls f for each live entry until f returns false.
func (t *Table) Range(f func(key *ObjString, value Value) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !f(e.key, e.value) {
			return
		}
	}
}

// removeWhite drops entries whose key was not marked. The intern table
// holds its strings weakly, so this runs after tracing and before sweep.
func (t *Table) removeWhite() int {
	removed := 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.marked {
			e.key = nil
			e.value = BoolVal(true)
			t.live--
			removed++
		}
	}
	return removed
}

func (t *Table) adjustCapacity(capacity int) {
	entries := make([]entry, capacity)
	t.count = 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.key == nil {
			continue
		}
		dest := findEntry(entries, e.key)
		dest.key = e.key
		dest.value = e.value
		t.count++
	}
	t.entries = entries
}

func growCapacity(capacity int) int {
	if capacity < 8 {
		return 8
	}
	return capacity * 2
}

// mark traces every key and value.
func (t *Table) mark(vm *VM) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil {
			vm.markObject(e.key)
			vm.markValue(e.value)
		}
	}
}
