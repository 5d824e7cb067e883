package vm

import (
	"fmt"
	"testing"
)

func key(chars string, hash uint32) *ObjString {
	return &ObjString{Chars: chars, Hash: hash}
}

func TestTableSetGetDelete(t *testing.T) {
	var table Table
	a := key("a", hashString("a"))
	b := key("b", hashString("b"))

	if _, ok := table.Get(a); ok {
		t.Fatal("empty table should not find anything")
	}
	if !table.Set(a, NumberVal(1)) {
		t.Error("first Set should report a new key")
	}
	if table.Set(a, NumberVal(2)) {
		t.Error("overwriting should not report a new key")
	}
	table.Set(b, NilVal())

	if v, ok := table.Get(a); !ok || v.AsNumber() != 2 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	// A nil value is still a present entry.
	if v, ok := table.Get(b); !ok || !v.IsNil() {
		t.Errorf("Get(b) = %v, %v", v, ok)
	}
	if table.Len() != 2 {
		t.Errorf("Len = %d, want 2", table.Len())
	}

	if !table.Delete(a) {
		t.Error("Delete should report an existing key")
	}
	if table.Delete(a) {
		t.Error("second Delete should report nothing removed")
	}
	if _, ok := table.Get(a); ok {
		t.Error("deleted key still present")
	}
	if table.Len() != 1 {
		t.Errorf("Len = %d, want 1", table.Len())
	}
}

func TestTableTombstonesKeepProbeChains(t *testing.T) {
	var table Table
	// Same hash, so b and c probe past a's slot.
	a, b, c := key("a", 7), key("b", 7), key("c", 7)
	table.Set(a, NumberVal(1))
	table.Set(b, NumberVal(2))
	table.Set(c, NumberVal(3))

	table.Delete(a)
	if v, ok := table.Get(c); !ok || v.AsNumber() != 3 {
		t.Fatalf("c lost behind tombstone: %v %v", v, ok)
	}

	// Reinserting reuses the tombstone without growing the load count.
	count := table.count
	if !table.Set(key("d", 7), NumberVal(4)) {
		t.Error("expected new key")
	}
	if table.count != count {
		t.Errorf("count changed from %d to %d when reusing a tombstone", count, table.count)
	}
	if table.entries[7].key == nil || table.entries[7].key.Chars != "d" {
		t.Error("tombstone slot should have been reused")
	}
}

func TestTableGrowth(t *testing.T) {
	var table Table
	keys := make([]*ObjString, 100)
	for i := range keys {
		s := fmt.Sprintf("key%d", i)
		keys[i] = key(s, hashString(s))
		table.Set(keys[i], NumberVal(float64(i)))
	}

	capacity := table.Capacity()
	if capacity&(capacity-1) != 0 {
		t.Errorf("capacity %d is not a power of two", capacity)
	}
	if float64(table.count) > float64(capacity)*tableMaxLoad {
		t.Errorf("load %d/%d exceeds max load", table.count, capacity)
	}
	for i, k := range keys {
		if v, ok := table.Get(k); !ok || v.AsNumber() != float64(i) {
			t.Fatalf("Get(%s) = %v, %v", k.Chars, v, ok)
		}
	}
}

func TestTableGrowthDropsTombstones(t *testing.T) {
	var table Table
	for i := 0; i < 6; i++ {
		k := key(fmt.Sprint(i), uint32(i))
		table.Set(k, BoolVal(true))
		table.Delete(k)
	}
	if table.Len() != 0 || table.count != 6 {
		t.Fatalf("expected 6 tombstones, live=%d count=%d", table.Len(), table.count)
	}

	// Crossing the load limit rebuilds the table without the tombstones.
	table.Set(key("x", 100), NilVal())
	if table.count != 1 || table.Capacity() != 16 {
		t.Errorf("after growth count=%d capacity=%d", table.count, table.Capacity())
	}
}

func TestTableFindString(t *testing.T) {
	var from Table
	hello := key("hello", hashString("hello"))
	world := key("world", hashString("world"))
	from.Set(hello, NumberVal(1))
	from.Set(world, NumberVal(2))
	from.Delete(world)

	if got := from.FindString("hello", hashString("hello")); got != hello {
		t.Errorf("FindString returned %v", got)
	}
	if got := from.FindString("world", hashString("world")); got != nil {
		t.Error("FindString should not return deleted keys")
	}
	if got := from.FindString("nope", hashString("nope")); got != nil {
		t.Error("FindString should not invent keys")
	}
}

func TestTableRemoveWhite(t *testing.T) {
	var table Table
	kept := key("kept", hashString("kept"))
	dropped := key("dropped", hashString("dropped"))
	table.Set(kept, NilVal())
	table.Set(dropped, NilVal())

	kept.marked = true
	if n := table.removeWhite(); n != 1 {
		t.Errorf("removeWhite removed %d, want 1", n)
	}
	if table.FindString("dropped", dropped.Hash) != nil {
		t.Error("unmarked key survived")
	}
	if table.FindString("kept", kept.Hash) != kept {
		t.Error("marked key removed")
	}
}
