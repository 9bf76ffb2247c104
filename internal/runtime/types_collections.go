package runtime

import (
	"fmt"
)

// PyList is Python's mutable sequence type.
type PyList struct {
	Items []Value
}

func (l *PyList) Type() string   { return "list" }
func (l *PyList) String() string { return fmt.Sprintf("%v", l.Items) }

// PyTuple is Python's immutable sequence type.
type PyTuple struct {
	Items []Value
}

func (t *PyTuple) Type() string   { return "tuple" }
func (t *PyTuple) String() string { return fmt.Sprintf("%v", t.Items) }

// dictEntry is one hash-bucket slot in a PyDict.
type dictEntry struct {
	key   Value
	value Value
}

// PyDict is Python's dict: hash-bucketed for O(1) average lookup, with an
// insertion-ordered key list (§3.7+ ordering) and a legacy Items map kept
// in sync for code paths that still range over it directly. A dict backing
// an instance's __dict__ carries instanceOwner so writes mirror back onto
// the instance's attribute table.
type PyDict struct {
	Items         map[Value]Value
	buckets       map[uint64][]dictEntry
	size          int
	orderedKeys   []Value
	instanceOwner *PyInstance
}

func (d *PyDict) Type() string   { return "dict" }
func (d *PyDict) String() string { return fmt.Sprintf("%v", d.Items) }

// ensureBuckets lazily allocates the hash-bucket map the first time a
// dict created via a bare struct literal (Items only) receives a DictSet.
func (d *PyDict) ensureBuckets() {
	if d.buckets == nil {
		d.buckets = make(map[uint64][]dictEntry)
	}
}

// DictGet looks up key by value-equality (via vm.equal), preferring the
// hash buckets when populated and falling back to a linear scan of the
// legacy Items map for dicts that were never routed through DictSet.
func (d *PyDict) DictGet(key Value, vm *VM) (Value, bool) {
	if d.buckets == nil {
		if val, ok := d.Items[key]; ok {
			return val, true
		}
		for k, v := range d.Items {
			if vm.equal(k, key) {
				return v, true
			}
		}
		return nil, false
	}
	for _, e := range d.buckets[vm.hashValueVM(key)] {
		if vm.equal(e.key, key) {
			return e.value, true
		}
	}
	return nil, false
}

// DictSet inserts or overwrites key, keeping buckets, Items, orderedKeys,
// and (when present) the owning instance's __dict__ all consistent.
func (d *PyDict) DictSet(key, value Value, vm *VM) {
	d.ensureBuckets()
	h := vm.hashValueVM(key)
	for i, e := range d.buckets[h] {
		if !vm.equal(e.key, key) {
			continue
		}
		d.buckets[h][i].value = value
		if d.Items != nil {
			d.deleteItemByEquality(e.key, vm)
			d.Items[e.key] = value
		}
		return
	}

	d.buckets[h] = append(d.buckets[h], dictEntry{key: key, value: value})
	d.size++
	d.orderedKeys = append(d.orderedKeys, key)

	if d.Items == nil {
		d.Items = make(map[Value]Value)
	}
	d.deleteItemByEquality(key, vm)
	d.Items[key] = value

	if d.instanceOwner != nil {
		if ks, ok := key.(*PyString); ok {
			d.instanceOwner.Dict[ks.Value] = value
		}
	}
}

// deleteItemByEquality drops the Items entry matching key under
// value-equality, since Items is keyed by Go interface identity while
// Python dict keys compare by value.
func (d *PyDict) deleteItemByEquality(key Value, vm *VM) {
	for k := range d.Items {
		if vm.equal(k, key) {
			delete(d.Items, k)
			return
		}
	}
}

// removeOrderedKey drops key from orderedKeys under value-equality.
func (d *PyDict) removeOrderedKey(key Value, vm *VM) {
	for i, k := range d.orderedKeys {
		if vm.equal(k, key) {
			d.orderedKeys = append(d.orderedKeys[:i], d.orderedKeys[i+1:]...)
			return
		}
	}
}

// Keys returns the dict's keys in insertion order, falling back to
// unordered Items iteration for dicts built without orderedKeys tracking.
func (d *PyDict) Keys(vm *VM) []Value {
	if len(d.orderedKeys) > 0 {
		return d.orderedKeys
	}
	keys := make([]Value, 0, len(d.Items))
	for k := range d.Items {
		keys = append(keys, k)
	}
	return keys
}

// DictDelete removes key if present, reporting whether it was found.
func (d *PyDict) DictDelete(key Value, vm *VM) bool {
	syncOwner := func() {
		if d.instanceOwner != nil {
			if ks, ok := key.(*PyString); ok {
				delete(d.instanceOwner.Dict, ks.Value)
			}
		}
	}

	if d.buckets == nil {
		for k := range d.Items {
			if !vm.equal(k, key) {
				continue
			}
			delete(d.Items, k)
			d.removeOrderedKey(key, vm)
			syncOwner()
			return true
		}
		return false
	}

	h := vm.hashValueVM(key)
	entries := d.buckets[h]
	for i, e := range entries {
		if !vm.equal(e.key, key) {
			continue
		}
		d.buckets[h] = append(entries[:i], entries[i+1:]...)
		d.size--
		d.deleteItemByEquality(e.key, vm)
		d.removeOrderedKey(key, vm)
		syncOwner()
		return true
	}
	return false
}

// DictContains reports whether key is present.
func (d *PyDict) DictContains(key Value, vm *VM) bool {
	_, found := d.DictGet(key, vm)
	return found
}

// DictLen returns the number of entries.
func (d *PyDict) DictLen() int {
	if d.buckets != nil {
		return d.size
	}
	return len(d.Items)
}

// setEntry is one hash-bucket slot in a PySet or PyFrozenSet.
type setEntry struct {
	value Value
}

// bucketInsert adds value to a hash-bucket set unless an equal member is
// already present, keeping buckets, the legacy Items map, and size in
// sync. Shared by PySet.SetAdd and PyFrozenSet.FrozenSetAdd, whose only
// difference is mutability of the surrounding type.
func bucketInsert(buckets map[uint64][]setEntry, items map[Value]struct{}, size *int, value Value, vm *VM) (map[uint64][]setEntry, map[Value]struct{}) {
	if buckets == nil {
		buckets = make(map[uint64][]setEntry)
	}
	h := vm.hashValueVM(value)
	for _, e := range buckets[h] {
		if vm.equal(e.value, value) {
			return buckets, items
		}
	}
	buckets[h] = append(buckets[h], setEntry{value: value})
	*size++
	if items == nil {
		items = make(map[Value]struct{})
	}
	items[value] = struct{}{}
	return buckets, items
}

// bucketContains reports whether value is present, preferring hash
// buckets and falling back to a linear Items scan when buckets is unset.
func bucketContains(buckets map[uint64][]setEntry, items map[Value]struct{}, value Value, vm *VM) bool {
	if buckets == nil {
		if _, ok := items[value]; ok {
			return true
		}
		for k := range items {
			if vm.equal(k, value) {
				return true
			}
		}
		return false
	}
	for _, e := range buckets[vm.hashValueVM(value)] {
		if vm.equal(e.value, value) {
			return true
		}
	}
	return false
}

// PySet is Python's mutable unordered collection type.
type PySet struct {
	Items   map[Value]struct{}
	buckets map[uint64][]setEntry
	size    int
}

func (s *PySet) Type() string   { return "set" }
func (s *PySet) String() string { return fmt.Sprintf("%v", s.Items) }

// SetAdd inserts value if not already a member.
func (s *PySet) SetAdd(value Value, vm *VM) {
	s.buckets, s.Items = bucketInsert(s.buckets, s.Items, &s.size, value, vm)
}

// SetContains reports membership.
func (s *PySet) SetContains(value Value, vm *VM) bool {
	return bucketContains(s.buckets, s.Items, value, vm)
}

// SetRemove removes value, reporting success. A set with no hash buckets
// yet (built via a bare struct literal) is treated as a plain map delete.
func (s *PySet) SetRemove(value Value, vm *VM) bool {
	if s.buckets == nil {
		delete(s.Items, value)
		return true
	}
	h := vm.hashValueVM(value)
	entries := s.buckets[h]
	for i, e := range entries {
		if vm.equal(e.value, value) {
			s.buckets[h] = append(entries[:i], entries[i+1:]...)
			s.size--
			delete(s.Items, value)
			return true
		}
	}
	return false
}

// SetLen returns the number of members.
func (s *PySet) SetLen() int {
	if s.buckets != nil {
		return s.size
	}
	return len(s.Items)
}

// PyFrozenSet is Python's immutable unordered collection type; its Add
// method is only used while the set is under construction.
type PyFrozenSet struct {
	Items   map[Value]struct{}
	buckets map[uint64][]setEntry
	size    int
}

func (s *PyFrozenSet) Type() string { return "frozenset" }
func (s *PyFrozenSet) String() string {
	if len(s.Items) == 0 {
		return "frozenset()"
	}
	return fmt.Sprintf("frozenset(%v)", s.Items)
}

// FrozenSetAdd inserts value during construction, before the frozenset is
// published as immutable.
func (s *PyFrozenSet) FrozenSetAdd(value Value, vm *VM) {
	s.buckets, s.Items = bucketInsert(s.buckets, s.Items, &s.size, value, vm)
}

// FrozenSetContains reports membership.
func (s *PyFrozenSet) FrozenSetContains(value Value, vm *VM) bool {
	return bucketContains(s.buckets, s.Items, value, vm)
}

// FrozenSetLen returns the number of members.
func (s *PyFrozenSet) FrozenSetLen() int {
	if s.buckets != nil {
		return s.size
	}
	return len(s.Items)
}
