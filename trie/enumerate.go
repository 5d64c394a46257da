package trie

import "github.com/dendrondb/dat/slot"

// KV is one key/value pair produced by Enumerate.
type KV struct {
	Key   []byte
	Value uint32
}

// Enumerate walks every key reachable from the root and invokes visit
// with each key/value pair in label order. It returns early if visit
// returns false.
func (t *Trie) Enumerate(visit func(KV) bool) {
	t.enumerateFrom(slot.Root, nil, visit)
}

func (t *Trie) enumerateFrom(pos uint32, prefix []byte, visit func(KV) bool) bool {
	labels := t.edgeLabels(pos)
	for _, label := range labels {
		child, _ := t.child(pos, label)
		if t.cells[child].IsLeaf() {
			if label == 0 {
				// Terminal marker: the key ends at prefix itself, and the
				// value is stored directly in the cell, no tail indirection.
				key := append([]byte{}, prefix...)
				if !visit(KV{Key: key, Value: t.cells[child].Value()}) {
					return false
				}
				continue
			}
			off := t.cells[child].Value()
			n := t.tail.StrLen(off)
			key := make([]byte, 0, len(prefix)+1+int(n))
			key = append(key, prefix...)
			key = append(key, label)
			for i := uint32(0); i < n; i++ {
				key = append(key, t.tail.ByteAt(off+i))
			}
			value := t.tail.ValueAt(off + n + 1)
			if !visit(KV{Key: key, Value: value}) {
				return false
			}
			continue
		}
		next := append(append([]byte{}, prefix...), label)
		if !t.enumerateFrom(child, next, visit) {
			return false
		}
	}
	return true
}

// EnumeratePrefixes walks every registered MLT prefix boundary,
// including unresolved ones (value slot.Invalid), invoking visit with
// the prefix bytes and the raw stored value (a suffix-subtrie id, or
// slot.Invalid).
func (t *Trie) EnumeratePrefixes(visit func(prefix []byte, value uint32) bool) {
	t.enumeratePrefixesFrom(slot.Root, nil, visit)
}

func (t *Trie) enumeratePrefixesFrom(pos uint32, prefix []byte, visit func([]byte, uint32) bool) bool {
	labels := t.edgeLabels(pos)
	for _, label := range labels {
		child, _ := t.child(pos, label)
		if t.cells[child].IsLeaf() {
			key := prefix
			if label != 0 {
				key = append(append([]byte{}, prefix...), label)
			}
			if !visit(key, t.cells[child].Value()) {
				return false
			}
			continue
		}
		next := append(append([]byte{}, prefix...), label)
		if !t.enumeratePrefixesFrom(child, next, visit) {
			return false
		}
	}
	return true
}
