package trie

import "github.com/dendrondb/dat/slot"

// edgeSize returns the number of children fixed directly under pos.
func (t *Trie) edgeSize(pos uint32) uint32 {
	c := t.cells[pos]
	if !c.IsFixed() || c.IsLeaf() {
		return 0
	}
	base := c.Base()
	var n uint32
	for label := 0; label < 256; label++ {
		child := base ^ uint32(label)
		if child < uint32(len(t.cells)) && t.cells[child].IsFixed() && t.cells[child].Check() == pos {
			n++
		}
	}
	return n
}

// edge collects the labels of every child fixed directly under pos.
func (t *Trie) edgeLabels(pos uint32) []byte {
	c := t.cells[pos]
	if !c.IsFixed() || c.IsLeaf() {
		return nil
	}
	base := c.Base()
	var labels []byte
	for label := 0; label < 256; label++ {
		child := base ^ uint32(label)
		if child < uint32(len(t.cells)) && t.cells[child].IsFixed() && t.cells[child].Check() == pos {
			labels = append(labels, byte(label))
		}
	}
	return labels
}

// child returns the node index reached from pos by label, and whether
// that child is fixed.
func (t *Trie) child(pos uint32, label byte) (uint32, bool) {
	c := t.cells[pos]
	if !c.IsFixed() || c.IsLeaf() {
		return 0, false
	}
	idx := c.Base() ^ uint32(label)
	if idx >= uint32(len(t.cells)) {
		return 0, false
	}
	if !t.cells[idx].IsFixed() || t.cells[idx].Check() != pos {
		return 0, false
	}
	return idx, true
}

// Search looks up key and returns its value and whether it was found.
func (t *Trie) Search(key []byte) (uint32, bool) {
	pos := slot.Root
	i := 0
	for i < len(key) {
		next, ok := t.child(pos, key[i])
		if !ok {
			return 0, false
		}
		pos = next
		i++
		c := t.cells[pos]
		if c.IsLeaf() {
			off := c.Value()
			if _, matched := t.tail.Match(key[i:], off); !matched {
				return 0, false
			}
			return t.tail.ValueAt(off + t.tail.StrLen(off) + 1), true
		}
	}
	// Consumed the whole key by direct branching; pos itself must carry
	// a terminal marker, stored as a fixed leaf child under label 0x00
	// whose value is stored directly in the cell (no tail indirection).
	if term, ok := t.child(pos, 0); ok {
		c := t.cells[term]
		if c.IsLeaf() {
			return c.Value(), true
		}
	}
	return 0, false
}

// searchPrefixBoundary walks as far as the double array can take a
// prefix lookup, used by MLT to resolve a key's suffix-subtrie id. It
// returns the resolved prefix-leaf cell index and whether the prefix is
// registered at all (even if not finalized with a subtrie id yet).
func (t *Trie) searchPrefixBoundary(key []byte) (uint32, bool) {
	pos := slot.Root
	for i := 0; i < len(key); i++ {
		next, ok := t.child(pos, key[i])
		if !ok {
			return 0, false
		}
		pos = next
		if t.cells[pos].IsLeaf() {
			if i != len(key)-1 {
				return 0, false
			}
			return pos, true
		}
	}
	if term, ok := t.child(pos, 0); ok && t.cells[term].IsLeaf() {
		return term, true
	}
	return 0, false
}

// LongestRegisteredPrefix walks key through the prefix subtrie and
// returns the length of the longest prefix of key that has a
// registered boundary (resolved or not), or 0 if none does.
func (t *Trie) LongestRegisteredPrefix(key []byte) int {
	pos := slot.Root
	longest := 0
	for i := 0; i < len(key); i++ {
		next, ok := t.child(pos, key[i])
		if !ok {
			break
		}
		pos = next
		if t.cells[pos].IsLeaf() {
			return i + 1
		}
		if _, ok := t.child(pos, 0); ok {
			longest = i + 1
		}
	}
	return longest
}

// SearchPrefixID resolves prefix to its registered boundary value (an
// MLT suffix-subtrie id, or slot.Invalid for a prefix registered but
// not yet assigned one), reporting whether the prefix is registered at
// all.
func (t *Trie) SearchPrefixID(prefix []byte) (uint32, bool) {
	term, ok := t.searchPrefixBoundary(prefix)
	if !ok {
		return 0, false
	}
	return t.cells[term].Value(), true
}
