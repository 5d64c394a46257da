package trie

import "github.com/dendrondb/dat/slot"

// Delete removes key, reporting whether it was present. Deleting the
// last child of an internal node frees the node itself and, if that
// collapses a chain down to a single remaining child, folds the chain
// back into a tail pool suffix (changeBranch).
func (t *Trie) Delete(key []byte) bool {
	pos := slot.Root
	i := 0
	for i < len(key) {
		next, ok := t.child(pos, key[i])
		if !ok {
			return false
		}
		if t.cells[next].IsLeaf() {
			off := t.cells[next].Value()
			if _, matched := t.tail.Match(key[i+1:], off); !matched {
				return false
			}
			t.deleteLeaf(next)
			return true
		}
		pos = next
		i++
	}
	term, ok := t.child(pos, 0)
	if !ok || !t.cells[term].IsLeaf() {
		return false
	}
	t.deleteLeaf(term)
	return true
}

// deleteLeaf detaches leaf, marks its tail pool entry dead (unless it is
// a terminal leaf, which never had one), decrements the key count, and
// walks back up the path collapsing any ancestor chain that becomes a
// single-child node.
func (t *Trie) deleteLeaf(leaf uint32) {
	if t.labelOf(leaf) != 0 {
		off := t.cells[leaf].Value()
		deadLen := t.tail.StrLen(off) + 1 + 4
		t.tail.MarkDead(deadLen)
	}
	t.numKeys--

	pos := t.cells[leaf].Check()
	t.unfix(leaf)
	t.collapse(pos)
}

// collapse walks upward from pos, freeing any internal node left with
// zero children, and folding a node left with exactly one remaining
// child into a tail-pool suffix chain so the double array doesn't carry
// dead singleton links.
func (t *Trie) collapse(pos uint32) {
	for pos != slot.Root {
		parent := t.cells[pos].Check()
		switch t.edgeSize(pos) {
		case 0:
			t.unfix(pos)
			pos = parent
		case 1:
			t.changeBranch(t.topOfSingletonChain(pos))
			return
		default:
			return
		}
	}
}

// topOfSingletonChain walks upward from pos (which already has exactly
// one child) through every ancestor that is itself pos's sole access
// path — i.e. whose own edge also has exactly one child — stopping at
// the highest such node. Root is never folded away even if it too ends
// up with one child, since it has no parent to reattach a leaf under
// and must stay fixed as the trie's permanent entry point.
func (t *Trie) topOfSingletonChain(pos uint32) uint32 {
	for {
		parent := t.cells[pos].Check()
		if parent == slot.Root || t.edgeSize(parent) != 1 {
			return pos
		}
		pos = parent
	}
}

// changeBranch folds pos, which now has exactly one child, and every
// single-child descendant directly below it, back into one tail-pool
// suffix chain terminated by the surviving descendant leaf. If the
// single-child run below pos ends at a node with more than one child
// instead of at a leaf, nothing is folded and the chain stays as it is.
// Callers pass the highest ancestor of such a
// chain (topOfSingletonChain), so the whole run — both the single-child
// ancestors above the deletion point and the single-child descendants
// below it — folds into one tail entry hung off the nearest surviving
// multi-child ancestor (or root).
func (t *Trie) changeBranch(pos uint32) {
	var chain []byte
	cur := pos
	for {
		labels := t.edgeLabels(cur)
		if len(labels) != 1 {
			break
		}
		child, _ := t.child(cur, labels[0])
		if labels[0] != 0 {
			chain = append(chain, labels[0])
		}
		if t.cells[child].IsLeaf() {
			var value uint32
			if labels[0] == 0 {
				// The surviving descendant is itself a terminal leaf: its
				// value is stored directly in the cell, not in the tail
				// pool, and contributes no suffix bytes to the chain.
				value = t.cells[child].Value()
			} else {
				off := t.cells[child].Value()
				suffixLen := t.tail.StrLen(off)
				value = t.tail.ValueAt(off + suffixLen + 1)
				for i := uint32(0); i < suffixLen; i++ {
					chain = append(chain, t.tail.ByteAt(off+i))
				}
				t.tail.MarkDead(suffixLen + 1 + 4)
			}
			t.unfix(child)

			top := t.cells[pos].Check()
			label := t.labelOf(pos)
			t.freeChainAbove(pos)
			newLeaf := t.appendEdge(top, label)
			t.setLeaf(newLeaf, label, chain, value)
			return
		}
		cur = child
	}
}

// freeChainAbove unfixes pos and every node below it that was folded
// into changeBranch's new tail entry, each exactly once (pos itself is
// the topmost node of the collapsed chain; the caller then re-appends
// its parent edge under a fresh leaf).
func (t *Trie) freeChainAbove(pos uint32) {
	labels := t.edgeLabels(pos)
	if len(labels) == 1 {
		child, _ := t.child(pos, labels[0])
		if t.cells[child].IsLeaf() {
			t.unfix(child)
		} else {
			t.freeChainAbove(child)
		}
	}
	t.unfix(pos)
}

// DeletePrefixLeaf removes a registered MLT prefix boundary leaf. This
// is a single-level operation, unlike Delete's chain-collapsing: the
// prefix subtrie never populates the tail pool, so there is no suffix
// chain to fold back. If removing the leaf leaves its parent with no
// children at all, the parent's base is cleared to slot.Invalid; any
// other sibling boundary (or branch) under that parent is left exactly
// as it was.
func (t *Trie) DeletePrefixLeaf(prefix []byte) bool {
	term, ok := t.searchPrefixBoundary(prefix)
	if !ok {
		return false
	}
	t.numKeys--
	parent := t.cells[term].Check()
	t.unfix(term)
	if t.edgeSize(parent) == 0 {
		t.cells[parent].SetBase(slot.Invalid)
	}
	return true
}
