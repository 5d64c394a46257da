package trie

import "github.com/dendrondb/dat/slot"

// fix removes pos from the freelist ring and marks it occupied.
func (t *Trie) fix(pos uint32) {
	c := t.cells[pos]
	next, prev := c.Base(), c.Check()
	if next == pos && prev == pos {
		// pos was the only empty cell; the ring is now empty. headEmp is
		// left dangling but is never dereferenced while the ring is
		// empty, since fix/unfix always check emptiness via IsFixed.
	} else {
		t.cells[next].SetCheck(prev)
		t.cells[prev].SetBase(next)
		if t.headEmp == pos {
			t.headEmp = next
		}
	}
	t.cells[pos].Fix()
	if t.linked {
		b := pos / slot.BlockSize
		t.blocks[b].numEmps--
		if t.blocks[b].numEmps == 0 {
			t.unlinkBlock(b)
		}
	}
}

// unfix reinserts pos into the freelist ring (at the head) and clears
// its occupied flag.
func (t *Trie) unfix(pos uint32) {
	t.cells[pos].Unfix()
	t.cells[pos].SetBase(0)
	t.cells[pos].SetCheck(0)
	if !t.ringNonEmpty() {
		t.cells[pos].SetBase(pos)
		t.cells[pos].SetCheck(pos)
		t.headEmp = pos
	} else {
		head := t.headEmp
		tail := t.cells[head].Check()
		t.cells[tail].SetBase(pos)
		t.cells[pos].SetCheck(tail)
		t.cells[pos].SetBase(head)
		t.cells[head].SetCheck(pos)
		t.headEmp = pos
	}
	if t.linked {
		b := pos / slot.BlockSize
		if t.blocks[b].numEmps == 0 {
			t.linkBlock(b)
		}
		t.blocks[b].numEmps++
	}
}

// ringNonEmpty reports whether the freelist currently holds at least one
// empty cell other than a stale headEmp pointer into a fully-fixed
// array. It is only ever called right after fixing the last empty cell,
// so it is cheap to answer precisely: the ring is empty exactly when
// headEmp itself is fixed.
func (t *Trie) ringNonEmpty() bool {
	return t.headEmp < uint32(len(t.cells)) && !t.cells[t.headEmp].IsFixed()
}

// linkBlock threads block b into the circular ring of non-full blocks.
func (t *Trie) linkBlock(b uint32) {
	if t.blocks[b].linked {
		return
	}
	if !t.anyLinked() {
		t.blocks[b].next, t.blocks[b].prev = b, b
		t.ring = b
	} else {
		tail := t.blocks[t.ring].prev
		t.blocks[tail].next = b
		t.blocks[b].prev = tail
		t.blocks[b].next = t.ring
		t.blocks[t.ring].prev = b
	}
	t.blocks[b].linked = true
}

// unlinkBlock removes block b from the circular ring of non-full blocks.
func (t *Trie) unlinkBlock(b uint32) {
	if !t.blocks[b].linked {
		return
	}
	next, prev := t.blocks[b].next, t.blocks[b].prev
	if next == b {
		// b was the only linked block.
	} else {
		t.blocks[next].prev = prev
		t.blocks[prev].next = next
	}
	if t.ring == b {
		if next == b {
			t.ring = 0
		} else {
			t.ring = next
		}
	}
	t.blocks[b].linked = false
}

func (t *Trie) anyLinked() bool {
	for i := range t.blocks {
		if t.blocks[i].linked {
			return true
		}
	}
	return false
}

// xcheck finds a base such that every label in edge maps (via XOR) to an
// unoccupied cell, growing the array as needed. It never returns a base
// of 0 (base^label == label would collide with the reserved root for
// single-byte edges starting the array).
func (t *Trie) xcheck(edge []byte) uint32 {
	if !t.ringNonEmpty() {
		return t.growForBase(edge)
	}
	if t.linked {
		if b, ok := t.xcheckLinked(edge); ok {
			return b
		}
	}
	pos := t.headEmp
	for {
		base := pos ^ uint32(edge[0])
		if t.fitsBase(base, edge, false) {
			return base
		}
		pos = t.cells[pos].Base()
		if pos == t.headEmp {
			break
		}
	}
	return t.growForBase(edge)
}

// excheck is xcheck restricted to blocks other than the array's current
// final block, used by in-place Pack so relocations never grow the tail
// of the array they are trying to shrink. Unlike xcheck it may return a
// base whose target cells are occupied, as long as every occupant's
// parent has a strictly smaller edge than the one being placed — pack_bc
// then shelters those occupants out of the way before relocating in.
func (t *Trie) excheck(edge []byte) (uint32, bool) {
	if !t.ringNonEmpty() {
		return 0, false
	}
	lastBlock := (t.numBc - 1) / slot.BlockSize
	pos := t.headEmp
	start := pos
	for {
		base := pos ^ uint32(edge[0])
		if base/slot.BlockSize != lastBlock && t.fitsBase(base, edge, true) {
			return base, true
		}
		pos = t.cells[pos].Base()
		if pos == start {
			break
		}
	}
	return 0, false
}

func (t *Trie) xcheckLinked(edge []byte) (uint32, bool) {
	if !t.anyLinked() {
		return 0, false
	}
	start := t.ring
	b := start
	for {
		blockBase := b * slot.BlockSize
		for off := uint32(0); off < slot.BlockSize; off++ {
			pos := blockBase + off
			if pos >= uint32(len(t.cells)) || t.cells[pos].IsFixed() {
				continue
			}
			base := pos ^ uint32(edge[0])
			if t.fitsBase(base, edge, false) {
				return base, true
			}
		}
		b = t.blocks[b].next
		if b == start {
			break
		}
	}
	return 0, false
}

// fitsBase reports whether base^label is in range, for every label in
// edge, either unoccupied or (when evict is set) occupied by a node
// whose parent's own edge is strictly smaller than edge — the
// shelter-eviction case excheck uses during Pack, where the occupant
// gets relocated out of the way rather than blocking the slot outright.
// The root cell is never a fit, occupied or not.
func (t *Trie) fitsBase(base uint32, edge []byte, evict bool) bool {
	if base == 0 {
		return false
	}
	for _, label := range edge {
		pos := base ^ uint32(label)
		if pos >= uint32(len(t.cells)) || pos == slot.Root {
			return false
		}
		if !t.cells[pos].IsFixed() {
			continue
		}
		if !evict {
			return false
		}
		parent := t.cells[pos].Check()
		if t.edgeSize(parent) >= uint32(len(edge)) {
			return false
		}
	}
	return true
}

// growForBase appends one fresh block and returns the base that places
// edge inside it: numBc is block-aligned, so numBc^label lands in the
// new block for every label, and all of those cells are empty.
func (t *Trie) growForBase(edge []byte) uint32 {
	base := t.numBc ^ uint32(edge[0])
	t.growTo(t.numBc + slot.BlockSize)
	return base
}
