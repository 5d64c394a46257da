package trie

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dendrondb/dat/slot"
)

const (
	flagWithLinks = 1 << 0
	flagLinked    = 1 << 1
	flagPrefix    = 1 << 2
)

// WriteTo serializes the trie's body in the pinned bit-exact layout:
// a flags byte, numBc, the cell array (two little-endian uint32 words
// per cell), the node-link array if enabled (one byte pair per cell),
// the tail pool (length, dead count, raw bytes), and numKeys.
func (t *Trie) WriteTo(w io.Writer) (int64, error) {
	var written int64
	wr := func(v interface{}) error {
		return binary.Write(w, binary.LittleEndian, v)
	}

	var flags byte
	if t.withLinks {
		flags |= flagWithLinks
	}
	if t.linked {
		flags |= flagLinked
	}
	if t.prefix {
		flags |= flagPrefix
	}
	if err := wr(flags); err != nil {
		return written, fmt.Errorf("trie: write flags: %w", err)
	}
	written++

	if err := wr(t.numBc); err != nil {
		return written, fmt.Errorf("trie: write numBc: %w", err)
	}
	written += 4

	for i := slot.Root; i < t.numBc; i++ {
		base, check := t.cells[i].Raw()
		if err := wr(base); err != nil {
			return written, fmt.Errorf("trie: write cell %d base: %w", i, err)
		}
		written += 4
		if err := wr(check); err != nil {
			return written, fmt.Errorf("trie: write cell %d check: %w", i, err)
		}
		written += 4
	}

	if t.withLinks {
		for i := slot.Root; i < t.numBc; i++ {
			nl := t.links[i]
			if err := wr(nl.Child); err != nil {
				return written, fmt.Errorf("trie: write link %d child: %w", i, err)
			}
			written++
			if err := wr(nl.Sib); err != nil {
				return written, fmt.Errorf("trie: write link %d sib: %w", i, err)
			}
			written++
		}
	}

	tailBytes := t.tail.Bytes()
	if err := wr(uint32(len(tailBytes))); err != nil {
		return written, fmt.Errorf("trie: write tail length: %w", err)
	}
	written += 4
	if err := wr(t.tail.Dead()); err != nil {
		return written, fmt.Errorf("trie: write tail dead count: %w", err)
	}
	written += 4
	n, err := w.Write(tailBytes)
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("trie: write tail bytes: %w", err)
	}

	if err := wr(t.numKeys); err != nil {
		return written, fmt.Errorf("trie: write numKeys: %w", err)
	}
	written += 4

	return written, nil
}

// ReadFrom deserializes a trie body written by WriteTo, discarding any
// prior contents of t.
func (t *Trie) ReadFrom(r io.Reader) (int64, error) {
	var readN int64
	rd := func(v interface{}) error {
		return binary.Read(r, binary.LittleEndian, v)
	}

	var flags byte
	if err := rd(&flags); err != nil {
		return readN, fmt.Errorf("trie: read flags: %w", err)
	}
	readN++
	t.withLinks = flags&flagWithLinks != 0
	t.linked = flags&flagLinked != 0
	t.prefix = flags&flagPrefix != 0

	var numBc uint32
	if err := rd(&numBc); err != nil {
		return readN, fmt.Errorf("trie: read numBc: %w", err)
	}
	readN += 4

	t.cells = make([]slot.Cell, numBc)
	if t.withLinks {
		t.links = make([]slot.NodeLink, numBc)
	}
	t.numBc = numBc
	t.headEmp = slot.Root
	t.blocks = nil
	t.ring = 0

	for i := slot.Root; i < numBc; i++ {
		var base, check uint32
		if err := rd(&base); err != nil {
			return readN, fmt.Errorf("trie: read cell %d base: %w", i, err)
		}
		readN += 4
		if err := rd(&check); err != nil {
			return readN, fmt.Errorf("trie: read cell %d check: %w", i, err)
		}
		readN += 4
		t.cells[i] = slot.FromRaw(base, check)
	}

	if t.withLinks {
		for i := slot.Root; i < numBc; i++ {
			var child, sib byte
			if err := rd(&child); err != nil {
				return readN, fmt.Errorf("trie: read link %d child: %w", i, err)
			}
			readN++
			if err := rd(&sib); err != nil {
				return readN, fmt.Errorf("trie: read link %d sib: %w", i, err)
			}
			readN++
			t.links[i] = slot.NodeLink{Child: child, Sib: sib}
		}
	}

	var tailLen, tailDead uint32
	if err := rd(&tailLen); err != nil {
		return readN, fmt.Errorf("trie: read tail length: %w", err)
	}
	readN += 4
	if err := rd(&tailDead); err != nil {
		return readN, fmt.Errorf("trie: read tail dead count: %w", err)
	}
	readN += 4
	tailBuf := make([]byte, tailLen)
	n, err := io.ReadFull(r, tailBuf)
	readN += int64(n)
	if err != nil {
		return readN, fmt.Errorf("trie: read tail bytes: %w", err)
	}
	t.tail.SetBytes(tailBuf, tailDead)

	var numKeys uint32
	if err := rd(&numKeys); err != nil {
		return readN, fmt.Errorf("trie: read numKeys: %w", err)
	}
	readN += 4
	t.numKeys = numKeys

	// Reconstruct the freelist ring and block bookkeeping over the
	// deserialized cells rather than persisting them directly — they
	// are pure derived state recomputable from IsFixed alone.
	t.rebuildFreelist()

	return readN, nil
}

// rebuildFreelist scans the cell array and re-threads every unfixed
// cell into the circular freelist ring (and, in block-linked mode, the
// per-block occupancy counters), used after ReadFrom reconstructs cells
// without any freelist metadata.
func (t *Trie) rebuildFreelist() {
	if t.linked {
		numBlocks := (uint32(len(t.cells)) + slot.BlockSize - 1) / slot.BlockSize
		t.blocks = make([]block, numBlocks)
		for b := range t.blocks {
			t.blocks[b].numEmps = slot.BlockSize
		}
	}
	t.headEmp = slot.Root
	first := true
	for i := uint32(len(t.cells)); i > 0; i-- {
		pos := i - 1
		if t.cells[pos].IsFixed() {
			if t.linked {
				t.blocks[pos/slot.BlockSize].numEmps--
			}
			continue
		}
		if first {
			t.cells[pos].SetBase(pos)
			t.cells[pos].SetCheck(pos)
			t.headEmp = pos
			first = false
			continue
		}
		head := t.headEmp
		tail := t.cells[head].Check()
		t.cells[tail].SetBase(pos)
		t.cells[pos].SetCheck(tail)
		t.cells[pos].SetBase(head)
		t.cells[head].SetCheck(pos)
		t.headEmp = pos
	}
	if t.linked {
		for b := range t.blocks {
			if t.blocks[b].numEmps > 0 {
				t.linkBlock(uint32(b))
			}
		}
	}
}
