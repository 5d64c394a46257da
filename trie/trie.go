// Package trie implements the dynamic double-array trie engine shared by
// the SGL and MLT dictionary facades: a XOR-addressed base/check array,
// a block-aware freelist, and a tail pool for singleton suffix chains.
package trie

import (
	"io"
	"log/slog"

	"github.com/dendrondb/dat/internal/tailpool"
	"github.com/dendrondb/dat/slot"
)

// Stat mirrors the bookkeeping the reference trie exposes for tuning and
// diagnostics: cell/tail occupancy, the key count, and the running byte
// footprint. It has no subtrie count. SizeInBytes counts cells, node
// links and tail bytes; it is not the byte length WriteTo produces.
type Stat struct {
	NumKeys     uint32
	NumNodes    uint32
	BcSize      uint32
	BcCapacity  uint32
	BcEmpties   uint32
	TailSize    uint32
	TailCapacity uint32
	TailEmpties uint32
	SizeInBytes uint32
}

// block tracks how many cells within one BlockSize run are empty, used
// by the block-linked freelist variant to skip full blocks during
// xcheck (excheck walks the plain freelist ring).
type block struct {
	numEmps uint32
	next    uint32
	prev    uint32
	linked  bool // true once this block is threaded into the non-full ring
}

// Trie is one double array plus its freelist and tail pool. The zero
// value is not usable; construct with New.
type Trie struct {
	cells []slot.Cell
	links []slot.NodeLink

	withLinks bool // maintain sibling-ring NodeLink bytes alongside cells
	linked    bool // block-linked freelist bookkeeping
	prefix    bool // this Trie holds prefix-boundary leaves, not values

	headEmp uint32 // head of the circular freelist of empty cells
	blocks  []block
	ring    uint32 // head of the circular ring of non-full blocks
	numBc   uint32 // current logical length of the cell array

	tail tailpool.Pool

	numKeys uint32
	log     *slog.Logger
}

// Option configures a Trie at construction time.
type Option func(*Trie)

// WithNodeLinks reserves a NodeLink byte pair per cell, which growth,
// Shrink and WriteTo/ReadFrom carry along. The engine never fills them
// in or reads them: enumeration and edge lookups always scan all 256
// labels.
func WithNodeLinks() Option { return func(t *Trie) { t.withLinks = true } }

// WithBlockLinkedFreelist selects the block-linked freelist variant,
// which tracks per-block occupancy to skip full blocks during base
// search.
func WithBlockLinkedFreelist() Option { return func(t *Trie) { t.linked = true } }

// WithPrefixSubtrie marks this Trie as holding prefix-boundary leaves
// (an MLT prefix subtrie) rather than terminal values.
func WithPrefixSubtrie() Option { return func(t *Trie) { t.prefix = true } }

// WithLogger overrides the discarding default logger. The Trie keeps it
// (and passes it on through Rebuild) but its own operations write no
// log lines; progress narration is done by the sgl and mlt facades.
func WithLogger(l *slog.Logger) Option {
	return func(t *Trie) {
		if l != nil {
			t.log = l
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// New constructs an empty Trie with a root cell at slot.Root.
func New(opts ...Option) *Trie {
	t := &Trie{
		headEmp: slot.Root,
		log:     discardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.growTo(slot.BlockSize)
	t.numBc = slot.BlockSize
	// Root is always fixed so the freelist (and block bookkeeping) never
	// has to special-case it.
	t.fix(slot.Root)
	t.cells[slot.Root].SetBase(slot.Root)
	// Root has no parent. Replace the freelist link fix left in its check
	// with a value no cell index takes, so root never reads as a child of
	// the cell that link named.
	t.cells[slot.Root].SetCheck(1<<31 - 1)
	return t
}

// NewPrefixTrie constructs a Trie pre-seeded with boundary nodes for
// each of the supplied prefixes, matching the reference DaTrie(prefixes)
// bulk constructor used by DictionaryMLT(prefixes).
func NewPrefixTrie(prefixes []string, opts ...Option) *Trie {
	opts = append(opts, WithPrefixSubtrie())
	t := New(opts...)
	for _, p := range prefixes {
		t.insertPrefixBoundary([]byte(p))
	}
	return t
}

// NumKeys returns the number of terminal keys stored.
func (t *Trie) NumKeys() uint32 { return t.numKeys }

// NumSingles counts every fixed node whose edge (outgoing label set) has
// exactly one member — a chain link, whether or not that single child is
// itself a leaf. This matches the reference num_singles() counting rule
// rather than counting only leaf-terminated chains.
func (t *Trie) NumSingles() uint32 {
	var n uint32
	for i := range t.cells {
		c := t.cells[i]
		if !c.IsFixed() || c.IsLeaf() {
			continue
		}
		if t.edgeSize(uint32(i)) == 1 {
			n++
		}
	}
	return n
}

// Stat computes the current occupancy/footprint snapshot.
func (t *Trie) Stat() Stat {
	var bcEmps uint32
	for i := slot.Root; i < t.numBc; i++ {
		if !t.cells[i].IsFixed() {
			bcEmps++
		}
	}
	sizeInBytes := t.numBc*8 + uint32(len(t.tail.Bytes()))
	if t.withLinks {
		sizeInBytes += t.numBc * 2
	}
	return Stat{
		NumKeys:      t.numKeys,
		NumNodes:     t.numBc - bcEmps,
		BcSize:       t.numBc,
		BcCapacity:   uint32(len(t.cells)),
		BcEmpties:    bcEmps,
		TailSize:     t.tail.Len(),
		TailCapacity: uint32(cap(t.tail.Bytes())),
		TailEmpties:  t.tail.Dead(),
		SizeInBytes:  sizeInBytes,
	}
}

// RatioSingles is the fraction of fixed nodes that are singleton chain
// links, the diagnostic the reference dictionary exposes as
// ratio_singles().
func (t *Trie) RatioSingles() float64 {
	st := t.Stat()
	if st.NumNodes == 0 {
		return 0
	}
	return float64(t.NumSingles()) / float64(st.NumNodes)
}

// Shrink releases array and tail-pool capacity beyond what's currently
// in use, the Go analogue of the reference's shrink_to_fit on bc_,
// tail_, and blocks_. It does not change the trie's contents, only its
// backing storage.
func (t *Trie) Shrink() {
	if uint32(len(t.cells)) > t.numBc {
		shrunk := make([]slot.Cell, t.numBc)
		copy(shrunk, t.cells[:t.numBc])
		t.cells = shrunk
		if t.withLinks {
			shrunkLinks := make([]slot.NodeLink, t.numBc)
			copy(shrunkLinks, t.links[:t.numBc])
			t.links = shrunkLinks
		}
	}
	if t.linked {
		numBlocks := t.numBc / slot.BlockSize
		if uint32(len(t.blocks)) > numBlocks {
			shrunkBlocks := make([]block, numBlocks)
			copy(shrunkBlocks, t.blocks[:numBlocks])
			t.blocks = shrunkBlocks
		}
	}
	t.tail.Shrink()
}

func (t *Trie) growTo(n uint32) {
	// The array's logical length is always a whole number of blocks, so
	// every block-bookkeeping and trim computation can assume aligned
	// boundaries.
	if rem := n % slot.BlockSize; rem != 0 {
		n += slot.BlockSize - rem
	}
	if n <= t.numBc {
		return
	}
	old := t.numBc
	if n > uint32(len(t.cells)) {
		grown := make([]slot.Cell, n)
		copy(grown, t.cells)
		t.cells = grown
		if t.withLinks {
			grownLinks := make([]slot.NodeLink, n)
			copy(grownLinks, t.links)
			t.links = grownLinks
		}
	} else {
		// Reactivate capacity trimEmptyTail previously parked as
		// fixed-but-unused.
		for i := old; i < n; i++ {
			t.cells[i].Unfix()
		}
	}
	if t.linked {
		existing := uint32(len(t.blocks))
		for b := old / slot.BlockSize; b < n/slot.BlockSize; b++ {
			if b < existing {
				// Reactivating a block trimEmptyTail previously parked
				// as fully fixed.
				t.blocks[b].numEmps = slot.BlockSize
			} else {
				t.blocks = append(t.blocks, block{numEmps: slot.BlockSize, next: b, prev: b})
			}
			t.linkBlock(b)
		}
	}
	t.numBc = n
	t.threadIntoFreelist(old, n)
}

// threadIntoFreelist splices the cell range [old, n) — freshly grown or
// reactivated — into the circular freelist ring as a doubly-linked run.
func (t *Trie) threadIntoFreelist(old, n uint32) {
	for i := old; i < n; i++ {
		next, prev := i+1, i-1
		if i == n-1 {
			next = old
		}
		if i == old {
			prev = n - 1
		}
		t.cells[i].SetBase(next)
		t.cells[i].SetCheck(prev)
	}
	if !t.ringNonEmpty() {
		t.headEmp = old
		return
	}
	head := t.headEmp
	tail := t.cells[head].Check()
	t.cells[tail].SetBase(old)
	t.cells[old].SetCheck(tail)
	t.cells[n-1].SetBase(head)
	t.cells[head].SetCheck(n - 1)
	t.headEmp = old
}
