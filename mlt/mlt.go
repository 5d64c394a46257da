// Package mlt implements the multi-trie dictionary facade: one prefix
// subtrie whose leaves resolve to suffix-subtrie ids, plus a sparse
// slice of independent suffix subtries. Rearrangement operations fan
// out across the suffix subtries in parallel.
package mlt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dendrondb/dat/internal/persist"
	"github.com/dendrondb/dat/internal/unsafestring"
	"github.com/dendrondb/dat/slot"
	"github.com/dendrondb/dat/trie"
)

// ErrValueOutOfRange is returned by Insert when value doesn't fit in 31
// bits.
var ErrValueOutOfRange = errors.New("mlt: value must fit in 31 bits")

// Option configures a Dictionary at construction time.
type Option func(*Dictionary)

// WithLogger sets the logger used for the per-subtrie Pack/Rebuild/
// Shrink fan-out progress lines.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dictionary) { d.log = l }
}

// WithNodeLinks makes every subtrie (prefix and suffix alike) reserve
// and serialize a NodeLink byte pair per cell; the engine does not fill
// them in or use them.
func WithNodeLinks() Option {
	return func(d *Dictionary) { d.trieOpts = append(d.trieOpts, trie.WithNodeLinks()) }
}

// WithBlockLinkedFreelist selects the block-linked freelist variant on
// every subtrie.
func WithBlockLinkedFreelist() Option {
	return func(d *Dictionary) { d.trieOpts = append(d.trieOpts, trie.WithBlockLinkedFreelist()) }
}

// WithPrefixes pre-registers prefixes as boundary nodes in the prefix
// subtrie, without yet assigning them a suffix-subtrie id, matching the
// reference bulk-seeded DaTrie(prefixes) constructor.
func WithPrefixes(prefixes ...string) Option {
	return func(d *Dictionary) { d.seedPrefixes = append(d.seedPrefixes, prefixes...) }
}

// Dictionary is the prefix-subtrie-plus-many-suffix-subtries facade.
type Dictionary struct {
	prefix  *trie.Trie
	suffix  []*trie.Trie // sparse: a nil entry is an unallocated id
	head    uint32       // lowest never-yet-used suffix-subtrie id
	numKeys uint32

	log          *slog.Logger
	trieOpts     []trie.Option
	seedPrefixes []string
}

// New constructs an empty Dictionary.
func New(opts ...Option) *Dictionary {
	d := &Dictionary{}
	for _, opt := range opts {
		opt(d)
	}
	var tOpts []trie.Option
	tOpts = append(tOpts, d.trieOpts...)
	if d.log != nil {
		tOpts = append(tOpts, trie.WithLogger(d.log))
	}
	d.prefix = trie.NewPrefixTrie(d.seedPrefixes, tOpts...)
	return d
}

func (d *Dictionary) suffixTrieOpts() []trie.Option {
	var tOpts []trie.Option
	tOpts = append(tOpts, d.trieOpts...)
	if d.log != nil {
		tOpts = append(tOpts, trie.WithLogger(d.log))
	}
	return tOpts
}

// splitKey divides key at the end of the longest prefix registered in
// the prefix subtrie; keys with no registered prefix default to a
// one-byte split, matching the reference "unregistered prefixes default
// to a one-byte split" behavior.
func (d *Dictionary) splitKey(key []byte) (prefix, suffix []byte) {
	if len(key) == 0 {
		return nil, nil
	}
	n := d.prefix.LongestRegisteredPrefix(key)
	if n == 0 {
		n = 1
	}
	return key[:n], key[n:]
}

// newSuffixID allocates a suffix-subtrie id, reusing a freed slot below
// head before scanning forward, matching the reference
// new_suffix_id_() allocation policy.
func (d *Dictionary) newSuffixID() uint32 {
	for i := uint32(0); i < d.head; i++ {
		if d.suffix[i] == nil {
			return i
		}
	}
	id := d.head
	d.head++
	d.suffix = append(d.suffix, nil)
	return id
}

func (d *Dictionary) ensureSuffix(id uint32) *trie.Trie {
	for uint32(len(d.suffix)) <= id {
		d.suffix = append(d.suffix, nil)
	}
	if d.suffix[id] == nil {
		d.suffix[id] = trie.New(d.suffixTrieOpts()...)
		if id >= d.head {
			d.head = id + 1
		}
	}
	return d.suffix[id]
}

// Search resolves key's prefix to a suffix-subtrie id via the prefix
// subtrie, then looks the remaining bytes up in that suffix subtrie.
func (d *Dictionary) Search(key []byte) (uint32, bool) {
	prefix, rest := d.splitKey(key)
	term, ok := d.prefix.SearchPrefixID(prefix)
	if !ok || term == slot.Invalid {
		return 0, false
	}
	st := d.suffix[term]
	if st == nil {
		return 0, false
	}
	return st.Search(rest)
}

// SearchString is Search without the usual string-to-[]byte copy.
func (d *Dictionary) SearchString(key string) (uint32, bool) {
	return d.Search(unsafestring.ToBytes(key))
}

// Insert adds key with value, resolving (and lazily allocating) the
// prefix's suffix-subtrie id as needed.
func (d *Dictionary) Insert(key []byte, value uint32) (bool, error) {
	if value&(1<<31) != 0 {
		return false, ErrValueOutOfRange
	}
	prefix, rest := d.splitKey(key)
	id, ok := d.prefix.SearchPrefixID(prefix)
	if !ok || id == slot.Invalid {
		id = d.newSuffixID()
		d.prefix.InsertPrefixLeaf(prefix, id)
	}
	st := d.ensureSuffix(id)
	inserted := st.Insert(rest, value)
	if inserted {
		d.numKeys++
	}
	return inserted, nil
}

// Delete removes key, freeing its suffix-subtrie id (and pruning the
// prefix boundary) if that subtrie becomes empty.
func (d *Dictionary) Delete(key []byte) bool {
	prefix, rest := d.splitKey(key)
	id, ok := d.prefix.SearchPrefixID(prefix)
	if !ok || id == slot.Invalid || d.suffix[id] == nil {
		return false
	}
	st := d.suffix[id]
	if !st.Delete(rest) {
		return false
	}
	d.numKeys--
	if st.NumKeys() == 0 {
		d.suffix[id] = nil
		d.prefix.DeletePrefixLeaf(prefix)
		d.reclaimSuffixTail()
	}
	return true
}

// reclaimSuffixTail pops trailing unallocated entries from the suffix
// slice and lowers head to match, so an id freed by the most recent
// delete doesn't linger as a permanently-nil entry that Pack/WriteTo
// would otherwise carry forever.
func (d *Dictionary) reclaimSuffixTail() {
	for len(d.suffix) > 0 && d.suffix[len(d.suffix)-1] == nil {
		d.suffix = d.suffix[:len(d.suffix)-1]
	}
	if uint32(len(d.suffix)) < d.head {
		d.head = uint32(len(d.suffix))
	}
}

// NumKeys returns the total number of keys stored across every suffix
// subtrie.
func (d *Dictionary) NumKeys() uint32 { return d.numKeys }

// Enumerate walks every key/value pair across every suffix subtrie,
// reassembling the full key from its prefix and suffix halves.
func (d *Dictionary) Enumerate(visit func(key []byte, value uint32) bool) {
	d.prefix.EnumeratePrefixes(func(prefix []byte, id uint32) bool {
		if id == slot.Invalid || uint32(len(d.suffix)) <= id || d.suffix[id] == nil {
			return true
		}
		st := d.suffix[id]
		cont := true
		st.Enumerate(func(kv trie.KV) bool {
			key := append(append([]byte{}, prefix...), kv.Key...)
			if !visit(key, kv.Value) {
				cont = false
				return false
			}
			return true
		})
		return cont
	})
}

// Pack compacts the prefix subtrie and fans out one goroutine per
// non-empty suffix subtrie to compact it in parallel, joining before
// returning.
func (d *Dictionary) Pack() error {
	d.prefix.Pack()
	return d.forEachSuffix("pack", func(t *trie.Trie) { t.Pack() })
}

// Rebuild reconstructs the prefix subtrie and fans out one goroutine
// per non-empty suffix subtrie to rebuild it in parallel, joining
// before returning.
func (d *Dictionary) Rebuild() error {
	d.prefix.Rebuild()
	return d.forEachSuffix("rebuild", func(t *trie.Trie) { t.Rebuild() })
}

// Shrink releases excess backing-array and tail-pool capacity across the
// prefix subtrie and every allocated suffix subtrie, fanning out the
// same way Pack and Rebuild do.
func (d *Dictionary) Shrink() error {
	d.prefix.Shrink()
	return d.forEachSuffix("shrink", func(t *trie.Trie) { t.Shrink() })
}

func (d *Dictionary) forEachSuffix(op string, work func(*trie.Trie)) error {
	var g errgroup.Group
	for id, st := range d.suffix {
		if st == nil {
			continue
		}
		id, st := id, st
		g.Go(func() error {
			d.logDebug(op+": subtrie start", uint32(id))
			work(st)
			d.logDebug(op+": subtrie done", uint32(id))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("mlt: %s: %w", op, err)
	}
	return nil
}

func (d *Dictionary) logDebug(msg string, subtrieID uint32) {
	if d.log == nil {
		return
	}
	d.log.Debug(msg, "suffix_subtrie_id", subtrieID)
}

// Stat aggregates occupancy/footprint across the prefix subtrie and
// every allocated suffix subtrie.
func (d *Dictionary) Stat() trie.Stat {
	total := d.prefix.Stat()
	for _, st := range d.suffix {
		if st == nil {
			continue
		}
		s := st.Stat()
		total.NumNodes += s.NumNodes
		total.BcSize += s.BcSize
		total.BcCapacity += s.BcCapacity
		total.BcEmpties += s.BcEmpties
		total.TailSize += s.TailSize
		total.TailCapacity += s.TailCapacity
		total.TailEmpties += s.TailEmpties
		total.SizeInBytes += s.SizeInBytes
	}
	total.NumKeys = d.numKeys
	return total
}

// RatioSingles is the fraction of fixed nodes, across every subtrie,
// that are singleton chain links.
func (d *Dictionary) RatioSingles() float64 {
	var singles, nodes uint32
	singles += d.prefix.NumSingles()
	nodes += d.prefix.Stat().NumNodes
	for _, st := range d.suffix {
		if st == nil {
			continue
		}
		singles += st.NumSingles()
		nodes += st.Stat().NumNodes
	}
	if nodes == 0 {
		return 0
	}
	return float64(singles) / float64(nodes)
}

// body adapts Dictionary's multi-subtrie layout to persist.Body: the
// prefix subtrie, the suffix-subtrie slice length, and then each
// allocated suffix subtrie in order (nil slots are written as an empty
// marker so ids line up on read-back).
type body struct{ d *Dictionary }

func (b body) WriteTo(w io.Writer) (int64, error) {
	d := b.d
	if _, err := d.prefix.WriteTo(w); err != nil {
		return 0, fmt.Errorf("prefix subtrie: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(d.suffix))); err != nil {
		return 0, fmt.Errorf("suffix count: %w", err)
	}
	for i, st := range d.suffix {
		present := st != nil
		if err := binary.Write(w, binary.LittleEndian, present); err != nil {
			return 0, fmt.Errorf("suffix %d presence: %w", i, err)
		}
		if !present {
			continue
		}
		if _, err := st.WriteTo(w); err != nil {
			return 0, fmt.Errorf("suffix %d: %w", i, err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, d.head); err != nil {
		return 0, fmt.Errorf("head: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, d.numKeys); err != nil {
		return 0, fmt.Errorf("numKeys: %w", err)
	}
	return 0, nil
}

func (b body) ReadFrom(r io.Reader) (int64, error) {
	d := b.d
	d.prefix = trie.New(d.trieOpts...)
	if _, err := d.prefix.ReadFrom(r); err != nil {
		return 0, fmt.Errorf("prefix subtrie: %w", err)
	}
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, fmt.Errorf("suffix count: %w", err)
	}
	d.suffix = make([]*trie.Trie, n)
	for i := uint32(0); i < n; i++ {
		var present bool
		if err := binary.Read(r, binary.LittleEndian, &present); err != nil {
			return 0, fmt.Errorf("suffix %d presence: %w", i, err)
		}
		if !present {
			continue
		}
		st := trie.New(d.suffixTrieOpts()...)
		if _, err := st.ReadFrom(r); err != nil {
			return 0, fmt.Errorf("suffix %d: %w", i, err)
		}
		d.suffix[i] = st
	}
	if err := binary.Read(r, binary.LittleEndian, &d.head); err != nil {
		return 0, fmt.Errorf("head: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &d.numKeys); err != nil {
		return 0, fmt.Errorf("numKeys: %w", err)
	}
	return 0, nil
}

// WriteTo serializes the whole dictionary — prefix subtrie, suffix
// subtrie count, and every allocated suffix subtrie in order — behind a
// single checksummed envelope.
func (d *Dictionary) WriteTo(w io.Writer) (int64, error) {
	if err := persist.Write(w, body{d}); err != nil {
		return 0, fmt.Errorf("mlt: write: %w", err)
	}
	return 0, nil
}

// ReadFrom deserializes a dictionary previously written by WriteTo,
// discarding any existing contents.
func (d *Dictionary) ReadFrom(r io.Reader) (int64, error) {
	trieOpts, log := d.trieOpts, d.log
	*d = Dictionary{trieOpts: trieOpts, log: log}
	if err := persist.Read(r, body{d}); err != nil {
		return 0, fmt.Errorf("mlt: read: %w", err)
	}
	return 0, nil
}
