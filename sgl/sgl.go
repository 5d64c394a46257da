// Package sgl implements the single-trie dictionary facade: one
// double-array trie mapping whole keys directly to values.
package sgl

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dendrondb/dat/internal/persist"
	"github.com/dendrondb/dat/internal/unsafestring"
	"github.com/dendrondb/dat/trie"
)

// ErrValueOutOfRange is returned by Insert when the supplied value
// doesn't fit in 31 bits (the top bit is reserved for the engine's
// internal leaf marker).
var ErrValueOutOfRange = errors.New("sgl: value must fit in 31 bits")

// Option configures a Dictionary at construction time.
type Option func(*Dictionary)

// WithLogger sets the logger used for Pack/Rebuild progress narration.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dictionary) { d.log = l }
}

// WithNodeLinks makes the engine reserve (and serialize) a NodeLink
// byte pair per cell; the engine does not fill them in or use them, so
// enumeration speed is unchanged.
func WithNodeLinks() Option {
	return func(d *Dictionary) { d.trieOpts = append(d.trieOpts, trie.WithNodeLinks()) }
}

// WithBlockLinkedFreelist selects the block-linked freelist variant.
func WithBlockLinkedFreelist() Option {
	return func(d *Dictionary) { d.trieOpts = append(d.trieOpts, trie.WithBlockLinkedFreelist()) }
}

// Dictionary is a single double-array trie dictionary: every key maps
// directly to a value in one engine instance.
type Dictionary struct {
	t        *trie.Trie
	log      *slog.Logger
	trieOpts []trie.Option
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
	d.t = trie.New(tOpts...)
	return d
}

// Search looks up key, returning its value and whether it was found.
func (d *Dictionary) Search(key []byte) (uint32, bool) { return d.t.Search(key) }

// SearchString is Search without the usual string-to-[]byte copy; the
// byte view of key is only read, and only for the duration of the call,
// which is all a lookup needs.
func (d *Dictionary) SearchString(key string) (uint32, bool) {
	return d.t.Search(unsafestring.ToBytes(key))
}

// Insert adds key with value, returning false if key is already present
// (left unchanged) and an error if value is out of range.
func (d *Dictionary) Insert(key []byte, value uint32) (bool, error) {
	if value&(1<<31) != 0 {
		return false, ErrValueOutOfRange
	}
	return d.t.Insert(key, value), nil
}

// Delete removes key, reporting whether it was present.
func (d *Dictionary) Delete(key []byte) bool { return d.t.Delete(key) }

// Enumerate walks every stored key/value pair in label order.
func (d *Dictionary) Enumerate(visit func(key []byte, value uint32) bool) {
	d.t.Enumerate(func(kv trie.KV) bool { return visit(kv.Key, kv.Value) })
}

// Pack compacts the engine's double array and tail pool in place.
func (d *Dictionary) Pack() {
	before := d.t.Stat()
	d.logDebug("pack: start", before)
	d.t.Pack()
	d.logDebug("pack: done", d.t.Stat())
}

// Rebuild reconstructs the engine from scratch into a densely packed
// array.
func (d *Dictionary) Rebuild() {
	before := d.t.Stat()
	d.logDebug("rebuild: start", before)
	d.t.Rebuild()
	d.logDebug("rebuild: done", d.t.Stat())
}

// Shrink releases excess backing-array and tail-pool capacity without
// otherwise changing the dictionary's contents.
func (d *Dictionary) Shrink() {
	d.t.Shrink()
}

func (d *Dictionary) logDebug(msg string, st trie.Stat) {
	if d.log == nil {
		return
	}
	d.log.Debug(msg,
		"num_keys", st.NumKeys,
		"bc_size", st.BcSize,
		"bc_emps", st.BcEmpties,
		"tail_size", st.TailSize,
		"tail_emps", st.TailEmpties,
		"size_in_bytes", st.SizeInBytes,
	)
}

// Stat returns the current occupancy/footprint snapshot.
func (d *Dictionary) Stat() trie.Stat { return d.t.Stat() }

// RatioSingles is the fraction of fixed nodes that are singleton chain
// links.
func (d *Dictionary) RatioSingles() float64 { return d.t.RatioSingles() }

// WriteTo serializes the dictionary behind a checksummed envelope.
func (d *Dictionary) WriteTo(w io.Writer) (int64, error) {
	if err := persist.Write(w, d.t); err != nil {
		return 0, fmt.Errorf("sgl: write: %w", err)
	}
	return 0, nil
}

// ReadFrom deserializes a dictionary previously written by WriteTo,
// discarding any existing contents.
func (d *Dictionary) ReadFrom(r io.Reader) (int64, error) {
	d.t = trie.New(d.trieOpts...)
	if err := persist.Read(r, d.t); err != nil {
		return 0, fmt.Errorf("sgl: read: %w", err)
	}
	return 0, nil
}
