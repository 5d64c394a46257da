// Package tailpool implements the double-array trie's suffix pool: an
// append-only byte vector that terminates singleton chains. Each live
// entry is a null-terminated suffix followed by its 4-byte
// little-endian value.
package tailpool

import "encoding/binary"

// Pool is the append-only tail buffer plus its dead-byte accounting.
// Pack reconstructs a fresh, compacted Pool from the live entries of an
// old one; nothing else ever shrinks it.
type Pool struct {
	buf  []byte
	dead uint32
}

// Len returns the current size of the buffer in bytes.
func (p *Pool) Len() uint32 { return uint32(len(p.buf)) }

// Dead returns the number of bytes that belong to suffixes no longer
// referenced by any live leaf.
func (p *Pool) Dead() uint32 { return p.dead }

// MarkDead records n additional dead bytes, for callers that detach a
// suffix without rewriting the pool in place.
func (p *Pool) MarkDead(n uint32) { p.dead += n }

// PushLabel appends one raw suffix byte (which may be the terminating
// 0x00) and returns nothing; callers track the starting offset
// themselves via Len before the first push.
func (p *Pool) PushLabel(b byte) { p.buf = append(p.buf, b) }

// PushValue appends a 4-byte little-endian value, used to terminate a
// suffix entry.
func (p *Pool) PushValue(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	p.buf = append(p.buf, tmp[:]...)
}

// ByteAt returns the raw byte at offset off.
func (p *Pool) ByteAt(off uint32) byte { return p.buf[off] }

// ValueAt decodes the 4-byte little-endian value starting at offset off.
func (p *Pool) ValueAt(off uint32) uint32 {
	return binary.LittleEndian.Uint32(p.buf[off : off+4])
}

// StrLen returns the length of the null-terminated suffix starting at
// off, not including the terminator.
func (p *Pool) StrLen(off uint32) uint32 {
	n := uint32(0)
	for p.buf[off+n] != 0 {
		n++
	}
	return n
}

// Match compares key (a remaining-key byte slice, without an explicit
// terminator — a zero byte is synthesized one past the end) against the
// null-terminated suffix at off. It returns the number of bytes
// consumed from key (including the terminator) and whether they
// matched in full.
func (p *Pool) Match(key []byte, off uint32) (n uint32, ok bool) {
	for {
		var kb byte
		if n < uint32(len(key)) {
			kb = key[n]
		}
		tb := p.buf[off+n]
		if kb != tb {
			return 0, false
		}
		n++
		if tb == 0 {
			return n, true
		}
	}
}

// Bytes returns the live+dead backing buffer, for reading during Pack
// or for serialization. Callers must not retain it across mutation.
func (p *Pool) Bytes() []byte { return p.buf }

// SetBytes installs buf as the pool's backing buffer (used when
// deserializing) along with the accompanying dead-byte count.
func (p *Pool) SetBytes(buf []byte, dead uint32) {
	p.buf = buf
	p.dead = dead
}

// Reset swaps in a fresh, empty buffer (preallocated to capacity hint)
// and clears the dead-byte count, returning the old buffer so the
// caller can re-insert its live entries.
func (p *Pool) Reset(capacityHint uint32) (old []byte) {
	old = p.buf
	p.buf = make([]byte, 0, capacityHint)
	p.dead = 0
	return old
}

// Shrink releases any buffer capacity beyond the pool's current length,
// the tail pool's share of the reference's shrink_to_fit.
func (p *Pool) Shrink() {
	if cap(p.buf) == len(p.buf) {
		return
	}
	shrunk := make([]byte, len(p.buf))
	copy(shrunk, p.buf)
	p.buf = shrunk
}
