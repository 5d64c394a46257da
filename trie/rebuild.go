package trie

import "github.com/dendrondb/dat/slot"

// Rebuild reconstructs the trie from scratch into a dense new array by
// enumerating every live key and re-inserting it in order, which is
// simpler than pack's in-place relocation and produces a minimally
// sized array at the cost of a full pass. It preserves NumKeys and
// every key/value pair; options (node links, freelist flavor, prefix
// mode) carry over unchanged.
func (t *Trie) Rebuild() {
	if t.prefix {
		t.rebuildPrefix()
		return
	}
	type pair struct {
		key   []byte
		value uint32
	}
	var pairs []pair
	t.Enumerate(func(kv KV) bool {
		pairs = append(pairs, pair{key: append([]byte{}, kv.Key...), value: kv.Value})
		return true
	})

	fresh := New(t.optsFromSelf()...)
	for _, p := range pairs {
		fresh.Insert(p.key, p.value)
	}
	*t = *fresh
}

func (t *Trie) rebuildPrefix() {
	type entry struct {
		prefix []byte
		value  uint32
	}
	var entries []entry
	t.EnumeratePrefixes(func(prefix []byte, value uint32) bool {
		entries = append(entries, entry{prefix: append([]byte{}, prefix...), value: value})
		return true
	})

	fresh := New(t.optsFromSelf()...)
	for _, e := range entries {
		if e.value == slot.Invalid {
			fresh.insertPrefixBoundary(e.prefix)
			continue
		}
		fresh.InsertPrefixLeaf(e.prefix, e.value)
	}
	*t = *fresh
}

func (t *Trie) optsFromSelf() []Option {
	var opts []Option
	if t.withLinks {
		opts = append(opts, WithNodeLinks())
	}
	if t.linked {
		opts = append(opts, WithBlockLinkedFreelist())
	}
	if t.prefix {
		opts = append(opts, WithPrefixSubtrie())
	}
	opts = append(opts, WithLogger(t.log))
	return opts
}
