package trie

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertSearchBasic(t *testing.T) {
	tr := New()
	keys := []string{"cat", "car", "care", "cart", "dog"}
	for i, k := range keys {
		ok := tr.Insert([]byte(k), uint32(i+1))
		require.True(t, ok, "insert %q", k)
	}
	for i, k := range keys {
		v, ok := tr.Search([]byte(k))
		require.True(t, ok, "search %q", k)
		require.Equal(t, uint32(i+1), v)
	}
	_, ok := tr.Search([]byte("ca"))
	require.False(t, ok)
	_, ok = tr.Search([]byte("caterpillar"))
	require.False(t, ok)
}

func TestInsertDuplicateRejected(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert([]byte("hello"), 1))
	require.False(t, tr.Insert([]byte("hello"), 2))
	v, ok := tr.Search([]byte("hello"))
	require.True(t, ok)
	require.Equal(t, uint32(1), v)
}

func TestInsertSharedPrefixDivergence(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert([]byte("a"), 10))
	require.True(t, tr.Insert([]byte("ab"), 20))
	require.True(t, tr.Insert([]byte("abc"), 30))

	for k, want := range map[string]uint32{"a": 10, "ab": 20, "abc": 30} {
		v, ok := tr.Search([]byte(k))
		require.True(t, ok, k)
		require.Equal(t, want, v, k)
	}
}

func TestDeleteCollapsesChain(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert([]byte("a"), 1))
	require.True(t, tr.Insert([]byte("ab"), 2))

	require.True(t, tr.Delete([]byte("ab")))
	v, ok := tr.Search([]byte("a"))
	require.True(t, ok)
	require.Equal(t, uint32(1), v)
	_, ok = tr.Search([]byte("ab"))
	require.False(t, ok)
}

func TestDeleteAbsentKey(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert([]byte("a"), 1))
	require.False(t, tr.Delete([]byte("nope")))
}

func TestEnumerateOrdering(t *testing.T) {
	tr := New()
	want := map[string]uint32{"bat": 1, "bath": 2, "bad": 3, "ant": 4}
	for k, v := range want {
		require.True(t, tr.Insert([]byte(k), v))
	}
	got := map[string]uint32{}
	var order []string
	tr.Enumerate(func(kv KV) bool {
		got[string(kv.Key)] = kv.Value
		order = append(order, string(kv.Key))
		return true
	})
	require.Equal(t, want, got)
	// Label order: the terminal marker comes before any other label, so
	// "bat" precedes "bath".
	require.Equal(t, []string{"ant", "bad", "bat", "bath"}, order)
}

func TestRandomRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tr := New()
	model := map[string]uint32{}

	const n = 4000
	alphabet := "abcdefghij"
	for i := 0; i < n; i++ {
		key := randomKey(rng, alphabet, 1+rng.Intn(8))
		value := uint32(rng.Intn(1 << 20))
		_, existed := model[key]
		ok := tr.Insert([]byte(key), value)
		require.Equal(t, !existed, ok, "insert %q", key)
		if !existed {
			model[key] = value
		}
	}

	for k, v := range model {
		got, ok := tr.Search([]byte(k))
		require.True(t, ok, k)
		require.Equal(t, v, got, k)
	}

	// Delete half the keys and confirm the rest are still reachable.
	i := 0
	for k := range model {
		if i%2 == 0 {
			require.True(t, tr.Delete([]byte(k)))
			delete(model, k)
		}
		i++
	}
	for k, v := range model {
		got, ok := tr.Search([]byte(k))
		require.True(t, ok, k)
		require.Equal(t, v, got, k)
	}
	require.Equal(t, uint32(len(model)), tr.NumKeys())
}

func randomKey(rng *rand.Rand, alphabet string, n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(buf)
}

func TestPackPreservesContents(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tr := New()
	model := map[string]uint32{}
	for i := 0; i < 500; i++ {
		key := randomKey(rng, "abcd", 1+rng.Intn(5))
		value := uint32(i)
		if tr.Insert([]byte(key), value) {
			model[key] = value
		}
	}
	// delete a chunk to create holes for Pack to reclaim.
	i := 0
	for k := range model {
		if i%3 == 0 {
			tr.Delete([]byte(k))
			delete(model, k)
		}
		i++
	}
	before := tr.Stat()
	tr.Pack()
	after := tr.Stat()
	require.LessOrEqual(t, after.BcSize, before.BcSize)
	require.Less(t, after.BcSize, before.BcSize, "pack should have reclaimed at least one block of holes")

	for k, v := range model {
		got, ok := tr.Search([]byte(k))
		require.True(t, ok, k)
		require.Equal(t, v, got, k)
	}
}

func TestRebuildPreservesContents(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	tr := New(WithBlockLinkedFreelist())
	model := map[string]uint32{}
	for i := 0; i < 500; i++ {
		key := randomKey(rng, "xyz", 1+rng.Intn(6))
		value := uint32(i)
		if tr.Insert([]byte(key), value) {
			model[key] = value
		}
	}
	tr.Rebuild()
	for k, v := range model {
		got, ok := tr.Search([]byte(k))
		require.True(t, ok, k)
		require.Equal(t, v, got, k)
	}
	require.Equal(t, uint32(len(model)), tr.NumKeys())
}

func TestWriteReadRoundTrip(t *testing.T) {
	tr := New()
	keys := []string{"alpha", "alphabet", "beta", "gamma", "g"}
	for i, k := range keys {
		require.True(t, tr.Insert([]byte(k), uint32(i+1)))
	}

	var buf bytes.Buffer
	_, err := tr.WriteTo(&buf)
	require.NoError(t, err)

	got := New()
	_, err = got.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	for i, k := range keys {
		v, ok := got.Search([]byte(k))
		require.True(t, ok, k)
		require.Equal(t, uint32(i+1), v)
	}
	require.Equal(t, tr.NumKeys(), got.NumKeys())
}

func TestNumSinglesCountsChainLinks(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert([]byte("a"), 1))
	require.True(t, tr.Insert([]byte("ab"), 2))
	require.True(t, tr.Insert([]byte("abc"), 3))
	// root has exactly one child ('a'); the "a" and "ab" nodes each have
	// two (the terminal marker and the next byte).
	require.True(t, tr.NumSingles() > 0)
}

func TestInsertRejectsTopBitValue(t *testing.T) {
	tr := New()
	require.Panics(t, func() {
		tr.Insert([]byte("x"), 1<<31)
	})
}

func TestDeleteCollapsesMultiLevelChain(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert([]byte("quick"), 1))
	require.True(t, tr.Insert([]byte("quickest"), 2))

	// "quick" and "quickest" diverge only after the shared 4-byte run
	// "uick", so the insert above leaves a singleton chain of internal
	// nodes for each of u/i/c/k above the branch point, plus root itself.
	before := tr.NumSingles()
	require.Greater(t, before, uint32(1))

	require.True(t, tr.Delete([]byte("quickest")))

	// With "quickest" gone, the branch point collapses, and every
	// ancestor above it that was itself a singleton link folds away too,
	// leaving only root (the sole remaining key's single edge) as a
	// chain link.
	require.Equal(t, uint32(1), tr.NumSingles())

	v, ok := tr.Search([]byte("quick"))
	require.True(t, ok)
	require.Equal(t, uint32(1), v)
	_, ok = tr.Search([]byte("quickest"))
	require.False(t, ok)
	require.Equal(t, uint32(1), tr.NumKeys())
}

func TestTerminalLeafStoresValueDirectly(t *testing.T) {
	tr := New()
	require.True(t, tr.Insert([]byte("a"), 10))
	require.True(t, tr.Insert([]byte("ab"), 20))

	aNode, ok := tr.child(0, 'a')
	require.True(t, ok)
	term, ok := tr.child(aNode, 0)
	require.True(t, ok)
	require.True(t, tr.cells[term].IsLeaf())
	require.Equal(t, uint32(10), tr.cells[term].Value())

	v, ok := tr.Search([]byte("a"))
	require.True(t, ok)
	require.Equal(t, uint32(10), v)
	v, ok = tr.Search([]byte("ab"))
	require.True(t, ok)
	require.Equal(t, uint32(20), v)

	got := map[string]uint32{}
	tr.Enumerate(func(kv KV) bool {
		got[string(kv.Key)] = kv.Value
		return true
	})
	require.Equal(t, map[string]uint32{"a": 10, "ab": 20}, got)

	tr.Pack()
	v, ok = tr.Search([]byte("a"))
	require.True(t, ok)
	require.Equal(t, uint32(10), v)
	v, ok = tr.Search([]byte("ab"))
	require.True(t, ok)
	require.Equal(t, uint32(20), v)

	require.True(t, tr.Delete([]byte("ab")))
	v, ok = tr.Search([]byte("a"))
	require.True(t, ok)
	require.Equal(t, uint32(10), v)
}

func TestShrinkPreservesContents(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	tr := New(WithBlockLinkedFreelist())
	model := map[string]uint32{}
	for i := 0; i < 300; i++ {
		key := randomKey(rng, "abcdef", 1+rng.Intn(6))
		value := uint32(i)
		if tr.Insert([]byte(key), value) {
			model[key] = value
		}
	}
	before := tr.Stat()
	tr.Shrink()
	after := tr.Stat()
	require.LessOrEqual(t, after.BcCapacity, before.BcCapacity)
	require.LessOrEqual(t, after.TailCapacity, before.TailCapacity)

	for k, v := range model {
		got, ok := tr.Search([]byte(k))
		require.True(t, ok, k)
		require.Equal(t, v, got, k)
	}
	require.Equal(t, uint32(len(model)), tr.NumKeys())
}
