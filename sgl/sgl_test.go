package sgl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDictionaryBasic(t *testing.T) {
	d := New()
	ok, err := d.Insert([]byte("hello"), 7)
	require.NoError(t, err)
	require.True(t, ok)

	v, ok := d.Search([]byte("hello"))
	require.True(t, ok)
	require.Equal(t, uint32(7), v)

	require.True(t, d.Delete([]byte("hello")))
	_, ok = d.Search([]byte("hello"))
	require.False(t, ok)
}

func TestDictionaryRejectsOutOfRangeValue(t *testing.T) {
	d := New()
	_, err := d.Insert([]byte("x"), 1<<31)
	require.ErrorIs(t, err, ErrValueOutOfRange)
}

func TestDictionaryPackRebuildRoundTrip(t *testing.T) {
	d := New()
	entries := map[string]uint32{"foo": 1, "foobar": 2, "bar": 3, "baz": 4}
	for k, v := range entries {
		_, err := d.Insert([]byte(k), v)
		require.NoError(t, err)
	}
	require.True(t, d.Delete([]byte("foobar")))
	delete(entries, "foobar")

	d.Pack()
	d.Rebuild()

	for k, v := range entries {
		got, ok := d.Search([]byte(k))
		require.True(t, ok, k)
		require.Equal(t, v, got, k)
	}
}

func TestDictionaryShrinkPreservesContents(t *testing.T) {
	d := New()
	entries := map[string]uint32{"foo": 1, "foobar": 2, "bar": 3, "baz": 4}
	for k, v := range entries {
		_, err := d.Insert([]byte(k), v)
		require.NoError(t, err)
	}
	require.True(t, d.Delete([]byte("foobar")))
	delete(entries, "foobar")

	d.Shrink()

	for k, v := range entries {
		got, ok := d.Search([]byte(k))
		require.True(t, ok, k)
		require.Equal(t, v, got, k)
	}
}

func TestDictionaryWriteReadEnvelope(t *testing.T) {
	d := New()
	_, err := d.Insert([]byte("one"), 1)
	require.NoError(t, err)
	_, err = d.Insert([]byte("two"), 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = d.WriteTo(&buf)
	require.NoError(t, err)

	got := New()
	_, err = got.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	for _, k := range []string{"one", "two"} {
		_, ok := got.Search([]byte(k))
		require.True(t, ok, k)
	}
}

func TestDictionaryReadRejectsCorruptStream(t *testing.T) {
	d := New()
	_, err := d.Insert([]byte("x"), 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = d.WriteTo(&buf)
	require.NoError(t, err)

	corrupt := buf.Bytes()
	corrupt[len(corrupt)-1] ^= 0xFF

	got := New()
	_, err = got.ReadFrom(bytes.NewReader(corrupt))
	require.Error(t, err)
}
