package kv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainbow-me/wallet-core/lib/types/store"
)

func testStore(t *testing.T, ds store.KVStore) {
	t.Helper()

	require.NoError(t, ds.Put([]byte("wallet/a"), []byte("one")))
	require.NoError(t, ds.Put([]byte("wallet/b"), []byte("two")))
	require.NoError(t, ds.Put([]byte("rap/x"), []byte("three")))

	val, err := ds.Get([]byte("wallet/a"))
	require.NoError(t, err)
	require.Equal(t, []byte("one"), val)

	// missing keys come back nil without an error
	val, err = ds.Get([]byte("wallet/missing"))
	require.NoError(t, err)
	require.Nil(t, val)

	ok, err := ds.Has([]byte("wallet/b"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ds.Has([]byte("wallet/missing"))
	require.NoError(t, err)
	require.False(t, ok)

	seen := map[string]string{}
	n := ds.Iter([]byte("wallet/"), func(k, v []byte) error {
		seen[string(k)] = string(v)
		return nil
	})
	require.EqualValues(t, 2, n)
	require.Equal(t, map[string]string{"wallet/a": "one", "wallet/b": "two"}, seen)

	var keys []string
	n = ds.IterKeys([]byte("rap/"), func(k []byte) error {
		keys = append(keys, string(k))
		return nil
	})
	require.EqualValues(t, 1, n)
	require.Equal(t, []string{"rap/x"}, keys)

	require.NoError(t, ds.Delete([]byte("wallet/a")))
	ok, err = ds.Has([]byte("wallet/a"))
	require.NoError(t, err)
	require.False(t, ok)

	// delete is idempotent
	require.NoError(t, ds.Delete([]byte("wallet/a")))

	require.NoError(t, ds.Sync())
}

func TestBadgerStore(t *testing.T) {
	ds, err := NewBadgerStore(t.TempDir(), nil)
	require.NoError(t, err)
	defer ds.Close()

	testStore(t, ds)
}

func TestBadgerStoreClosed(t *testing.T) {
	ds, err := NewBadgerStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, ds.Close())

	require.ErrorIs(t, ds.Put([]byte("k"), []byte("v")), ErrClosed)
	_, err = ds.Get([]byte("k"))
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, ds.Close(), ErrClosed)
}

func TestMemStore(t *testing.T) {
	ds := NewMemStore()
	defer ds.Close()

	testStore(t, ds)
}

func TestMemStoreCopySemantics(t *testing.T) {
	ds := NewMemStore()

	val := []byte("original")
	require.NoError(t, ds.Put([]byte("k"), val))
	val[0] = 'X'

	got, err := ds.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), got)

	// mutating the returned slice must not affect the stored value
	got[0] = 'Y'
	again, err := ds.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), again)
}
