package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBRoundTrip(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	key := []byte("record")
	_, err := db.Get(key)
	require.ErrorIs(t, err, ErrKeyNotFound)

	has, err := db.Has(key)
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, db.Put(key, []byte("v1")))
	got, err := db.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)

	require.NoError(t, db.Put(key, []byte("v2")))
	got, err = db.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)

	require.NoError(t, db.Delete(key))
	_, err = db.Get(key)
	require.ErrorIs(t, err, ErrKeyNotFound)
	// Deleting an absent key is a no-op.
	require.NoError(t, db.Delete(key))
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	value := []byte("original")
	require.NoError(t, db.Put([]byte("k"), value))
	value[0] = 'X'

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), got)

	// Mutating the returned slice must not poison the stored copy.
	got[0] = 'Y'
	again, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), again)
}

func TestMemDBBatchAtomicity(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	require.NoError(t, db.Put([]byte("stale"), []byte("old")))

	batch := db.NewBatch()
	require.NoError(t, batch.Put([]byte("a"), []byte("1")))
	require.NoError(t, batch.Put([]byte("b"), []byte("2")))
	require.NoError(t, batch.Delete([]byte("stale")))

	// Nothing lands before Write.
	_, err := db.Get([]byte("a"))
	require.ErrorIs(t, err, ErrKeyNotFound)
	got, err := db.Get([]byte("stale"))
	require.NoError(t, err)
	require.Equal(t, []byte("old"), got)

	require.NoError(t, batch.Write())
	got, err = db.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), got)
	got, err = db.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), got)
	_, err = db.Get([]byte("stale"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestLevelDBRoundTrip(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	key := []byte("record")
	_, err = db.Get(key)
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, db.Put(key, []byte("v1")))
	got, err := db.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)

	has, err := db.Has(key)
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, db.Delete(key))
	has, err = db.Has(key)
	require.NoError(t, err)
	require.False(t, has)
}

func TestLevelDBBatchWrite(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("stale"), []byte("old")))

	batch := db.NewBatch()
	require.NoError(t, batch.Put([]byte("a"), []byte("1")))
	require.NoError(t, batch.Delete([]byte("stale")))
	require.NoError(t, batch.Write())

	got, err := db.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), got)
	has, err := db.Has([]byte("stale"))
	require.NoError(t, err)
	require.False(t, has)
}
