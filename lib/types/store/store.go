package store

type Store interface {
	Put(key, value []byte) error
	// Get returns nil for a missing key, not an error.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	Close() error
}

type KVStore interface {
	Store

	Iter(prefix []byte, fn func(k, v []byte) error) int64
	IterKeys(prefix []byte, fn func(k []byte) error) int64

	Sync() error
}
