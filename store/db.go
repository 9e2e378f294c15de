package store

// DB is the key/value database the versions of a trie are saved to. All the
// keys live in a single bucket.
type DB interface {
	// Update runs f in a read-write transaction. The writes are discarded
	// if f returns an error.
	Update(f func(Bucket) error) error
	// View runs f in a read-only transaction. Writes fail.
	View(f func(Bucket) error) error
	Close() error
}

// Bucket is the set of keys a transaction works on. The values returned by
// Get and ForEach are only valid during the transaction.
type Bucket interface {
	Delete([]byte) error
	Put([]byte, []byte) error
	Get([]byte) []byte
	ForEach(func(k, v []byte) error) error
}
