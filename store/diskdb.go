package store

import (
	"time"

	mpt "github.com/sfdc-hhildebrand/merkle-prefix-trie"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

// diskDB is the DB implementation on top of a bbolt file.
type diskDB struct {
	db     *bolt.DB
	bucket []byte
}

// NewDiskDB opens, or creates, the bbolt database at path and makes sure the
// bucket exists.
func NewDiskDB(path string, bucket []byte) (DB, error) {
	if len(bucket) == 0 {
		return nil, xerrors.New("bucket name is empty")
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, mpt.WrapError(xerrors.Errorf("opening %s: %w", path, err))
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, mpt.WrapError(xerrors.Errorf("creating bucket %s: %w", bucket, err))
	}
	return &diskDB{
		db:     db,
		bucket: append([]byte{}, bucket...),
	}, nil
}

func (r *diskDB) Update(f func(Bucket) error) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return f(&diskBucket{tx.Bucket(r.bucket)})
	})
}

func (r *diskDB) View(f func(Bucket) error) error {
	return r.db.View(func(tx *bolt.Tx) error {
		return f(&diskBucket{tx.Bucket(r.bucket)})
	})
}

func (r *diskDB) Close() error {
	return r.db.Close()
}

type diskBucket struct {
	b *bolt.Bucket
}

func (r *diskBucket) Delete(k []byte) error {
	return r.b.Delete(k)
}

func (r *diskBucket) Put(k, v []byte) error {
	return r.b.Put(k, v)
}

func (r *diskBucket) Get(k []byte) []byte {
	return r.b.Get(k)
}

func (r *diskBucket) ForEach(f func(k, v []byte) error) error {
	return r.b.ForEach(f)
}
