package store

import (
	"sort"
	"sync"

	"golang.org/x/xerrors"
)

var errReadOnly = xerrors.New("write in a read-only transaction")

// memDB is the DB implementation for an in-memory database.
type memDB struct {
	storage map[string][]byte
	sync.Mutex
}

// NewMemDB creates a new in-memory database.
func NewMemDB() DB {
	return &memDB{
		storage: make(map[string][]byte),
	}
}

func (r *memDB) Update(f func(Bucket) error) error {
	r.Lock()
	defer r.Unlock()
	if r.storage == nil {
		return xerrors.New("database is closed")
	}

	b := &memBucket{
		storage: r.storage,
		puts:    make(map[string][]byte),
		dels:    make(map[string]struct{}),
	}
	if err := f(b); err != nil {
		return err
	}
	for k := range b.dels {
		delete(r.storage, k)
	}
	for k, v := range b.puts {
		r.storage[k] = v
	}
	return nil
}

func (r *memDB) View(f func(Bucket) error) error {
	r.Lock()
	defer r.Unlock()
	if r.storage == nil {
		return xerrors.New("database is closed")
	}
	return f(&memBucket{storage: r.storage, readOnly: true})
}

// Close deletes the memory-only database, it cannot be recovered.
func (r *memDB) Close() error {
	r.Lock()
	defer r.Unlock()
	r.storage = nil
	return nil
}

// memBucket keeps the writes of a transaction apart from the storage until
// the transaction succeeds.
type memBucket struct {
	storage  map[string][]byte
	puts     map[string][]byte
	dels     map[string]struct{}
	readOnly bool
}

func (r *memBucket) Get(k []byte) []byte {
	if v, ok := r.puts[string(k)]; ok {
		return v
	}
	if _, ok := r.dels[string(k)]; ok {
		return nil
	}
	return r.storage[string(k)]
}

func (r *memBucket) Put(k, v []byte) error {
	if r.readOnly {
		return errReadOnly
	}
	delete(r.dels, string(k))
	r.puts[string(k)] = append([]byte{}, v...)
	return nil
}

func (r *memBucket) Delete(k []byte) error {
	if r.readOnly {
		return errReadOnly
	}
	delete(r.puts, string(k))
	r.dels[string(k)] = struct{}{}
	return nil
}

// ForEach visits the keys in byte order, like bbolt does.
func (r *memBucket) ForEach(f func(k, v []byte) error) error {
	keys := make([]string, 0, len(r.storage)+len(r.puts))
	for k := range r.storage {
		if _, ok := r.puts[k]; !ok {
			keys = append(keys, k)
		}
	}
	for k := range r.puts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := r.Get([]byte(k))
		if v == nil {
			continue
		}
		if err := f([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}
