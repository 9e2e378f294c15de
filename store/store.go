package store

import (
	"bytes"

	mpt "github.com/sfdc-hhildebrand/merkle-prefix-trie"
	"github.com/sfdc-hhildebrand/merkle-prefix-trie/trie"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

var (
	// ErrNotFound is returned when no version is saved under a commitment.
	ErrNotFound = xerrors.New("version not found")

	latestKey     = []byte("latest")
	versionPrefix = []byte("v/")
)

// Store saves versions of a trie, each under its commitment.
type Store struct {
	db    DB
	suite kyber.HashFactory
}

// NewStore returns a store writing to db. The suite must be the one of the
// tries that are saved; if it is nil, mpt.Suite is used.
func NewStore(db DB, suite kyber.HashFactory) *Store {
	if suite == nil {
		suite = mpt.Suite
	}
	return &Store{db: db, suite: suite}
}

// Save writes the current version of t and makes it the latest one. It returns
// the commitment the version is saved under.
func (s *Store) Save(t *trie.Trie) ([]byte, error) {
	snap := t.Snapshot()
	commitment := snap.Commitment()
	buf, err := snap.Materialize().Encode()
	if err != nil {
		return nil, mpt.ErrorOrNil(err, "save")
	}

	err = s.db.Update(func(b Bucket) error {
		if err := b.Put(versionKey(commitment), buf); err != nil {
			return err
		}
		return b.Put(latestKey, commitment)
	})
	if err != nil {
		return nil, mpt.ErrorOrNil(err, "save")
	}
	log.Lvlf2("saved version %x of %d bytes", commitment, len(buf))
	return commitment, nil
}

// Load rebuilds the version saved under commitment. The rebuilt trie must
// have the same commitment.
func (s *Store) Load(commitment []byte) (*trie.Trie, error) {
	var buf []byte
	err := s.db.View(func(b Bucket) error {
		v := b.Get(versionKey(commitment))
		if v == nil {
			return xerrors.Errorf("%w: %x", ErrNotFound, commitment)
		}
		buf = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return nil, mpt.ErrorOrNil(err, "load")
	}

	d, err := trie.DecodeDelta(s.suite, buf)
	if err != nil {
		return nil, mpt.ErrorOrNil(err, "load")
	}
	t, err := d.ToTrie()
	if err != nil {
		return nil, mpt.ErrorOrNil(err, "load")
	}
	if !bytes.Equal(t.Commitment(), commitment) {
		return nil, mpt.ErrorOrNil(xerrors.Errorf("%w: version saved under %x has %x",
			trie.ErrRootMismatch, commitment, t.Commitment()), "load")
	}
	return t, nil
}

// Latest returns the commitment of the version saved last, or nil if the
// store is empty.
func (s *Store) Latest() ([]byte, error) {
	var commitment []byte
	err := s.db.View(func(b Bucket) error {
		if v := b.Get(latestKey); v != nil {
			commitment = append([]byte{}, v...)
		}
		return nil
	})
	return commitment, mpt.ErrorOrNil(err, "latest")
}

// LoadLatest loads the version saved last. An empty trie is returned if the
// store is empty.
func (s *Store) LoadLatest() (*trie.Trie, error) {
	commitment, err := s.Latest()
	if err != nil {
		return nil, err
	}
	if commitment == nil {
		return trie.NewTrie(s.suite), nil
	}
	return s.Load(commitment)
}

// Commitments returns the commitments of all the saved versions in byte
// order.
func (s *Store) Commitments() ([][]byte, error) {
	var out [][]byte
	err := s.db.View(func(b Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			if bytes.HasPrefix(k, versionPrefix) {
				out = append(out, append([]byte{}, k[len(versionPrefix):]...))
			}
			return nil
		})
	})
	if err != nil {
		return nil, mpt.ErrorOrNil(err, "commitments")
	}
	return out, nil
}

// Delete removes the version saved under commitment. The latest version
// cannot be deleted.
func (s *Store) Delete(commitment []byte) error {
	err := s.db.Update(func(b Bucket) error {
		if bytes.Equal(b.Get(latestKey), commitment) {
			return xerrors.New("cannot delete the latest version")
		}
		if b.Get(versionKey(commitment)) == nil {
			return xerrors.Errorf("%w: %x", ErrNotFound, commitment)
		}
		return b.Delete(versionKey(commitment))
	})
	return mpt.ErrorOrNil(err, "delete")
}

func versionKey(commitment []byte) []byte {
	return append(append([]byte{}, versionPrefix...), commitment...)
}
