package trie

import (
	"bytes"
	"sync"

	mpt "github.com/sfdc-hhildebrand/merkle-prefix-trie"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// Replica is the view of a trie held by a light client. It only trusts a
// commitment and keeps the part of the trie it received through deltas.
// Deltas extracted with UpdatesSince may omit subtrees; the replica fills them
// in with what it already holds at the same position.
type Replica struct {
	h          hasher
	commitment []byte
	root       *Node

	mu sync.RWMutex
}

// NewReplica creates a replica that trusts commitment but knows nothing else
// about the trie yet. If suite is nil, mpt.Suite is used.
func NewReplica(suite kyber.HashFactory, commitment []byte) *Replica {
	if suite == nil {
		suite = mpt.Suite
	}
	return &Replica{
		h:          hasher{suite},
		commitment: clone(commitment),
		root:       newStub(commitment),
	}
}

// Commitment returns the commitment the replica currently trusts.
func (r *Replica) Commitment() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clone(r.commitment)
}

// Sync merges d into the replica and moves it to commitment. The merged tree
// must hash to commitment, otherwise the replica is left untouched and
// ErrRootMismatch is returned.
func (r *Replica) Sync(d *Delta, commitment []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged, err := r.merge(d.root, r.root)
	if err != nil {
		return xerrors.Errorf("merging delta: %w", err)
	}
	if !bytes.Equal(merged.hash, commitment) {
		return xerrors.Errorf("%w: got %x, expected %x", ErrRootMismatch, merged.hash, commitment)
	}
	log.Lvlf3("replica moved from %x to %x", r.commitment, commitment)
	r.root = merged
	r.commitment = clone(commitment)
	return nil
}

// merge returns the node n with its omitted children taken from cached, and
// every hash recomputed from the leaves.
func (r *Replica) merge(n, cached *Node) (*Node, error) {
	if n == nil {
		if cached == nil {
			return nil, ErrMissingChild
		}
		return cached, nil
	}
	switch n.kind {
	case KindStub:
		return newStub(n.hash), nil
	case KindEmpty:
		return r.h.newEmpty(), nil
	case KindLeaf:
		leaf := n.copyLeaf()
		leaf.hash = r.h.digest(leaf.value)
		return leaf, nil
	case KindInterior:
		cl, cr := children(cached)
		left, err := r.merge(n.left, cl)
		if err != nil {
			return nil, err
		}
		right, err := r.merge(n.right, cr)
		if err != nil {
			return nil, err
		}
		return r.h.newInterior(left, right), nil
	}
	return nil, xerrors.Errorf("%w: kind %d", ErrInvalidNode, n.kind)
}

// Get looks up key in what the replica holds. It returns ErrStubReached if the
// replica never received the path to key.
func (r *Replica) Get(key []byte) ([]byte, bool, error) {
	r.mu.RLock()
	root := r.root
	r.mu.RUnlock()
	return get(root, r.h.digest(key))
}

// Delta returns what the replica holds as a delta, which verifies against its
// commitment. Before the first Sync its root is a stub.
func (r *Replica) Delta() *Delta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return newDeltaFromRoot(r.h.suite, r.root)
}
