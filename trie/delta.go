package trie

import (
	"bytes"
	"strings"

	"go.dedis.ch/kyber/v3"
	"golang.org/x/xerrors"
)

// Delta is a pruned copy of a trie. It keeps the nodes along the paths that
// were asked for and replaces the rest by stubs that only carry a hash, so it
// can be checked against the commitment of the trie it was extracted from.
//
// A delta never shares nodes with the trie it comes from. An interior node of
// a delta may have a nil child: the child did not change since the baseline
// the delta was extracted against and the receiver is expected to have it.
type Delta struct {
	h         hasher
	root      *Node
	noHashKey bool
}

// Proof returns a delta with the paths to every key in keys and stubs
// everywhere else. The paths of the keys share their common ancestors. A key
// that is not in the trie has its path end in an empty leaf or in the leaf of
// another key, which proves its absence.
func (t *Trie) Proof(keys ...[]byte) *Delta {
	operations.WithLabelValues("proof").Inc()
	root := t.RootNode()
	keyHashes := t.hashKeys(keys)
	left, right := partition(keyHashes, 0)
	return t.newDelta(newPartialInterior(
		prove(root.left, left, 1),
		prove(root.right, right, 1),
		root.hash))
}

func prove(n *Node, keyHashes [][]byte, depth int) *Node {
	if len(keyHashes) == 0 {
		return newStub(n.hash)
	}
	switch n.kind {
	case KindEmpty, KindLeaf:
		return n.copyLeaf()
	case KindInterior:
		left, right := partition(keyHashes, depth)
		return newPartialInterior(
			prove(n.left, left, depth+1),
			prove(n.right, right, depth+1),
			n.hash)
	}
	panic(xerrors.Errorf("%w: proof below %s", ErrStubTraversal, n.kind))
}

// ChangesSince returns a delta holding every subtree that changed since
// baseline, with stubs for the subtrees that did not. A subtree is unchanged
// if the baseline holds the same keys and values at the same position, which
// is always the case for subtrees shared between the two versions.
func (t *Trie) ChangesSince(baseline *Trie) *Delta {
	operations.WithLabelValues("proof").Inc()
	root, base := t.RootNode(), baseline.RootNode()
	return t.newDelta(newPartialInterior(
		changes(root.left, base.left),
		changes(root.right, base.right),
		root.hash))
}

func changes(n, base *Node) *Node {
	if unchanged(n, base) {
		return newStub(n.hash)
	}
	switch n.kind {
	case KindEmpty, KindLeaf:
		return n.copyLeaf()
	case KindInterior:
		bl, br := children(base)
		return newPartialInterior(changes(n.left, bl), changes(n.right, br), n.hash)
	}
	panic(xerrors.Errorf("%w: changes below %s", ErrStubTraversal, n.kind))
}

// UpdatesSince returns the delta a holder of baseline needs to learn the
// values of keys in the current trie. Subtrees that did not change since
// baseline are omitted, changed subtrees off the paths to keys are stubs and
// the paths to keys are complete.
func (t *Trie) UpdatesSince(baseline *Trie, keys ...[]byte) *Delta {
	operations.WithLabelValues("proof").Inc()
	root, base := t.RootNode(), baseline.RootNode()
	keyHashes := t.hashKeys(keys)
	left, right := partition(keyHashes, 0)
	return t.newDelta(newPartialInterior(
		updates(root.left, base.left, left, 1),
		updates(root.right, base.right, right, 1),
		root.hash))
}

func updates(n, base *Node, keyHashes [][]byte, depth int) *Node {
	if unchanged(n, base) {
		return nil
	}
	if len(keyHashes) == 0 {
		return newStub(n.hash)
	}
	switch n.kind {
	case KindEmpty, KindLeaf:
		return n.copyLeaf()
	case KindInterior:
		bl, br := children(base)
		left, right := partition(keyHashes, depth)
		return newPartialInterior(
			updates(n.left, bl, left, depth+1),
			updates(n.right, br, right, depth+1),
			n.hash)
	}
	panic(xerrors.Errorf("%w: updates below %s", ErrStubTraversal, n.kind))
}

// Materialize returns a delta holding a copy of the whole trie, without any
// stub.
func (t *Trie) Materialize() *Delta {
	return t.newDelta(materialize(t.RootNode()))
}

func materialize(n *Node) *Node {
	if n.kind == KindInterior {
		return newPartialInterior(materialize(n.left), materialize(n.right), n.hash)
	}
	return n.copyLeaf()
}

// unchanged tells if n holds the same content as base. The hash of a leaf
// only covers its value, so leaves must also have the same key hash and
// interior nodes are compared child by child.
func unchanged(n, base *Node) bool {
	if n == base {
		return true
	}
	if n == nil || base == nil || n.kind != base.kind || !bytes.Equal(n.hash, base.hash) {
		return false
	}
	switch n.kind {
	case KindEmpty:
		return true
	case KindLeaf:
		return bytes.Equal(n.keyHash, base.keyHash)
	case KindInterior:
		return unchanged(n.left, base.left) && unchanged(n.right, base.right)
	}
	return false
}

func children(n *Node) (*Node, *Node) {
	if n == nil || n.kind != KindInterior {
		return nil, nil
	}
	return n.left, n.right
}

func (t *Trie) newDelta(root *Node) *Delta {
	return &Delta{
		h:         t.h,
		root:      root,
		noHashKey: t.noHashKey,
	}
}

// RootNode returns the root of the delta, which is always an interior node.
func (d *Delta) RootNode() *Node {
	return d.root
}

// ComputeRoot recomputes the root hash from the leaves, empty leaves and stubs
// of the delta, ignoring the hashes stored in interior nodes. It fails with
// ErrMissingChild if a child was omitted.
func (d *Delta) ComputeRoot() ([]byte, error) {
	return d.h.computeHash(d.root)
}

// Verify checks that the delta belongs to the trie with the given commitment.
func (d *Delta) Verify(commitment []byte) error {
	root, err := d.ComputeRoot()
	if err != nil {
		return err
	}
	if !bytes.Equal(root, commitment) {
		return xerrors.Errorf("%w: got %x, expected %x", ErrRootMismatch, root, commitment)
	}
	return nil
}

// Get looks up key in the delta. It returns ErrStubReached if the path to the
// key goes into a stub, which means the delta proves nothing about the key.
func (d *Delta) Get(key []byte) ([]byte, bool, error) {
	return get(d.root, d.hashKey(key))
}

// Keys returns the keys of all the leaves carrying a key in the delta.
func (d *Delta) Keys() [][]byte {
	var keys [][]byte
	forEachLeaf(d.root, func(n *Node) error {
		if n.key != nil {
			keys = append(keys, clone(n.key))
		}
		return nil
	})
	return keys
}

func (d *Delta) String() string {
	var sb strings.Builder
	writeTree(&sb, "+", d.root)
	return sb.String()
}

func (d *Delta) hashKey(key []byte) []byte {
	if d.noHashKey {
		return clone(key)
	}
	return d.h.digest(key)
}

// ToTrie rebuilds a trie from a delta without stubs or omitted children,
// such as the one returned by Materialize. The commitment of the new trie is
// checked against the delta.
func (d *Delta) ToTrie() (*Trie, error) {
	t := NewTrie(d.h.suite)
	t.noHashKey = d.noHashKey
	err := forEachNode(d.root, func(n *Node) error {
		switch n.kind {
		case KindStub:
			return xerrors.Errorf("%w: delta is not complete", ErrStubReached)
		case KindLeaf:
			if n.key == nil {
				return xerrors.Errorf("%w: leaf without key", ErrInvalidNode)
			}
			t.Set(n.key, n.value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := d.Verify(t.Commitment()); err != nil {
		return nil, xerrors.Errorf("rebuilt trie: %w", err)
	}
	return t, nil
}

func forEachNode(n *Node, cb func(*Node) error) error {
	if n == nil {
		return ErrMissingChild
	}
	if err := cb(n); err != nil {
		return err
	}
	if n.kind == KindInterior {
		if err := forEachNode(n.left, cb); err != nil {
			return err
		}
		return forEachNode(n.right, cb)
	}
	return nil
}

func get(root *Node, keyHash []byte) ([]byte, bool, error) {
	n := lookup(root, keyHash)
	if n == nil {
		return nil, false, ErrMissingChild
	}
	switch n.kind {
	case KindStub:
		return nil, false, ErrStubReached
	case KindLeaf:
		if bytes.Equal(n.keyHash, keyHash) {
			return clone(n.value), true, nil
		}
	}
	return nil, false, nil
}

// computeHash recomputes the hash of n from its leaves.
func (h hasher) computeHash(n *Node) ([]byte, error) {
	if n == nil {
		return nil, ErrMissingChild
	}
	switch n.kind {
	case KindStub:
		return n.hash, nil
	case KindEmpty:
		return h.digest(emptyMarker), nil
	case KindLeaf:
		return h.digest(n.value), nil
	case KindInterior:
		left, err := h.computeHash(n.left)
		if err != nil {
			return nil, err
		}
		right, err := h.computeHash(n.right)
		if err != nil {
			return nil, err
		}
		return h.digest(left, right), nil
	}
	return nil, xerrors.Errorf("%w: kind %d", ErrInvalidNode, n.kind)
}

// newDeltaFromRoot is used by the decoder and the replica.
func newDeltaFromRoot(suite kyber.HashFactory, root *Node) *Delta {
	return &Delta{
		h:    hasher{suite},
		root: root,
	}
}
