package trie

import (
	"bytes"
	"strings"
	"sync"

	mpt "github.com/sfdc-hhildebrand/merkle-prefix-trie"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// Trie is a Merkle prefix trie. The position of a key is given by the bits of
// the hash of the key, a 0 bit going left and a 1 bit going right, so the shape
// of the trie only depends on the set of keys and not on the order of the
// operations that built it.
//
// Nodes are never modified. Set and Delete build a new root and share every
// untouched subtree with the previous one, so a Snapshot stays valid and
// unchanged whatever happens to the trie afterwards. A Trie can be used by one
// writer and any number of readers at the same time.
type Trie struct {
	h     hasher
	empty *Node
	root  *Node
	// We need to control the traversal during testing, so tests can use the
	// key itself as its hash. It must never be set outside of tests.
	noHashKey bool

	mu sync.RWMutex
}

// NewTrie creates an empty trie using the hash of suite as digest. If suite is
// nil, mpt.Suite is used. The root of an empty trie is an interior node with
// two empty leaves.
func NewTrie(suite kyber.HashFactory) *Trie {
	if suite == nil {
		suite = mpt.Suite
	}
	h := hasher{suite}
	empty := h.newEmpty()
	return &Trie{
		h:     h,
		empty: empty,
		root:  h.newInterior(empty, empty),
	}
}

// Set sets or overwrites the value of key. It returns true if the trie
// changed, which is the case when the key is new or its value is different.
func (t *Trie) Set(key, value []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setLocked(key, value)
}

func (t *Trie) setLocked(key, value []byte) bool {
	leaf := t.h.newLeaf(key, t.hashKey(key), value)
	log.Lvlf3("set %x with key hash %x", key, leaf.keyHash)
	operations.WithLabelValues("set").Inc()

	newRoot := t.insert(t.root, leaf, 0)
	changed := newRoot != t.root
	t.root = newRoot
	return changed
}

// insert returns n with leaf inserted below it. If nothing changes, n itself
// is returned.
func (t *Trie) insert(n, leaf *Node, depth int) *Node {
	switch n.kind {
	case KindEmpty:
		return leaf
	case KindLeaf:
		if bytes.Equal(n.keyHash, leaf.keyHash) {
			if bytes.Equal(n.hash, leaf.hash) {
				return n
			}
			return leaf
		}
		restructures.WithLabelValues("split").Inc()
		return t.split(n, leaf, depth)
	case KindInterior:
		if GetBit(leaf.keyHash, depth) {
			right := t.insert(n.right, leaf, depth+1)
			if right == n.right {
				return n
			}
			return t.h.newInterior(n.left, right)
		}
		left := t.insert(n.left, leaf, depth+1)
		if left == n.left {
			return n
		}
		return t.h.newInterior(left, n.right)
	}
	panic(xerrors.Errorf("%w: insert below %s", ErrStubTraversal, n.kind))
}

// split places two leaves that share the first depth bits of their key
// hashes. Every further bit they agree on adds an interior node with an empty
// sibling.
func (t *Trie) split(a, b *Node, depth int) *Node {
	if depth >= len(a.keyHash)*8 || depth >= len(b.keyHash)*8 {
		panic(xerrors.Errorf("%w: %x and %x at bit %d", ErrKeyHashCollision,
			a.keyHash, b.keyHash, depth))
	}
	bitA := GetBit(a.keyHash, depth)
	bitB := GetBit(b.keyHash, depth)
	log.Lvlf4("split at bit %d: a=%v b=%v", depth, bitA, bitB)

	if bitA == bitB {
		sub := t.split(a, b, depth+1)
		if bitA {
			return t.h.newInterior(t.empty, sub)
		}
		return t.h.newInterior(sub, t.empty)
	}
	if bitA {
		return t.h.newInterior(b, a)
	}
	return t.h.newInterior(a, b)
}

// Get returns the value stored for key. The boolean is false if the key is not
// in the trie.
func (t *Trie) Get(key []byte) ([]byte, bool) {
	operations.WithLabelValues("get").Inc()
	keyHash := t.hashKey(key)
	n := lookup(t.RootNode(), keyHash)
	if n.kind != KindLeaf || !bytes.Equal(n.keyHash, keyHash) {
		return nil, false
	}
	return clone(n.value), true
}

// lookup follows keyHash down from n until it reaches anything that is not an
// interior node. In a delta that may be nil or a stub.
func lookup(n *Node, keyHash []byte) *Node {
	for depth := 0; n != nil && n.kind == KindInterior; depth++ {
		if GetBit(keyHash, depth) {
			n = n.right
		} else {
			n = n.left
		}
	}
	return n
}

// Delete removes key from the trie. It returns true if the key was present.
func (t *Trie) Delete(key []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deleteLocked(key)
}

func (t *Trie) deleteLocked(key []byte) bool {
	keyHash := t.hashKey(key)
	log.Lvlf3("delete %x with key hash %x", key, keyHash)
	operations.WithLabelValues("delete").Inc()

	newRoot := t.del(t.root, keyHash, 0)
	changed := newRoot != t.root
	t.root = newRoot
	return changed
}

// del returns n with the leaf of keyHash removed. If the key is not below n,
// n itself is returned.
//
// An interior node other than the root always has at least two leaves below
// it. When a deletion leaves it with an empty child and a leaf, the leaf moves
// up in its place; this gives the shape the trie would have if the key had
// never been inserted.
func (t *Trie) del(n *Node, keyHash []byte, depth int) *Node {
	switch n.kind {
	case KindEmpty:
		return n
	case KindLeaf:
		if bytes.Equal(n.keyHash, keyHash) {
			return t.empty
		}
		return n
	case KindInterior:
		left, right := n.left, n.right
		if GetBit(keyHash, depth) {
			right = t.del(right, keyHash, depth+1)
		} else {
			left = t.del(left, keyHash, depth+1)
		}
		if left == n.left && right == n.right {
			return n
		}
		if depth > 0 {
			if left.kind == KindEmpty && right.IsLeaf() {
				log.Lvlf4("collapse at bit %d: right moves up", depth)
				restructures.WithLabelValues("collapse").Inc()
				return right
			}
			if right.kind == KindEmpty && left.IsLeaf() {
				log.Lvlf4("collapse at bit %d: left moves up", depth)
				restructures.WithLabelValues("collapse").Inc()
				return left
			}
		}
		return t.h.newInterior(left, right)
	}
	panic(xerrors.Errorf("%w: delete below %s", ErrStubTraversal, n.kind))
}

// Commitment returns the hash of the root of the trie.
func (t *Trie) Commitment() []byte {
	return clone(t.RootNode().hash)
}

// RootNode returns the current root. It is never modified and can be kept as
// a version of the trie.
func (t *Trie) RootNode() *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Snapshot returns an independent trie starting from the current root. Later
// changes to either trie are not visible in the other.
func (t *Trie) Snapshot() *Trie {
	return &Trie{
		h:         t.h,
		empty:     t.empty,
		root:      t.RootNode(),
		noHashKey: t.noHashKey,
	}
}

// Len returns the number of keys in the trie.
func (t *Trie) Len() int {
	var count int
	forEachLeaf(t.RootNode(), func(*Node) error {
		count++
		return nil
	})
	return count
}

// ForEach calls cb on every key/value pair in the order of the trie. The
// iteration stops with the first error returned by cb.
func (t *Trie) ForEach(cb func(key, value []byte) error) error {
	return forEachLeaf(t.RootNode(), func(n *Node) error {
		return cb(clone(n.key), clone(n.value))
	})
}

func forEachLeaf(n *Node, cb func(*Node) error) error {
	if n == nil {
		return nil
	}
	switch n.kind {
	case KindLeaf:
		return cb(n)
	case KindInterior:
		if err := forEachLeaf(n.left, cb); err != nil {
			return err
		}
		return forEachLeaf(n.right, cb)
	}
	return nil
}

func (t *Trie) String() string {
	var sb strings.Builder
	writeTree(&sb, "+", t.RootNode())
	return sb.String()
}

// writeTree writes one line per node, prefixed by the path to the node.
func writeTree(sb *strings.Builder, prefix string, n *Node) {
	if n == nil {
		sb.WriteString(prefix + " <omitted>\n")
		return
	}
	sb.WriteString(prefix + " " + n.String() + "\n")
	if n.kind == KindInterior {
		writeTree(sb, prefix+"0", n.left)
		writeTree(sb, prefix+"1", n.right)
	}
}

func (t *Trie) hashKey(key []byte) []byte {
	if t.noHashKey {
		return clone(key)
	}
	return t.h.digest(key)
}

func (t *Trie) hashKeys(keys [][]byte) [][]byte {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = t.hashKey(k)
	}
	return out
}
