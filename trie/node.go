package trie

import (
	"encoding/hex"
	"fmt"

	"go.dedis.ch/kyber/v3"
	"golang.org/x/xerrors"
)

// Kind is the variant of a Node.
type Kind byte

const (
	// KindInterior is a node with exactly two children.
	KindInterior Kind = iota + 1
	// KindEmpty marks a position that holds no entry.
	KindEmpty
	// KindLeaf holds one key/value pair.
	KindLeaf
	// KindStub stands for an elided subtree of which only the hash is known.
	KindStub
)

func (k Kind) String() string {
	switch k {
	case KindInterior:
		return "interior"
	case KindEmpty:
		return "empty"
	case KindLeaf:
		return "leaf"
	case KindStub:
		return "stub"
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// emptyMarker is digested to give the hash shared by every empty leaf.
var emptyMarker = []byte("\x00mpt/empty-leaf")

// Node is a node of a trie or of a delta. Nodes are immutable: an update
// creates new nodes along the modified path and shares everything else.
//
// Calling an accessor that the variant does not define is a programming error
// and panics. In particular a stub can never be traversed.
type Node struct {
	kind Kind
	hash []byte

	// leaf
	key     []byte
	keyHash []byte
	value   []byte

	// interior
	left  *Node
	right *Node
}

// Kind returns the variant of the node.
func (n *Node) Kind() Kind {
	return n.kind
}

// Hash returns the hash committing to the node. For an interior node of a
// delta whose children were omitted the hash may be nil.
func (n *Node) Hash() []byte {
	return clone(n.hash)
}

// IsLeaf is true for leaves and empty leaves.
func (n *Node) IsLeaf() bool {
	return n.kind == KindLeaf || n.kind == KindEmpty
}

// IsEmpty is true for empty leaves.
func (n *Node) IsEmpty() bool {
	return n.kind == KindEmpty
}

// IsStub is true for stubs.
func (n *Node) IsStub() bool {
	return n.kind == KindStub
}

// Left returns the left child of an interior node. In a delta it is nil if the
// child was omitted.
func (n *Node) Left() *Node {
	n.mustBe(KindInterior)
	return n.left
}

// Right returns the right child of an interior node. In a delta it is nil if
// the child was omitted.
func (n *Node) Right() *Node {
	n.mustBe(KindInterior)
	return n.right
}

// Key returns the key of a leaf. Leaves decoded from the export form only know
// the hash of their key, in which case Key returns nil.
func (n *Node) Key() []byte {
	n.mustBe(KindLeaf)
	return clone(n.key)
}

// KeyHash returns the hash of the key of a leaf.
func (n *Node) KeyHash() []byte {
	n.mustBe(KindLeaf)
	return clone(n.keyHash)
}

// Value returns the value of a leaf.
func (n *Node) Value() []byte {
	n.mustBe(KindLeaf)
	return clone(n.value)
}

func (n *Node) mustBe(k Kind) {
	if n.kind == k {
		return
	}
	if n.kind == KindStub {
		panic(xerrors.Errorf("%w: wanted %s", ErrStubTraversal, k))
	}
	panic(xerrors.Errorf("%w: %s node used as %s", ErrNodeKind, n.kind, k))
}

func (n *Node) String() string {
	switch n.kind {
	case KindInterior:
		return fmt.Sprintf("<Interior H: %s>", shortHex(n.hash))
	case KindEmpty:
		return "<Empty>"
	case KindLeaf:
		if n.key == nil {
			return fmt.Sprintf("<Leaf KH: %s V: %s>", shortHex(n.keyHash), hex.EncodeToString(n.value))
		}
		return fmt.Sprintf("<Leaf K: %s V: %s>", hex.EncodeToString(n.key), hex.EncodeToString(n.value))
	case KindStub:
		return fmt.Sprintf("<Stub H: %s>", shortHex(n.hash))
	}
	return "<invalid>"
}

// copyLeaf returns a copy of a leaf or empty leaf that shares no memory with
// the original.
func (n *Node) copyLeaf() *Node {
	return &Node{
		kind:    n.kind,
		hash:    clone(n.hash),
		key:     clone(n.key),
		keyHash: clone(n.keyHash),
		value:   clone(n.value),
	}
}

func newStub(hash []byte) *Node {
	return &Node{
		kind: KindStub,
		hash: clone(hash),
	}
}

// newPartialInterior creates an interior node of a delta. Children may be nil
// and the hash is taken from the source node rather than recomputed.
func newPartialInterior(left, right *Node, hash []byte) *Node {
	return &Node{
		kind:  KindInterior,
		hash:  clone(hash),
		left:  left,
		right: right,
	}
}

// hasher wraps the digest oracle and builds nodes with their hashes.
type hasher struct {
	suite kyber.HashFactory
}

func (h hasher) digest(parts ...[]byte) []byte {
	d := h.suite.Hash()
	for _, p := range parts {
		d.Write(p)
	}
	return d.Sum(nil)
}

func (h hasher) newEmpty() *Node {
	return &Node{
		kind: KindEmpty,
		hash: h.digest(emptyMarker),
	}
}

func (h hasher) newLeaf(key, keyHash, value []byte) *Node {
	if key == nil {
		key = []byte{}
	}
	return &Node{
		kind:    KindLeaf,
		hash:    h.digest(value),
		key:     clone(key),
		keyHash: keyHash,
		value:   clone(value),
	}
}

func (h hasher) newInterior(left, right *Node) *Node {
	return &Node{
		kind:  KindInterior,
		hash:  h.digest(left.hash, right.hash),
		left:  left,
		right: right,
	}
}

func shortHex(buf []byte) string {
	if len(buf) > 8 {
		return hex.EncodeToString(buf[:8]) + ".."
	}
	return hex.EncodeToString(buf)
}

func clone(buf []byte) []byte {
	if buf == nil {
		return nil
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}
