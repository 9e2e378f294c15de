package trie

import (
	mpt "github.com/sfdc-hhildebrand/merkle-prefix-trie"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/protobuf"
	"golang.org/x/xerrors"
)

// EncodedTrie is the wire form of a delta or of an exported trie.
type EncodedTrie struct {
	Root *EncodedNode
}

// EncodedNode holds exactly one of its fields.
type EncodedNode struct {
	Leaf         *EncodedLeaf
	ExportedLeaf *ExportedLeaf
	EmptyLeaf    *EncodedEmptyLeaf
	Interior     *EncodedInterior
	Stub         *EncodedStub
}

// EncodedLeaf is a leaf of a delta. The key and the value are included so that
// the receiver can check them against the hashes.
type EncodedLeaf struct {
	Key   []byte
	Value []byte
}

// ExportedLeaf is a leaf of an exported trie, which only carries the hash of
// the key.
type ExportedLeaf struct {
	KeyHash []byte
	Value   []byte
}

// EncodedEmptyLeaf is an empty leaf.
type EncodedEmptyLeaf struct{}

// EncodedInterior is an interior node. A missing child did not change and the
// receiver is expected to have it.
type EncodedInterior struct {
	Left  *EncodedNode
	Right *EncodedNode
}

// EncodedStub is an elided subtree.
type EncodedStub struct {
	Hash []byte
}

// Encode returns the wire form of the delta.
func (d *Delta) Encode() ([]byte, error) {
	buf, err := protobuf.Encode(&EncodedTrie{Root: encodeNode(d.root, false)})
	if err != nil {
		return nil, xerrors.Errorf("encoding delta: %v", err)
	}
	return buf, nil
}

// Export returns the wire form of the whole trie, where leaves only carry the
// hash of their key.
func (t *Trie) Export() ([]byte, error) {
	buf, err := protobuf.Encode(&EncodedTrie{Root: encodeNode(t.RootNode(), true)})
	if err != nil {
		return nil, xerrors.Errorf("exporting trie: %v", err)
	}
	return buf, nil
}

func encodeNode(n *Node, export bool) *EncodedNode {
	if n == nil {
		return nil
	}
	switch n.kind {
	case KindEmpty:
		return &EncodedNode{EmptyLeaf: &EncodedEmptyLeaf{}}
	case KindLeaf:
		if export || n.key == nil {
			return &EncodedNode{ExportedLeaf: &ExportedLeaf{
				KeyHash: clone(n.keyHash),
				Value:   clone(n.value),
			}}
		}
		return &EncodedNode{Leaf: &EncodedLeaf{
			Key:   clone(n.key),
			Value: clone(n.value),
		}}
	case KindStub:
		return &EncodedNode{Stub: &EncodedStub{Hash: clone(n.hash)}}
	case KindInterior:
		return &EncodedNode{Interior: &EncodedInterior{
			Left:  encodeNode(n.left, export),
			Right: encodeNode(n.right, export),
		}}
	}
	panic(xerrors.Errorf("%w: kind %d", ErrInvalidNode, n.kind))
}

// DecodeDelta parses the wire form of a delta or of an exported trie. Hashes
// of leaves and interior nodes are recomputed with the hash of suite; if suite
// is nil, mpt.Suite is used. Nothing is verified against a commitment, which
// is up to the caller.
func DecodeDelta(suite kyber.HashFactory, buf []byte) (*Delta, error) {
	if suite == nil {
		suite = mpt.Suite
	}
	var et EncodedTrie
	if err := protobuf.Decode(buf, &et); err != nil {
		return nil, xerrors.Errorf("decoding delta: %v", err)
	}
	if et.Root == nil || et.Root.Interior == nil {
		return nil, xerrors.Errorf("%w: root must be an interior node", ErrInvalidNode)
	}
	h := hasher{suite}
	root, err := h.decodeNode(et.Root)
	if err != nil {
		return nil, err
	}
	return newDeltaFromRoot(suite, root), nil
}

func (h hasher) decodeNode(en *EncodedNode) (*Node, error) {
	if en == nil {
		return nil, nil
	}
	var set int
	for _, ok := range []bool{en.Leaf != nil, en.ExportedLeaf != nil,
		en.EmptyLeaf != nil, en.Interior != nil, en.Stub != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, xerrors.Errorf("%w: %d variants set", ErrInvalidNode, set)
	}

	switch {
	case en.Leaf != nil:
		return h.newLeaf(en.Leaf.Key, h.digest(en.Leaf.Key), en.Leaf.Value), nil
	case en.ExportedLeaf != nil:
		if len(en.ExportedLeaf.KeyHash) == 0 {
			return nil, xerrors.Errorf("%w: exported leaf without key hash", ErrInvalidNode)
		}
		return &Node{
			kind:    KindLeaf,
			hash:    h.digest(en.ExportedLeaf.Value),
			keyHash: clone(en.ExportedLeaf.KeyHash),
			value:   clone(en.ExportedLeaf.Value),
		}, nil
	case en.EmptyLeaf != nil:
		return h.newEmpty(), nil
	case en.Stub != nil:
		if len(en.Stub.Hash) == 0 {
			return nil, xerrors.Errorf("%w: stub without hash", ErrInvalidNode)
		}
		return newStub(en.Stub.Hash), nil
	}

	left, err := h.decodeNode(en.Interior.Left)
	if err != nil {
		return nil, err
	}
	right, err := h.decodeNode(en.Interior.Right)
	if err != nil {
		return nil, err
	}
	if left == nil || right == nil {
		return newPartialInterior(left, right, nil), nil
	}
	return h.newInterior(left, right), nil
}
