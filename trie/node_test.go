package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNode_StubCannotBeTraversed(t *testing.T) {
	stub := newStub([]byte{1, 2, 3})
	require.True(t, stub.IsStub())
	require.False(t, stub.IsLeaf())
	require.Equal(t, []byte{1, 2, 3}, stub.Hash())

	requirePanicIs(t, ErrStubTraversal, func() { stub.Left() })
	requirePanicIs(t, ErrStubTraversal, func() { stub.Right() })
	requirePanicIs(t, ErrStubTraversal, func() { stub.Key() })
	requirePanicIs(t, ErrStubTraversal, func() { stub.KeyHash() })
	requirePanicIs(t, ErrStubTraversal, func() { stub.Value() })
}

func TestNode_Accessors(t *testing.T) {
	h := hasher{NewTrie(nil).h.suite}
	leaf := h.newLeaf([]byte("k"), h.digest([]byte("k")), []byte("v"))
	empty := h.newEmpty()
	interior := h.newInterior(leaf, empty)

	require.True(t, leaf.IsLeaf())
	require.False(t, leaf.IsEmpty())
	require.Equal(t, []byte("k"), leaf.Key())
	require.Equal(t, sum([]byte("k")), leaf.KeyHash())
	require.Equal(t, []byte("v"), leaf.Value())
	requirePanicIs(t, ErrNodeKind, func() { leaf.Left() })

	require.True(t, empty.IsLeaf())
	require.True(t, empty.IsEmpty())
	requirePanicIs(t, ErrNodeKind, func() { empty.Value() })

	require.False(t, interior.IsLeaf())
	require.Equal(t, leaf, interior.Left())
	require.Equal(t, empty, interior.Right())
	requirePanicIs(t, ErrNodeKind, func() { interior.Key() })

	// Returned slices are copies.
	leaf.Value()[0] = 'x'
	require.Equal(t, []byte("v"), leaf.Value())
}

func TestNode_String(t *testing.T) {
	h := NewTrie(nil).h
	require.Equal(t, "<Leaf K: 6b V: 76>", h.newLeaf([]byte("k"), nil, []byte("v")).String())
	require.Equal(t, "<Empty>", h.newEmpty().String())
	require.Equal(t, "<Stub H: 0102>", newStub([]byte{1, 2}).String())
	require.Equal(t, "stub", KindStub.String())
	require.Equal(t, "kind(9)", Kind(9).String())
}
