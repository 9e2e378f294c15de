package trie

import "golang.org/x/xerrors"

var (
	// ErrKeyHashCollision is the panic value when two distinct key hashes
	// agree on every bit that can be read from them. It implies a collision
	// of the digest and the trie cannot place both keys.
	ErrKeyHashCollision = xerrors.New("key hashes agree on every bit")
	// ErrBitIndex is the panic value when a bit index is out of range.
	ErrBitIndex = xerrors.New("bit index out of range")
	// ErrStubTraversal is the panic value when a stub is used as an interior
	// node or a leaf.
	ErrStubTraversal = xerrors.New("stub cannot be traversed")
	// ErrNodeKind is the panic value when an accessor is called on a node of
	// the wrong kind.
	ErrNodeKind = xerrors.New("accessor not defined for node kind")

	// ErrStubReached is returned when a lookup in a delta needs the content
	// of a stub.
	ErrStubReached = xerrors.New("path ends in a stub")
	// ErrMissingChild is returned when a delta omits a child that is needed
	// and no cached copy is available.
	ErrMissingChild = xerrors.New("child omitted from delta")
	// ErrRootMismatch is returned when the recomputed root hash differs from
	// the trusted commitment.
	ErrRootMismatch = xerrors.New("root hash does not match commitment")
	// ErrInvalidNode is returned when an encoded node is malformed.
	ErrInvalidNode = xerrors.New("invalid node")
	// ErrInvalidOp is returned when a batch holds an unknown operation.
	ErrInvalidOp = xerrors.New("no such operation")
)
