package trie

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

// requireProofPath walks the path of keyHash in the live trie and in the proof
// and checks that every sibling off the path is a stub with the right hash.
func requireProofPath(t *testing.T, live, proof *Node, keyHash []byte) {
	for depth := 0; live.Kind() == KindInterior; depth++ {
		require.Equal(t, KindInterior, proof.Kind())
		on, off := live.left, live.right
		pOn, pOff := proof.left, proof.right
		if GetBit(keyHash, depth) {
			on, off = off, on
			pOn, pOff = pOff, pOn
		}
		require.Equal(t, KindStub, pOff.Kind())
		require.Equal(t, off.hash, pOff.hash)
		live, proof = on, pOn
	}
	require.Equal(t, live.Kind(), proof.Kind())
	require.Equal(t, live.hash, proof.hash)
	require.True(t, live != proof, "proof shares nodes with the trie")
}

func countKinds(n *Node) map[Kind]int {
	counts := make(map[Kind]int)
	var walk func(*Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		counts[n.kind]++
		if n.kind == KindInterior {
			walk(n.left)
			walk(n.right)
		}
	}
	walk(n)
	return counts
}

func TestDelta_ProofSingleKey(t *testing.T) {
	pairs := getKeyValuePairs(1000, "")
	tr := makeTrie(pairs)

	for _, p := range pairs[:50] {
		d := tr.Proof(p.key)
		require.NoError(t, d.Verify(tr.Commitment()))
		requireProofPath(t, tr.RootNode(), d.RootNode(), tr.hashKey(p.key))

		v, ok, err := d.Get(p.key)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, p.value, v)

		// Only one leaf with content is in the proof.
		require.Equal(t, 1, countKinds(d.RootNode())[KindLeaf])
		require.Equal(t, [][]byte{p.key}, d.Keys())
	}
}

func TestDelta_ProofAbsence(t *testing.T) {
	tr := makeTrie(getKeyValuePairs(100, ""))
	for _, k := range []string{"G", "H", "absent", "key100"} {
		d := tr.Proof([]byte(k))
		require.NoError(t, d.Verify(tr.Commitment()))
		requireProofPath(t, tr.RootNode(), d.RootNode(), tr.hashKey([]byte(k)))

		v, ok, err := d.Get([]byte(k))
		require.NoError(t, err)
		require.False(t, ok)
		require.Nil(t, v)
	}

	// With a single key on the right, the path to the left ends in an
	// empty leaf.
	nh := newNoHashTrie()
	nh.Set([]byte{0x01}, []byte("a"))
	d := nh.Proof([]byte{0x00})
	require.True(t, d.RootNode().Left().IsEmpty())
	require.True(t, d.RootNode().Right().IsStub())
	require.NoError(t, d.Verify(nh.Commitment()))
	_, ok, err := d.Get([]byte{0x00})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDelta_ProofManyKeys(t *testing.T) {
	pairs := getKeyValuePairs(1000, "")
	tr := makeTrie(pairs)

	var keys [][]byte
	var separate int
	for _, p := range pairs[:20] {
		keys = append(keys, p.key)
		separate += countKinds(tr.Proof(p.key).RootNode())[KindInterior]
	}
	d := tr.Proof(keys...)
	require.NoError(t, d.Verify(tr.Commitment()))
	require.Less(t, countKinds(d.RootNode())[KindInterior], separate)
	require.Equal(t, 20, countKinds(d.RootNode())[KindLeaf])

	for _, p := range pairs[:20] {
		v, ok, err := d.Get(p.key)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, p.value, v)
	}
}

func TestDelta_ProofNoKey(t *testing.T) {
	tr := makeTrie(getKeyValuePairs(10, ""))
	d := tr.Proof()
	root := d.RootNode()
	require.Equal(t, KindInterior, root.Kind())
	require.True(t, root.Left().IsStub())
	require.True(t, root.Right().IsStub())
	require.NoError(t, d.Verify(tr.Commitment()))

	_, _, err := d.Get([]byte("key1"))
	require.True(t, xerrors.Is(err, ErrStubReached))
}

func TestDelta_StubReached(t *testing.T) {
	tr := newNoHashTrie()
	for _, k := range []byte{0x00, 0x01, 0x02, 0x03} {
		tr.Set([]byte{k}, []byte{k})
	}
	d := tr.Proof([]byte{0x00})

	_, _, err := d.Get([]byte{0x01})
	require.True(t, xerrors.Is(err, ErrStubReached))
	_, _, err = d.Get([]byte{0x02})
	require.True(t, xerrors.Is(err, ErrStubReached))
	v, ok, err := d.Get([]byte{0x00})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{0x00}, v)
}

func TestDelta_VerifyMismatch(t *testing.T) {
	tr := makeTrie(getKeyValuePairs(10, ""))
	d := tr.Proof([]byte("key1"))
	tr.Set([]byte("key1"), []byte("other"))
	require.True(t, xerrors.Is(d.Verify(tr.Commitment()), ErrRootMismatch))
}

func TestDelta_ChangesSince(t *testing.T) {
	tr := makeTrie(getKeyValuePairs(500, ""))
	base := tr.Snapshot()

	// Nothing changed.
	d := tr.ChangesSince(base)
	require.True(t, d.RootNode().Left().IsStub())
	require.True(t, d.RootNode().Right().IsStub())
	require.NoError(t, d.Verify(tr.Commitment()))

	// A value update only materializes the updated leaf.
	tr.Set([]byte("key7"), []byte("new"))
	d = tr.ChangesSince(base)
	require.NoError(t, d.Verify(tr.Commitment()))
	require.Equal(t, [][]byte{[]byte("key7")}, d.Keys())

	// A new key materializes itself and at most the leaf it was split from.
	tr.Set([]byte("fresh"), []byte("value"))
	d = tr.ChangesSince(base)
	require.NoError(t, d.Verify(tr.Commitment()))
	keys := d.Keys()
	require.Contains(t, keys, []byte("fresh"))
	require.Contains(t, keys, []byte("key7"))
	require.LessOrEqual(t, len(keys), 3)
	v, ok, err := d.Get([]byte("fresh"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("value"), v)

	// A deleted key leaves an empty leaf or a moved leaf behind.
	base = tr.Snapshot()
	tr.Delete([]byte("key9"))
	d = tr.ChangesSince(base)
	require.NoError(t, d.Verify(tr.Commitment()))
	_, ok, err = d.Get([]byte("key9"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDelta_UpdatesSinceAndReplica(t *testing.T) {
	tr := makeTrie(getKeyValuePairs(200, ""))
	key := []byte("key42")

	replica := NewReplica(nil, tr.Commitment())
	_, _, err := replica.Get(key)
	require.True(t, xerrors.Is(err, ErrStubReached))

	require.NoError(t, replica.Sync(tr.Proof(key), tr.Commitment()))
	v, ok, err := replica.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("value42"), v)

	base := tr.Snapshot()
	tr.Set(key, []byte("updated"))
	tr.Set([]byte("key43"), []byte("updated too"))

	d := tr.UpdatesSince(base, key)
	// The siblings of the path did not change and are omitted.
	_, err = d.ComputeRoot()
	require.True(t, xerrors.Is(err, ErrMissingChild))

	// A replica that never saw the trie cannot use the update.
	require.True(t, xerrors.Is(NewReplica(nil, base.Commitment()).Sync(d, tr.Commitment()),
		ErrMissingChild))

	// A wrong commitment leaves the replica untouched.
	before := replica.Commitment()
	require.True(t, xerrors.Is(replica.Sync(d, base.Commitment()), ErrRootMismatch))
	require.Equal(t, before, replica.Commitment())

	require.NoError(t, replica.Sync(d, tr.Commitment()))
	require.Equal(t, tr.Commitment(), replica.Commitment())
	v, ok, err = replica.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("updated"), v)
	require.NoError(t, replica.Delta().Verify(tr.Commitment()))

	// Nothing changed: both children of the root are omitted.
	d = tr.UpdatesSince(tr.Snapshot(), key)
	require.Nil(t, d.RootNode().Left())
	require.Nil(t, d.RootNode().Right())
	require.NoError(t, replica.Sync(d, tr.Commitment()))
}

func TestDelta_MaterializeToTrie(t *testing.T) {
	pairs := getKeyValuePairs(300, "")
	tr := makeTrie(pairs)
	d := tr.Materialize()
	require.NoError(t, d.Verify(tr.Commitment()))
	require.Zero(t, countKinds(d.RootNode())[KindStub])

	tr2, err := d.ToTrie()
	require.NoError(t, err)
	require.Equal(t, tr.Commitment(), tr2.Commitment())
	for _, p := range pairs {
		v, ok := tr2.Get(p.key)
		require.True(t, ok)
		require.Equal(t, p.value, v)
	}

	_, err = tr.Proof([]byte("key1")).ToTrie()
	require.True(t, xerrors.Is(err, ErrStubReached))
}

// sameSideKey returns a key whose hash goes to the same side of the root as
// the hash of key.
func sameSideKey(t *testing.T, tr *Trie, key []byte) []byte {
	bit := GetBit(tr.hashKey(key), 0)
	for i := 0; i < 64; i++ {
		k := []byte(fmt.Sprintf("other%d", i))
		if GetBit(tr.hashKey(k), 0) == bit {
			return k
		}
	}
	require.Fail(t, "no key found on the same side")
	return nil
}

func TestDelta_KeyReplacedUnderSameValue(t *testing.T) {
	alice := []byte("alice")
	tr := NewTrie(nil)
	tr.Set(alice, []byte("1"))
	base := tr.Snapshot()

	replica := NewReplica(nil, tr.Commitment())
	require.NoError(t, replica.Sync(tr.Materialize(), tr.Commitment()))

	// The new leaf takes the place of the old one with the same value hash,
	// so the commitment stays the same.
	bob := sameSideKey(t, tr, alice)
	tr.Delete(alice)
	tr.Set(bob, []byte("1"))
	require.Equal(t, base.Commitment(), tr.Commitment())

	d := tr.ChangesSince(base)
	require.Equal(t, [][]byte{bob}, d.Keys())
	require.NoError(t, d.Verify(tr.Commitment()))

	d = tr.UpdatesSince(base, bob)
	v, ok, err := d.Get(bob)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)

	require.NoError(t, replica.Sync(d, tr.Commitment()))
	v, ok, err = replica.Get(bob)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)
	_, ok, err = replica.Get(alice)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDelta_ValuesMovedToOtherKeys(t *testing.T) {
	// 0x00 and 0x02 share bit 0 and differ on bit 1, as do 0x04 and 0x06,
	// so both tries have the same shape and the same hashes.
	base := newNoHashTrie()
	base.Set([]byte{0x00}, []byte("a"))
	base.Set([]byte{0x02}, []byte("b"))
	base.Set([]byte{0x01}, []byte("c"))

	tr := newNoHashTrie()
	tr.Set([]byte{0x04}, []byte("a"))
	tr.Set([]byte{0x06}, []byte("b"))
	tr.Set([]byte{0x01}, []byte("c"))
	require.Equal(t, base.Commitment(), tr.Commitment())

	d := tr.ChangesSince(base)
	require.Equal(t, [][]byte{{0x04}, {0x06}}, d.Keys())
	require.True(t, d.RootNode().Right().IsStub())

	d = tr.UpdatesSince(base, []byte{0x06})
	require.Nil(t, d.RootNode().Right())
	v, ok, err := d.Get([]byte{0x06})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("b"), v)
	// The sibling changed too and is sent as a stub.
	_, _, err = d.Get([]byte{0x04})
	require.True(t, xerrors.Is(err, ErrStubReached))
}

func TestDelta_SinceRebuiltTrie(t *testing.T) {
	tr := makeTrie(getKeyValuePairs(200, ""))
	base, err := tr.Materialize().ToTrie()
	require.NoError(t, err)
	require.Equal(t, tr.Commitment(), base.Commitment())

	// The two tries share no node but hold the same content.
	d := tr.ChangesSince(base)
	require.True(t, d.RootNode().Left().IsStub())
	require.True(t, d.RootNode().Right().IsStub())
	d = tr.UpdatesSince(base, []byte("key1"))
	require.Nil(t, d.RootNode().Left())
	require.Nil(t, d.RootNode().Right())

	replica := NewReplica(nil, base.Commitment())
	require.NoError(t, replica.Sync(base.Proof([]byte("key7")), base.Commitment()))

	tr.Set([]byte("key7"), []byte("new"))
	d = tr.ChangesSince(base)
	require.Equal(t, [][]byte{[]byte("key7")}, d.Keys())
	require.NoError(t, d.Verify(tr.Commitment()))

	require.NoError(t, replica.Sync(tr.UpdatesSince(base, []byte("key7")), tr.Commitment()))
	v, ok, err := replica.Get([]byte("key7"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("new"), v)
}
