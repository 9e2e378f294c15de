package trie

import (
	"sync"

	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// OpType is the operation type that modifies state.
type OpType int

const (
	// OpSet is the set operation.
	OpSet OpType = iota + 1
	// OpDel is the delete operation.
	OpDel
)

// KVPair is the interface for getting a key-value pair and an operation type.
type KVPair interface {
	Op() OpType
	Key() []byte
	Val() []byte
}

type instr struct {
	ty OpType
	k  []byte
	v  []byte
}

func (i instr) Op() OpType  { return i.ty }
func (i instr) Key() []byte { return i.k }
func (i instr) Val() []byte { return i.v }

// SetOp returns the KVPair setting key to value.
func SetOp(key, value []byte) KVPair {
	return instr{ty: OpSet, k: clone(key), v: clone(value)}
}

// DelOp returns the KVPair deleting key.
func DelOp(key []byte) KVPair {
	return instr{ty: OpDel, k: clone(key)}
}

// Batch applies all the pairs to the trie and replaces the root once at the
// end, so that readers never see a partially applied batch. It returns true if
// the trie changed. Nothing is applied if one of the pairs has an unknown
// operation.
func (t *Trie) Batch(pairs []KVPair) (bool, error) {
	for _, p := range pairs {
		if p.Op() != OpSet && p.Op() != OpDel {
			return false, xerrors.Errorf("%w: %d", ErrInvalidOp, p.Op())
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	work := &Trie{h: t.h, empty: t.empty, root: t.root, noHashKey: t.noHashKey}
	for _, p := range pairs {
		switch p.Op() {
		case OpSet:
			work.setLocked(p.Key(), p.Val())
		case OpDel:
			work.deleteLocked(p.Key())
		}
	}
	changed := work.root != t.root
	t.root = work.root
	return changed, nil
}

// StagingTrie represents a lazy copy of a Trie for staging operations. The
// keys and values stored in this object will not go into the source Trie from
// which it is created until the Commit function is called.
type StagingTrie struct {
	source     *Trie
	overlay    map[string][]byte
	deleteList map[string]struct{}
	instrList  []instr

	sync.Mutex
}

// MakeStagingTrie creates a lazy copy of the trie for staging operations.
func (t *Trie) MakeStagingTrie() *StagingTrie {
	return &StagingTrie{
		source:     t,
		overlay:    make(map[string][]byte),
		deleteList: make(map[string]struct{}),
	}
}

// Clone makes a clone of the uncommitted data of the staging trie. The source
// trie used for creating the staging trie is not cloned.
func (t *StagingTrie) Clone() *StagingTrie {
	t.Lock()
	defer t.Unlock()

	out := t.source.MakeStagingTrie()
	for k, v := range t.overlay {
		out.overlay[k] = clone(v)
	}
	for k := range t.deleteList {
		out.deleteList[k] = struct{}{}
	}
	out.instrList = make([]instr, len(t.instrList))
	copy(out.instrList, t.instrList)
	return out
}

// Get gets the value for the given key, looking at the staged operations
// first and at the source trie otherwise.
func (t *StagingTrie) Get(k []byte) ([]byte, bool) {
	t.Lock()
	defer t.Unlock()

	if _, ok := t.deleteList[string(k)]; ok {
		return nil, false
	}
	if v, ok := t.overlay[string(k)]; ok {
		return clone(v), true
	}
	return t.source.Get(k)
}

// Set stages a key/value pair, it will overwrite if necessary.
func (t *StagingTrie) Set(k, v []byte) {
	t.Lock()
	defer t.Unlock()

	delete(t.deleteList, string(k))
	t.overlay[string(k)] = clone(v)
	t.instrList = append(t.instrList, instr{ty: OpSet, k: clone(k), v: clone(v)})
}

// Delete stages the deletion of a key.
func (t *StagingTrie) Delete(k []byte) {
	t.Lock()
	defer t.Unlock()

	delete(t.overlay, string(k))
	t.deleteList[string(k)] = struct{}{}
	t.instrList = append(t.instrList, instr{ty: OpDel, k: clone(k)})
}

// Pending returns the number of staged operations.
func (t *StagingTrie) Pending() int {
	t.Lock()
	defer t.Unlock()
	return len(t.instrList)
}

// Commitment returns the commitment the source trie would have after Commit,
// without modifying it.
func (t *StagingTrie) Commitment() []byte {
	t.Lock()
	defer t.Unlock()

	return t.preview().Commitment()
}

// Proof returns the proof for keys in the trie the source would be after
// Commit, without modifying it.
func (t *StagingTrie) Proof(keys ...[]byte) *Delta {
	t.Lock()
	defer t.Unlock()

	return t.preview().Proof(keys...)
}

// preview applies the staged operations to a snapshot of the source. Set and
// Delete only stage valid operations, so an error is a programming fault.
func (t *StagingTrie) preview() *Trie {
	work := t.source.Snapshot()
	if _, err := work.Batch(t.pairs()); err != nil {
		panic(xerrors.Errorf("previewing staged operations: %w", err))
	}
	return work
}

// Commit applies all operations staged since creation or the previous commit
// to the source Trie in a single batch. It returns true if the source changed.
func (t *StagingTrie) Commit() (bool, error) {
	t.Lock()
	defer t.Unlock()

	changed, err := t.source.Batch(t.pairs())
	if err != nil {
		return false, err
	}
	log.Lvlf2("committed %d staged operations", len(t.instrList))
	t.overlay = make(map[string][]byte)
	t.deleteList = make(map[string]struct{})
	t.instrList = nil
	return changed, nil
}

func (t *StagingTrie) pairs() []KVPair {
	pairs := make([]KVPair, len(t.instrList))
	for i := range t.instrList {
		pairs[i] = t.instrList[i]
	}
	return pairs
}
