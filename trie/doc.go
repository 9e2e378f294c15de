// Package trie implements a Merkle prefix trie: a binary trie where the
// position of a key is given by the bits of its hash and every node carries a
// hash, so that the root hash commits to the whole key/value set.
//
// Tries are persistent. Set and Delete copy the path they change and share
// everything else with the previous version, so a version can be kept by
// holding on to its root (see Snapshot). Deltas extracted from a trie are
// pruned copies that can be verified against a commitment by a party that
// does not hold the trie, such as a Replica.
package trie
