/*
Package mpt holds the pieces shared by every part of the Merkle prefix trie:
the default digest oracle and the error wrapper used by the stores.

The trie itself lives in the trie sub-package. A trie maps arbitrary byte keys
to arbitrary byte values and carries a single root hash, the commitment, over
the whole key set. A party that only knows the commitment can check a pruned
copy of the trie (a delta) for the presence or absence of keys.

Persistence of trie versions is in the store sub-package and the mptadmin
command drives a persisted trie from the shell.
*/
package mpt
