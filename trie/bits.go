package trie

import (
	"strings"

	"golang.org/x/xerrors"
)

// GetBit returns the bit at index i of buf. Byte i/8 holds the bit and
// within a byte the least significant bit comes first:
//
//	buf:   buf[0] || buf[1]  || buf[2]
//	index: [0..7]    [8..15]    [16..23]
//
// An index outside [0, 8*len(buf)) panics with ErrBitIndex.
func GetBit(buf []byte, i int) bool {
	if i < 0 || i >= len(buf)*8 {
		panic(xerrors.Errorf("%w: %d not in [0, %d)", ErrBitIndex, i, len(buf)*8))
	}
	return (buf[i/8]>>uint(i%8))&1 == 1
}

// BitString returns buf as a string of '0' and '1' in GetBit order.
func BitString(buf []byte) string {
	var sb strings.Builder
	sb.Grow(len(buf) * 8)
	for i := 0; i < len(buf)*8; i++ {
		if GetBit(buf, i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// partition splits key hashes on the bit at depth: those with a 0 go left,
// those with a 1 go right.
func partition(keyHashes [][]byte, depth int) (left, right [][]byte) {
	for _, kh := range keyHashes {
		if GetBit(kh, depth) {
			right = append(right, kh)
		} else {
			left = append(left, kh)
		}
	}
	return
}
