/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: varint.go
Description: Base-128 varint codec. Decoding tolerates non-canonical chains up to ten bytes;
encoding is always minimal and supports partial writes into short destinations.
*/

package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// MaxVarintLen is the longest chain DecodeVarint accepts.
const MaxVarintLen = 10

// DecodeVarint reads one varint from the front of b.
// It returns the value and the number of bytes consumed.
func DecodeVarint(b []byte) (int64, int, error) {
	var v uint64
	var shift uint
	for i := 0; ; i++ {
		if i == MaxVarintLen {
			return 0, 0, ErrOverflow
		}
		if i >= len(b) {
			return 0, 0, ErrTruncatedInput
		}
		c := b[i]
		v |= uint64(c&0x7f) << shift
		shift += 7
		if c < 0x80 {
			return int64(v), i + 1, nil
		}
	}
}

// EncodeVarint writes v into dst using the minimal number of groups.
// When dst is shorter than VarintLen(v) only the leading bytes that fit are
// written. The return value is the count actually written.
func EncodeVarint(v int64, dst []byte) int {
	u := uint64(v)
	n := 0
	for n < len(dst) {
		if u < 0x80 {
			dst[n] = byte(u)
			return n + 1
		}
		dst[n] = byte(u) | 0x80
		u >>= 7
		n++
	}
	return n
}

// AppendVarint appends the minimal encoding of v to b.
func AppendVarint(b []byte, v int64) []byte {
	var buf [MaxVarintLen]byte
	n := EncodeVarint(v, buf[:])
	return append(b, buf[:n]...)
}

// VarintLen reports the minimal encoded length of v.
func VarintLen(v int64) int {
	return protowire.SizeVarint(uint64(v))
}
