/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: value.go
Description: Wire types, field numbers and the tagged value held for each field occurrence.
*/

package wire

import "fmt"

// Number is a field number as it appears on the wire. The parser keeps the
// full tag width; plausibility is judged elsewhere.
type Number uint64

// Type is the 3-bit wire type carried in the low bits of a tag.
type Type uint8

const (
	VarintType     Type = 0
	Fixed64Type    Type = 1
	BytesType      Type = 2
	StartGroupType Type = 3
	EndGroupType   Type = 4
	Fixed32Type    Type = 5
)

func (t Type) String() string {
	switch t {
	case VarintType:
		return "varint"
	case Fixed64Type:
		return "fixed64"
	case BytesType:
		return "bytes"
	case StartGroupType:
		return "start_group"
	case EndGroupType:
		return "end_group"
	case Fixed32Type:
		return "fixed32"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Value is one occurrence of a field. Type selects which payload is set:
// Int for varints, Fixed for fixed32/fixed64, Bytes for length-delimited data.
// Bytes aliases the parsed input and must not be modified.
//
// TagLen and VarLen are the widths Parse read for the tag and for the varint
// after it (the value, or the length prefix of Bytes). Varints may be padded
// with empty continuation groups on the wire; zero means minimal.
type Value struct {
	Type  Type
	Int   int64
	Fixed uint64
	Bytes []byte

	TagLen int
	VarLen int
}

// Tag returns the encoded tag for field n carrying this value.
func (v Value) Tag(n Number) uint64 {
	return uint64(n)<<3 | uint64(v.Type)
}

// size is the encoded size of the value with its tag as field n. Recorded
// widths are used when set, minimal ones otherwise.
func (v Value) size(n Number, canonical bool) int {
	width := func(recorded int, x int64) int {
		if recorded > 0 && !canonical {
			return recorded
		}
		return VarintLen(x)
	}
	total := width(v.TagLen, int64(v.Tag(n)))
	switch v.Type {
	case VarintType:
		total += width(v.VarLen, v.Int)
	case Fixed64Type:
		total += 8
	case Fixed32Type:
		total += 4
	case BytesType:
		total += width(v.VarLen, int64(len(v.Bytes))) + len(v.Bytes)
	}
	return total
}

// Field is every occurrence of one field number, in input order.
type Field struct {
	Number Number
	Values []Value
}

// Fields is the occurrence map of a tree, ordered by first appearance.
type Fields []Field
