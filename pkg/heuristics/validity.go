/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: validity.go
Description: Validity oracle deciding whether a byte range plausibly holds a whole
serialized message. It is permissive; callers that need precision pair it
with an exact boundary match. None of these functions can fail or read out of range.
*/

package heuristics

import (
	"github.com/kleascm/protodec/pkg/wire"
)

const (
	// MinNumber and MaxNumber bound the field numbers a real schema can declare.
	MinNumber wire.Number = 1
	MaxNumber wire.Number = 1<<29 - 1

	// Reserved for the protobuf implementation itself.
	FirstReservedNumber wire.Number = 19000
	LastReservedNumber  wire.Number = 19999
)

// PlausibleNumber reports whether n could be declared in a .proto file.
func PlausibleNumber(n wire.Number) bool {
	if n < MinNumber || n > MaxNumber {
		return false
	}
	return n < FirstReservedNumber || n > LastReservedNumber
}

// IsValidMessage reports whether all of b parses as a message that passes
// ValidTree. The empty range is valid.
func IsValidMessage(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	t, err := wire.Parse(b)
	if err != nil {
		return false
	}
	return ValidTree(t)
}

// ValidTree applies the structural checks to the top level of a parsed tree: every
// field number is plausible and each field keeps a single wire type.
func ValidTree(t *wire.Tree) bool {
	if t == nil {
		return false
	}
	for _, f := range t.Fields() {
		if !PlausibleNumber(f.Number) {
			return false
		}
		typ := f.Values[0].Type
		for _, v := range f.Values[1:] {
			if v.Type != typ {
				return false
			}
		}
	}
	return true
}

// IsNestedMessage reports whether occurrence i of field n in parent reads as
// a non-empty nested message. It uses the parent's cached child view.
func IsNestedMessage(parent *wire.Tree, n wire.Number, i int) bool {
	child, ok := parent.MessageAt(n, i)
	return ok && !child.Empty() && ValidTree(child)
}
