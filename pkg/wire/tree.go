/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tree.go
Description: Schema-less parser turning a byte range into a Tree of field occurrences.
Length-delimited values are reparsed as nested trees only when asked for, and the
result is memoized per (field, occurrence) so repeated inspection stays linear.
*/

package wire

import (
	"encoding/binary"
)

type childKey struct {
	num Number
	idx int
}

type childSlot struct {
	tree *Tree
	ok   bool
}

// Tree is a parsed message without a schema. It is not safe for concurrent
// use while nested views are being materialized.
type Tree struct {
	fields   Fields
	index    map[Number]int
	children map[childKey]childSlot
	size     int
}

// Parse decodes b as a sequence of tagged fields. The whole range must be
// consumed; any truncation or unsupported wire type fails the parse.
func Parse(b []byte) (*Tree, error) {
	t := &Tree{index: make(map[Number]int)}
	off := 0
	for off < len(b) {
		start := off
		tag, n, err := DecodeVarint(b[off:])
		if err != nil {
			return nil, parseErr(start, err)
		}
		off += n

		v := Value{Type: Type(uint64(tag) & 7), TagLen: n}
		switch v.Type {
		case VarintType:
			x, n, err := DecodeVarint(b[off:])
			if err != nil {
				return nil, parseErr(off, err)
			}
			v.Int = x
			v.VarLen = n
			off += n
		case Fixed64Type:
			if len(b)-off < 8 {
				return nil, parseErr(off, ErrTruncatedInput)
			}
			v.Fixed = binary.LittleEndian.Uint64(b[off:])
			off += 8
		case Fixed32Type:
			if len(b)-off < 4 {
				return nil, parseErr(off, ErrTruncatedInput)
			}
			v.Fixed = uint64(binary.LittleEndian.Uint32(b[off:]))
			off += 4
		case BytesType:
			l, n, err := DecodeVarint(b[off:])
			if err != nil {
				return nil, parseErr(off, err)
			}
			v.VarLen = n
			off += n
			if l < 0 || l > int64(len(b)-off) {
				return nil, parseErr(off, ErrTruncatedInput)
			}
			end := off + int(l)
			v.Bytes = b[off:end:end]
			off = end
		default:
			return nil, parseErr(start, ErrMalformedTag)
		}

		t.add(Number(uint64(tag)>>3), v)
	}
	t.size = off
	return t, nil
}

func (t *Tree) add(n Number, v Value) {
	if i, ok := t.index[n]; ok {
		t.fields[i].Values = append(t.fields[i].Values, v)
		return
	}
	t.index[n] = len(t.fields)
	t.fields = append(t.fields, Field{Number: n, Values: []Value{v}})
}

// Fields returns the occurrence map. Callers must treat it as read-only.
func (t *Tree) Fields() Fields { return t.fields }

// Len is the number of input bytes the parse consumed.
func (t *Tree) Len() int { return t.size }

// Empty reports whether the tree has no fields.
func (t *Tree) Empty() bool { return len(t.fields) == 0 }

// Lookup returns every occurrence of field n, or nil.
func (t *Tree) Lookup(n Number) []Value {
	if i, ok := t.index[n]; ok {
		return t.fields[i].Values
	}
	return nil
}

// Message parses the first length-delimited occurrence of field n.
func (t *Tree) Message(n Number) (*Tree, bool) {
	vals := t.Lookup(n)
	for i, v := range vals {
		if v.Type == BytesType {
			return t.MessageAt(n, i)
		}
	}
	return nil, false
}

// MessageAt parses occurrence i of field n as a nested message. The outcome,
// success or failure, is cached and returned unchanged on later calls.
func (t *Tree) MessageAt(n Number, i int) (*Tree, bool) {
	key := childKey{num: n, idx: i}
	if slot, ok := t.children[key]; ok {
		return slot.tree, slot.ok
	}
	vals := t.Lookup(n)
	if i < 0 || i >= len(vals) || vals[i].Type != BytesType {
		return nil, false
	}
	child, err := Parse(vals[i].Bytes)
	slot := childSlot{tree: child, ok: err == nil}
	if t.children == nil {
		t.children = make(map[childKey]childSlot)
	}
	t.children[key] = slot
	return slot.tree, slot.ok
}

// Text returns the raw bytes of the first length-delimited occurrence of
// field n as a string, printable or not.
func (t *Tree) Text(n Number) (string, bool) {
	for i, v := range t.Lookup(n) {
		if v.Type == BytesType {
			return t.TextAt(n, i)
		}
	}
	return "", false
}

// TextAt is Text for occurrence i.
func (t *Tree) TextAt(n Number, i int) (string, bool) {
	vals := t.Lookup(n)
	if i < 0 || i >= len(vals) || vals[i].Type != BytesType {
		return "", false
	}
	return string(vals[i].Bytes), true
}

// SizeInBytes is the re-encoded size of the tree.
func (t *Tree) SizeInBytes() int { return SizeInBytes(t.fields) }

// SizeInBytes recomputes the encoded length of an occurrence map using the
// varint widths Parse recorded, so for a parsed tree it always equals the
// number of bytes consumed, padded varints included.
func SizeInBytes(fields Fields) int {
	return encodedSize(fields, false)
}

// CanonicalSize is the length Encode produces for fields.
func CanonicalSize(fields Fields) int {
	return encodedSize(fields, true)
}

func encodedSize(fields Fields, canonical bool) int {
	total := 0
	for _, f := range fields {
		for _, v := range f.Values {
			total += v.size(f.Number, canonical)
		}
	}
	return total
}
