/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tree_test.go
Description: Tests for the schema-less tree parser, nested views and size recomputation.
*/

package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func sampleMessage() []byte {
	var inner []byte
	inner = protowire.AppendTag(inner, 1, protowire.VarintType)
	inner = protowire.AppendVarint(inner, 7)

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "hello")
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, 150)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)
	b = protowire.AppendTag(b, 4, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(1.5))
	b = protowire.AppendTag(b, 5, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 0x0102030405060708)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, 3)
	return b
}

func TestParseSingleString(t *testing.T) {
	tree, err := Parse([]byte{0x0a, 0x04, '0', '1', '2', '3'})
	require.NoError(t, err)
	require.Len(t, tree.Fields(), 1)
	assert.Equal(t, Number(1), tree.Fields()[0].Number)

	s, ok := tree.Text(1)
	require.True(t, ok)
	assert.Equal(t, "0123", s)
}

func TestParseRepeatedOccurrences(t *testing.T) {
	data := []byte{
		0x0a, 0x05, '0', '1', '2', '3', '4',
		0x0a, 0x04, 'a', 'b', 'c', 'd',
		0x0a, 0x03, 'X', 'Y', 'Z',
	}
	tree, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, tree.Fields(), 1)
	require.Len(t, tree.Lookup(1), 3)

	for i, want := range []string{"01234", "abcd", "XYZ"} {
		got, ok := tree.TextAt(1, i)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := tree.TextAt(1, 3)
	assert.False(t, ok)
	assert.Equal(t, len(data), tree.SizeInBytes())
}

func TestParseAllWireTypes(t *testing.T) {
	data := sampleMessage()
	tree, err := Parse(data)
	require.NoError(t, err)

	var order []Number
	for _, f := range tree.Fields() {
		order = append(order, f.Number)
	}
	assert.Equal(t, []Number{1, 2, 3, 4, 5}, order)

	ints := tree.Lookup(2)
	require.Len(t, ints, 2)
	assert.Equal(t, int64(150), ints[0].Int)
	assert.Equal(t, int64(3), ints[1].Int)

	assert.Equal(t, Fixed32Type, tree.Lookup(4)[0].Type)
	assert.Equal(t, uint64(math.Float32bits(1.5)), tree.Lookup(4)[0].Fixed)
	assert.Equal(t, uint64(0x0102030405060708), tree.Lookup(5)[0].Fixed)

	assert.Equal(t, len(data), tree.Len())
	assert.Equal(t, len(data), tree.SizeInBytes())
	assert.Equal(t, data, Encode(tree.Fields()))
}

func TestSizeInBytesCountsPaddedVarints(t *testing.T) {
	// 0x80 0x00 is zero in two bytes; 0x92 0x00 is tag 0x12 in two bytes.
	data := []byte{0x08, 0x80, 0x00, 0x92, 0x00, 0x02, 'h', 'i'}
	tree, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, 2, tree.Lookup(1)[0].VarLen)
	assert.Equal(t, 2, tree.Lookup(2)[0].TagLen)
	assert.Equal(t, len(data), tree.Len())
	assert.Equal(t, len(data), tree.SizeInBytes())

	assert.Equal(t, 6, CanonicalSize(tree.Fields()))
	assert.Equal(t, []byte{0x08, 0x00, 0x12, 0x02, 'h', 'i'}, Encode(tree.Fields()))
}

func TestParseEmpty(t *testing.T) {
	tree, err := Parse(nil)
	require.NoError(t, err)
	assert.True(t, tree.Empty())
	assert.Equal(t, 0, tree.SizeInBytes())
}

func TestParseAcceptsFieldZero(t *testing.T) {
	tree, err := Parse([]byte{0x00, 0x01})
	require.NoError(t, err)
	require.Len(t, tree.Fields(), 1)
	assert.Equal(t, Number(0), tree.Fields()[0].Number)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want error
	}{
		{"length past end", []byte{0x0a, 0x05, 'a', 'b'}, ErrTruncatedInput},
		{"missing varint value", []byte{0x08}, ErrTruncatedInput},
		{"short fixed32", []byte{0x0d, 0x01, 0x02}, ErrTruncatedInput},
		{"short fixed64", []byte{0x09, 0x01, 0x02, 0x03, 0x04}, ErrTruncatedInput},
		{"start group", []byte{0x0b, 0x0c}, ErrMalformedTag},
		{"end group", []byte{0x0c}, ErrMalformedTag},
		{"wire type 6", []byte{0x0e}, ErrMalformedTag},
		{"wire type 7", []byte{0x47}, ErrMalformedTag},
		{"overlong tag", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, ErrOverflow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tree, err := Parse(tc.data)
			assert.Nil(t, tree)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestParseDoesNotCopyInput(t *testing.T) {
	data := []byte{0x0a, 0x02, 'h', 'i'}
	tree, err := Parse(data)
	require.NoError(t, err)
	v := tree.Lookup(1)[0]
	assert.Equal(t, 2, cap(v.Bytes))
	assert.Same(t, &data[2], &v.Bytes[0])
}

func TestMessageViewIsCached(t *testing.T) {
	tree, err := Parse(sampleMessage())
	require.NoError(t, err)

	child, ok := tree.Message(3)
	require.True(t, ok)
	require.Len(t, child.Lookup(1), 1)
	assert.Equal(t, int64(7), child.Lookup(1)[0].Int)

	again, ok := tree.MessageAt(3, 0)
	require.True(t, ok)
	assert.Same(t, child, again)
}

func TestMessageViewFailures(t *testing.T) {
	tree, err := Parse(sampleMessage())
	require.NoError(t, err)

	_, ok := tree.Message(2)
	assert.False(t, ok, "varint field has no nested view")

	_, ok = tree.Message(99)
	assert.False(t, ok, "absent field")

	_, ok = tree.Message(1)
	assert.False(t, ok, "\"hello\" is not a message")
	_, ok = tree.MessageAt(1, 0)
	assert.False(t, ok, "failure is cached")
}
