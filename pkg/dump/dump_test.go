/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dump_test.go
Description: Tests for the debug tree rendering.
*/

package dump

import (
	"bytes"
	"testing"

	"github.com/kleascm/protodec/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestDumpRepeatedStrings(t *testing.T) {
	data := []byte{
		0x0a, 0x05, '0', '1', '2', '3', '4',
		0x0a, 0x04, 'a', 'b', 'c', 'd',
		0x0a, 0x03, 'X', 'Y', 'Z',
	}
	tree, err := wire.Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "1 [\n\t1: \"01234\"\n\t2: \"abcd\"\n\t3: \"XYZ\"\n]\n", String(tree))
}

func TestDumpScalarsAndNesting(t *testing.T) {
	inner := protowire.AppendTag(nil, 1, protowire.VarintType)
	inner = protowire.AppendVarint(inner, 7)
	inner = protowire.AppendTag(inner, 2, protowire.BytesType)
	inner = protowire.AppendString(inner, "x")

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 150)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)
	b = protowire.AppendTag(b, 3, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 0xdeadbeef)
	b = protowire.AppendTag(b, 4, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 1)
	b = protowire.AppendTag(b, 5, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte{0xff, 0x01})

	tree, err := wire.Parse(b)
	require.NoError(t, err)

	want := "1: 150\n" +
		"2 [\n" +
		"\t1: 7\n" +
		"\t2: \"x\"\n" +
		"]\n" +
		"3: 0xdeadbeef\n" +
		"4: 0x0000000000000001\n" +
		"5: \"\\xff\\x01\"\n"
	assert.Equal(t, want, String(tree))

	var buf bytes.Buffer
	require.NoError(t, Tree(&buf, tree))
	assert.Equal(t, want, buf.String())
}

func TestDumpRepeatedNestedMessages(t *testing.T) {
	inner := protowire.AppendTag(nil, 1, protowire.VarintType)
	inner = protowire.AppendVarint(inner, 1)

	var b []byte
	for i := 0; i < 2; i++ {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	}
	tree, err := wire.Parse(b)
	require.NoError(t, err)

	want := "4 [\n" +
		"\t1 [\n" +
		"\t\t1: 1\n" +
		"\t]\n" +
		"\t2 [\n" +
		"\t\t1: 1\n" +
		"\t]\n" +
		"]\n"
	assert.Equal(t, want, String(tree))
}
