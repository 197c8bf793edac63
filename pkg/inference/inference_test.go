/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: inference_test.go
Description: Tests for structural inference, descriptor recovery and schema printing.
*/

package inference

import (
	"bytes"
	"testing"

	"github.com/kleascm/protodec/internal/testdata"
	"github.com/kleascm/protodec/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

func parse(t *testing.T, b []byte) *wire.Tree {
	t.Helper()
	tree, err := wire.Parse(b)
	require.NoError(t, err)
	return tree
}

func TestInferSingleString(t *testing.T) {
	tree := parse(t, []byte{0x0a, 0x04, '0', '1', '2', '3'})
	want := "package ProtodecMessages;\n" +
		"\n" +
		"message MSG1 {\n" +
		"\trequired string fld1 = 1;\n" +
		"}\n"
	assert.Equal(t, want, InferSchema("", []*wire.Tree{tree}).String())
}

func TestInferRepeatedString(t *testing.T) {
	tree := parse(t, []byte{
		0x0a, 0x05, '0', '1', '2', '3', '4',
		0x0a, 0x04, 'a', 'b', 'c', 'd',
		0x0a, 0x03, 'X', 'Y', 'Z',
	})
	want := "package ProtodecMessages;\n" +
		"\n" +
		"message MSG1 {\n" +
		"\trepeated string fld1 = 1;\n" +
		"}\n"
	assert.Equal(t, want, InferSchema(DefaultPackage, []*wire.Tree{tree}).String())
}

func TestInferNestedMessagesArePostOrder(t *testing.T) {
	inner := protowire.AppendTag(nil, 1, protowire.VarintType)
	inner = protowire.AppendVarint(inner, 7)

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "abc")
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, 150)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)

	want := "package ProtodecMessages;\n" +
		"\n" +
		"message MSG1 {\n" +
		"\trequired int32 fld1 = 1;\n" +
		"}\n" +
		"message MSG2 {\n" +
		"\trequired string fld1 = 1;\n" +
		"\trequired int32 fld2 = 2;\n" +
		"\trequired MSG1 fld3 = 3;\n" +
		"}\n"
	assert.Equal(t, want, InferSchema("", []*wire.Tree{parse(t, b)}).String())
}

func TestInferIdenticalShapesShareName(t *testing.T) {
	inner := protowire.AppendTag(nil, 1, protowire.Fixed32Type)
	inner = protowire.AppendFixed32(inner, 9)

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)

	s := InferSchema("", []*wire.Tree{parse(t, b)})
	require.Len(t, s.Files, 1)
	require.Len(t, s.Files[0].Messages, 2)
	top := s.Files[0].Messages[1]
	assert.Equal(t, "MSG2", top.Name)
	assert.Equal(t, "MSG1", top.Fields[0].TypeName)
	assert.Equal(t, "MSG1", top.Fields[1].TypeName)
	assert.Equal(t, KindFixed32, s.Files[0].Messages[0].Fields[0].Kind)
}

func TestInferCardinalityAcrossInstances(t *testing.T) {
	one := protowire.AppendTag(nil, 1, protowire.VarintType)
	one = protowire.AppendVarint(one, 1)
	one = protowire.AppendTag(one, 2, protowire.Fixed64Type)
	one = protowire.AppendFixed64(one, 2)

	two := protowire.AppendTag(nil, 1, protowire.VarintType)
	two = protowire.AppendVarint(two, 1<<40)
	two = protowire.AppendTag(two, 3, protowire.VarintType)
	two = protowire.AppendVarint(two, 1)
	two = protowire.AppendTag(two, 3, protowire.VarintType)
	two = protowire.AppendVarint(two, 2)

	want := "package demo;\n" +
		"\n" +
		"message MSG1 {\n" +
		"\trequired int64 fld1 = 1;\n" +
		"\toptional fixed64 fld2 = 2;\n" +
		"\trepeated int32 fld3 = 3;\n" +
		"}\n"
	s := InferSchema("demo", []*wire.Tree{parse(t, one), parse(t, two)})
	assert.Equal(t, want, s.String())
}

func TestInferBytesFallbacks(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte{0xff, 0x00})
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, "x")

	s := InferSchema("", []*wire.Tree{parse(t, b)})
	fields := s.Files[0].Messages[0].Fields
	require.Len(t, fields, 2)
	assert.Equal(t, KindBytes, fields[0].Kind)
	assert.Equal(t, KindBytes, fields[1].Kind, "mixed wire types")
	assert.Equal(t, LabelRepeated, fields[1].Label)
}

func TestRegistryIsPerInvocation(t *testing.T) {
	tree := parse(t, []byte{0x08, 0x01})
	first := InferSchema("", []*wire.Tree{tree})
	second := InferSchema("", []*wire.Tree{tree})
	assert.Equal(t, "MSG1", first.Files[0].Messages[0].Name)
	assert.Equal(t, "MSG1", second.Files[0].Messages[0].Name)
}

func TestDescriptorRecovery(t *testing.T) {
	files, ok := DecodeDescriptors(testdata.AddressBook)
	require.True(t, ok)
	require.Len(t, files, 1)
	assert.Equal(t, "addressbook.proto", files[0].GetName())

	s, err := NewDescriptorEngine().InferStructure([][]byte{testdata.AddressBook})
	require.NoError(t, err)
	assert.Equal(t, testdata.AddressBookSchema, s.String())
	assert.Equal(t, 3, s.Messages())
}

func TestDescriptorSetAndProto3(t *testing.T) {
	fd := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("point.proto"),
		Package: proto.String("geo"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("Point"),
			Field: []*descriptorpb.FieldDescriptorProto{
				{
					Name:   proto.String("x"),
					Number: proto.Int32(1),
					Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					Type:   descriptorpb.FieldDescriptorProto_TYPE_SINT32.Enum(),
				},
				{
					Name:   proto.String("tags"),
					Number: proto.Int32(2),
					Label:  descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
					Type:   descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
				},
			},
		}},
	}
	set := &descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{fd}}
	raw, err := proto.Marshal(set)
	require.NoError(t, err)

	_, ok := DecodeDescriptor(raw)
	assert.False(t, ok, "a set is not a single file")

	s, err := NewEngine(ModeAuto, "").InferStructure([][]byte{raw})
	require.NoError(t, err)
	want := "syntax = \"proto3\";\n" +
		"package geo;\n" +
		"message Point {\n" +
		"\tsint32 x = 1;\n" +
		"\trepeated string tags = 2;\n" +
		"}\n"
	assert.Equal(t, want, s.String())
}

func TestDescriptorStringDefault(t *testing.T) {
	fd := &descriptorpb.FileDescriptorProto{
		Name: proto.String("greeting.proto"),
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("Greeting"),
			Field: []*descriptorpb.FieldDescriptorProto{{
				Name:         proto.String("text"),
				Number:       proto.Int32(1),
				Label:        descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
				Type:         descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
				DefaultValue: proto.String("hi"),
			}},
		}},
	}
	raw, err := proto.Marshal(fd)
	require.NoError(t, err)

	s, err := NewDescriptorEngine().InferStructure([][]byte{raw})
	require.NoError(t, err)
	assert.Equal(t, "message Greeting {\n\toptional string text = 1 [default = \"hi\"];\n}\n", s.String())
}

func TestAutoKeepsOrdinaryMessagesStructural(t *testing.T) {
	inner := protowire.AppendTag(nil, 1, protowire.BytesType)
	inner = protowire.AppendString(inner, "apple")
	inner = protowire.AppendTag(inner, 2, protowire.VarintType)
	inner = protowire.AppendVarint(inner, 3)

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "order-17")
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)

	_, ok := DecodeDescriptors(b)
	assert.False(t, ok)

	s, err := NewEngine(ModeAuto, "").InferStructure([][]byte{b})
	require.NoError(t, err)
	want := "package ProtodecMessages;\n" +
		"\n" +
		"message MSG1 {\n" +
		"\trequired string fld1 = 1;\n" +
		"\trequired int32 fld2 = 2;\n" +
		"}\n" +
		"message MSG2 {\n" +
		"\trequired string fld1 = 1;\n" +
		"\trequired MSG1 fld4 = 4;\n" +
		"}\n"
	assert.Equal(t, want, s.String())
}

func TestDecodeDescriptorRejectsLookalikes(t *testing.T) {
	field := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String("id"),
		Number: proto.Int32(1),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   descriptorpb.FieldDescriptorProto_TYPE_INT32.Enum(),
	}
	file := func(name string, f *descriptorpb.FieldDescriptorProto) []byte {
		raw, err := proto.Marshal(&descriptorpb.FileDescriptorProto{
			Name: proto.String(name),
			MessageType: []*descriptorpb.DescriptorProto{{
				Name:  proto.String("Item"),
				Field: []*descriptorpb.FieldDescriptorProto{f},
			}},
		})
		require.NoError(t, err)
		return raw
	}

	_, ok := DecodeDescriptor(file("item.proto", field))
	assert.True(t, ok)

	_, ok = DecodeDescriptor(file("item", field))
	assert.False(t, ok, "name without .proto suffix")

	untyped := proto.Clone(field).(*descriptorpb.FieldDescriptorProto)
	untyped.Type = nil
	_, ok = DecodeDescriptor(file("item.proto", untyped))
	assert.False(t, ok, "field without a type")

	unnumbered := proto.Clone(field).(*descriptorpb.FieldDescriptorProto)
	unnumbered.Number = nil
	_, ok = DecodeDescriptor(file("item.proto", unnumbered))
	assert.False(t, ok, "field without a number")

	// Field 2 (package) sent as a varint does not match the descriptor schema.
	extra := protowire.AppendTag(file("item.proto", field), 2, protowire.VarintType)
	extra = protowire.AppendVarint(extra, 5)
	_, ok = DecodeDescriptor(extra)
	assert.False(t, ok, "unknown fields")
}

func TestEngines(t *testing.T) {
	assert.Nil(t, NewEngine("json", ""))
	assert.Equal(t, ModeStructural, NewEngine(ModeStructural, "").Format())
	assert.Equal(t, ModeDescriptor, NewEngine(ModeDescriptor, "").Format())
	assert.Equal(t, ModeAuto, NewEngine("", "").Format())

	_, err := NewEngine(ModeAuto, "").InferStructure(nil)
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = NewDescriptorEngine().InferStructure([][]byte{{0x08, 0x01}})
	assert.ErrorIs(t, err, ErrNotDescriptor)

	_, err = NewStructuralEngine("").InferStructure([][]byte{{0x0a, 0x09}})
	assert.ErrorIs(t, err, wire.ErrTruncatedInput)

	s, err := NewEngine(ModeAuto, "custom").InferStructure([][]byte{{0x08, 0x01}})
	require.NoError(t, err)
	assert.Equal(t, "package custom;\n\nmessage MSG1 {\n\trequired int32 fld1 = 1;\n}\n", s.String())

	s, err = NewEngine(ModeStructural, "").InferStructure([][]byte{testdata.AddressBook})
	require.NoError(t, err)
	assert.False(t, s.Files[0].Recovered)
	assert.Equal(t, DefaultPackage, s.Files[0].Package)
}

func TestPrintWritesSameAsString(t *testing.T) {
	s := InferSchema("", []*wire.Tree{parse(t, []byte{0x08, 0x01})})
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, s))
	assert.Equal(t, s.String(), buf.String())
}
