/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: descriptor.go
Description: Descriptor recovery. When a capture is itself a serialized FileDescriptorProto
(or a FileDescriptorSet) the real message, field and enum names are available, along with
labels and default values, and the schema is rebuilt from them instead of guessed.
*/

package inference

import (
	"strconv"
	"strings"

	"github.com/kleascm/protodec/pkg/heuristics"
	"github.com/kleascm/protodec/pkg/wire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

var scalarKinds = map[descriptorpb.FieldDescriptorProto_Type]Kind{
	descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:   KindDouble,
	descriptorpb.FieldDescriptorProto_TYPE_FLOAT:    KindFloat,
	descriptorpb.FieldDescriptorProto_TYPE_INT64:    KindInt64,
	descriptorpb.FieldDescriptorProto_TYPE_UINT64:   KindUint64,
	descriptorpb.FieldDescriptorProto_TYPE_INT32:    KindInt32,
	descriptorpb.FieldDescriptorProto_TYPE_FIXED64:  KindFixed64,
	descriptorpb.FieldDescriptorProto_TYPE_FIXED32:  KindFixed32,
	descriptorpb.FieldDescriptorProto_TYPE_BOOL:     KindBool,
	descriptorpb.FieldDescriptorProto_TYPE_STRING:   KindString,
	descriptorpb.FieldDescriptorProto_TYPE_GROUP:    KindGroup,
	descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:  KindMessage,
	descriptorpb.FieldDescriptorProto_TYPE_BYTES:    KindBytes,
	descriptorpb.FieldDescriptorProto_TYPE_UINT32:   KindUint32,
	descriptorpb.FieldDescriptorProto_TYPE_ENUM:     KindEnum,
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED32: KindSfixed32,
	descriptorpb.FieldDescriptorProto_TYPE_SFIXED64: KindSfixed64,
	descriptorpb.FieldDescriptorProto_TYPE_SINT32:   KindSint32,
	descriptorpb.FieldDescriptorProto_TYPE_SINT64:   KindSint64,
}

// DecodeDescriptors returns the file descriptors serialized in b, either a
// single FileDescriptorProto or a FileDescriptorSet.
func DecodeDescriptors(b []byte) ([]*descriptorpb.FileDescriptorProto, bool) {
	if fd, ok := DecodeDescriptor(b); ok {
		return []*descriptorpb.FileDescriptorProto{fd}, true
	}
	set := &descriptorpb.FileDescriptorSet{}
	if len(b) == 0 || proto.Unmarshal(b, set) != nil || !known(set) || len(set.GetFile()) == 0 {
		return nil, false
	}
	for _, fd := range set.GetFile() {
		if !plausibleFile(fd) {
			return nil, false
		}
	}
	return set.GetFile(), true
}

// DecodeDescriptor reports whether b looks like a FileDescriptorProto and
// returns it decoded. Field 1 must name a .proto file, every declared type
// must be named and nothing in the tree may land in unknown fields.
func DecodeDescriptor(b []byte) (*descriptorpb.FileDescriptorProto, bool) {
	t, err := wire.Parse(b)
	if err != nil || t.Empty() || !heuristics.ValidTree(t) {
		return nil, false
	}
	name, ok := t.Text(1)
	if !ok || !strings.HasSuffix(name, ".proto") {
		return nil, false
	}
	fd := &descriptorpb.FileDescriptorProto{}
	if err := proto.Unmarshal(b, fd); err != nil {
		return nil, false
	}
	if !plausibleFile(fd) {
		return nil, false
	}
	return fd, true
}

// known reports whether m decoded without unknown fields. Wire type
// mismatches against the descriptor schema end up there instead of failing.
func known(m proto.Message) bool {
	return len(m.ProtoReflect().GetUnknown()) == 0
}

func plausibleFile(fd *descriptorpb.FileDescriptorProto) bool {
	name := fd.GetName()
	if !strings.HasSuffix(name, ".proto") || !heuristics.IsASCIIText([]byte(name)) || !known(fd) {
		return false
	}
	if len(fd.GetMessageType())+len(fd.GetEnumType()) == 0 {
		return false
	}
	for _, m := range fd.GetMessageType() {
		if !plausibleMessage(m) {
			return false
		}
	}
	for _, e := range fd.GetEnumType() {
		if !plausibleEnum(e) {
			return false
		}
	}
	return true
}

func plausibleMessage(md *descriptorpb.DescriptorProto) bool {
	if md.GetName() == "" || !known(md) {
		return false
	}
	for _, f := range md.GetField() {
		if f.GetName() == "" || f.Number == nil || f.GetNumber() < 1 || !known(f) {
			return false
		}
		if f.Type == nil && f.GetTypeName() == "" {
			return false
		}
	}
	for _, nested := range md.GetNestedType() {
		if !plausibleMessage(nested) {
			return false
		}
	}
	for _, e := range md.GetEnumType() {
		if !plausibleEnum(e) {
			return false
		}
	}
	return true
}

func plausibleEnum(ed *descriptorpb.EnumDescriptorProto) bool {
	if ed.GetName() == "" || !known(ed) {
		return false
	}
	for _, v := range ed.GetValue() {
		if v.GetName() == "" || !known(v) {
			return false
		}
	}
	return true
}

// FileFromDescriptor converts a file descriptor into the schema model.
func FileFromDescriptor(fd *descriptorpb.FileDescriptorProto) *File {
	proto3 := fd.GetSyntax() == "proto3"
	f := &File{
		Name:      fd.GetName(),
		Syntax:    fd.GetSyntax(),
		Package:   fd.GetPackage(),
		Recovered: true,
	}
	for _, e := range fd.GetEnumType() {
		f.Enums = append(f.Enums, enumFromDescriptor(e))
	}
	for _, m := range fd.GetMessageType() {
		f.Messages = append(f.Messages, messageFromDescriptor(m, proto3))
	}
	return f
}

func enumFromDescriptor(ed *descriptorpb.EnumDescriptorProto) *Enum {
	e := &Enum{Name: ed.GetName()}
	for _, v := range ed.GetValue() {
		e.Values = append(e.Values, EnumValue{Name: v.GetName(), Number: v.GetNumber()})
	}
	return e
}

func messageFromDescriptor(md *descriptorpb.DescriptorProto, proto3 bool) *Message {
	m := &Message{Name: md.GetName()}
	for _, e := range md.GetEnumType() {
		m.Enums = append(m.Enums, enumFromDescriptor(e))
	}
	for _, nested := range md.GetNestedType() {
		m.Messages = append(m.Messages, messageFromDescriptor(nested, proto3))
	}
	for _, fdp := range md.GetField() {
		m.Fields = append(m.Fields, fieldFromDescriptor(fdp, proto3))
	}
	return m
}

func fieldFromDescriptor(fdp *descriptorpb.FieldDescriptorProto, proto3 bool) *Field {
	f := &Field{
		Number:   wire.Number(fdp.GetNumber()),
		Name:     fdp.GetName(),
		TypeName: fdp.GetTypeName(),
	}

	switch fdp.GetLabel() {
	case descriptorpb.FieldDescriptorProto_LABEL_REQUIRED:
		f.Label = LabelRequired
	case descriptorpb.FieldDescriptorProto_LABEL_REPEATED:
		f.Label = LabelRepeated
	default:
		f.Label = LabelOptional
		if proto3 && !fdp.GetProto3Optional() {
			f.Label = LabelNone
		}
	}

	if kind, ok := scalarKinds[fdp.GetType()]; ok && fdp.Type != nil {
		f.Kind = kind
	} else if f.TypeName != "" {
		f.Kind = KindMessage
	}

	if fdp.DefaultValue != nil {
		switch f.Kind {
		case KindString:
			f.Default = strconv.Quote(fdp.GetDefaultValue())
		case KindBytes:
			f.Default = "\"" + fdp.GetDefaultValue() + "\""
		default:
			f.Default = fdp.GetDefaultValue()
		}
	}
	return f
}
