/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: schema.go
Description: Schema model shared by structural inference and descriptor recovery.
*/

package inference

import "github.com/kleascm/protodec/pkg/wire"

// Label is a field's cardinality.
type Label int

const (
	// LabelNone is the implicit singular label of proto3 fields.
	LabelNone Label = iota
	LabelRequired
	LabelOptional
	LabelRepeated
)

func (l Label) String() string {
	switch l {
	case LabelRequired:
		return "required"
	case LabelOptional:
		return "optional"
	case LabelRepeated:
		return "repeated"
	default:
		return ""
	}
}

// Kind is a field's value type.
type Kind int

const (
	KindBytes Kind = iota
	KindString
	KindInt32
	KindInt64
	KindUint32
	KindUint64
	KindSint32
	KindSint64
	KindFixed32
	KindFixed64
	KindSfixed32
	KindSfixed64
	KindFloat
	KindDouble
	KindBool
	KindMessage
	KindEnum
	KindGroup
)

var kindNames = map[Kind]string{
	KindBytes:    "bytes",
	KindString:   "string",
	KindInt32:    "int32",
	KindInt64:    "int64",
	KindUint32:   "uint32",
	KindUint64:   "uint64",
	KindSint32:   "sint32",
	KindSint64:   "sint64",
	KindFixed32:  "fixed32",
	KindFixed64:  "fixed64",
	KindSfixed32: "sfixed32",
	KindSfixed64: "sfixed64",
	KindFloat:    "float",
	KindDouble:   "double",
	KindBool:     "bool",
	KindMessage:  "message",
	KindEnum:     "enum",
	KindGroup:    "group",
}

func (k Kind) String() string { return kindNames[k] }

// Field is one declared field of a message.
type Field struct {
	Number   wire.Number `json:"number" yaml:"number"`
	Name     string      `json:"name" yaml:"name"`
	Label    Label       `json:"label" yaml:"label"`
	Kind     Kind        `json:"kind" yaml:"kind"`
	TypeName string      `json:"type_name,omitempty" yaml:"type_name,omitempty"`
	Default  string      `json:"default,omitempty" yaml:"default,omitempty"`
}

// TypeString is the type as written in a field declaration.
func (f *Field) TypeString() string {
	switch f.Kind {
	case KindMessage, KindEnum, KindGroup:
		return f.TypeName
	default:
		return f.Kind.String()
	}
}

type EnumValue struct {
	Name   string `json:"name" yaml:"name"`
	Number int32  `json:"number" yaml:"number"`
}

type Enum struct {
	Name   string      `json:"name" yaml:"name"`
	Values []EnumValue `json:"values" yaml:"values"`
}

// Message owns its nested declarations and fields in discovery order.
type Message struct {
	Name     string     `json:"name" yaml:"name"`
	Enums    []*Enum    `json:"enums,omitempty" yaml:"enums,omitempty"`
	Messages []*Message `json:"messages,omitempty" yaml:"messages,omitempty"`
	Fields   []*Field   `json:"fields" yaml:"fields"`
}

// File is one printable schema unit.
type File struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Syntax  string `json:"syntax,omitempty" yaml:"syntax,omitempty"`
	Package string `json:"package,omitempty" yaml:"package,omitempty"`
	// Recovered is set when names come from descriptor metadata.
	Recovered bool       `json:"recovered" yaml:"recovered"`
	Enums     []*Enum    `json:"enums,omitempty" yaml:"enums,omitempty"`
	Messages  []*Message `json:"messages" yaml:"messages"`
}

// Schema is the result of one inference pass.
type Schema struct {
	Files []*File `json:"files" yaml:"files"`
}

// Messages counts every message declared in the schema, nested ones included.
func (s *Schema) Messages() int {
	var count func([]*Message) int
	count = func(ms []*Message) int {
		n := len(ms)
		for _, m := range ms {
			n += count(m.Messages)
		}
		return n
	}
	total := 0
	for _, f := range s.Files {
		total += count(f.Messages)
	}
	return total
}

func (l Label) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }
