/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: structural.go
Description: Structural schema inference over parsed trees. Every field is examined across
all sibling instances at once: wire types and payloads decide its type, per-instance
occurrence counts decide its cardinality. Nested messages are inferred before their parent
and deduplicated by signature, so identical shapes share one synthesized name.
*/

package inference

import (
	"fmt"
	"math"
	"strings"

	"github.com/kleascm/protodec/pkg/heuristics"
	"github.com/kleascm/protodec/pkg/wire"
)

// DefaultPackage is the package header of synthesized schemas.
const DefaultPackage = "ProtodecMessages"

// maxNesting bounds recursion into submessages; deeper payloads stay bytes.
const maxNesting = 100

// InferSchema infers one message type from trees, which are taken to be
// instances of the same top-level message.
func InferSchema(pkg string, trees []*wire.Tree) *Schema {
	if pkg == "" {
		pkg = DefaultPackage
	}
	r := newRegistry()
	if len(trees) > 0 {
		r.infer(trees, 0)
	}
	return &Schema{Files: []*File{{Package: pkg, Messages: r.order}}}
}

// registry is the per-invocation set of synthesized messages, keyed by
// signature. Its size also drives name numbering.
type registry struct {
	bySig map[string]*Message
	order []*Message
}

func newRegistry() *registry {
	return &registry{bySig: make(map[string]*Message)}
}

// occurrence locates one value inside its owning tree so the tree's cached
// child view can be reused.
type occurrence struct {
	tree  *wire.Tree
	index int
	value wire.Value
}

// fieldInfo gathers one field number across all instances.
type fieldInfo struct {
	number   wire.Number
	present  int
	repeated bool
	values   []occurrence
}

func (r *registry) infer(instances []*wire.Tree, depth int) *Message {
	var infos []*fieldInfo
	byNumber := make(map[wire.Number]*fieldInfo)
	for _, t := range instances {
		for _, f := range t.Fields() {
			info, ok := byNumber[f.Number]
			if !ok {
				info = &fieldInfo{number: f.Number}
				byNumber[f.Number] = info
				infos = append(infos, info)
			}
			info.present++
			if len(f.Values) > 1 {
				info.repeated = true
			}
			for i, v := range f.Values {
				info.values = append(info.values, occurrence{tree: t, index: i, value: v})
			}
		}
	}

	fields := make([]*Field, 0, len(infos))
	for _, info := range infos {
		kind, typeName := r.classify(info, depth)
		fields = append(fields, &Field{
			Number:   info.number,
			Name:     fmt.Sprintf("fld%d", info.number),
			Label:    cardinality(info, len(instances)),
			Kind:     kind,
			TypeName: typeName,
		})
	}

	sig := signature(fields)
	if m, ok := r.bySig[sig]; ok {
		return m
	}
	m := &Message{Name: fmt.Sprintf("MSG%d", len(r.order)+1), Fields: fields}
	r.bySig[sig] = m
	r.order = append(r.order, m)
	return m
}

func cardinality(info *fieldInfo, instances int) Label {
	switch {
	case info.repeated:
		return LabelRepeated
	case info.present == instances:
		return LabelRequired
	default:
		return LabelOptional
	}
}

// classify picks a field's type from all of its occurrences.
func (r *registry) classify(info *fieldInfo, depth int) (Kind, string) {
	typ := info.values[0].value.Type
	for _, o := range info.values[1:] {
		if o.value.Type != typ {
			return KindBytes, ""
		}
	}

	switch typ {
	case wire.VarintType:
		for _, o := range info.values {
			if o.value.Int < math.MinInt32 || o.value.Int > math.MaxInt32 {
				return KindInt64, ""
			}
		}
		return KindInt32, ""
	case wire.Fixed32Type:
		return KindFixed32, ""
	case wire.Fixed64Type:
		return KindFixed64, ""
	}

	text := true
	for _, o := range info.values {
		if !heuristics.IsASCIIText(o.value.Bytes) {
			text = false
			break
		}
	}
	if text {
		return KindString, ""
	}
	if depth >= maxNesting {
		return KindBytes, ""
	}

	children := make([]*wire.Tree, 0, len(info.values))
	for _, o := range info.values {
		child, ok := o.tree.MessageAt(info.number, o.index)
		if !ok || !heuristics.ValidTree(child) {
			return KindBytes, ""
		}
		children = append(children, child)
	}
	m := r.infer(children, depth+1)
	return KindMessage, m.Name
}

// signature identifies a message shape by its ordered field declarations.
func signature(fields []*Field) string {
	var sb strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&sb, "%d:%d:%s;", f.Number, f.Label, f.TypeString())
	}
	return sb.String()
}
