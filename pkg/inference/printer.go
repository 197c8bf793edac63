/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: printer.go
Description: Renders a Schema as .proto-style text, one tab of indentation per nesting level.
*/

package inference

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Print writes s to w. Multiple files are separated by a blank line.
func Print(w io.Writer, s *Schema) error {
	bw := bufio.NewWriter(w)
	for i, f := range s.Files {
		if i > 0 {
			bw.WriteString("\n")
		}
		printFile(bw, f)
	}
	return bw.Flush()
}

func (s *Schema) String() string {
	var sb strings.Builder
	Print(&sb, s)
	return sb.String()
}

func printFile(w *bufio.Writer, f *File) {
	if f.Syntax == "proto3" {
		w.WriteString("syntax = \"proto3\";\n")
	}
	if f.Package != "" {
		w.WriteString("package " + f.Package + ";\n")
		if !f.Recovered {
			w.WriteString("\n")
		}
	}
	for _, e := range f.Enums {
		printEnum(w, e, 0)
	}
	for _, m := range f.Messages {
		printMessage(w, m, 0)
	}
}

func printEnum(w *bufio.Writer, e *Enum, depth int) {
	indent := strings.Repeat("\t", depth)
	w.WriteString(indent + "enum " + e.Name + " {\n")
	for _, v := range e.Values {
		w.WriteString(indent + "\t" + v.Name + " = " + strconv.FormatInt(int64(v.Number), 10) + ";\n")
	}
	w.WriteString(indent + "}\n")
}

func printMessage(w *bufio.Writer, m *Message, depth int) {
	indent := strings.Repeat("\t", depth)
	w.WriteString(indent + "message " + m.Name + " {\n")
	for _, e := range m.Enums {
		printEnum(w, e, depth+1)
	}
	for _, nested := range m.Messages {
		printMessage(w, nested, depth+1)
	}
	for _, f := range m.Fields {
		w.WriteString(indent + "\t" + declaration(f) + ";\n")
	}
	w.WriteString(indent + "}\n")
}

func declaration(f *Field) string {
	var sb strings.Builder
	if f.Label != LabelNone {
		sb.WriteString(f.Label.String())
		sb.WriteByte(' ')
	}
	sb.WriteString(f.TypeString())
	sb.WriteByte(' ')
	sb.WriteString(f.Name)
	sb.WriteString(" = ")
	sb.WriteString(strconv.FormatUint(uint64(f.Number), 10))
	if f.Default != "" {
		sb.WriteString(" [default = " + f.Default + "]")
	}
	return sb.String()
}
