/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dump.go
Description: Line-oriented debug rendering of a parsed tree. Text values are quoted,
nested messages open a bracketed block indented one tab deeper, and fields seen more
than once list each occurrence under a 1-based index.
*/

package dump

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kleascm/protodec/pkg/heuristics"
	"github.com/kleascm/protodec/pkg/wire"
)

// MaxDepth caps nested rendering; deeper messages print as quoted bytes.
const MaxDepth = 64

// Tree writes the debug rendering of t to w.
func Tree(w io.Writer, t *wire.Tree) error {
	bw := bufio.NewWriter(w)
	p := &printer{w: bw}
	p.tree(t, 0)
	return bw.Flush()
}

// String returns the debug rendering of t.
func String(t *wire.Tree) string {
	var sb strings.Builder
	p := &printer{w: &sb}
	p.tree(t, 0)
	return sb.String()
}

type printer struct {
	w io.StringWriter
}

func (p *printer) line(depth int, s string) {
	p.w.WriteString(strings.Repeat("\t", depth))
	p.w.WriteString(s)
	p.w.WriteString("\n")
}

func (p *printer) tree(t *wire.Tree, depth int) {
	for _, f := range t.Fields() {
		if len(f.Values) == 1 {
			p.value(t, f.Number, 0, strconv.FormatUint(uint64(f.Number), 10), depth)
			continue
		}
		p.line(depth, fmt.Sprintf("%d [", f.Number))
		for i := range f.Values {
			p.value(t, f.Number, i, strconv.Itoa(i+1), depth+1)
		}
		p.line(depth, "]")
	}
}

func (p *printer) value(t *wire.Tree, n wire.Number, i int, label string, depth int) {
	v := t.Lookup(n)[i]
	switch v.Type {
	case wire.VarintType:
		p.line(depth, label+": "+strconv.FormatInt(v.Int, 10))
	case wire.Fixed32Type:
		p.line(depth, fmt.Sprintf("%s: 0x%08x", label, v.Fixed))
	case wire.Fixed64Type:
		p.line(depth, fmt.Sprintf("%s: 0x%016x", label, v.Fixed))
	case wire.BytesType:
		if heuristics.IsASCIIText(v.Bytes) || depth >= MaxDepth || !heuristics.IsNestedMessage(t, n, i) {
			p.line(depth, label+": "+strconv.Quote(string(v.Bytes)))
			return
		}
		child, _ := t.MessageAt(n, i)
		p.line(depth, label+" [")
		p.tree(child, depth+1)
		p.line(depth, "]")
	}
}
