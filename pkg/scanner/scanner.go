/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: scanner.go
Description: Locates serialized messages embedded in arbitrary binary data. Candidate start
offsets are tried left to right; at each one the longest span that satisfies the validity
oracle wins. Serialized file descriptors outrank plain messages, since printable filler
routinely parses as a short message. Only field boundaries reached by walking forward
from the start can end a successful parse, so those are the only trial ends considered.
*/

package scanner

import (
	"bytes"

	"github.com/kleascm/protodec/pkg/heuristics"
	"github.com/kleascm/protodec/pkg/inference"
	"github.com/kleascm/protodec/pkg/wire"
)

// Span is a half-open byte range [Start, End) within the scanned buffer.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len is the number of bytes covered.
func (s Span) Len() int { return s.End - s.Start }

// Options tunes a scan.
type Options struct {
	// MinSize drops spans shorter than this many bytes. Values below 1 mean 1.
	MinSize int
}

func (o Options) minSize() int {
	if o.MinSize < 1 {
		return 1
	}
	return o.MinSize
}

// FindEmbeddedMessage returns the first serialized file descriptor in buf.
// Without one it falls back to the lowest offset at which some non-empty span
// validates, paired with the longest such span.
func FindEmbeddedMessage(buf []byte) (Span, bool) {
	return Find(buf, Options{})
}

// Find is FindEmbeddedMessage with options.
func Find(buf []byte, opts Options) (Span, bool) {
	return findRange(buf, 0, len(buf), opts)
}

// FindAll returns successive non-overlapping spans. After each hit the scan
// resumes at that span's end. Each step follows the Find ordering, so a
// descriptor later in the remaining range wins over an earlier plain message.
func FindAll(buf []byte, opts Options) []Span {
	var spans []Span
	for from := 0; from < len(buf); {
		s, ok := findRange(buf, from, len(buf), opts)
		if !ok {
			break
		}
		spans = append(spans, s)
		from = s.End
	}
	return spans
}

// LongestAt returns the longest valid span starting exactly at start.
func LongestAt(buf []byte, start int, opts Options) (Span, bool) {
	if start < 0 || start >= len(buf) {
		return Span{}, false
	}
	minLen := opts.minSize()
	ends := boundaries(buf, start)
	for i := len(ends) - 1; i >= 0; i-- {
		end := ends[i]
		if end-start < minLen {
			break
		}
		if heuristics.IsValidMessage(buf[start:end]) {
			return Span{Start: start, End: end}, true
		}
	}
	return Span{}, false
}

// DescriptorAt returns the longest span starting exactly at start that
// decodes as a serialized FileDescriptorProto.
func DescriptorAt(buf []byte, start int, opts Options) (Span, bool) {
	if start < 0 || start >= len(buf) || !fileNameAt(buf[start:]) {
		return Span{}, false
	}
	minLen := opts.minSize()
	ends := boundaries(buf, start)
	for i := len(ends) - 1; i >= 0; i-- {
		end := ends[i]
		if end-start < minLen {
			break
		}
		if _, ok := inference.DecodeDescriptor(buf[start:end]); ok {
			return Span{Start: start, End: end}, true
		}
	}
	return Span{}, false
}

// fileNameAt reports whether b opens with field 1 holding a .proto file name,
// the first field protoc writes for every file descriptor.
func fileNameAt(b []byte) bool {
	if len(b) < 2 || b[0] != 0x0a {
		return false
	}
	l, n, err := wire.DecodeVarint(b[1:])
	if err != nil || l < int64(len(protoSuffix)) || l > int64(len(b)-1-n) {
		return false
	}
	name := b[1+n : 1+n+int(l)]
	return bytes.HasSuffix(name, protoSuffix) && heuristics.IsASCIIText(name)
}

var protoSuffix = []byte(".proto")

// findRange tries start offsets in [from, to), descriptors first.
func findRange(buf []byte, from, to int, opts Options) (Span, bool) {
	if s, ok := firstAt(buf, from, to, opts, DescriptorAt); ok {
		return s, true
	}
	return firstAt(buf, from, to, opts, LongestAt)
}

func firstAt(buf []byte, from, to int, opts Options, at func([]byte, int, Options) (Span, bool)) (Span, bool) {
	for start := from; start < to; start++ {
		if s, ok := at(buf, start, opts); ok {
			return s, true
		}
	}
	return Span{}, false
}

// boundaries walks fields forward from start and records the offset after
// each complete field. The walk stops at the first field that cannot be read.
func boundaries(buf []byte, start int) []int {
	var ends []int
	off := start
	for off < len(buf) {
		tag, n, err := wire.DecodeVarint(buf[off:])
		if err != nil {
			break
		}
		next := off + n
		switch wire.Type(uint64(tag) & 7) {
		case wire.VarintType:
			_, n, err := wire.DecodeVarint(buf[next:])
			if err != nil {
				return ends
			}
			next += n
		case wire.Fixed64Type:
			next += 8
		case wire.Fixed32Type:
			next += 4
		case wire.BytesType:
			l, n, err := wire.DecodeVarint(buf[next:])
			if err != nil || l < 0 {
				return ends
			}
			next += n
			if l > int64(len(buf)-next) {
				return ends
			}
			next += int(l)
		default:
			return ends
		}
		if next > len(buf) {
			break
		}
		off = next
		ends = append(ends, off)
	}
	return ends
}
