/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: encode.go
Description: Canonical re-encoding of an occurrence map, the counterpart of CanonicalSize.
*/

package wire

import "encoding/binary"

// Encode serializes fields in occurrence order with minimal varints. Padded
// varints in the input come out at their minimal width; nested messages are
// copied as read.
func Encode(fields Fields) []byte {
	b := make([]byte, 0, CanonicalSize(fields))
	for _, f := range fields {
		for _, v := range f.Values {
			b = AppendVarint(b, int64(v.Tag(f.Number)))
			switch v.Type {
			case VarintType:
				b = AppendVarint(b, v.Int)
			case Fixed64Type:
				b = binary.LittleEndian.AppendUint64(b, v.Fixed)
			case Fixed32Type:
				b = binary.LittleEndian.AppendUint32(b, uint32(v.Fixed))
			case BytesType:
				b = AppendVarint(b, int64(len(v.Bytes)))
				b = append(b, v.Bytes...)
			}
		}
	}
	return b
}
