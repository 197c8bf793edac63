/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: grpcweb.go
Description: gRPC-web body framing. Each frame is a flag byte, a big-endian uint32 length
and the payload. Data frames carry serialized messages; trailer frames are skipped.
*/

package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"mime"
	"strings"
)

const (
	frameHeaderLen   = 5
	frameTrailerFlag = 0x80
	frameCompressed  = 0x01
)

// ErrTruncatedFrame is returned when a gRPC-web frame runs past the body.
var ErrTruncatedFrame = errors.New("capture: truncated grpc-web frame")

// SplitFrames returns the payloads of the uncompressed data frames in body.
func SplitFrames(body []byte) ([][]byte, error) {
	var out [][]byte
	for off := 0; off < len(body); {
		if len(body)-off < frameHeaderLen {
			return out, fmt.Errorf("%w: header at offset %d", ErrTruncatedFrame, off)
		}
		flag := body[off]
		n := int(binary.BigEndian.Uint32(body[off+1 : off+frameHeaderLen]))
		start := off + frameHeaderLen
		if n > len(body)-start {
			return out, fmt.Errorf("%w: %d byte payload at offset %d", ErrTruncatedFrame, n, off)
		}
		if flag&(frameTrailerFlag|frameCompressed) == 0 {
			out = append(out, body[start:start+n:start+n])
		}
		off = start + n
	}
	return out, nil
}

var protobufMIMETypes = map[string]bool{
	"application/x-protobuf":          true,
	"application/protobuf":            true,
	"application/x-google-protobuf":   true,
	"application/vnd.google.protobuf": true,
	"application/octet-stream+proto":  true,
	"application/grpc":                true,
	"application/grpc+proto":          true,
	"application/grpc-web":            true,
	"application/grpc-web+proto":      true,
	"application/grpc-web-text":       true,
	"application/grpc-web-text+proto": true,
}

// IsProtobufMIME reports whether a Content-Type likely carries protobuf.
func IsProtobufMIME(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return protobufMIMETypes[mt]
}

// isFramed reports whether the body uses gRPC length-prefixed framing.
func isFramed(contentType string) (framed, text bool) {
	mt, _, _ := mime.ParseMediaType(contentType)
	if !strings.HasPrefix(mt, "application/grpc") {
		return false, false
	}
	return true, strings.HasPrefix(mt, "application/grpc-web-text")
}

// Unframe converts a response body of the given content type to message payloads.
func Unframe(contentType string, body []byte) ([][]byte, error) {
	framed, text := isFramed(contentType)
	if !framed {
		return [][]byte{body}, nil
	}
	if text {
		decoded, err := DecodeBase64(string(body))
		if err != nil {
			return nil, err
		}
		body = decoded
	}
	return SplitFrames(body)
}
