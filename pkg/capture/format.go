/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: format.go
Description: Payload encodings accepted by capture sources: raw binary, hex dumps,
base64 lines and JSON arrays of base64 strings.
*/

package capture

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

const (
	FormatBinary = "bin"
	FormatHex    = "hex"
	FormatBase64 = "base64"
	FormatJSON   = "json"
)

// Decode splits raw file or response contents into capture payloads.
func Decode(format string, raw []byte) ([][]byte, error) {
	switch format {
	case FormatBinary, "":
		return [][]byte{raw}, nil
	case FormatHex:
		b, err := DecodeHex(string(raw))
		if err != nil {
			return nil, err
		}
		return [][]byte{b}, nil
	case FormatBase64:
		var out [][]byte
		sc := bufio.NewScanner(bytes.NewReader(raw))
		sc.Buffer(make([]byte, 64*1024), len(raw)+1)
		line := 0
		for sc.Scan() {
			line++
			s := strings.TrimSpace(sc.Text())
			if s == "" || strings.HasPrefix(s, "#") {
				continue
			}
			b, err := DecodeBase64(s)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			out = append(out, b)
		}
		return out, sc.Err()
	case FormatJSON:
		var items []string
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("expected a JSON array of base64 strings: %w", err)
		}
		out := make([][]byte, 0, len(items))
		for i, s := range items {
			b, err := DecodeBase64(s)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, b)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// DecodeHex accepts hex text with whitespace, colons and an optional 0x prefix.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ':' {
			return -1
		}
		return r
	}, s)
	return hex.DecodeString(clean)
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

// DecodeBase64 tries the standard and URL alphabets, padded and raw.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, enc := range base64Encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("invalid base64: %w", firstErr)
}
