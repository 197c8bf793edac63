/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: text.go
Description: Printable-text classifier for length-delimited values.
*/

package heuristics

// IsASCIIText reports whether every byte of b is printable ASCII (0x20-0x7e).
// An empty range counts as text.
func IsASCIIText(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}
