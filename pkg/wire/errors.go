/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: errors.go
Description: Error kinds returned by the wire codec and tree parser. Every failure is a
plain value the caller can inspect with errors.Is; nothing in this package panics on bad input.
*/

package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedInput means a varint chain or declared length runs past the end of the range.
	ErrTruncatedInput = errors.New("wire: truncated input")
	// ErrMalformedTag means the tag carries a wire type other than 0, 1, 2 or 5.
	ErrMalformedTag = errors.New("wire: malformed tag")
	// ErrOverflow means a varint is longer than 10 bytes.
	ErrOverflow = errors.New("wire: varint overflow")
)

// ParseError records where in the input a parse stopped.
type ParseError struct {
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(off int, err error) error {
	return &ParseError{Offset: off, Err: err}
}
