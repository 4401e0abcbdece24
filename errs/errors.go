// Package errs defines the sentinel errors returned by the cord encoding and
// decoding engine.
//
// The errors form two disjoint taxonomies. Encoding errors indicate misuse of
// the encoder API by the calling program and never depend on untrusted data.
// Decoding errors indicate that the input bytes are not the canonical encoding
// of the expected schema; every decoding error may be triggered by untrusted
// input and must be treated as routine.
//
// Raise sites wrap these sentinels with fmt.Errorf("%w: ...") to attach
// context; callers match with errors.Is.
package errs

import "errors"

// Encoding errors.
var (
	// ErrSchemaMisuse indicates the caller violated the encoder's event
	// contract: a declared element or field count was not honored, an End call
	// did not match the open container, a value was emitted after the
	// top-level value completed, or a leaf value lies outside its schema
	// width.
	ErrSchemaMisuse = errors.New("schema misuse")

	// ErrDuplicateSetElement indicates two set elements encoded to identical
	// bytes while the encoder was configured with strict set semantics.
	ErrDuplicateSetElement = errors.New("duplicate set element")
)

// Decoding errors.
var (
	// ErrTruncated indicates the input ended before the value was complete.
	ErrTruncated = errors.New("truncated input")

	// ErrTrailingBytes indicates input remained after a complete top-level
	// value was decoded.
	ErrTrailingBytes = errors.New("trailing bytes after value")

	// ErrNonCanonical indicates the input encodes a legal value through a
	// disallowed byte sequence: an over-long varint, a boolean or option
	// discriminant outside {0x00, 0x01}, or a set whose elements are not in
	// strictly ascending encoded order.
	ErrNonCanonical = errors.New("non-canonical encoding")

	// ErrOverflow indicates a varint carries more payload bits than the
	// schema-declared integer width allows.
	ErrOverflow = errors.New("integer overflows schema width")

	// ErrInvalidUTF8 indicates a string payload is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 in string")

	// ErrOutOfRange indicates a decoded value lies outside its domain:
	// timestamp nanoseconds of one second or more, an enum tag with no
	// declared variant, or a length that does not fit the platform.
	ErrOutOfRange = errors.New("value out of range")

	// ErrSchemaMismatch indicates the caller asked the decoder for a shape
	// the remaining bytes cannot satisfy, or broke the decoder's event
	// contract.
	ErrSchemaMismatch = errors.New("schema mismatch")
)
