// Package cord implements a deterministic binary serialization format for
// security-sensitive applications where a value's bytes must be a pure
// function of its semantic content.
//
// The guarantee is bijective at the representation level: every semantically
// distinct value maps to exactly one byte sequence, and every accepted byte
// sequence decodes to exactly one value. That makes canonical encodings safe
// to sign, hash, and compare across implementations without preserving
// "original bytes". The decoder enforces the bijection rather than assuming
// it: over-long varints, non-minimal booleans, unsorted or duplicated set
// elements, out-of-range nanoseconds, and invalid UTF-8 are all hard errors.
//
// # Core Properties
//
//   - Canonical varints (shortest-form base-128, ZigZag for signed)
//   - Schema-carried integer widths (8/16/32/64/128), never on the wire
//   - Sets sorted and verified by the lexicographic order of element encodings
//   - Strict rejection of trailing bytes and truncated input
//   - No framing, versioning, or checksums in the wire format
//
// # Basic Usage
//
// Describing a shape and encoding a value:
//
//	import (
//	    "github.com/backbone-hq/cord"
//	    "github.com/backbone-hq/cord/schema"
//	)
//
//	user := schema.Struct(
//	    schema.Field{Name: "id", Schema: schema.U32},
//	    schema.Field{Name: "name", Schema: schema.String},
//	    schema.Field{Name: "active", Schema: schema.Bool},
//	)
//
//	encoded, err := cord.Encode(user, cord.StructOf(
//	    cord.Uint(42),
//	    cord.String("Alice"),
//	    cord.Bool(true),
//	))
//
//	value, err := cord.Decode(user, encoded)
//
// Hashing a value's canonical form:
//
//	digest, err := cord.Digest(user, value)
//
// # Package Structure
//
// This package provides the Value tree and top-level wrappers around the
// streaming drivers. Programs with their own in-memory representation should
// drive the stream package directly; the schema package describes shapes, and
// the compress package handles at-rest and in-transit compression of
// canonical encodings.
package cord

import (
	"fmt"

	"github.com/backbone-hq/cord/compress"
	"github.com/backbone-hq/cord/errs"
	"github.com/backbone-hq/cord/internal/hash"
	"github.com/backbone-hq/cord/schema"
	"github.com/backbone-hq/cord/stream"
)

// Encode serializes value against s and returns its canonical encoding.
//
// Two calls with semantically equal values return identical bytes, across
// runs and hosts. A value that does not fit the schema fails with
// errs.ErrSchemaMisuse; under stream.WithStrictSets, duplicate set elements
// fail with errs.ErrDuplicateSetElement.
func Encode(s *schema.Schema, value Value, opts ...stream.Option) ([]byte, error) {
	enc := stream.NewEncoder(opts...)
	if err := encodeValue(enc, s, value); err != nil {
		enc.Discard()
		return nil, err
	}

	return enc.Finish()
}

// Decode parses one canonical encoding of s and returns the value tree.
//
// Decoding is total: for any input it returns exactly one value or an error,
// and an accepted input re-encodes to the same bytes. Trailing bytes after
// the value fail with errs.ErrTrailingBytes.
func Decode(s *schema.Schema, data []byte) (Value, error) {
	dec := stream.NewDecoder(data)
	v, err := decodeValue(dec, s)
	if err != nil {
		return Value{}, err
	}
	if err := dec.Finish(); err != nil {
		return Value{}, err
	}

	return v, nil
}

// Digest returns the xxHash64 of the value's canonical encoding. Because the
// encoding is canonical, the digest is a pure function of the semantic value
// and is stable across runs and hosts.
//
// The digest identifies values for caching and comparison; it is not a
// cryptographic commitment.
func Digest(s *schema.Schema, value Value, opts ...stream.Option) (uint64, error) {
	encoded, err := Encode(s, value, opts...)
	if err != nil {
		return 0, err
	}

	return hash.Sum64(encoded), nil
}

// Pack wraps a canonical encoding in a compression envelope: one codec tag
// byte followed by the compressed encoding.
//
// The envelope is a storage and transport convenience, not part of the wire
// format. Signatures and digests always cover the unpacked canonical bytes.
func Pack(encoded []byte, t compress.Type) ([]byte, error) {
	codec, err := compress.Lookup(t)
	if err != nil {
		return nil, err
	}

	compressed, err := codec.Compress(encoded)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 1+len(compressed))
	out = append(out, byte(t))

	return append(out, compressed...), nil
}

// Unpack inverts Pack, returning the canonical encoding. An empty envelope
// fails with errs.ErrTruncated; an unregistered codec tag with
// compress.ErrUnknownType.
func Unpack(packed []byte) ([]byte, error) {
	if len(packed) == 0 {
		return nil, fmt.Errorf("%w: empty envelope", errs.ErrTruncated)
	}

	codec, err := compress.Lookup(compress.Type(packed[0]))
	if err != nil {
		return nil, err
	}

	return codec.Decompress(packed[1:])
}
