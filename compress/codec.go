// Package compress provides storage and transport codecs for canonical cord
// encodings.
//
// Compression is never part of the canonical wire format: the byte sequence
// that is signed, hashed, and compared is always the uncompressed encoding.
// These codecs exist for what happens around the format, moving and storing
// encodings whose structure (varints, sorted sets, short strings) tends to
// compress well.
//
// All codecs are stateless values, safe for concurrent use; the zstd and lz4
// implementations pool their underlying encoder state internally.
package compress

import (
	"errors"
	"fmt"
)

// Type identifies a compression codec. The zero value is invalid so that an
// uninitialized envelope tag never decodes.
type Type uint8

const (
	// TypeNone passes data through untouched.
	TypeNone Type = 0x1
	// TypeZstd is Zstandard: best ratio, moderate speed.
	TypeZstd Type = 0x2
	// TypeS2 is S2 (Snappy-compatible): fastest, lighter ratio.
	TypeS2 Type = 0x3
	// TypeLZ4 is LZ4 block compression: fast with a modest ratio.
	TypeLZ4 Type = 0x4
)

// ErrUnknownType is returned when a Type has no registered codec.
var ErrUnknownType = errors.New("unknown compression type")

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "None"
	case TypeZstd:
		return "Zstd"
	case TypeS2:
		return "S2"
	case TypeLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Compressor compresses a complete canonical encoding in one call.
//
// The returned slice is owned by the caller; the input is never modified.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor inverts a Compressor. Corrupted or mismatched input returns an
// error; it is never silently repaired.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[Type]Codec{
	TypeNone: NewNoOpCodec(),
	TypeZstd: NewZstdCodec(),
	TypeS2:   NewS2Codec(),
	TypeLZ4:  NewLZ4Codec(),
}

// Lookup returns the built-in Codec for t.
func Lookup(t Type) (Codec, error) {
	if codec, ok := builtinCodecs[t]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownType, uint8(t))
}
