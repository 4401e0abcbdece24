package encoding

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/backbone-hq/cord/errs"
)

// NanosPerSecond bounds the subsecond field of a timestamp.
const NanosPerSecond = 1_000_000_000

// AppendBool appends the single-byte encoding of v.
func AppendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 0x01)
	}

	return append(dst, 0x00)
}

// ReadBool reads a boolean. Any byte other than 0x00 or 0x01 is
// errs.ErrNonCanonical.
func ReadBool(r *Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}

	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, fmt.Errorf("%w: boolean byte 0x%02X", errs.ErrNonCanonical, b)
	}
}

// AppendBytes appends the length-prefixed encoding of v. The length rides a
// 64-bit unsigned varint.
func AppendBytes(dst []byte, v []byte) []byte {
	dst = AppendUvarint(dst, uint64(len(v)))

	return append(dst, v...)
}

// ReadBytes reads a length-prefixed octet string. The returned slice aliases
// the Reader's input; callers that outlive the input must copy.
func ReadBytes(r *Reader) ([]byte, error) {
	n, err := ReadUvarint(r, 64)
	if err != nil {
		return nil, err
	}
	if n > uint64(math.MaxInt) {
		return nil, fmt.Errorf("%w: length %d exceeds platform limit", errs.ErrOutOfRange, n)
	}

	return r.ReadSlice(int(n))
}

// AppendString appends the length-prefixed encoding of s. The encoder trusts
// the host's string type to hold UTF-8; validation is the decoder's job.
func AppendString(dst []byte, s string) []byte {
	dst = AppendUvarint(dst, uint64(len(s)))

	return append(dst, s...)
}

// ReadString reads a length-prefixed string and validates it as UTF-8,
// failing with errs.ErrInvalidUTF8 otherwise.
func ReadString(r *Reader) (string, error) {
	raw, err := ReadBytes(r)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: string payload of %d bytes", errs.ErrInvalidUTF8, len(raw))
	}

	return string(raw), nil
}

// AppendTimestamp appends a UTC instant: seconds since epoch as a signed
// 64-bit varint, then subsecond nanoseconds as an unsigned 32-bit varint.
// Nanoseconds of a full second or more are rejected with errs.ErrSchemaMisuse
// before any byte is written.
func AppendTimestamp(dst []byte, sec int64, nanos uint32) ([]byte, error) {
	if nanos >= NanosPerSecond {
		return dst, fmt.Errorf("%w: timestamp nanoseconds %d", errs.ErrSchemaMisuse, nanos)
	}

	dst = AppendVarint(dst, sec)

	return AppendUvarint(dst, uint64(nanos)), nil
}

// ReadTimestamp reads a UTC instant. Nanoseconds of a full second or more are
// errs.ErrOutOfRange.
func ReadTimestamp(r *Reader) (sec int64, nanos uint32, err error) {
	sec, err = ReadVarint(r, 64)
	if err != nil {
		return 0, 0, err
	}

	n, err := ReadUvarint(r, 32)
	if err != nil {
		return 0, 0, err
	}
	if n >= NanosPerSecond {
		return 0, 0, fmt.Errorf("%w: timestamp nanoseconds %d", errs.ErrOutOfRange, n)
	}

	return sec, uint32(n), nil
}
