package encoding

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/backbone-hq/cord/errs"
)

// The canonical varint is little-endian base-128: each byte carries 7 payload
// bits, the high bit is set while more bytes follow. Only the shortest
// encoding is canonical, so the final byte of a multi-byte varint must be
// non-zero. Signed values take the ZigZag detour through the unsigned space
// so that small magnitudes stay short.

var big7f = big.NewInt(0x7f)

// MaxLen returns the longest canonical varint, in bytes, for a logical width
// of w bits.
func MaxLen(w uint) int {
	return int(w+6) / 7
}

// AppendUvarint appends the canonical varint encoding of v to dst and returns
// the extended slice.
func AppendUvarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}

	return append(dst, byte(v))
}

// AppendVarint appends the canonical ZigZag varint encoding of v.
//
// The mapping is width-independent on the encode side: for any declared width
// the value fits, sign extension through int64 produces the same unsigned
// image.
func AppendVarint(dst []byte, v int64) []byte {
	return AppendUvarint(dst, ZigZag(v))
}

// ZigZag maps a signed value onto the unsigned space, interleaving positive
// and negative: 0→0, -1→1, 1→2, -2→3, 2→4.
func ZigZag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// UnZigZag inverts ZigZag.
func UnZigZag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// ReadUvarint reads a canonical unsigned varint of logical width w bits
// (8, 16, 32, or 64) from r.
//
// Three rejections apply, in the order the offending byte is seen:
//   - the stream ends mid-varint: errs.ErrTruncated
//   - a continuation run terminated by a zero byte: errs.ErrNonCanonical
//   - payload bits beyond w, or more than MaxLen(w) bytes: errs.ErrOverflow
func ReadUvarint(r *Reader, w uint) (uint64, error) {
	maxLen := MaxLen(w)

	var v uint64
	var shift uint
	for i := 0; ; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}

		if i > 0 && b == 0x00 {
			return 0, fmt.Errorf("%w: varint ends with zero continuation byte", errs.ErrNonCanonical)
		}
		if i >= maxLen {
			return 0, fmt.Errorf("%w: varint longer than %d bytes for u%d", errs.ErrOverflow, maxLen, w)
		}

		payload := b & 0x7f
		if payload != 0 {
			if shift+uint(bits.Len8(payload)) > w {
				return 0, fmt.Errorf("%w: varint does not fit u%d", errs.ErrOverflow, w)
			}
			v |= uint64(payload) << shift
		}

		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
}

// ReadVarint reads a canonical ZigZag varint of logical width w bits
// (8, 16, 32, or 64) from r.
//
// The width check happens in the unsigned space: any unsigned image below
// 2^w maps exactly onto [-2^(w-1), 2^(w-1)-1], so no separate signed range
// check is needed.
func ReadVarint(r *Reader, w uint) (int64, error) {
	u, err := ReadUvarint(r, w)
	if err != nil {
		return 0, err
	}

	return UnZigZag(u), nil
}

// AppendUvarintBig appends the canonical varint encoding of a non-negative
// big integer. The caller must have range-checked v against its width; the
// drivers reject out-of-range leaves before reaching here.
func AppendUvarintBig(dst []byte, v *big.Int) []byte {
	n := new(big.Int).Set(v)
	low := new(big.Int)
	for n.BitLen() > 7 {
		low.And(n, big7f)
		dst = append(dst, byte(low.Uint64())|0x80)
		n.Rsh(n, 7)
	}

	return append(dst, byte(n.Uint64()))
}

// AppendVarintBig appends the canonical ZigZag varint encoding of a signed
// big integer.
func AppendVarintBig(dst []byte, v *big.Int) []byte {
	return AppendUvarintBig(dst, ZigZagBig(v))
}

// ZigZagBig maps a signed big integer onto the unsigned space: 2v for v ≥ 0,
// -2v-1 for v < 0.
func ZigZagBig(v *big.Int) *big.Int {
	u := new(big.Int).Lsh(new(big.Int).Abs(v), 1)
	if v.Sign() < 0 {
		u.Sub(u, big.NewInt(1))
	}

	return u
}

// UnZigZagBig inverts ZigZagBig.
func UnZigZagBig(u *big.Int) *big.Int {
	v := new(big.Int).Rsh(u, 1)
	if u.Bit(0) == 1 {
		v.Neg(v)
		v.Sub(v, big.NewInt(1))
	}

	return v
}

// ReadUvarintBig reads a canonical unsigned varint of logical width w bits
// into a big integer. Used for the 128-bit widths that do not fit uint64;
// the rejection rules match ReadUvarint.
func ReadUvarintBig(r *Reader, w uint) (*big.Int, error) {
	maxLen := MaxLen(w)

	v := new(big.Int)
	chunk := new(big.Int)
	for i := 0; ; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}

		if i > 0 && b == 0x00 {
			return nil, fmt.Errorf("%w: varint ends with zero continuation byte", errs.ErrNonCanonical)
		}
		if i >= maxLen {
			return nil, fmt.Errorf("%w: varint longer than %d bytes for u%d", errs.ErrOverflow, maxLen, w)
		}

		payload := b & 0x7f
		if payload != 0 {
			chunk.SetUint64(uint64(payload))
			chunk.Lsh(chunk, uint(7*i))
			v.Or(v, chunk)
			if v.BitLen() > int(w) {
				return nil, fmt.Errorf("%w: varint does not fit u%d", errs.ErrOverflow, w)
			}
		}

		if b&0x80 == 0 {
			return v, nil
		}
	}
}

// ReadVarintBig reads a canonical ZigZag varint of logical width w bits into
// a big integer.
func ReadVarintBig(r *Reader, w uint) (*big.Int, error) {
	u, err := ReadUvarintBig(r, w)
	if err != nil {
		return nil, err
	}

	return UnZigZagBig(u), nil
}
