package encoding

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/backbone-hq/cord/errs"
)

func TestAppendUvarint_KnownVectors(t *testing.T) {
	vectors := []struct {
		value    uint64
		expected []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{255, []byte{0xFF, 0x01}},
		{300, []byte{0xAC, 0x02}},
		{16383, []byte{0xFF, 0x7F}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{math.MaxUint64, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}},
	}

	for _, v := range vectors {
		encoded := AppendUvarint(nil, v.value)
		require.Equal(t, v.expected, encoded, "value %d", v.value)

		decoded, err := ReadUvarint(NewReader(encoded), 64)
		require.NoError(t, err, "value %d", v.value)
		require.Equal(t, v.value, decoded)
	}
}

func TestAppendUvarint_LengthNeverExceedsWidth(t *testing.T) {
	require.Equal(t, 2, MaxLen(8))
	require.Equal(t, 3, MaxLen(16))
	require.Equal(t, 5, MaxLen(32))
	require.Equal(t, 10, MaxLen(64))
	require.Equal(t, 19, MaxLen(128))

	require.Len(t, AppendUvarint(nil, math.MaxUint8), MaxLen(8))
	require.Len(t, AppendUvarint(nil, math.MaxUint16), MaxLen(16))
	require.Len(t, AppendUvarint(nil, math.MaxUint32), MaxLen(32))
	require.Len(t, AppendUvarint(nil, math.MaxUint64), MaxLen(64))
}

func TestReadUvarint_TrailingZeroContinuation(t *testing.T) {
	// 0xAC 0x02 is canonical 300; padding it with a zero continuation tail
	// re-encodes the same value through a longer, forbidden form.
	_, err := ReadUvarint(NewReader([]byte{0xAC, 0x82, 0x00}), 64)
	require.ErrorIs(t, err, errs.ErrNonCanonical)

	// Non-canonical zero.
	_, err = ReadUvarint(NewReader([]byte{0x80, 0x00}), 64)
	require.ErrorIs(t, err, errs.ErrNonCanonical)
}

func TestReadUvarint_Truncated(t *testing.T) {
	_, err := ReadUvarint(NewReader(nil), 64)
	require.ErrorIs(t, err, errs.ErrTruncated)

	// A lone continuation byte promises more input than exists.
	_, err = ReadUvarint(NewReader([]byte{0x80}), 64)
	require.ErrorIs(t, err, errs.ErrTruncated)
}

func TestReadUvarint_WidthEnforcement(t *testing.T) {
	// 255 fits u8, 256 does not.
	v, err := ReadUvarint(NewReader([]byte{0xFF, 0x01}), 8)
	require.NoError(t, err)
	require.Equal(t, uint64(255), v)

	_, err = ReadUvarint(NewReader([]byte{0x80, 0x02}), 8)
	require.ErrorIs(t, err, errs.ErrOverflow)

	// Payload bits beyond the width fail even when the byte count is legal.
	_, err = ReadUvarint(NewReader([]byte{0xFF, 0x7F}), 8)
	require.ErrorIs(t, err, errs.ErrOverflow)

	// More bytes than any canonical u8 varint can have.
	_, err = ReadUvarint(NewReader([]byte{0x80, 0x80, 0x01}), 8)
	require.ErrorIs(t, err, errs.ErrOverflow)

	// The 10th byte of a u64 varint may only carry the single remaining bit.
	_, err = ReadUvarint(NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x02}), 64)
	require.ErrorIs(t, err, errs.ErrOverflow)
}

func TestZigZag_Mapping(t *testing.T) {
	mapping := []struct {
		signed   int64
		unsigned uint64
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{2, 4},
		{math.MaxInt64, math.MaxUint64 - 1},
		{math.MinInt64, math.MaxUint64},
	}

	for _, m := range mapping {
		require.Equal(t, m.unsigned, ZigZag(m.signed), "zigzag(%d)", m.signed)
		require.Equal(t, m.signed, UnZigZag(m.unsigned), "unzigzag(%d)", m.unsigned)
	}
}

func TestReadVarint_RoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 63, -64, 64, -65, 300, -300, math.MaxInt64, math.MinInt64}
	for _, v := range values {
		encoded := AppendVarint(nil, v)
		decoded, err := ReadVarint(NewReader(encoded), 64)
		require.NoError(t, err, "value %d", v)
		require.Equal(t, v, decoded)
	}
}

func TestReadVarint_WidthEnforcement(t *testing.T) {
	// -128 and 127 are the i8 extremes; their zigzag images are 255 and 254.
	v, err := ReadVarint(NewReader(AppendVarint(nil, -128)), 8)
	require.NoError(t, err)
	require.Equal(t, int64(-128), v)

	v, err = ReadVarint(NewReader(AppendVarint(nil, 127)), 8)
	require.NoError(t, err)
	require.Equal(t, int64(127), v)

	// 128 zigzags to 256, which does not fit 8 unsigned bits.
	_, err = ReadVarint(NewReader(AppendVarint(nil, 128)), 8)
	require.ErrorIs(t, err, errs.ErrOverflow)

	_, err = ReadVarint(NewReader(AppendVarint(nil, -129)), 8)
	require.ErrorIs(t, err, errs.ErrOverflow)
}

func TestBigVarint_RoundTrip(t *testing.T) {
	one := big.NewInt(1)
	u128Max := new(big.Int).Sub(new(big.Int).Lsh(one, 128), one) // 2^128-1
	i128Min := new(big.Int).Neg(new(big.Int).Lsh(one, 127))      // -2^127
	i128Max := new(big.Int).Sub(new(big.Int).Lsh(one, 127), one) // 2^127-1

	unsigned := []*big.Int{
		big.NewInt(0),
		big.NewInt(300),
		new(big.Int).SetUint64(math.MaxUint64),
		new(big.Int).Lsh(one, 64),
		u128Max,
	}
	for _, v := range unsigned {
		encoded := AppendUvarintBig(nil, v)
		decoded, err := ReadUvarintBig(NewReader(encoded), 128)
		require.NoError(t, err, "value %s", v)
		require.Zero(t, v.Cmp(decoded), "value %s", v)
	}

	signed := []*big.Int{
		big.NewInt(0),
		big.NewInt(-1),
		big.NewInt(math.MinInt64),
		i128Min,
		i128Max,
	}
	for _, v := range signed {
		encoded := AppendVarintBig(nil, v)
		decoded, err := ReadVarintBig(NewReader(encoded), 128)
		require.NoError(t, err, "value %s", v)
		require.Zero(t, v.Cmp(decoded), "value %s", v)
	}
}

func TestBigVarint_AgreesWithUint64Codec(t *testing.T) {
	// The big and uint64 paths must produce identical bytes for shared values.
	for _, v := range []uint64{0, 1, 127, 128, 300, math.MaxUint64} {
		require.Equal(t,
			AppendUvarint(nil, v),
			AppendUvarintBig(nil, new(big.Int).SetUint64(v)),
			"value %d", v)
	}
}

func TestReadUvarintBig_Overflow(t *testing.T) {
	// 2^128 needs a 129th bit.
	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	encoded := AppendUvarintBig(nil, tooBig)

	_, err := ReadUvarintBig(NewReader(encoded), 128)
	require.ErrorIs(t, err, errs.ErrOverflow)
}

func TestReadUvarintBig_NonCanonical(t *testing.T) {
	_, err := ReadUvarintBig(NewReader([]byte{0xAC, 0x82, 0x00}), 128)
	require.ErrorIs(t, err, errs.ErrNonCanonical)
}

func TestZigZagBig_Mapping(t *testing.T) {
	mapping := []struct {
		signed   int64
		unsigned int64
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{2, 4},
	}

	for _, m := range mapping {
		got := ZigZagBig(big.NewInt(m.signed))
		require.Zero(t, big.NewInt(m.unsigned).Cmp(got), "zigzag(%d)", m.signed)

		back := UnZigZagBig(big.NewInt(m.unsigned))
		require.Zero(t, big.NewInt(m.signed).Cmp(back), "unzigzag(%d)", m.unsigned)
	}
}
