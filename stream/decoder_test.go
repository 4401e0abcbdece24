package stream

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/backbone-hq/cord/errs"
)

func TestDecoder_Struct(t *testing.T) {
	dec := NewDecoder([]byte{0x2A, 0x05, 0x41, 0x6C, 0x69, 0x63, 0x65, 0x01})

	require.NoError(t, dec.ExpectStruct(3))

	id, err := dec.ExpectUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(42), id)

	name, err := dec.ExpectString()
	require.NoError(t, err)
	require.Equal(t, "Alice", name)

	active, err := dec.ExpectBool()
	require.NoError(t, err)
	require.True(t, active)

	require.NoError(t, dec.EndStruct())
	require.NoError(t, dec.Finish())
}

func TestDecoder_RejectsOverlongVarint(t *testing.T) {
	// 0xAC 0x02 is canonical 300; 0xAC 0x82 0x00 spells the same value
	// through a forbidden longer form.
	dec := NewDecoder([]byte{0xAC, 0x02})
	v, err := dec.ExpectUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(300), v)
	require.NoError(t, dec.Finish())

	dec = NewDecoder([]byte{0xAC, 0x82, 0x00})
	_, err = dec.ExpectUint64()
	require.ErrorIs(t, err, errs.ErrNonCanonical)
}

func TestDecoder_Set(t *testing.T) {
	dec := NewDecoder([]byte{0x02, 0x01, 0x61, 0x01, 0x62})

	n, err := dec.ExpectSet()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	a, err := dec.ExpectString()
	require.NoError(t, err)
	require.Equal(t, "a", a)

	b, err := dec.ExpectString()
	require.NoError(t, err)
	require.Equal(t, "b", b)

	require.NoError(t, dec.EndSet())
	require.NoError(t, dec.Finish())
}

func TestDecoder_SetRejectsWrongOrder(t *testing.T) {
	// {"b", "a"} in that order on the wire.
	dec := NewDecoder([]byte{0x02, 0x01, 0x62, 0x01, 0x61})

	_, err := dec.ExpectSet()
	require.NoError(t, err)

	_, err = dec.ExpectString()
	require.NoError(t, err)

	_, err = dec.ExpectString()
	require.ErrorIs(t, err, errs.ErrNonCanonical)
}

func TestDecoder_SetRejectsDuplicates(t *testing.T) {
	dec := NewDecoder([]byte{0x02, 0x01, 0x61, 0x01, 0x61})

	_, err := dec.ExpectSet()
	require.NoError(t, err)

	_, err = dec.ExpectString()
	require.NoError(t, err)

	_, err = dec.ExpectString()
	require.ErrorIs(t, err, errs.ErrNonCanonical)
}

func TestDecoder_SetOfComposites(t *testing.T) {
	dec := NewDecoder([]byte{0x02, 0x03, 0x01, 0x09, 0x00})

	n, err := dec.ExpectSet()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	for range n {
		require.NoError(t, dec.ExpectStruct(2))
		_, err = dec.ExpectUint8()
		require.NoError(t, err)
		_, err = dec.ExpectBool()
		require.NoError(t, err)
		require.NoError(t, dec.EndStruct())
	}

	require.NoError(t, dec.EndSet())
	require.NoError(t, dec.Finish())
}

func TestDecoder_Option(t *testing.T) {
	dec := NewDecoder([]byte{0x00})
	some, err := dec.ExpectOption()
	require.NoError(t, err)
	require.False(t, some)
	require.NoError(t, dec.Finish())

	dec = NewDecoder([]byte{0x01, 0x07})
	some, err = dec.ExpectOption()
	require.NoError(t, err)
	require.True(t, some)
	v, err := dec.ExpectUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(7), v)
	require.NoError(t, dec.Finish())
}

func TestDecoder_OptionRejectsBadDiscriminant(t *testing.T) {
	dec := NewDecoder([]byte{0x02, 0x07})
	_, err := dec.ExpectOption()
	require.ErrorIs(t, err, errs.ErrNonCanonical)
}

func TestDecoder_Variant(t *testing.T) {
	dec := NewDecoder([]byte{
		0x01,
		0x02,
		0x05, 0x61, 0x6C, 0x69, 0x63, 0x65,
		0x03, 0x62, 0x6F, 0x62,
	})

	tag, err := dec.ExpectVariant(2)
	require.NoError(t, err)
	require.Equal(t, uint64(1), tag)

	n, err := dec.ExpectSeq()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	first, err := dec.ExpectString()
	require.NoError(t, err)
	require.Equal(t, "alice", first)

	second, err := dec.ExpectString()
	require.NoError(t, err)
	require.Equal(t, "bob", second)

	require.NoError(t, dec.EndSeq())
	require.NoError(t, dec.EndVariant())
	require.NoError(t, dec.Finish())
}

func TestDecoder_VariantRejectsUndeclaredTag(t *testing.T) {
	dec := NewDecoder([]byte{0x05})
	_, err := dec.ExpectVariant(2)
	require.ErrorIs(t, err, errs.ErrOutOfRange)
}

func TestDecoder_Timestamp(t *testing.T) {
	// 2020-01-01T00:00:00Z encodes as zigzag(1577836800) then zero nanos.
	input := []byte{0x80, 0x84, 0xDF, 0xE0, 0x0B, 0x00}

	dec := NewDecoder(input)
	sec, nanos, err := dec.ExpectTimestamp()
	require.NoError(t, err)
	require.Equal(t, int64(1_577_836_800), sec)
	require.Equal(t, uint32(0), nanos)
	require.NoError(t, dec.Finish())
}

func TestDecoder_TimestampRejectsFullSecondNanos(t *testing.T) {
	// Nanos of exactly 1e9.
	dec := NewDecoder([]byte{0x00, 0x80, 0x94, 0xEB, 0xDC, 0x03})
	_, _, err := dec.ExpectTimestamp()
	require.ErrorIs(t, err, errs.ErrOutOfRange)
}

func TestDecoder_Uint128(t *testing.T) {
	one := big.NewInt(1)
	max := new(big.Int).Sub(new(big.Int).Lsh(one, 128), one)

	enc := NewEncoder()
	require.NoError(t, enc.EmitUint128(max))
	encoded, err := enc.Finish()
	require.NoError(t, err)

	dec := NewDecoder(encoded)
	v, err := dec.ExpectUint128()
	require.NoError(t, err)
	require.Zero(t, max.Cmp(v))
	require.NoError(t, dec.Finish())
}

func TestDecoder_TrailingBytes(t *testing.T) {
	dec := NewDecoder([]byte{0x01, 0xFF})
	v, err := dec.ExpectBool()
	require.NoError(t, err)
	require.True(t, v)

	require.ErrorIs(t, dec.Finish(), errs.ErrTrailingBytes)
}

func TestDecoder_Truncated(t *testing.T) {
	// Input ends inside the struct's second field.
	dec := NewDecoder([]byte{0x2A, 0x05, 0x41})

	require.NoError(t, dec.ExpectStruct(3))
	_, err := dec.ExpectUint32()
	require.NoError(t, err)

	_, err = dec.ExpectString()
	require.ErrorIs(t, err, errs.ErrTruncated)
}

func TestDecoder_FinishBeforeValueComplete(t *testing.T) {
	// Bytes remain but the caller abandons the walk.
	dec := NewDecoder([]byte{0x2A, 0x00})
	require.NoError(t, dec.ExpectStruct(2))
	_, err := dec.ExpectUint32()
	require.NoError(t, err)

	require.ErrorIs(t, dec.Finish(), errs.ErrSchemaMismatch)

	// Input exhausted with the stack still open reads as truncation.
	dec = NewDecoder([]byte{0x2A})
	require.NoError(t, dec.ExpectStruct(2))
	_, err = dec.ExpectUint32()
	require.NoError(t, err)

	require.ErrorIs(t, dec.Finish(), errs.ErrTruncated)
}

func TestDecoder_CountMismatch(t *testing.T) {
	// Reading more children than declared.
	dec := NewDecoder([]byte{0x01, 0x01})
	require.NoError(t, dec.ExpectStruct(1))
	_, err := dec.ExpectBool()
	require.NoError(t, err)
	_, err = dec.ExpectBool()
	require.ErrorIs(t, err, errs.ErrSchemaMismatch)

	// Closing with children unread.
	dec = NewDecoder([]byte{0x02, 0x01, 0x01})
	n, err := dec.ExpectSeq()
	require.NoError(t, err)
	require.Equal(t, 2, n)
	_, err = dec.ExpectBool()
	require.NoError(t, err)
	require.ErrorIs(t, dec.EndSeq(), errs.ErrSchemaMismatch)
}

func TestDecoder_EndMismatch(t *testing.T) {
	dec := NewDecoder([]byte{0x01})
	require.NoError(t, dec.ExpectStruct(1))
	require.ErrorIs(t, dec.EndTuple(), errs.ErrSchemaMismatch)

	dec = NewDecoder([]byte{0x01})
	require.ErrorIs(t, dec.EndStruct(), errs.ErrSchemaMismatch)
}

func TestDecoder_ErrorIsSticky(t *testing.T) {
	dec := NewDecoder([]byte{0x02})
	_, first := dec.ExpectBool()
	require.ErrorIs(t, first, errs.ErrNonCanonical)

	_, err := dec.ExpectBool()
	require.Equal(t, first, err)
	require.Equal(t, first, dec.Finish())
}

func TestDecoder_ReadAfterRootValue(t *testing.T) {
	dec := NewDecoder([]byte{0x01})
	_, err := dec.ExpectBool()
	require.NoError(t, err)

	_, err = dec.ExpectBool()
	require.ErrorIs(t, err, errs.ErrSchemaMismatch)
}

func TestStream_RoundTrip(t *testing.T) {
	// struct{ seq<option<u16>>, set<bytes>, timestamp, i64 }
	enc := NewEncoder()
	require.NoError(t, enc.BeginStruct(4))

	require.NoError(t, enc.BeginSeq(3))
	require.NoError(t, enc.BeginSome())
	require.NoError(t, enc.EmitUint16(1000))
	require.NoError(t, enc.EmitNone())
	require.NoError(t, enc.BeginSome())
	require.NoError(t, enc.EmitUint16(0))
	require.NoError(t, enc.EndSeq())

	require.NoError(t, enc.BeginSet(2))
	require.NoError(t, enc.EmitBytes([]byte{0xFF}))
	require.NoError(t, enc.EmitBytes([]byte{0x00, 0x01}))
	require.NoError(t, enc.EndSet())

	require.NoError(t, enc.EmitTimestamp(-86400, 500_000_000))
	require.NoError(t, enc.EmitInt64(-1))
	require.NoError(t, enc.EndStruct())

	encoded, err := enc.Finish()
	require.NoError(t, err)

	dec := NewDecoder(encoded)
	require.NoError(t, dec.ExpectStruct(4))

	n, err := dec.ExpectSeq()
	require.NoError(t, err)
	require.Equal(t, 3, n)

	some, err := dec.ExpectOption()
	require.NoError(t, err)
	require.True(t, some)
	v16, err := dec.ExpectUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(1000), v16)

	some, err = dec.ExpectOption()
	require.NoError(t, err)
	require.False(t, some)

	some, err = dec.ExpectOption()
	require.NoError(t, err)
	require.True(t, some)
	v16, err = dec.ExpectUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0), v16)
	require.NoError(t, dec.EndSeq())

	n, err = dec.ExpectSet()
	require.NoError(t, err)
	require.Equal(t, 2, n)
	b1, err := dec.ExpectBytes()
	require.NoError(t, err)
	b2, err := dec.ExpectBytes()
	require.NoError(t, err)
	// bytes{0xFF} encodes as 01 FF, bytes{0x00,0x01} as 02 00 01; the
	// one-byte payload sorts first.
	require.Equal(t, []byte{0xFF}, b1)
	require.Equal(t, []byte{0x00, 0x01}, b2)
	require.NoError(t, dec.EndSet())

	sec, nanos, err := dec.ExpectTimestamp()
	require.NoError(t, err)
	require.Equal(t, int64(-86400), sec)
	require.Equal(t, uint32(500_000_000), nanos)

	i, err := dec.ExpectInt64()
	require.NoError(t, err)
	require.Equal(t, int64(-1), i)

	require.NoError(t, dec.EndStruct())
	require.NoError(t, dec.Finish())
}
