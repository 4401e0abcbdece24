package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrimitiveSingletons(t *testing.T) {
	require.Equal(t, KindUnit, Unit.Kind())
	require.Equal(t, KindBool, Bool.Kind())
	require.Equal(t, KindBytes, Bytes.Kind())
	require.Equal(t, KindString, String.Kind())
	require.Equal(t, KindTimestamp, Timestamp.Kind())
}

func TestIntegerWidths(t *testing.T) {
	widths := map[*Schema]uint{
		U8: 8, U16: 16, U32: 32, U64: 64, U128: 128,
		I8: 8, I16: 16, I32: 32, I64: 64, I128: 128,
	}

	for s, w := range widths {
		require.Equal(t, w, s.Width(), "%s", s)
	}

	require.Equal(t, KindUint, U64.Kind())
	require.Equal(t, KindInt, I64.Kind())
	require.Zero(t, String.Width())
}

func TestComposites(t *testing.T) {
	opt := Option(U8)
	require.Equal(t, KindOption, opt.Kind())
	require.Same(t, U8, opt.Elem())

	seq := Seq(String)
	require.Equal(t, KindSeq, seq.Kind())
	require.Same(t, String, seq.Elem())

	set := Set(String)
	require.Equal(t, KindSet, set.Kind())

	tup := Tuple(U32, Bool)
	require.Equal(t, KindTuple, tup.Kind())
	require.Len(t, tup.Members(), 2)

	st := Struct(
		Field{Name: "id", Schema: U32},
		Field{Name: "name", Schema: String},
	)
	require.Equal(t, KindStruct, st.Kind())
	require.Len(t, st.Fields(), 2)
	require.Equal(t, "id", st.Fields()[0].Name)

	en := Enum(
		Variant{Name: "Public"},
		Variant{Name: "Restricted", Payload: []*Schema{Seq(String)}},
	)
	require.Equal(t, KindEnum, en.Kind())
	require.Equal(t, 2, en.NumVariants())
	require.Empty(t, en.Variants()[0].Payload)
}

func TestConstructors_RejectNilShapes(t *testing.T) {
	require.Panics(t, func() { Option(nil) })
	require.Panics(t, func() { Seq(nil) })
	require.Panics(t, func() { Set(nil) })
	require.Panics(t, func() { Tuple(U8, nil) })
	require.Panics(t, func() { Struct(Field{Name: "x"}) })
	require.Panics(t, func() { Enum() })
	require.Panics(t, func() { Enum(Variant{Name: "V", Payload: []*Schema{nil}}) })
}

func TestString_Rendering(t *testing.T) {
	require.Equal(t, "u32", U32.String())
	require.Equal(t, "i128", I128.String())
	require.Equal(t, "option<u8>", Option(U8).String())
	require.Equal(t, "set<string>", Set(String).String())
	require.Equal(t, "tuple(u32, bool)", Tuple(U32, Bool).String())

	user := Struct(
		Field{Name: "id", Schema: U32},
		Field{Name: "name", Schema: String},
		Field{Name: "active", Schema: Bool},
	)
	require.Equal(t, "struct{id: u32, name: string, active: bool}", user.String())

	visibility := Enum(
		Variant{Name: "Public"},
		Variant{Name: "Restricted", Payload: []*Schema{Seq(String)}},
	)
	require.Equal(t, "enum{Public | Restricted(seq<string>)}", visibility.String())
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "unit", KindUnit.String())
	require.Equal(t, "timestamp", KindTimestamp.String())
	require.Equal(t, "invalid", KindInvalid.String())
	require.Equal(t, "invalid", Kind(0xFF).String())
}
