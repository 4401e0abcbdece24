package cord

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/backbone-hq/cord/errs"
	"github.com/backbone-hq/cord/schema"
	"github.com/backbone-hq/cord/stream"
)

// Value is a generic cord value: the in-memory tree that the top-level
// Encode and Decode wrappers walk. It stands in for the host-language
// reflection a derive facility would supply; programs with their own
// representation drive the stream package directly instead.
//
// Values are built with the constructor functions (Bool, Uint, StructOf,
// ...) and inspected with the accessor methods. A Value is immutable once
// constructed.
type Value struct {
	kind     schema.Kind
	boolVal  bool
	uintVal  uint64
	intVal   int64
	bigVal   *big.Int
	bytesVal []byte
	strVal   string
	sec      int64
	nanos    uint32
	some     bool
	tag      uint64
	children []Value
}

// Unit returns the unit value.
func Unit() Value {
	return Value{kind: schema.KindUnit}
}

// Bool returns a boolean value.
func Bool(v bool) Value {
	return Value{kind: schema.KindBool, boolVal: v}
}

// Uint returns an unsigned integer value for any unsigned schema width up
// to 64 bits.
func Uint(v uint64) Value {
	return Value{kind: schema.KindUint, uintVal: v}
}

// Int returns a signed integer value for any signed schema width up to 64
// bits.
func Int(v int64) Value {
	return Value{kind: schema.KindInt, intVal: v}
}

// Uint128 returns an unsigned integer value carried as a big integer, for
// the 128-bit width.
func Uint128(v *big.Int) Value {
	return Value{kind: schema.KindUint, bigVal: v}
}

// Int128 returns a signed integer value carried as a big integer, for the
// 128-bit width.
func Int128(v *big.Int) Value {
	return Value{kind: schema.KindInt, bigVal: v}
}

// Bytes returns an opaque octet-string value. The slice is not copied; the
// caller must not mutate it afterwards.
func Bytes(v []byte) Value {
	return Value{kind: schema.KindBytes, bytesVal: v}
}

// String returns a string value.
func String(v string) Value {
	return Value{kind: schema.KindString, strVal: v}
}

// Timestamp returns a UTC instant from seconds since epoch and subsecond
// nanoseconds.
func Timestamp(sec int64, nanos uint32) Value {
	return Value{kind: schema.KindTimestamp, sec: sec, nanos: nanos}
}

// Time returns a UTC instant from a time.Time, discarding the location.
func Time(t time.Time) Value {
	return Timestamp(t.Unix(), uint32(t.Nanosecond())) //nolint:gosec
}

// Some returns a present optional wrapping inner.
func Some(inner Value) Value {
	return Value{kind: schema.KindOption, some: true, children: []Value{inner}}
}

// None returns an absent optional.
func None() Value {
	return Value{kind: schema.KindOption}
}

// List returns a variable-length sequence value with elements in the given
// order.
func List(elems ...Value) Value {
	return Value{kind: schema.KindSeq, children: elems}
}

// TupleOf returns a fixed-length tuple value.
func TupleOf(members ...Value) Value {
	return Value{kind: schema.KindTuple, children: members}
}

// SetOf returns a set value. Element order is irrelevant: the encoder
// canonicalizes regardless of how the host iterated.
func SetOf(elems ...Value) Value {
	return Value{kind: schema.KindSet, children: elems}
}

// StructOf returns a struct value with fields in declaration order.
func StructOf(fields ...Value) Value {
	return Value{kind: schema.KindStruct, children: fields}
}

// VariantOf returns an enum value: the variant at index tag with its payload
// values.
func VariantOf(tag uint64, payload ...Value) Value {
	return Value{kind: schema.KindEnum, tag: tag, children: payload}
}

// Kind returns the value's wire category.
func (v Value) Kind() schema.Kind {
	return v.kind
}

// Bool returns the boolean payload.
func (v Value) Bool() bool {
	return v.boolVal
}

// Uint returns the unsigned payload of a value built with Uint.
func (v Value) Uint() uint64 {
	return v.uintVal
}

// Int returns the signed payload of a value built with Int.
func (v Value) Int() int64 {
	return v.intVal
}

// Big returns the big-integer payload of a 128-bit value, or nil.
func (v Value) Big() *big.Int {
	return v.bigVal
}

// Bytes returns the octet-string payload.
func (v Value) Bytes() []byte {
	return v.bytesVal
}

// Text returns the string payload.
func (v Value) Text() string {
	return v.strVal
}

// Timestamp returns the instant payload.
func (v Value) Timestamp() (sec int64, nanos uint32) {
	return v.sec, v.nanos
}

// IsSome reports whether an optional value is present.
func (v Value) IsSome() bool {
	return v.some
}

// Tag returns the variant index of an enum value.
func (v Value) Tag() uint64 {
	return v.tag
}

// Len returns the child count: elements, members, fields, or payload values.
func (v Value) Len() int {
	return len(v.children)
}

// At returns the i-th child.
func (v Value) At(i int) Value {
	return v.children[i]
}

// Equal reports semantic equality of two values. Sets compare as multisets;
// integer values compare across the uint64 and big-integer carriers.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case schema.KindUnit:
		return true
	case schema.KindBool:
		return a.boolVal == b.boolVal
	case schema.KindUint:
		return bigOrUint(a).Cmp(bigOrUint(b)) == 0
	case schema.KindInt:
		return bigOrInt(a).Cmp(bigOrInt(b)) == 0
	case schema.KindBytes:
		return string(a.bytesVal) == string(b.bytesVal)
	case schema.KindString:
		return a.strVal == b.strVal
	case schema.KindTimestamp:
		return a.sec == b.sec && a.nanos == b.nanos
	case schema.KindOption:
		if a.some != b.some {
			return false
		}
		if !a.some {
			return true
		}

		return Equal(a.children[0], b.children[0])
	case schema.KindSet:
		return setEqual(a.children, b.children)
	case schema.KindEnum:
		if a.tag != b.tag {
			return false
		}

		return childrenEqual(a.children, b.children)
	default:
		return childrenEqual(a.children, b.children)
	}
}

func childrenEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}

	return true
}

// setEqual compares element multisets without an element order.
func setEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}

	used := make([]bool, len(b))
	for _, ea := range a {
		found := false
		for i, eb := range b {
			if !used[i] && Equal(ea, eb) {
				used[i] = true
				found = true

				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func bigOrUint(v Value) *big.Int {
	if v.bigVal != nil {
		return v.bigVal
	}

	return new(big.Int).SetUint64(v.uintVal)
}

func bigOrInt(v Value) *big.Int {
	if v.bigVal != nil {
		return v.bigVal
	}

	return big.NewInt(v.intVal)
}

// String renders the value for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case schema.KindUnit:
		return "()"
	case schema.KindBool:
		return strconv.FormatBool(v.boolVal)
	case schema.KindUint:
		return bigOrUint(v).String()
	case schema.KindInt:
		return bigOrInt(v).String()
	case schema.KindBytes:
		return fmt.Sprintf("0x%X", v.bytesVal)
	case schema.KindString:
		return strconv.Quote(v.strVal)
	case schema.KindTimestamp:
		return fmt.Sprintf("timestamp(%d, %d)", v.sec, v.nanos)
	case schema.KindOption:
		if !v.some {
			return "none"
		}

		return "some(" + v.children[0].String() + ")"
	case schema.KindSeq:
		return "[" + joinChildren(v.children) + "]"
	case schema.KindTuple:
		return "(" + joinChildren(v.children) + ")"
	case schema.KindSet:
		return "{" + joinChildren(v.children) + "}"
	case schema.KindStruct:
		return "struct(" + joinChildren(v.children) + ")"
	case schema.KindEnum:
		if len(v.children) == 0 {
			return fmt.Sprintf("#%d", v.tag)
		}

		return fmt.Sprintf("#%d(%s)", v.tag, joinChildren(v.children))
	default:
		return "invalid"
	}
}

func joinChildren(children []Value) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = c.String()
	}

	return strings.Join(parts, ", ")
}

func mismatch(s *schema.Schema, v Value) error {
	return fmt.Errorf("%w: %s value for %s schema", errs.ErrSchemaMisuse, v.kind, s)
}

// encodeValue walks schema and value in tandem, translating the tree into
// encoder events.
func encodeValue(e *stream.Encoder, s *schema.Schema, v Value) error {
	if v.kind != s.Kind() {
		return mismatch(s, v)
	}

	switch s.Kind() {
	case schema.KindUnit:
		return e.EmitUnit()
	case schema.KindBool:
		return e.EmitBool(v.boolVal)
	case schema.KindUint:
		return encodeUint(e, s, v)
	case schema.KindInt:
		return encodeInt(e, s, v)
	case schema.KindBytes:
		return e.EmitBytes(v.bytesVal)
	case schema.KindString:
		return e.EmitString(v.strVal)
	case schema.KindTimestamp:
		return e.EmitTimestamp(v.sec, v.nanos)
	case schema.KindOption:
		if !v.some {
			return e.EmitNone()
		}
		if err := e.BeginSome(); err != nil {
			return err
		}

		return encodeValue(e, s.Elem(), v.children[0])
	case schema.KindSeq:
		if err := e.BeginSeq(len(v.children)); err != nil {
			return err
		}
		for _, elem := range v.children {
			if err := encodeValue(e, s.Elem(), elem); err != nil {
				return err
			}
		}

		return e.EndSeq()
	case schema.KindSet:
		if err := e.BeginSet(len(v.children)); err != nil {
			return err
		}
		for _, elem := range v.children {
			if err := encodeValue(e, s.Elem(), elem); err != nil {
				return err
			}
		}

		return e.EndSet()
	case schema.KindTuple:
		members := s.Members()
		if len(v.children) != len(members) {
			return fmt.Errorf("%w: %d values for %s", errs.ErrSchemaMisuse, len(v.children), s)
		}
		if err := e.BeginTuple(len(members)); err != nil {
			return err
		}
		for i, m := range members {
			if err := encodeValue(e, m, v.children[i]); err != nil {
				return err
			}
		}

		return e.EndTuple()
	case schema.KindStruct:
		fields := s.Fields()
		if len(v.children) != len(fields) {
			return fmt.Errorf("%w: %d values for %s", errs.ErrSchemaMisuse, len(v.children), s)
		}
		if err := e.BeginStruct(len(fields)); err != nil {
			return err
		}
		for i, f := range fields {
			if err := encodeValue(e, f.Schema, v.children[i]); err != nil {
				return err
			}
		}

		return e.EndStruct()
	case schema.KindEnum:
		variants := s.Variants()
		if v.tag >= uint64(len(variants)) {
			return fmt.Errorf("%w: variant tag %d for %s", errs.ErrSchemaMisuse, v.tag, s)
		}
		payload := variants[v.tag].Payload
		if len(v.children) != len(payload) {
			return fmt.Errorf("%w: %d payload values for variant %q of %s",
				errs.ErrSchemaMisuse, len(v.children), variants[v.tag].Name, s)
		}
		if err := e.BeginVariant(v.tag); err != nil {
			return err
		}
		for i, p := range payload {
			if err := encodeValue(e, p, v.children[i]); err != nil {
				return err
			}
		}

		return e.EndVariant()
	default:
		return mismatch(s, v)
	}
}

func encodeUint(e *stream.Encoder, s *schema.Schema, v Value) error {
	w := s.Width()
	if w == 128 {
		return e.EmitUint128(bigOrUint(v))
	}

	u := v.uintVal
	if v.bigVal != nil {
		if !v.bigVal.IsUint64() {
			return fmt.Errorf("%w: value exceeds u%d", errs.ErrSchemaMisuse, w)
		}
		u = v.bigVal.Uint64()
	}
	if w < 64 && u>>w != 0 {
		return fmt.Errorf("%w: value %d exceeds u%d", errs.ErrSchemaMisuse, u, w)
	}

	switch w {
	case 8:
		return e.EmitUint8(uint8(u))
	case 16:
		return e.EmitUint16(uint16(u))
	case 32:
		return e.EmitUint32(uint32(u))
	default:
		return e.EmitUint64(u)
	}
}

func encodeInt(e *stream.Encoder, s *schema.Schema, v Value) error {
	w := s.Width()
	if w == 128 {
		return e.EmitInt128(bigOrInt(v))
	}

	i := v.intVal
	if v.bigVal != nil {
		if !v.bigVal.IsInt64() {
			return fmt.Errorf("%w: value exceeds i%d", errs.ErrSchemaMisuse, w)
		}
		i = v.bigVal.Int64()
	}

	switch w {
	case 8:
		if i < math.MinInt8 || i > math.MaxInt8 {
			return fmt.Errorf("%w: value %d exceeds i8", errs.ErrSchemaMisuse, i)
		}

		return e.EmitInt8(int8(i))
	case 16:
		if i < math.MinInt16 || i > math.MaxInt16 {
			return fmt.Errorf("%w: value %d exceeds i16", errs.ErrSchemaMisuse, i)
		}

		return e.EmitInt16(int16(i))
	case 32:
		if i < math.MinInt32 || i > math.MaxInt32 {
			return fmt.Errorf("%w: value %d exceeds i32", errs.ErrSchemaMisuse, i)
		}

		return e.EmitInt32(int32(i))
	default:
		return e.EmitInt64(i)
	}
}

// decodeValue walks the schema, translating decoder leaves back into a value
// tree. Returned byte payloads are copied out of the input.
func decodeValue(d *stream.Decoder, s *schema.Schema) (Value, error) {
	switch s.Kind() {
	case schema.KindUnit:
		if err := d.ExpectUnit(); err != nil {
			return Value{}, err
		}

		return Unit(), nil
	case schema.KindBool:
		v, err := d.ExpectBool()
		if err != nil {
			return Value{}, err
		}

		return Bool(v), nil
	case schema.KindUint:
		return decodeUint(d, s)
	case schema.KindInt:
		return decodeInt(d, s)
	case schema.KindBytes:
		raw, err := d.ExpectBytes()
		if err != nil {
			return Value{}, err
		}
		owned := make([]byte, len(raw))
		copy(owned, raw)

		return Bytes(owned), nil
	case schema.KindString:
		v, err := d.ExpectString()
		if err != nil {
			return Value{}, err
		}

		return String(v), nil
	case schema.KindTimestamp:
		sec, nanos, err := d.ExpectTimestamp()
		if err != nil {
			return Value{}, err
		}

		return Timestamp(sec, nanos), nil
	case schema.KindOption:
		some, err := d.ExpectOption()
		if err != nil {
			return Value{}, err
		}
		if !some {
			return None(), nil
		}
		inner, err := decodeValue(d, s.Elem())
		if err != nil {
			return Value{}, err
		}

		return Some(inner), nil
	case schema.KindSeq:
		n, err := d.ExpectSeq()
		if err != nil {
			return Value{}, err
		}
		elems, err := decodeChildren(d, s.Elem(), n)
		if err != nil {
			return Value{}, err
		}
		if err := d.EndSeq(); err != nil {
			return Value{}, err
		}

		return List(elems...), nil
	case schema.KindSet:
		n, err := d.ExpectSet()
		if err != nil {
			return Value{}, err
		}
		elems, err := decodeChildren(d, s.Elem(), n)
		if err != nil {
			return Value{}, err
		}
		if err := d.EndSet(); err != nil {
			return Value{}, err
		}

		return SetOf(elems...), nil
	case schema.KindTuple:
		members := s.Members()
		if err := d.ExpectTuple(len(members)); err != nil {
			return Value{}, err
		}
		values := make([]Value, len(members))
		for i, m := range members {
			v, err := decodeValue(d, m)
			if err != nil {
				return Value{}, err
			}
			values[i] = v
		}
		if err := d.EndTuple(); err != nil {
			return Value{}, err
		}

		return TupleOf(values...), nil
	case schema.KindStruct:
		fields := s.Fields()
		if err := d.ExpectStruct(len(fields)); err != nil {
			return Value{}, err
		}
		values := make([]Value, len(fields))
		for i, f := range fields {
			v, err := decodeValue(d, f.Schema)
			if err != nil {
				return Value{}, err
			}
			values[i] = v
		}
		if err := d.EndStruct(); err != nil {
			return Value{}, err
		}

		return StructOf(values...), nil
	case schema.KindEnum:
		variants := s.Variants()
		tag, err := d.ExpectVariant(len(variants))
		if err != nil {
			return Value{}, err
		}
		payload := variants[tag].Payload
		values := make([]Value, len(payload))
		for i, p := range payload {
			v, err := decodeValue(d, p)
			if err != nil {
				return Value{}, err
			}
			values[i] = v
		}
		if err := d.EndVariant(); err != nil {
			return Value{}, err
		}

		return VariantOf(tag, values...), nil
	default:
		return Value{}, fmt.Errorf("%w: cannot decode %s schema", errs.ErrSchemaMismatch, s)
	}
}

func decodeChildren(d *stream.Decoder, elem *schema.Schema, n int) ([]Value, error) {
	values := make([]Value, n)
	for i := range values {
		v, err := decodeValue(d, elem)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	return values, nil
}

func decodeUint(d *stream.Decoder, s *schema.Schema) (Value, error) {
	switch s.Width() {
	case 8:
		v, err := d.ExpectUint8()
		if err != nil {
			return Value{}, err
		}

		return Uint(uint64(v)), nil
	case 16:
		v, err := d.ExpectUint16()
		if err != nil {
			return Value{}, err
		}

		return Uint(uint64(v)), nil
	case 32:
		v, err := d.ExpectUint32()
		if err != nil {
			return Value{}, err
		}

		return Uint(uint64(v)), nil
	case 128:
		v, err := d.ExpectUint128()
		if err != nil {
			return Value{}, err
		}

		return Uint128(v), nil
	default:
		v, err := d.ExpectUint64()
		if err != nil {
			return Value{}, err
		}

		return Uint(v), nil
	}
}

func decodeInt(d *stream.Decoder, s *schema.Schema) (Value, error) {
	switch s.Width() {
	case 8:
		v, err := d.ExpectInt8()
		if err != nil {
			return Value{}, err
		}

		return Int(int64(v)), nil
	case 16:
		v, err := d.ExpectInt16()
		if err != nil {
			return Value{}, err
		}

		return Int(int64(v)), nil
	case 32:
		v, err := d.ExpectInt32()
		if err != nil {
			return Value{}, err
		}

		return Int(int64(v)), nil
	case 128:
		v, err := d.ExpectInt128()
		if err != nil {
			return Value{}, err
		}

		return Int128(v), nil
	default:
		v, err := d.ExpectInt64()
		if err != nil {
			return Value{}, err
		}

		return Int(v), nil
	}
}
