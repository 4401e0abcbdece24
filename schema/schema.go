// Package schema describes the shape of cord values.
//
// A Schema is the structural contract shared by an encoder and a decoder; it
// is never present on the wire. Schemas form a closed algebra: only shapes
// that canonicalize are constructible. Floating-point numbers and unordered
// maps are deliberately absent.
//
// Schemas are immutable after construction and safe to share across
// goroutines. The primitive shapes are exported as ready-made singletons
// (Bool, String, U32, ...); composite shapes are built with the constructor
// functions (Option, Seq, Set, Struct, Enum, ...).
package schema

import (
	"fmt"
	"strings"
)

// Kind identifies a wire category.
type Kind uint8

const (
	// KindInvalid is the zero Kind; no constructed Schema carries it.
	KindInvalid Kind = iota

	// KindUnit occupies no bytes on the wire.
	KindUnit

	// KindBool is a single byte, 0x00 or 0x01.
	KindBool

	// KindUint is an unsigned varint of a schema-declared width.
	KindUint

	// KindInt is a ZigZag-mapped signed varint of a schema-declared width.
	KindInt

	// KindBytes is a length-prefixed opaque octet string.
	KindBytes

	// KindString is a length-prefixed UTF-8 string.
	KindString

	// KindTimestamp is a UTC instant: signed 64-bit seconds, then unsigned
	// 32-bit subsecond nanoseconds.
	KindTimestamp

	// KindOption is a one-byte discriminant, then the inner value when some.
	KindOption

	// KindSeq is a length varint followed by that many elements in source order.
	KindSeq

	// KindTuple is a fixed-length run of heterogeneous members; nothing on
	// the wire beyond the members themselves.
	KindTuple

	// KindSet is a length varint followed by elements sorted by their own
	// encoded bytes.
	KindSet

	// KindStruct is the concatenation of field encodings in declaration
	// order; no names, counts, or tags on the wire.
	KindStruct

	// KindEnum is a varint variant tag, then the variant's payload.
	KindEnum
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	case KindOption:
		return "option"
	case KindSeq:
		return "seq"
	case KindTuple:
		return "tuple"
	case KindSet:
		return "set"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	default:
		return "invalid"
	}
}

// Field is one named member of a struct shape. The name exists for driver
// diagnostics only and never reaches the wire.
type Field struct {
	Name   string
	Schema *Schema
}

// Variant is one alternative of an enum shape. Its payload is the ordered
// list of member shapes: empty for a unit variant, one or more for tuple and
// struct variants. The variant's wire tag is its index in the enum.
type Variant struct {
	Name    string
	Payload []*Schema
}

// Schema is an immutable shape descriptor.
type Schema struct {
	kind     Kind
	width    uint8 // integer widths: 8, 16, 32, 64, 128
	elem     *Schema
	members  []*Schema
	fields   []Field
	variants []Variant
}

// Primitive shapes, shared singletons.
var (
	Unit      = &Schema{kind: KindUnit}
	Bool      = &Schema{kind: KindBool}
	Bytes     = &Schema{kind: KindBytes}
	String    = &Schema{kind: KindString}
	Timestamp = &Schema{kind: KindTimestamp}

	U8   = &Schema{kind: KindUint, width: 8}
	U16  = &Schema{kind: KindUint, width: 16}
	U32  = &Schema{kind: KindUint, width: 32}
	U64  = &Schema{kind: KindUint, width: 64}
	U128 = &Schema{kind: KindUint, width: 128}

	I8   = &Schema{kind: KindInt, width: 8}
	I16  = &Schema{kind: KindInt, width: 16}
	I32  = &Schema{kind: KindInt, width: 32}
	I64  = &Schema{kind: KindInt, width: 64}
	I128 = &Schema{kind: KindInt, width: 128}
)

// Option describes an optional value with the given inner shape.
func Option(inner *Schema) *Schema {
	if inner == nil {
		panic("schema: Option with nil inner schema")
	}

	return &Schema{kind: KindOption, elem: inner}
}

// Seq describes a variable-length sequence of elem. The length rides the wire
// as a varint prefix.
func Seq(elem *Schema) *Schema {
	if elem == nil {
		panic("schema: Seq with nil element schema")
	}

	return &Schema{kind: KindSeq, elem: elem}
}

// Set describes an unordered collection of elem, canonicalized on the wire by
// the lexicographic order of the elements' own encodings.
func Set(elem *Schema) *Schema {
	if elem == nil {
		panic("schema: Set with nil element schema")
	}

	return &Schema{kind: KindSet, elem: elem}
}

// Tuple describes a fixed run of heterogeneous members. The member count is
// schema-known and never on the wire.
func Tuple(members ...*Schema) *Schema {
	for i, m := range members {
		if m == nil {
			panic(fmt.Sprintf("schema: Tuple with nil member %d", i))
		}
	}

	return &Schema{kind: KindTuple, members: members}
}

// Struct describes a named-field composite. Fields encode in declaration
// order with no names or counts on the wire.
func Struct(fields ...Field) *Schema {
	for i, f := range fields {
		if f.Schema == nil {
			panic(fmt.Sprintf("schema: Struct field %d (%q) has nil schema", i, f.Name))
		}
	}

	return &Schema{kind: KindStruct, fields: fields}
}

// Enum describes a tagged union. A variant's wire tag is its index in the
// declaration order.
func Enum(variants ...Variant) *Schema {
	if len(variants) == 0 {
		panic("schema: Enum with no variants")
	}
	for i, v := range variants {
		for j, p := range v.Payload {
			if p == nil {
				panic(fmt.Sprintf("schema: Enum variant %d (%q) has nil payload member %d", i, v.Name, j))
			}
		}
	}

	return &Schema{kind: KindEnum, variants: variants}
}

// Kind returns the wire category of the schema.
func (s *Schema) Kind() Kind {
	return s.kind
}

// Width returns the logical bit width for integer shapes (8, 16, 32, 64, or
// 128) and 0 for every other kind.
func (s *Schema) Width() uint {
	return uint(s.width)
}

// Elem returns the element shape of an option, sequence, or set, and nil for
// every other kind.
func (s *Schema) Elem() *Schema {
	return s.elem
}

// Members returns the member shapes of a tuple.
func (s *Schema) Members() []*Schema {
	return s.members
}

// Fields returns the fields of a struct.
func (s *Schema) Fields() []Field {
	return s.fields
}

// Variants returns the variants of an enum.
func (s *Schema) Variants() []Variant {
	return s.variants
}

// NumVariants returns the variant count of an enum and 0 for other kinds.
func (s *Schema) NumVariants() int {
	return len(s.variants)
}

// String renders the shape in a compact, human-oriented notation, e.g.
// "struct{id: u32, name: string, active: bool}".
func (s *Schema) String() string {
	switch s.kind {
	case KindUint:
		return fmt.Sprintf("u%d", s.width)
	case KindInt:
		return fmt.Sprintf("i%d", s.width)
	case KindOption:
		return fmt.Sprintf("option<%s>", s.elem)
	case KindSeq:
		return fmt.Sprintf("seq<%s>", s.elem)
	case KindSet:
		return fmt.Sprintf("set<%s>", s.elem)
	case KindTuple:
		parts := make([]string, len(s.members))
		for i, m := range s.members {
			parts[i] = m.String()
		}

		return "tuple(" + strings.Join(parts, ", ") + ")"
	case KindStruct:
		parts := make([]string, len(s.fields))
		for i, f := range s.fields {
			parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Schema)
		}

		return "struct{" + strings.Join(parts, ", ") + "}"
	case KindEnum:
		parts := make([]string, len(s.variants))
		for i, v := range s.variants {
			if len(v.Payload) == 0 {
				parts[i] = v.Name
				continue
			}
			members := make([]string, len(v.Payload))
			for j, p := range v.Payload {
				members[j] = p.String()
			}
			parts[i] = v.Name + "(" + strings.Join(members, ", ") + ")"
		}

		return "enum{" + strings.Join(parts, " | ") + "}"
	default:
		return s.kind.String()
	}
}
