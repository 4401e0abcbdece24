// Package stream implements the cord streaming drivers.
//
// The Encoder receives a semantic event stream from the caller (begin struct,
// field values, begin variant, sequence elements, leaves) and emits the
// canonical byte sequence. The Decoder mirrors it: the caller announces the
// expected shape event by event and the Decoder consumes input bytes,
// rejecting every non-canonical form.
//
// Both drivers maintain a stack of container frames. The drivers carry no
// state across calls to Finish; instances are single-use and must not be
// shared between goroutines.
package stream

import (
	"fmt"
	"math/big"

	"github.com/backbone-hq/cord/canonical"
	"github.com/backbone-hq/cord/encoding"
	"github.com/backbone-hq/cord/errs"
	"github.com/backbone-hq/cord/internal/pool"
)

// Encoder is the streaming serializer.
//
// Events outside sets append directly to the output buffer, so encoding is
// single-pass. Inside a set the encoder redirects child encodings into a side
// buffer, records element boundaries, and at EndSet sorts the elements by
// their encoded bytes, collapses duplicates, and flushes count plus elements
// to the enclosing output.
//
// Any contract violation poisons the encoder: the offending call and every
// later call, including Finish, return the same error, and all buffers are
// returned to their pools immediately.
type Encoder struct {
	buf *pool.ByteBuffer

	// targets[0] is the output buffer; one more entry per open set, so the
	// last entry is always where the current event's bytes land.
	targets []*pool.ByteBuffer

	frames     []encFrame
	rootDone   bool
	finished   bool
	strictSets bool
	err        error
}

// encFrame tracks one open container on the encoder stack.
type encFrame struct {
	kind      frameKind
	remaining int   // children still owed; ignored for variant frames
	marks     []int // set frames: element end offsets within the side buffer
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithStrictSets makes EndSet fail with errs.ErrDuplicateSetElement when two
// elements encode to identical bytes. The default is to collapse duplicates
// silently, which matches set semantics: the wire carries the deduplicated
// element count either way.
func WithStrictSets() Option {
	return func(e *Encoder) {
		e.strictSets = true
	}
}

// NewEncoder creates an Encoder ready to receive exactly one top-level value.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		buf: pool.GetEncodeBuffer(),
	}
	e.targets = append(e.targets, e.buf)
	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Encoder) target() *pool.ByteBuffer {
	return e.targets[len(e.targets)-1]
}

// fail records the first error, releases all buffers, and returns the error.
func (e *Encoder) fail(err error) error {
	if e.err == nil {
		e.err = err
		e.release()
	}

	return e.err
}

func (e *Encoder) release() {
	for i := len(e.targets) - 1; i >= 1; i-- {
		pool.PutSetBuffer(e.targets[i])
	}
	e.targets = nil
	if e.buf != nil {
		pool.PutEncodeBuffer(e.buf)
		e.buf = nil
	}
}

// pre validates that the encoder may accept a new value event.
func (e *Encoder) pre() error {
	if e.err != nil {
		return e.err
	}
	if e.finished {
		return e.fail(fmt.Errorf("%w: event after Finish", errs.ErrSchemaMisuse))
	}

	if len(e.frames) == 0 {
		if e.rootDone {
			return e.fail(fmt.Errorf("%w: event after top-level value completed", errs.ErrSchemaMisuse))
		}

		return nil
	}

	top := &e.frames[len(e.frames)-1]
	if top.kind.counted() && top.remaining == 0 {
		return e.fail(fmt.Errorf("%w: %s already has its declared children", errs.ErrSchemaMisuse, top.kind))
	}

	return nil
}

// afterValue settles the stack after one complete value was produced into the
// current target. Option frames hold exactly one child and pop themselves,
// completing a value for their own parent in turn.
func (e *Encoder) afterValue() error {
	for {
		if len(e.frames) == 0 {
			e.rootDone = true
			return nil
		}

		top := &e.frames[len(e.frames)-1]
		switch top.kind {
		case frameOption:
			e.frames = e.frames[:len(e.frames)-1]
			continue
		case frameVariant:
			return nil
		case frameSet:
			top.remaining--
			top.marks = append(top.marks, e.target().Len())

			return nil
		default:
			top.remaining--
			return nil
		}
	}
}

func (e *Encoder) push(kind frameKind, remaining int) {
	e.frames = append(e.frames, encFrame{kind: kind, remaining: remaining})
}

// end closes the innermost container, which must match kind and have received
// all declared children. Not used for sets, which flush on close.
func (e *Encoder) end(kind frameKind) error {
	if e.err != nil {
		return e.err
	}
	if e.finished {
		return e.fail(fmt.Errorf("%w: event after Finish", errs.ErrSchemaMisuse))
	}
	if len(e.frames) == 0 {
		return e.fail(fmt.Errorf("%w: End%s with no open container", errs.ErrSchemaMisuse, kind))
	}

	top := &e.frames[len(e.frames)-1]
	if top.kind != kind {
		return e.fail(fmt.Errorf("%w: End%s closes open %s", errs.ErrSchemaMisuse, kind, top.kind))
	}
	if top.kind.counted() && top.remaining > 0 {
		return e.fail(fmt.Errorf("%w: %s closed with %d declared children missing",
			errs.ErrSchemaMisuse, top.kind, top.remaining))
	}

	e.frames = e.frames[:len(e.frames)-1]

	return e.afterValue()
}

// EmitUnit emits a unit value, which occupies no bytes.
func (e *Encoder) EmitUnit() error {
	if err := e.pre(); err != nil {
		return err
	}

	return e.afterValue()
}

// EmitBool emits a boolean.
func (e *Encoder) EmitBool(v bool) error {
	if err := e.pre(); err != nil {
		return err
	}

	t := e.target()
	t.B = encoding.AppendBool(t.B, v)

	return e.afterValue()
}

// EmitUint8 emits an unsigned integer of logical width 8.
func (e *Encoder) EmitUint8(v uint8) error {
	return e.emitUvarint(uint64(v))
}

// EmitUint16 emits an unsigned integer of logical width 16.
func (e *Encoder) EmitUint16(v uint16) error {
	return e.emitUvarint(uint64(v))
}

// EmitUint32 emits an unsigned integer of logical width 32.
func (e *Encoder) EmitUint32(v uint32) error {
	return e.emitUvarint(uint64(v))
}

// EmitUint64 emits an unsigned integer of logical width 64.
func (e *Encoder) EmitUint64(v uint64) error {
	return e.emitUvarint(v)
}

func (e *Encoder) emitUvarint(v uint64) error {
	if err := e.pre(); err != nil {
		return err
	}

	t := e.target()
	t.B = encoding.AppendUvarint(t.B, v)

	return e.afterValue()
}

// EmitInt8 emits a signed integer of logical width 8.
func (e *Encoder) EmitInt8(v int8) error {
	return e.emitVarint(int64(v))
}

// EmitInt16 emits a signed integer of logical width 16.
func (e *Encoder) EmitInt16(v int16) error {
	return e.emitVarint(int64(v))
}

// EmitInt32 emits a signed integer of logical width 32.
func (e *Encoder) EmitInt32(v int32) error {
	return e.emitVarint(int64(v))
}

// EmitInt64 emits a signed integer of logical width 64.
func (e *Encoder) EmitInt64(v int64) error {
	return e.emitVarint(v)
}

func (e *Encoder) emitVarint(v int64) error {
	if err := e.pre(); err != nil {
		return err
	}

	t := e.target()
	t.B = encoding.AppendVarint(t.B, v)

	return e.afterValue()
}

// EmitUint128 emits an unsigned integer of logical width 128. The value must
// be non-negative and below 2^128.
func (e *Encoder) EmitUint128(v *big.Int) error {
	if err := e.pre(); err != nil {
		return err
	}
	if v == nil || v.Sign() < 0 || v.BitLen() > 128 {
		return e.fail(fmt.Errorf("%w: u128 value out of range", errs.ErrSchemaMisuse))
	}

	t := e.target()
	t.B = encoding.AppendUvarintBig(t.B, v)

	return e.afterValue()
}

// EmitInt128 emits a signed integer of logical width 128. The value must lie
// in [-2^127, 2^127-1].
func (e *Encoder) EmitInt128(v *big.Int) error {
	if err := e.pre(); err != nil {
		return err
	}
	if v == nil {
		return e.fail(fmt.Errorf("%w: i128 value is nil", errs.ErrSchemaMisuse))
	}

	u := encoding.ZigZagBig(v)
	if u.BitLen() > 128 {
		return e.fail(fmt.Errorf("%w: i128 value out of range", errs.ErrSchemaMisuse))
	}

	t := e.target()
	t.B = encoding.AppendUvarintBig(t.B, u)

	return e.afterValue()
}

// EmitBytes emits a length-prefixed octet string.
func (e *Encoder) EmitBytes(v []byte) error {
	if err := e.pre(); err != nil {
		return err
	}

	t := e.target()
	t.B = encoding.AppendBytes(t.B, v)

	return e.afterValue()
}

// EmitString emits a length-prefixed UTF-8 string.
func (e *Encoder) EmitString(v string) error {
	if err := e.pre(); err != nil {
		return err
	}

	t := e.target()
	t.B = encoding.AppendString(t.B, v)

	return e.afterValue()
}

// EmitTimestamp emits a UTC instant. Nanoseconds must stay below one second.
func (e *Encoder) EmitTimestamp(sec int64, nanos uint32) error {
	if err := e.pre(); err != nil {
		return err
	}

	t := e.target()
	b, err := encoding.AppendTimestamp(t.B, sec, nanos)
	if err != nil {
		return e.fail(err)
	}
	t.B = b

	return e.afterValue()
}

// EmitNone emits an absent optional.
func (e *Encoder) EmitNone() error {
	if err := e.pre(); err != nil {
		return err
	}

	e.target().AppendByte(0x00)

	return e.afterValue()
}

// BeginSome emits the present-optional discriminant. The caller must follow
// with exactly one value, the option's payload; the frame pops itself once
// that value completes.
func (e *Encoder) BeginSome() error {
	if err := e.pre(); err != nil {
		return err
	}

	e.target().AppendByte(0x01)
	e.push(frameOption, 1)

	return nil
}

// BeginSeq opens a variable-length sequence of n elements. The count rides
// the wire as a varint prefix; the caller must emit exactly n values before
// EndSeq.
func (e *Encoder) BeginSeq(n int) error {
	if err := e.pre(); err != nil {
		return err
	}
	if n < 0 {
		return e.fail(fmt.Errorf("%w: negative sequence length %d", errs.ErrSchemaMisuse, n))
	}

	t := e.target()
	t.B = encoding.AppendUvarint(t.B, uint64(n))
	e.push(frameSeq, n)

	return nil
}

// EndSeq closes the innermost sequence.
func (e *Encoder) EndSeq() error {
	return e.end(frameSeq)
}

// BeginTuple opens a fixed-length tuple of n members. Nothing rides the wire;
// n exists for the encoder's own accounting.
func (e *Encoder) BeginTuple(n int) error {
	return e.beginBare(frameTuple, n)
}

// EndTuple closes the innermost tuple.
func (e *Encoder) EndTuple() error {
	return e.end(frameTuple)
}

// BeginStruct opens a struct of n fields. Nothing rides the wire; n exists
// for the encoder's own accounting.
func (e *Encoder) BeginStruct(n int) error {
	return e.beginBare(frameStruct, n)
}

// EndStruct closes the innermost struct.
func (e *Encoder) EndStruct() error {
	return e.end(frameStruct)
}

func (e *Encoder) beginBare(kind frameKind, n int) error {
	if err := e.pre(); err != nil {
		return err
	}
	if n < 0 {
		return e.fail(fmt.Errorf("%w: negative %s length %d", errs.ErrSchemaMisuse, kind, n))
	}

	e.push(kind, n)

	return nil
}

// BeginVariant opens an enum value: the tag is written as a varint, then the
// caller emits the variant's payload events and closes with EndVariant.
func (e *Encoder) BeginVariant(tag uint64) error {
	if err := e.pre(); err != nil {
		return err
	}

	t := e.target()
	t.B = encoding.AppendUvarint(t.B, tag)
	e.push(frameVariant, 0)

	return nil
}

// EndVariant closes the innermost enum value.
func (e *Encoder) EndVariant() error {
	return e.end(frameVariant)
}

// BeginSet opens a set of n elements. Child encodings accumulate in a side
// buffer until EndSet sorts, deduplicates, and flushes them.
func (e *Encoder) BeginSet(n int) error {
	if err := e.pre(); err != nil {
		return err
	}
	if n < 0 {
		return e.fail(fmt.Errorf("%w: negative set length %d", errs.ErrSchemaMisuse, n))
	}

	e.push(frameSet, n)
	e.targets = append(e.targets, pool.GetSetBuffer())

	return nil
}

// EndSet canonicalizes and flushes the innermost set: elements are sorted by
// the lexicographic order of their own encodings, byte-identical elements are
// collapsed (or rejected under WithStrictSets), and the deduplicated count
// plus the sorted elements land in the enclosing output.
func (e *Encoder) EndSet() error {
	if e.err != nil {
		return e.err
	}
	if e.finished {
		return e.fail(fmt.Errorf("%w: event after Finish", errs.ErrSchemaMisuse))
	}
	if len(e.frames) == 0 {
		return e.fail(fmt.Errorf("%w: EndSet with no open container", errs.ErrSchemaMisuse))
	}

	top := &e.frames[len(e.frames)-1]
	if top.kind != frameSet {
		return e.fail(fmt.Errorf("%w: EndSet closes open %s", errs.ErrSchemaMisuse, top.kind))
	}
	if top.remaining > 0 {
		return e.fail(fmt.Errorf("%w: set closed with %d declared elements missing",
			errs.ErrSchemaMisuse, top.remaining))
	}

	side := e.target()
	elems := make([][]byte, 0, len(top.marks))
	prev := 0
	for _, mark := range top.marks {
		elems = append(elems, side.Slice(prev, mark))
		prev = mark
	}

	canonical.Sort(elems)
	elems, removed := canonical.Dedupe(elems)
	if removed > 0 && e.strictSets {
		return e.fail(fmt.Errorf("%w: %d of %d elements collapsed",
			errs.ErrDuplicateSetElement, removed, len(elems)+removed))
	}

	e.targets = e.targets[:len(e.targets)-1]
	e.frames = e.frames[:len(e.frames)-1]

	t := e.target()
	t.B = encoding.AppendUvarint(t.B, uint64(len(elems)))
	for _, elem := range elems {
		t.Append(elem)
	}

	// Flush before releasing: the element slices alias the side buffer.
	pool.PutSetBuffer(side)

	return e.afterValue()
}

// Discard abandons the encode, returning all buffers to their pools. Every
// later call fails. Calling Discard after an error or after Finish is a
// no-op.
func (e *Encoder) Discard() {
	if e.err == nil && !e.finished {
		e.err = fmt.Errorf("%w: encode discarded", errs.ErrSchemaMisuse)
		e.release()
	}
}

// Finish returns the accumulated canonical encoding. Exactly one complete
// top-level value must have been emitted and every container closed. The
// encoder is unusable afterwards.
func (e *Encoder) Finish() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.finished {
		return nil, e.fail(fmt.Errorf("%w: Finish called twice", errs.ErrSchemaMisuse))
	}
	if len(e.frames) > 0 {
		return nil, e.fail(fmt.Errorf("%w: Finish with %d containers still open", errs.ErrSchemaMisuse, len(e.frames)))
	}
	if !e.rootDone {
		return nil, e.fail(fmt.Errorf("%w: Finish before any value was emitted", errs.ErrSchemaMisuse))
	}

	e.finished = true
	out := make([]byte, e.buf.Len())
	copy(out, e.buf.Bytes())
	e.release()

	return out, nil
}
