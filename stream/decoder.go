package stream

import (
	"fmt"
	"math"
	"math/big"

	"github.com/backbone-hq/cord/canonical"
	"github.com/backbone-hq/cord/encoding"
	"github.com/backbone-hq/cord/errs"
)

// Decoder is the streaming deserializer.
//
// The caller announces the expected shape through Expect calls that parallel
// the encoder's events; the Decoder consumes input strictly left to right and
// returns leaves. Enum tags and option discriminants are read first and
// handed back so the caller can choose the matching payload shape.
//
// Set elements are verified as they arrive: the Decoder remembers where each
// element's encoding started, and when the element completes it compares the
// consumed bytes against the previous element's. Anything not strictly
// ascending is non-canonical, which makes the Decoder a verifier of
// canonicalization rather than a mere parser.
//
// Slices returned by ExpectBytes alias the input rather than copying it.
//
// Any error poisons the decoder: every later call, including Finish, returns
// the first error.
type Decoder struct {
	r        *encoding.Reader
	frames   []decFrame
	rootDone bool
	finished bool
	err      error
}

// decFrame tracks one open container on the decoder stack.
type decFrame struct {
	kind      frameKind
	remaining int

	// Set verification state.
	elemStart int    // input offset where the current element began
	prev      []byte // previous element's encoding, view into the input
	ordered   bool   // prev is valid
}

// NewDecoder creates a Decoder over data. The caller must not mutate data
// while decoding.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{r: encoding.NewReader(data)}
}

func (d *Decoder) fail(err error) error {
	if d.err == nil {
		d.err = err
	}

	return d.err
}

// pre validates that the decoder may parse a new value.
func (d *Decoder) pre() error {
	if d.err != nil {
		return d.err
	}
	if d.finished {
		return d.fail(fmt.Errorf("%w: read after Finish", errs.ErrSchemaMismatch))
	}

	if len(d.frames) == 0 {
		if d.rootDone {
			return d.fail(fmt.Errorf("%w: read after top-level value completed", errs.ErrSchemaMismatch))
		}

		return nil
	}

	top := &d.frames[len(d.frames)-1]
	if top.kind.counted() && top.remaining == 0 {
		return d.fail(fmt.Errorf("%w: %s already yielded its declared children", errs.ErrSchemaMismatch, top.kind))
	}

	return nil
}

// afterValue settles the stack after one complete value was parsed. Set
// frames run the ascending-order check here, on the exact bytes the element
// consumed.
func (d *Decoder) afterValue() error {
	for {
		if len(d.frames) == 0 {
			d.rootDone = true
			return nil
		}

		top := &d.frames[len(d.frames)-1]
		switch top.kind {
		case frameOption:
			d.frames = d.frames[:len(d.frames)-1]
			continue
		case frameVariant:
			return nil
		case frameSet:
			end := d.r.Pos()
			elem := d.r.Window(top.elemStart, end)
			if top.ordered {
				switch canonical.Compare(elem, top.prev) {
				case 0:
					return d.fail(fmt.Errorf("%w: duplicate set element", errs.ErrNonCanonical))
				case -1:
					return d.fail(fmt.Errorf("%w: set elements not in ascending encoded order", errs.ErrNonCanonical))
				}
			}
			top.prev = elem
			top.ordered = true
			top.elemStart = end
			top.remaining--

			return nil
		default:
			top.remaining--
			return nil
		}
	}
}

func (d *Decoder) push(kind frameKind, remaining int) {
	d.frames = append(d.frames, decFrame{kind: kind, remaining: remaining})
}

// end closes the innermost container, which must match kind and have yielded
// all its children.
func (d *Decoder) end(kind frameKind) error {
	if d.err != nil {
		return d.err
	}
	if d.finished {
		return d.fail(fmt.Errorf("%w: read after Finish", errs.ErrSchemaMismatch))
	}
	if len(d.frames) == 0 {
		return d.fail(fmt.Errorf("%w: End%s with no open container", errs.ErrSchemaMismatch, kind))
	}

	top := &d.frames[len(d.frames)-1]
	if top.kind != kind {
		return d.fail(fmt.Errorf("%w: End%s closes open %s", errs.ErrSchemaMismatch, kind, top.kind))
	}
	if top.kind.counted() && top.remaining > 0 {
		return d.fail(fmt.Errorf("%w: %s closed with %d children unread", errs.ErrSchemaMismatch, top.kind, top.remaining))
	}

	d.frames = d.frames[:len(d.frames)-1]

	return d.afterValue()
}

// ExpectUnit parses a unit value, which occupies no bytes.
func (d *Decoder) ExpectUnit() error {
	if err := d.pre(); err != nil {
		return err
	}

	return d.afterValue()
}

// ExpectBool parses a boolean.
func (d *Decoder) ExpectBool() (bool, error) {
	if err := d.pre(); err != nil {
		return false, err
	}

	v, err := encoding.ReadBool(d.r)
	if err != nil {
		return false, d.fail(err)
	}

	return v, d.afterValue()
}

// ExpectUint8 parses an unsigned integer of logical width 8.
func (d *Decoder) ExpectUint8() (uint8, error) {
	v, err := d.expectUvarint(8)
	return uint8(v), err
}

// ExpectUint16 parses an unsigned integer of logical width 16.
func (d *Decoder) ExpectUint16() (uint16, error) {
	v, err := d.expectUvarint(16)
	return uint16(v), err
}

// ExpectUint32 parses an unsigned integer of logical width 32.
func (d *Decoder) ExpectUint32() (uint32, error) {
	v, err := d.expectUvarint(32)
	return uint32(v), err
}

// ExpectUint64 parses an unsigned integer of logical width 64.
func (d *Decoder) ExpectUint64() (uint64, error) {
	return d.expectUvarint(64)
}

func (d *Decoder) expectUvarint(w uint) (uint64, error) {
	if err := d.pre(); err != nil {
		return 0, err
	}

	v, err := encoding.ReadUvarint(d.r, w)
	if err != nil {
		return 0, d.fail(err)
	}

	return v, d.afterValue()
}

// ExpectInt8 parses a signed integer of logical width 8.
func (d *Decoder) ExpectInt8() (int8, error) {
	v, err := d.expectVarint(8)
	return int8(v), err
}

// ExpectInt16 parses a signed integer of logical width 16.
func (d *Decoder) ExpectInt16() (int16, error) {
	v, err := d.expectVarint(16)
	return int16(v), err
}

// ExpectInt32 parses a signed integer of logical width 32.
func (d *Decoder) ExpectInt32() (int32, error) {
	v, err := d.expectVarint(32)
	return int32(v), err
}

// ExpectInt64 parses a signed integer of logical width 64.
func (d *Decoder) ExpectInt64() (int64, error) {
	return d.expectVarint(64)
}

func (d *Decoder) expectVarint(w uint) (int64, error) {
	if err := d.pre(); err != nil {
		return 0, err
	}

	v, err := encoding.ReadVarint(d.r, w)
	if err != nil {
		return 0, d.fail(err)
	}

	return v, d.afterValue()
}

// ExpectUint128 parses an unsigned integer of logical width 128.
func (d *Decoder) ExpectUint128() (*big.Int, error) {
	if err := d.pre(); err != nil {
		return nil, err
	}

	v, err := encoding.ReadUvarintBig(d.r, 128)
	if err != nil {
		return nil, d.fail(err)
	}

	return v, d.afterValue()
}

// ExpectInt128 parses a signed integer of logical width 128.
func (d *Decoder) ExpectInt128() (*big.Int, error) {
	if err := d.pre(); err != nil {
		return nil, err
	}

	v, err := encoding.ReadVarintBig(d.r, 128)
	if err != nil {
		return nil, d.fail(err)
	}

	return v, d.afterValue()
}

// ExpectBytes parses a length-prefixed octet string. The returned slice
// aliases the decoder's input.
func (d *Decoder) ExpectBytes() ([]byte, error) {
	if err := d.pre(); err != nil {
		return nil, err
	}

	v, err := encoding.ReadBytes(d.r)
	if err != nil {
		return nil, d.fail(err)
	}

	return v, d.afterValue()
}

// ExpectString parses a length-prefixed UTF-8 string.
func (d *Decoder) ExpectString() (string, error) {
	if err := d.pre(); err != nil {
		return "", err
	}

	v, err := encoding.ReadString(d.r)
	if err != nil {
		return "", d.fail(err)
	}

	return v, d.afterValue()
}

// ExpectTimestamp parses a UTC instant.
func (d *Decoder) ExpectTimestamp() (sec int64, nanos uint32, err error) {
	if err := d.pre(); err != nil {
		return 0, 0, err
	}

	sec, nanos, err = encoding.ReadTimestamp(d.r)
	if err != nil {
		return 0, 0, d.fail(err)
	}

	return sec, nanos, d.afterValue()
}

// ExpectOption parses an optional's discriminant. When it returns true the
// caller must parse exactly one value, the option's payload; when false the
// option is already complete.
func (d *Decoder) ExpectOption() (bool, error) {
	if err := d.pre(); err != nil {
		return false, err
	}

	b, err := d.r.ReadByte()
	if err != nil {
		return false, d.fail(err)
	}

	switch b {
	case 0x00:
		return false, d.afterValue()
	case 0x01:
		d.push(frameOption, 1)
		return true, nil
	default:
		return false, d.fail(fmt.Errorf("%w: option discriminant 0x%02X", errs.ErrNonCanonical, b))
	}
}

// ExpectSeq parses a sequence's length prefix and returns the element count.
// The caller must parse exactly that many elements and close with EndSeq.
func (d *Decoder) ExpectSeq() (int, error) {
	if err := d.pre(); err != nil {
		return 0, err
	}

	n, err := d.readLength()
	if err != nil {
		return 0, err
	}

	d.push(frameSeq, n)

	return n, nil
}

// EndSeq closes the innermost sequence.
func (d *Decoder) EndSeq() error {
	return d.end(frameSeq)
}

// ExpectTuple opens a fixed-length tuple of n members; nothing is read from
// the wire.
func (d *Decoder) ExpectTuple(n int) error {
	return d.expectBare(frameTuple, n)
}

// EndTuple closes the innermost tuple.
func (d *Decoder) EndTuple() error {
	return d.end(frameTuple)
}

// ExpectStruct opens a struct of n fields; nothing is read from the wire.
func (d *Decoder) ExpectStruct(n int) error {
	return d.expectBare(frameStruct, n)
}

// EndStruct closes the innermost struct.
func (d *Decoder) EndStruct() error {
	return d.end(frameStruct)
}

func (d *Decoder) expectBare(kind frameKind, n int) error {
	if err := d.pre(); err != nil {
		return err
	}
	if n < 0 {
		return d.fail(fmt.Errorf("%w: negative %s length %d", errs.ErrSchemaMismatch, kind, n))
	}

	d.push(kind, n)

	return nil
}

// ExpectVariant parses an enum tag and returns it. A tag at or beyond
// numVariants has no declared variant and fails with errs.ErrOutOfRange. The
// caller then parses the chosen variant's payload and closes with EndVariant.
func (d *Decoder) ExpectVariant(numVariants int) (uint64, error) {
	if err := d.pre(); err != nil {
		return 0, err
	}

	tag, err := encoding.ReadUvarint(d.r, 64)
	if err != nil {
		return 0, d.fail(err)
	}
	if numVariants >= 0 && tag >= uint64(numVariants) {
		return 0, d.fail(fmt.Errorf("%w: enum tag %d with %d declared variants",
			errs.ErrOutOfRange, tag, numVariants))
	}

	d.push(frameVariant, 0)

	return tag, nil
}

// EndVariant closes the innermost enum value.
func (d *Decoder) EndVariant() error {
	return d.end(frameVariant)
}

// ExpectSet parses a set's length prefix and returns the element count. The
// caller parses each element in wire order; the decoder verifies strict
// ascending encoded order as elements complete.
func (d *Decoder) ExpectSet() (int, error) {
	if err := d.pre(); err != nil {
		return 0, err
	}

	n, err := d.readLength()
	if err != nil {
		return 0, err
	}

	d.frames = append(d.frames, decFrame{
		kind:      frameSet,
		remaining: n,
		elemStart: d.r.Pos(),
	})

	return n, nil
}

// EndSet closes the innermost set.
func (d *Decoder) EndSet() error {
	return d.end(frameSet)
}

func (d *Decoder) readLength() (int, error) {
	n, err := encoding.ReadUvarint(d.r, 64)
	if err != nil {
		return 0, d.fail(err)
	}
	if n > uint64(math.MaxInt) {
		return 0, d.fail(fmt.Errorf("%w: length %d exceeds platform limit", errs.ErrOutOfRange, n))
	}

	return int(n), nil
}

// Finish verifies the terminal state: one complete top-level value, no open
// containers, and no trailing bytes. The decoder is unusable afterwards.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if d.finished {
		return d.fail(fmt.Errorf("%w: Finish called twice", errs.ErrSchemaMismatch))
	}

	if len(d.frames) > 0 || !d.rootDone {
		if d.r.Empty() {
			return d.fail(fmt.Errorf("%w: input ended with value incomplete", errs.ErrTruncated))
		}

		return d.fail(fmt.Errorf("%w: Finish before the value was fully read", errs.ErrSchemaMismatch))
	}
	if !d.r.Empty() {
		return d.fail(fmt.Errorf("%w: %d bytes after top-level value", errs.ErrTrailingBytes, d.r.Remaining()))
	}

	d.finished = true

	return nil
}
