package encoding

import (
	"fmt"

	"github.com/backbone-hq/cord/errs"
)

// Reader is a forward-only cursor over an input byte slice.
//
// The cursor only ever advances; the decoder's strict left-to-right
// consumption rule rests on that property. Reads past the end of the input
// fail with errs.ErrTruncated. The Reader never copies: slices returned by
// ReadSlice and Window alias the input.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader over data. The Reader does not take ownership;
// the caller must not mutate data while decoding.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// ReadByte consumes and returns the next byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("%w: need 1 byte at offset %d", errs.ErrTruncated, r.pos)
	}

	b := r.data[r.pos]
	r.pos++

	return b, nil
}

// ReadSlice consumes n bytes and returns them as a view into the input.
func (r *Reader) ReadSlice(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", errs.ErrOutOfRange, n)
	}
	if len(r.data)-r.pos < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			errs.ErrTruncated, n, r.pos, len(r.data)-r.pos)
	}

	s := r.data[r.pos : r.pos+n]
	r.pos += n

	return s, nil
}

// Pos returns the current cursor offset.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Empty reports whether the cursor has consumed the entire input.
func (r *Reader) Empty() bool {
	return r.pos >= len(r.data)
}

// Window returns the input bytes between two previously observed offsets.
// The decoder uses it to recover the exact encoding of a just-parsed set
// element for the ascending-order check.
func (r *Reader) Window(start, end int) []byte {
	if start < 0 || end < start || end > len(r.data) {
		panic("Window: invalid offsets")
	}

	return r.data[start:end]
}
