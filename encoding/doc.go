// Package encoding implements the cord wire codec: canonical varints and the
// primitive value encodings built on them.
//
// Encoding functions follow the append style of the standard library: they
// take a destination slice and return the extended slice, so callers control
// allocation. Decoding functions consume bytes from a Reader cursor and
// reject every non-canonical form with a sentinel error from the errs
// package. The streaming drivers in the stream package are the intended
// consumers; the functions here carry no state of their own.
package encoding
