package hash

import "github.com/cespare/xxhash/v2"

// Sum64 computes the xxHash64 digest of a canonical encoding.
func Sum64(encoded []byte) uint64 {
	return xxhash.Sum64(encoded)
}
