package compress

// NoOpCodec passes data through without compression. Useful when encodings
// are tiny or already high-entropy, and as the baseline in benchmarks.
//
// Both directions return the input slice itself; callers that need an owned
// copy must make one.
type NoOpCodec struct{}

var _ Codec = (*NoOpCodec)(nil)

// NewNoOpCodec creates a pass-through codec.
func NewNoOpCodec() NoOpCodec {
	return NoOpCodec{}
}

// Compress returns data unchanged.
func (c NoOpCodec) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns data unchanged.
func (c NoOpCodec) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
