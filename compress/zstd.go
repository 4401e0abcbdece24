package compress

// ZstdCodec compresses with Zstandard. Best ratio of the built-in codecs;
// the right choice for archival of canonical encodings.
//
// Two implementations exist behind build tags: the default pure-Go
// klauspost/compress backend, and a cgo backend over libzstd selected with
// -tags zstdcgo for workloads where the native library's throughput matters.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)

// NewZstdCodec creates a new Zstd codec.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}
