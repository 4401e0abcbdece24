package stream

// frameKind identifies the container a driver frame tracks.
type frameKind uint8

const (
	frameStruct frameKind = iota
	frameTuple
	frameSeq
	frameSet
	frameVariant
	frameOption
)

func (k frameKind) String() string {
	switch k {
	case frameStruct:
		return "struct"
	case frameTuple:
		return "tuple"
	case frameSeq:
		return "seq"
	case frameSet:
		return "set"
	case frameVariant:
		return "variant"
	case frameOption:
		return "option"
	default:
		return "unknown"
	}
}

// counted reports whether the frame kind carries a declared child count that
// the drivers enforce. Variant payloads are schema-shaped by the caller, and
// option frames pop themselves after their single child.
func (k frameKind) counted() bool {
	return k == frameStruct || k == frameTuple || k == frameSeq || k == frameSet
}
