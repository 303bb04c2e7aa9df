package codec

import (
	"github.com/cockroachdb/errors"

	"distmap/compressor"
)

// Compressed wraps another codec, compressing its encoded bytes before
// they reach the store. Intended for maps whose values are large enough
// that the compression ratio outweighs the CPU cost — the codec itself
// takes no position on that tradeoff, the caller picks the compressor.
type Compressed[V any] struct {
	inner Codec[V]
	comp  compressor.Compresser
}

// NewCompressed wraps inner with comp (e.g. &compressor.ZstdCompressor{}
// or compressor.NoneCompressor{} to disable compression while keeping
// the same codec shape).
func NewCompressed[V any](inner Codec[V], comp compressor.Compresser) Compressed[V] {
	return Compressed[V]{inner: inner, comp: comp}
}

func (c Compressed[V]) Encode(v V) ([]byte, error) {
	raw, err := c.inner.Encode(v)
	if err != nil {
		return nil, err
	}
	out, err := c.comp.Compress(raw)
	if err != nil {
		return nil, errors.Wrap(err, "codec: compress")
	}
	return out, nil
}

func (c Compressed[V]) Decode(b []byte) (V, error) {
	raw, err := c.comp.Decompress(b)
	if err != nil {
		var zero V
		return zero, errors.Wrap(err, "codec: decompress")
	}
	return c.inner.Decode(raw)
}

func (c Compressed[V]) Display(v V) string {
	return c.inner.Display(v)
}
