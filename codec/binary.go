package codec

import (
	"encoding"
	"fmt"

	"github.com/cockroachdb/errors"

	"distmap/convert"
)

// Binary is the length-prefixed binary codec for types that ship a
// compact wire format via encoding.BinaryMarshaler/BinaryUnmarshaler.
// The length prefix is a big-endian uint32, written and read with the
// same primitives used elsewhere in this codebase for fixed-width
// integer framing.
type Binary[V encoding.BinaryMarshaler] struct {
	// newV constructs a zero value of the concrete pointer-receiver
	// type implementing BinaryUnmarshaler, since a generic V cannot be
	// instantiated from its type parameter alone.
	newV func() V
}

// NewBinary builds a Binary codec. newV must return a usable zero value
// of V (e.g. a freshly allocated pointer for pointer-receiver V).
func NewBinary[V encoding.BinaryMarshaler](newV func() V) Binary[V] {
	return Binary[V]{newV: newV}
}

func (c Binary[V]) Encode(v V) ([]byte, error) {
	payload, err := v.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "codec: binary encode")
	}
	if len(payload) > int(^uint32(0)) {
		return nil, errors.Newf("codec: binary encode: payload too large (%d bytes)", len(payload))
	}
	prefix := convert.Int32ToByte(int32(uint32(len(payload))))
	return append(prefix, payload...), nil
}

func (c Binary[V]) Decode(b []byte) (V, error) {
	v := c.newV()
	n, err := convert.BytesToInt32(b)
	if err != nil {
		return v, errors.Wrap(err, "codec: binary decode: reading length prefix")
	}
	length := int(uint32(n))
	if len(b) < 4+length {
		return v, errors.Newf("codec: binary decode: truncated payload (want %d bytes, have %d)", length, len(b)-4)
	}
	unmarshaler, ok := any(v).(encoding.BinaryUnmarshaler)
	if !ok {
		return v, errors.Newf("codec: binary decode: %T does not implement encoding.BinaryUnmarshaler", v)
	}
	if err := unmarshaler.UnmarshalBinary(b[4 : 4+length]); err != nil {
		return v, errors.Wrap(err, "codec: binary decode")
	}
	return v, nil
}

func (c Binary[V]) Display(v V) string {
	b, err := v.MarshalBinary()
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf("%x", b)
}
