package codec

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/proto"

	"distmap/parser"
)

// Protobuf codes values as wire-format protobuf, for any V whose
// pointer type implements proto.Message. It delegates to
// parser.PbParser, the protobuf arm of this codebase's {Marshal,
// Unmarshal} capability.
type Protobuf[V proto.Message] struct {
	p    parser.Parser
	newV func() V
}

// NewProtobuf builds a Protobuf codec. newV must return a freshly
// allocated, ready-to-populate V (e.g. &MyMessage{}).
func NewProtobuf[V proto.Message](newV func() V) Protobuf[V] {
	return Protobuf[V]{p: &parser.PbParser{}, newV: newV}
}

func (c Protobuf[V]) Encode(v V) ([]byte, error) {
	b, err := c.p.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "codec: protobuf encode")
	}
	return b, nil
}

func (c Protobuf[V]) Decode(b []byte) (V, error) {
	v := c.newV()
	if err := c.p.Unmarshal(b, v); err != nil {
		return v, errors.Wrap(err, "codec: protobuf decode")
	}
	return v, nil
}

func (Protobuf[V]) Display(v V) string {
	return fmt.Sprintf("%v", v)
}
