package codec

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"

	"distmap/parser"
)

// JSON is the default codec: human-readable in the store, works for any
// V that round-trips through encoding/json. It delegates the actual
// marshaling to parser.JSONParser, the same pluggable {Marshal,
// Unmarshal} capability used by the rest of this codebase.
type JSON[V any] struct {
	p parser.Parser
}

// NewJSON builds a JSON codec for V.
func NewJSON[V any]() JSON[V] {
	return JSON[V]{p: &parser.JSONParser{}}
}

func (c JSON[V]) Encode(v V) ([]byte, error) {
	b, err := c.p.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "codec: json encode")
	}
	return b, nil
}

func (c JSON[V]) Decode(b []byte) (V, error) {
	var v V
	if err := c.p.Unmarshal(b, &v); err != nil {
		return v, errors.Wrap(err, "codec: json decode")
	}
	return v, nil
}

func (JSON[V]) Display(v V) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
