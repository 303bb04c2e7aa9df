// Package keyser produces the canonical byte encoding of a Map Engine's
// key type — used both as the hash field name for data/metadata and as
// the member name in sorted sets. It must be deterministic and stable
// across processes, since metadata written by one process has to be
// addressable by another.
package keyser

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Serializer encodes a key of type K to its canonical field/member name
// and back. Decode is needed only by collaborators that recover a
// typed key from a raw scan (e.g. pagination); the engine itself never
// needs to decode its own keys for Get/Set/Remove.
type Serializer[K comparable] interface {
	Encode(k K) (string, error)
	Decode(s string) (K, error)
}

// JSON is a canonical, fixed-option JSON encoding: no indentation, one
// naming policy. It is deterministic and stable for the key types used
// in practice — strings and integers.
type JSON[K comparable] struct{}

// NewJSON builds a JSON key serializer for K.
func NewJSON[K comparable]() JSON[K] {
	return JSON[K]{}
}

func (JSON[K]) Encode(k K) (string, error) {
	b, err := json.Marshal(k)
	if err != nil {
		return "", errors.Wrap(err, "keyser: encode key")
	}
	return string(b), nil
}

func (JSON[K]) Decode(s string) (K, error) {
	var k K
	if err := json.Unmarshal([]byte(s), &k); err != nil {
		return k, errors.Wrap(err, "keyser: decode key")
	}
	return k, nil
}
