package codec

import (
	"github.com/cockroachdb/errors"

	"distmap/crypter"
)

// Encrypted wraps another codec, encrypting its encoded bytes with an
// AES key before they leave the process. Meant for maps holding
// sensitive values; the remote store never sees plaintext.
type Encrypted[V any] struct {
	inner Codec[V]
	c     crypter.Crypter
}

// NewEncrypted wraps inner with c (e.g. crypter.NewAes(key, iv)).
func NewEncrypted[V any](inner Codec[V], c crypter.Crypter) Encrypted[V] {
	return Encrypted[V]{inner: inner, c: c}
}

func (e Encrypted[V]) Encode(v V) ([]byte, error) {
	raw, err := e.inner.Encode(v)
	if err != nil {
		return nil, err
	}
	out, err := e.c.EnCrypt(raw)
	if err != nil {
		return nil, errors.Wrap(err, "codec: encrypt")
	}
	return out, nil
}

func (e Encrypted[V]) Decode(b []byte) (V, error) {
	raw, err := e.c.DeCrypt(b)
	if err != nil {
		var zero V
		return zero, errors.Wrap(err, "codec: decrypt")
	}
	return e.inner.Decode(raw)
}

func (e Encrypted[V]) Display(v V) string {
	return e.inner.Display(v)
}
