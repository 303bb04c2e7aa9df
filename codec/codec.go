// Package codec provides the Map Engine's pluggable value-serialization
// capability: encode a value of type V to bytes, decode it back, and
// render it as a human-readable string for diagnostics. The engine
// requires only this interface — it has no opinion on wire format.
package codec

// Codec serializes values of type V to and from bytes.
type Codec[V any] interface {
	// Encode converts a value to bytes for storage.
	Encode(v V) ([]byte, error)
	// Decode converts stored bytes back to a value.
	Decode(b []byte) (V, error)
	// Display renders a value for logs and diagnostics. It must not
	// fail — a codec that cannot produce a nice string falls back to
	// fmt.Sprintf("%v", v).
	Display(v V) string
}
