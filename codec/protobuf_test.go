package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestProtobuf_EncodeDecode(t *testing.T) {
	c := NewProtobuf[*wrapperspb.StringValue](func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })

	in := wrapperspb.String("player123")
	b, err := c.Encode(in)
	require.NoError(t, err)

	out, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, in.Value, out.Value)
}

func TestProtobuf_Display(t *testing.T) {
	c := NewProtobuf[*wrapperspb.StringValue](func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	in := wrapperspb.String("player123")
	assert.NotEmpty(t, c.Display(in))
}
