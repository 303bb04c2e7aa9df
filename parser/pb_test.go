package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestPbParser_Marshal(t *testing.T) {
	p := &PbParser{}

	msg := wrapperspb.String("player123")
	b, err := p.Marshal(msg)
	assert.NoError(t, err)
	assert.NotNil(t, b)

	out := &wrapperspb.StringValue{}
	err = p.Unmarshal(b, out)
	assert.NoError(t, err)
	assert.Equal(t, msg.Value, out.Value)
}

func TestPbParser_Marshal_NotAProtoMessage(t *testing.T) {
	p := &PbParser{}

	_, err := p.Marshal("not a proto message")
	assert.Error(t, err)

	err = p.Unmarshal([]byte("x"), "not a proto message")
	assert.Error(t, err)
}
