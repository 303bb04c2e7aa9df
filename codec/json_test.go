package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type widget struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

func TestJSON_EncodeDecode(t *testing.T) {
	c := NewJSON[widget]()

	w := widget{Name: "bolt", Price: 150}
	b, err := c.Encode(w)
	assert.NoError(t, err)
	assert.Contains(t, string(b), "bolt")

	got, err := c.Decode(b)
	assert.NoError(t, err)
	assert.Equal(t, w, got)
}

func TestJSON_DecodeInvalid(t *testing.T) {
	c := NewJSON[widget]()

	_, err := c.Decode([]byte("{not json"))
	assert.Error(t, err)
}

func TestJSON_Display(t *testing.T) {
	c := NewJSON[widget]()
	s := c.Display(widget{Name: "nut", Price: 5})
	assert.Contains(t, s, "nut")
}
