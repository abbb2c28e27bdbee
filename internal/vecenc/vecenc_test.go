package vecenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]float32{
		{},
		{0},
		{1.5, -2.25, 0, 3.14159, -100000.5},
	}
	for _, v := range cases {
		got, err := Decode(Encode(v))
		assert.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestDecodeInvalidBase64(t *testing.T) {
	_, err := Decode("not-base64!!")
	assert.Error(t, err)
}

func TestDecodeTruncatedPayload(t *testing.T) {
	_, err := Decode(Encode([]float32{1})[:2])
	assert.Error(t, err)
}
