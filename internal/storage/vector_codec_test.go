package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorCodecRoundTrip(t *testing.T) {
	in := []float32{0.25, -1, 3.5}
	blob, err := EncodeVector(in)
	require.NoError(t, err)
	assert.Len(t, blob, 4+3*4)

	out, err := DecodeVector(blob)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestVectorCodecEmpty(t *testing.T) {
	blob, err := EncodeVector(nil)
	require.NoError(t, err)
	assert.Nil(t, blob)

	out, err := DecodeVector(nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestVectorCodecRejectsBadInput(t *testing.T) {
	_, err := EncodeVector([]float32{float32(math.NaN())})
	assert.Error(t, err)

	_, err = DecodeVector([]byte{1, 0})
	assert.Error(t, err)

	_, err = DecodeVector([]byte{2, 0, 0, 0, 0, 0, 0, 0})
	assert.Error(t, err, "header claims two values but payload holds one")
}
