package storage

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	vectorHeaderSize = 4
	vectorValueSize  = 4
)

// EncodeVector packs a float32 vector as
// [4-byte little-endian dimension][N x 4-byte little-endian float32].
// A nil or empty vector encodes to nil (stored as NULL).
func EncodeVector(v []float32) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}

	blob := make([]byte, vectorHeaderSize+len(v)*vectorValueSize)
	binary.LittleEndian.PutUint32(blob[:vectorHeaderSize], uint32(len(v)))

	offset := vectorHeaderSize
	for i, value := range v {
		f := float64(value)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("encode vector: invalid value at index %d", i)
		}
		binary.LittleEndian.PutUint32(blob[offset:offset+vectorValueSize], math.Float32bits(value))
		offset += vectorValueSize
	}
	return blob, nil
}

// DecodeVector reverses EncodeVector.
func DecodeVector(blob []byte) ([]float32, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	if len(blob) < vectorHeaderSize {
		return nil, fmt.Errorf("decode vector: invalid blob length %d", len(blob))
	}

	dim := int(binary.LittleEndian.Uint32(blob[:vectorHeaderSize]))
	if dim <= 0 || len(blob) != vectorHeaderSize+dim*vectorValueSize {
		return nil, fmt.Errorf("decode vector: dimension mismatch: dim=%d payload=%d", dim, len(blob)-vectorHeaderSize)
	}

	v := make([]float32, dim)
	offset := vectorHeaderSize
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[offset : offset+vectorValueSize]))
		offset += vectorValueSize
	}
	return v, nil
}
