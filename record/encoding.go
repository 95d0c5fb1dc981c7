package record

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeFeatures encodes a feature vector into a BLOB: a little-endian
// sequence of IEEE 754 float64 values without a length prefix; the length is
// derived from the BLOB size on decode.
func EncodeFeatures(vec []float64) ([]byte, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	b := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return b, nil
}

// DecodeFeatures decodes a BLOB produced by EncodeFeatures.
func DecodeFeatures(b []byte) ([]float64, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("record: invalid features blob length %d (not multiple of 8)", len(b))
	}
	n := len(b) / 8
	vec := make([]float64, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return vec, nil
}

// DecodeEmbedding decodes a sqlite-vec embedding BLOB (little-endian float32
// values) into float32 values.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("record: invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	n := len(b) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// EncodeEmbedding encodes float32 values the way sqlite-vec stores them.
func EncodeEmbedding(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b, nil
}
