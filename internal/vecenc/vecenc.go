// Package vecenc converts between float32 embedding vectors and the
// little-endian base64 encoding used for the optional document-level
// embedding column (spec.md §3 Document.documentEmbedding, §8 property 8).
package vecenc

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes v as little-endian float32 bytes and base64-encodes the
// result.
func Encode(v []float32) string {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// Decode reverses Encode, failing if the payload length is not a multiple
// of 4 bytes.
func Decode(s string) ([]float32, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("vecenc: invalid base64: %w", err)
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vecenc: payload length %d is not a multiple of 4", len(buf))
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}

// DecodeBytes reverses sqlite_vec.SerializeFloat32: the vec0 virtual table
// stores raw little-endian float32 bytes (no base64 layer), so
// VectorSearchPool reads them back with this instead of Decode.
func DecodeBytes(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vecenc: payload length %d is not a multiple of 4", len(buf))
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}
