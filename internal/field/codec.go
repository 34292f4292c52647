package field

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/icza/bitio"
)

// byteLen is the number of bytes needed to hold any canonical element of
// m, rounded up to a whole byte.
func byteLen(m *Modulus) int {
	return (m.p.BitLen() + 7) / 8
}

// ToBytes renders e as a fixed-width, big-endian bit-packed encoding, so
// two equal field values always encode identically regardless of how
// the big.Int backing them was built.
func (e Element) ToBytes() []byte {
	width := byteLen(e.m)
	buf := new(bytes.Buffer)
	w := bitio.NewWriter(buf)
	// Write the value as a single big-endian bit run of the field's byte
	// width; bitio packs MSB-first, giving a canonical fixed-length form.
	v := e.v.Bytes()
	pad := width - len(v)
	for i := 0; i < pad; i++ {
		_ = w.WriteBits(0, 8)
	}
	for _, b := range v {
		_ = w.WriteBits(uint64(b), 8)
	}
	_ = w.Close()
	return buf.Bytes()
}

// FromBytes parses the encoding produced by ToBytes back into an Element
// bound to m.
func FromBytes(data []byte, m *Modulus) (Element, error) {
	r := bitio.NewReader(bytes.NewReader(data))
	width := byteLen(m)
	if len(data) < width {
		return Element{}, fmt.Errorf("field: short buffer: got %d want %d", len(data), width)
	}
	raw := make([]byte, width)
	for i := 0; i < width; i++ {
		b, err := r.ReadBits(8)
		if err != nil {
			return Element{}, fmt.Errorf("field: decode: %w", err)
		}
		raw[i] = byte(b)
	}
	v := new(big.Int).SetBytes(raw)
	return New(v, m), nil
}
