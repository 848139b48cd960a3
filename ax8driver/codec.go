package ax8driver

import (
	"fmt"
	"math"
)

const (
	// Every 32-bit value travels as two copies, each led by a length marker.
	PAYLOAD_MARKER = 4
	PAYLOAD_WORDS  = 6
	VALUE_WORDS    = 2
)

// Payload is the register block written for one 32-bit value:
// [4, L, H, 4, H, L] where H and L are the high and low halves of the bit pattern.
type Payload [PAYLOAD_WORDS]uint16

// Value returns the trailing copy, high word first.
func (p Payload) Value() [VALUE_WORDS]uint16 {
	return [VALUE_WORDS]uint16{p[4], p[5]}
}

// Mirror returns the leading copy put back in high-word-first order.
func (p Payload) Mirror() [VALUE_WORDS]uint16 {
	return [VALUE_WORDS]uint16{p[2], p[1]}
}

// Validate checks the markers and that both copies carry the same value.
func (p Payload) Validate() error {
	if p[0] != PAYLOAD_MARKER || p[3] != PAYLOAD_MARKER {
		return &CodecError{Message: fmt.Sprintf("bad payload markers %d/%d", p[0], p[3])}
	}
	if p.Value() != p.Mirror() {
		return &CodecError{Message: fmt.Sprintf("payload copies disagree: %v != %v", p.Mirror(), p.Value())}
	}
	return nil
}

// Words returns the payload as a slice ready to be written.
func (p Payload) Words() []uint16 {
	return p[:]
}

func newPayload(bits uint32) Payload {
	h := uint16(bits >> 16)
	l := uint16(bits)
	return Payload{PAYLOAD_MARKER, l, h, PAYLOAD_MARKER, h, l}
}

// assemble rebuilds the 32-bit pattern from the first two words.
// The camera puts the high half in word 0.
func assemble(words []uint16) (uint32, error) {
	if len(words) < VALUE_WORDS {
		return 0, &CodecError{Message: fmt.Sprintf("need %d registers to decode a value, got %d", VALUE_WORDS, len(words))}
	}
	return uint32(words[0])<<16 | uint32(words[1]), nil
}

// DecodeFloat decodes a float32 from the first two words.
func DecodeFloat(words []uint16) (float32, error) {
	bits, err := assemble(words)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// DecodeInt decodes a signed 32-bit integer from the first two words.
func DecodeInt(words []uint16) (int32, error) {
	bits, err := assemble(words)
	if err != nil {
		return 0, err
	}
	return int32(bits), nil
}

// EncodeFloat encodes v as a single precision float payload.
func EncodeFloat(v float64) (Payload, error) {
	if !math.IsInf(v, 0) && !math.IsNaN(v) && math.Abs(v) > math.MaxFloat32 {
		return Payload{}, &CodecError{Message: fmt.Sprintf("%g does not fit in a float32", v)}
	}
	if v != 0 && float32(v) == 0 {
		return Payload{}, &CodecError{Message: fmt.Sprintf("%g is too small for a float32", v)}
	}
	return newPayload(math.Float32bits(float32(v))), nil
}

// EncodeInt encodes v as a signed 32-bit integer payload.
func EncodeInt(v int) (Payload, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return Payload{}, &CodecError{Message: fmt.Sprintf("%d does not fit in an int32", v)}
	}
	return newPayload(uint32(int32(v))), nil
}

// tail returns the last two words of a register block of the expected size.
func tail(words []uint16, expected int) ([]uint16, error) {
	if len(words) != expected {
		return nil, &CodecError{Message: fmt.Sprintf("expected a block of %d registers, got %d", expected, len(words))}
	}
	return words[expected-VALUE_WORDS:], nil
}
