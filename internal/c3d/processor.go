package c3d

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Processor identifies the numeric conventions a file was written with. The
// value is the raw byte stored at offset 3 of the parameter section.
type Processor uint8

const (
	ProcessorIntel Processor = 84
	ProcessorDEC   Processor = 85
	ProcessorMIPS  Processor = 86
)

func resolveProcessor(b byte) (Processor, error) {
	switch p := Processor(b); p {
	case ProcessorIntel, ProcessorDEC, ProcessorMIPS:
		return p, nil
	}
	return 0, fmt.Errorf("%w: 0x%02X", ErrUnsupportedProcessor, b)
}

func (p Processor) String() string {
	switch p {
	case ProcessorIntel:
		return "intel"
	case ProcessorDEC:
		return "dec"
	case ProcessorMIPS:
		return "mips"
	default:
		return fmt.Sprintf("processor(%d)", uint8(p))
	}
}

func (p Processor) order() binary.ByteOrder {
	if p == ProcessorMIPS {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Uint16 decodes a 16-bit word.
func (p Processor) Uint16(b []byte) uint16 {
	return p.order().Uint16(b)
}

// Int16 decodes a two's-complement 16-bit word.
func (p Processor) Int16(b []byte) int16 {
	return int16(p.order().Uint16(b))
}

// Float32 decodes a 4-byte float. DEC files store VAX F-floating values.
func (p Processor) Float32(b []byte) float32 {
	switch p {
	case ProcessorDEC:
		return decFloat32(b)
	case ProcessorMIPS:
		return math.Float32frombits(binary.BigEndian.Uint32(b))
	default:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	}
}

// decFloat32 converts VAX F-floating to IEEE-754. The two 16-bit halves are
// stored swapped; the exponent is excess-128 and the fraction is 0.1f.
func decFloat32(b []byte) float32 {
	bits := uint32(b[2]) | uint32(b[3])<<8 | uint32(b[0])<<16 | uint32(b[1])<<24
	exp := int((bits >> 23) & 0xFF)
	if exp == 0 {
		return 0
	}
	frac := 0.5 + float64(bits&0x7FFFFF)/(1<<24)
	v := math.Ldexp(frac, exp-128)
	if bits&0x80000000 != 0 {
		v = -v
	}
	return float32(v)
}
