package c3d

import (
	"errors"
	"math"
	"testing"
)

func TestResolveProcessor(t *testing.T) {
	tests := []struct {
		name    string
		raw     byte
		want    Processor
		wantErr error
	}{
		{name: "intel", raw: 84, want: ProcessorIntel},
		{name: "dec", raw: 85, want: ProcessorDEC},
		{name: "mips", raw: 86, want: ProcessorMIPS},
		{name: "below range", raw: 83, wantErr: ErrUnsupportedProcessor},
		{name: "above range", raw: 87, wantErr: ErrUnsupportedProcessor},
		{name: "zero", raw: 0, wantErr: ErrUnsupportedProcessor},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolveProcessor(tc.raw)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("processor = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestProcessorIntegers(t *testing.T) {
	raw := []byte{0x34, 0x12}
	if got := ProcessorIntel.Uint16(raw); got != 0x1234 {
		t.Fatalf("intel uint16 = 0x%X", got)
	}
	if got := ProcessorDEC.Uint16(raw); got != 0x1234 {
		t.Fatalf("dec uint16 = 0x%X", got)
	}
	if got := ProcessorMIPS.Uint16(raw); got != 0x3412 {
		t.Fatalf("mips uint16 = 0x%X", got)
	}
	if got := ProcessorIntel.Int16([]byte{0xFF, 0xFF}); got != -1 {
		t.Fatalf("intel int16 = %d, want -1", got)
	}
	if got := ProcessorMIPS.Int16([]byte{0xFF, 0xFE}); got != -2 {
		t.Fatalf("mips int16 = %d, want -2", got)
	}
}

func TestProcessorFloats(t *testing.T) {
	tests := []struct {
		name string
		p    Processor
		raw  []byte
		want float32
	}{
		{name: "intel one", p: ProcessorIntel, raw: []byte{0x00, 0x00, 0x80, 0x3F}, want: 1},
		{name: "mips one", p: ProcessorMIPS, raw: []byte{0x3F, 0x80, 0x00, 0x00}, want: 1},
		{name: "mips negative", p: ProcessorMIPS, raw: []byte{0xBD, 0xCC, 0xCC, 0xCD}, want: -0.1},
		{name: "dec one", p: ProcessorDEC, raw: []byte{0x80, 0x40, 0x00, 0x00}, want: 1},
		{name: "dec negative", p: ProcessorDEC, raw: []byte{0x20, 0xC1, 0x00, 0x00}, want: -2.5},
		{name: "dec zero exponent", p: ProcessorDEC, raw: []byte{0x7F, 0x00, 0xFF, 0xFF}, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.p.Float32(tc.raw)
			if math.Abs(float64(got-tc.want)) > 1e-7 {
				t.Fatalf("float = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestProcessorString(t *testing.T) {
	if ProcessorDEC.String() != "dec" {
		t.Fatalf("unexpected name %q", ProcessorDEC.String())
	}
	if Processor(1).String() != "processor(1)" {
		t.Fatalf("unexpected name %q", Processor(1).String())
	}
}
