package samples

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildLayout(t *testing.T) {
	data, err := Standard(ProcessorIntel, false).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if data[0] != 2 || data[1] != headerKey {
		t.Fatalf("header prefix = % X", data[:2])
	}
	if data[ParameterSectionOffset+3] != ProcessorIntel {
		t.Fatalf("processor byte = %d", data[ParameterSectionOffset+3])
	}
	blocks := int(data[ParameterSectionOffset+2])
	dataBlock := int(binary.LittleEndian.Uint16(data[16:]))
	if dataBlock != 2+blocks {
		t.Fatalf("data block %d, parameter blocks %d", dataBlock, blocks)
	}
	want := (dataBlock-1)*BlockSize + 3*12*2
	if len(data) != want {
		t.Fatalf("len = %d, want %d", len(data), want)
	}
}

func TestBuildRejectsShortFrame(t *testing.T) {
	c := Standard(ProcessorIntel, false)
	c.Frames[1] = c.Frames[1][:3]
	if _, err := c.Build(); err == nil {
		t.Fatal("expected error for short frame")
	}
}

func TestDecBytes(t *testing.T) {
	tests := []struct {
		in   float32
		want [4]byte
	}{
		{in: 0, want: [4]byte{}},
		{in: 1, want: [4]byte{0x80, 0x40, 0x00, 0x00}},
		{in: -2.5, want: [4]byte{0x20, 0xC1, 0x00, 0x00}},
	}
	for _, tc := range tests {
		if got := decBytes(tc.in); got != tc.want {
			t.Fatalf("decBytes(%v) = % X, want % X", tc.in, got, tc.want)
		}
	}
}

func TestResidualWord(t *testing.T) {
	if got := ResidualWord(5, 1, 3); got != 0x0505 {
		t.Fatalf("ResidualWord = 0x%04X", got)
	}
	if got := ResidualWord(0, 8, 0); got != 0 {
		t.Fatalf("out-of-range cameras set bits: 0x%04X", got)
	}
}

func TestWriteFileIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "standard.c3d")
	c := Standard(ProcessorMIPS, true)
	if err := c.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	first, _ := os.ReadFile(path)
	if err := c.WriteFile(path); err != nil {
		t.Fatalf("WriteFile again: %v", err)
	}
	second, _ := os.ReadFile(path)
	if !bytes.Equal(first, second) {
		t.Fatal("rebuild changed file contents")
	}
}
