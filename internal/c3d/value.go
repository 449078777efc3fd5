package c3d

import "fmt"

// Kind is the element type tag of a parameter value. The numeric values are
// the tags stored in the file; the magnitude is the element width in bytes.
type Kind int8

const (
	KindChar  Kind = -1
	KindByte  Kind = 1
	KindInt16 Kind = 2
	KindFloat Kind = 4
)

func kindFromTag(tag int8) (Kind, error) {
	switch k := Kind(tag); k {
	case KindChar, KindByte, KindInt16, KindFloat:
		return k, nil
	}
	return 0, fmt.Errorf("%w: unknown type tag %d", ErrParameterBlockCorrupt, tag)
}

// Width is the size in bytes of one element.
func (k Kind) Width() int {
	if k < 0 {
		return int(-k)
	}
	return int(k)
}

func (k Kind) String() string {
	switch k {
	case KindChar:
		return "char"
	case KindByte:
		return "byte"
	case KindInt16:
		return "int16"
	case KindFloat:
		return "float"
	default:
		return fmt.Sprintf("kind(%d)", int8(k))
	}
}

// Value holds the decoded payload of a parameter. Exactly one of the typed
// slices is populated, selected by Kind. Dims is empty for scalars; for
// character arrays Dims[0] is the fixed string width.
type Value struct {
	Kind Kind
	Dims []int

	chars  []byte
	bytes  []int8
	ints   []int16
	floats []float32
}

// elementCount multiplies the dimension sizes. It reports false once the
// product exceeds limit, before it can overflow.
func elementCount(dims []int, limit int) (int, bool) {
	n := 1
	for _, d := range dims {
		if d < 0 {
			return 0, false
		}
		if d == 0 {
			return 0, true
		}
		if n > limit/d {
			return 0, false
		}
		n *= d
	}
	if n > limit {
		return 0, false
	}
	return n, true
}

// decodeValue expects raw to hold exactly the declared elements.
func decodeValue(kind Kind, dims []int, raw []byte, p Processor) Value {
	v := Value{Kind: kind, Dims: dims}
	n := len(raw) / kind.Width()
	switch kind {
	case KindChar:
		v.chars = append([]byte(nil), raw[:n]...)
	case KindByte:
		v.bytes = make([]int8, n)
		for i := range v.bytes {
			v.bytes[i] = int8(raw[i])
		}
	case KindInt16:
		v.ints = make([]int16, n)
		for i := range v.ints {
			v.ints[i] = p.Int16(raw[i*2:])
		}
	case KindFloat:
		v.floats = make([]float32, n)
		for i := range v.floats {
			v.floats[i] = p.Float32(raw[i*4:])
		}
	}
	return v
}

// Len is the number of stored elements.
func (v Value) Len() int {
	switch v.Kind {
	case KindChar:
		return len(v.chars)
	case KindByte:
		return len(v.bytes)
	case KindInt16:
		return len(v.ints)
	case KindFloat:
		return len(v.floats)
	}
	return 0
}

// IsScalar reports whether the value was declared without dimensions.
func (v Value) IsScalar() bool {
	return len(v.Dims) == 0
}

// Bytes returns a copy of the raw characters of a character value.
func (v Value) Bytes() []byte {
	if v.Kind != KindChar {
		return nil
	}
	return append([]byte(nil), v.chars...)
}

// String returns a character value as one trimmed string.
func (v Value) String() string {
	if v.Kind != KindChar {
		return ""
	}
	return decodeText(v.chars)
}

// Strings splits a character array into its fixed-width entries, trimming
// each. A one-dimensional array is a single string.
func (v Value) Strings() []string {
	if v.Kind != KindChar {
		return nil
	}
	if len(v.Dims) < 2 {
		if len(v.chars) == 0 {
			return nil
		}
		return []string{v.String()}
	}
	width := v.Dims[0]
	if width <= 0 {
		return nil
	}
	out := make([]string, 0, len(v.chars)/width)
	for off := 0; off+width <= len(v.chars); off += width {
		out = append(out, decodeText(v.chars[off:off+width]))
	}
	return out
}

func (v Value) Int8s() []int8 {
	if v.Kind != KindByte {
		return nil
	}
	return append([]int8(nil), v.bytes...)
}

func (v Value) Int16s() []int16 {
	if v.Kind != KindInt16 {
		return nil
	}
	return append([]int16(nil), v.ints...)
}

// Uint16s reinterprets 16-bit integers as unsigned; several standard
// parameters (frame counts, unsigned analog offsets) overflow int16.
func (v Value) Uint16s() []uint16 {
	if v.Kind != KindInt16 {
		return nil
	}
	out := make([]uint16, len(v.ints))
	for i, x := range v.ints {
		out[i] = uint16(x)
	}
	return out
}

func (v Value) Float32s() []float32 {
	if v.Kind != KindFloat {
		return nil
	}
	return append([]float32(nil), v.floats...)
}

// Float64s widens any numeric value to float64. Character values yield nil.
func (v Value) Float64s() []float64 {
	switch v.Kind {
	case KindByte:
		out := make([]float64, len(v.bytes))
		for i, x := range v.bytes {
			out[i] = float64(x)
		}
		return out
	case KindInt16:
		out := make([]float64, len(v.ints))
		for i, x := range v.ints {
			out[i] = float64(x)
		}
		return out
	case KindFloat:
		out := make([]float64, len(v.floats))
		for i, x := range v.floats {
			out[i] = float64(x)
		}
		return out
	}
	return nil
}

// Float returns the first numeric element.
func (v Value) Float() (float64, bool) {
	vals := v.Float64s()
	if len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// Int returns the first numeric element truncated to an int.
func (v Value) Int() (int, bool) {
	f, ok := v.Float()
	return int(f), ok
}

// Any returns the typed payload for generic consumers such as JSON export.
func (v Value) Any() any {
	switch v.Kind {
	case KindChar:
		if len(v.Dims) >= 2 {
			return v.Strings()
		}
		return v.String()
	case KindByte:
		return v.Int8s()
	case KindInt16:
		return v.Int16s()
	case KindFloat:
		return v.Float32s()
	}
	return nil
}
