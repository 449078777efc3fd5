package c3d

import "strings"

// AnalogScaling holds the per-channel conversion from stored analog words to
// physical units: physical = (raw - Offset[ch]) * Scale[ch].
type AnalogScaling struct {
	GenScale float64
	Scale    []float64
	Offset   []float64
	// Individual is set when ANALOG:SCALE supplied a factor for every channel.
	Individual bool
	// Unsigned is set when ANALOG:FORMAT declares unsigned integer samples.
	Unsigned bool
}

func newAnalogScaling(d *Dictionary, channels int) AnalogScaling {
	s := AnalogScaling{
		GenScale: 1,
		Scale:    make([]float64, channels),
		Offset:   make([]float64, channels),
	}
	if p, ok := d.Get("ANALOG:FORMAT"); ok {
		s.Unsigned = strings.EqualFold(p.Value.String(), "UNSIGNED")
	}
	if p, ok := d.Get("ANALOG:GEN_SCALE"); ok {
		if v, ok := p.Value.Float(); ok {
			s.GenScale = v
		}
	}
	var scales []float64
	if p, ok := d.Get("ANALOG:SCALE"); ok {
		scales = p.Value.Float64s()
	}
	s.Individual = channels > 0 && len(scales) >= channels
	for ch := range s.Scale {
		if s.Individual {
			s.Scale[ch] = scales[ch] * s.GenScale
		} else {
			s.Scale[ch] = s.GenScale
		}
	}
	if p, ok := d.Get("ANALOG:OFFSET"); ok {
		offsets := p.Value.Float64s()
		if s.Unsigned && p.Value.Kind == KindInt16 {
			for i, u := range p.Value.Uint16s() {
				offsets[i] = float64(u)
			}
		}
		copy(s.Offset, offsets)
	}
	return s
}

// Apply converts one raw sample of channel ch.
func (s AnalogScaling) Apply(ch int, raw float64) float64 {
	return (raw - s.Offset[ch]) * s.Scale[ch]
}

// scalePoint converts a stored coordinate. Float-encoded files already hold
// physical units and Header.PointScale is 1 for them.
func scalePoint(h Header, raw float64) float64 {
	return raw * h.PointScale()
}
