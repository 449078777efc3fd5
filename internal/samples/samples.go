// Package samples builds deterministic synthetic C3D captures for tests.
package samples

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"
)

const (
	ProcessorIntel byte = 84
	ProcessorDEC   byte = 85
	ProcessorMIPS  byte = 86

	BlockSize = 512

	// ParameterSectionOffset is where Build places the parameter section.
	ParameterSectionOffset = BlockSize
	// FirstRecordOffset is the byte offset of the first group/parameter record.
	FirstRecordOffset = ParameterSectionOffset + 4

	headerKey     = 0x50
	eventLabelKey = 0x3039
)

// Group describes a group record.
type Group struct {
	ID     int
	Name   string
	Desc   string
	Locked bool
}

// Param describes a parameter record. Tag selects the populated payload:
// -1 Chars, 1 Bytes, 2 Ints, 4 Floats.
type Param struct {
	Group  int
	Name   string
	Desc   string
	Locked bool
	Tag    int8
	Dims   []int
	Chars  string
	Bytes  []int8
	Ints   []int16
	Floats []float32
}

// Event is a header event.
type Event struct {
	Label  string
	Time   float32
	Hidden bool
}

// Capture is the full description of a synthetic file. Frame words are the
// stored values in storage order: four words per point followed by the
// analog block (sub-frame-major).
type Capture struct {
	Processor      byte
	Scale          float32
	Float          bool
	FrameRate      float32
	FirstFrame     uint16
	LastFrame      uint16
	Points         int
	AnalogChannels int
	AnalogPerFrame int
	Groups         []Group
	Params         []Param
	Events         []Event
	Frames         [][]float64

	// ParamsFirst writes parameter records before their groups.
	ParamsFirst bool
	// PadTerminator ends the record chain with zero padding instead of a
	// zero next-offset on the last record.
	PadTerminator bool
}

// Chars builds a fixed-width character array parameter.
func Chars(group int, name string, width int, values ...string) Param {
	var b strings.Builder
	for _, v := range values {
		if len(v) > width {
			v = v[:width]
		}
		b.WriteString(v)
		b.WriteString(strings.Repeat(" ", width-len(v)))
	}
	dims := []int{width}
	if len(values) != 1 {
		dims = append(dims, len(values))
	}
	return Param{Group: group, Name: name, Tag: -1, Dims: dims, Chars: b.String()}
}

// Int16s builds a one-dimensional integer parameter.
func Int16s(group int, name string, values ...int16) Param {
	return Param{Group: group, Name: name, Tag: 2, Dims: []int{len(values)}, Ints: values}
}

// Int16Scalar builds a dimensionless integer parameter.
func Int16Scalar(group int, name string, v int16) Param {
	return Param{Group: group, Name: name, Tag: 2, Ints: []int16{v}}
}

// Floats builds a one-dimensional float parameter.
func Floats(group int, name string, values ...float32) Param {
	return Param{Group: group, Name: name, Tag: 4, Dims: []int{len(values)}, Floats: values}
}

// FloatScalar builds a dimensionless float parameter.
func FloatScalar(group int, name string, v float32) Param {
	return Param{Group: group, Name: name, Tag: 4, Floats: []float32{v}}
}

// ResidualWord packs a residual byte and camera numbers (1..7) into the
// fourth point word.
func ResidualWord(residual uint8, cameras ...int) int16 {
	var mask uint16
	for _, c := range cameras {
		if c >= 1 && c <= 7 {
			mask |= 1 << (c - 1)
		}
	}
	return int16(mask<<8 | uint16(residual))
}

const (
	GroupPoint  = 1
	GroupAnalog = 2
	GroupTrial  = 3
)

// Standard returns the reference capture used across tests: two markers, two
// analog channels sampled twice per frame, three frames.
func Standard(processor byte, float bool) Capture {
	c := Capture{
		Processor:      processor,
		Scale:          0.1,
		Float:          float,
		FrameRate:      100,
		FirstFrame:     1,
		Points:         2,
		AnalogChannels: 2,
		AnalogPerFrame: 2,
		Groups: []Group{
			{ID: GroupPoint, Name: "POINT", Desc: "3-D point parameters"},
			{ID: GroupAnalog, Name: "ANALOG", Desc: "Analog data parameters"},
		},
		Params: []Param{
			Int16Scalar(GroupPoint, "USED", 2),
			FloatScalar(GroupPoint, "SCALE", 0.1),
			FloatScalar(GroupPoint, "RATE", 100),
			Chars(GroupPoint, "LABELS", 6, "HEAD", "LSHO"),
			Chars(GroupPoint, "UNITS", 2, "mm"),
			Int16Scalar(GroupAnalog, "USED", 2),
			Chars(GroupAnalog, "LABELS", 4, "FX", "FY"),
			Floats(GroupAnalog, "SCALE", 2.0, 0.5),
			Int16s(GroupAnalog, "OFFSET", 0, 10),
			FloatScalar(GroupAnalog, "GEN_SCALE", 1),
			Chars(GroupAnalog, "UNITS", 1, "N", "N"),
			FloatScalar(GroupAnalog, "RATE", 200),
		},
		Events: []Event{{Label: "HS", Time: 0.01}},
	}
	if float {
		c.Params[1] = FloatScalar(GroupPoint, "SCALE", -0.1)
	}
	for f := 0; f < 3; f++ {
		base := float64(f * 10)
		words := []float64{
			100 + base, 200 + base, 300 + base, float64(ResidualWord(5, 1, 3)),
			-50 - base, 0, 25, -1,
		}
		for sub := 0; sub < 2; sub++ {
			words = append(words, 100+float64(sub), 20+float64(sub))
		}
		c.Frames = append(c.Frames, words)
	}
	return c
}

func (c Capture) wordsPerFrame() int {
	return 4*c.Points + c.AnalogChannels*c.analogPerFrame()
}

func (c Capture) analogPerFrame() int {
	if c.AnalogChannels == 0 {
		return 0
	}
	if c.AnalogPerFrame <= 0 {
		return 1
	}
	return c.AnalogPerFrame
}

func (c Capture) order() binary.AppendByteOrder {
	if c.Processor == ProcessorMIPS {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (c Capture) appendInt16(b []byte, v int16) []byte {
	return c.order().AppendUint16(b, uint16(v))
}

func (c Capture) appendFloat(b []byte, f float32) []byte {
	if c.Processor == ProcessorDEC {
		d := decBytes(f)
		return append(b, d[:]...)
	}
	return c.order().AppendUint32(b, math.Float32bits(f))
}

// decBytes encodes f as VAX F-floating in file byte order.
func decBytes(f float32) [4]byte {
	if f == 0 {
		return [4]byte{}
	}
	var sign uint32
	v := float64(f)
	if v < 0 {
		sign = 1 << 31
		v = -v
	}
	frac, exp := math.Frexp(v)
	e := exp + 128
	m := uint32(math.Round((frac - 0.5) * (1 << 24)))
	if m == 1<<23 {
		m = 0
		e++
	}
	bits := sign | uint32(e)<<23 | m
	return [4]byte{byte(bits >> 16), byte(bits >> 24), byte(bits), byte(bits >> 8)}
}

// Build encodes the capture: header block, parameter section starting at
// block 2, then the data section.
func (c Capture) Build() ([]byte, error) {
	words := c.wordsPerFrame()
	for i, f := range c.Frames {
		if len(f) != words {
			return nil, fmt.Errorf("frame %d has %d words, want %d", i, len(f), words)
		}
	}
	section, err := c.parameterSection()
	if err != nil {
		return nil, err
	}
	dataBlock := 2 + len(section)/BlockSize

	out := make([]byte, 0, BlockSize+len(section)+len(c.Frames)*words*4)
	out = append(out, c.header(dataBlock)...)
	out = append(out, section...)
	for _, frame := range c.Frames {
		for _, w := range frame {
			if c.Float {
				out = c.appendFloat(out, float32(w))
			} else {
				out = c.appendInt16(out, int16(math.Round(w)))
			}
		}
	}
	return out, nil
}

// MustBuild is Build for fixtures known to be well formed.
func (c Capture) MustBuild() []byte {
	b, err := c.Build()
	if err != nil {
		panic(fmt.Sprintf("samples: %v", err))
	}
	return b
}

func (c Capture) header(dataBlock int) []byte {
	h := make([]byte, 0, BlockSize)
	h = append(h, 2, headerKey)
	last := c.LastFrame
	if last == 0 && len(c.Frames) > 0 {
		last = c.FirstFrame + uint16(len(c.Frames)) - 1
	}
	scale := c.Scale
	if c.Float {
		scale = -float32(math.Abs(float64(scale)))
	}
	h = c.appendInt16(h, int16(c.Points))
	h = c.appendInt16(h, int16(c.AnalogChannels*c.analogPerFrame()))
	h = c.appendInt16(h, int16(c.FirstFrame))
	h = c.appendInt16(h, int16(last))
	h = c.appendInt16(h, 10)
	h = c.appendFloat(h, scale)
	h = c.appendInt16(h, int16(dataBlock))
	h = c.appendInt16(h, int16(c.analogPerFrame()))
	h = c.appendFloat(h, c.FrameRate)
	h = append(h, make([]byte, 298-len(h))...)

	h = c.appendInt16(h, eventLabelKey)
	h = c.appendInt16(h, int16(len(c.Events)))
	h = append(h, 0, 0)
	times := make([]byte, 0, 72)
	flags := make([]byte, 18)
	labels := bytes.Repeat([]byte(" "), 72)
	for i, ev := range c.Events {
		if i >= 18 {
			break
		}
		times = c.appendFloat(times, ev.Time)
		if ev.Hidden {
			flags[i] = 1
		}
		copy(labels[i*4:i*4+4], ev.Label)
	}
	times = append(times, make([]byte, 72-len(times))...)
	h = append(h, times...)
	h = append(h, flags...)
	h = append(h, 0, 0)
	h = append(h, labels...)
	return append(h, make([]byte, BlockSize-len(h))...)
}

func (c Capture) parameterSection() ([]byte, error) {
	type rec struct {
		id     int8
		name   string
		locked bool
		body   []byte
	}
	var groups, params []rec
	for _, g := range c.Groups {
		if g.ID < 1 || g.ID > 127 {
			return nil, fmt.Errorf("group %q id %d out of range", g.Name, g.ID)
		}
		body := append([]byte{byte(len(g.Desc))}, g.Desc...)
		groups = append(groups, rec{id: int8(-g.ID), name: g.Name, locked: g.Locked, body: body})
	}
	for _, p := range c.Params {
		body, err := c.paramBody(p)
		if err != nil {
			return nil, err
		}
		params = append(params, rec{id: int8(p.Group), name: p.Name, locked: p.Locked, body: body})
	}
	all := append(groups, params...)
	if c.ParamsFirst {
		all = append(params, groups...)
	}

	section := []byte{0x01, headerKey, 0, c.Processor}
	for i, r := range all {
		n := int8(len(r.name))
		if r.locked {
			n = -n
		}
		section = append(section, byte(n), byte(r.id))
		section = append(section, r.name...)
		next := int16(2 + len(r.body))
		if i == len(all)-1 && !c.PadTerminator {
			next = 0
		}
		section = c.appendInt16(section, next)
		section = append(section, r.body...)
	}
	// leave room for a zero terminator record
	blocks := (len(section) + 2 + BlockSize - 1) / BlockSize
	section = append(section, make([]byte, blocks*BlockSize-len(section))...)
	section[2] = byte(blocks)
	return section, nil
}

func (c Capture) paramBody(p Param) ([]byte, error) {
	n := 1
	for _, d := range p.Dims {
		n *= d
	}
	body := []byte{byte(p.Tag), byte(len(p.Dims))}
	for _, d := range p.Dims {
		body = append(body, byte(d))
	}
	switch p.Tag {
	case -1:
		chars := []byte(p.Chars)
		if len(chars) != n {
			return nil, fmt.Errorf("param %q: %d chars, dims want %d", p.Name, len(chars), n)
		}
		body = append(body, chars...)
	case 1:
		if len(p.Bytes) != n {
			return nil, fmt.Errorf("param %q: %d bytes, dims want %d", p.Name, len(p.Bytes), n)
		}
		for _, b := range p.Bytes {
			body = append(body, byte(b))
		}
	case 2:
		if len(p.Ints) != n {
			return nil, fmt.Errorf("param %q: %d ints, dims want %d", p.Name, len(p.Ints), n)
		}
		for _, v := range p.Ints {
			body = c.appendInt16(body, v)
		}
	case 4:
		if len(p.Floats) != n {
			return nil, fmt.Errorf("param %q: %d floats, dims want %d", p.Name, len(p.Floats), n)
		}
		for _, v := range p.Floats {
			body = c.appendFloat(body, v)
		}
	default:
		return nil, fmt.Errorf("param %q: unsupported tag %d", p.Name, p.Tag)
	}
	body = append(body, byte(len(p.Desc)))
	return append(body, p.Desc...), nil
}

// WriteFile builds the capture and writes it to path.
func (c Capture) WriteFile(path string) error {
	data, err := c.Build()
	if err != nil {
		return err
	}
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		return nil
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
