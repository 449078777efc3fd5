package c3d

import (
	"fmt"
	"math"
)

const (
	blockSize = 512

	headerKey      = 0x50
	eventLabelKey  = 0x3039
	maxEvents      = 18
	eventLabelSize = 4

	offPointCount     = 2
	offAnalogCount    = 4
	offFirstFrame     = 6
	offLastFrame      = 8
	offMaxGap         = 10
	offScale          = 12
	offDataStart      = 16
	offAnalogPerFrame = 18
	offFrameRate      = 20
	offEventKey       = 298
	offEventCount     = 300
	offEventTimes     = 304
	offEventDisplay   = 376
	offEventLabels    = 396
)

// Header is the decoded first block of a C3D file.
type Header struct {
	// ParameterBlock is the 1-based 512-byte block holding the parameter section.
	ParameterBlock uint8
	PointCount     uint16
	// AnalogCount is the number of analog measurements stored per point frame,
	// all channels and sub-frames together.
	AnalogCount uint16
	FirstFrame  uint16
	LastFrame   uint16
	MaxGap      uint16
	// Scale converts integer point data to physical units. A negative value
	// means point and analog data are stored as floats.
	Scale float32
	// DataBlock is the 1-based 512-byte block where the data section starts.
	DataBlock      uint16
	AnalogPerFrame uint16
	FrameRate      float32

	LongEventLabels bool
	Events          []Event
}

// Event is one of the up to 18 time markers stored in the header.
type Event struct {
	Label   string
	Time    float32
	Display bool
}

func parseHeader(buf []byte, p Processor) (Header, error) {
	var hdr Header
	if len(buf) < blockSize {
		return hdr, fmt.Errorf("%w: header block is %d bytes", ErrTruncated, len(buf))
	}
	if buf[1] != headerKey {
		return hdr, fmt.Errorf("%w: found 0x%02X", ErrBadFormatMarker, buf[1])
	}
	hdr.ParameterBlock = buf[0]
	hdr.PointCount = p.Uint16(buf[offPointCount:])
	hdr.AnalogCount = p.Uint16(buf[offAnalogCount:])
	hdr.FirstFrame = p.Uint16(buf[offFirstFrame:])
	hdr.LastFrame = p.Uint16(buf[offLastFrame:])
	hdr.MaxGap = p.Uint16(buf[offMaxGap:])
	hdr.Scale = p.Float32(buf[offScale:])
	hdr.DataBlock = p.Uint16(buf[offDataStart:])
	hdr.AnalogPerFrame = p.Uint16(buf[offAnalogPerFrame:])
	hdr.FrameRate = p.Float32(buf[offFrameRate:])

	hdr.LongEventLabels = p.Uint16(buf[offEventKey:]) == eventLabelKey
	count := int(p.Uint16(buf[offEventCount:]))
	if count > maxEvents {
		count = maxEvents
	}
	for i := 0; i < count; i++ {
		label := buf[offEventLabels+i*eventLabelSize : offEventLabels+(i+1)*eventLabelSize]
		hdr.Events = append(hdr.Events, Event{
			Label:   decodeText(label),
			Time:    p.Float32(buf[offEventTimes+i*4:]),
			Display: buf[offEventDisplay+i] == 0,
		})
	}
	return hdr, nil
}

// IsFloat reports whether point and analog words are stored as 32-bit floats.
// A zero scale is treated as float storage since multiplying by it would
// erase every coordinate.
func (h Header) IsFloat() bool {
	return h.Scale <= 0
}

// WordSize is the width in bytes of one stored sample word.
func (h Header) WordSize() int {
	if h.IsFloat() {
		return 4
	}
	return 2
}

// PointScale is the multiplier applied to stored point coordinates.
func (h Header) PointScale() float64 {
	if h.IsFloat() {
		return 1
	}
	return float64(h.Scale)
}

// ResidualScale is the multiplier applied to the residual byte of the fourth
// point word; it is |Scale| for both storage formats.
func (h Header) ResidualScale() float64 {
	return math.Abs(float64(h.Scale))
}

// AnalogSamplesPerFrame is the number of analog sub-frames per point frame.
func (h Header) AnalogSamplesPerFrame() int {
	if h.AnalogCount == 0 {
		return 0
	}
	if h.AnalogPerFrame == 0 {
		return 1
	}
	return int(h.AnalogPerFrame)
}

// AnalogChannels is the number of analog channels stored per sub-frame.
func (h Header) AnalogChannels() int {
	sub := h.AnalogSamplesPerFrame()
	if sub == 0 {
		return 0
	}
	return int(h.AnalogCount) / sub
}

// DeclaredFrames is last − first + 1, or 0 if the range is inverted.
func (h Header) DeclaredFrames() int {
	if h.LastFrame < h.FirstFrame {
		return 0
	}
	return int(h.LastFrame) - int(h.FirstFrame) + 1
}

// FrameSize is the number of bytes one frame occupies in the data section.
func (h Header) FrameSize() int {
	return (4*int(h.PointCount) + int(h.AnalogCount)) * h.WordSize()
}

// ParameterOffset is the byte offset of the parameter section.
func (h Header) ParameterOffset() int64 {
	return blockOffset(int(h.ParameterBlock))
}

// DataOffset is the byte offset of the data section.
func (h Header) DataOffset() int64 {
	return blockOffset(int(h.DataBlock))
}

func blockOffset(block int) int64 {
	if block <= 0 {
		return 0
	}
	return int64(block-1) * blockSize
}
