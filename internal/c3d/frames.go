package c3d

import (
	"errors"
	"fmt"
	"io"

	"example.com/c3dkit/internal/common"
)

// ReaderState is the position of a FrameReader in its lifecycle.
type ReaderState uint8

const (
	StatePositioned ReaderState = iota
	StateExhausted
	StateFailed
)

func (s ReaderState) String() string {
	switch s {
	case StatePositioned:
		return "positioned"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PointSample is one marker in one frame. X, Y and Z are in physical units.
// Residual is meaningful only when State is ResidualValid; it is 0 when the
// residual was not computed and -1 for invalid points.
type PointSample struct {
	X, Y, Z  float64
	Residual float64
	State    ResidualState
	Cameras  CameraMask
}

// Valid reports whether the point was reconstructed in this frame.
func (p PointSample) Valid() bool {
	return p.State != ResidualInvalid
}

// AnalogSamples holds the scaled analog block of one point frame, stored
// sub-frame-major as in the file.
type AnalogSamples struct {
	Channels  int
	SubFrames int
	Values    []float64
}

// At returns the sample of channel ch in analog sub-frame sub.
func (a *AnalogSamples) At(sub, ch int) float64 {
	return a.Values[sub*a.Channels+ch]
}

// Channel collects every sub-frame sample of one channel.
func (a *AnalogSamples) Channel(ch int) []float64 {
	out := make([]float64, a.SubFrames)
	for sub := range out {
		out[sub] = a.At(sub, ch)
	}
	return out
}

// Frame is one decoded point frame with its analog block. Analog is nil when
// the file has no analog channels.
type Frame struct {
	Index  int
	Points []PointSample
	Analog *AnalogSamples
}

// FrameReader streams frames from the data section one at a time. It owns a
// private cursor, so readers over the same source do not disturb each other,
// but a single FrameReader must not be advanced concurrently.
type FrameReader struct {
	src       io.ReaderAt
	header    Header
	processor Processor
	scaling   AnalogScaling

	points    int
	channels  int
	subFrames int
	wordSize  int

	buf       []byte
	offset    int64
	index     int
	remaining int

	state   ReaderState
	err     error
	metrics *common.Metrics
}

func newFrameReader(a *Adapter) *FrameReader {
	h := a.header
	r := &FrameReader{
		src:       a.src,
		header:    h,
		processor: a.processor,
		points:    int(h.PointCount),
		channels:  h.AnalogChannels(),
		subFrames: h.AnalogSamplesPerFrame(),
		wordSize:  h.WordSize(),
		buf:       make([]byte, h.FrameSize()),
		offset:    h.DataOffset(),
		index:     a.FirstFrame(),
		remaining: a.FrameCount(),
	}
	r.scaling = newAnalogScaling(a.params, r.channels)
	return r
}

// SetMetrics attaches a metrics recorder to the reader and seeds it with the
// declared frame count.
func (r *FrameReader) SetMetrics(m *common.Metrics) {
	r.metrics = m
	if m != nil {
		m.SetDeclaredFrames(int64(r.remaining))
	}
}

func (r *FrameReader) State() ReaderState {
	return r.state
}

// Err returns the error that moved the reader to StateFailed.
func (r *FrameReader) Err() error {
	return r.err
}

// Scaling exposes the analog conversion in effect.
func (r *FrameReader) Scaling() AnalogScaling {
	return r.scaling
}

// Next decodes the next frame. It returns io.EOF once the declared frame
// count is reached or the data section ends on a frame boundary. A frame cut
// short yields ErrTruncated; after any error the reader stays terminal.
func (r *FrameReader) Next() (Frame, error) {
	switch r.state {
	case StateExhausted:
		return Frame{}, io.EOF
	case StateFailed:
		return Frame{}, r.err
	}
	if r.remaining <= 0 {
		r.state = StateExhausted
		return Frame{}, io.EOF
	}
	if n, err := readAt(r.src, r.buf, r.offset); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			r.state = StateExhausted
			return Frame{}, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			if r.metrics != nil {
				r.metrics.AddTruncation(int64(n))
			}
			return Frame{}, r.fail(fmt.Errorf("%w: frame %d at offset %d", ErrTruncated, r.index, r.offset))
		default:
			return Frame{}, r.fail(err)
		}
	}

	frame := r.decode(r.buf)
	r.offset += int64(len(r.buf))
	r.index++
	r.remaining--
	if r.metrics != nil {
		r.metrics.AddFrame(int64(len(r.buf)))
	}
	return frame, nil
}

func (r *FrameReader) fail(err error) error {
	r.state = StateFailed
	r.err = err
	return err
}

func (r *FrameReader) decode(buf []byte) Frame {
	frame := Frame{Index: r.index, Points: make([]PointSample, r.points)}
	ws := r.wordSize
	isFloat := r.header.IsFloat()
	residualScale := r.header.ResidualScale()

	for i := range frame.Points {
		base := i * 4 * ws
		var xyz [3]float64
		var word int16
		if isFloat {
			for k := range xyz {
				xyz[k] = float64(r.processor.Float32(buf[base+k*ws:]))
			}
			word = residualWordFromFloat(r.processor.Float32(buf[base+3*ws:]))
		} else {
			for k := range xyz {
				xyz[k] = scalePoint(r.header, float64(r.processor.Int16(buf[base+k*ws:])))
			}
			word = r.processor.Int16(buf[base+3*ws:])
		}
		residual, state, cams := decodeResidualWord(word, residualScale)
		frame.Points[i] = PointSample{
			X: xyz[0], Y: xyz[1], Z: xyz[2],
			Residual: residual,
			State:    state,
			Cameras:  cams,
		}
	}

	if r.channels == 0 {
		return frame
	}
	analog := &AnalogSamples{
		Channels:  r.channels,
		SubFrames: r.subFrames,
		Values:    make([]float64, r.channels*r.subFrames),
	}
	pos := r.points * 4 * ws
	for i := range analog.Values {
		b := buf[pos+i*ws:]
		var raw float64
		switch {
		case isFloat:
			raw = float64(r.processor.Float32(b))
		case r.scaling.Unsigned:
			raw = float64(r.processor.Uint16(b))
		default:
			raw = float64(r.processor.Int16(b))
		}
		analog.Values[i] = r.scaling.Apply(i%r.channels, raw)
	}
	frame.Analog = analog
	return frame
}
