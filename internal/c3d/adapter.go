package c3d

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"example.com/c3dkit/internal/common"
)

// Staged is a source whose format key and processor type have been checked
// but whose header fields and parameter dictionary are not decoded yet.
type Staged struct {
	src       io.ReaderAt
	closer    io.Closer
	block     []byte
	paramHdr  [parameterHeaderSize]byte
	processor Processor
}

// New stages src: it reads the header block, validates the format key and
// resolves the processor type from the parameter section header.
func New(src io.ReaderAt) (*Staged, error) {
	block := make([]byte, blockSize)
	n, err := readAt(src, block, 0)
	if n >= 2 && block[1] != headerKey {
		return nil, fmt.Errorf("%w: found 0x%02X", ErrBadFormatMarker, block[1])
	}
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: header block has %d of %d bytes", ErrTruncated, n, blockSize)
		}
		return nil, err
	}
	if block[0] == 0 {
		return nil, fmt.Errorf("%w: parameter block pointer is 0", ErrParameterBlockCorrupt)
	}
	s := &Staged{src: src, block: block}
	paramOffset := blockOffset(int(block[0]))
	if err := readExact(src, s.paramHdr[:], paramOffset, "parameter section header"); err != nil {
		return nil, err
	}
	s.processor, err = resolveProcessor(s.paramHdr[3])
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Staged) Processor() Processor {
	return s.processor
}

// Construct decodes the header fields and walks the parameter section. No
// adapter is returned on failure.
func (s *Staged) Construct() (*Adapter, error) {
	hdr, err := parseHeader(s.block, s.processor)
	if err != nil {
		return nil, err
	}
	blocks := int(s.paramHdr[2])
	if blocks == 0 {
		return nil, fmt.Errorf("%w: parameter section declares 0 blocks", ErrParameterBlockCorrupt)
	}
	section := make([]byte, blocks*blockSize)
	if err := readExact(s.src, section, hdr.ParameterOffset(), "parameter section"); err != nil {
		return nil, err
	}
	params, err := parseParameters(section, s.processor)
	if err != nil {
		return nil, err
	}

	if hdr.DataBlock == 0 {
		if p, ok := params.Get("POINT:DATA_START"); ok {
			if v := p.Value.Uint16s(); len(v) > 0 {
				hdr.DataBlock = v[0]
			}
		}
		if hdr.DataBlock == 0 {
			return nil, fmt.Errorf("%w: no data start block", ErrParameterBlockCorrupt)
		}
	}
	if int(hdr.DataBlock) < int(hdr.ParameterBlock)+blocks {
		common.Logf("data block %d overlaps parameter section (blocks %d-%d)", hdr.DataBlock, hdr.ParameterBlock, int(hdr.ParameterBlock)+blocks-1)
	}

	a := &Adapter{
		src:       s.src,
		closer:    s.closer,
		header:    hdr,
		processor: s.processor,
		params:    params,
	}
	a.checkUsedCounts()
	return a, nil
}

// Adapter is a fully decoded C3D file: header plus parameter dictionary, and
// the entry point for frame streaming.
type Adapter struct {
	src       io.ReaderAt
	closer    io.Closer
	header    Header
	processor Processor
	params    *Dictionary
}

// Open opens and constructs the file at path. The adapter owns the file;
// call Close when done.
func Open(path string) (*Adapter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	staged, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	staged.closer = f
	a, err := staged.Construct()
	if err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the file opened by Open. It is a no-op for adapters built
// from a caller-owned source.
func (a *Adapter) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// Header returns a copy of the decoded header.
func (a *Adapter) Header() Header {
	h := a.header
	h.Events = append([]Event(nil), a.header.Events...)
	return h
}

func (a *Adapter) Processor() Processor {
	return a.processor
}

func (a *Adapter) Parameters() *Dictionary {
	return a.params
}

// Parameter looks up GROUP:NAME case-insensitively.
func (a *Adapter) Parameter(key string) (Parameter, bool) {
	return a.params.Get(key)
}

// PointLabels returns POINT:LABELS (continued by LABELS2, LABELS3, ...) as
// trimmed strings, cut to the header point count.
func (a *Adapter) PointLabels() ([]string, bool) {
	return a.labels("POINT", int(a.header.PointCount))
}

// AnalogLabels returns ANALOG:LABELS (and continuations), cut to the analog
// channel count.
func (a *Adapter) AnalogLabels() ([]string, bool) {
	return a.labels("ANALOG", a.header.AnalogChannels())
}

func (a *Adapter) PointUnits() string {
	p, _ := a.params.Get("POINT:UNITS")
	return p.Value.String()
}

// AnalogUnits returns ANALOG:UNITS, one entry per channel.
func (a *Adapter) AnalogUnits() []string {
	p, _ := a.params.Get("ANALOG:UNITS")
	return p.Value.Strings()
}

func (a *Adapter) labels(group string, used int) ([]string, bool) {
	first, ok := a.params.Get(group + ":LABELS")
	if !ok {
		return nil, false
	}
	out := first.Value.Strings()
	for i := 2; ; i++ {
		p, ok := a.params.Get(group + ":LABELS" + strconv.Itoa(i))
		if !ok {
			break
		}
		out = append(out, p.Value.Strings()...)
	}
	if used > 0 && len(out) > used {
		out = out[:used]
	}
	return out, true
}

// FirstFrame is the index of the first stored frame. It comes from the
// header unless the header range is saturated and TRIAL:ACTUAL_START_FIELD
// records the real origin.
func (a *Adapter) FirstFrame() int {
	if a.headerRangeSaturated() {
		if start, _, ok := a.trialRange(); ok {
			return start
		}
	}
	return int(a.header.FirstFrame)
}

// FrameCount is the number of frames the file declares: last - first + 1
// from the header. Only when the 16-bit header range cannot hold the count
// (last frame at 0xFFFF, or an inverted range) does the true length come
// from TRIAL:ACTUAL_*_FIELD or POINT:FRAMES.
func (a *Adapter) FrameCount() int {
	n := a.header.DeclaredFrames()
	if !a.headerRangeSaturated() {
		return n
	}
	if start, end, ok := a.trialRange(); ok {
		return end - start + 1
	}
	if p, ok := a.params.Get("POINT:FRAMES"); ok {
		var frames int
		switch p.Value.Kind {
		case KindInt16:
			if v := p.Value.Uint16s(); len(v) > 0 {
				frames = int(v[0])
			}
		case KindFloat:
			frames, _ = p.Value.Int()
		}
		if frames > n {
			n = frames
		}
	}
	return n
}

func (a *Adapter) headerRangeSaturated() bool {
	return a.header.LastFrame == math.MaxUint16 || a.header.LastFrame < a.header.FirstFrame
}

func (a *Adapter) trialRange() (int, int, bool) {
	start, ok := a.trialField("TRIAL:ACTUAL_START_FIELD")
	if !ok {
		return 0, 0, false
	}
	end, ok := a.trialField("TRIAL:ACTUAL_END_FIELD")
	if !ok || end < start {
		return 0, 0, false
	}
	return start, end, true
}

// trialField joins the two 16-bit words of a TRIAL field, low word first.
func (a *Adapter) trialField(key string) (int, bool) {
	p, ok := a.params.Get(key)
	if !ok {
		return 0, false
	}
	v := p.Value.Uint16s()
	if len(v) != 2 {
		return 0, false
	}
	n := int(v[0]) | int(v[1])<<16
	if n == 0 {
		return 0, false
	}
	return n, true
}

// Frames returns a fresh reader positioned at the start of the data section.
// Each call starts a new pass.
func (a *Adapter) Frames() *FrameReader {
	return newFrameReader(a)
}

// checkUsedCounts logs disagreement between the header counts and the
// POINT:USED / ANALOG:USED parameters; the header layout wins.
func (a *Adapter) checkUsedCounts() {
	if p, ok := a.params.Get("POINT:USED"); ok {
		if v := p.Value.Uint16s(); len(v) > 0 && v[0] != a.header.PointCount {
			common.Logf("POINT:USED=%d differs from header point count %d", v[0], a.header.PointCount)
		}
	}
	if p, ok := a.params.Get("ANALOG:USED"); ok {
		if v := p.Value.Uint16s(); len(v) > 0 && int(v[0]) != a.header.AnalogChannels() {
			common.Logf("ANALOG:USED=%d differs from header analog channels %d", v[0], a.header.AnalogChannels())
		}
	}
}
