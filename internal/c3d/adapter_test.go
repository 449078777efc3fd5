package c3d

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/c3dkit/internal/samples"
)

func TestNewRejectsBadInput(t *testing.T) {
	good := build(t, samples.Standard(samples.ProcessorIntel, false))

	tests := []struct {
		name    string
		data    func() []byte
		wantErr error
	}{
		{name: "bad key", data: func() []byte {
			b := bytes.Clone(good)
			b[1] = 0x51
			return b
		}, wantErr: ErrBadFormatMarker},
		{name: "bad key on short source", data: func() []byte {
			return []byte{2, 0x00, 0, 0}
		}, wantErr: ErrBadFormatMarker},
		{name: "short header", data: func() []byte {
			return good[:100]
		}, wantErr: ErrTruncated},
		{name: "empty source", data: func() []byte {
			return nil
		}, wantErr: ErrTruncated},
		{name: "unsupported processor", data: func() []byte {
			b := bytes.Clone(good)
			b[samples.ParameterSectionOffset+3] = 0x53
			return b
		}, wantErr: ErrUnsupportedProcessor},
		{name: "parameter pointer past end", data: func() []byte {
			b := bytes.Clone(good)
			b[0] = 200
			return b
		}, wantErr: ErrTruncated},
		{name: "zero parameter pointer", data: func() []byte {
			b := bytes.Clone(good)
			b[0] = 0
			return b
		}, wantErr: ErrParameterBlockCorrupt},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			staged, err := New(bytes.NewReader(tc.data()))
			assert.Nil(t, staged)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestStagedProcessor(t *testing.T) {
	for _, tc := range []struct {
		raw  byte
		want Processor
	}{
		{samples.ProcessorIntel, ProcessorIntel},
		{samples.ProcessorDEC, ProcessorDEC},
		{samples.ProcessorMIPS, ProcessorMIPS},
	} {
		staged, err := New(bytes.NewReader(build(t, samples.Standard(tc.raw, false))))
		require.NoError(t, err)
		assert.Equal(t, tc.want, staged.Processor())

		a, err := staged.Construct()
		require.NoError(t, err)
		assert.Equal(t, tc.want, a.Processor())
	}
}

func TestAdapterLabelsAndUnits(t *testing.T) {
	a := construct(t, build(t, samples.Standard(samples.ProcessorIntel, false)))

	labels, ok := a.PointLabels()
	require.True(t, ok)
	assert.Equal(t, []string{"HEAD", "LSHO"}, labels)

	analog, ok := a.AnalogLabels()
	require.True(t, ok)
	assert.Equal(t, []string{"FX", "FY"}, analog)

	assert.Equal(t, "mm", a.PointUnits())
	assert.Equal(t, []string{"N", "N"}, a.AnalogUnits())
	assert.Equal(t, 3, a.FrameCount())
	assert.Equal(t, 1, a.FirstFrame())
	assert.NoError(t, a.Close())
}

func TestAdapterLabelContinuation(t *testing.T) {
	c := samples.Standard(samples.ProcessorIntel, false)
	c.Params[3] = samples.Chars(samples.GroupPoint, "LABELS", 6, "HEAD")
	c.Params = append(c.Params, samples.Chars(samples.GroupPoint, "LABELS2", 6, "LSHO", "EXTRA"))
	a := construct(t, build(t, c))

	labels, ok := a.PointLabels()
	require.True(t, ok)
	assert.Equal(t, []string{"HEAD", "LSHO"}, labels)
}

func TestAdapterMissingLabels(t *testing.T) {
	c := samples.Standard(samples.ProcessorIntel, false)
	c.Params = c.Params[:3]
	a := construct(t, build(t, c))
	_, ok := a.PointLabels()
	assert.False(t, ok)
	_, ok = a.AnalogLabels()
	assert.False(t, ok)
	assert.Equal(t, "", a.PointUnits())
}

func TestAdapterFrameCountOverrides(t *testing.T) {
	withTrial := func(c *samples.Capture, start, end []int16) {
		c.Groups = append(c.Groups, samples.Group{ID: samples.GroupTrial, Name: "TRIAL"})
		c.Params = append(c.Params,
			samples.Int16s(samples.GroupTrial, "ACTUAL_START_FIELD", start...),
			samples.Int16s(samples.GroupTrial, "ACTUAL_END_FIELD", end...),
		)
	}
	t.Run("trial fields ignored within header range", func(t *testing.T) {
		c := samples.Standard(samples.ProcessorIntel, false)
		withTrial(&c, []int16{5, 0}, []int16{9, 0})
		a := construct(t, build(t, c))
		assert.Equal(t, 3, a.FrameCount())
		assert.Equal(t, 1, a.FirstFrame())
	})
	t.Run("trial fields above 16 bits", func(t *testing.T) {
		c := samples.Standard(samples.ProcessorIntel, false)
		c.LastFrame = 0xFFFF
		withTrial(&c, []int16{1, 0}, []int16{4, 1})
		a := construct(t, build(t, c))
		assert.Equal(t, 65540, a.FrameCount())
		assert.Equal(t, 1, a.FirstFrame())
		frames, err := readAll(t, a.Frames())
		require.NoError(t, err)
		assert.Len(t, frames, 3)
	})
	t.Run("point frames ignored within header range", func(t *testing.T) {
		c := samples.Standard(samples.ProcessorIntel, false)
		c.LastFrame = 2
		c.Params = append(c.Params, samples.Int16Scalar(samples.GroupPoint, "FRAMES", 3))
		a := construct(t, build(t, c))
		assert.Equal(t, 2, a.FrameCount())
		frames, err := readAll(t, a.Frames())
		require.NoError(t, err)
		require.Len(t, frames, 2)
		assert.Equal(t, 1, frames[0].Index)
		assert.Equal(t, 2, frames[1].Index)
	})
	t.Run("point frames with saturated header", func(t *testing.T) {
		c := samples.Standard(samples.ProcessorIntel, false)
		c.FirstFrame = 0xFFFF
		c.LastFrame = 0xFFFF
		c.Params = append(c.Params, samples.Int16Scalar(samples.GroupPoint, "FRAMES", 3))
		a := construct(t, build(t, c))
		assert.Equal(t, 3, a.FrameCount())
		frames, err := readAll(t, a.Frames())
		require.NoError(t, err)
		assert.Len(t, frames, 3)
	})
}

func TestHeaderCopyIsIsolated(t *testing.T) {
	a := construct(t, build(t, samples.Standard(samples.ProcessorIntel, false)))
	h := a.Header()
	require.NotEmpty(t, h.Events)
	h.Events[0].Label = "XX"
	assert.Equal(t, "HS", a.Header().Events[0].Label)
}

func TestConstructDataStartFallback(t *testing.T) {
	c := samples.Standard(samples.ProcessorIntel, false)
	c.Params = append(c.Params, samples.Int16Scalar(samples.GroupPoint, "DATA_START", 3))
	data := build(t, c)
	require.Equal(t, uint16(3), binary.LittleEndian.Uint16(data[16:]))
	data[16], data[17] = 0, 0

	a := construct(t, data)
	assert.Equal(t, uint16(3), a.Header().DataBlock)
	frames, err := readAll(t, a.Frames())
	require.NoError(t, err)
	assert.Len(t, frames, 3)

	c.Params = c.Params[:len(c.Params)-1]
	data = build(t, c)
	data[16], data[17] = 0, 0
	_, err = openBytes(data)
	assert.ErrorIs(t, err, ErrParameterBlockCorrupt)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.c3d")
	require.NoError(t, samples.Standard(samples.ProcessorDEC, false).WriteFile(path))

	a, err := Open(path)
	require.NoError(t, err)
	frames, err := readAll(t, a.Frames())
	require.NoError(t, err)
	assert.Len(t, frames, 3)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	_, err = Open(filepath.Join(t.TempDir(), "missing.c3d"))
	assert.Error(t, err)
}
