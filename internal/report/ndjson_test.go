package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/c3dkit/internal/c3d"
	"example.com/c3dkit/internal/samples"
)

func decodeLines(t *testing.T, out string) []FrameRecord {
	t.Helper()
	var recs []FrameRecord
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var rec FrameRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		recs = append(recs, rec)
	}
	require.NoError(t, sc.Err())
	return recs
}

func TestExportFrames(t *testing.T) {
	a := openCapture(t, samples.Standard(samples.ProcessorIntel, false))
	var buf bytes.Buffer
	n, err := ExportFrames(&buf, a, ExportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	recs := decodeLines(t, buf.String())
	require.Len(t, recs, 3)
	first := recs[0]
	assert.Equal(t, 1, first.Frame)
	assert.Zero(t, first.Time)
	assert.InDelta(t, 0.02, recs[2].Time, 1e-9)

	require.Len(t, first.Points, 2)
	head := first.Points[0]
	assert.Equal(t, "HEAD", head.Label)
	assert.Equal(t, "valid", head.State)
	require.NotNil(t, head.X)
	assert.InDelta(t, 10, *head.X, 1e-4)
	assert.Equal(t, []int{1, 3}, head.Cameras)

	lsho := first.Points[1]
	assert.Equal(t, "invalid", lsho.State)
	assert.Nil(t, lsho.X)
	assert.Nil(t, lsho.Residual)

	require.Len(t, first.Analog, 2)
	assert.Equal(t, "FY", first.Analog[1].Label)
	assert.InDeltaSlice(t, []float64{5, 5.5}, first.Analog[1].Values, 1e-9)
}

func TestExportFramesOptions(t *testing.T) {
	a := openCapture(t, samples.Standard(samples.ProcessorIntel, false))
	var buf bytes.Buffer
	n, err := ExportFrames(&buf, a, ExportOptions{Limit: 2, SkipInvalid: true})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	recs := decodeLines(t, buf.String())
	require.Len(t, recs, 2)
	require.Len(t, recs[0].Points, 1)
	assert.Equal(t, "HEAD", recs[0].Points[0].Label)
}

func TestExportFramesTruncated(t *testing.T) {
	data := samples.Standard(samples.ProcessorIntel, false).MustBuild()
	staged, err := c3d.New(bytes.NewReader(data[:len(data)-1]))
	require.NoError(t, err)
	a, err := staged.Construct()
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := ExportFrames(&buf, a, ExportOptions{})
	assert.ErrorIs(t, err, c3d.ErrTruncated)
	assert.Equal(t, 2, n)
	assert.Len(t, decodeLines(t, buf.String()), 2)
}

func TestNDJSONWriterFlushes(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	w := NewNDJSONWriter(bw)
	require.NoError(t, w.WriteObject(map[string]int{"a": 1}))
	assert.Equal(t, "{\"a\":1}\n", buf.String())

	var nilWriter *NDJSONWriter
	assert.NoError(t, nilWriter.WriteObject("ignored"))
}
