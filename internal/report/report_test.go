package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/c3dkit/internal/c3d"
	"example.com/c3dkit/internal/common"
	"example.com/c3dkit/internal/samples"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

func openCapture(t *testing.T, c samples.Capture) *c3d.Adapter {
	t.Helper()
	staged, err := c3d.New(bytes.NewReader(c.MustBuild()))
	require.NoError(t, err)
	a, err := staged.Construct()
	require.NoError(t, err)
	return a
}

func TestSummarizeStandardCapture(t *testing.T) {
	a := openCapture(t, samples.Standard(samples.ProcessorIntel, false))
	m := common.NewMetrics()
	s, err := Summarize(a, Options{Metrics: m, Now: fixedNow})
	require.NoError(t, err)

	assert.Equal(t, "intel", s.Processor)
	assert.Equal(t, "integer", s.Storage)
	assert.Equal(t, 3, s.FramesRead)
	assert.Equal(t, 3, s.DeclaredFrames)
	assert.False(t, s.Truncated)
	assert.InDelta(t, 0.03, s.DurationSec, 1e-9)
	assert.Equal(t, 200.0, s.AnalogRate)
	assert.Equal(t, 12, s.Parameters)
	assert.Equal(t, fixedNow(), s.GeneratedAt)
	assert.Equal(t, int64(3), m.Snapshot().Frames)

	require.Len(t, s.Markers, 2)
	head := s.Markers[0]
	assert.Equal(t, "HEAD", head.Label)
	assert.Equal(t, 3, head.ValidFrames)
	assert.Equal(t, 1.0, head.Coverage)
	assert.InDelta(t, 11, head.Mean[0], 1e-4)
	assert.InDelta(t, 1, head.StdDev[0], 1e-4)
	assert.InDelta(t, 0.5, head.MeanResidual, 1e-6)
	assert.Equal(t, []int{1, 3}, head.Cameras)

	lsho := s.Markers[1]
	assert.Equal(t, 0, lsho.ValidFrames)
	assert.Zero(t, lsho.Coverage)

	want := []ChannelStats{
		{Label: "FX", Unit: "N", Samples: 6, Min: 200, Max: 202, Mean: 201},
		{Label: "FY", Unit: "N", Samples: 6, Min: 5, Max: 5.5, Mean: 5.25},
	}
	opt := cmpopts.IgnoreFields(ChannelStats{}, "StdDev", "RMS")
	if diff := cmp.Diff(want, s.Analog, opt, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("analog stats mismatch (-want +got):\n%s", diff)
	}

	wantGroups := []GroupInfo{
		{Name: "POINT", Description: "3-D point parameters", Parameters: 5},
		{Name: "ANALOG", Description: "Analog data parameters", Parameters: 7},
	}
	assert.Equal(t, wantGroups, s.Groups)
	assert.Equal(t, []EventInfo{{Label: "HS", Time: float64(float32(0.01)), Display: true}}, s.Events)
}

func TestSummarizeTruncatedAndLimited(t *testing.T) {
	data := samples.Standard(samples.ProcessorIntel, false).MustBuild()
	staged, err := c3d.New(bytes.NewReader(data[:len(data)-4]))
	require.NoError(t, err)
	a, err := staged.Construct()
	require.NoError(t, err)

	s, err := Summarize(a, Options{})
	require.NoError(t, err)
	assert.True(t, s.Truncated)
	assert.Equal(t, 2, s.FramesRead)

	s, err = Summarize(openCapture(t, samples.Standard(samples.ProcessorMIPS, true)), Options{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, s.FramesRead)
	assert.Equal(t, "float", s.Storage)
	assert.Equal(t, "mips", s.Processor)
}

func TestSummarizeFileWritesReports(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walk.c3d")
	require.NoError(t, samples.Standard(samples.ProcessorDEC, false).WriteFile(path))

	s, err := SummarizeFile(path, Options{Now: fixedNow})
	require.NoError(t, err)
	digest, size, err := common.Sha256OfFile(path)
	require.NoError(t, err)
	assert.Equal(t, "walk.c3d", s.File)
	assert.Equal(t, digest, s.SHA256)
	assert.Equal(t, size, s.SizeBytes)

	jsonPath := filepath.Join(dir, "summary.json")
	require.NoError(t, SaveSummaryJSON(s, jsonPath))
	loaded, err := LoadSummaryJSON(jsonPath)
	require.NoError(t, err)
	if diff := cmp.Diff(s, loaded); diff != "" {
		t.Fatalf("summary changed through JSON (-want +got):\n%s", diff)
	}

	for _, lang := range []Language{LangEnglish, LangTurkish} {
		pdfPath := filepath.Join(dir, "summary-"+string(lang)+".pdf")
		require.NoError(t, SaveSummaryPDF(s, pdfPath, PDFOptions{Lang: lang, QRSize: 128}))
		b, err := os.ReadFile(pdfPath)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")), "missing PDF signature")
	}

	_, err = SummarizeFile(filepath.Join(dir, "missing.c3d"), Options{})
	assert.Error(t, err)
}

func TestWriteSummaryPDFWithoutDigest(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSummaryPDF(&buf, Summary{GeneratedAt: fixedNow()}, PDFOptions{Title: "Empty"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestDigestToQR(t *testing.T) {
	png, err := DigestToQR("  AB:cd-12 ", 64)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = DigestToQR("zz", 64)
	assert.Error(t, err)
	assert.Equal(t, "abcd12", sanitizeHash("AB:cd-12"))
}

func TestPDFTextFoldsToCP1252(t *testing.T) {
	assert.Equal(t, "Parametre Gruplari", pdfText("Parametre Grupları"))
	assert.Equal(t, "\xc7ekim", pdfText("Çekim"))
}
