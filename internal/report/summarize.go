package report

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"example.com/c3dkit/internal/c3d"
	"example.com/c3dkit/internal/common"
)

// Options controls a summary pass.
type Options struct {
	// Limit stops the pass after this many frames; 0 reads every frame.
	Limit   int
	Metrics *common.Metrics
	Now     func() time.Time
}

// SummarizeFile digests and opens the file at path and summarises it.
func SummarizeFile(path string, opts Options) (Summary, error) {
	digest, size, err := common.Sha256OfFile(path)
	if err != nil {
		return Summary{}, err
	}
	a, err := c3d.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer a.Close()
	if opts.Metrics != nil {
		opts.Metrics.SetTotalBytes(size - a.Header().DataOffset())
	}
	s, err := Summarize(a, opts)
	if err != nil {
		return Summary{}, err
	}
	s.File = filepath.Base(path)
	s.SHA256 = digest
	s.SizeBytes = size
	return s, nil
}

// Summarize makes one pass over the frames of a and collects per-marker and
// per-channel statistics. A data section cut short mid-frame is recorded as
// Truncated; any other read failure is returned.
func Summarize(a *c3d.Adapter, opts Options) (Summary, error) {
	h := a.Header()
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	s := Summary{
		GeneratedAt:     now().UTC(),
		Processor:       a.Processor().String(),
		Storage:         "integer",
		Scale:           float64(h.Scale),
		FrameRate:       float64(h.FrameRate),
		FirstFrame:      a.FirstFrame(),
		DeclaredFrames:  a.FrameCount(),
		PointCount:      int(h.PointCount),
		PointUnits:      a.PointUnits(),
		AnalogChannels:  h.AnalogChannels(),
		AnalogSubFrames: h.AnalogSamplesPerFrame(),
		Parameters:      a.Parameters().Len(),
	}
	if h.IsFloat() {
		s.Storage = "float"
	}
	s.AnalogRate = analogRate(a)
	for _, ev := range h.Events {
		s.Events = append(s.Events, EventInfo{Label: ev.Label, Time: float64(ev.Time), Display: ev.Display})
	}
	dict := a.Parameters()
	for _, g := range dict.Groups() {
		s.Groups = append(s.Groups, GroupInfo{
			Name:        g.Name,
			Description: g.Description,
			Parameters:  len(dict.Params(g.Name)),
		})
	}

	markers := make([]markerAccumulator, s.PointCount)
	channels := make([]running, s.AnalogChannels)

	r := a.Frames()
	if opts.Metrics != nil {
		opts.Metrics.Start()
		defer opts.Metrics.Stop()
		r.SetMetrics(opts.Metrics)
	}
	for opts.Limit <= 0 || s.FramesRead < opts.Limit {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, c3d.ErrTruncated) {
			common.Logf("summary: %v", err)
			s.Truncated = true
			break
		}
		if err != nil {
			return Summary{}, err
		}
		s.FramesRead++
		for i, p := range f.Points {
			markers[i].add(p)
		}
		if f.Analog != nil {
			for ch := range channels {
				channels[ch].addBatch(f.Analog.Channel(ch))
			}
		}
	}
	if s.FrameRate > 0 {
		s.DurationSec = float64(s.FramesRead) / s.FrameRate
	}

	labels, _ := a.PointLabels()
	for i := range markers {
		s.Markers = append(s.Markers, markers[i].stats(labelAt(labels, i, "P"), s.FramesRead))
	}
	analogLabels, _ := a.AnalogLabels()
	units := a.AnalogUnits()
	for ch := range channels {
		unit := ""
		if ch < len(units) {
			unit = units[ch]
		}
		s.Analog = append(s.Analog, channelStats(labelAt(analogLabels, ch, "A"), unit, &channels[ch]))
	}
	return s, nil
}

// analogRate prefers ANALOG:RATE and falls back to the point rate times the
// sub-frame count.
func analogRate(a *c3d.Adapter) float64 {
	h := a.Header()
	if h.AnalogChannels() == 0 {
		return 0
	}
	if p, ok := a.Parameter("ANALOG:RATE"); ok {
		if v, ok := p.Value.Float(); ok && v > 0 {
			return v
		}
	}
	return float64(h.FrameRate) * float64(h.AnalogSamplesPerFrame())
}

func labelAt(labels []string, i int, prefix string) string {
	if i < len(labels) && labels[i] != "" {
		return labels[i]
	}
	return fmt.Sprintf("%s%d", prefix, i+1)
}
