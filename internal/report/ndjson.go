package report

import (
	"encoding/json"
	"errors"
	"io"
	"sync"

	"example.com/c3dkit/internal/c3d"
	"example.com/c3dkit/internal/common"
)

type flusher interface {
	Flush() error
}

// NDJSONWriter writes newline-delimited JSON objects. If the underlying
// writer has a Flush method (a bufio.Writer, say) it is flushed after every
// object.
type NDJSONWriter struct {
	mu      sync.Mutex
	writer  io.Writer
	flusher flusher
}

func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	var f flusher
	if ff, ok := w.(flusher); ok {
		f = ff
	}
	return &NDJSONWriter{writer: w, flusher: f}
}

// WriteObject marshals v and writes it followed by a newline.
func (w *NDJSONWriter) WriteObject(v any) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := w.writer.Write(data); err != nil {
		return err
	}
	if w.flusher != nil {
		return w.flusher.Flush()
	}
	return nil
}

// PointRecord is one marker sample of an exported frame. Coordinates are
// omitted for points that were not reconstructed.
type PointRecord struct {
	Label    string   `json:"label"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Z        *float64 `json:"z,omitempty"`
	Residual *float64 `json:"residual,omitempty"`
	State    string   `json:"state"`
	Cameras  []int    `json:"cameras,omitempty"`
}

type AnalogRecord struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// FrameRecord is the NDJSON line written for each frame.
type FrameRecord struct {
	Frame  int            `json:"frame"`
	Time   float64        `json:"time"`
	Points []PointRecord  `json:"points,omitempty"`
	Analog []AnalogRecord `json:"analog,omitempty"`
}

type ExportOptions struct {
	Limit       int
	SkipInvalid bool
	Metrics     *common.Metrics
}

// NewFrameRecord converts a decoded frame. time is measured from the first
// frame of the capture.
func NewFrameRecord(f c3d.Frame, pointLabels, analogLabels []string, first int, rate float64, skipInvalid bool) FrameRecord {
	rec := FrameRecord{Frame: f.Index}
	if rate > 0 {
		rec.Time = float64(f.Index-first) / rate
	}
	for i, p := range f.Points {
		if skipInvalid && !p.Valid() {
			continue
		}
		pr := PointRecord{Label: labelAt(pointLabels, i, "P"), State: p.State.String()}
		if p.Valid() {
			x, y, z := p.X, p.Y, p.Z
			pr.X, pr.Y, pr.Z = &x, &y, &z
			if p.State == c3d.ResidualValid {
				res := p.Residual
				pr.Residual = &res
			}
			if p.Cameras.Len() > 0 {
				pr.Cameras = p.Cameras.Cameras()
			}
		}
		rec.Points = append(rec.Points, pr)
	}
	if f.Analog != nil {
		for ch := 0; ch < f.Analog.Channels; ch++ {
			rec.Analog = append(rec.Analog, AnalogRecord{
				Label:  labelAt(analogLabels, ch, "A"),
				Values: f.Analog.Channel(ch),
			})
		}
	}
	return rec
}

// ExportFrames streams the frames of a to w, one JSON object per line, and
// returns the number written. A truncated data section stops the export
// with ErrTruncated after every complete frame has been written.
func ExportFrames(w io.Writer, a *c3d.Adapter, opts ExportOptions) (int, error) {
	out := NewNDJSONWriter(w)
	pointLabels, _ := a.PointLabels()
	analogLabels, _ := a.AnalogLabels()
	first := a.FirstFrame()
	rate := float64(a.Header().FrameRate)

	r := a.Frames()
	if opts.Metrics != nil {
		opts.Metrics.Start()
		defer opts.Metrics.Stop()
		r.SetMetrics(opts.Metrics)
	}
	written := 0
	for opts.Limit <= 0 || written < opts.Limit {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return written, err
		}
		rec := NewFrameRecord(f, pointLabels, analogLabels, first, rate, opts.SkipInvalid)
		if err := out.WriteObject(rec); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
