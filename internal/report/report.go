// Package report summarises a decoded C3D capture and renders the summary as
// JSON or PDF. It also exports frames as newline-delimited JSON.
package report

import (
	"encoding/json"
	"os"
	"time"
)

// Summary is the serialisable overview of one capture.
type Summary struct {
	File        string    `json:"file,omitempty"`
	SHA256      string    `json:"sha256,omitempty"`
	SizeBytes   int64     `json:"sizeBytes,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`

	Processor      string  `json:"processor"`
	Storage        string  `json:"storage"`
	Scale          float64 `json:"scale"`
	FrameRate      float64 `json:"frameRate"`
	FirstFrame     int     `json:"firstFrame"`
	DeclaredFrames int     `json:"declaredFrames"`
	FramesRead     int     `json:"framesRead"`
	Truncated      bool    `json:"truncated,omitempty"`
	DurationSec    float64 `json:"durationSec"`

	PointCount      int     `json:"pointCount"`
	PointUnits      string  `json:"pointUnits,omitempty"`
	AnalogChannels  int     `json:"analogChannels"`
	AnalogSubFrames int     `json:"analogSubFrames"`
	AnalogRate      float64 `json:"analogRate,omitempty"`

	Markers    []MarkerStats  `json:"markers,omitempty"`
	Analog     []ChannelStats `json:"analog,omitempty"`
	Events     []EventInfo    `json:"events,omitempty"`
	Groups     []GroupInfo    `json:"groups,omitempty"`
	Parameters int            `json:"parameters"`
}

// MarkerStats describes one point trajectory over the frames read.
type MarkerStats struct {
	Label        string     `json:"label"`
	ValidFrames  int        `json:"validFrames"`
	Coverage     float64    `json:"coverage"`
	Mean         [3]float64 `json:"mean"`
	StdDev       [3]float64 `json:"stdDev"`
	MeanResidual float64    `json:"meanResidual"`
	Cameras      []int      `json:"cameras,omitempty"`
}

// ChannelStats describes one analog channel in physical units.
type ChannelStats struct {
	Label   string  `json:"label"`
	Unit    string  `json:"unit,omitempty"`
	Samples int     `json:"samples"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stdDev"`
	RMS     float64 `json:"rms"`
}

type EventInfo struct {
	Label   string  `json:"label"`
	Time    float64 `json:"time"`
	Display bool    `json:"display"`
}

type GroupInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  int    `json:"parameters"`
}

func SaveSummaryJSON(s Summary, out string) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadSummaryJSON(path string) (Summary, error) {
	var s Summary
	b, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(b, &s)
	return s, err
}
