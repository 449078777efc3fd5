package common

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"
)

// Metrics accumulates read progress of a frame pass. It is safe to share with
// a progress printer running on another goroutine.
type Metrics struct {
	mu          sync.Mutex
	start       time.Time
	end         time.Time
	bytes       int64
	totalBytes  int64
	frames      int64
	declared    int64
	truncations int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Start() {
	m.mu.Lock()
	if m.start.IsZero() {
		m.start = time.Now()
		m.end = time.Time{}
	}
	m.mu.Unlock()
}

func (m *Metrics) Stop() {
	m.mu.Lock()
	if !m.start.IsZero() && m.end.IsZero() {
		m.end = time.Now()
	}
	m.mu.Unlock()
}

// AddFrame records one decoded frame of size bytes.
func (m *Metrics) AddFrame(size int64) {
	if size < 0 {
		return
	}
	m.mu.Lock()
	m.bytes += size
	m.frames++
	m.mu.Unlock()
}

// AddTruncation records a frame cut short after partial bytes of it were
// read. The partial bytes still count toward completion of the data section.
func (m *Metrics) AddTruncation(partial int64) {
	m.mu.Lock()
	if partial > 0 {
		m.bytes += partial
	}
	m.truncations++
	m.mu.Unlock()
}

// SetDeclaredFrames records how many frames the file claims to hold.
func (m *Metrics) SetDeclaredFrames(n int64) {
	if n < 0 {
		n = 0
	}
	m.mu.Lock()
	m.declared = n
	m.mu.Unlock()
}

func (m *Metrics) SetTotalBytes(total int64) {
	if total < 0 {
		total = 0
	}
	m.mu.Lock()
	m.totalBytes = total
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Duration:    m.elapsedLocked(),
		Bytes:       m.bytes,
		TotalBytes:  m.totalBytes,
		Frames:      m.frames,
		Declared:    m.declared,
		Truncations: m.truncations,
	}
}

func (m *Metrics) elapsedLocked() time.Duration {
	if m.start.IsZero() {
		return 0
	}
	if !m.end.IsZero() {
		return m.end.Sub(m.start)
	}
	return time.Since(m.start)
}

type MetricsSnapshot struct {
	Duration    time.Duration
	Bytes       int64
	TotalBytes  int64
	Frames      int64
	Declared    int64
	Truncations int64
}

// FramesPerSecond is the decode rate over the measured duration.
func (s MetricsSnapshot) FramesPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Duration.Seconds()
}

func (s MetricsSnapshot) ThroughputBytesPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Duration.Seconds()
}

// Completion is the fraction of the data section consumed. Without a known
// section size it falls back to frames over the declared count.
func (s MetricsSnapshot) Completion() float64 {
	var ratio float64
	switch {
	case s.TotalBytes > 0:
		ratio = float64(s.Bytes) / float64(s.TotalBytes)
	case s.Declared > 0:
		ratio = float64(s.Frames) / float64(s.Declared)
	default:
		return 0
	}
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div := float64(unit)
	exp := 0
	for n := float64(b) / div; n >= unit && exp < 6; n /= unit {
		div *= unit
		exp++
	}
	prefixes := []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
	return fmt.Sprintf("%.2f %s", float64(b)/div, prefixes[exp])
}

func formatProgressLine(s MetricsSnapshot) string {
	frames := fmt.Sprintf("%d frames", s.Frames)
	if s.Declared > 0 {
		frames = fmt.Sprintf("frame %d/%d", s.Frames, s.Declared)
	}
	if s.Truncations > 0 {
		frames += " (truncated)"
	}
	if s.TotalBytes > 0 || s.Declared > 0 {
		pct := s.Completion() * 100
		if math.IsNaN(pct) || math.IsInf(pct, 0) {
			pct = 0
		}
		return fmt.Sprintf("Progress: %6.2f%% %s, %s, %.0f frames/s", pct, frames, FormatBytes(s.Bytes), s.FramesPerSecond())
	}
	return fmt.Sprintf("Processed: %s, %s, %.0f frames/s", frames, FormatBytes(s.Bytes), s.FramesPerSecond())
}

func StartProgressPrinter(w io.Writer, m *Metrics, interval time.Duration) func() {
	if m == nil || w == nil {
		return func() {}
	}
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		lastLen := 0
		for {
			select {
			case <-ticker.C:
				line := formatProgressLine(m.Snapshot())
				pad := lastLen - len(line)
				if pad > 0 {
					line += strings.Repeat(" ", pad)
				}
				fmt.Fprintf(w, "\r%s", line)
				lastLen = len(line)
			case <-done:
				if lastLen > 0 {
					fmt.Fprintf(w, "\r%s\r\n", strings.Repeat(" ", lastLen))
				}
				return
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}
