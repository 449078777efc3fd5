package report

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"example.com/c3dkit/internal/c3d"
)

// running holds streaming moments of one series, so a summary pass keeps a
// fixed amount of state per marker and channel regardless of capture length.
type running struct {
	n        int
	mean, m2 float64
	min, max float64
	sumSq    float64
}

func (r *running) add(x float64) {
	r.n++
	if r.n == 1 {
		r.min, r.max = x, x
	} else {
		r.min = math.Min(r.min, x)
		r.max = math.Max(r.max, x)
	}
	d := x - r.mean
	r.mean += d / float64(r.n)
	r.m2 += d * (x - r.mean)
	r.sumSq += x * x
}

// addBatch folds a block of samples in one step: the block's moments come
// from gonum and are combined with the running ones pairwise.
func (r *running) addBatch(v []float64) {
	nb := len(v)
	switch nb {
	case 0:
		return
	case 1:
		r.add(v[0])
		return
	}
	mb, vb := stat.MeanVariance(v, nil)
	m2b := vb * float64(nb-1)
	lo, hi := floats.Min(v), floats.Max(v)
	sq := floats.Dot(v, v)
	if r.n == 0 {
		*r = running{n: nb, mean: mb, m2: m2b, min: lo, max: hi, sumSq: sq}
		return
	}
	n := r.n + nb
	delta := mb - r.mean
	r.mean += delta * float64(nb) / float64(n)
	r.m2 += m2b + delta*delta*float64(r.n)*float64(nb)/float64(n)
	r.min = math.Min(r.min, lo)
	r.max = math.Max(r.max, hi)
	r.sumSq += sq
	r.n = n
}

// stdDev is the unbiased sample deviation, zero below two samples.
func (r *running) stdDev() float64 {
	if r.n < 2 {
		return 0
	}
	return math.Sqrt(r.m2 / float64(r.n-1))
}

func (r *running) rms() float64 {
	if r.n == 0 {
		return 0
	}
	return math.Sqrt(r.sumSq / float64(r.n))
}

type markerAccumulator struct {
	axes     [3]running
	residual running
	cameras  c3d.CameraMask
}

func (m *markerAccumulator) add(p c3d.PointSample) {
	if !p.Valid() {
		return
	}
	m.axes[0].add(p.X)
	m.axes[1].add(p.Y)
	m.axes[2].add(p.Z)
	if p.State == c3d.ResidualValid {
		m.residual.add(p.Residual)
	}
	m.cameras |= p.Cameras
}

func (m *markerAccumulator) stats(label string, frames int) MarkerStats {
	valid := m.axes[0].n
	ms := MarkerStats{Label: label, ValidFrames: valid}
	if frames > 0 {
		ms.Coverage = float64(valid) / float64(frames)
	}
	for k := range m.axes {
		ms.Mean[k], ms.StdDev[k] = m.axes[k].mean, m.axes[k].stdDev()
	}
	if m.residual.n > 0 {
		ms.MeanResidual = m.residual.mean
	}
	if m.cameras.Len() > 0 {
		ms.Cameras = m.cameras.Cameras()
	}
	return ms
}

func channelStats(label, unit string, r *running) ChannelStats {
	cs := ChannelStats{Label: label, Unit: unit, Samples: r.n}
	if r.n == 0 {
		return cs
	}
	cs.Min, cs.Max = r.min, r.max
	cs.Mean, cs.StdDev = r.mean, r.stdDev()
	cs.RMS = r.rms()
	return cs
}
