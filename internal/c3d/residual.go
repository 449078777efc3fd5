package c3d

import (
	"math"
	"math/bits"
)

// ResidualState qualifies the error estimate of a point sample.
type ResidualState uint8

const (
	// ResidualNotComputed: the residual byte was zero.
	ResidualNotComputed ResidualState = iota
	ResidualValid
	// ResidualInvalid: the whole fourth word was -1; the point was not
	// reconstructed and no camera information is available.
	ResidualInvalid
)

func (s ResidualState) String() string {
	switch s {
	case ResidualNotComputed:
		return "not-computed"
	case ResidualValid:
		return "valid"
	case ResidualInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

const (
	maxCameras    = 7
	cameraBitMask = 1<<maxCameras - 1
)

// CameraMask is the set of cameras (1..7) that observed a point.
type CameraMask uint8

// NewCameraMask builds a mask from 1-based camera numbers; numbers outside
// 1..7 are ignored.
func NewCameraMask(cameras ...int) CameraMask {
	var m CameraMask
	for _, c := range cameras {
		if c >= 1 && c <= maxCameras {
			m |= 1 << (c - 1)
		}
	}
	return m
}

// Has reports whether camera (1-based) contributed.
func (m CameraMask) Has(camera int) bool {
	if camera < 1 || camera > maxCameras {
		return false
	}
	return m&(1<<(camera-1)) != 0
}

// Cameras lists the contributing cameras in ascending order.
func (m CameraMask) Cameras() []int {
	out := make([]int, 0, bits.OnesCount8(uint8(m)))
	for c := 1; c <= maxCameras; c++ {
		if m.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (m CameraMask) Len() int {
	return bits.OnesCount8(uint8(m & cameraBitMask))
}

// decodeResidualWord splits the fourth point word: the low byte is the
// residual in units of |scale|, the high byte a camera bitmask.
func decodeResidualWord(word int16, scale float64) (float64, ResidualState, CameraMask) {
	if word == -1 {
		return -1, ResidualInvalid, 0
	}
	u := uint16(word)
	mask := CameraMask(u>>8) & cameraBitMask
	low := u & 0xFF
	if low == 0 {
		return 0, ResidualNotComputed, mask
	}
	return float64(low) * scale, ResidualValid, mask
}

// residualWordFromFloat recovers the packed word from float storage, where
// it is kept as a float holding the integer value. Negative values, NaN and
// anything that does not fit in 16 bits (including +Inf) cannot carry a
// residual byte and camera mask, so they mark the point invalid. Fractions
// are truncated.
func residualWordFromFloat(f float32) int16 {
	v := float64(f)
	if math.IsNaN(v) || v < 0 || v >= 1<<16 {
		return -1
	}
	return int16(uint16(v))
}
