// Package c3d decodes C3D motion-capture files: the fixed header block, the
// self-describing group/parameter dictionary and the frame-by-frame data
// section of 3-D point and analog samples.
package c3d

import "errors"

var (
	ErrBadFormatMarker       = errors.New("c3d: header key is not 0x50")
	ErrUnsupportedProcessor  = errors.New("c3d: unsupported processor type")
	ErrParameterBlockCorrupt = errors.New("c3d: parameter block corrupt")
	ErrTruncated             = errors.New("c3d: truncated stream")
	ErrIO                    = errors.New("c3d: read failed")
)
