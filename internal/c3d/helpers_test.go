package c3d

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/c3dkit/internal/samples"
)

func build(t *testing.T, c samples.Capture) []byte {
	t.Helper()
	data, err := c.Build()
	require.NoError(t, err)
	return data
}

func construct(t *testing.T, data []byte) *Adapter {
	t.Helper()
	staged, err := New(bytes.NewReader(data))
	require.NoError(t, err)
	a, err := staged.Construct()
	require.NoError(t, err)
	return a
}

func openBytes(data []byte) (*Adapter, error) {
	staged, err := New(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return staged.Construct()
}

func putInt16LE(b []byte, v int16) {
	binary.LittleEndian.PutUint16(b, uint16(v))
}

var errDiskGone = errors.New("disk gone")

// failingReaderAt serves data up to limit and fails every read past it.
type failingReaderAt struct {
	data  []byte
	limit int64
}

func (f failingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) > f.limit {
		return 0, errDiskGone
	}
	return bytes.NewReader(f.data).ReadAt(p, off)
}

func readAll(t *testing.T, r *FrameReader) ([]Frame, error) {
	t.Helper()
	var frames []Frame
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}
