package c3d

import (
	"errors"
	"fmt"
	"io"
)

// readAt fills p from src at offset. It returns io.EOF when nothing could be
// read, io.ErrUnexpectedEOF on a short read and wraps any other failure of
// the source with ErrIO.
func readAt(src io.ReaderAt, p []byte, offset int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := src.ReadAt(p, offset)
	if n == len(p) {
		return n, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		if n == 0 {
			return 0, io.EOF
		}
		return n, io.ErrUnexpectedEOF
	}
	return n, fmt.Errorf("%w: %w", ErrIO, err)
}

// readExact is readAt for reads that must complete; any shortfall is
// reported as ErrTruncated.
func readExact(src io.ReaderAt, p []byte, offset int64, what string) error {
	_, err := readAt(src, p, offset)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s at offset %d (%d bytes)", ErrTruncated, what, offset, len(p))
	}
	return err
}
