//go:build !ios && !android && (amd64 || arm64)

package slitscan

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Frame holds one video frame as packed RGB24 in Go memory, row-major
// with a tight stride of Width*3 bytes.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a zeroed RGB24 frame.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// At returns the 3-byte RGB pixel at (x, y). The returned slice aliases
// the frame's storage.
func (f *Frame) At(x, y int) []byte {
	off := (y*f.Width + x) * 3
	return f.Pix[off : off+3 : off+3]
}

// FrameStore accumulates every decoded frame of the input in memory.
// The first append locks the geometry; all later frames must match it.
type FrameStore struct {
	frames    []*Frame
	width     int
	height    int
	finalized bool
}

// NewFrameStore returns an empty store.
func NewFrameStore() *FrameStore {
	return &FrameStore{}
}

// Append adds a frame to the store. The frame is retained by reference;
// the caller must not reuse its pixel buffer.
func (s *FrameStore) Append(f *Frame) error {
	if s.finalized {
		return ErrStoreFinalized
	}
	if len(f.Pix) != f.Width*f.Height*3 {
		return fmt.Errorf("%w: frame %d claims %dx%d but holds %d bytes",
			ErrDimensionMismatch, len(s.frames), f.Width, f.Height, len(f.Pix))
	}
	if len(s.frames) == 0 {
		s.width = f.Width
		s.height = f.Height
	} else if f.Width != s.width || f.Height != s.height {
		return fmt.Errorf("%w: frame %d is %dx%d, stream is %dx%d",
			ErrDimensionMismatch, len(s.frames), f.Width, f.Height, s.width, s.height)
	}
	s.frames = append(s.frames, f)
	return nil
}

// Finalize seals the store. No appends are accepted afterwards.
func (s *FrameStore) Finalize() error {
	if len(s.frames) == 0 {
		return ErrEmptyStore
	}
	s.finalized = true
	logrus.WithFields(logrus.Fields{
		"frames": len(s.frames),
		"width":  s.width,
		"height": s.height,
	}).Debug("frame store finalized")
	return nil
}

// Finalized reports whether the store has been sealed.
func (s *FrameStore) Finalized() bool {
	return s.finalized
}

// Len returns the number of stored frames.
func (s *FrameStore) Len() int {
	return len(s.frames)
}

// Width returns the locked frame width, 0 before the first append.
func (s *FrameStore) Width() int {
	return s.width
}

// Height returns the locked frame height, 0 before the first append.
func (s *FrameStore) Height() int {
	return s.height
}

// Frame returns the frame at temporal index t. Panics on out-of-range t,
// mirroring slice indexing.
func (s *FrameStore) Frame(t int) *Frame {
	return s.frames[t]
}

// Release drops all pixel storage. The store is unusable afterwards.
func (s *FrameStore) Release() {
	s.frames = nil
}
