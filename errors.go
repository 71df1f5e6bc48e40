//go:build !ios && !android && (amd64 || arm64)

package slitscan

import (
	"errors"

	"github.com/obinnaokechukwu/slitscan/avutil"
)

// FFmpegError is an error from FFmpeg operations. It carries the raw
// FFmpeg error code and the operation that failed.
type FFmpegError = avutil.Error

// Common errors
var (
	// ErrClosed indicates the resource has been closed.
	ErrClosed = errors.New("slitscan: resource is closed")

	// ErrNoVideoStream indicates the input has no video stream.
	ErrNoVideoStream = errors.New("slitscan: no video stream")

	// ErrEmptyStore indicates no frames were decoded from the input.
	ErrEmptyStore = errors.New("slitscan: no frames decoded")

	// ErrStoreFinalized indicates an append after the store was sealed.
	ErrStoreFinalized = errors.New("slitscan: frame store already finalized")

	// ErrStoreNotFinalized indicates the store was consumed before Finalize.
	ErrStoreNotFinalized = errors.New("slitscan: frame store not finalized")

	// ErrDimensionMismatch indicates a decoded frame whose geometry does
	// not match the rest of the stream.
	ErrDimensionMismatch = errors.New("slitscan: frame dimension mismatch")

	// ErrZeroFrameRate indicates the input stream carries no usable
	// frame rate.
	ErrZeroFrameRate = errors.New("slitscan: source frame rate is zero")

	// ErrEncoderUnavailable indicates libavcodec has no H.264 encoder.
	ErrEncoderUnavailable = errors.New("slitscan: H.264 encoder not available")
)
