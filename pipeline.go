//go:build !ios && !android && (amd64 || arm64)

package slitscan

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/obinnaokechukwu/slitscan/avutil"
)

// Source yields a video's frames as RGB24 in presentation order.
type Source interface {
	// Size reports the declared frame geometry.
	Size() (width, height int)
	// FrameRate reports the source frame rate; a zero rational means
	// the container did not declare one.
	FrameRate() avutil.Rational
	// ReadRGB returns the next frame, or io.EOF after the last one.
	ReadRGB() (*Frame, error)
	Close() error
}

// Sink consumes RGB24 frames.
type Sink interface {
	WriteFrame(*Frame) error
	Close() error
}

// SinkOpener creates a Sink once the output geometry and frame rate are
// known. It is not called at all when the input cannot be fully decoded.
type SinkOpener func(width, height int, frameRate avutil.Rational) (Sink, error)

// Result summarizes a completed run.
type Result struct {
	FramesIn  int // frames decoded from the input
	FramesOut int // frames written to the output
	OutWidth  int // output frame width (input frame count, padded to even)
	OutHeight int // output frame height
	Padded    bool
}

// Option configures a Run.
type Option func(*runConfig)

type runConfig struct {
	outputOpts     []OutputOption
	decodeProgress func(frames int)
	encodeProgress func(done, total int)
}

// WithOutputOptions forwards encoder options to the output.
func WithOutputOptions(opts ...OutputOption) Option {
	return func(c *runConfig) {
		c.outputOpts = append(c.outputOpts, opts...)
	}
}

// WithDecodeProgress registers a callback invoked after every decoded frame
// with the running frame count.
func WithDecodeProgress(fn func(frames int)) Option {
	return func(c *runConfig) {
		c.decodeProgress = fn
	}
}

// WithEncodeProgress registers a callback invoked after every written frame
// with the progress so far and the total frame count.
func WithEncodeProgress(fn func(done, total int)) Option {
	return func(c *runConfig) {
		c.encodeProgress = fn
	}
}

// Run swaps the horizontal and temporal axes of the video at inputPath and
// writes the result as H.264 to outputPath. A pixel at column x of input
// frame t lands at column t of output frame x, so the output has one frame
// per input column, each as wide as the input was long (padded to an even
// width when the input frame count is odd).
//
// The whole input is decoded into memory first; a T-frame WxH input needs
// roughly T*W*H*3 bytes plus the same again for the transposed side's
// working frame.
func Run(inputPath, outputPath string, opts ...Option) (*Result, error) {
	cfg := runConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	src, err := OpenInput(inputPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	open := func(width, height int, frameRate avutil.Rational) (Sink, error) {
		return NewOutput(outputPath, width, height, frameRate, cfg.outputOpts...)
	}
	return run(src, open, &cfg)
}

// run is the FFmpeg-free core driver: decode everything, transpose, encode.
func run(src Source, open SinkOpener, cfg *runConfig) (*Result, error) {
	store := NewFrameStore()
	defer store.Release()

	for {
		frame, err := src.ReadRGB()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := store.Append(frame); err != nil {
			return nil, err
		}
		if cfg.decodeProgress != nil {
			cfg.decodeProgress(store.Len())
		}
	}
	if err := store.Finalize(); err != nil {
		return nil, err
	}

	frameRate := src.FrameRate()
	if frameRate.Num == 0 || frameRate.Den == 0 {
		return nil, fmt.Errorf("%w: %d/%d", ErrZeroFrameRate, frameRate.Num, frameRate.Den)
	}

	tr, err := NewTransposer(store)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"frames_in":  store.Len(),
		"frames_out": tr.OutFrames(),
		"out_width":  tr.OutWidth(),
		"out_height": tr.OutHeight(),
		"padded":     tr.Padded(),
	}).Info("transposing axes")

	sink, err := open(tr.OutWidth(), tr.OutHeight(), frameRate)
	if err != nil {
		return nil, err
	}

	out := NewFrame(tr.OutWidth(), tr.OutHeight())
	for x := 0; x < tr.OutFrames(); x++ {
		tr.FrameInto(out, x)
		if err := sink.WriteFrame(out); err != nil {
			sink.Close()
			return nil, err
		}
		if cfg.encodeProgress != nil {
			cfg.encodeProgress(x+1, tr.OutFrames())
		}
	}
	if err := sink.Close(); err != nil {
		return nil, err
	}

	return &Result{
		FramesIn:  store.Len(),
		FramesOut: tr.OutFrames(),
		OutWidth:  tr.OutWidth(),
		OutHeight: tr.OutHeight(),
		Padded:    tr.Padded(),
	}, nil
}
