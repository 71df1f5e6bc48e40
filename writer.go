//go:build !ios && !android && (amd64 || arm64)

package slitscan

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/obinnaokechukwu/slitscan/avcodec"
	"github.com/obinnaokechukwu/slitscan/avformat"
	"github.com/obinnaokechukwu/slitscan/avutil"
	"github.com/obinnaokechukwu/slitscan/swscale"
)

const (
	defaultBitRate = 2_000_000
	defaultGOPSize = 12
)

// OutputOption configures an Output.
type OutputOption func(*outputConfig)

type outputConfig struct {
	bitRate   int64
	gopSize   int32
	codecOpts [][2]string
}

// WithBitRate sets the encoder's target bit rate in bits per second.
func WithBitRate(bitRate int64) OutputOption {
	return func(c *outputConfig) {
		c.bitRate = bitRate
	}
}

// WithGOPSize sets the encoder's keyframe interval.
func WithGOPSize(gopSize int) OutputOption {
	return func(c *outputConfig) {
		c.gopSize = int32(gopSize)
	}
}

// WithEncoderOption passes a codec-private option (such as libx264's
// "preset") to the encoder when it is opened.
func WithEncoderOption(name, value string) OutputOption {
	return func(c *outputConfig) {
		c.codecOpts = append(c.codecOpts, [2]string{name, value})
	}
}

// Output encodes RGB24 frames to H.264 and muxes them into the container
// implied by the output path's extension. Presentation timestamps are
// generated from the frame rate rather than taken from the encoder, so the
// written stream has exact, monotonically increasing timing. B-frames are
// disabled to keep DTS equal to PTS.
type Output struct {
	mu     sync.Mutex
	closed bool

	formatCtx avformat.FormatContext
	codecCtx  avcodec.Context
	stream    avformat.Stream
	swsCtx    swscale.Context

	packet   avcodec.Packet
	rgbFrame avutil.Frame // staging frame for incoming pixels
	yuvFrame avutil.Frame // encoder input, YUV420P

	seq         *TimestampSequencer
	width       int
	height      int
	encTimeBase avutil.Rational
	frameIndex  int64
	headerOpen  bool
	framesOut   int64
}

// NewOutput creates an H.264 encoding session writing to path. The container
// format is chosen from the path's extension. It returns
// ErrEncoderUnavailable when libavcodec was built without an H.264 encoder
// and ErrZeroFrameRate when frameRate has a zero term.
func NewOutput(path string, width, height int, frameRate avutil.Rational, opts ...OutputOption) (*Output, error) {
	if frameRate.Num == 0 || frameRate.Den == 0 {
		return nil, fmt.Errorf("%w: %d/%d", ErrZeroFrameRate, frameRate.Num, frameRate.Den)
	}
	cfg := outputConfig{bitRate: defaultBitRate, gopSize: defaultGOPSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	var formatCtx avformat.FormatContext
	if err := avformat.AllocOutputContext2(&formatCtx, nil, "", path); err != nil {
		return nil, fmt.Errorf("alloc output context for %q: %w", path, err)
	}
	o := &Output{
		formatCtx: formatCtx,
		width:     width,
		height:    height,
	}

	codec := avcodec.FindEncoder(avcodec.CodecIDH264)
	if codec == nil {
		o.free()
		return nil, ErrEncoderUnavailable
	}

	o.stream = avformat.NewStream(formatCtx, codec)
	if o.stream == nil {
		o.free()
		return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "alloc output stream")
	}
	o.codecCtx = avcodec.AllocContext3(codec)
	if o.codecCtx == nil {
		o.free()
		return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "alloc encoder context")
	}

	avcodec.SetCtxWidth(o.codecCtx, int32(width))
	avcodec.SetCtxHeight(o.codecCtx, int32(height))
	avcodec.SetCtxPixFmt(o.codecCtx, int32(avutil.PixelFormatYUV420P))
	avcodec.SetCtxTimeBase(o.codecCtx, frameRate.Den, frameRate.Num)
	avcodec.SetCtxFramerate(o.codecCtx, frameRate.Num, frameRate.Den)
	avcodec.SetCtxBitRate(o.codecCtx, cfg.bitRate)
	avcodec.SetCtxGopSize(o.codecCtx, cfg.gopSize)
	avcodec.SetCtxMaxBFrames(o.codecCtx, 0)
	if avformat.NeedsGlobalHeader(formatCtx) {
		avcodec.SetCtxFlags(o.codecCtx, avcodec.GetCtxFlags(o.codecCtx)|avcodec.CodecFlagGlobalHeader)
	}

	var codecOpts avutil.Dictionary
	for _, kv := range cfg.codecOpts {
		if err := avutil.DictSet(&codecOpts, kv[0], kv[1], 0); err != nil {
			avutil.DictFree(&codecOpts)
			o.free()
			return nil, fmt.Errorf("set encoder option %q: %w", kv[0], err)
		}
	}
	err := avcodec.Open2(o.codecCtx, codec, &codecOpts)
	avutil.DictFree(&codecOpts)
	if err != nil {
		o.free()
		return nil, fmt.Errorf("open H.264 encoder: %w", err)
	}
	o.encTimeBase = avcodec.GetCtxTimeBase(o.codecCtx)

	par := avformat.GetStreamCodecPar(o.stream)
	if err := avcodec.ParametersFromContext(par, o.codecCtx); err != nil {
		o.free()
		return nil, fmt.Errorf("copy encoder parameters: %w", err)
	}
	avformat.SetStreamTimeBase(o.stream, frameRate.Den, frameRate.Num)

	if !avformat.HasNoFile(formatCtx) {
		var pb avformat.IOContext
		if err := avformat.IOOpen(&pb, path, avformat.IOFlagWrite); err != nil {
			o.free()
			return nil, fmt.Errorf("open output %q: %w", path, err)
		}
		avformat.SetIOContext(formatCtx, pb)
	}

	if err := avformat.WriteHeader(formatCtx, nil); err != nil {
		o.free()
		return nil, fmt.Errorf("write container header: %w", err)
	}
	o.headerOpen = true

	// The muxer may have adjusted the stream time base while writing the
	// header, so the timestamp sequence must come from the time base the
	// stream actually ended up with.
	streamTB := avformat.GetStreamTimeBase(o.stream)
	seq, err := NewTimestampSequencer(frameRate, streamTB)
	if err != nil {
		o.free()
		return nil, err
	}
	o.seq = seq

	o.packet = avcodec.PacketAlloc()
	o.rgbFrame = allocPictureFrame(width, height, avutil.PixelFormatRGB24)
	o.yuvFrame = allocPictureFrame(width, height, avutil.PixelFormatYUV420P)
	if o.packet == nil || o.rgbFrame == nil || o.yuvFrame == nil {
		o.free()
		return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "alloc encode buffers")
	}

	o.swsCtx = swscale.GetContext(width, height, avutil.PixelFormatRGB24,
		width, height, avutil.PixelFormatYUV420P,
		swscale.FlagBilinear, nil, nil, nil)
	if o.swsCtx == nil {
		o.free()
		return nil, fmt.Errorf("slitscan: no conversion from RGB24 to YUV420P")
	}

	logrus.WithFields(logrus.Fields{
		"path":       path,
		"width":      width,
		"height":     height,
		"frame_rate": fmt.Sprintf("%d/%d", frameRate.Num, frameRate.Den),
		"time_base":  fmt.Sprintf("%d/%d", streamTB.Num, streamTB.Den),
		"pts_step":   seq.Increment(),
	}).Debug("opened video output")

	return o, nil
}

// allocPictureFrame allocates an AVFrame with a pixel buffer of the given
// geometry, or nil on failure.
func allocPictureFrame(width, height int, format avutil.PixelFormat) avutil.Frame {
	frame := avutil.FrameAlloc()
	if frame == nil {
		return nil
	}
	avutil.SetFrameWidth(frame, int32(width))
	avutil.SetFrameHeight(frame, int32(height))
	avutil.SetFrameFormat(frame, int32(format))
	if err := avutil.FrameGetBuffer(frame, 0); err != nil {
		avutil.FrameFree(&frame)
		return nil
	}
	return frame
}

// WriteFrame encodes one RGB24 frame. Frames must match the geometry the
// Output was created with.
func (o *Output) WriteFrame(frame *Frame) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if frame.Width != o.width || frame.Height != o.height {
		return fmt.Errorf("%w: frame is %dx%d, output is %dx%d",
			ErrDimensionMismatch, frame.Width, frame.Height, o.width, o.height)
	}

	if err := avutil.FrameMakeWritable(o.rgbFrame); err != nil {
		return fmt.Errorf("prepare staging frame: %w", err)
	}
	stride := int(avutil.GetFrameLinesizePlane(o.rgbFrame, 0))
	data := avutil.GetFrameDataPlane(o.rgbFrame, 0)
	dst := unsafe.Slice((*byte)(data), o.height*stride)
	rowBytes := o.width * 3
	for y := 0; y < o.height; y++ {
		copy(dst[y*stride:y*stride+rowBytes], frame.Pix[y*rowBytes:(y+1)*rowBytes])
	}

	if err := avutil.FrameMakeWritable(o.yuvFrame); err != nil {
		return fmt.Errorf("prepare encoder frame: %w", err)
	}
	if ret := swscale.ScaleFrame(o.swsCtx, o.yuvFrame, o.rgbFrame); ret < 0 {
		return avutil.NewError(ret, "convert to YUV420P")
	}
	avutil.SetFramePTS(o.yuvFrame, o.frameIndex)
	o.frameIndex++

	if err := avcodec.SendFrame(o.codecCtx, o.yuvFrame); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return o.drain()
}

// drain pulls every pending packet out of the encoder, restamps it and
// writes it to the container.
func (o *Output) drain() error {
	for {
		err := avcodec.ReceivePacket(o.codecCtx, o.packet)
		if avutil.IsAgain(err) || avutil.IsEOF(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("receive packet: %w", err)
		}

		avcodec.SetPacketStreamIndex(o.packet, avformat.GetStreamIndex(o.stream))
		avcodec.RescalePacketTS(o.packet, o.encTimeBase, avformat.GetStreamTimeBase(o.stream))

		// Overwrite the encoder's timestamps with the exact sequence.
		// With B-frames disabled, decode order equals presentation
		// order and DTS can simply mirror PTS.
		pts := o.seq.Next()
		avcodec.SetPacketPTS(o.packet, pts)
		avcodec.SetPacketDTS(o.packet, pts)
		avcodec.SetPacketDuration(o.packet, o.seq.Increment())

		werr := avformat.InterleavedWriteFrame(o.formatCtx, o.packet)
		avcodec.PacketUnref(o.packet)
		if werr != nil {
			return fmt.Errorf("write packet: %w", werr)
		}
		o.framesOut++
	}
}

// FramesWritten returns how many encoded packets have been muxed so far.
func (o *Output) FramesWritten() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.framesOut
}

// Close flushes the encoder, writes the container trailer and releases all
// FFmpeg resources. It is safe to call more than once.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true

	var firstErr error
	if o.codecCtx != nil {
		if err := avcodec.SendFrame(o.codecCtx, nil); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("flush encoder: %w", err)
		}
		if err := o.drain(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if o.headerOpen {
		if err := avformat.WriteTrailer(o.formatCtx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("write container trailer: %w", err)
		}
	}
	o.free()
	return firstErr
}

func (o *Output) free() {
	if o.swsCtx != nil {
		swscale.FreeContext(o.swsCtx)
		o.swsCtx = nil
	}
	if o.rgbFrame != nil {
		avutil.FrameFree(&o.rgbFrame)
	}
	if o.yuvFrame != nil {
		avutil.FrameFree(&o.yuvFrame)
	}
	if o.packet != nil {
		avcodec.PacketFree(&o.packet)
	}
	if o.codecCtx != nil {
		avcodec.FreeContext(&o.codecCtx)
	}
	if o.formatCtx != nil {
		if pb := avformat.GetIOContext(o.formatCtx); pb != nil && !avformat.HasNoFile(o.formatCtx) {
			avformat.IOCloseP(&pb)
			avformat.SetIOContext(o.formatCtx, nil)
		}
		avformat.FreeContext(o.formatCtx)
		o.formatCtx = nil
	}
}
