//go:build !ios && !android && (amd64 || arm64)

package slitscan

import (
	"fmt"
	"io"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/obinnaokechukwu/slitscan/avcodec"
	"github.com/obinnaokechukwu/slitscan/avformat"
	"github.com/obinnaokechukwu/slitscan/avutil"
	"github.com/obinnaokechukwu/slitscan/swscale"
)

// Decoder reads the first video stream of a container and yields its frames
// as tightly packed RGB24, one Frame per call to ReadRGB. Frames from other
// streams are skipped. After the container is exhausted the internal decoder
// is drained, then ReadRGB returns io.EOF.
type Decoder struct {
	mu     sync.Mutex
	closed bool

	formatCtx avformat.FormatContext
	codecCtx  avcodec.Context
	swsCtx    swscale.Context

	packet   avcodec.Packet
	frame    avutil.Frame // decoded frame in the stream's native format
	rgbFrame avutil.Frame // conversion target, RGB24

	streamIndex int32
	width       int
	height      int
	frameRate   avutil.Rational
	draining    bool
}

// OpenInput opens the media file at path and prepares a decoding session for
// its best video stream. It returns ErrNoVideoStream when the container has
// no video at all.
func OpenInput(path string) (*Decoder, error) {
	var formatCtx avformat.FormatContext
	if err := avformat.OpenInput(&formatCtx, path, nil, nil); err != nil {
		return nil, fmt.Errorf("open input %q: %w", path, err)
	}
	if err := avformat.FindStreamInfo(formatCtx, nil); err != nil {
		avformat.CloseInput(&formatCtx)
		return nil, fmt.Errorf("probe input %q: %w", path, err)
	}

	var codec avcodec.Codec
	streamIndex := avformat.FindBestStream(formatCtx, avutil.MediaTypeVideo, -1, -1, &codec, 0)
	if streamIndex < 0 {
		avformat.CloseInput(&formatCtx)
		return nil, fmt.Errorf("%w: %s", ErrNoVideoStream, path)
	}

	stream := avformat.GetStream(formatCtx, int(streamIndex))
	par := avformat.GetStreamCodecPar(stream)
	if codec == nil {
		codec = avcodec.FindDecoder(avformat.GetCodecParCodecID(par))
	}
	if codec == nil {
		avformat.CloseInput(&formatCtx)
		return nil, fmt.Errorf("slitscan: no decoder for codec %s", avformat.GetCodecParCodecID(par))
	}

	codecCtx := avcodec.AllocContext3(codec)
	if codecCtx == nil {
		avformat.CloseInput(&formatCtx)
		return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "alloc decoder context")
	}
	d := &Decoder{
		formatCtx:   formatCtx,
		codecCtx:    codecCtx,
		streamIndex: streamIndex,
		width:       int(avformat.GetCodecParWidth(par)),
		height:      int(avformat.GetCodecParHeight(par)),
		frameRate:   avformat.GetStreamAvgFrameRate(stream),
	}
	if err := avcodec.ParametersToContext(codecCtx, par); err != nil {
		d.free()
		return nil, fmt.Errorf("copy stream parameters: %w", err)
	}
	if err := avcodec.Open2(codecCtx, codec, nil); err != nil {
		d.free()
		return nil, fmt.Errorf("open decoder %s: %w", avcodec.GetCodecName(codec), err)
	}

	srcFormat := avutil.PixelFormat(avformat.GetCodecParFormat(par))
	d.swsCtx = swscale.GetContext(d.width, d.height, srcFormat,
		d.width, d.height, avutil.PixelFormatRGB24,
		swscale.FlagBilinear, nil, nil, nil)
	if d.swsCtx == nil {
		d.free()
		return nil, fmt.Errorf("slitscan: no conversion from pixel format %d to RGB24", srcFormat)
	}

	d.packet = avcodec.PacketAlloc()
	d.frame = avutil.FrameAlloc()
	d.rgbFrame = avutil.FrameAlloc()
	if d.packet == nil || d.frame == nil || d.rgbFrame == nil {
		d.free()
		return nil, avutil.NewError(avutil.AVERROR_ENOMEM, "alloc decode buffers")
	}
	avutil.SetFrameWidth(d.rgbFrame, int32(d.width))
	avutil.SetFrameHeight(d.rgbFrame, int32(d.height))
	avutil.SetFrameFormat(d.rgbFrame, int32(avutil.PixelFormatRGB24))
	if err := avutil.FrameGetBuffer(d.rgbFrame, 0); err != nil {
		d.free()
		return nil, fmt.Errorf("alloc RGB buffer: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"path":       path,
		"stream":     streamIndex,
		"codec":      avcodec.GetCodecName(codec),
		"width":      d.width,
		"height":     d.height,
		"frame_rate": fmt.Sprintf("%d/%d", d.frameRate.Num, d.frameRate.Den),
	}).Debug("opened video input")

	return d, nil
}

// Size returns the declared width and height of the video stream.
func (d *Decoder) Size() (width, height int) {
	return d.width, d.height
}

// FrameRate returns the stream's average frame rate. It may be zero for
// containers that do not declare one.
func (d *Decoder) FrameRate() avutil.Rational {
	return d.frameRate
}

// ReadRGB decodes and returns the next video frame as RGB24. It returns
// io.EOF once every frame has been decoded, and ErrDimensionMismatch if a
// decoded frame does not match the stream's declared geometry.
func (d *Decoder) ReadRGB() (*Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}

	for {
		err := avcodec.ReceiveFrame(d.codecCtx, d.frame)
		switch {
		case err == nil:
			out, cerr := d.convert()
			avutil.FrameUnref(d.frame)
			return out, cerr
		case avutil.IsEOF(err):
			return nil, io.EOF
		case avutil.IsAgain(err):
			if err := d.feed(); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("decode frame: %w", err)
		}
	}
}

// feed pushes the next packet of the video stream into the decoder, entering
// drain mode at container EOF.
func (d *Decoder) feed() error {
	for {
		if d.draining {
			// Already flushed; the decoder will report its own EOF.
			return nil
		}
		err := avformat.ReadFrame(d.formatCtx, d.packet)
		if avutil.IsEOF(err) {
			d.draining = true
			if err := avcodec.SendPacket(d.codecCtx, nil); err != nil {
				return fmt.Errorf("flush decoder: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("read packet: %w", err)
		}
		if avcodec.GetPacketStreamIndex(d.packet) != d.streamIndex {
			avcodec.PacketUnref(d.packet)
			continue
		}
		err = avcodec.SendPacket(d.codecCtx, d.packet)
		avcodec.PacketUnref(d.packet)
		if err != nil {
			return fmt.Errorf("send packet: %w", err)
		}
		return nil
	}
}

// convert checks the decoded frame's geometry, scales it to RGB24 and copies
// the pixels into a tightly packed Frame.
func (d *Decoder) convert() (*Frame, error) {
	w := int(avutil.GetFrameWidth(d.frame))
	h := int(avutil.GetFrameHeight(d.frame))
	if w != d.width || h != d.height {
		return nil, fmt.Errorf("%w: decoded frame is %dx%d, stream is %dx%d",
			ErrDimensionMismatch, w, h, d.width, d.height)
	}
	if ret := swscale.ScaleFrame(d.swsCtx, d.rgbFrame, d.frame); ret < 0 {
		return nil, avutil.NewError(ret, "convert to RGB24")
	}

	out := NewFrame(d.width, d.height)
	stride := int(avutil.GetFrameLinesizePlane(d.rgbFrame, 0))
	data := avutil.GetFrameDataPlane(d.rgbFrame, 0)
	src := unsafe.Slice((*byte)(data), h*stride)
	rowBytes := d.width * 3
	for y := 0; y < h; y++ {
		copy(out.Pix[y*rowBytes:(y+1)*rowBytes], src[y*stride:y*stride+rowBytes])
	}
	return out, nil
}

// Close releases every FFmpeg resource held by the decoder. It is safe to
// call more than once.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.free()
	return nil
}

func (d *Decoder) free() {
	if d.swsCtx != nil {
		swscale.FreeContext(d.swsCtx)
		d.swsCtx = nil
	}
	if d.rgbFrame != nil {
		avutil.FrameFree(&d.rgbFrame)
	}
	if d.frame != nil {
		avutil.FrameFree(&d.frame)
	}
	if d.packet != nil {
		avcodec.PacketFree(&d.packet)
	}
	if d.codecCtx != nil {
		avcodec.FreeContext(&d.codecCtx)
	}
	if d.formatCtx != nil {
		avformat.CloseInput(&d.formatCtx)
	}
}
