//go:build !ios && !android && (amd64 || arm64)

package swscale

import (
	"os"
	"testing"
	"unsafe"

	"github.com/obinnaokechukwu/slitscan/avutil"
	"github.com/obinnaokechukwu/slitscan/internal/bindings"
)

var ffmpegAvailable bool

func TestMain(m *testing.M) {
	if err := bindings.Load(); err == nil {
		ffmpegAvailable = true
	}
	os.Exit(m.Run())
}

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if !ffmpegAvailable {
		t.Skip("FFmpeg not available")
	}
}

func TestGetContext(t *testing.T) {
	skipIfNoFFmpeg(t)
	ctx := GetContext(
		320, 240, avutil.PixelFormatYUV420P,
		320, 240, avutil.PixelFormatRGB24,
		FlagBilinear, nil, nil, nil,
	)
	if ctx == nil {
		t.Fatal("GetContext returned nil")
	}
	FreeContext(ctx)

	// Free nil should not panic
	FreeContext(nil)
}

func TestSupportedFormats(t *testing.T) {
	skipIfNoFFmpeg(t)
	for _, f := range []avutil.PixelFormat{avutil.PixelFormatRGB24, avutil.PixelFormatYUV420P} {
		if !IsSupportedInput(f) {
			t.Errorf("format %d should be supported as input", f)
		}
		if !IsSupportedOutput(f) {
			t.Errorf("format %d should be supported as output", f)
		}
	}
}

func allocFrame(t *testing.T, w, h int, format avutil.PixelFormat) avutil.Frame {
	t.Helper()
	frame := avutil.FrameAlloc()
	if frame == nil {
		t.Fatal("FrameAlloc returned nil")
	}
	avutil.SetFrameWidth(frame, int32(w))
	avutil.SetFrameHeight(frame, int32(h))
	avutil.SetFrameFormat(frame, int32(format))
	if err := avutil.FrameGetBuffer(frame, 0); err != nil {
		avutil.FrameFree(&frame)
		t.Fatalf("FrameGetBuffer failed: %v", err)
	}
	return frame
}

// A solid gray RGB frame should survive the RGB24 -> YUV420P -> RGB24
// round trip nearly unchanged.
func TestRGBRoundTrip(t *testing.T) {
	skipIfNoFFmpeg(t)
	const w, h = 64, 48

	rgb := allocFrame(t, w, h, avutil.PixelFormatRGB24)
	defer avutil.FrameFree(&rgb)
	yuv := allocFrame(t, w, h, avutil.PixelFormatYUV420P)
	defer avutil.FrameFree(&yuv)
	back := allocFrame(t, w, h, avutil.PixelFormatRGB24)
	defer avutil.FrameFree(&back)

	if err := avutil.FrameMakeWritable(rgb); err != nil {
		t.Fatalf("FrameMakeWritable failed: %v", err)
	}
	stride := int(avutil.GetFrameLinesizePlane(rgb, 0))
	pix := unsafe.Slice((*byte)(avutil.GetFrameDataPlane(rgb, 0)), h*stride)
	for y := 0; y < h; y++ {
		for x := 0; x < w*3; x++ {
			pix[y*stride+x] = 128
		}
	}

	toYUV := GetContext(w, h, avutil.PixelFormatRGB24, w, h, avutil.PixelFormatYUV420P, FlagBilinear, nil, nil, nil)
	if toYUV == nil {
		t.Fatal("GetContext RGB->YUV returned nil")
	}
	defer FreeContext(toYUV)
	toRGB := GetContext(w, h, avutil.PixelFormatYUV420P, w, h, avutil.PixelFormatRGB24, FlagBilinear, nil, nil, nil)
	if toRGB == nil {
		t.Fatal("GetContext YUV->RGB returned nil")
	}
	defer FreeContext(toRGB)

	if ret := ScaleFrame(toYUV, yuv, rgb); ret < 0 {
		t.Fatalf("ScaleFrame RGB->YUV returned %d", ret)
	}
	if ret := ScaleFrame(toRGB, back, yuv); ret < 0 {
		t.Fatalf("ScaleFrame YUV->RGB returned %d", ret)
	}

	backStride := int(avutil.GetFrameLinesizePlane(back, 0))
	backPix := unsafe.Slice((*byte)(avutil.GetFrameDataPlane(back, 0)), h*backStride)
	center := backPix[(h/2)*backStride+(w/2)*3]
	if center < 120 || center > 136 {
		t.Errorf("round-tripped gray drifted too far: got %d", center)
	}
}
