//go:build !ios && !android && (amd64 || arm64)

package slitscan

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/obinnaokechukwu/slitscan/avcodec"
	"github.com/obinnaokechukwu/slitscan/avformat"
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

// createTestVideo synthesizes a short input with the ffmpeg CLI.
func createTestVideo(t *testing.T, args ...string) string {
	t.Helper()

	testFile := filepath.Join(t.TempDir(), "input.mp4")
	cmdArgs := append([]string{"-y"}, args...)
	cmdArgs = append(cmdArgs,
		"-c:v", "libx264", "-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		testFile)
	cmd := exec.Command("ffmpeg", cmdArgs...)
	if err := cmd.Run(); err != nil {
		t.Skipf("ffmpeg CLI not available or failed: %v", err)
	}
	if _, err := os.Stat(testFile); err != nil {
		t.Skipf("test file not created: %v", err)
	}
	return testFile
}

func TestDecoderReadsAllFrames(t *testing.T) {
	skipIfNoFFmpeg(t)
	testFile := createTestVideo(t,
		"-f", "lavfi", "-i", "testsrc=duration=1:size=160x120:rate=25")

	dec, err := OpenInput(testFile)
	if err != nil {
		t.Fatalf("OpenInput failed: %v", err)
	}
	defer dec.Close()

	w, h := dec.Size()
	if w != 160 || h != 120 {
		t.Errorf("size = %dx%d, want 160x120", w, h)
	}
	fr := dec.FrameRate()
	if fr.Num == 0 || fr.Den == 0 {
		t.Errorf("frame rate = %d/%d, want non-zero", fr.Num, fr.Den)
	}

	count := 0
	for {
		frame, err := dec.ReadRGB()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadRGB failed at frame %d: %v", count, err)
		}
		if frame.Width != 160 || frame.Height != 120 {
			t.Fatalf("frame %d is %dx%d, want 160x120", count, frame.Width, frame.Height)
		}
		if len(frame.Pix) != 160*120*3 {
			t.Fatalf("frame %d pixel buffer is %d bytes, want %d", count, len(frame.Pix), 160*120*3)
		}
		count++
	}
	if count != 25 {
		t.Errorf("decoded %d frames, want 25", count)
	}
}

func TestDecoderNoVideoStream(t *testing.T) {
	skipIfNoFFmpeg(t)

	// Audio-only input.
	testFile := filepath.Join(t.TempDir(), "audio.m4a")
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1",
		"-c:a", "aac", testFile)
	if err := cmd.Run(); err != nil {
		t.Skipf("ffmpeg CLI not available or failed: %v", err)
	}

	_, err := OpenInput(testFile)
	if err == nil {
		t.Fatal("OpenInput succeeded on audio-only input")
	}
	if !errors.Is(err, ErrNoVideoStream) {
		t.Errorf("error = %v, want ErrNoVideoStream", err)
	}
}

func TestRunRoundTrip(t *testing.T) {
	skipIfNoFFmpeg(t)
	testFile := createTestVideo(t,
		"-f", "lavfi", "-i", "testsrc=duration=1:size=160x120:rate=24")

	outFile := filepath.Join(t.TempDir(), "out.mp4")
	res, err := Run(testFile, outFile)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.FramesIn != 24 {
		t.Errorf("FramesIn = %d, want 24", res.FramesIn)
	}
	if res.FramesOut != 160 {
		t.Errorf("FramesOut = %d, want 160", res.FramesOut)
	}
	if res.OutWidth != 24 || res.OutHeight != 120 {
		t.Errorf("output geometry = %dx%d, want 24x120", res.OutWidth, res.OutHeight)
	}
	if res.Padded {
		t.Error("Padded = true for an even frame count")
	}

	// The output must decode and have the transposed geometry.
	dec, err := OpenInput(outFile)
	if err != nil {
		t.Fatalf("OpenInput on output failed: %v", err)
	}
	defer dec.Close()
	w, h := dec.Size()
	if w != 24 || h != 120 {
		t.Errorf("output decodes as %dx%d, want 24x120", w, h)
	}
	count := 0
	for {
		_, err := dec.ReadRGB()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("decoding output failed at frame %d: %v", count, err)
		}
		count++
	}
	if count != 160 {
		t.Errorf("output has %d frames, want 160", count)
	}
}

func TestRunOddFrameCountPadsOutput(t *testing.T) {
	skipIfNoFFmpeg(t)
	// 25 frames at 25 fps: odd count, output width padded to 26.
	testFile := createTestVideo(t,
		"-f", "lavfi", "-i", "testsrc=duration=1:size=64x48:rate=25")

	outFile := filepath.Join(t.TempDir(), "out.mp4")
	res, err := Run(testFile, outFile)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Padded {
		t.Error("Padded = false for an odd frame count")
	}
	if res.OutWidth != 26 {
		t.Errorf("OutWidth = %d, want 26", res.OutWidth)
	}
}

func TestOutputTimestampsAreExact(t *testing.T) {
	skipIfNoFFmpeg(t)

	fps := avutil.NewRational(30000, 1001)
	outFile := filepath.Join(t.TempDir(), "stamped.mp4")
	out, err := NewOutput(outFile, 64, 48, fps, WithEncoderOption("preset", "ultrafast"))
	if err != nil {
		t.Fatalf("NewOutput failed: %v", err)
	}
	frame := NewFrame(64, 48)
	for i := 0; i < 10; i++ {
		if err := out.WriteFrame(frame); err != nil {
			out.Close()
			t.Fatalf("WriteFrame %d failed: %v", i, err)
		}
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Demux the file and check the stamps the container actually carries:
	// pts = dts = 0, inc, 2*inc, ... with duration = inc, where inc is
	// derived from the stored stream time base, whatever the muxer chose.
	var ctx avformat.FormatContext
	if err := avformat.OpenInput(&ctx, outFile, nil, nil); err != nil {
		t.Fatalf("OpenInput on output failed: %v", err)
	}
	defer avformat.CloseInput(&ctx)
	if err := avformat.FindStreamInfo(ctx, nil); err != nil {
		t.Fatalf("FindStreamInfo failed: %v", err)
	}
	tb := avformat.GetStreamTimeBase(avformat.GetStream(ctx, 0))
	if tb.Num == 0 || tb.Den == 0 {
		t.Fatalf("stored time base is %d/%d", tb.Num, tb.Den)
	}
	increment := int64(tb.Den) * int64(fps.Den) / int64(fps.Num)

	pkt := avcodec.PacketAlloc()
	if pkt == nil {
		t.Fatal("PacketAlloc returned nil")
	}
	defer avcodec.PacketFree(&pkt)

	n := 0
	for {
		err := avformat.ReadFrame(ctx, pkt)
		if avutil.IsEOF(err) {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame failed at packet %d: %v", n, err)
		}
		want := int64(n) * increment
		if pts := avcodec.GetPacketPTS(pkt); pts != want {
			t.Errorf("packet %d: pts = %d, want %d", n, pts, want)
		}
		if pts, dts := avcodec.GetPacketPTS(pkt), avcodec.GetPacketDTS(pkt); dts != pts {
			t.Errorf("packet %d: dts = %d, want pts %d", n, dts, pts)
		}
		if dur := avcodec.GetPacketDuration(pkt); dur != increment {
			t.Errorf("packet %d: duration = %d, want %d", n, dur, increment)
		}
		if n == 0 && avcodec.GetPacketFlags(pkt)&avcodec.PacketFlagKey == 0 {
			t.Error("first packet is not a keyframe")
		}
		n++
		avcodec.PacketUnref(pkt)
	}
	if n != 10 {
		t.Errorf("output has %d packets, want 10", n)
	}
}
