//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"errors"
	"os"
	"testing"

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

func TestFrameAllocFree(t *testing.T) {
	skipIfNoFFmpeg(t)
	frame := FrameAlloc()
	if frame == nil {
		t.Fatal("FrameAlloc returned nil")
	}

	FrameFree(&frame)
	if frame != nil {
		t.Error("frame should be nil after free")
	}

	// Double free should be safe
	FrameFree(&frame)
}

func TestFrameFieldAccessors(t *testing.T) {
	skipIfNoFFmpeg(t)
	frame := FrameAlloc()
	if frame == nil {
		t.Fatal("FrameAlloc returned nil")
	}
	defer FrameFree(&frame)

	SetFrameWidth(frame, 640)
	SetFrameHeight(frame, 480)
	SetFrameFormat(frame, int32(PixelFormatRGB24))
	SetFramePTS(frame, 1001)

	if GetFrameWidth(frame) != 640 {
		t.Errorf("Width: expected 640, got %d", GetFrameWidth(frame))
	}
	if GetFrameHeight(frame) != 480 {
		t.Errorf("Height: expected 480, got %d", GetFrameHeight(frame))
	}
	if GetFrameFormat(frame) != int32(PixelFormatRGB24) {
		t.Errorf("Format: expected %d, got %d", PixelFormatRGB24, GetFrameFormat(frame))
	}
	if GetFramePTS(frame) != 1001 {
		t.Errorf("PTS: expected 1001, got %d", GetFramePTS(frame))
	}
}

func TestFrameGetBuffer(t *testing.T) {
	skipIfNoFFmpeg(t)
	frame := FrameAlloc()
	if frame == nil {
		t.Fatal("FrameAlloc returned nil")
	}
	defer FrameFree(&frame)

	SetFrameWidth(frame, 64)
	SetFrameHeight(frame, 48)
	SetFrameFormat(frame, int32(PixelFormatRGB24))

	if err := FrameGetBuffer(frame, 0); err != nil {
		t.Fatalf("FrameGetBuffer failed: %v", err)
	}
	if GetFrameDataPlane(frame, 0) == nil {
		t.Error("data plane 0 should be allocated")
	}
	if GetFrameLinesizePlane(frame, 0) < 64*3 {
		t.Errorf("linesize should be at least %d, got %d", 64*3, GetFrameLinesizePlane(frame, 0))
	}
}

func TestRational(t *testing.T) {
	r := NewRational(30000, 1001)
	if r.Num != 30000 || r.Den != 1001 {
		t.Errorf("expected 30000/1001, got %d/%d", r.Num, r.Den)
	}

	fps := r.Float64()
	expected := 29.97002997
	if fps < expected-0.0001 || fps > expected+0.0001 {
		t.Errorf("expected ~%f, got %f", expected, fps)
	}

	zr := NewRational(1, 0)
	if zr.Float64() != 0 {
		t.Error("zero denominator should return 0")
	}
	if zr.IsValid() {
		t.Error("zero denominator should not be valid")
	}
	if !NewRational(0, 1).IsZero() {
		t.Error("0/1 should be zero")
	}
}

func TestRationalArithmetic(t *testing.T) {
	a := NewRational(1, 2)
	b := NewRational(3, 4)

	if m := a.Mul(b); m.Num != 3 || m.Den != 8 {
		t.Errorf("1/2 * 3/4: expected 3/8, got %d/%d", m.Num, m.Den)
	}
	if d := a.Div(b); d.Num != 2 || d.Den != 3 {
		t.Errorf("1/2 / 3/4: expected 2/3, got %d/%d", d.Num, d.Den)
	}
	if s := a.Add(NewRational(1, 4)); s.Num != 3 || s.Den != 4 {
		t.Errorf("1/2 + 1/4: expected 3/4, got %d/%d", s.Num, s.Den)
	}
	if s := b.Sub(NewRational(1, 4)); s.Num != 1 || s.Den != 2 {
		t.Errorf("3/4 - 1/4: expected 1/2, got %d/%d", s.Num, s.Den)
	}
}

func TestRationalCmp(t *testing.T) {
	a := NewRational(1, 2)
	if a.Cmp(NewRational(1, 3)) <= 0 {
		t.Error("expected 1/2 > 1/3")
	}
	if a.Cmp(NewRational(2, 4)) != 0 {
		t.Error("expected 1/2 == 2/4")
	}
	if a.Cmp(NewRational(2, 3)) >= 0 {
		t.Error("expected 1/2 < 2/3")
	}
}

func TestRationalInvert(t *testing.T) {
	fps := FrameRate2997
	tb := fps.Invert()
	if tb.Num != 1001 || tb.Den != 30000 {
		t.Errorf("expected 1001/30000, got %d/%d", tb.Num, tb.Den)
	}
}

func TestNewError(t *testing.T) {
	if err := NewError(0, "noop"); err != nil {
		t.Errorf("non-negative code should yield nil, got %v", err)
	}

	err := NewError(AVERROR_EOF, "avcodec_receive_frame")
	if err == nil {
		t.Fatal("negative code should yield an error")
	}
	if !IsEOF(err) {
		t.Error("IsEOF should match AVERROR_EOF")
	}
	if IsAgain(err) {
		t.Error("IsAgain should not match AVERROR_EOF")
	}
	if Code(err) != AVERROR_EOF {
		t.Errorf("Code: expected %d, got %d", AVERROR_EOF, Code(err))
	}

	var ffErr *Error
	if !errors.As(err, &ffErr) {
		t.Fatal("error should unwrap to *Error")
	}
	if ffErr.Op != "avcodec_receive_frame" {
		t.Errorf("Op: expected avcodec_receive_frame, got %s", ffErr.Op)
	}
}

func TestErrorString(t *testing.T) {
	skipIfNoFFmpeg(t)
	msg := ErrorString(AVERROR_EOF)
	if msg == "" {
		t.Error("ErrorString should return non-empty string for AVERROR_EOF")
	}
	t.Logf("AVERROR_EOF message: %s", msg)
}
