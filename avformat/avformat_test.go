//go:build !ios && !android && (amd64 || arm64)

package avformat

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/obinnaokechukwu/slitscan/avcodec"
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
func createTestVideo(t *testing.T) string {
	t.Helper()

	testFile := filepath.Join(t.TempDir(), "test.mp4")
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=320x240:rate=30",
		"-c:v", "libx264", "-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		testFile)

	if err := cmd.Run(); err != nil {
		t.Skipf("ffmpeg CLI not available or failed: %v", err)
	}
	if _, err := os.Stat(testFile); err != nil {
		t.Skipf("test file not created: %v", err)
	}
	return testFile
}

func TestOpenInputAndStreamInfo(t *testing.T) {
	skipIfNoFFmpeg(t)
	testFile := createTestVideo(t)

	var ctx FormatContext
	if err := OpenInput(&ctx, testFile, nil, nil); err != nil {
		t.Fatalf("OpenInput failed: %v", err)
	}
	defer CloseInput(&ctx)

	if err := FindStreamInfo(ctx, nil); err != nil {
		t.Fatalf("FindStreamInfo failed: %v", err)
	}

	if GetNumStreams(ctx) < 1 {
		t.Fatalf("expected at least 1 stream, got %d", GetNumStreams(ctx))
	}

	idx := FindBestStream(ctx, avutil.MediaTypeVideo, -1, -1, nil, 0)
	if idx < 0 {
		t.Fatal("no video stream found")
	}

	stream := GetStream(ctx, int(idx))
	if stream == nil {
		t.Fatal("GetStream returned nil")
	}
	if GetStreamIndex(stream) != idx {
		t.Errorf("stream index: expected %d, got %d", idx, GetStreamIndex(stream))
	}

	par := GetStreamCodecPar(stream)
	if par == nil {
		t.Fatal("codec parameters missing")
	}
	if GetCodecParType(par) != avutil.MediaTypeVideo {
		t.Errorf("expected video codec parameters, got %d", GetCodecParType(par))
	}
	if GetCodecParWidth(par) != 320 || GetCodecParHeight(par) != 240 {
		t.Errorf("expected 320x240, got %dx%d", GetCodecParWidth(par), GetCodecParHeight(par))
	}
	if GetCodecParCodecID(par) != avcodec.CodecIDH264 {
		t.Errorf("expected h264, got %s", GetCodecParCodecID(par))
	}

	fps := GetStreamAvgFrameRate(stream)
	if fps.IsZero() || !fps.IsValid() {
		t.Errorf("frame rate should be known, got %d/%d", fps.Num, fps.Den)
	}
	t.Logf("avg frame rate %d/%d, time base %v", fps.Num, fps.Den, GetStreamTimeBase(stream))
}

func TestReadPackets(t *testing.T) {
	skipIfNoFFmpeg(t)
	testFile := createTestVideo(t)

	var ctx FormatContext
	if err := OpenInput(&ctx, testFile, nil, nil); err != nil {
		t.Fatalf("OpenInput failed: %v", err)
	}
	defer CloseInput(&ctx)

	if err := FindStreamInfo(ctx, nil); err != nil {
		t.Fatalf("FindStreamInfo failed: %v", err)
	}

	pkt := avcodec.PacketAlloc()
	if pkt == nil {
		t.Fatal("PacketAlloc returned nil")
	}
	defer avcodec.PacketFree(&pkt)

	packets := 0
	for {
		if err := ReadFrame(ctx, pkt); err != nil {
			if !avutil.IsEOF(err) && packets == 0 {
				t.Fatalf("ReadFrame failed: %v", err)
			}
			break
		}
		if avcodec.GetPacketSize(pkt) <= 0 {
			t.Errorf("packet %d has size %d", packets, avcodec.GetPacketSize(pkt))
		}
		if avcodec.GetPacketData(pkt) == nil {
			t.Errorf("packet %d has nil data", packets)
		}
		packets++
		avcodec.PacketUnref(pkt)
	}

	if packets == 0 {
		t.Error("no packets read")
	}
	t.Logf("read %d packets", packets)
}

func TestOutputContextFlags(t *testing.T) {
	skipIfNoFFmpeg(t)

	outPath := filepath.Join(t.TempDir(), "out.mp4")
	var ctx FormatContext
	if err := AllocOutputContext2(&ctx, nil, "", outPath); err != nil {
		t.Fatalf("AllocOutputContext2 failed: %v", err)
	}
	defer FreeContext(ctx)

	if GetOutputFormat(ctx) == nil {
		t.Fatal("output format should be set")
	}
	if !NeedsGlobalHeader(ctx) {
		t.Error("mp4 should want codec global headers")
	}
	if HasNoFile(ctx) {
		t.Error("mp4 writes to a file")
	}
}
