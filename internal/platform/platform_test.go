//go:build !ios && !android && (amd64 || arm64)

package platform

import (
	"runtime"
	"testing"
)

func TestSupportsStructByValue(t *testing.T) {
	if runtime.GOOS == "darwin" && (runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64") {
		if !SupportsStructByValue {
			t.Error("Darwin amd64/arm64 should support struct by value")
		}
	} else {
		if SupportsStructByValue {
			t.Errorf("%s/%s should not support struct by value", runtime.GOOS, runtime.GOARCH)
		}
	}
}

func TestIs64Bit(t *testing.T) {
	if !Is64Bit {
		t.Error("platform should be 64-bit")
	}
}

func TestLibraryNaming(t *testing.T) {
	switch runtime.GOOS {
	case "darwin":
		if LibraryExtension != ".dylib" || LibraryPrefix != "lib" {
			t.Errorf("unexpected naming: prefix %q ext %q", LibraryPrefix, LibraryExtension)
		}
	case "windows":
		if LibraryExtension != ".dll" || LibraryPrefix != "" {
			t.Errorf("unexpected naming: prefix %q ext %q", LibraryPrefix, LibraryExtension)
		}
	default:
		if LibraryExtension != ".so" || LibraryPrefix != "lib" {
			t.Errorf("unexpected naming: prefix %q ext %q", LibraryPrefix, LibraryExtension)
		}
	}
}

func TestFormatLibraryName(t *testing.T) {
	tests := []struct {
		name    string
		version int
		goos    string
		want    string
	}{
		{"swscale", 7, "linux", "libswscale.so.7"},
		{"swscale", 0, "linux", "libswscale.so"},
		{"avformat", 60, "darwin", "libavformat.60.dylib"},
		{"avformat", 0, "darwin", "libavformat.dylib"},
		{"avcodec", 60, "windows", "avcodec-60.dll"},
		{"avcodec", 0, "windows", "avcodec.dll"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"_"+tt.goos, func(t *testing.T) {
			if runtime.GOOS != tt.goos {
				t.Skipf("test only applies to %s", tt.goos)
			}
			got := FormatLibraryName(tt.name, tt.version)
			if got != tt.want {
				t.Errorf("FormatLibraryName(%q, %d) = %q, want %q", tt.name, tt.version, got, tt.want)
			}
		})
	}
}
