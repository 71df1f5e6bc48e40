//go:build !ios && !android && (amd64 || arm64)

// Package slitscan swaps the horizontal and temporal axes of a video: the
// pixel at column x of input frame t appears at column t of output frame x.
// A video that pans across a scene becomes a video of vertical slices
// marching through time, and vice versa.
//
// Decoding, encoding and pixel format conversion go through FFmpeg's shared
// libraries, loaded at runtime with purego. No cgo is involved, so the
// package cross-compiles like ordinary Go; the FFmpeg libraries only need to
// be present on the machine that runs it.
//
// Call Init once before any other function:
//
//	if err := slitscan.Init(); err != nil {
//		log.Fatal(err)
//	}
//	result, err := slitscan.Run("pan.mp4", "scan.mp4")
package slitscan

import (
	"fmt"

	"github.com/obinnaokechukwu/slitscan/internal/bindings"
)

// Init locates and loads the FFmpeg shared libraries (libavutil, libavcodec,
// libavformat, libswscale). It is safe to call multiple times; only the
// first call does the work.
func Init() error {
	return bindings.Load()
}

// IsLoaded reports whether the FFmpeg libraries have been loaded.
func IsLoaded() bool {
	return bindings.IsLoaded()
}

// Version returns the loaded FFmpeg library versions as a human-readable
// string, or an empty string when the libraries are not loaded.
func Version() string {
	if !bindings.IsLoaded() {
		return ""
	}
	return fmt.Sprintf("avutil %s, avcodec %s, avformat %s, swscale %s",
		formatVersion(bindings.AVUtilVersion()),
		formatVersion(bindings.AVCodecVersion()),
		formatVersion(bindings.AVFormatVersion()),
		formatVersion(bindings.SWScaleVersion()))
}

// formatVersion renders FFmpeg's packed version integer as major.minor.micro.
func formatVersion(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>16, (v>>8)&0xff, v&0xff)
}
