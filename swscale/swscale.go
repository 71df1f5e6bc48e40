//go:build !ios && !android && (amd64 || arm64)

// Package swscale provides bindings to FFmpeg's libswscale library for
// pixel format conversion.
package swscale

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/slitscan/avutil"
	"github.com/obinnaokechukwu/slitscan/internal/bindings"
)

// Context is an opaque SwsContext pointer.
type Context = unsafe.Pointer

// Filter is an opaque SwsFilter pointer.
type Filter = unsafe.Pointer

// Scaling algorithm flags
const (
	FlagFastBilinear = 1     // Fast bilinear scaling
	FlagBilinear     = 2     // Bilinear scaling
	FlagBicubic      = 4     // Bicubic scaling
	FlagPoint        = 0x10  // Nearest neighbor
	FlagArea         = 0x20  // Area averaging
	FlagLanczos      = 0x200 // Lanczos scaling
)

// Function bindings
var (
	swsGetContext     func(srcW, srcH int32, srcFormat int32, dstW, dstH int32, dstFormat int32, flags int32, srcFilter, dstFilter, param unsafe.Pointer) uintptr
	swsScale          func(ctx unsafe.Pointer, srcSlice, srcStride unsafe.Pointer, srcSliceY, srcSliceH int32, dst, dstStride unsafe.Pointer) int32
	swsFreeContext    func(ctx unsafe.Pointer)
	swsScaleFrame     func(ctx, dst, src unsafe.Pointer) int32
	swsIsSupportedIn  func(format int32) int32
	swsIsSupportedOut func(format int32) int32

	bindingsRegistered bool
)

func init() {
	registerBindings()
}

func registerBindings() {
	if bindingsRegistered {
		return
	}

	if err := bindings.Load(); err != nil {
		return
	}

	lib := bindings.LibSWScale()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&swsGetContext, lib, "sws_getContext")
	purego.RegisterLibFunc(&swsScale, lib, "sws_scale")
	purego.RegisterLibFunc(&swsFreeContext, lib, "sws_freeContext")

	// sws_scale_frame was added in FFmpeg 5.0
	registerOptionalLibFunc(&swsScaleFrame, lib, "sws_scale_frame")

	purego.RegisterLibFunc(&swsIsSupportedIn, lib, "sws_isSupportedInput")
	purego.RegisterLibFunc(&swsIsSupportedOut, lib, "sws_isSupportedOutput")

	bindingsRegistered = true
}

func registerOptionalLibFunc(fptr any, handle uintptr, name string) {
	defer func() { _ = recover() }()
	purego.RegisterLibFunc(fptr, handle, name)
}

// GetContext creates a conversion context between the given geometries and
// pixel formats. Returns nil if the context cannot be created.
func GetContext(srcW, srcH int, srcFormat avutil.PixelFormat, dstW, dstH int, dstFormat avutil.PixelFormat, flags int32, srcFilter, dstFilter Filter, param unsafe.Pointer) Context {
	if swsGetContext == nil {
		return nil
	}
	return unsafe.Pointer(swsGetContext(
		int32(srcW), int32(srcH), int32(srcFormat),
		int32(dstW), int32(dstH), int32(dstFormat),
		flags,
		srcFilter, dstFilter, param,
	))
}

// FreeContext frees a conversion context. Safe to call with nil.
func FreeContext(ctx Context) {
	if ctx == nil || swsFreeContext == nil {
		return
	}
	swsFreeContext(ctx)
}

// ScaleFrame converts src into dst. Both frames must be allocated with
// their format and dimensions set. Returns a negative error code on
// failure.
func ScaleFrame(ctx Context, dst, src avutil.Frame) int32 {
	if ctx == nil {
		return -1
	}

	if swsScaleFrame != nil {
		return swsScaleFrame(ctx, dst, src)
	}

	// Fallback for FFmpeg builds without sws_scale_frame.
	if swsScale == nil {
		return -1
	}

	var srcData, dstData [8]unsafe.Pointer
	var srcLinesize, dstLinesize [8]int32
	for i := 0; i < 8; i++ {
		srcData[i] = avutil.GetFrameDataPlane(src, i)
		dstData[i] = avutil.GetFrameDataPlane(dst, i)
		srcLinesize[i] = avutil.GetFrameLinesizePlane(src, i)
		dstLinesize[i] = avutil.GetFrameLinesizePlane(dst, i)
	}

	return swsScale(ctx,
		unsafe.Pointer(&srcData), unsafe.Pointer(&srcLinesize),
		0, avutil.GetFrameHeight(src),
		unsafe.Pointer(&dstData), unsafe.Pointer(&dstLinesize),
	)
}

// IsSupportedInput returns true if the pixel format is supported as input.
func IsSupportedInput(format avutil.PixelFormat) bool {
	if swsIsSupportedIn == nil {
		return false
	}
	return swsIsSupportedIn(int32(format)) > 0
}

// IsSupportedOutput returns true if the pixel format is supported as output.
func IsSupportedOutput(format avutil.PixelFormat) bool {
	if swsIsSupportedOut == nil {
		return false
	}
	return swsIsSupportedOut(int32(format)) > 0
}
