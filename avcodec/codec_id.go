//go:build !ios && !android && (amd64 || arm64)

package avcodec

// CodecID represents FFmpeg codec identifiers.
type CodecID int32

// Video codec IDs
const (
	CodecIDNone CodecID = 0

	CodecIDMPEG1VIDEO CodecID = 1
	CodecIDMPEG2VIDEO CodecID = 2
	CodecIDMJPEG      CodecID = 7
	CodecIDMPEG4      CodecID = 12
	CodecIDRAWVIDEO   CodecID = 13
	CodecIDH264       CodecID = 27
	CodecIDTHEORA     CodecID = 30
	CodecIDVP8        CodecID = 139
	CodecIDVP9        CodecID = 167
	CodecIDHEVC       CodecID = 173 // H.265
	CodecIDAV1        CodecID = 226
)

// String returns the string representation of the codec ID.
func (id CodecID) String() string {
	switch id {
	case CodecIDNone:
		return "none"
	case CodecIDMPEG1VIDEO:
		return "mpeg1video"
	case CodecIDMPEG2VIDEO:
		return "mpeg2video"
	case CodecIDMJPEG:
		return "mjpeg"
	case CodecIDMPEG4:
		return "mpeg4"
	case CodecIDRAWVIDEO:
		return "rawvideo"
	case CodecIDH264:
		return "h264"
	case CodecIDTHEORA:
		return "theora"
	case CodecIDVP8:
		return "vp8"
	case CodecIDVP9:
		return "vp9"
	case CodecIDHEVC:
		return "hevc"
	case CodecIDAV1:
		return "av1"
	default:
		return "unknown"
	}
}

// IsVideo returns true if the codec ID is for a video codec.
// Audio codec IDs start at 0x10000 in FFmpeg.
func (id CodecID) IsVideo() bool {
	return id > 0 && id < 65536
}
