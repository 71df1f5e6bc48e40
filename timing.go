//go:build !ios && !android && (amd64 || arm64)

package slitscan

import (
	"github.com/obinnaokechukwu/slitscan/avutil"
)

// TimestampSequencer reconstructs output timestamps from scratch.
// Encoder-produced timestamps are never trusted: every packet written to
// the container is stamped with the next value of a monotone sequence
// that starts at zero and advances by a fixed increment.
//
// The increment is derived with exact integer arithmetic from the frame
// rate and the stream time base the muxer actually assigned (muxers may
// override the requested time base when the header is written, so the
// sequencer must be built after avformat_write_header):
//
//	increment = (timeBase.Den * frameRate.Den) / frameRate.Num
//
// For 30000/1001 fps in a 1/30000 time base this yields 1001, so packets
// carry 0, 1001, 2002, ...
type TimestampSequencer struct {
	increment int64
	next      int64
}

// NewTimestampSequencer builds a sequencer for the given frame rate and
// stream time base.
func NewTimestampSequencer(frameRate, timeBase avutil.Rational) (*TimestampSequencer, error) {
	if frameRate.Num == 0 || frameRate.Den == 0 {
		return nil, ErrZeroFrameRate
	}
	return &TimestampSequencer{
		increment: int64(timeBase.Den) * int64(frameRate.Den) / int64(frameRate.Num),
	}, nil
}

// Increment returns the per-frame timestamp step in stream time base
// units.
func (ts *TimestampSequencer) Increment() int64 {
	return ts.increment
}

// Next returns the timestamp for the next packet and advances the
// sequence. B-frames are disabled in the output, so the same value
// serves as both PTS and DTS.
func (ts *TimestampSequencer) Next() int64 {
	pts := ts.next
	ts.next += ts.increment
	return pts
}
