//go:build !ios && !android && (amd64 || arm64)

package slitscan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/slitscan/avutil"
)

func TestTimestampSequencerNTSC(t *testing.T) {
	// 30000/1001 fps in a 1/30000 time base steps by exactly 1001.
	seq, err := NewTimestampSequencer(avutil.NewRational(30000, 1001), avutil.NewRational(1, 30000))
	require.NoError(t, err)

	assert.Equal(t, int64(1001), seq.Increment())
	assert.Equal(t, int64(0), seq.Next())
	assert.Equal(t, int64(1001), seq.Next())
	assert.Equal(t, int64(2002), seq.Next())
}

func TestTimestampSequencer90kHz(t *testing.T) {
	// 25 fps in MPEG-TS's 1/90000 time base steps by 3600.
	seq, err := NewTimestampSequencer(avutil.NewRational(25, 1), avutil.NewRational(1, 90000))
	require.NoError(t, err)

	assert.Equal(t, int64(3600), seq.Increment())
	assert.Equal(t, int64(0), seq.Next())
	assert.Equal(t, int64(3600), seq.Next())
}

func TestTimestampSequencerMatchedTimeBase(t *testing.T) {
	// When the time base is the inverted frame rate the step is 1.
	seq, err := NewTimestampSequencer(avutil.NewRational(30, 1), avutil.NewRational(1, 30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq.Increment())
}

func TestTimestampSequencerZeroFrameRate(t *testing.T) {
	_, err := NewTimestampSequencer(avutil.NewRational(0, 1), avutil.NewRational(1, 90000))
	assert.True(t, errors.Is(err, ErrZeroFrameRate))

	_, err = NewTimestampSequencer(avutil.NewRational(25, 0), avutil.NewRational(1, 90000))
	assert.True(t, errors.Is(err, ErrZeroFrameRate))
}
