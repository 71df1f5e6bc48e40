//go:build !ios && !android && (amd64 || arm64)

package slitscan

// Transposer synthesizes output frames in which the horizontal axis of
// the input has been swapped with time: output frame x holds input
// column x of every input frame, laid out left to right in temporal
// order.
//
// H.264 needs even dimensions, so an odd frame count T is padded to
// T+1 by duplicating the last time column. The transform is therefore
// not its own inverse for odd T.
type Transposer struct {
	store    *FrameStore
	outWidth int
	padded   bool
}

// NewTransposer builds a transposer over a finalized store.
func NewTransposer(store *FrameStore) (*Transposer, error) {
	if !store.Finalized() {
		return nil, ErrStoreNotFinalized
	}
	t := &Transposer{
		store:    store,
		outWidth: store.Len(),
	}
	if t.outWidth%2 != 0 {
		t.outWidth++
		t.padded = true
	}
	return t, nil
}

// OutFrames returns the number of output frames: the input width.
func (tr *Transposer) OutFrames() int {
	return tr.store.Width()
}

// OutWidth returns the output frame width: the input frame count,
// rounded up to even.
func (tr *Transposer) OutWidth() int {
	return tr.outWidth
}

// OutHeight returns the output frame height: the input height.
func (tr *Transposer) OutHeight() int {
	return tr.store.Height()
}

// Padded reports whether a duplicate time column was added.
func (tr *Transposer) Padded() bool {
	return tr.padded
}

// Frame synthesizes output frame x.
func (tr *Transposer) Frame(x int) *Frame {
	dst := NewFrame(tr.outWidth, tr.store.Height())
	tr.FrameInto(dst, x)
	return dst
}

// FrameInto synthesizes output frame x into dst, which must have the
// output geometry. The encode loop reuses one buffer through here.
func (tr *Transposer) FrameInto(dst *Frame, x int) {
	height := tr.store.Height()
	srcWidth := tr.store.Width()
	frames := tr.store.Len()

	for t := 0; t < frames; t++ {
		src := tr.store.Frame(t).Pix
		for y := 0; y < height; y++ {
			srcOff := (y*srcWidth + x) * 3
			dstOff := (y*tr.outWidth + t) * 3
			dst.Pix[dstOff] = src[srcOff]
			dst.Pix[dstOff+1] = src[srcOff+1]
			dst.Pix[dstOff+2] = src[srcOff+2]
		}
	}

	if tr.padded {
		// Duplicate the last time column into the pad column.
		for y := 0; y < height; y++ {
			srcOff := (y*tr.outWidth + frames - 1) * 3
			dstOff := (y*tr.outWidth + frames) * 3
			copy(dst.Pix[dstOff:dstOff+3], dst.Pix[srcOff:srcOff+3])
		}
	}
}
