package filterchain

import (
	"bytes"
	"image"

	"github.com/anthonynsimon/bild/clone"
)

// CloneImage returns a deep copy of img. It is used wherever a shared cache
// value must not be mutated: masking, compositing, and defensive copies of
// aliasing transform output.
func CloneImage(img *image.RGBA) *image.RGBA {
	return clone.AsRGBA(img)
}

// SharesBuffer reports whether a and b are backed by the same pixel buffer.
// A transform that returns its input unchanged, or a sub-image of it (at
// any offset), would alias the upstream cache; such output must be copied
// before caching.
func SharesBuffer(a, b *image.RGBA) bool {
	if a == nil || b == nil {
		return false
	}
	if a == b {
		return true
	}
	return sameBacking(a.Pix, b.Pix)
}

// sameBacking reports whether two slices were carved from the same backing
// array. A sub-image's Pix slices from its offset to the end of the parent
// buffer, so any two slices over one array end at the same element.
func sameBacking(a, b []uint8) bool {
	if cap(a) == 0 || cap(b) == 0 {
		return false
	}
	return &a[:cap(a)][cap(a)-1] == &b[:cap(b)][cap(b)-1]
}

// PixelsEqual reports whether a and b have identical bounds and pixel
// content.
func PixelsEqual(a, b *image.RGBA) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Bounds() != b.Bounds() {
		return false
	}
	bounds := a.Bounds()
	rowLen := bounds.Dx() * 4
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		aoff := a.PixOffset(bounds.Min.X, y)
		boff := b.PixOffset(bounds.Min.X, y)
		if !bytes.Equal(a.Pix[aoff:aoff+rowLen], b.Pix[boff:boff+rowLen]) {
			return false
		}
	}
	return true
}
