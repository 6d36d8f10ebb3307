// Package blend composites one premultiplied RGBA raster onto another with
// an opacity and a blend mode, per the W3C Compositing and Blending Level 1
// separable blend model.
package blend

// div255 divides x by 255 using fast shift approximation.
//
// Formula: (x + 255) >> 8
//
// This is ~5x faster than integer division. The maximum error is +1
// for some input values, which is imperceptible in alpha blending.
func div255(x uint16) uint16 {
	return (x + 255) >> 8
}

// mulDiv255 multiplies two bytes and divides by 255 using fast approximation.
func mulDiv255(a, b uint8) uint8 {
	return uint8(div255(uint16(a) * uint16(b)))
}

// satAdd255 adds two bytes, saturating at 255.
func satAdd255(a, b uint8) uint8 {
	s := uint16(a) + uint16(b)
	if s > 255 {
		return 255
	}
	return uint8(s)
}

// inv255 computes 255 - x (inverse alpha).
func inv255(x uint8) uint8 {
	return 255 - x
}
