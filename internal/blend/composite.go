package blend

import "image"

// Composite blends src onto dst in place with the given mode and opacity
// (0-255). dst must be a private copy owned by the caller; src is read-only.
// Only the overlapping region of the two bounds is touched.
func Composite(dst, src *image.RGBA, mode Mode, opacity uint8) {
	if dst == nil || src == nil || opacity == 0 {
		return
	}

	region := dst.Bounds().Intersect(src.Bounds())
	if region.Empty() {
		return
	}

	b := funcFor(mode)

	for y := region.Min.Y; y < region.Max.Y; y++ {
		di := dst.PixOffset(region.Min.X, y)
		si := src.PixOffset(region.Min.X, y)
		for x := region.Min.X; x < region.Max.X; x, di, si = x+1, di+4, si+4 {
			sr := src.Pix[si+0]
			sg := src.Pix[si+1]
			sb := src.Pix[si+2]
			sa := src.Pix[si+3]

			if opacity < 255 {
				// Premultiplied source: opacity scales all channels.
				sr = mulDiv255(sr, opacity)
				sg = mulDiv255(sg, opacity)
				sb = mulDiv255(sb, opacity)
				sa = mulDiv255(sa, opacity)
			}

			dr := dst.Pix[di+0]
			dg := dst.Pix[di+1]
			db := dst.Pix[di+2]
			da := dst.Pix[di+3]

			var r, g, bb, a uint8
			if b == nil {
				r, g, bb, a = sourceOver(sr, sg, sb, sa, dr, dg, db, da)
			} else {
				r, g, bb, a = blendPixel(b, sr, sg, sb, sa, dr, dg, db, da)
			}

			dst.Pix[di+0] = r
			dst.Pix[di+1] = g
			dst.Pix[di+2] = bb
			dst.Pix[di+3] = a
		}
	}
}
