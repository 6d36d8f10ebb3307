package blend

// Mode represents a blending mode.
type Mode uint8

// Blend modes. Normal is plain source-over; the rest are the separable
// modes from the W3C compositing spec.
const (
	Normal Mode = iota
	Multiply
	Screen
	Overlay
	Darken
	Lighten
	Difference
	Exclusion
)

// blendFunc is a per-channel blend function B(s, d) operating on
// unmultiplied channel values.
type blendFunc func(s, d uint8) uint8

// funcFor returns the per-channel blend function for a mode, or nil for
// Normal (plain source-over needs no per-channel function).
func funcFor(mode Mode) blendFunc {
	switch mode {
	case Multiply:
		return mulDiv255
	case Screen:
		return blendScreen
	case Overlay:
		return blendOverlay
	case Darken:
		return blendDarken
	case Lighten:
		return blendLighten
	case Difference:
		return blendDifference
	case Exclusion:
		return blendExclusion
	default:
		return nil
	}
}

// blendScreen: B(s, d) = 1 - (1-s)*(1-d).
func blendScreen(s, d uint8) uint8 {
	return 255 - mulDiv255(inv255(s), inv255(d))
}

// blendOverlay: multiply for dark backdrops, screen for light ones.
// B(s, d) = HardLight(d, s).
func blendOverlay(s, d uint8) uint8 {
	if d < 128 {
		return mulDiv255(s, 2*d)
	}
	return blendScreen(s, 2*d-255)
}

// blendDarken: B(s, d) = min(s, d).
func blendDarken(s, d uint8) uint8 {
	if s < d {
		return s
	}
	return d
}

// blendLighten: B(s, d) = max(s, d).
func blendLighten(s, d uint8) uint8 {
	if s > d {
		return s
	}
	return d
}

// blendDifference: B(s, d) = |s - d|.
func blendDifference(s, d uint8) uint8 {
	if s > d {
		return s - d
	}
	return d - s
}

// blendExclusion: B(s, d) = s + d - 2*s*d.
func blendExclusion(s, d uint8) uint8 {
	sd := mulDiv255(s, d)
	return uint8(uint16(s) + uint16(d) - 2*uint16(sd))
}

// sourceOver composites a premultiplied source pixel over a premultiplied
// destination pixel.
func sourceOver(sr, sg, sb, sa, dr, dg, db, da uint8) (uint8, uint8, uint8, uint8) {
	invSa := inv255(sa)
	return satAdd255(sr, mulDiv255(dr, invSa)),
		satAdd255(sg, mulDiv255(dg, invSa)),
		satAdd255(sb, mulDiv255(db, invSa)),
		satAdd255(sa, mulDiv255(da, invSa))
}

// blendPixel composites a premultiplied source pixel over a premultiplied
// destination pixel using the separable formula
//
//	C = (1 - Sa)*D + (1 - Da)*S + Sa*Da*B(Sc, Dc)
//
// where B operates on unmultiplied channels.
func blendPixel(b blendFunc, sr, sg, sb, sa, dr, dg, db, da uint8) (uint8, uint8, uint8, uint8) {
	// Fully transparent endpoints reduce to plain source-over.
	if sa == 0 {
		return dr, dg, db, da
	}
	if da == 0 {
		return sr, sg, sb, sa
	}

	// Unpremultiply to apply B on plain channel values.
	sur := uint8((uint16(sr) * 255) / uint16(sa))
	sug := uint8((uint16(sg) * 255) / uint16(sa))
	sub := uint8((uint16(sb) * 255) / uint16(sa))
	dur := uint8((uint16(dr) * 255) / uint16(da))
	dug := uint8((uint16(dg) * 255) / uint16(da))
	dub := uint8((uint16(db) * 255) / uint16(da))

	blendR := b(sur, dur)
	blendG := b(sug, dug)
	blendB := b(sub, dub)

	invSa := inv255(sa)
	invDa := inv255(da)
	saDa := mulDiv255(sa, da)

	outA := satAdd255(sa, mulDiv255(da, invSa))
	outR := satAdd255(satAdd255(mulDiv255(dr, invSa), mulDiv255(sr, invDa)), mulDiv255(saDa, blendR))
	outG := satAdd255(satAdd255(mulDiv255(dg, invSa), mulDiv255(sg, invDa)), mulDiv255(saDa, blendG))
	outB := satAdd255(satAdd255(mulDiv255(db, invSa), mulDiv255(sb, invDa)), mulDiv255(saDa, blendB))

	return outR, outG, outB, outA
}
