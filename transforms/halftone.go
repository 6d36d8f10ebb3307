package transforms

import (
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/jinzhu/copier"

	"github.com/gopix/filterchain"
)

// Halftone uses another image as a threshold mask to produce a halftoning
// effect. The mask is tiled if it is smaller than the source image.
type Halftone struct {
	// Mask is the threshold map. Without a mask the transform is a no-op.
	Mask image.Image

	// Softness of the dot edges, 0..1.
	Softness float64

	// Invert inverts the mask before thresholding.
	Invert bool

	// Monochrome thresholds brightness instead of individual channels.
	Monochrome bool

	// TriangleGrid offsets every second mask row by half a tile,
	// packing round dots more tightly.
	TriangleGrid bool
}

// NewHalftone creates a halftone transform with soft edges and a triangle
// grid, matching the classic defaults.
func NewHalftone(mask image.Image) *Halftone {
	return &Halftone{
		Mask:         mask,
		Softness:     0.1,
		TriangleGrid: true,
	}
}

// Name implements filterchain.Transform.
func (t *Halftone) Name() string { return "Halftone" }

// Params implements filterchain.Transform.
func (t *Halftone) Params() filterchain.Params {
	return filterchain.Params{
		"softness":     t.Softness,
		"invert":       t.Invert,
		"monochrome":   t.Monochrome,
		"triangleGrid": t.TriangleGrid,
	}
}

// Apply implements filterchain.Transform.
func (t *Halftone) Apply(src *image.RGBA) (*image.RGBA, error) {
	if t.Mask == nil {
		return src, nil
	}

	mask := clone.AsRGBA(t.Mask)
	mb := mask.Bounds()
	maskW, maskH := mb.Dx(), mb.Dy()
	if maskW == 0 || maskH == 0 {
		return src, nil
	}

	dst := image.NewRGBA(src.Bounds())
	bounds := src.Bounds()
	s := 255 * t.Softness

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		maskY := (y - bounds.Min.Y) % maskH
		// On a triangle grid every second tile row is offset by half a
		// tile width.
		offset := t.TriangleGrid && ((y-bounds.Min.Y)/maskH)%2 != 0

		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			maskX := (x - bounds.Min.X) % maskW
			if offset {
				maskX = (maskX + maskW/2) % maskW
			}

			mi := mask.PixOffset(mb.Min.X+maskX, mb.Min.Y+maskY)
			mr := float64(mask.Pix[mi+0])
			mg := float64(mask.Pix[mi+1])
			mbv := float64(mask.Pix[mi+2])
			if t.Invert {
				mr = 255 - mr
				mg = 255 - mg
				mbv = 255 - mbv
			}

			si := src.PixOffset(x, y)
			ir := float64(src.Pix[si+0])
			ig := float64(src.Pix[si+1])
			ib := float64(src.Pix[si+2])
			alpha := src.Pix[si+3]

			di := dst.PixOffset(x, y)
			if t.Monochrome {
				v := brightness(mr, mg, mbv)
				iv := brightness(ir, ig, ib)
				// The mask image is used as a threshold map.
				a := uint8(255 * (1 - smoothStep(iv-s, iv+s, v)))
				dst.Pix[di+0] = a
				dst.Pix[di+1] = a
				dst.Pix[di+2] = a
			} else {
				dst.Pix[di+0] = uint8(255 * (1 - smoothStep(ir-s, ir+s, mr)))
				dst.Pix[di+1] = uint8(255 * (1 - smoothStep(ig-s, ig+s, mg)))
				dst.Pix[di+2] = uint8(255 * (1 - smoothStep(ib-s, ib+s, mbv)))
			}
			dst.Pix[di+3] = alpha
		}
	}

	return dst, nil
}

// Clone implements filterchain.Transform. The mask image is shared between
// clones: transforms treat it as read-only input data.
func (t *Halftone) Clone() filterchain.Transform {
	out := &Halftone{}
	_ = copier.Copy(out, t)
	return out
}

// brightness returns the brightness of an RGB triplet as the channel mean.
func brightness(r, g, b float64) float64 {
	return (r + g + b) / 3
}

// smoothStep is the Hermite interpolation of x between edges a and b:
// 0 below a, 1 above b, smooth in between.
func smoothStep(a, b, x float64) float64 {
	if x <= a {
		return 0
	}
	if x >= b {
		return 1
	}
	x = (x - a) / (b - a)
	return x * x * (3 - 2*x)
}
