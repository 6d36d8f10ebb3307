package transforms

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/jinzhu/copier"

	"github.com/gopix/filterchain"
)

// Blur applies a Gaussian blur.
type Blur struct {
	// Radius is the blur radius in pixels. A radius <= 0 is a no-op.
	Radius float64
}

// NewBlur creates a Gaussian blur transform.
func NewBlur(radius float64) *Blur {
	return &Blur{Radius: radius}
}

// Name implements filterchain.Transform.
func (t *Blur) Name() string { return "Gaussian Blur" }

// Params implements filterchain.Transform.
func (t *Blur) Params() filterchain.Params {
	return filterchain.Params{"radius": t.Radius}
}

// Apply implements filterchain.Transform. A non-positive radius returns
// the input unchanged; the stage caches a private copy in that case.
func (t *Blur) Apply(src *image.RGBA) (*image.RGBA, error) {
	if t.Radius <= 0 {
		return src, nil
	}
	return blur.Gaussian(src, t.Radius), nil
}

// Clone implements filterchain.Transform.
func (t *Blur) Clone() filterchain.Transform {
	out := &Blur{}
	_ = copier.Copy(out, t)
	return out
}

// BoxBlur applies a box blur (faster, lower quality than Gaussian).
type BoxBlur struct {
	// Radius is the blur radius in pixels. A radius <= 0 is a no-op.
	Radius float64
}

// NewBoxBlur creates a box blur transform.
func NewBoxBlur(radius float64) *BoxBlur {
	return &BoxBlur{Radius: radius}
}

// Name implements filterchain.Transform.
func (t *BoxBlur) Name() string { return "Box Blur" }

// Params implements filterchain.Transform.
func (t *BoxBlur) Params() filterchain.Params {
	return filterchain.Params{"radius": t.Radius}
}

// Apply implements filterchain.Transform.
func (t *BoxBlur) Apply(src *image.RGBA) (*image.RGBA, error) {
	if t.Radius <= 0 {
		return src, nil
	}
	return blur.Box(src, t.Radius), nil
}

// Clone implements filterchain.Transform.
func (t *BoxBlur) Clone() filterchain.Transform {
	out := &BoxBlur{}
	_ = copier.Copy(out, t)
	return out
}
