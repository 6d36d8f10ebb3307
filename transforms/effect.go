package transforms

import (
	"image"

	"github.com/anthonynsimon/bild/effect"

	"github.com/gopix/filterchain"
)

// Grayscale converts the image to grayscale.
type Grayscale struct{}

// NewGrayscale creates a grayscale transform.
func NewGrayscale() *Grayscale { return &Grayscale{} }

// Name implements filterchain.Transform.
func (t *Grayscale) Name() string { return "Grayscale" }

// Params implements filterchain.Transform.
func (t *Grayscale) Params() filterchain.Params { return nil }

// Apply implements filterchain.Transform.
func (t *Grayscale) Apply(src *image.RGBA) (*image.RGBA, error) {
	return effect.Grayscale(src), nil
}

// Clone implements filterchain.Transform.
func (t *Grayscale) Clone() filterchain.Transform { return &Grayscale{} }

// Invert inverts the image colors.
type Invert struct{}

// NewInvert creates a color inversion transform.
func NewInvert() *Invert { return &Invert{} }

// Name implements filterchain.Transform.
func (t *Invert) Name() string { return "Invert" }

// Params implements filterchain.Transform.
func (t *Invert) Params() filterchain.Params { return nil }

// Apply implements filterchain.Transform.
func (t *Invert) Apply(src *image.RGBA) (*image.RGBA, error) {
	return effect.Invert(src), nil
}

// Clone implements filterchain.Transform.
func (t *Invert) Clone() filterchain.Transform { return &Invert{} }

// Sharpen applies a sharpening convolution.
type Sharpen struct{}

// NewSharpen creates a sharpen transform.
func NewSharpen() *Sharpen { return &Sharpen{} }

// Name implements filterchain.Transform.
func (t *Sharpen) Name() string { return "Sharpen" }

// Params implements filterchain.Transform.
func (t *Sharpen) Params() filterchain.Params { return nil }

// Apply implements filterchain.Transform.
func (t *Sharpen) Apply(src *image.RGBA) (*image.RGBA, error) {
	return effect.Sharpen(src), nil
}

// Clone implements filterchain.Transform.
func (t *Sharpen) Clone() filterchain.Transform { return &Sharpen{} }
