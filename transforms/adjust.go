package transforms

import (
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/jinzhu/copier"

	"github.com/gopix/filterchain"
)

// Brighten shifts image brightness.
type Brighten struct {
	// Change is the brightness delta in [-1, 1]; 0 is a no-op.
	Change float64
}

// NewBrighten creates a brightness adjustment transform.
func NewBrighten(change float64) *Brighten {
	return &Brighten{Change: change}
}

// Name implements filterchain.Transform.
func (t *Brighten) Name() string { return "Brightness" }

// Params implements filterchain.Transform.
func (t *Brighten) Params() filterchain.Params {
	return filterchain.Params{"change": t.Change}
}

// Apply implements filterchain.Transform.
func (t *Brighten) Apply(src *image.RGBA) (*image.RGBA, error) {
	if t.Change == 0 {
		return src, nil
	}
	return adjust.Brightness(src, t.Change), nil
}

// Clone implements filterchain.Transform.
func (t *Brighten) Clone() filterchain.Transform {
	out := &Brighten{}
	_ = copier.Copy(out, t)
	return out
}

// Contrast adjusts image contrast.
type Contrast struct {
	// Change is the contrast delta in [-1, 1]; 0 is a no-op.
	Change float64
}

// NewContrast creates a contrast adjustment transform.
func NewContrast(change float64) *Contrast {
	return &Contrast{Change: change}
}

// Name implements filterchain.Transform.
func (t *Contrast) Name() string { return "Contrast" }

// Params implements filterchain.Transform.
func (t *Contrast) Params() filterchain.Params {
	return filterchain.Params{"change": t.Change}
}

// Apply implements filterchain.Transform.
func (t *Contrast) Apply(src *image.RGBA) (*image.RGBA, error) {
	if t.Change == 0 {
		return src, nil
	}
	return adjust.Contrast(src, t.Change), nil
}

// Clone implements filterchain.Transform.
func (t *Contrast) Clone() filterchain.Transform {
	out := &Contrast{}
	_ = copier.Copy(out, t)
	return out
}

// Gamma applies gamma correction.
type Gamma struct {
	// Value is the gamma exponent; 1 is a no-op.
	Value float64
}

// NewGamma creates a gamma correction transform.
func NewGamma(value float64) *Gamma {
	return &Gamma{Value: value}
}

// Name implements filterchain.Transform.
func (t *Gamma) Name() string { return "Gamma" }

// Params implements filterchain.Transform.
func (t *Gamma) Params() filterchain.Params {
	return filterchain.Params{"value": t.Value}
}

// Apply implements filterchain.Transform.
func (t *Gamma) Apply(src *image.RGBA) (*image.RGBA, error) {
	if t.Value == 1 {
		return src, nil
	}
	return adjust.Gamma(src, t.Value), nil
}

// Clone implements filterchain.Transform.
func (t *Gamma) Clone() filterchain.Transform {
	out := &Gamma{}
	_ = copier.Copy(out, t)
	return out
}
