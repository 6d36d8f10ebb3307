package filterchain

import (
	"image"

	"github.com/jinzhu/copier"
)

// Transform is one opaque image transformation in a chain.
// Implementations must be deterministic: the same input pixels and the same
// parameter values always produce the same output. The chain relies on this
// to keep cached stage outputs valid until a parameter actually changes.
//
// Apply must not retain or mutate src after returning. Returning src itself
// (or an image aliasing its buffer) is allowed for no-op transforms; the
// stage detects the alias and caches a private copy instead.
type Transform interface {
	// Name identifies the transform kind (for debugging and stage names).
	Name() string

	// Params returns the transform's current parameter bag.
	// The returned bag is live: mutate it through SetParams-style methods
	// on the concrete type, never behind the owning stage's back.
	Params() Params

	// Apply runs the transformation. It must not write to src.
	Apply(src *image.RGBA) (*image.RGBA, error)

	// Clone returns an independent deep copy of the transform, including
	// its parameters. Used by the clipboard and by stage duplication.
	Clone() Transform
}

// Params is a transform's parameter bag. Keys are parameter names, values
// are plain data (numbers, bools, strings, small slices).
type Params map[string]any

// Clone returns an independent deep copy of the parameter bag.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	// DeepCopy so slice- and map-valued parameters don't share backing data.
	if err := copier.CopyWithOption(&out, &p, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on invalid (non-addressable) arguments, which
		// cannot happen here; fall back to a shallow copy.
		for k, v := range p {
			out[k] = v
		}
	}
	return out
}

// TransformFunc adapts a plain function to the Transform interface.
// It carries no parameters; Clone returns the receiver since the function
// and name are immutable.
type TransformFunc struct {
	name string
	fn   func(src *image.RGBA) (*image.RGBA, error)
}

// NewTransformFunc wraps fn as a parameterless Transform.
func NewTransformFunc(name string, fn func(src *image.RGBA) (*image.RGBA, error)) *TransformFunc {
	return &TransformFunc{name: name, fn: fn}
}

// Name returns the transform name.
func (t *TransformFunc) Name() string { return t.name }

// Params returns nil: a TransformFunc has no parameters.
func (t *TransformFunc) Params() Params { return nil }

// Apply invokes the wrapped function.
func (t *TransformFunc) Apply(src *image.RGBA) (*image.RGBA, error) { return t.fn(src) }

// Clone returns the receiver (immutable transform).
func (t *TransformFunc) Clone() Transform { return t }
