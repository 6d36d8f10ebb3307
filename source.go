package filterchain

import "image"

// ImageSource is the capability to produce the current image for a stage.
// It is implemented by the chain's root source (the flattened content below
// the chain) and by [Stage] itself, so every stage can ask "what is upstream
// of me" without knowing concrete types.
//
// The returned image may be a shared cache value: callers must treat it as
// read-only and copy before mutating.
type ImageSource interface {
	Image() (*image.RGBA, error)
}

// StaticSource is a root ImageSource backed by a fixed raster. It is the
// simplest root for a chain: the flattened output of whatever sits below.
type StaticSource struct {
	img *image.RGBA
}

// NewStaticSource creates a root source around img.
func NewStaticSource(img *image.RGBA) *StaticSource {
	return &StaticSource{img: img}
}

// Image returns the source raster. The same shared value is returned on
// every call; consumers must not mutate it.
func (s *StaticSource) Image() (*image.RGBA, error) {
	return s.img, nil
}

// Set replaces the source raster. The owner must invalidate the chain
// afterwards (see [Chain.RootChanged]); Set itself only swaps the image.
func (s *StaticSource) Set(img *image.RGBA) {
	s.img = img
}

// SourceFunc adapts a function to the ImageSource interface.
type SourceFunc func() (*image.RGBA, error)

// Image invokes the wrapped function.
func (f SourceFunc) Image() (*image.RGBA, error) { return f() }
