// Package transforms provides stock implementations of the
// [filterchain.Transform] interface: blur, tonal adjustments, stylize
// effects, and a classic threshold-mask halftone.
//
// The filterchain core never depends on this package; it consumes
// transforms through the interface alone. Hosts are free to mix these with
// their own implementations.
package transforms
