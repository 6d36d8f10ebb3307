package filterchain

import "github.com/gopix/filterchain/internal/blend"

// BlendMode specifies how a stage's transformed output composites onto the
// image coming from its source.
type BlendMode uint8

// Blend mode constants. BlendNormal with full opacity and no mask is the
// fast path: the stage returns its transform cache directly.
const (
	// BlendNormal is standard source-over alpha compositing.
	BlendNormal BlendMode = iota

	// BlendMultiply multiplies source and backdrop channels.
	BlendMultiply

	// BlendScreen is the inverse of multiply (always lightens).
	BlendScreen

	// BlendOverlay multiplies or screens depending on the backdrop.
	BlendOverlay

	// BlendDarken keeps the darker of source and backdrop.
	BlendDarken

	// BlendLighten keeps the lighter of source and backdrop.
	BlendLighten

	// BlendDifference takes the absolute channel difference.
	BlendDifference

	// BlendExclusion is a lower-contrast difference.
	BlendExclusion
)

// String returns a human-readable name for the blend mode.
func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "Normal"
	case BlendMultiply:
		return "Multiply"
	case BlendScreen:
		return "Screen"
	case BlendOverlay:
		return "Overlay"
	case BlendDarken:
		return "Darken"
	case BlendLighten:
		return "Lighten"
	case BlendDifference:
		return "Difference"
	case BlendExclusion:
		return "Exclusion"
	default:
		return "Unknown"
	}
}

// mode maps the public enum to the internal compositor's mode.
func (m BlendMode) mode() blend.Mode {
	switch m {
	case BlendMultiply:
		return blend.Multiply
	case BlendScreen:
		return blend.Screen
	case BlendOverlay:
		return blend.Overlay
	case BlendDarken:
		return blend.Darken
	case BlendLighten:
		return blend.Lighten
	case BlendDifference:
		return blend.Difference
	case BlendExclusion:
		return blend.Exclusion
	default:
		return blend.Normal
	}
}
