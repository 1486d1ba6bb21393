// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// ScreenSize holds pixel dimensions of a render target or window surface.
type ScreenSize struct {
	// Width is the horizontal size in pixels.
	Width uint32
	// Height is the vertical size in pixels.
	Height uint32
}

// Uniform reports whether both dimensions are non-zero.
//
// Returns:
//   - bool: true if the size describes a drawable area
func (s ScreenSize) Uniform() bool {
	return s.Width > 0 && s.Height > 0
}

// Half returns the size with both dimensions halved, rounding up and
// clamping to a minimum of 1 pixel per axis.
//
// Returns:
//   - ScreenSize: the halved size
func (s ScreenSize) Half() ScreenSize {
	return ScreenSize{
		Width:  max((s.Width+1)/2, 1),
		Height: max((s.Height+1)/2, 1),
	}
}

// Color is an RGBA color with float32 components in the [0, 1] range.
type Color struct {
	R, G, B, A float32
}

// ColorWhite is fully opaque white.
var ColorWhite = Color{R: 1, G: 1, B: 1, A: 1}

// ColorBlack is fully opaque black.
var ColorBlack = Color{R: 0, G: 0, B: 0, A: 1}

// Components returns the color as a 4-element array in RGBA order, the
// layout GPU uniform structs expect.
//
// Returns:
//   - [4]float32: the RGBA components
func (c Color) Components() [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}
