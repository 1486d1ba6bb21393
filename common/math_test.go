package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func mulVec4(m []float32, v [4]float32) [4]float32 {
	var out [4]float32
	for row := 0; row < 4; row++ {
		out[row] = m[0*4+row]*v[0] + m[1*4+row]*v[1] + m[2*4+row]*v[2] + m[3*4+row]*v[3]
	}
	return out
}

func TestIdentity(t *testing.T) {
	m := make([]float32, 16)
	for i := range m {
		m[i] = float32(i)
	}
	Identity(m)

	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			expected := float32(0)
			if col == row {
				expected = 1
			}
			assert.Equal(t, expected, m[col*4+row])
		}
	}
}

func TestMul4IdentityIsNeutral(t *testing.T) {
	id := make([]float32, 16)
	Identity(id)

	m := []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}
	out := make([]float32, 16)

	Mul4(out, id, m)
	assert.Equal(t, m, out)

	Mul4(out, m, id)
	assert.Equal(t, m, out)
}

func TestMul4AliasedOutput(t *testing.T) {
	a := make([]float32, 16)
	BuildModelMatrix(a, 1, 2, 3, 0.5, 0.25, 0.75, 1, 1, 1)
	b := make([]float32, 16)
	BuildModelMatrix(b, -4, 0, 2, 0, 1.2, 0, 2, 2, 2)

	expected := make([]float32, 16)
	Mul4(expected, a, b)

	// Writing the result over one of the inputs must be safe.
	aliased := make([]float32, 16)
	copy(aliased, a)
	Mul4(aliased, aliased, b)
	assert.Equal(t, expected, aliased)
}

func TestInvert4RoundTrip(t *testing.T) {
	m := make([]float32, 16)
	BuildModelMatrix(m, 5, -3, 2, 0.4, 1.1, -0.6, 1.5, 2.0, 0.5)

	inv := make([]float32, 16)
	ok := Invert4(inv, m)
	assert.True(t, ok)

	product := make([]float32, 16)
	Mul4(product, m, inv)

	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			expected := float32(0)
			if col == row {
				expected = 1
			}
			assert.InDelta(t, expected, product[col*4+row], 1e-4)
		}
	}
}

func TestInvert4Singular(t *testing.T) {
	m := make([]float32, 16) // all zeros, determinant 0
	out := make([]float32, 16)
	out[3] = 42

	ok := Invert4(out, m)
	assert.False(t, ok)
	assert.Equal(t, float32(42), out[3], "output must stay untouched on failure")
}

func TestLookAtTransformsEyeToOrigin(t *testing.T) {
	view := make([]float32, 16)
	LookAt(view, 3, 4, 5, 0, 0, 0, 0, 1, 0)

	out := mulVec4(view, [4]float32{3, 4, 5, 1})
	assert.InDelta(t, 0, out[0], 1e-5)
	assert.InDelta(t, 0, out[1], 1e-5)
	assert.InDelta(t, 0, out[2], 1e-5)
	assert.InDelta(t, 1, out[3], 1e-5)
}

func TestLookAtTargetOnNegativeZ(t *testing.T) {
	view := make([]float32, 16)
	LookAt(view, 0, 0, 10, 0, 0, 0, 0, 1, 0)

	// The look target sits in front of the camera, which is -Z in view space.
	out := mulVec4(view, [4]float32{0, 0, 0, 1})
	assert.InDelta(t, 0, out[0], 1e-5)
	assert.InDelta(t, 0, out[1], 1e-5)
	assert.InDelta(t, -10, out[2], 1e-5)
}

func TestPerspectiveDepthRange(t *testing.T) {
	proj := make([]float32, 16)
	Perspective(proj, 1.0, 16.0/9.0, 0.1, 100.0)

	// A point on the near plane maps to clip depth 0 after the w divide.
	near := mulVec4(proj, [4]float32{0, 0, -0.1, 1})
	assert.InDelta(t, 0, near[2]/near[3], 1e-5)

	// A point on the far plane maps to clip depth 1.
	far := mulVec4(proj, [4]float32{0, 0, -100.0, 1})
	assert.InDelta(t, 1, far[2]/far[3], 1e-4)
}

func TestPerspectiveReverseDepthRange(t *testing.T) {
	proj := make([]float32, 16)
	PerspectiveReverse(proj, 1.0, 16.0/9.0, 0.1, 100.0)

	// Reversed depth: the near plane maps to clip depth 1.
	near := mulVec4(proj, [4]float32{0, 0, -0.1, 1})
	assert.InDelta(t, 1, near[2]/near[3], 1e-5)

	// The far plane maps to clip depth 0.
	far := mulVec4(proj, [4]float32{0, 0, -100.0, 1})
	assert.InDelta(t, 0, far[2]/far[3], 1e-4)

	// The x and y terms match the standard projection.
	standard := make([]float32, 16)
	Perspective(standard, 1.0, 16.0/9.0, 0.1, 100.0)
	assert.Equal(t, standard[0], proj[0])
	assert.Equal(t, standard[5], proj[5])
}

func TestOrthoDepthRange(t *testing.T) {
	proj := make([]float32, 16)
	Ortho(proj, -10, 10, -10, 10, 1, 50)

	near := mulVec4(proj, [4]float32{0, 0, -1, 1})
	assert.InDelta(t, 0, near[2], 1e-5)

	far := mulVec4(proj, [4]float32{0, 0, -50, 1})
	assert.InDelta(t, 1, far[2], 1e-5)

	corner := mulVec4(proj, [4]float32{10, 10, -1, 1})
	assert.InDelta(t, 1, corner[0], 1e-5)
	assert.InDelta(t, 1, corner[1], 1e-5)
}

func TestBuildModelMatrixTranslationOnly(t *testing.T) {
	m := make([]float32, 16)
	BuildModelMatrix(m, 7, 8, 9, 0, 0, 0, 1, 1, 1)

	out := mulVec4(m, [4]float32{0, 0, 0, 1})
	assert.Equal(t, [4]float32{7, 8, 9, 1}, out)
}

func TestScreenSizeHalf(t *testing.T) {
	assert.Equal(t, ScreenSize{Width: 960, Height: 540}, ScreenSize{Width: 1920, Height: 1080}.Half())
	assert.Equal(t, ScreenSize{Width: 1, Height: 1}, ScreenSize{Width: 1, Height: 1}.Half())
	assert.Equal(t, ScreenSize{Width: 3, Height: 2}, ScreenSize{Width: 5, Height: 3}.Half())
}

func TestSliceToBytesLength(t *testing.T) {
	data := []float32{1, 2, 3}
	raw := SliceToBytes(data)
	assert.Len(t, raw, 12)

	var empty []uint32
	assert.Nil(t, SliceToBytes(empty))
}
