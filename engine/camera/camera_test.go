package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdesatrigraha/korangar/engine/light"
)

func mulVec4(m [16]float32, v [4]float32) [4]float32 {
	var out [4]float32
	for row := 0; row < 4; row++ {
		out[row] = m[0*4+row]*v[0] + m[1*4+row]*v[1] + m[2*4+row]*v[2] + m[3*4+row]*v[3]
	}
	return out
}

func TestCameraLooksAtControllerTarget(t *testing.T) {
	controller := NewCameraController(
		WithTarget(10, 0, -5),
		WithRadius(50),
	)
	cam := NewCamera(WithController(controller), WithAspect(16.0/9.0))

	// The target projects to the center of the screen.
	clip := mulVec4(cam.ViewProjectionMatrix(), [4]float32{10, 0, -5, 1})
	require.Greater(t, clip[3], float32(0))
	assert.InDelta(t, 0, clip[0]/clip[3], 1e-4)
	assert.InDelta(t, 0, clip[1]/clip[3], 1e-4)
}

func TestCameraProjectionUsesReversedDepth(t *testing.T) {
	controller := NewCameraController(WithTarget(0, 0, 0), WithRadius(50))
	cam := NewCamera(
		WithController(controller),
		WithNear(1),
		WithFar(100),
	)

	px, py, pz := controller.Position()
	tx, ty, tz := controller.Target()
	length := math32.Sqrt((tx-px)*(tx-px) + (ty-py)*(ty-py) + (tz-pz)*(tz-pz))
	fx := (tx - px) / length
	fy := (ty - py) / length
	fz := (tz - pz) / length

	// A point on the near plane maps to depth 1, one on the far plane to 0.
	near := mulVec4(cam.ViewProjectionMatrix(), [4]float32{px + fx, py + fy, pz + fz, 1})
	assert.InDelta(t, 1, near[2]/near[3], 1e-3)

	far := mulVec4(cam.ViewProjectionMatrix(), [4]float32{px + fx*100, py + fy*100, pz + fz*100, 1})
	assert.InDelta(t, 0, far[2]/far[3], 1e-3)
}

func TestCameraUpdateTracksControllerMovement(t *testing.T) {
	controller := NewCameraController(WithTarget(0, 0, 0), WithRadius(30))
	cam := NewCamera(WithController(controller))
	before := cam.ViewMatrix()

	controller.SetTarget(100, 0, 0)
	cam.Update()

	assert.NotEqual(t, before, cam.ViewMatrix())
}

func TestOrbitElevationStaysWithinBounds(t *testing.T) {
	controller := NewCameraController(WithElevationBounds(0.2, 1.0))

	for i := 0; i < 200; i++ {
		controller.OrbitUp()
	}
	assert.InDelta(t, 1.0, controller.Elevation(), 1e-6)

	for i := 0; i < 200; i++ {
		controller.OrbitDown()
	}
	assert.InDelta(t, 0.2, controller.Elevation(), 1e-6)
}

func TestZoomClampsRadius(t *testing.T) {
	controller := NewCameraController(WithRadius(50), WithRadiusBounds(10, 100))

	controller.Zoom(1000)
	assert.Equal(t, float32(10), controller.Radius())

	controller.Zoom(-1000)
	assert.Equal(t, float32(100), controller.Radius())
}

func TestPanPreservesOrbitRelationship(t *testing.T) {
	controller := NewCameraController(WithTarget(5, 1, 5), WithRadius(40))
	radius := controller.Radius()
	azimuth := controller.Azimuth()
	elevation := controller.Elevation()

	px, py, pz := controller.Position()
	tx, ty, tz := controller.Target()

	controller.PanRight(3)

	npx, npy, npz := controller.Position()
	ntx, nty, ntz := controller.Target()

	// Position and target move by the same offset.
	assert.InDelta(t, npx-px, ntx-tx, 1e-5)
	assert.InDelta(t, npy-py, nty-ty, 1e-5)
	assert.InDelta(t, npz-pz, ntz-tz, 1e-5)

	assert.Equal(t, radius, controller.Radius())
	assert.Equal(t, azimuth, controller.Azimuth())
	assert.Equal(t, elevation, controller.Elevation())
}

func TestDirectionalShadowViewProjectionSpansVolume(t *testing.T) {
	direction := [3]float32{0, -1, 0.5}
	focus := [3]float32{20, 0, -10}
	matrix := DirectionalShadowViewProjection(direction, focus, 100)

	// The focus point sits at the center of the depth range.
	clip := mulVec4(matrix, [4]float32{focus[0], focus[1], focus[2], 1})
	assert.InDelta(t, 0, clip[0], 1e-3)
	assert.InDelta(t, 0, clip[1], 1e-3)
	assert.InDelta(t, 0.5, clip[2], 1e-3)
	assert.InDelta(t, 1, clip[3], 1e-5)
}

func TestDirectionalShadowViewProjectionHandlesVerticalLight(t *testing.T) {
	matrix := DirectionalShadowViewProjection([3]float32{0, -1, 0}, [3]float32{0, 0, 0}, 50)

	clip := mulVec4(matrix, [4]float32{0, 0, 0, 1})
	assert.InDelta(t, 0.5, clip[2], 1e-3)

	// A point off to the side still lands inside the volume.
	side := mulVec4(matrix, [4]float32{25, 0, 25, 1})
	assert.Less(t, math32.Abs(side[0]), float32(1))
	assert.Less(t, math32.Abs(side[1]), float32(1))
}

func TestPointShadowViewProjectionsMatchFaceOrder(t *testing.T) {
	position := [3]float32{10, 5, -3}
	matrices := PointShadowViewProjections(position)

	probes := [light.ShadowFaceCount][3]float32{
		{1, 0, 0},
		{-1, 0, 0},
		{0, 1, 0},
		{0, -1, 0},
		{0, 0, 1},
		{0, 0, -1},
	}

	for face, probe := range probes {
		world := [4]float32{
			position[0] + probe[0]*10,
			position[1] + probe[1]*10,
			position[2] + probe[2]*10,
			1,
		}

		// Each probe point projects to the center of its own face.
		clip := mulVec4(matrices[face], world)
		require.Greater(t, clip[3], float32(0), "face %d must see its probe", face)
		assert.InDelta(t, 0, clip[0]/clip[3], 1e-4, "face %d", face)
		assert.InDelta(t, 0, clip[1]/clip[3], 1e-4, "face %d", face)

		// The opposite face looks away from it.
		opposite := face ^ 1
		behind := mulVec4(matrices[opposite], world)
		assert.Less(t, behind[3], float32(0), "face %d must not see face %d's probe", opposite, face)
	}
}

func TestPointShadowDepthNormalization(t *testing.T) {
	matrices := PointShadowViewProjections([3]float32{0, 0, 0})

	// A point at the far plane distance maps to depth 1 on its face.
	clip := mulVec4(matrices[0], [4]float32{light.ShadowFarPlane, 0, 0, 1})
	assert.InDelta(t, 1, clip[2]/clip[3], 1e-3)
}
