package camera

import (
	"github.com/chewxy/math32"

	"github.com/gdesatrigraha/korangar/common"
	"github.com/gdesatrigraha/korangar/engine/light"
)

// pointShadowFaces lists the look direction and up vector of each cube map
// face in the layer order +X, -X, +Y, -Y, +Z, -Z required by hardware cube
// sampling.
var pointShadowFaces = [light.ShadowFaceCount]struct {
	forward [3]float32
	up      [3]float32
}{
	{forward: [3]float32{1, 0, 0}, up: [3]float32{0, -1, 0}},
	{forward: [3]float32{-1, 0, 0}, up: [3]float32{0, -1, 0}},
	{forward: [3]float32{0, 1, 0}, up: [3]float32{0, 0, 1}},
	{forward: [3]float32{0, -1, 0}, up: [3]float32{0, 0, -1}},
	{forward: [3]float32{0, 0, 1}, up: [3]float32{0, -1, 0}},
	{forward: [3]float32{0, 0, -1}, up: [3]float32{0, -1, 0}},
}

// pointShadowNearPlane is the near plane of each cube face projection. Far is
// light.ShadowFarPlane, matching the radial distance normalization in the
// shadow shaders.
const pointShadowNearPlane float32 = 0.1

// DirectionalShadowViewProjection builds the orthographic view-projection of
// a directional light for shadow map rendering. The shadow volume is a cube
// of the given half-extent centered on the focus point, with the light placed
// one extent away against its direction. The matrix targets standard depth;
// the shadow pass clears to 1 and compares with Less.
//
// Parameters:
//   - direction: the light direction, normalized internally
//   - focus: the world-space point the shadow volume is centered on
//   - extent: half the side length of the shadow volume
//
// Returns:
//   - [16]float32: the column-major view-projection matrix
func DirectionalShadowViewProjection(direction, focus [3]float32, extent float32) [16]float32 {
	length := math32.Sqrt(direction[0]*direction[0] + direction[1]*direction[1] + direction[2]*direction[2])
	if length < 1e-8 {
		direction = [3]float32{0, -1, 0}
		length = 1
	}
	dx := direction[0] / length
	dy := direction[1] / length
	dz := direction[2] / length

	// A vertical light would be colinear with the default up vector.
	up := [3]float32{0, 1, 0}
	if math32.Abs(dy) > 0.99 {
		up = [3]float32{0, 0, 1}
	}

	var view, projection, viewProjection [16]float32
	common.LookAt(view[:],
		focus[0]-dx*extent, focus[1]-dy*extent, focus[2]-dz*extent,
		focus[0], focus[1], focus[2],
		up[0], up[1], up[2],
	)
	common.Ortho(projection[:], -extent, extent, -extent, extent, 0, 2*extent)
	common.Mul4(viewProjection[:], projection[:], view[:])
	return viewProjection
}

// PointShadowViewProjections builds the six per-face view-projection matrices
// of one point light's cube shadow map, in the face order the cube array
// texture expects. Each face uses a 90 degree square frustum from the light's
// position out to light.ShadowFarPlane.
//
// Parameters:
//   - position: the light's world-space position
//
// Returns:
//   - [6][16]float32: one column-major matrix per cube face
func PointShadowViewProjections(position [3]float32) [light.ShadowFaceCount][16]float32 {
	var projection [16]float32
	common.Perspective(projection[:], math32.Pi/2, 1.0, pointShadowNearPlane, light.ShadowFarPlane)

	var matrices [light.ShadowFaceCount][16]float32
	for face := 0; face < light.ShadowFaceCount; face++ {
		forward := pointShadowFaces[face].forward
		up := pointShadowFaces[face].up

		var view [16]float32
		common.LookAt(view[:],
			position[0], position[1], position[2],
			position[0]+forward[0], position[1]+forward[1], position[2]+forward[2],
			up[0], up[1], up[2],
		)
		common.Mul4(matrices[face][:], projection[:], view[:])
	}
	return matrices
}
