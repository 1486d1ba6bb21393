package game_object

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGameObjectDefaults(t *testing.T) {
	obj := NewGameObject()

	assert.True(t, obj.Enabled())
	assert.False(t, obj.Ephemeral())
	assert.Nil(t, obj.Model())
	assert.Nil(t, obj.Light())

	sx, sy, sz := obj.Scale()
	assert.Equal(t, float32(1), sx)
	assert.Equal(t, float32(1), sy)
	assert.Equal(t, float32(1), sz)
}

func TestBuilderOptionsApply(t *testing.T) {
	obj := NewGameObject(
		WithID(42),
		WithEnabled(false),
		WithEphemeral(true),
		WithPosition(1, 2, 3),
		WithScale(2, 2, 2),
		WithRotation(0.1, 0.2, 0.3),
		WithRotationSpeed(0, 1, 0),
	)

	assert.Equal(t, uint64(42), obj.ID())
	assert.False(t, obj.Enabled())
	assert.True(t, obj.Ephemeral())

	pos, scale, rot, rotSpeed := obj.TransformData()
	assert.Equal(t, [3]float32{1, 2, 3}, pos)
	assert.Equal(t, [3]float32{2, 2, 2}, scale)
	assert.Equal(t, [3]float32{0.1, 0.2, 0.3}, rot)
	assert.Equal(t, [3]float32{0, 1, 0}, rotSpeed)
}

func TestUpdateAdvancesRotationBySpeed(t *testing.T) {
	obj := NewGameObject(WithRotationSpeed(0.5, 1.0, -2.0))

	obj.Update(0.5)

	rx, ry, rz := obj.Rotation()
	assert.InDelta(t, 0.25, rx, 1e-6)
	assert.InDelta(t, 0.5, ry, 1e-6)
	assert.InDelta(t, -1.0, rz, 1e-6)

	obj.Update(0.5)
	rx, ry, rz = obj.Rotation()
	assert.InDelta(t, 0.5, rx, 1e-6)
	assert.InDelta(t, 1.0, ry, 1e-6)
	assert.InDelta(t, -2.0, rz, 1e-6)
}

func TestWorldMatrixAppliesTranslation(t *testing.T) {
	obj := NewGameObject(WithPosition(10, -4, 7))

	matrix := obj.WorldMatrix()

	// Column-major: translation lands in elements 12..14.
	assert.Equal(t, float32(10), matrix[12])
	assert.Equal(t, float32(-4), matrix[13])
	assert.Equal(t, float32(7), matrix[14])
	assert.Equal(t, float32(1), matrix[15])

	// Identity rotation and unit scale leave the basis untouched.
	assert.Equal(t, float32(1), matrix[0])
	assert.Equal(t, float32(1), matrix[5])
	assert.Equal(t, float32(1), matrix[10])
}

func TestWorldMatrixAppliesRotationAndScale(t *testing.T) {
	obj := NewGameObject(
		WithRotation(0, math32.Pi/2, 0),
		WithScale(3, 3, 3),
	)

	matrix := obj.WorldMatrix()

	// A quarter turn around Y maps +X onto -Z, scaled by 3.
	require.InDelta(t, 0.0, matrix[0], 1e-5)
	require.InDelta(t, -3.0, matrix[2], 1e-5)
	require.InDelta(t, 3.0, matrix[8], 1e-5)
	require.InDelta(t, 0.0, matrix[10], 1e-5)
}

func TestSettersReplaceTransform(t *testing.T) {
	obj := NewGameObject()

	obj.SetPosition(5, 6, 7)
	obj.SetRotation(1, 0, 0)
	obj.SetRotationSpeed(0, 0, 2)
	obj.SetScale(0.5, 0.5, 0.5)
	obj.SetEnabled(false)
	obj.SetID(9)

	x, y, z := obj.Position()
	assert.Equal(t, [3]float32{5, 6, 7}, [3]float32{x, y, z})
	rx, _, _ := obj.Rotation()
	assert.Equal(t, float32(1), rx)
	_, _, rsz := obj.RotationSpeed()
	assert.Equal(t, float32(2), rsz)
	sx, _, _ := obj.Scale()
	assert.Equal(t, float32(0.5), sx)
	assert.False(t, obj.Enabled())
	assert.Equal(t, uint64(9), obj.ID())
}
