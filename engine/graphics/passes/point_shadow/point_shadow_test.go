package point_shadow

import (
	"encoding/binary"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdesatrigraha/korangar/engine/graphics"
	"github.com/gdesatrigraha/korangar/engine/light"
)

func TestPassUniformsMarshal(t *testing.T) {
	uniforms := &PassUniforms{
		LightPosition:  [4]float32{10, 20, 30, 1},
		AnimationTimer: 1.5,
	}
	for i := range uniforms.ViewProjection {
		uniforms.ViewProjection[i] = float32(i + 1)
	}

	data := uniforms.Marshal()
	require.Len(t, data, uniforms.Size())
	require.Len(t, data, 96)

	for i := range uniforms.ViewProjection {
		value := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		assert.Equal(t, float32(i+1), value)
	}
	assert.Equal(t, float32(10), math.Float32frombits(binary.LittleEndian.Uint32(data[64:])))
	assert.Equal(t, float32(20), math.Float32frombits(binary.LittleEndian.Uint32(data[68:])))
	assert.Equal(t, float32(30), math.Float32frombits(binary.LittleEndian.Uint32(data[72:])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(data[76:])))
	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(data[80:])))
	for offset := 84; offset < 96; offset++ {
		assert.Zero(t, data[offset])
	}
}

func TestFaceOffsetsDoNotAlias(t *testing.T) {
	for _, alignedSize := range []uint64{96, 128, 256} {
		pass := &passImpl{mu: &sync.Mutex{}, alignedSize: alignedSize}

		seen := make(map[uint32]struct{})
		previous := int64(-1)
		for caster := 0; caster < light.MaxShadowCasters; caster++ {
			for face := 0; face < light.ShadowFaceCount; face++ {
				offset := pass.faceOffset(caster, face)

				expected := uint32(caster*light.ShadowFaceCount+face) * uint32(alignedSize)
				assert.Equal(t, expected, offset)

				_, duplicate := seen[offset]
				assert.False(t, duplicate, "offset %d appears twice", offset)
				seen[offset] = struct{}{}

				// Records are written at the same stride, so consecutive
				// offsets must be at least one record size apart.
				if previous >= 0 {
					assert.GreaterOrEqual(t, int64(offset)-previous, int64(96))
				}
				previous = int64(offset)
			}
		}
		assert.Len(t, seen, recordCount)
	}
}

func TestPrepareRegeneratesRecords(t *testing.T) {
	pass := &passImpl{mu: &sync.Mutex{}}

	instruction := &graphics.RenderInstruction{}
	instruction.Uniforms.AnimationTimer = 3
	for c := 0; c < 2; c++ {
		caster := graphics.PointShadowCasterInstruction{
			Position: [3]float32{float32(c), float32(c) * 2, float32(c) * 3},
			Range:    20,
		}
		for face := 0; face < light.ShadowFaceCount; face++ {
			caster.ViewProjectionMatrices[face][0] = float32(c*10 + face)
			caster.ViewProjectionMatrices[face][15] = 1
		}
		instruction.PointShadowCasters = append(instruction.PointShadowCasters, caster)
	}

	pass.Prepare(instruction)

	for c := 0; c < 2; c++ {
		for face := 0; face < light.ShadowFaceCount; face++ {
			record := pass.uniforms[c*light.ShadowFaceCount+face]
			assert.Equal(t, float32(c*10+face), record.ViewProjection[0])
			assert.Equal(t, [4]float32{float32(c), float32(c) * 2, float32(c) * 3, 1}, record.LightPosition)
			assert.Equal(t, float32(3), record.AnimationTimer)
		}
	}
	for slot := 2; slot < light.MaxShadowCasters; slot++ {
		for face := 0; face < light.ShadowFaceCount; face++ {
			assert.Equal(t, PassUniforms{}, pass.uniforms[slot*light.ShadowFaceCount+face])
		}
	}

	pass.Prepare(&graphics.RenderInstruction{})
	for i := range pass.uniforms {
		assert.Equal(t, PassUniforms{}, pass.uniforms[i])
	}
}

func TestModelPrepareGeneratesCommands(t *testing.T) {
	drawer := &modelDrawerImpl{mu: &sync.Mutex{}}

	instruction := &graphics.RenderInstruction{
		Models: []graphics.ModelInstruction{
			{VertexOffset: 0, VertexCount: 12},
			{VertexOffset: 12, VertexCount: 48},
		},
	}
	drawer.Prepare(instruction)

	require.Len(t, drawer.drawCommands, 2)
	assert.Equal(t, uint32(12), drawer.drawCommands[0].VertexCount)
	assert.Equal(t, uint32(0), drawer.drawCommands[0].FirstInstance)
	assert.Equal(t, uint32(48), drawer.drawCommands[1].VertexCount)
	assert.Equal(t, uint32(12), drawer.drawCommands[1].FirstVertex)
	assert.Equal(t, uint32(1), drawer.drawCommands[1].InstanceCount)
	assert.Equal(t, []uint32{0, 1}, drawer.instanceIndices)

	drawer.Prepare(&graphics.RenderInstruction{})
	assert.Len(t, drawer.drawCommands, 2)
}

func TestShaderDeclaresExpectedBindings(t *testing.T) {
	for _, declaration := range []string{
		"@group(0) @binding(0) var<uniform> global_uniforms: GlobalUniforms;",
		"@group(0) @binding(3) var texture_sampler: sampler;",
		"@group(1) @binding(0) var<uniform> pass_uniforms: PassUniforms;",
		"@group(2) @binding(0) var<storage, read> instance_data: array<InstanceData>;",
		"@group(3) @binding(0) var textures: texture_2d_array<f32>;",
	} {
		assert.True(t, strings.Contains(modelShaderSource, declaration), declaration)
	}

	// The fragment stage overrides depth with the normalized radial distance.
	assert.Contains(t, modelShaderSource, "@builtin(frag_depth)")
	assert.Contains(t, modelShaderSource, "const SHADOW_FAR_PLANE: f32 = 256.0;")
	assert.Contains(t, modelShaderSource, "discard;")

	// Must be byte-identical with the forward shader's displacement or
	// shadows detach from swaying geometry.
	assert.Contains(t, modelShaderSource,
		"let offset = vec4<f32>(sin(wind_position.x), 0.0, sin(wind_position.z), 0.0) * wind_affinity;")
}
