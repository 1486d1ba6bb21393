package directional_shadow

import (
	"encoding/binary"
	"math"
	"strings"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdesatrigraha/korangar/engine/graphics"
)

func TestPassUniformsMarshal(t *testing.T) {
	uniforms := &PassUniforms{
		AnimationTimer: 2.5,
	}
	for i := range uniforms.ViewProjection {
		uniforms.ViewProjection[i] = float32(i + 1)
	}

	data := uniforms.Marshal()
	require.Len(t, data, uniforms.Size())
	require.Len(t, data, 80)

	for i := range uniforms.ViewProjection {
		value := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		assert.Equal(t, float32(i+1), value)
	}
	assert.Equal(t, float32(2.5), math.Float32frombits(binary.LittleEndian.Uint32(data[64:])))
	for offset := 68; offset < 80; offset++ {
		assert.Zero(t, data[offset])
	}
}

func TestInstanceDataSize(t *testing.T) {
	instance := &InstanceData{}
	assert.Equal(t, 64, instance.Size())
	assert.Equal(t, uintptr(64), unsafe.Sizeof(*instance))
}

func TestPrepareStagesSunTransform(t *testing.T) {
	pass := &passImpl{mu: &sync.Mutex{}}

	instruction := &graphics.RenderInstruction{}
	instruction.Uniforms.AnimationTimer = 4.25
	for i := range instruction.DirectionalLight.ViewProjectionMatrix {
		instruction.DirectionalLight.ViewProjectionMatrix[i] = float32(i) * 0.5
	}

	pass.Prepare(instruction)

	assert.Equal(t, instruction.DirectionalLight.ViewProjectionMatrix, pass.uniforms.ViewProjection)
	assert.Equal(t, float32(4.25), pass.uniforms.AnimationTimer)
}

func shadowTestInstruction(modelCount int) *graphics.RenderInstruction {
	instruction := &graphics.RenderInstruction{}
	for i := 0; i < modelCount; i++ {
		model := graphics.ModelInstruction{
			VertexOffset: uint32(i * 100),
			VertexCount:  uint32(30 + i),
		}
		model.ModelMatrix[0] = float32(i + 1)
		model.ModelMatrix[15] = 1
		instruction.Models = append(instruction.Models, model)
	}
	return instruction
}

func TestModelPrepareGeneratesCommands(t *testing.T) {
	drawer := &modelDrawerImpl{mu: &sync.Mutex{}}

	drawer.Prepare(shadowTestInstruction(3))

	require.Len(t, drawer.instanceData, 3)
	require.Len(t, drawer.instanceIndices, 3)
	require.Len(t, drawer.drawCommands, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, float32(i+1), drawer.instanceData[i].World[0])
		assert.Equal(t, uint32(i), drawer.instanceIndices[i])

		command := drawer.drawCommands[i]
		assert.Equal(t, uint32(30+i), command.VertexCount)
		assert.Equal(t, uint32(1), command.InstanceCount)
		assert.Equal(t, uint32(i*100), command.FirstVertex)
		assert.Equal(t, uint32(i), command.FirstInstance)
	}
}

func TestModelPrepareKeepsStateWhenEmpty(t *testing.T) {
	drawer := &modelDrawerImpl{mu: &sync.Mutex{}}

	drawer.Prepare(shadowTestInstruction(2))
	require.Len(t, drawer.drawCommands, 2)

	drawer.Prepare(&graphics.RenderInstruction{})

	assert.Len(t, drawer.instanceData, 2)
	assert.Len(t, drawer.instanceIndices, 2)
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

	assert.Contains(t, modelShaderSource, "fn vs_main(")
	assert.Contains(t, modelShaderSource, "fn fs_main(")
	assert.Contains(t, modelShaderSource, "discard;")

	// Must be byte-identical with the forward shader's displacement or
	// shadows detach from swaying geometry.
	assert.Contains(t, modelShaderSource,
		"let offset = vec4<f32>(sin(wind_position.x), 0.0, sin(wind_position.z), 0.0) * wind_affinity;")
}
