package forward

import (
	"strings"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdesatrigraha/korangar/engine/graphics"
)

func TestInstanceDataSize(t *testing.T) {
	instance := &InstanceData{}
	assert.Equal(t, 128, instance.Size())
	assert.Equal(t, uintptr(128), unsafe.Sizeof(*instance))
}

func forwardTestInstruction(modelCount int) *graphics.RenderInstruction {
	instruction := &graphics.RenderInstruction{}
	for i := 0; i < modelCount; i++ {
		model := graphics.ModelInstruction{
			VertexOffset: uint32(i * 6),
			VertexCount:  uint32(6 + i%5),
		}
		// A plain scale keeps the inverse easy to verify.
		scale := float32(i%3 + 1)
		model.ModelMatrix[0] = scale
		model.ModelMatrix[5] = scale
		model.ModelMatrix[10] = scale
		model.ModelMatrix[15] = 1
		instruction.Models = append(instruction.Models, model)
	}
	return instruction
}

func TestPrepareComputesInverseWorld(t *testing.T) {
	drawer := &modelDrawerImpl{mu: &sync.Mutex{}}

	instruction := &graphics.RenderInstruction{}
	model := graphics.ModelInstruction{VertexCount: 3}
	model.ModelMatrix[0] = 2
	model.ModelMatrix[5] = 4
	model.ModelMatrix[10] = 8
	model.ModelMatrix[15] = 1
	instruction.Models = append(instruction.Models, model)

	drawer.Prepare(instruction)

	require.Len(t, drawer.instanceData, 1)
	instance := drawer.instanceData[0]
	assert.Equal(t, model.ModelMatrix, instance.World)
	assert.InDelta(t, 0.5, instance.InverseWorld[0], 1e-6)
	assert.InDelta(t, 0.25, instance.InverseWorld[5], 1e-6)
	assert.InDelta(t, 0.125, instance.InverseWorld[10], 1e-6)
	assert.InDelta(t, 1.0, instance.InverseWorld[15], 1e-6)
}

func TestPrepareSingularWorldFallsBackToIdentity(t *testing.T) {
	drawer := &modelDrawerImpl{mu: &sync.Mutex{}}

	instruction := &graphics.RenderInstruction{
		// A zero world matrix has no inverse.
		Models: []graphics.ModelInstruction{{VertexCount: 3}},
	}
	drawer.Prepare(instruction)

	require.Len(t, drawer.instanceData, 1)
	var identity [16]float32
	identity[0] = 1
	identity[5] = 1
	identity[10] = 1
	identity[15] = 1
	assert.Equal(t, identity, drawer.instanceData[0].InverseWorld)
}

func TestPrepareParallelMatchesSerial(t *testing.T) {
	count := parallelPrepareThreshold * 3
	instruction := forwardTestInstruction(count)

	serial := &modelDrawerImpl{mu: &sync.Mutex{}}
	serial.instanceData = make([]InstanceData, count)
	serial.instanceIndices = make([]uint32, count)
	serial.drawCommands = make([]graphics.DrawIndirectArgs, count)
	serial.prepareRange(instruction.Models, 0, count)

	parallel := &modelDrawerImpl{
		mu:   &sync.Mutex{},
		pool: worker.NewDynamicWorkerPool(4, 256, 1*time.Second),
	}
	parallel.Prepare(instruction)

	require.Len(t, parallel.instanceData, count)
	assert.Equal(t, serial.instanceData, parallel.instanceData)
	assert.Equal(t, serial.instanceIndices, parallel.instanceIndices)
	assert.Equal(t, serial.drawCommands, parallel.drawCommands)
}

func TestPrepareShortCircuitsWhenEmpty(t *testing.T) {
	drawer := &modelDrawerImpl{mu: &sync.Mutex{}}

	drawer.Prepare(forwardTestInstruction(4))
	require.Len(t, drawer.drawCommands, 4)

	drawer.Prepare(&graphics.RenderInstruction{})

	assert.Len(t, drawer.instanceData, 4)
	assert.Len(t, drawer.drawCommands, 4)
}

// The indirect path replays staged argument records while the fallback path
// passes arguments directly. Both must describe the same draws.
func TestDrawCommandsMatchDirectDrawArguments(t *testing.T) {
	instruction := forwardTestInstruction(10)
	instruction.ModelBatches = []graphics.ModelBatch{
		{Offset: 0, Count: 4},
		{Offset: 4, Count: 6},
	}

	drawer := &modelDrawerImpl{mu: &sync.Mutex{}}
	drawer.Prepare(instruction)

	for _, batch := range instruction.ModelBatches {
		for record := 0; record < batch.Count; record++ {
			index := batch.Offset + record
			model := instruction.Models[index]
			command := drawer.drawCommands[index]

			assert.Equal(t, model.VertexCount, command.VertexCount)
			assert.Equal(t, uint32(1), command.InstanceCount)
			assert.Equal(t, model.VertexOffset, command.FirstVertex)
			assert.Equal(t, uint32(index), command.FirstInstance)
		}
	}
}

func TestModelShaderDeclaresForwardBindings(t *testing.T) {
	for _, declaration := range []string{
		"@group(0) @binding(0) var<uniform> global_uniforms: GlobalUniforms;",
		"@group(0) @binding(3) var texture_sampler: sampler;",
		"@group(1) @binding(0) var<uniform> directional_light: DirectionalLightUniforms;",
		"@group(1) @binding(1) var directional_shadow_map: texture_depth_2d;",
		"@group(1) @binding(2) var<storage, read> point_lights: array<PointLight>;",
		"@group(1) @binding(3) var tile_light_count_texture: texture_2d<u32>;",
		"@group(1) @binding(4) var<storage, read> tile_light_indices: array<TileLightIndices>;",
		"@group(1) @binding(5) var point_shadow_maps: texture_depth_cube_array;",
		"@group(1) @binding(6) var shadow_sampler: sampler_comparison;",
		"@group(2) @binding(0) var<storage, read> instance_data: array<InstanceData>;",
		"@group(3) @binding(0) var textures: texture_2d_array<f32>;",
	} {
		assert.True(t, strings.Contains(modelShaderSource, declaration), declaration)
	}

	// The same wind displacement and distance normalization must appear in the
	// shadow pass shaders, or shadows detach from the geometry casting them.
	assert.Contains(t, modelShaderSource,
		"let offset = vec4<f32>(sin(wind_position.x), 0.0, sin(wind_position.z), 0.0) * wind_affinity;")
	assert.Contains(t, modelShaderSource, "const SHADOW_FAR_PLANE: f32 = 256.0;")

	// Compare sampling happens inside varying branches, so only the
	// derivative-free form is legal.
	assert.NotContains(t, modelShaderSource, "textureSampleCompare(")
	assert.Contains(t, modelShaderSource, "textureSampleCompareLevel(")
}

func TestIndicatorShaderExpandsQuadFromUniforms(t *testing.T) {
	assert.Contains(t, indicatorShaderSource, "@group(0) @binding(0) var<uniform> global_uniforms: GlobalUniforms;")
	assert.Contains(t, indicatorShaderSource, "@builtin(vertex_index)")
	assert.Contains(t, indicatorShaderSource, "array<u32, 6>(0u, 2u, 1u, 1u, 2u, 3u)")
	assert.Contains(t, indicatorShaderSource, "indicator_positions[corner]")
	assert.Contains(t, indicatorShaderSource, "indicator_color")
}
