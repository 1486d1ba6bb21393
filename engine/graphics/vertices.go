package graphics

import (
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

// ModelVertex is the vertex layout every model batch must honor. The asset
// pipeline produces vertices in exactly this order; the forward and shadow
// shaders consume locations 0 to 4, with location 5 reserved for the
// per-instance index stream.
// Size: 40 bytes.
type ModelVertex struct {
	Position           [3]float32 // location 0
	Normal             [3]float32 // location 1
	TextureCoordinates [2]float32 // location 2
	// TextureIndex selects the layer within the batch's texture array.
	TextureIndex int32 // location 3
	// WindAffinity scales the vertex wind sway animation, 0 for rigid geometry.
	WindAffinity float32 // location 4
}

// ModelVertexSize is the byte stride of one ModelVertex.
const ModelVertexSize = uint64(unsafe.Sizeof(ModelVertex{}))

// ModelVertexBufferLayout returns the vertex buffer layout for the model
// vertex stream at slot 0.
//
// Returns:
//   - wgpu.VertexBufferLayout: the per-vertex layout
func ModelVertexBufferLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: ModelVertexSize,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
			{Format: wgpu.VertexFormatSint32, Offset: 32, ShaderLocation: 3},
			{Format: wgpu.VertexFormatFloat32, Offset: 36, ShaderLocation: 4},
		},
	}
}

// InstanceIndexBufferLayout returns the vertex buffer layout for the
// per-instance index stream at slot 1. The stream carries each instance's own
// index because some backends ignore the first-instance field of indirect
// draws, so the shader reads the instance index from a vertex attribute
// instead of the builtin.
//
// Returns:
//   - wgpu.VertexBufferLayout: the per-instance layout
func InstanceIndexBufferLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(unsafe.Sizeof(uint32(0))),
		StepMode:    wgpu.VertexStepModeInstance,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatUint32, Offset: 0, ShaderLocation: 5},
		},
	}
}
