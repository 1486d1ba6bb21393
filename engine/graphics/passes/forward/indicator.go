package forward

import (
	_ "embed"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/engine/device"
	"github.com/gdesatrigraha/korangar/engine/graphics"
)

//go:embed assets/indicator.wgsl
var indicatorShaderSource string

const indicatorDrawerName = "forward indicator"

// IndicatorDrawer renders the walk indicator decal over the ground geometry.
// The quad corners and color travel in the global uniforms, so the drawer
// carries no buffers of its own; the shader expands six vertices from the
// corner matrix.
type IndicatorDrawer interface {
	// Draw records the indicator draw when the frame carries one.
	//
	// Parameters:
	//   - pass: the pass returned by BeginPass
	//   - instruction: the frame's instruction set
	Draw(pass *wgpu.RenderPassEncoder, instruction *graphics.RenderInstruction)

	// Release frees the drawer's GPU resources.
	Release()
}

var _ IndicatorDrawer = &indicatorDrawerImpl{}

type indicatorDrawerImpl struct {
	pipeline *wgpu.RenderPipeline
}

// NewIndicatorDrawer builds the indicator pipeline. The drawer bakes the
// current sample count into its pipeline, so it is recreated when the MSAA
// setting changes.
//
// Parameters:
//   - gpu: the wrapped device
//   - layouts: the shared layout registry
//   - msaa: the sample count mode of the forward attachments
//
// Returns:
//   - IndicatorDrawer: the constructed drawer
//   - error: an error if pipeline creation failed
func NewIndicatorDrawer(gpu device.Device, layouts *graphics.Layouts, msaa graphics.Msaa) (IndicatorDrawer, error) {
	shaderModule, err := gpu.Handle().CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: indicatorDrawerName,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: indicatorShaderSource,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s shader module: %w", indicatorDrawerName, err)
	}

	pipelineLayout, err := gpu.Handle().CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: indicatorDrawerName,
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			layouts.Global,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline layout: %w", indicatorDrawerName, err)
	}

	pipeline, err := gpu.Handle().CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  indicatorDrawerName,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    graphics.RenderToTextureFormat,
					Blend:     &graphics.AlphaBlend,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
			// The decal must show from both sides of the ground plane.
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: msaa.SampleCount(),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format: graphics.DepthTextureFormat,
			// Tested against the scene but never occluding it.
			DepthWriteEnabled: false,
			DepthCompare:      wgpu.CompareFunctionGreater,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline: %w", indicatorDrawerName, err)
	}

	return &indicatorDrawerImpl{pipeline: pipeline}, nil
}

func (d *indicatorDrawerImpl) Draw(pass *wgpu.RenderPassEncoder, instruction *graphics.RenderInstruction) {
	if instruction.Indicator == nil {
		return
	}

	pass.SetPipeline(d.pipeline)
	pass.Draw(6, 1, 0, 0)
}

func (d *indicatorDrawerImpl) Release() {
	if d.pipeline != nil {
		d.pipeline.Release()
		d.pipeline = nil
	}
}
