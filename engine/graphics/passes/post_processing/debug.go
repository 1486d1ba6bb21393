package post_processing

import (
	_ "embed"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/engine/device"
	"github.com/gdesatrigraha/korangar/engine/graphics"
)

//go:embed assets/debug.wgsl
var debugShaderSource string

const debugDrawerName = "debug overlay"

// DebugDrawer draws the buffer visualization overlay over the finished frame.
// Which buffer is shown comes from the debug uniforms the context uploads, so
// the fragment shader selects the source; the drawer only decides whether the
// fullscreen draw is recorded at all.
type DebugDrawer interface {
	// Draw records the overlay into the screen pass when any buffer
	// visualization is enabled.
	//
	// Parameters:
	//   - pass: the recording screen render pass
	//   - context: the shared resource context holding the debug bind group
	//   - instruction: the frame's render instruction
	Draw(pass *wgpu.RenderPassEncoder, context graphics.GlobalContext, instruction *graphics.RenderInstruction)

	// Release frees the pipeline.
	Release()
}

var _ DebugDrawer = &debugDrawerImpl{}

type debugDrawerImpl struct {
	pipeline *wgpu.RenderPipeline
}

// NewDebugDrawer builds the overlay pipeline against the surface format.
//
// Parameters:
//   - gpu: the wrapped device
//   - layouts: the shared layout registry
//
// Returns:
//   - DebugDrawer: the constructed drawer
//   - error: an error if shader or pipeline creation failed
func NewDebugDrawer(gpu device.Device, layouts *graphics.Layouts) (DebugDrawer, error) {
	shaderModule, err := gpu.Handle().CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: debugDrawerName,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: debugShaderSource,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s shader module: %w", debugDrawerName, err)
	}

	pipelineLayout, err := gpu.Handle().CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: debugDrawerName,
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			layouts.Global,
			layouts.Debug,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline layout: %w", debugDrawerName, err)
	}

	pipeline, err := gpu.Handle().CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  debugDrawerName,
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
					Format:    gpu.SurfaceFormat(),
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline: %w", debugDrawerName, err)
	}

	return &debugDrawerImpl{pipeline: pipeline}, nil
}

func (d *debugDrawerImpl) Draw(pass *wgpu.RenderPassEncoder, context graphics.GlobalContext, instruction *graphics.RenderInstruction) {
	if !overlayVisible(instruction.Debug) {
		return
	}

	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(1, context.DebugBindGroup(), nil)
	pass.Draw(3, 1, 0, 0)
}

func (d *debugDrawerImpl) Release() {
	if d.pipeline != nil {
		d.pipeline.Release()
		d.pipeline = nil
	}
}

// overlayVisible reports whether any toggle selects a buffer this drawer can
// show. The font atlas lives with the interface renderer and has no overlay
// here.
func overlayVisible(settings graphics.DebugSettings) bool {
	return settings.ShowPickerBuffer ||
		settings.ShowDirectionalShadowMap ||
		settings.ShowPointShadowMap != 0 ||
		settings.ShowLightCullingCountBuffer
}
