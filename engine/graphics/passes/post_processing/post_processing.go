// Package post_processing owns everything that runs after the forward pass
// resolve: the FXAA luma encoding pass, the CMAA2 compute chain, and the
// screen pass that composites the finished scene color with the interface
// layer and the debug overlays onto the acquired surface image.
package post_processing

import (
	_ "embed"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/engine/device"
	"github.com/gdesatrigraha/korangar/engine/graphics"
)

//go:embed assets/composite.wgsl
var compositeShaderSource string

const passName = "screen render pass"
const blitDrawerName = "screen blit"

// BeginPass opens the screen render pass targeting the acquired surface image
// and binds the global bind group. The blit covers every pixel, so the
// previous surface contents are cleared rather than loaded. The caller ends
// and releases the returned pass after drawing.
//
// Parameters:
//   - encoder: the frame's command encoder
//   - context: the shared resource context
//   - surfaceView: the surface texture view acquired for this frame
//
// Returns:
//   - *wgpu.RenderPassEncoder: the recording render pass
func BeginPass(encoder *wgpu.CommandEncoder, context graphics.GlobalContext, surfaceView *wgpu.TextureView) *wgpu.RenderPassEncoder {
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: passName,
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       surfaceView,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})

	pass.SetBindGroup(0, context.GlobalBindGroup(), nil)

	return pass
}

// ScreenBlitDrawer draws the fullscreen triangle that moves the frame onto
// the surface. The fragment stage samples the anti-aliased scene color, or
// runs the FXAA filter over the luma encoded copy when FXAA is active, and
// blends the resolved interface layer on top.
//
// The drawer bakes the scene source view and the fragment entry point for the
// current anti-aliasing mode into its pipeline, so it is recreated whenever
// the mode or the screen size changes.
type ScreenBlitDrawer interface {
	// Draw records the composition triangle into the screen pass.
	//
	// Parameters:
	//   - pass: the recording screen render pass
	Draw(pass *wgpu.RenderPassEncoder)

	// Release frees the pipeline and the input bind group.
	Release()
}

var _ ScreenBlitDrawer = &screenBlitDrawerImpl{}

type screenBlitDrawerImpl struct {
	inputLayout    *wgpu.BindGroupLayout
	inputBindGroup *wgpu.BindGroup
	pipeline       *wgpu.RenderPipeline
}

// NewScreenBlitDrawer builds the composition pipeline against the surface
// format and binds the scene source for the active anti-aliasing mode.
//
// Parameters:
//   - gpu: the wrapped device
//   - layouts: the shared layout registry
//   - context: the shared resource context the source views are taken from
//
// Returns:
//   - ScreenBlitDrawer: the constructed drawer
//   - error: an error if a resource could not be created
func NewScreenBlitDrawer(gpu device.Device, layouts *graphics.Layouts, context graphics.GlobalContext) (ScreenBlitDrawer, error) {
	sourceView := context.ColorTexture().View()
	fragmentEntry := "fs_scene"
	if resources, ok := context.AntiAliasingResources().Fxaa(); ok {
		sourceView = resources.ColorWithLumaTexture.View()
		fragmentEntry = "fs_fxaa"
	}

	drawer := &screenBlitDrawerImpl{}

	var err error
	drawer.inputLayout, err = gpu.Handle().CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: blitDrawerName,
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
					Multisampled:  true,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s input layout: %w", blitDrawerName, err)
	}

	drawer.inputBindGroup, err = gpu.Handle().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  blitDrawerName,
		Layout: drawer.inputLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: sourceView},
			{Binding: 1, TextureView: context.InterfaceTexture().View()},
		},
	})
	if err != nil {
		drawer.Release()
		return nil, fmt.Errorf("failed to create %s input bind group: %w", blitDrawerName, err)
	}

	drawer.pipeline, err = createBlitPipeline(gpu, layouts, drawer.inputLayout, fragmentEntry)
	if err != nil {
		drawer.Release()
		return nil, err
	}

	return drawer, nil
}

func (d *screenBlitDrawerImpl) Draw(pass *wgpu.RenderPassEncoder) {
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(1, d.inputBindGroup, nil)
	pass.Draw(3, 1, 0, 0)
}

func (d *screenBlitDrawerImpl) Release() {
	if d.pipeline != nil {
		d.pipeline.Release()
		d.pipeline = nil
	}
	if d.inputBindGroup != nil {
		d.inputBindGroup.Release()
		d.inputBindGroup = nil
	}
	if d.inputLayout != nil {
		d.inputLayout.Release()
		d.inputLayout = nil
	}
}

func createBlitPipeline(gpu device.Device, layouts *graphics.Layouts, inputLayout *wgpu.BindGroupLayout, fragmentEntry string) (*wgpu.RenderPipeline, error) {
	shaderModule, err := gpu.Handle().CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: blitDrawerName,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: compositeShaderSource,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s shader module: %w", blitDrawerName, err)
	}

	pipelineLayout, err := gpu.Handle().CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: blitDrawerName,
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			layouts.Global,
			inputLayout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline layout: %w", blitDrawerName, err)
	}

	pipeline, err := gpu.Handle().CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  blitDrawerName,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: fragmentEntry,
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
		return nil, fmt.Errorf("failed to create %s pipeline: %w", blitDrawerName, err)
	}
	return pipeline, nil
}
