package post_processing

import (
	_ "embed"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/engine/device"
	"github.com/gdesatrigraha/korangar/engine/graphics"
)

//go:embed assets/fxaa_luma.wgsl
var fxaaLumaShaderSource string

const fxaaDrawerName = "fxaa luma"

// FxaaDrawer renders the FXAA preparation pass: the scene color copied into
// the luma attachment with the per pixel luma stored in the alpha channel.
// The filter itself runs in the screen blit, which reads this attachment
// instead of the raw scene color.
type FxaaDrawer interface {
	// RecordLumaPass encodes the luma pass. Must run after the forward pass
	// resolve and before the screen pass.
	//
	// Parameters:
	//   - encoder: the frame's command encoder
	//   - context: the shared resource context holding the luma attachment
	RecordLumaPass(encoder *wgpu.CommandEncoder, context graphics.GlobalContext)

	// Release frees the pipeline and the input bind group.
	Release()
}

var _ FxaaDrawer = &fxaaDrawerImpl{}

type fxaaDrawerImpl struct {
	inputLayout    *wgpu.BindGroupLayout
	inputBindGroup *wgpu.BindGroup
	pipeline       *wgpu.RenderPipeline
}

// NewFxaaDrawer builds the luma encoding pipeline over the current scene
// color attachment. The context must have FXAA resources active.
//
// Parameters:
//   - gpu: the wrapped device
//   - context: the shared resource context the source view is taken from
//
// Returns:
//   - FxaaDrawer: the constructed drawer
//   - error: an error if FXAA is not active or a resource could not be created
func NewFxaaDrawer(gpu device.Device, context graphics.GlobalContext) (FxaaDrawer, error) {
	if _, ok := context.AntiAliasingResources().Fxaa(); !ok {
		return nil, fmt.Errorf("failed to create %s drawer: fxaa resources are not active", fxaaDrawerName)
	}

	drawer := &fxaaDrawerImpl{}

	var err error
	drawer.inputLayout, err = gpu.Handle().CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: fxaaDrawerName,
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s input layout: %w", fxaaDrawerName, err)
	}

	drawer.inputBindGroup, err = gpu.Handle().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  fxaaDrawerName,
		Layout: drawer.inputLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: context.ColorTexture().View()},
		},
	})
	if err != nil {
		drawer.Release()
		return nil, fmt.Errorf("failed to create %s input bind group: %w", fxaaDrawerName, err)
	}

	drawer.pipeline, err = createFxaaLumaPipeline(gpu, drawer.inputLayout)
	if err != nil {
		drawer.Release()
		return nil, err
	}

	return drawer, nil
}

func (d *fxaaDrawerImpl) RecordLumaPass(encoder *wgpu.CommandEncoder, context graphics.GlobalContext) {
	resources, ok := context.AntiAliasingResources().Fxaa()
	if !ok {
		return
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: fxaaDrawerName,
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       resources.ColorWithLumaTexture.View(),
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{A: 1},
			},
		},
	})
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, d.inputBindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	pass.Release()
}

func (d *fxaaDrawerImpl) Release() {
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

func createFxaaLumaPipeline(gpu device.Device, inputLayout *wgpu.BindGroupLayout) (*wgpu.RenderPipeline, error) {
	shaderModule, err := gpu.Handle().CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: fxaaDrawerName,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: fxaaLumaShaderSource,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s shader module: %w", fxaaDrawerName, err)
	}

	pipelineLayout, err := gpu.Handle().CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            fxaaDrawerName,
		BindGroupLayouts: []*wgpu.BindGroupLayout{inputLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline layout: %w", fxaaDrawerName, err)
	}

	pipeline, err := gpu.Handle().CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  fxaaDrawerName,
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
					Format:    graphics.FxaaColorLumaTextureFormat,
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
		return nil, fmt.Errorf("failed to create %s pipeline: %w", fxaaDrawerName, err)
	}
	return pipeline, nil
}
