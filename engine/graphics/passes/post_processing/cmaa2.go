package post_processing

import (
	_ "embed"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/engine/device"
	"github.com/gdesatrigraha/korangar/engine/graphics"
)

//go:embed assets/cmaa2_edges.wgsl
var cmaa2EdgesShaderSource string

//go:embed assets/cmaa2_process.wgsl
var cmaa2ProcessShaderSource string

//go:embed assets/cmaa2_apply.wgsl
var cmaa2ApplyShaderSource string

const cmaa2DrawerName = "cmaa2"

// cmaa2EdgeTileSize is the pixel footprint of one edge detection workgroup:
// 8 by 8 threads, each classifying a 2x2 pixel quad.
const cmaa2EdgeTileSize = 16

// Cmaa2Drawer runs conservative morphological anti-aliasing over the resolved
// scene color in three compute stages. Edge detection classifies every pixel
// and collects candidates, candidate processing turns them into deferred
// blend items chained per pixel quad, and the apply stage writes the blended
// pixels back through the storage view of the color texture. The writes are
// deferred so the processing stage always reads the unmodified image.
//
// The two later stages run with workgroup counts the previous stage computed
// on the GPU, dispatched indirectly from the shared argument buffer.
type Cmaa2Drawer interface {
	graphics.Preparer

	// Dispatch encodes the three stage compute pass. Must run after the
	// forward pass resolve and before the screen pass.
	//
	// Parameters:
	//   - encoder: the frame's command encoder
	//   - context: the shared resource context holding the working set
	Dispatch(encoder *wgpu.CommandEncoder, context graphics.GlobalContext)

	// Release frees the pipelines and the drawer owned bind groups.
	Release()
}

var _ Cmaa2Drawer = &cmaa2DrawerImpl{}

type cmaa2DrawerImpl struct {
	resources *graphics.Cmaa2Resources

	inputLayout     *wgpu.BindGroupLayout
	inputBindGroup  *wgpu.BindGroup
	outputBindGroup *wgpu.BindGroup

	edgesPipeline   *wgpu.ComputePipeline
	processPipeline *wgpu.ComputePipeline
	applyPipeline   *wgpu.ComputePipeline
}

// NewCmaa2Drawer builds the three compute pipelines and binds the current
// color texture as both the sampled input of the detection stages and the
// storage output of the apply stage. The context must have CMAA2 resources
// active.
//
// Parameters:
//   - gpu: the wrapped device
//   - layouts: the shared layout registry
//   - context: the shared resource context the working set is taken from
//
// Returns:
//   - Cmaa2Drawer: the constructed drawer
//   - error: an error if CMAA2 is not active or a resource could not be created
func NewCmaa2Drawer(gpu device.Device, layouts *graphics.Layouts, context graphics.GlobalContext) (Cmaa2Drawer, error) {
	resources, ok := context.AntiAliasingResources().Cmaa2()
	if !ok {
		return nil, fmt.Errorf("failed to create %s drawer: cmaa2 resources are not active", cmaa2DrawerName)
	}

	drawer := &cmaa2DrawerImpl{resources: resources}

	var err error
	drawer.inputLayout, err = gpu.Handle().CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: cmaa2DrawerName,
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s input layout: %w", cmaa2DrawerName, err)
	}

	colorView := context.ColorTexture().View()

	drawer.inputBindGroup, err = gpu.Handle().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  cmaa2DrawerName + " input",
		Layout: drawer.inputLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: colorView},
		},
	})
	if err != nil {
		drawer.Release()
		return nil, fmt.Errorf("failed to create %s input bind group: %w", cmaa2DrawerName, err)
	}

	drawer.outputBindGroup, err = gpu.Handle().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  cmaa2DrawerName + " output",
		Layout: layouts.Cmaa2Output,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: colorView},
		},
	})
	if err != nil {
		drawer.Release()
		return nil, fmt.Errorf("failed to create %s output bind group: %w", cmaa2DrawerName, err)
	}

	stages := []struct {
		pipeline **wgpu.ComputePipeline
		label    string
		source   string
		layouts  []*wgpu.BindGroupLayout
	}{
		{&drawer.edgesPipeline, "edges", cmaa2EdgesShaderSource, []*wgpu.BindGroupLayout{layouts.Cmaa2, drawer.inputLayout}},
		{&drawer.processPipeline, "process", cmaa2ProcessShaderSource, []*wgpu.BindGroupLayout{layouts.Cmaa2, drawer.inputLayout}},
		{&drawer.applyPipeline, "apply", cmaa2ApplyShaderSource, []*wgpu.BindGroupLayout{layouts.Cmaa2, layouts.Cmaa2Output}},
	}
	for _, stage := range stages {
		*stage.pipeline, err = createCmaa2Pipeline(gpu, cmaa2DrawerName+" "+stage.label, stage.source, stage.layouts)
		if err != nil {
			drawer.Release()
			return nil, err
		}
	}

	return drawer, nil
}

// Prepare is a no-op. The working set depends only on the screen size, not
// on the frame's contents.
func (d *cmaa2DrawerImpl) Prepare(instruction *graphics.RenderInstruction) {}

// Upload resets the atomic counters and the indirect dispatch arguments. The
// stages accumulate both through atomics, so every frame starts from zero.
//
// Returns:
//   - error: an error if a buffer write failed
func (d *cmaa2DrawerImpl) Upload() error {
	if _, err := d.resources.ControlBuffer.Write(make([]uint32, 4)); err != nil {
		return fmt.Errorf("failed to reset cmaa2 control buffer: %w", err)
	}
	if _, err := d.resources.IndirectBuffer.Write([]graphics.DispatchIndirectArgs{{X: 0, Y: 1, Z: 1}}); err != nil {
		return fmt.Errorf("failed to reset cmaa2 indirect buffer: %w", err)
	}
	return nil
}

func (d *cmaa2DrawerImpl) Dispatch(encoder *wgpu.CommandEncoder, context graphics.GlobalContext) {
	screenSize := context.ScreenSize()
	groupCountX := (screenSize.Width + cmaa2EdgeTileSize - 1) / cmaa2EdgeTileSize
	groupCountY := (screenSize.Height + cmaa2EdgeTileSize - 1) / cmaa2EdgeTileSize

	pass := encoder.BeginComputePass(nil)

	pass.SetPipeline(d.edgesPipeline)
	pass.SetBindGroup(0, d.resources.BindGroup, nil)
	pass.SetBindGroup(1, d.inputBindGroup, nil)
	pass.DispatchWorkgroups(groupCountX, groupCountY, 1)

	pass.SetPipeline(d.processPipeline)
	pass.DispatchWorkgroupsIndirect(d.resources.IndirectBuffer.Handle(), 0)

	pass.SetPipeline(d.applyPipeline)
	pass.SetBindGroup(1, d.outputBindGroup, nil)
	pass.DispatchWorkgroupsIndirect(d.resources.IndirectBuffer.Handle(), 0)

	pass.End()
	pass.Release()
}

func (d *cmaa2DrawerImpl) Release() {
	for _, pipeline := range []**wgpu.ComputePipeline{&d.edgesPipeline, &d.processPipeline, &d.applyPipeline} {
		if *pipeline != nil {
			(*pipeline).Release()
			*pipeline = nil
		}
	}
	if d.outputBindGroup != nil {
		d.outputBindGroup.Release()
		d.outputBindGroup = nil
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

func createCmaa2Pipeline(gpu device.Device, label, source string, bindGroupLayouts []*wgpu.BindGroupLayout) (*wgpu.ComputePipeline, error) {
	shaderModule, err := gpu.Handle().CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s shader module: %w", label, err)
	}

	pipelineLayout, err := gpu.Handle().CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline layout: %w", label, err)
	}

	pipeline, err := gpu.Handle().CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  label,
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     shaderModule,
			EntryPoint: "cs_main",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline: %w", label, err)
	}
	return pipeline, nil
}
