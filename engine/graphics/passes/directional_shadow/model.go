package directional_shadow

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/engine/device"
	"github.com/gdesatrigraha/korangar/engine/graphics"
	"github.com/gdesatrigraha/korangar/engine/graphics/buffer"
)

//go:embed assets/model.wgsl
var modelShaderSource string

const modelDrawerName = "directional shadow model"
const initialInstructionCapacity = 256

// InstanceData is the per-model record the shadow vertex shader reads.
// Size: 64 bytes.
type InstanceData struct {
	World [16]float32
}

// Size returns the marshalled size of the InstanceData struct in bytes.
func (i *InstanceData) Size() int {
	return 64
}

// ModelDrawer renders the frame's model list into the directional shadow map.
// It shares the forward drawer's two-path draw scheme: batched indirect draws
// stepping through a shared argument buffer, or plain draws when indirect
// drawing is unavailable.
type ModelDrawer interface {
	graphics.Preparer

	// Draw records the model draws into an open shadow render pass.
	//
	// Parameters:
	//   - pass: the pass returned by the context's BeginPass
	//   - instruction: the frame's instruction set
	Draw(pass *wgpu.RenderPassEncoder, instruction *graphics.RenderInstruction)

	// Release frees the drawer's GPU resources.
	Release()
}

var _ ModelDrawer = &modelDrawerImpl{}

type modelDrawerImpl struct {
	mu                *sync.Mutex
	device            *wgpu.Device
	multiDrawIndirect bool

	instanceDataBuffer        buffer.Buffer[InstanceData]
	instanceIndexVertexBuffer buffer.Buffer[uint32]
	commandBuffer             buffer.Buffer[graphics.DrawIndirectArgs]
	instanceLayout            *wgpu.BindGroupLayout
	instanceBindGroup         *wgpu.BindGroup
	pipeline                  *wgpu.RenderPipeline

	instanceData    []InstanceData
	instanceIndices []uint32
	drawCommands    []graphics.DrawIndirectArgs
}

// NewModelDrawer builds the shadow model pipeline against the pass context's
// layout and allocates the instance and indirect argument buffers.
//
// Parameters:
//   - gpu: the wrapped device
//   - layouts: the shared layout registry
//   - pass: the directional shadow pass context
//
// Returns:
//   - ModelDrawer: the constructed drawer
//   - error: an error if any resource creation failed
func NewModelDrawer(gpu device.Device, layouts *graphics.Layouts, pass Pass) (ModelDrawer, error) {
	d := &modelDrawerImpl{
		mu:                &sync.Mutex{},
		device:            gpu.Handle(),
		multiDrawIndirect: gpu.Capabilities().MultiDrawIndirect,
	}

	var err error
	if d.instanceDataBuffer, err = buffer.NewBuffer[InstanceData](
		gpu.Handle(), gpu.Queue(), modelDrawerName+" instance data", initialInstructionCapacity, wgpu.BufferUsageStorage,
	); err != nil {
		return nil, err
	}
	if d.instanceIndexVertexBuffer, err = buffer.NewBuffer[uint32](
		gpu.Handle(), gpu.Queue(), modelDrawerName+" index vertex data", initialInstructionCapacity, wgpu.BufferUsageVertex,
	); err != nil {
		d.Release()
		return nil, err
	}
	if d.commandBuffer, err = buffer.NewBuffer[graphics.DrawIndirectArgs](
		gpu.Handle(), gpu.Queue(), modelDrawerName+" indirect buffer", initialInstructionCapacity, wgpu.BufferUsageIndirect,
	); err != nil {
		d.Release()
		return nil, err
	}

	if d.instanceLayout, err = gpu.Handle().CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: modelDrawerName,
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: uint64((&InstanceData{}).Size()),
				},
			},
		},
	}); err != nil {
		d.Release()
		return nil, fmt.Errorf("failed to create %s layout: %w", modelDrawerName, err)
	}

	if err = d.rebuildInstanceBindGroup(); err != nil {
		d.Release()
		return nil, err
	}

	if d.pipeline, err = createModelPipeline(gpu.Handle(), layouts, pass, d.instanceLayout); err != nil {
		d.Release()
		return nil, err
	}

	return d, nil
}

// Prepare regenerates the instance list, the per-instance index stream and
// the indirect argument records from the frame's model instructions. An empty
// model list leaves the previous staging intact; nothing will be drawn.
func (d *modelDrawerImpl) Prepare(instruction *graphics.RenderInstruction) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(instruction.Models) == 0 {
		return
	}

	d.instanceData = d.instanceData[:0]
	d.instanceIndices = d.instanceIndices[:0]
	d.drawCommands = d.drawCommands[:0]

	for _, model := range instruction.Models {
		instanceIndex := uint32(len(d.instanceData))

		d.instanceData = append(d.instanceData, InstanceData{World: model.ModelMatrix})
		d.instanceIndices = append(d.instanceIndices, instanceIndex)
		d.drawCommands = append(d.drawCommands, graphics.DrawIndirectArgs{
			VertexCount:   model.VertexCount,
			InstanceCount: 1,
			FirstVertex:   model.VertexOffset,
			FirstInstance: instanceIndex,
		})
	}
}

// Upload writes the staged instance and command data, rebuilding the instance
// bind group iff the instance buffer reallocated.
func (d *modelDrawerImpl) Upload() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	result, err := d.instanceDataBuffer.Write(d.instanceData)
	if err != nil {
		return fmt.Errorf("failed to upload %s instance data: %w", modelDrawerName, err)
	}
	if _, err = d.instanceIndexVertexBuffer.Write(d.instanceIndices); err != nil {
		return fmt.Errorf("failed to upload %s instance indices: %w", modelDrawerName, err)
	}
	if _, err = d.commandBuffer.Write(d.drawCommands); err != nil {
		return fmt.Errorf("failed to upload %s draw commands: %w", modelDrawerName, err)
	}

	if result.Reallocated() {
		return d.rebuildInstanceBindGroup()
	}
	return nil
}

func (d *modelDrawerImpl) Draw(pass *wgpu.RenderPassEncoder, instruction *graphics.RenderInstruction) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(instruction.ModelBatches) == 0 {
		return
	}

	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(2, d.instanceBindGroup, nil)

	for _, batch := range instruction.ModelBatches {
		if batch.Count == 0 {
			continue
		}

		pass.SetBindGroup(3, batch.TextureSet.BindGroup(), nil)
		pass.SetVertexBuffer(0, batch.VertexBuffer.Handle(), 0, wgpu.WholeSize)
		pass.SetVertexBuffer(1, d.instanceIndexVertexBuffer.Handle(), 0, wgpu.WholeSize)

		if d.multiDrawIndirect {
			for record := 0; record < batch.Count; record++ {
				offset := uint64(batch.Offset+record) * graphics.DrawIndirectArgsSize
				pass.DrawIndirect(d.commandBuffer.Handle(), offset)
			}
		} else {
			for record := 0; record < batch.Count; record++ {
				model := instruction.Models[batch.Offset+record]
				pass.Draw(model.VertexCount, 1, model.VertexOffset, uint32(batch.Offset+record))
			}
		}
	}
}

func (d *modelDrawerImpl) rebuildInstanceBindGroup() error {
	bindGroup, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  modelDrawerName,
		Layout: d.instanceLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  d.instanceDataBuffer.Handle(),
				Offset:  0,
				Size:    wgpu.WholeSize,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create %s bind group: %w", modelDrawerName, err)
	}
	if d.instanceBindGroup != nil {
		d.instanceBindGroup.Release()
	}
	d.instanceBindGroup = bindGroup
	return nil
}

func (d *modelDrawerImpl) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pipeline != nil {
		d.pipeline.Release()
		d.pipeline = nil
	}
	if d.instanceBindGroup != nil {
		d.instanceBindGroup.Release()
		d.instanceBindGroup = nil
	}
	if d.instanceLayout != nil {
		d.instanceLayout.Release()
		d.instanceLayout = nil
	}
	for _, buf := range []interface{ Release() }{d.instanceDataBuffer, d.instanceIndexVertexBuffer, d.commandBuffer} {
		if buf != nil {
			buf.Release()
		}
	}
	d.instanceDataBuffer = nil
	d.instanceIndexVertexBuffer = nil
	d.commandBuffer = nil
}

func createModelPipeline(gpuDevice *wgpu.Device, layouts *graphics.Layouts, pass Pass, instanceLayout *wgpu.BindGroupLayout) (*wgpu.RenderPipeline, error) {
	shaderModule, err := gpuDevice.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: modelDrawerName,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: modelShaderSource,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s shader module: %w", modelDrawerName, err)
	}

	pipelineLayout, err := gpuDevice.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: modelDrawerName,
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			layouts.Global,
			pass.BindGroupLayout(),
			instanceLayout,
			layouts.TextureSet,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline layout: %w", modelDrawerName, err)
	}

	pipeline, err := gpuDevice.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  modelDrawerName,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				graphics.ModelVertexBufferLayout(),
				graphics.InstanceIndexBufferLayout(),
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets:    []wgpu.ColorTargetState{},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            graphics.DepthTextureFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline: %w", modelDrawerName, err)
	}
	return pipeline, nil
}
