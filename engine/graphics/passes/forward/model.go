package forward

import (
	_ "embed"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/common"
	"github.com/gdesatrigraha/korangar/engine/device"
	"github.com/gdesatrigraha/korangar/engine/graphics"
	"github.com/gdesatrigraha/korangar/engine/graphics/buffer"
)

//go:embed assets/model.wgsl
var modelShaderSource string

const modelDrawerName = "forward model"
const initialInstructionCapacity = 256

// parallelPrepareThreshold is the model count above which instance matrices
// are computed on the worker pool instead of inline.
const parallelPrepareThreshold = 128

// prepareChunkSize is the number of instructions each pool task processes.
const prepareChunkSize = 64

// InstanceData is the per-model record the forward shaders read. The inverse
// world matrix is stored transposed so the shader can rotate normals without
// deriving it.
// Size: 128 bytes.
type InstanceData struct {
	World        [16]float32
	InverseWorld [16]float32
}

// Size returns the marshalled size of the InstanceData struct in bytes.
func (i *InstanceData) Size() int {
	return 128
}

// ModelDrawer renders the frame's model list into the forward pass. Instance
// preparation runs on the worker pool for large lists; every slot is
// index-addressed so the output order never depends on scheduling.
type ModelDrawer interface {
	graphics.Preparer

	// Draw records the model draws into an open forward render pass.
	//
	// Parameters:
	//   - pass: the pass returned by BeginPass
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
	wireframeCapable  bool

	pool    worker.DynamicWorkerPool
	workers int

	instanceDataBuffer        buffer.Buffer[InstanceData]
	instanceIndexVertexBuffer buffer.Buffer[uint32]
	commandBuffer             buffer.Buffer[graphics.DrawIndirectArgs]
	instanceLayout            *wgpu.BindGroupLayout
	instanceBindGroup         *wgpu.BindGroup
	pipeline                  *wgpu.RenderPipeline

	// wireframePipeline stays nil unless the device can rasterize lines; the
	// drawer then falls back to the solid pipeline.
	wireframePipeline *wgpu.RenderPipeline

	instanceData    []InstanceData
	instanceIndices []uint32
	drawCommands    []graphics.DrawIndirectArgs
}

// NewModelDrawer builds the forward model pipeline and allocates the instance
// and indirect argument buffers. The drawer bakes the current sample count
// into its pipeline, so it is recreated when the MSAA setting changes.
//
// Parameters:
//   - gpu: the wrapped device
//   - layouts: the shared layout registry
//   - msaa: the sample count mode of the forward attachments
//
// Returns:
//   - ModelDrawer: the constructed drawer
//   - error: an error if any resource creation failed
func NewModelDrawer(gpu device.Device, layouts *graphics.Layouts, msaa graphics.Msaa) (ModelDrawer, error) {
	d := &modelDrawerImpl{
		mu:                &sync.Mutex{},
		device:            gpu.Handle(),
		multiDrawIndirect: gpu.Capabilities().MultiDrawIndirect,
		wireframeCapable:  gpu.Capabilities().PolygonModeLine,
		workers:           max(runtime.NumCPU()-1, 1),
	}
	d.pool = worker.NewDynamicWorkerPool(d.workers, 256, 1*time.Second)

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

	if d.pipeline, err = createModelPipeline(gpu.Handle(), layouts, d.instanceLayout, msaa); err != nil {
		d.Release()
		return nil, err
	}

	return d, nil
}

// Prepare regenerates the instance list, the per-instance index stream and
// the indirect argument records from the frame's model instructions. Large
// lists are chunked onto the worker pool; slots are index-addressed so the
// result is identical to the serial path. An empty model list leaves the
// previous staging intact; nothing will be drawn.
func (d *modelDrawerImpl) Prepare(instruction *graphics.RenderInstruction) {
	d.mu.Lock()
	defer d.mu.Unlock()

	count := len(instruction.Models)
	if count == 0 {
		return
	}

	d.instanceData = resizeSlice(d.instanceData, count)
	d.instanceIndices = resizeSlice(d.instanceIndices, count)
	d.drawCommands = resizeSlice(d.drawCommands, count)

	if count < parallelPrepareThreshold {
		d.prepareRange(instruction.Models, 0, count)
		return
	}

	// The pool's Wait blocks until workers idle-exit, so a WaitGroup provides
	// the per-frame barrier instead.
	var wg sync.WaitGroup
	taskID := 0
	for start := 0; start < count; start += prepareChunkSize {
		end := min(start+prepareChunkSize, count)

		wg.Add(1)
		chunkStart, chunkEnd := start, end
		id := taskID
		taskID++
		d.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				d.prepareRange(instruction.Models, chunkStart, chunkEnd)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// prepareRange fills the slots [start, end). Each slot depends only on its
// own instruction, so ranges can run concurrently.
func (d *modelDrawerImpl) prepareRange(models []graphics.ModelInstruction, start, end int) {
	for i := start; i < end; i++ {
		model := &models[i]

		var inverse [16]float32
		if common.Invert4(inverse[:], model.ModelMatrix[:]) {
			common.Transpose4(inverse[:], inverse[:])
		} else {
			common.Identity(inverse[:])
		}

		d.instanceData[i] = InstanceData{
			World:        model.ModelMatrix,
			InverseWorld: inverse,
		}
		d.instanceIndices[i] = uint32(i)
		d.drawCommands[i] = graphics.DrawIndirectArgs{
			VertexCount:   model.VertexCount,
			InstanceCount: 1,
			FirstVertex:   model.VertexOffset,
			FirstInstance: uint32(i),
		}
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

	pipeline := d.pipeline
	if instruction.Debug.ShowWireframe && d.wireframeCapable && d.wireframePipeline != nil {
		pipeline = d.wireframePipeline
	}
	pass.SetPipeline(pipeline)
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

	for _, pipeline := range []*wgpu.RenderPipeline{d.pipeline, d.wireframePipeline} {
		if pipeline != nil {
			pipeline.Release()
		}
	}
	d.pipeline = nil
	d.wireframePipeline = nil

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

func resizeSlice[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}

func createModelPipeline(gpuDevice *wgpu.Device, layouts *graphics.Layouts, instanceLayout *wgpu.BindGroupLayout, msaa graphics.Msaa) (*wgpu.RenderPipeline, error) {
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
			layouts.Forward,
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
			Targets: []wgpu.ColorTargetState{
				{
					Format:    graphics.RenderToTextureFormat,
					Blend:     &graphics.AlphaBlend,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{
			Count: msaa.SampleCount(),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            graphics.DepthTextureFormat,
			DepthWriteEnabled: true,
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
		return nil, fmt.Errorf("failed to create %s pipeline: %w", modelDrawerName, err)
	}
	return pipeline, nil
}
