package light_culling

import (
	_ "embed"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/engine/device"
	"github.com/gdesatrigraha/korangar/engine/graphics"
	"github.com/gdesatrigraha/korangar/engine/light"
)

//go:embed assets/light_culling.wgsl
var shaderSource string

const dispatcherName = "light culling"

// Dispatcher records the tile light culling compute pass. It assigns every
// point light to the screen tiles its volume may touch, writing a bounded
// index list per tile and the per-tile count the forward shader reads back.
type Dispatcher interface {
	// Dispatch encodes the culling pass, one workgroup per screen tile. Must
	// run after the frame's buffer uploads and before the forward pass.
	//
	// Parameters:
	//   - encoder: the frame's command encoder
	//   - context: the shared resource context holding the culling bind group
	Dispatch(encoder *wgpu.CommandEncoder, context graphics.GlobalContext)

	// Release frees the compute pipeline.
	Release()
}

var _ Dispatcher = &dispatcherImpl{}

type dispatcherImpl struct {
	pipeline *wgpu.ComputePipeline
}

// NewDispatcher compiles the culling shader and builds its compute pipeline
// against the shared global and light culling layouts.
//
// Parameters:
//   - gpu: the wrapped device
//   - layouts: the shared layout registry
//
// Returns:
//   - Dispatcher: the constructed dispatcher
//   - error: an error if shader or pipeline creation failed
func NewDispatcher(gpu device.Device, layouts *graphics.Layouts) (Dispatcher, error) {
	shaderModule, err := gpu.Handle().CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: dispatcherName,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shaderSource,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create light culling shader module: %w", err)
	}

	pipelineLayout, err := gpu.Handle().CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            dispatcherName,
		BindGroupLayouts: []*wgpu.BindGroupLayout{layouts.Global, layouts.LightCulling},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create light culling pipeline layout: %w", err)
	}

	pipeline, err := gpu.Handle().CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  dispatcherName,
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     shaderModule,
			EntryPoint: "cs_main",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create light culling pipeline: %w", err)
	}

	return &dispatcherImpl{pipeline: pipeline}, nil
}

func (d *dispatcherImpl) Dispatch(encoder *wgpu.CommandEncoder, context graphics.GlobalContext) {
	screenSize := context.ScreenSize()
	tileCountX, tileCountY := light.TileCounts(screenSize.Width, screenSize.Height)

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, context.GlobalBindGroup(), nil)
	pass.SetBindGroup(1, context.LightCullingBindGroup(), nil)
	pass.DispatchWorkgroups(tileCountX, tileCountY, 1)
	pass.End()
	pass.Release()
}

func (d *dispatcherImpl) Release() {
	if d.pipeline != nil {
		d.pipeline.Release()
		d.pipeline = nil
	}
}
