package directional_shadow

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/engine/device"
	"github.com/gdesatrigraha/korangar/engine/graphics"
	"github.com/gdesatrigraha/korangar/engine/graphics/buffer"
)

const passName = "directional shadow render pass"

// PassUniforms is the per-pass uniform block holding the sun's clip transform.
// Matches the WGSL PassUniforms struct layout exactly.
// Size: 80 bytes.
type PassUniforms struct {
	ViewProjection [16]float32 // offset  0: column-major light view-projection
	AnimationTimer float32     // offset 64
	Padding        [3]uint32   // offset 68: pad to the 16-byte struct alignment
}

// Size returns the size of the PassUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (p *PassUniforms) Size() int {
	return int(unsafe.Sizeof(*p))
}

// Marshal serializes the PassUniforms struct into a byte buffer suitable for
// GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload
func (p *PassUniforms) Marshal() []byte {
	buf := make([]byte, 80)
	for i, v := range p.ViewProjection {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[64:68], math.Float32bits(p.AnimationTimer))
	return buf
}

// Pass owns the directional shadow map render pass: a single uniform record
// with the light's view-projection and the bind group the shadow drawers read
// it through. The pass renders depth only, into the shadow map attachment the
// forward pass later samples.
type Pass interface {
	graphics.Preparer

	// BeginPass opens the depth-only render pass targeting the directional
	// shadow map, sets the viewport to the shadow resolution and binds the
	// global and pass bind groups. The caller ends and releases the returned
	// pass after drawing.
	//
	// Parameters:
	//   - encoder: the frame's command encoder
	//   - context: the shared resource context
	//
	// Returns:
	//   - *wgpu.RenderPassEncoder: the recording render pass
	BeginPass(encoder *wgpu.CommandEncoder, context graphics.GlobalContext) *wgpu.RenderPassEncoder

	// BindGroupLayout returns the pass uniform layout drawers build their
	// pipeline layouts with.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the group 1 layout
	BindGroupLayout() *wgpu.BindGroupLayout

	// Release frees the pass's GPU resources.
	Release()
}

var _ Pass = &passImpl{}

type passImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device

	layout         *wgpu.BindGroupLayout
	uniformsBuffer buffer.Buffer[PassUniforms]
	bindGroup      *wgpu.BindGroup

	uniforms PassUniforms
}

// NewPass creates the directional shadow pass context: its bind group layout,
// the single-record uniform buffer and the bind group tying them together.
//
// Parameters:
//   - gpu: the wrapped device
//
// Returns:
//   - Pass: the constructed pass context
//   - error: an error if any resource creation failed
func NewPass(gpu device.Device) (Pass, error) {
	p := &passImpl{
		mu:     &sync.Mutex{},
		device: gpu.Handle(),
	}

	var err error
	p.layout, err = gpu.Handle().CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: passName,
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64((&PassUniforms{}).Size()),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s layout: %w", passName, err)
	}

	p.uniformsBuffer, err = buffer.NewBuffer[PassUniforms](
		gpu.Handle(), gpu.Queue(), passName+" uniforms", 1, wgpu.BufferUsageUniform,
	)
	if err != nil {
		p.layout.Release()
		return nil, err
	}

	if err = p.rebuildBindGroup(); err != nil {
		p.uniformsBuffer.Release()
		p.layout.Release()
		return nil, err
	}

	return p, nil
}

// Prepare stages the sun's view-projection and the animation timer for the
// frame.
func (p *passImpl) Prepare(instruction *graphics.RenderInstruction) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.uniforms = PassUniforms{
		ViewProjection: instruction.DirectionalLight.ViewProjectionMatrix,
		AnimationTimer: instruction.Uniforms.AnimationTimer,
	}
}

// Upload writes the staged uniforms and rebuilds the bind group if the buffer
// reallocated.
func (p *passImpl) Upload() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	result, err := p.uniformsBuffer.WriteRaw(p.uniforms.Marshal())
	if err != nil {
		return fmt.Errorf("failed to upload %s uniforms: %w", passName, err)
	}
	if result.Reallocated() {
		return p.rebuildBindGroup()
	}
	return nil
}

func (p *passImpl) BeginPass(encoder *wgpu.CommandEncoder, context graphics.GlobalContext) *wgpu.RenderPassEncoder {
	p.mu.Lock()
	defer p.mu.Unlock()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            passName,
		ColorAttachments: []wgpu.RenderPassColorAttachment{},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            context.DirectionalShadowMapTexture().View(),
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})

	shadowSize := float32(context.DirectionalShadowSize())
	pass.SetViewport(0, 0, shadowSize, shadowSize, 0, 1)
	pass.SetBindGroup(0, context.GlobalBindGroup(), nil)
	pass.SetBindGroup(1, p.bindGroup, nil)

	return pass
}

func (p *passImpl) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.layout
}

func (p *passImpl) rebuildBindGroup() error {
	bindGroup, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  passName,
		Layout: p.layout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  p.uniformsBuffer.Handle(),
				Offset:  0,
				Size:    wgpu.WholeSize,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create %s bind group: %w", passName, err)
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
	}
	p.bindGroup = bindGroup
	return nil
}

func (p *passImpl) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.uniformsBuffer != nil {
		p.uniformsBuffer.Release()
		p.uniformsBuffer = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
}
