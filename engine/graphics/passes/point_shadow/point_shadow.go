package point_shadow

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/engine/device"
	"github.com/gdesatrigraha/korangar/engine/graphics"
	"github.com/gdesatrigraha/korangar/engine/graphics/buffer"
	"github.com/gdesatrigraha/korangar/engine/light"
)

const passName = "point shadow render pass"

// recordCount is the fixed number of uniform records in the pass buffer, one
// per (caster slot, cube face) pair.
const recordCount = light.MaxShadowCasters * light.ShadowFaceCount

// PassUniforms is the per-face uniform record. One record exists per
// (caster slot, cube face) pair, addressed through a dynamic offset.
// Matches the WGSL PassUniforms struct layout exactly.
// Size: 96 bytes.
type PassUniforms struct {
	ViewProjection [16]float32 // offset  0: column-major face view-projection
	LightPosition  [4]float32  // offset 64: world-space light position, w = 1
	AnimationTimer float32     // offset 80
	Padding        [3]uint32   // offset 84: pad to the 16-byte struct alignment
}

// Size returns the size of the PassUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (p *PassUniforms) Size() int {
	return 96
}

// Marshal serializes the PassUniforms struct into a byte buffer suitable for
// GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload
func (p *PassUniforms) Marshal() []byte {
	buf := make([]byte, 96)
	for i, v := range p.ViewProjection {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	for i, v := range p.LightPosition {
		binary.LittleEndian.PutUint32(buf[64+i*4:64+i*4+4], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[80:84], math.Float32bits(p.AnimationTimer))
	return buf
}

// Pass owns the point shadow cube map render pass. A single uniform buffer
// holds one record per (caster, face) pair at device-aligned strides; each
// face pass selects its record with a dynamic offset, so the bind group is
// built once and shared by all thirty-six face passes.
type Pass interface {
	graphics.Preparer

	// BeginPass opens the depth-only render pass targeting one cube face of
	// one caster's shadow map, sets the viewport to the shadow resolution and
	// binds the global group plus the pass group at the face's dynamic
	// offset. The caller ends and releases the returned pass after drawing.
	//
	// Parameters:
	//   - encoder: the frame's command encoder
	//   - context: the shared resource context
	//   - casterIndex: the shadow caster slot, 0 to light.MaxShadowCasters-1
	//   - faceIndex: the cube face, 0 to light.ShadowFaceCount-1
	//
	// Returns:
	//   - *wgpu.RenderPassEncoder: the recording render pass
	BeginPass(encoder *wgpu.CommandEncoder, context graphics.GlobalContext, casterIndex, faceIndex int) *wgpu.RenderPassEncoder

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

	// alignedSize is the record stride, Size() rounded up to the device's
	// minimum uniform buffer offset alignment.
	alignedSize uint64

	layout         *wgpu.BindGroupLayout
	uniformsBuffer buffer.Buffer[byte]
	bindGroup      *wgpu.BindGroup

	uniforms [recordCount]PassUniforms
}

// NewPass creates the point shadow pass context: the dynamic-offset bind
// group layout, the strided uniform buffer covering every (caster, face)
// record and the single bind group windowing one record at a time.
//
// Parameters:
//   - gpu: the wrapped device
//
// Returns:
//   - Pass: the constructed pass context
//   - error: an error if any resource creation failed
func NewPass(gpu device.Device) (Pass, error) {
	p := &passImpl{
		mu:          &sync.Mutex{},
		device:      gpu.Handle(),
		alignedSize: gpu.AlignUniformSize(uint64((&PassUniforms{}).Size())),
	}

	var err error
	p.layout, err = gpu.Handle().CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: passName,
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   uint64((&PassUniforms{}).Size()),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s layout: %w", passName, err)
	}

	p.uniformsBuffer, err = buffer.NewBuffer[byte](
		gpu.Handle(), gpu.Queue(), passName+" uniforms",
		int(p.alignedSize)*recordCount, wgpu.BufferUsageUniform,
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

// Prepare regenerates every (caster, face) record from the frame's shadow
// caster instructions. Slots beyond the instruction list are zeroed; their
// faces are never rendered.
func (p *passImpl) Prepare(instruction *graphics.RenderInstruction) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for slot := 0; slot < light.MaxShadowCasters; slot++ {
		for face := 0; face < light.ShadowFaceCount; face++ {
			record := &p.uniforms[slot*light.ShadowFaceCount+face]
			if slot >= len(instruction.PointShadowCasters) {
				*record = PassUniforms{}
				continue
			}

			caster := &instruction.PointShadowCasters[slot]
			*record = PassUniforms{
				ViewProjection: caster.ViewProjectionMatrices[face],
				LightPosition: [4]float32{
					caster.Position[0],
					caster.Position[1],
					caster.Position[2],
					1,
				},
				AnimationTimer: instruction.Uniforms.AnimationTimer,
			}
		}
	}
}

// Upload serializes every record at its aligned offset and writes the whole
// buffer, rebuilding the bind group if the buffer reallocated.
func (p *passImpl) Upload() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data := make([]byte, p.alignedSize*recordCount)
	for i := range p.uniforms {
		copy(data[uint64(i)*p.alignedSize:], p.uniforms[i].Marshal())
	}

	result, err := p.uniformsBuffer.WriteRaw(data)
	if err != nil {
		return fmt.Errorf("failed to upload %s uniforms: %w", passName, err)
	}
	if result.Reallocated() {
		return p.rebuildBindGroup()
	}
	return nil
}

func (p *passImpl) BeginPass(encoder *wgpu.CommandEncoder, context graphics.GlobalContext, casterIndex, faceIndex int) *wgpu.RenderPassEncoder {
	p.mu.Lock()
	defer p.mu.Unlock()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            passName,
		ColorAttachments: []wgpu.RenderPassColorAttachment{},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            context.PointShadowMapTextures().FaceView(uint32(casterIndex), uint32(faceIndex)),
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})

	shadowSize := float32(context.PointShadowSize())
	pass.SetViewport(0, 0, shadowSize, shadowSize, 0, 1)
	pass.SetBindGroup(0, context.GlobalBindGroup(), nil)
	pass.SetBindGroup(1, p.bindGroup, []uint32{p.faceOffset(casterIndex, faceIndex)})

	return pass
}

func (p *passImpl) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.layout
}

// faceOffset returns the dynamic offset of the (caster, face) record.
func (p *passImpl) faceOffset(casterIndex, faceIndex int) uint32 {
	return uint32(uint64(casterIndex*light.ShadowFaceCount+faceIndex) * p.alignedSize)
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
				// The binding windows a single record; the dynamic offset
				// slides the window.
				Size: uint64((&PassUniforms{}).Size()),
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
