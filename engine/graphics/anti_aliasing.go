package graphics

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/common"
	"github.com/gdesatrigraha/korangar/engine/graphics/buffer"
	"github.com/gdesatrigraha/korangar/engine/graphics/texture"
)

// FxaaResources holds the single extra attachment FXAA needs: the scene color
// re-encoded with luma in the alpha channel, which the final blit samples.
type FxaaResources struct {
	ColorWithLumaTexture texture.AttachmentTexture
}

// Release frees the FXAA attachment.
func (f *FxaaResources) Release() {
	if f.ColorWithLumaTexture != nil {
		f.ColorWithLumaTexture.Release()
		f.ColorWithLumaTexture = nil
	}
}

// Cmaa2Resources holds the working set of the CMAA2 compute chain: the edge
// candidate texture, the atomic control counters, the indirect dispatch
// arguments produced by the candidate stage, and the deferred blend lists.
type Cmaa2Resources struct {
	EdgesTexture                     texture.StorageTexture
	ControlBuffer                    buffer.Buffer[uint32]
	ShapeCandidatesBuffer            buffer.Buffer[uint32]
	IndirectBuffer                   buffer.Buffer[DispatchIndirectArgs]
	DeferredBlendItemListHeadsBuffer buffer.Buffer[uint32]
	DeferredBlendItemListBuffer      buffer.Buffer[[2]uint32]
	DeferredBlendLocationListBuffer  buffer.Buffer[uint32]
	BindGroup                        *wgpu.BindGroup
}

// Release frees every CMAA2 resource.
func (c *Cmaa2Resources) Release() {
	if c.BindGroup != nil {
		c.BindGroup.Release()
		c.BindGroup = nil
	}
	if c.EdgesTexture != nil {
		c.EdgesTexture.Release()
		c.EdgesTexture = nil
	}
	for _, buf := range []interface{ Release() }{
		c.ControlBuffer,
		c.ShapeCandidatesBuffer,
		c.IndirectBuffer,
		c.DeferredBlendItemListHeadsBuffer,
		c.DeferredBlendItemListBuffer,
		c.DeferredBlendLocationListBuffer,
	} {
		if buf != nil {
			buf.Release()
		}
	}
	c.ControlBuffer = nil
	c.ShapeCandidatesBuffer = nil
	c.IndirectBuffer = nil
	c.DeferredBlendItemListHeadsBuffer = nil
	c.DeferredBlendItemListBuffer = nil
	c.DeferredBlendLocationListBuffer = nil
}

// AntiAliasingResource is a tagged union over the per-technique resources of
// the screen-space anti-aliasing setting. Exactly one payload is non-nil, and
// only when the matching technique is active; construction and destruction
// track the setting one to one.
type AntiAliasingResource struct {
	kind  ScreenSpaceAntiAliasing
	fxaa  *FxaaResources
	cmaa2 *Cmaa2Resources
}

// Kind returns the technique this resource set was built for.
func (a *AntiAliasingResource) Kind() ScreenSpaceAntiAliasing {
	return a.kind
}

// Fxaa returns the FXAA payload.
//
// Returns:
//   - *FxaaResources: the payload, nil unless Kind is fxaa
//   - bool: whether the payload is present
func (a *AntiAliasingResource) Fxaa() (*FxaaResources, bool) {
	return a.fxaa, a.fxaa != nil
}

// Cmaa2 returns the CMAA2 payload.
//
// Returns:
//   - *Cmaa2Resources: the payload, nil unless Kind is cmaa2
//   - bool: whether the payload is present
func (a *AntiAliasingResource) Cmaa2() (*Cmaa2Resources, bool) {
	return a.cmaa2, a.cmaa2 != nil
}

// Release frees whichever payload is present and resets the union to off.
func (a *AntiAliasingResource) Release() {
	if a.fxaa != nil {
		a.fxaa.Release()
		a.fxaa = nil
	}
	if a.cmaa2 != nil {
		a.cmaa2.Release()
		a.cmaa2 = nil
	}
	a.kind = ScreenSpaceAntiAliasingOff
}

// newAntiAliasingResource builds the resource set for the given technique at
// the given screen size. The off technique allocates nothing.
func newAntiAliasingResource(
	device *wgpu.Device,
	queue *wgpu.Queue,
	layouts *Layouts,
	ssaa ScreenSpaceAntiAliasing,
	screenSize common.ScreenSize,
) (AntiAliasingResource, error) {
	switch ssaa {
	case ScreenSpaceAntiAliasingFxaa:
		factory := texture.NewAttachmentFactory(device, screenSize, 1, 0)
		colorWithLuma, err := factory.NewAttachment("fxaa color with luma", FxaaColorLumaTextureFormat, texture.AttachmentTypeColor)
		if err != nil {
			return AntiAliasingResource{}, fmt.Errorf("failed to create fxaa resources: %w", err)
		}
		return AntiAliasingResource{
			kind: ssaa,
			fxaa: &FxaaResources{ColorWithLumaTexture: colorWithLuma},
		}, nil

	case ScreenSpaceAntiAliasingCmaa2:
		resources, err := newCmaa2Resources(device, queue, layouts, screenSize)
		if err != nil {
			return AntiAliasingResource{}, err
		}
		return AntiAliasingResource{kind: ssaa, cmaa2: resources}, nil

	default:
		return AntiAliasingResource{kind: ScreenSpaceAntiAliasingOff}, nil
	}
}

func newCmaa2Resources(
	device *wgpu.Device,
	queue *wgpu.Queue,
	layouts *Layouts,
	screenSize common.ScreenSize,
) (*Cmaa2Resources, error) {
	resources := &Cmaa2Resources{}
	cleanup := func(err error) (*Cmaa2Resources, error) {
		resources.Release()
		return nil, fmt.Errorf("failed to create cmaa2 resources: %w", err)
	}

	edgesWidth, edgesHeight := Cmaa2EdgesTextureSize(screenSize)
	edges, err := texture.NewStorageTexture(device, "cmaa2 edges", edgesWidth, edgesHeight, wgpu.TextureFormatR8Uint)
	if err != nil {
		return cleanup(err)
	}
	resources.EdgesTexture = edges

	if resources.ControlBuffer, err = buffer.NewBuffer[uint32](
		device, queue, "cmaa2 control", 4, wgpu.BufferUsageStorage,
	); err != nil {
		return cleanup(err)
	}
	if resources.IndirectBuffer, err = buffer.NewBuffer[DispatchIndirectArgs](
		device, queue, "cmaa2 indirect", 1, wgpu.BufferUsageStorage|wgpu.BufferUsageIndirect,
	); err != nil {
		return cleanup(err)
	}
	if resources.ShapeCandidatesBuffer, err = buffer.NewBuffer[uint32](
		device, queue, "cmaa2 candidates", Cmaa2ShapeCandidateCount(screenSize), wgpu.BufferUsageStorage,
	); err != nil {
		return cleanup(err)
	}
	if resources.DeferredBlendItemListHeadsBuffer, err = buffer.NewBuffer[uint32](
		device, queue, "cmaa2 deferred blend item list heads", Cmaa2BlendItemHeadCount(screenSize), wgpu.BufferUsageStorage,
	); err != nil {
		return cleanup(err)
	}
	if resources.DeferredBlendItemListBuffer, err = buffer.NewBuffer[[2]uint32](
		device, queue, "cmaa2 deferred blend item list", Cmaa2BlendItemCount(screenSize), wgpu.BufferUsageStorage,
	); err != nil {
		return cleanup(err)
	}
	if resources.DeferredBlendLocationListBuffer, err = buffer.NewBuffer[uint32](
		device, queue, "cmaa2 deferred blend location list", Cmaa2BlendLocationCount(screenSize), wgpu.BufferUsageStorage,
	); err != nil {
		return cleanup(err)
	}

	if resources.BindGroup, err = createCmaa2BindGroup(device, layouts, resources); err != nil {
		return cleanup(err)
	}

	return resources, nil
}

// Cmaa2EdgesTextureSize returns the dimensions of the edge candidate texture:
// two horizontal edge candidates pack into one texel.
//
// Parameters:
//   - screenSize: the render target size in pixels
//
// Returns:
//   - uint32: edge texture width
//   - uint32: edge texture height
func Cmaa2EdgesTextureSize(screenSize common.ScreenSize) (uint32, uint32) {
	return (screenSize.Width + 1) / 2, screenSize.Height
}

// Cmaa2ShapeCandidateCount returns the element capacity of the shape
// candidate buffer, one candidate per four pixels.
func Cmaa2ShapeCandidateCount(screenSize common.ScreenSize) int {
	return clampCmaa2Count(int(screenSize.Width)*int(screenSize.Height)/4, 4)
}

// Cmaa2BlendItemHeadCount returns the element capacity of the deferred blend
// item list head buffer, one head per 2x2 quad.
func Cmaa2BlendItemHeadCount(screenSize common.ScreenSize) int {
	return clampCmaa2Count(int((screenSize.Width+1)/2)*int((screenSize.Height+1)/2), 4)
}

// Cmaa2BlendItemCount returns the element capacity of the deferred blend item
// buffer, one item per two pixels.
func Cmaa2BlendItemCount(screenSize common.ScreenSize) int {
	return clampCmaa2Count(int(screenSize.Width)*int(screenSize.Height)/2, 8)
}

// Cmaa2BlendLocationCount returns the element capacity of the deferred blend
// location buffer, one location per six pixels rounded up.
func Cmaa2BlendLocationCount(screenSize common.ScreenSize) int {
	return clampCmaa2Count((int(screenSize.Width)*int(screenSize.Height)+3)/6, 4)
}

// clampCmaa2Count keeps a buffer element count at least one and its byte size
// under the maximum buffer size. Oversized screens degrade instead of failing.
func clampCmaa2Count(count, stride int) int {
	if count < 1 {
		return 1
	}
	if maxCount := int(buffer.MaxBufferSize) / stride; count > maxCount {
		return maxCount
	}
	return count
}
