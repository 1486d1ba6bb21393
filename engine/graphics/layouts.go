package graphics

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/engine/light"
)

// MaxBatchTextureCount is the maximum number of array layers a texture set
// may carry. Asset providers must split batches that need more textures.
const MaxBatchTextureCount = 30

// shaderStageAll is the visibility mask covering every shader stage.
const shaderStageAll = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment | wgpu.ShaderStageCompute

// TextureSet is the contract an asset provider satisfies to supply the
// per-batch texture resources for model rendering. The bind group must match
// the TextureSet layout of the registry: a filterable 2D array texture at
// binding 0 with at most MaxBatchTextureCount layers.
type TextureSet interface {
	// BindGroup returns the pre-built bind group for this texture set.
	BindGroup() *wgpu.BindGroup
}

// Layouts is the per-device bind group layout registry. It is created once
// when the device is wrapped and passed explicitly to every pass constructor,
// so the binding contracts shared between the global context and the passes
// live in exactly one place.
type Layouts struct {
	// Global is group 0 of every pipeline: global uniforms plus the three
	// shared samplers (nearest, linear, texture).
	Global *wgpu.BindGroupLayout
	// LightCulling is the compute-side view of the tiled light data: point
	// light records, tile count storage texture, tile index lists.
	LightCulling *wgpu.BindGroupLayout
	// Forward is group 1 of the forward pass: directional light uniforms,
	// shadow maps with their comparison sampler, and the culled light
	// structures.
	Forward *wgpu.BindGroupLayout
	// Cmaa2 covers the working buffers shared by all CMAA2 compute stages.
	Cmaa2 *wgpu.BindGroupLayout
	// Cmaa2Output is the single write-only storage view CMAA2 resolves into.
	Cmaa2Output *wgpu.BindGroupLayout
	// Debug is the visualization overlay's view of the internal render
	// targets.
	Debug *wgpu.BindGroupLayout
	// TextureSet is the asset-provider contract for per-batch model textures.
	TextureSet *wgpu.BindGroupLayout
}

// NewLayouts creates every shared bind group layout for the given device.
//
// Parameters:
//   - device: the wgpu device to create the layouts on
//
// Returns:
//   - *Layouts: the populated registry
//   - error: if any layout creation fails
func NewLayouts(device *wgpu.Device) (*Layouts, error) {
	l := &Layouts{}

	var err error
	if l.Global, err = createLayout(device, "global", globalLayoutEntries()); err != nil {
		l.Release()
		return nil, err
	}
	if l.LightCulling, err = createLayout(device, "light culling", lightCullingLayoutEntries()); err != nil {
		l.Release()
		return nil, err
	}
	if l.Forward, err = createLayout(device, "forward", forwardLayoutEntries()); err != nil {
		l.Release()
		return nil, err
	}
	if l.Cmaa2, err = createLayout(device, "cmaa2", cmaa2LayoutEntries()); err != nil {
		l.Release()
		return nil, err
	}
	if l.Cmaa2Output, err = createLayout(device, "cmaa2 output", cmaa2OutputLayoutEntries()); err != nil {
		l.Release()
		return nil, err
	}
	if l.Debug, err = createLayout(device, "debug", debugLayoutEntries()); err != nil {
		l.Release()
		return nil, err
	}
	if l.TextureSet, err = createLayout(device, "texture set", textureSetLayoutEntries()); err != nil {
		l.Release()
		return nil, err
	}

	return l, nil
}

// Release frees every layout the registry holds. Safe to call on a partially
// constructed registry.
func (l *Layouts) Release() {
	for _, layout := range []*wgpu.BindGroupLayout{
		l.Global, l.LightCulling, l.Forward, l.Cmaa2, l.Cmaa2Output, l.Debug, l.TextureSet,
	} {
		if layout != nil {
			layout.Release()
		}
	}
	l.Global = nil
	l.LightCulling = nil
	l.Forward = nil
	l.Cmaa2 = nil
	l.Cmaa2Output = nil
	l.Debug = nil
	l.TextureSet = nil
}

func createLayout(device *wgpu.Device, label string, entries []wgpu.BindGroupLayoutEntry) (*wgpu.BindGroupLayout, error) {
	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s bind group layout: %w", label, err)
	}
	return layout, nil
}

func globalLayoutEntries() []wgpu.BindGroupLayoutEntry {
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: shaderStageAll,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: uint64((&GlobalUniforms{}).Size()),
			},
		},
		{
			// The nearest sampler is declared non-filtering so it can legally
			// pair with depth and integer textures in the debug shaders.
			Binding:    1,
			Visibility: wgpu.ShaderStageFragment,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeNonFiltering},
		},
		{
			Binding:    2,
			Visibility: wgpu.ShaderStageFragment,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
		},
		{
			Binding:    3,
			Visibility: wgpu.ShaderStageFragment,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
		},
	}
}

func lightCullingLayoutEntries() []wgpu.BindGroupLayoutEntry {
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeReadOnlyStorage,
			},
		},
		{
			Binding:    1,
			Visibility: wgpu.ShaderStageCompute,
			StorageTexture: wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessWriteOnly,
				Format:        TileCountTextureFormat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		{
			Binding:    2,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeStorage,
				MinBindingSize: uint64((&light.TileLightIndices{}).Size()),
			},
		},
	}
}

func forwardLayoutEntries() []wgpu.BindGroupLayoutEntry {
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: shaderStageAll,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: uint64((&light.DirectionalLightUniforms{}).Size()),
			},
		},
		{
			Binding:    1,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeDepth,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		{
			Binding:    2,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeReadOnlyStorage,
			},
		},
		{
			Binding:    3,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUint,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		{
			Binding:    4,
			Visibility: wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeReadOnlyStorage,
				MinBindingSize: uint64((&light.TileLightIndices{}).Size()),
			},
		},
		{
			Binding:    5,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeDepth,
				ViewDimension: wgpu.TextureViewDimensionCubeArray,
			},
		},
		{
			Binding:    6,
			Visibility: wgpu.ShaderStageFragment,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison},
		},
	}
}

func cmaa2LayoutEntries() []wgpu.BindGroupLayoutEntry {
	storageBuffer := func(binding uint32, minSize uint64) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeStorage,
				MinBindingSize: minSize,
			},
		}
	}

	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageCompute,
			StorageTexture: wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessReadWrite,
				Format:        wgpu.TextureFormatR8Uint,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		storageBuffer(1, 4),
		storageBuffer(2, 4),
		storageBuffer(3, DispatchIndirectArgsSize),
		storageBuffer(4, 4),
		storageBuffer(5, 8),
		storageBuffer(6, 4),
	}
}

func cmaa2OutputLayoutEntries() []wgpu.BindGroupLayoutEntry {
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageCompute,
			StorageTexture: wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessWriteOnly,
				Format:        RenderToTextureFormat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
	}
}

func debugLayoutEntries() []wgpu.BindGroupLayoutEntry {
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: shaderStageAll,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: uint64((&DebugUniforms{}).Size()),
			},
		},
		{
			Binding:    1,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUint,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		{
			Binding:    2,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeDepth,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		{
			Binding:    3,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUint,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		{
			Binding:    4,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeDepth,
				ViewDimension: wgpu.TextureViewDimensionCubeArray,
			},
		},
	}
}

func textureSetLayoutEntries() []wgpu.BindGroupLayoutEntry {
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2DArray,
			},
		},
	}
}
