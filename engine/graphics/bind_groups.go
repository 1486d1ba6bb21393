package graphics

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/engine/graphics/buffer"
	"github.com/gdesatrigraha/korangar/engine/graphics/texture"
	"github.com/gdesatrigraha/korangar/engine/light"
)

// The create*BindGroup functions assemble the shared bind groups from the
// current buffer handles and texture views. They are called at construction
// and again whenever a referenced buffer reallocates or texture is replaced;
// callers release the previous group.

func createGlobalBindGroup(
	device *wgpu.Device,
	layouts *Layouts,
	globalUniformsBuffer buffer.Buffer[GlobalUniforms],
	nearestSampler *wgpu.Sampler,
	linearSampler *wgpu.Sampler,
	textureSampler *wgpu.Sampler,
) (*wgpu.BindGroup, error) {
	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "global",
		Layout: layouts.Global,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: globalUniformsBuffer.Handle(), Size: wgpu.WholeSize},
			{Binding: 1, Sampler: nearestSampler},
			{Binding: 2, Sampler: linearSampler},
			{Binding: 3, Sampler: textureSampler},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create global bind group: %w", err)
	}
	return bindGroup, nil
}

func createLightCullingBindGroup(
	device *wgpu.Device,
	layouts *Layouts,
	pointLightDataBuffer buffer.Buffer[light.PointLightData],
	tileLightCountTexture texture.StorageTexture,
	tileLightIndicesBuffer buffer.Buffer[light.TileLightIndices],
) (*wgpu.BindGroup, error) {
	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "light culling",
		Layout: layouts.LightCulling,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: pointLightDataBuffer.Handle(), Size: wgpu.WholeSize},
			{Binding: 1, TextureView: tileLightCountTexture.View()},
			{Binding: 2, Buffer: tileLightIndicesBuffer.Handle(), Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create light culling bind group: %w", err)
	}
	return bindGroup, nil
}

func createForwardBindGroup(
	device *wgpu.Device,
	layouts *Layouts,
	directionalLightUniformsBuffer buffer.Buffer[light.DirectionalLightUniforms],
	pointLightDataBuffer buffer.Buffer[light.PointLightData],
	tileLightCountTexture texture.StorageTexture,
	tileLightIndicesBuffer buffer.Buffer[light.TileLightIndices],
	directionalShadowMapTexture texture.AttachmentTexture,
	pointShadowMapsTexture texture.CubeArrayTexture,
	shadowSampler *wgpu.Sampler,
) (*wgpu.BindGroup, error) {
	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "forward",
		Layout: layouts.Forward,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: directionalLightUniformsBuffer.Handle(), Size: wgpu.WholeSize},
			{Binding: 1, TextureView: directionalShadowMapTexture.View()},
			{Binding: 2, Buffer: pointLightDataBuffer.Handle(), Size: wgpu.WholeSize},
			{Binding: 3, TextureView: tileLightCountTexture.View()},
			{Binding: 4, Buffer: tileLightIndicesBuffer.Handle(), Size: wgpu.WholeSize},
			{Binding: 5, TextureView: pointShadowMapsTexture.ArrayView()},
			{Binding: 6, Sampler: shadowSampler},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create forward bind group: %w", err)
	}
	return bindGroup, nil
}

func createCmaa2BindGroup(device *wgpu.Device, layouts *Layouts, resources *Cmaa2Resources) (*wgpu.BindGroup, error) {
	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "cmaa2",
		Layout: layouts.Cmaa2,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: resources.EdgesTexture.View()},
			{Binding: 1, Buffer: resources.ControlBuffer.Handle(), Size: wgpu.WholeSize},
			{Binding: 2, Buffer: resources.ShapeCandidatesBuffer.Handle(), Size: wgpu.WholeSize},
			{Binding: 3, Buffer: resources.IndirectBuffer.Handle(), Size: wgpu.WholeSize},
			{Binding: 4, Buffer: resources.DeferredBlendItemListHeadsBuffer.Handle(), Size: wgpu.WholeSize},
			{Binding: 5, Buffer: resources.DeferredBlendItemListBuffer.Handle(), Size: wgpu.WholeSize},
			{Binding: 6, Buffer: resources.DeferredBlendLocationListBuffer.Handle(), Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cmaa2 bind group: %w", err)
	}
	return bindGroup, nil
}

func createCmaa2OutputBindGroup(device *wgpu.Device, layouts *Layouts, outputColorTexture texture.AttachmentTexture) (*wgpu.BindGroup, error) {
	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "cmaa2 output",
		Layout: layouts.Cmaa2Output,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: outputColorTexture.View()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cmaa2 output bind group: %w", err)
	}
	return bindGroup, nil
}

func createDebugBindGroup(
	device *wgpu.Device,
	layouts *Layouts,
	debugUniformsBuffer buffer.Buffer[DebugUniforms],
	pickerTexture texture.AttachmentTexture,
	directionalShadowMapTexture texture.AttachmentTexture,
	tileLightCountTexture texture.StorageTexture,
	pointShadowMapsTexture texture.CubeArrayTexture,
) (*wgpu.BindGroup, error) {
	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "debug",
		Layout: layouts.Debug,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: debugUniformsBuffer.Handle(), Size: wgpu.WholeSize},
			{Binding: 1, TextureView: pickerTexture.View()},
			{Binding: 2, TextureView: directionalShadowMapTexture.View()},
			{Binding: 3, TextureView: tileLightCountTexture.View()},
			{Binding: 4, TextureView: pointShadowMapsTexture.ArrayView()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create debug bind group: %w", err)
	}
	return bindGroup, nil
}
