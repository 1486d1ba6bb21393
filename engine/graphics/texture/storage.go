package texture

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// StorageTexture is a texture written by compute shaders through a storage
// binding and read by later passes.
type StorageTexture interface {
	// Texture returns the underlying wgpu texture.
	//
	// Returns:
	//   - *wgpu.Texture: the texture handle
	Texture() *wgpu.Texture

	// View returns the full default view of the texture.
	//
	// Returns:
	//   - *wgpu.TextureView: the view handle
	View() *wgpu.TextureView

	// Format returns the texture format.
	//
	// Returns:
	//   - wgpu.TextureFormat: the format the texture was created with
	Format() wgpu.TextureFormat

	// Release frees the view and texture.
	Release()
}

type storageTextureImpl struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	format  wgpu.TextureFormat
}

var _ StorageTexture = &storageTextureImpl{}

// NewStorageTexture creates a storage texture of the given dimensions with a
// full default view. The texture can also be bound as a sampled texture so
// debug passes can visualize its contents.
//
// Parameters:
//   - device: the logical device to allocate on
//   - label: a debug label for the texture
//   - width: the width in texels
//   - height: the height in texels
//   - format: the texture format
//
// Returns:
//   - StorageTexture: the created texture
//   - error: an error if texture or view creation failed
func NewStorageTexture(device *wgpu.Device, label string, width, height uint32, format wgpu.TextureFormat) (StorageTexture, error) {
	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage texture %q: %w", label, err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create view for storage texture %q: %w", label, err)
	}

	return &storageTextureImpl{
		texture: tex,
		view:    view,
		format:  format,
	}, nil
}

func (s *storageTextureImpl) Texture() *wgpu.Texture {
	return s.texture
}

func (s *storageTextureImpl) View() *wgpu.TextureView {
	return s.view
}

func (s *storageTextureImpl) Format() wgpu.TextureFormat {
	return s.format
}

func (s *storageTextureImpl) Release() {
	if s.view != nil {
		s.view.Release()
		s.view = nil
	}
	if s.texture != nil {
		s.texture.Release()
		s.texture = nil
	}
}
