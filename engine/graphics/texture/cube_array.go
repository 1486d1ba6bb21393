package texture

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// cubeFaceCount is the number of layers per cube in a cube array texture.
const cubeFaceCount = 6

// CubeArrayTexture is an array of cube maps stored in a single layered
// texture. The whole array is sampled through one cube array view, while each
// (cube, face) layer has its own 2D view for use as a depth attachment.
type CubeArrayTexture interface {
	// Texture returns the underlying layered wgpu texture.
	//
	// Returns:
	//   - *wgpu.Texture: the texture handle
	Texture() *wgpu.Texture

	// ArrayView returns the cube array view spanning all cubes, used for
	// sampling in the forward pass.
	//
	// Returns:
	//   - *wgpu.TextureView: the cube array view
	ArrayView() *wgpu.TextureView

	// FaceView returns the 2D view of a single cube face layer, used as the
	// depth attachment when rendering that face.
	//
	// Parameters:
	//   - cube: the cube index, 0 <= cube < CubeCount
	//   - face: the face index, 0 <= face < 6
	//
	// Returns:
	//   - *wgpu.TextureView: the single layer view
	FaceView(cube, face uint32) *wgpu.TextureView

	// CubeCount returns the number of cubes in the array.
	//
	// Returns:
	//   - uint32: the cube count
	CubeCount() uint32

	// FaceSize returns the width and height in texels of each face.
	//
	// Returns:
	//   - uint32: the square face resolution
	FaceSize() uint32

	// Release frees all views and the texture.
	Release()
}

type cubeArrayTextureImpl struct {
	texture   *wgpu.Texture
	arrayView *wgpu.TextureView
	faceViews []*wgpu.TextureView
	cubeCount uint32
	faceSize  uint32
}

var _ CubeArrayTexture = &cubeArrayTextureImpl{}

// NewCubeArrayTexture creates a cube array texture with cubeCount cubes of the
// given square face size, along with its cube array view and one 2D view per
// face layer.
//
// Parameters:
//   - device: the logical device to allocate on
//   - label: a debug label for the texture
//   - faceSize: the width and height in texels of each face
//   - format: the texture format
//   - attachmentType: selects the usage flags
//   - cubeCount: the number of cubes in the array
//
// Returns:
//   - CubeArrayTexture: the created texture
//   - error: an error if texture or view creation failed
func NewCubeArrayTexture(device *wgpu.Device, label string, faceSize uint32, format wgpu.TextureFormat, attachmentType AttachmentType, cubeCount uint32) (CubeArrayTexture, error) {
	layerCount := cubeCount * cubeFaceCount

	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              faceSize,
			Height:             faceSize,
			DepthOrArrayLayers: layerCount,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usageFor(attachmentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cube array texture %q: %w", label, err)
	}

	c := &cubeArrayTextureImpl{
		texture:   tex,
		cubeCount: cubeCount,
		faceSize:  faceSize,
	}

	arrayView, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           label + " array view",
		Format:          format,
		Dimension:       wgpu.TextureViewDimensionCubeArray,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: layerCount,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create cube array view for %q: %w", label, err)
	}
	c.arrayView = arrayView

	c.faceViews = make([]*wgpu.TextureView, layerCount)
	for layer := uint32(0); layer < layerCount; layer++ {
		view, viewErr := tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("%s face view %d", label, layer),
			Format:          format,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    0,
			MipLevelCount:   1,
			BaseArrayLayer:  layer,
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectAll,
		})
		if viewErr != nil {
			c.Release()
			return nil, fmt.Errorf("failed to create face view %d for %q: %w", layer, label, viewErr)
		}
		c.faceViews[layer] = view
	}

	return c, nil
}

func (c *cubeArrayTextureImpl) Texture() *wgpu.Texture {
	return c.texture
}

func (c *cubeArrayTextureImpl) ArrayView() *wgpu.TextureView {
	return c.arrayView
}

func (c *cubeArrayTextureImpl) FaceView(cube, face uint32) *wgpu.TextureView {
	return c.faceViews[cube*cubeFaceCount+face]
}

func (c *cubeArrayTextureImpl) CubeCount() uint32 {
	return c.cubeCount
}

func (c *cubeArrayTextureImpl) FaceSize() uint32 {
	return c.faceSize
}

func (c *cubeArrayTextureImpl) Release() {
	for i, view := range c.faceViews {
		if view != nil {
			view.Release()
			c.faceViews[i] = nil
		}
	}
	if c.arrayView != nil {
		c.arrayView.Release()
		c.arrayView = nil
	}
	if c.texture != nil {
		c.texture.Release()
		c.texture = nil
	}
}
