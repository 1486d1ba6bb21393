package texture

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/common"
)

// CopyBytesPerRowAlignment is the required row pitch alignment in bytes for
// texture to buffer copies.
const CopyBytesPerRowAlignment uint32 = 256

// AttachmentType selects the usage flags an attachment texture is created with.
type AttachmentType int

const (
	// AttachmentTypeColor is a render target that is later sampled by another pass.
	AttachmentTypeColor AttachmentType = iota
	// AttachmentTypeColorStorage is a color target that is additionally writable
	// as a storage texture, used when CMAA2 modifies the resolved image in place.
	AttachmentTypeColorStorage
	// AttachmentTypePicker is a render target whose contents are copied into a
	// readback buffer after rendering.
	AttachmentTypePicker
	// AttachmentTypeDepth is a depth target that is never sampled.
	AttachmentTypeDepth
	// AttachmentTypeDepthSampled is a depth target sampled by later passes,
	// used for shadow maps.
	AttachmentTypeDepthSampled
)

// usageFor maps an attachment type to its texture usage flags.
func usageFor(attachmentType AttachmentType) wgpu.TextureUsage {
	switch attachmentType {
	case AttachmentTypeColorStorage:
		return wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageStorageBinding
	case AttachmentTypePicker:
		return wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc
	case AttachmentTypeDepth:
		return wgpu.TextureUsageRenderAttachment
	case AttachmentTypeDepthSampled:
		return wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	default:
		return wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	}
}

// AttachmentTexture is a render attachment and its default view.
type AttachmentTexture interface {
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

	// SampleCount returns the multisample count of the texture.
	//
	// Returns:
	//   - uint32: the sample count, 1 when not multisampled
	SampleCount() uint32

	// Size returns the texture dimensions in texels, including any row padding
	// applied for readback alignment.
	//
	// Returns:
	//   - common.ScreenSize: the texture width and height
	Size() common.ScreenSize

	// Release frees the view and texture.
	Release()
}

type attachmentTextureImpl struct {
	texture     *wgpu.Texture
	view        *wgpu.TextureView
	format      wgpu.TextureFormat
	sampleCount uint32
	size        common.ScreenSize
}

var _ AttachmentTexture = &attachmentTextureImpl{}

func (a *attachmentTextureImpl) Texture() *wgpu.Texture {
	return a.texture
}

func (a *attachmentTextureImpl) View() *wgpu.TextureView {
	return a.view
}

func (a *attachmentTextureImpl) Format() wgpu.TextureFormat {
	return a.format
}

func (a *attachmentTextureImpl) SampleCount() uint32 {
	return a.sampleCount
}

func (a *attachmentTextureImpl) Size() common.ScreenSize {
	return a.size
}

func (a *attachmentTextureImpl) Release() {
	if a.view != nil {
		a.view.Release()
		a.view = nil
	}
	if a.texture != nil {
		a.texture.Release()
		a.texture = nil
	}
}

// AttachmentFactory creates attachment textures that share a size and sample
// count. A padded width can be supplied for attachments whose rows must align
// to the copy pitch for readback.
type AttachmentFactory struct {
	device      *wgpu.Device
	size        common.ScreenSize
	sampleCount uint32
	paddedWidth uint32
}

// NewAttachmentFactory creates a factory producing attachments of the given
// size and sample count.
//
// Parameters:
//   - device: the logical device to allocate on
//   - size: the attachment dimensions in texels
//   - sampleCount: the multisample count, 1 for single sampled
//   - paddedWidth: overrides the width when non-zero, used to align readback rows
//
// Returns:
//   - *AttachmentFactory: the configured factory
func NewAttachmentFactory(device *wgpu.Device, size common.ScreenSize, sampleCount, paddedWidth uint32) *AttachmentFactory {
	return &AttachmentFactory{
		device:      device,
		size:        size,
		sampleCount: sampleCount,
		paddedWidth: paddedWidth,
	}
}

// NewAttachment creates an attachment texture with the factory's size and
// sample count and a full default view.
//
// Parameters:
//   - label: a debug label for the texture
//   - format: the texture format
//   - attachmentType: selects the usage flags
//
// Returns:
//   - AttachmentTexture: the created attachment
//   - error: an error if texture or view creation failed
func (f *AttachmentFactory) NewAttachment(label string, format wgpu.TextureFormat, attachmentType AttachmentType) (AttachmentTexture, error) {
	width := f.size.Width
	if f.paddedWidth != 0 {
		width = f.paddedWidth
	}

	tex, err := f.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             f.size.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   f.sampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usageFor(attachmentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", label, err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create view for texture %q: %w", label, err)
	}

	return &attachmentTextureImpl{
		texture:     tex,
		view:        view,
		format:      format,
		sampleCount: f.sampleCount,
		size:        common.ScreenSize{Width: width, Height: f.size.Height},
	}, nil
}

// PaddedWidth returns the smallest width whose row pitch in the given format
// is aligned to CopyBytesPerRowAlignment, for textures that are copied into
// readback buffers.
//
// Parameters:
//   - width: the requested width in texels
//   - blockSize: the byte size of one texel in the target format
//
// Returns:
//   - uint32: the padded width in texels
func PaddedWidth(width, blockSize uint32) uint32 {
	return ((width*blockSize + CopyBytesPerRowAlignment - 1) &^ (CopyBytesPerRowAlignment - 1)) / blockSize
}
