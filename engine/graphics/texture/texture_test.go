package texture

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestUsageFor(t *testing.T) {
	assert.Equal(t, wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding, usageFor(AttachmentTypeColor))
	assert.Equal(t, wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding|wgpu.TextureUsageStorageBinding, usageFor(AttachmentTypeColorStorage))
	assert.Equal(t, wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopySrc, usageFor(AttachmentTypePicker))
	assert.Equal(t, wgpu.TextureUsageRenderAttachment, usageFor(AttachmentTypeDepth))
	assert.Equal(t, wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding, usageFor(AttachmentTypeDepthSampled))
}

func TestPaddedWidth(t *testing.T) {
	// 8 byte texels (RG32Uint): 1920 * 8 = 15360 bytes, already aligned.
	assert.Equal(t, uint32(1920), PaddedWidth(1920, 8))
	// 1000 * 8 = 8000 bytes, padded up to 8192 bytes = 1024 texels.
	assert.Equal(t, uint32(1024), PaddedWidth(1000, 8))
	// 800 * 8 = 6400 bytes = 25 rows of 256, aligned.
	assert.Equal(t, uint32(800), PaddedWidth(800, 8))
	// 1 byte texels: anything under 256 pads to 256.
	assert.Equal(t, uint32(256), PaddedWidth(100, 1))
}

func TestSamplerTypeRoundTrip(t *testing.T) {
	for _, s := range []SamplerType{SamplerTypeNearest, SamplerTypeLinear, SamplerTypeAnisotropic} {
		assert.Equal(t, s, ParseSamplerType(s.String()))
	}
	assert.Equal(t, SamplerTypeLinear, ParseSamplerType("garbage"))
}

func TestFaceViewIndexing(t *testing.T) {
	c := &cubeArrayTextureImpl{
		faceViews: make([]*wgpu.TextureView, 12),
		cubeCount: 2,
		faceSize:  64,
	}
	marker := &wgpu.TextureView{}
	c.faceViews[7] = marker

	assert.Same(t, marker, c.FaceView(1, 1))
	assert.Nil(t, c.FaceView(0, 0))
	assert.Equal(t, uint32(2), c.CubeCount())
	assert.Equal(t, uint32(64), c.FaceSize())
}
