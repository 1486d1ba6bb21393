// Package model builds the GPU-resident form of a renderable asset: a vertex
// buffer in the shared model vertex layout and the texture array its batches
// sample from. A Model satisfies the texture set contract of the drawers, so
// scenes can point render batches straight at it.
package model

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/chewxy/math32"

	"github.com/gdesatrigraha/korangar/engine/device"
	"github.com/gdesatrigraha/korangar/engine/graphics"
	"github.com/gdesatrigraha/korangar/engine/graphics/buffer"
)

// TextureData is one RGBA image destined for a layer of the model's texture
// array. All layers of one model must share the same dimensions.
type TextureData struct {
	Width  uint32
	Height uint32
	// Pixels holds Width*Height*4 bytes of RGBA data, rows top to bottom.
	Pixels []byte
}

type modelImpl struct {
	name string

	vertexBuffer   buffer.Buffer[graphics.ModelVertex]
	vertexCount    uint32
	boundingRadius float32

	texture     *wgpu.Texture
	textureView *wgpu.TextureView
	bindGroup   *wgpu.BindGroup
}

// Model is a GPU-ready asset: vertices uploaded in the shared model vertex
// layout plus the texture array bind group the model's draws sample from.
type Model interface {
	graphics.TextureSet

	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// VertexBuffer returns the uploaded vertex buffer.
	//
	// Returns:
	//   - buffer.Buffer[graphics.ModelVertex]: the vertex buffer
	VertexBuffer() buffer.Buffer[graphics.ModelVertex]

	// VertexCount returns the number of vertices in the buffer.
	//
	// Returns:
	//   - uint32: the vertex count
	VertexCount() uint32

	// BoundingRadius returns the distance from the model-space origin to the
	// farthest vertex.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// Release frees the model's GPU resources.
	Release()
}

var _ Model = &modelImpl{}

// NewModel uploads the given vertices and textures and builds the texture set
// bind group. The vertex and texture data are required options; construction
// fails without them.
//
// Parameters:
//   - gpu: the wrapped device
//   - layouts: the shared layout registry
//   - options: functional options carrying the model data
//
// Returns:
//   - Model: the constructed model
//   - error: an error if the data is invalid or a GPU resource failed
func NewModel(gpu device.Device, layouts *graphics.Layouts, options ...ModelBuilderOption) (Model, error) {
	cfg := &modelConfig{name: "model"}
	for _, option := range options {
		option(cfg)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to create model %q: %w", cfg.name, err)
	}

	m := &modelImpl{
		name:           cfg.name,
		vertexCount:    uint32(len(cfg.vertices)),
		boundingRadius: boundingRadius(cfg.vertices),
	}

	vertexBuffer, err := buffer.NewBuffer[graphics.ModelVertex](
		gpu.Handle(), gpu.Queue(), cfg.name+" vertices", len(cfg.vertices), wgpu.BufferUsageVertex,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model %q: %w", cfg.name, err)
	}
	m.vertexBuffer = vertexBuffer

	if _, err := vertexBuffer.Write(cfg.vertices); err != nil {
		m.Release()
		return nil, fmt.Errorf("failed to create model %q: %w", cfg.name, err)
	}

	if err := m.createTextureArray(gpu, layouts, cfg); err != nil {
		m.Release()
		return nil, fmt.Errorf("failed to create model %q: %w", cfg.name, err)
	}

	return m, nil
}

func (m *modelImpl) Name() string {
	return m.name
}

func (m *modelImpl) VertexBuffer() buffer.Buffer[graphics.ModelVertex] {
	return m.vertexBuffer
}

func (m *modelImpl) VertexCount() uint32 {
	return m.vertexCount
}

func (m *modelImpl) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *modelImpl) BindGroup() *wgpu.BindGroup {
	return m.bindGroup
}

func (m *modelImpl) Release() {
	if m.bindGroup != nil {
		m.bindGroup.Release()
		m.bindGroup = nil
	}
	if m.textureView != nil {
		m.textureView.Release()
		m.textureView = nil
	}
	if m.texture != nil {
		m.texture.Release()
		m.texture = nil
	}
	if m.vertexBuffer != nil {
		m.vertexBuffer.Release()
		m.vertexBuffer = nil
	}
}

// createTextureArray uploads all texture layers into one 2D array texture and
// builds the texture set bind group around its view.
func (m *modelImpl) createTextureArray(gpu device.Device, layouts *graphics.Layouts, cfg *modelConfig) error {
	width := cfg.textures[0].Width
	height := cfg.textures[0].Height
	layerCount := uint32(len(cfg.textures))

	texture, err := gpu.Handle().CreateTexture(&wgpu.TextureDescriptor{
		Label:     cfg.name + " textures",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: layerCount,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("failed to create texture array: %w", err)
	}
	m.texture = texture

	for layer, textureData := range cfg.textures {
		gpu.Queue().WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  texture,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{Z: uint32(layer)},
				Aspect:   wgpu.TextureAspectAll,
			},
			textureData.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  width * 4,
				RowsPerImage: height,
			},
			&wgpu.Extent3D{
				Width:              width,
				Height:             height,
				DepthOrArrayLayers: 1,
			},
		)
	}

	view, err := texture.CreateView(&wgpu.TextureViewDescriptor{
		Label:           cfg.name + " textures",
		Format:          wgpu.TextureFormatRGBA8UnormSrgb,
		Dimension:       wgpu.TextureViewDimension2DArray,
		MipLevelCount:   1,
		ArrayLayerCount: layerCount,
	})
	if err != nil {
		return fmt.Errorf("failed to create texture array view: %w", err)
	}
	m.textureView = view

	bindGroup, err := gpu.Handle().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  cfg.name + " texture set",
		Layout: layouts.TextureSet,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create texture set bind group: %w", err)
	}
	m.bindGroup = bindGroup

	return nil
}

// validateConfig checks the assembled model data before any GPU resource is
// created.
func validateConfig(cfg *modelConfig) error {
	if len(cfg.vertices) == 0 {
		return fmt.Errorf("no vertices provided")
	}
	if len(cfg.textures) == 0 {
		return fmt.Errorf("no textures provided")
	}
	if len(cfg.textures) > graphics.MaxBatchTextureCount {
		return fmt.Errorf("%d textures exceed the batch limit of %d", len(cfg.textures), graphics.MaxBatchTextureCount)
	}

	width := cfg.textures[0].Width
	height := cfg.textures[0].Height
	for i, textureData := range cfg.textures {
		if textureData.Width != width || textureData.Height != height {
			return fmt.Errorf("texture %d is %dx%d, array layers must all be %dx%d",
				i, textureData.Width, textureData.Height, width, height)
		}
		if expected := int(textureData.Width) * int(textureData.Height) * 4; len(textureData.Pixels) != expected {
			return fmt.Errorf("texture %d holds %d bytes, expected %d", i, len(textureData.Pixels), expected)
		}
	}

	for i, vertex := range cfg.vertices {
		if vertex.TextureIndex < 0 || int(vertex.TextureIndex) >= len(cfg.textures) {
			return fmt.Errorf("vertex %d references texture %d of %d", i, vertex.TextureIndex, len(cfg.textures))
		}
	}

	return nil
}

// boundingRadius returns the distance from the origin to the farthest vertex.
func boundingRadius(vertices []graphics.ModelVertex) float32 {
	var maxSquared float32
	for _, vertex := range vertices {
		p := vertex.Position
		squared := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
		if squared > maxSquared {
			maxSquared = squared
		}
	}
	return math32.Sqrt(maxSquared)
}
