package model

import (
	"github.com/gdesatrigraha/korangar/engine/graphics"
)

// modelConfig collects the data NewModel consumes. Vertices and textures are
// uploaded during construction and not retained on the model.
type modelConfig struct {
	name     string
	vertices []graphics.ModelVertex
	textures []TextureData
}

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*modelConfig)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier, used in GPU resource labels
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(cfg *modelConfig) {
		cfg.name = name
	}
}

// WithVertices is an option builder that sets the vertex data of the Model.
// Texture indices on the vertices must address the textures given to
// WithTextures.
//
// Parameters:
//   - vertices: the vertices to upload
//
// Returns:
//   - ModelBuilderOption: a function that applies the vertex option to a model
func WithVertices(vertices []graphics.ModelVertex) ModelBuilderOption {
	return func(cfg *modelConfig) {
		cfg.vertices = vertices
	}
}

// WithTextures is an option builder that sets the texture layers of the Model.
// All layers must share the same dimensions, and at most
// graphics.MaxBatchTextureCount layers fit in one model.
//
// Parameters:
//   - textures: the texture layers to upload, in vertex texture index order
//
// Returns:
//   - ModelBuilderOption: a function that applies the texture option to a model
func WithTextures(textures []TextureData) ModelBuilderOption {
	return func(cfg *modelConfig) {
		cfg.textures = textures
	}
}
