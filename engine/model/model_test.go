package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdesatrigraha/korangar/engine/graphics"
)

func rgba(width, height uint32) TextureData {
	return TextureData{
		Width:  width,
		Height: height,
		Pixels: make([]byte, int(width)*int(height)*4),
	}
}

func TestValidateConfigAcceptsMatchingData(t *testing.T) {
	cfg := &modelConfig{
		name: "test",
		vertices: []graphics.ModelVertex{
			{Position: [3]float32{0, 0, 0}, TextureIndex: 0},
			{Position: [3]float32{1, 0, 0}, TextureIndex: 1},
		},
		textures: []TextureData{rgba(4, 4), rgba(4, 4)},
	}

	require.NoError(t, validateConfig(cfg))
}

func TestValidateConfigRejectsMissingData(t *testing.T) {
	err := validateConfig(&modelConfig{
		name:     "test",
		textures: []TextureData{rgba(4, 4)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no vertices")

	err = validateConfig(&modelConfig{
		name:     "test",
		vertices: []graphics.ModelVertex{{TextureIndex: 0}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no textures")
}

func TestValidateConfigRejectsOversizedTextureSet(t *testing.T) {
	textures := make([]TextureData, graphics.MaxBatchTextureCount+1)
	for i := range textures {
		textures[i] = rgba(2, 2)
	}

	err := validateConfig(&modelConfig{
		name:     "test",
		vertices: []graphics.ModelVertex{{TextureIndex: 0}},
		textures: textures,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch limit")
}

func TestValidateConfigRejectsMismatchedLayerDimensions(t *testing.T) {
	err := validateConfig(&modelConfig{
		name:     "test",
		vertices: []graphics.ModelVertex{{TextureIndex: 0}},
		textures: []TextureData{rgba(4, 4), rgba(8, 4)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array layers")
}

func TestValidateConfigRejectsShortPixelData(t *testing.T) {
	short := rgba(4, 4)
	short.Pixels = short.Pixels[:len(short.Pixels)-1]

	err := validateConfig(&modelConfig{
		name:     "test",
		vertices: []graphics.ModelVertex{{TextureIndex: 0}},
		textures: []TextureData{short},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bytes")
}

func TestValidateConfigRejectsOutOfRangeTextureIndex(t *testing.T) {
	err := validateConfig(&modelConfig{
		name:     "test",
		vertices: []graphics.ModelVertex{{TextureIndex: 1}},
		textures: []TextureData{rgba(4, 4)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "references texture")

	err = validateConfig(&modelConfig{
		name:     "test",
		vertices: []graphics.ModelVertex{{TextureIndex: -1}},
		textures: []TextureData{rgba(4, 4)},
	})
	require.Error(t, err)
}

func TestNewModelRejectsInvalidDataBeforeTouchingTheDevice(t *testing.T) {
	// A nil device is safe here because validation runs before any GPU call.
	_, err := NewModel(nil, nil, WithName("broken"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to create model "broken"`)
}

func TestBoundingRadiusCoversFarthestVertex(t *testing.T) {
	vertices := []graphics.ModelVertex{
		{Position: [3]float32{1, 0, 0}},
		{Position: [3]float32{0, -3, 4}},
		{Position: [3]float32{0.5, 0.5, 0.5}},
	}

	assert.InDelta(t, 5.0, boundingRadius(vertices), 1e-5)
	assert.Zero(t, boundingRadius(nil))
}

func TestBuilderOptionsFillTheConfig(t *testing.T) {
	cfg := &modelConfig{}
	vertices := []graphics.ModelVertex{{TextureIndex: 0}}
	textures := []TextureData{rgba(2, 2)}

	for _, option := range []ModelBuilderOption{
		WithName("crate"),
		WithVertices(vertices),
		WithTextures(textures),
	} {
		option(cfg)
	}

	assert.Equal(t, "crate", cfg.name)
	assert.Len(t, cfg.vertices, 1)
	assert.Len(t, cfg.textures, 1)
}
