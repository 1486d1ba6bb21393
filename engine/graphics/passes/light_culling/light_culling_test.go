package light_culling

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gdesatrigraha/korangar/engine/light"
)

// The shader's tile constants must stay in lockstep with the Go side; the
// dispatch covers one workgroup per tile of light.TileSize pixels.
func TestShaderMatchesTileConstants(t *testing.T) {
	assert.Contains(t, shaderSource, "fn cs_main")
	assert.Contains(t, shaderSource, fmt.Sprintf("const TILE_SIZE: u32 = %du;", light.TileSize))
	assert.Contains(t, shaderSource, fmt.Sprintf("const MAX_LIGHTS_PER_TILE: u32 = %du;", light.MaxLightsPerTile))
	assert.Contains(t, shaderSource, fmt.Sprintf("@workgroup_size(%d, %d, 1)", light.TileSize, light.TileSize))
	assert.Contains(t, shaderSource, fmt.Sprintf("array<u32, %d>", light.MaxLightsPerTile))
}

func TestShaderBindingsMatchLayout(t *testing.T) {
	for _, binding := range []string{
		"@group(0) @binding(0) var<uniform> global_uniforms",
		"@group(1) @binding(0) var<storage, read> point_lights",
		"@group(1) @binding(1) var tile_light_count_texture: texture_storage_2d<r32uint, write>",
		"@group(1) @binding(2) var<storage, read_write> tile_light_indices",
	} {
		assert.True(t, strings.Contains(shaderSource, binding), "missing binding declaration: %s", binding)
	}
}
