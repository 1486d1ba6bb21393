package post_processing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdesatrigraha/korangar/engine/graphics"
	"github.com/gdesatrigraha/korangar/engine/graphics/buffer"
)

func TestOverlayVisibleSelectsDrawableToggles(t *testing.T) {
	tests := []struct {
		name     string
		settings graphics.DebugSettings
		visible  bool
	}{
		{name: "default settings", settings: graphics.DefaultDebugSettings(), visible: false},
		{name: "picker buffer", settings: graphics.DebugSettings{ShowPickerBuffer: true}, visible: true},
		{name: "directional shadow map", settings: graphics.DebugSettings{ShowDirectionalShadowMap: true}, visible: true},
		{name: "point shadow map slot", settings: graphics.DebugSettings{ShowPointShadowMap: 3}, visible: true},
		{name: "light culling count", settings: graphics.DebugSettings{ShowLightCullingCountBuffer: true}, visible: true},
		{name: "font atlas only", settings: graphics.DebugSettings{ShowFontAtlas: true}, visible: false},
		{name: "wireframe only", settings: graphics.DebugSettings{ShowWireframe: true}, visible: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.visible, overlayVisible(tt.settings))
		})
	}
}

func TestCompositeShaderResolvesInterfaceSamples(t *testing.T) {
	assert.Contains(t, compositeShaderSource, "fn vs_main")
	assert.Contains(t, compositeShaderSource, "fn fs_scene")
	assert.Contains(t, compositeShaderSource, "fn fs_fxaa")
	assert.Contains(t, compositeShaderSource, "texture_multisampled_2d<f32>")

	// The loop bound must match the sample count the interface attachment is
	// created with.
	assert.Contains(t, compositeShaderSource,
		fmt.Sprintf("const INTERFACE_SAMPLE_COUNT: u32 = %du;", graphics.InterfaceSampleCount))
}

func TestLumaShaderEncodesLumaInAlpha(t *testing.T) {
	assert.Contains(t, fxaaLumaShaderSource, "dot(color.rgb, vec3<f32>(0.299, 0.587, 0.114))")
	assert.Contains(t, fxaaLumaShaderSource, "return vec4<f32>(color.rgb, luma);")

	// The filter taps in the composite shader rely on that encoding.
	assert.Contains(t, compositeShaderSource, "luma_nw")
	assert.Contains(t, compositeShaderSource, ".a;")
}

func TestFullscreenTriangleExpansionIsShared(t *testing.T) {
	expansion := "let uv = vec2<f32>(f32((vertex_index << 1u) & 2u), f32(vertex_index & 2u));"
	for name, source := range map[string]string{
		"composite": compositeShaderSource,
		"fxaa luma": fxaaLumaShaderSource,
		"debug":     debugShaderSource,
	} {
		assert.Contains(t, source, expansion, "shader %s", name)
	}
}

func TestCmaa2ShadersAgreeOnWorkingSetBindings(t *testing.T) {
	control := "@group(0) @binding(1) var<storage, read_write> control: array<atomic<u32>, 4>;"
	for name, source := range map[string]string{
		"edges":   cmaa2EdgesShaderSource,
		"process": cmaa2ProcessShaderSource,
		"apply":   cmaa2ApplyShaderSource,
	} {
		assert.Contains(t, source, control, "shader %s", name)
		assert.Contains(t, source, "fn cs_main", "shader %s", name)
	}

	input := "@group(1) @binding(0) var input_texture: texture_2d<f32>;"
	assert.Contains(t, cmaa2EdgesShaderSource, input)
	assert.Contains(t, cmaa2ProcessShaderSource, input)

	// The apply stage writes through the storage view, which must carry the
	// render to texture format.
	require.Equal(t, wgpu.TextureFormatRGBA16Float, graphics.RenderToTextureFormat)
	assert.Contains(t, cmaa2ApplyShaderSource, "texture_storage_2d<rgba16float, write>")

	// The indirectly dispatched stages and the group counts computed for them
	// must agree on the workgroup size.
	assert.Contains(t, cmaa2EdgesShaderSource, "const PROCESS_WORKGROUP_SIZE: u32 = 64u;")
	assert.Contains(t, cmaa2ProcessShaderSource, "const APPLY_WORKGROUP_SIZE: u32 = 64u;")
	assert.Contains(t, cmaa2ProcessShaderSource, "@compute @workgroup_size(64)")
	assert.Contains(t, cmaa2ApplyShaderSource, "@compute @workgroup_size(64)")
}

func TestCmaa2EdgeTileSizeMatchesWorkgroupFootprint(t *testing.T) {
	// 8x8 threads per workgroup, each covering a 2x2 pixel quad.
	assert.Contains(t, cmaa2EdgesShaderSource, "@compute @workgroup_size(8, 8)")
	assert.Equal(t, 16, cmaa2EdgeTileSize)
}

func TestCmaa2EdgePackingRoundTrips(t *testing.T) {
	// Stage one packs two pixels per edge texel, four bits each; stage two
	// extracts the nibble of its pixel. The shift expressions must agree.
	assert.Contains(t, cmaa2EdgesShaderSource, "packed |= bits << (u32(column) * 4u);")
	assert.Contains(t, cmaa2ProcessShaderSource, "(texel >> (u32(pixel.x & 1) * 4u)) & 15u")
}

type recordingBuffer[T any] struct {
	writes [][]T
}

var _ buffer.Buffer[uint32] = &recordingBuffer[uint32]{}

func (b *recordingBuffer[T]) Handle() *wgpu.Buffer { return nil }
func (b *recordingBuffer[T]) Label() string        { return "recording" }
func (b *recordingBuffer[T]) Capacity() uint64     { return 0 }
func (b *recordingBuffer[T]) Count() int           { return 0 }

func (b *recordingBuffer[T]) Write(data []T) (buffer.WriteResult, error) {
	b.writes = append(b.writes, append([]T(nil), data...))
	return buffer.WriteUnchanged, nil
}

func (b *recordingBuffer[T]) WriteRaw(data []byte) (buffer.WriteResult, error) {
	return buffer.WriteUnchanged, nil
}

func (b *recordingBuffer[T]) Release() {}

func TestCmaa2UploadResetsCounters(t *testing.T) {
	control := &recordingBuffer[uint32]{}
	indirect := &recordingBuffer[graphics.DispatchIndirectArgs]{}
	drawer := &cmaa2DrawerImpl{resources: &graphics.Cmaa2Resources{
		ControlBuffer:  control,
		IndirectBuffer: indirect,
	}}

	require.NoError(t, drawer.Upload())

	require.Len(t, control.writes, 1)
	assert.Equal(t, []uint32{0, 0, 0, 0}, control.writes[0])

	// One workgroup row, zero groups until the edge stage raises the count.
	require.Len(t, indirect.writes, 1)
	require.Len(t, indirect.writes[0], 1)
	assert.Equal(t, graphics.DispatchIndirectArgs{X: 0, Y: 1, Z: 1}, indirect.writes[0][0])
}

func TestDebugShaderVisualizesEachToggle(t *testing.T) {
	for _, field := range []string{
		"show_picker_buffer",
		"show_directional_shadow_map",
		"show_point_shadow_map",
		"show_light_culling_count_buffer",
	} {
		assert.True(t, strings.Contains(debugShaderSource, field+" != 0u"), "toggle %s", field)
	}

	// Pixels with no enabled visualization keep the composited frame.
	assert.Contains(t, debugShaderSource, "discard;")

	// The tile heat map divides by the culling tile size.
	assert.Contains(t, debugShaderSource, "const TILE_SIZE: u32 = 16u;")
}
