package graphics

import (
	"github.com/gdesatrigraha/korangar/common"
	"github.com/gdesatrigraha/korangar/engine/graphics/buffer"
)

// Uniforms carries the per-frame camera matrices and scalar state shared by
// every pass.
type Uniforms struct {
	// ViewMatrix is the column-major world to camera transform.
	ViewMatrix [16]float32
	// ProjectionMatrix is the column-major camera to clip transform.
	ProjectionMatrix [16]float32
	// AnimationTimer advances sprite and vertex animation, in seconds.
	AnimationTimer float32
	// DayTimer advances the day/night cycle, in seconds.
	DayTimer float32
	// WaterLevel is the world-space height of the water plane.
	WaterLevel float32
	// AmbientLightColor is the scene's ambient light term.
	AmbientLightColor common.Color
}

// DirectionalLightInstruction describes the scene's single shadow-casting
// directional light for one frame.
type DirectionalLightInstruction struct {
	// ViewProjectionMatrix transforms world space into the light's clip space
	// for shadow map rendering and lookups.
	ViewProjectionMatrix [16]float32
	// Direction is the normalized world-space light direction.
	Direction [3]float32
	// Color is the light color.
	Color common.Color
}

// PointLightInstruction describes one point light without shadows.
type PointLightInstruction struct {
	Position [3]float32
	Color    common.Color
	Range    float32
}

// PointShadowCasterInstruction describes one shadow-casting point light,
// including the six per-face view-projection matrices of its cube map.
type PointShadowCasterInstruction struct {
	Position [3]float32
	Color    common.Color
	Range    float32
	// ViewProjectionMatrices holds one matrix per cube face in the order
	// +X, -X, +Y, -Y, +Z, -Z.
	ViewProjectionMatrices [6][16]float32
}

// IndicatorInstruction describes the walk indicator quad projected onto the
// ground under the pointer.
type IndicatorInstruction struct {
	UpperLeft  [3]float32
	UpperRight [3]float32
	LowerLeft  [3]float32
	LowerRight [3]float32
	Color      common.Color
}

// ModelInstruction describes one model draw: a world transform and a vertex
// range within the batch's shared vertex buffer.
type ModelInstruction struct {
	// ModelMatrix is the column-major model to world transform.
	ModelMatrix [16]float32
	// VertexOffset is the first vertex of this model in the batch's buffer.
	VertexOffset uint32
	// VertexCount is the number of vertices to draw.
	VertexCount uint32
}

// ModelBatch groups a contiguous run of model instructions that share a
// texture set and vertex buffer, letting the drawer bind once per batch.
type ModelBatch struct {
	// Offset is the index of the batch's first instruction in Models.
	Offset int
	// Count is the number of instructions in the batch.
	Count int
	// TextureSet is the pre-built texture array bind group for the batch.
	TextureSet TextureSet
	// VertexBuffer holds the batch's model vertices.
	VertexBuffer buffer.Buffer[ModelVertex]
}

// DebugSettings toggles the debug visualization overlays. All fields are
// ignored outside debug-enabled builds of the frontend.
type DebugSettings struct {
	ShowWireframe            bool
	ShowAmbientLight         bool
	ShowDirectionalLight     bool
	ShowPickerBuffer         bool
	ShowDirectionalShadowMap bool
	// ShowPointShadowMap selects a one-based shadow caster slot to display;
	// zero shows nothing.
	ShowPointShadowMap          uint32
	ShowLightCullingCountBuffer bool
	ShowFontAtlas               bool
}

// DefaultDebugSettings returns the debug settings of a regular frame: all
// visualizations off, all light contributions shown.
//
// Returns:
//   - DebugSettings: the default settings
func DefaultDebugSettings() DebugSettings {
	return DebugSettings{
		ShowAmbientLight:     true,
		ShowDirectionalLight: true,
	}
}

// RenderInstruction is the complete immutable description of one frame,
// assembled by the application and consumed read-only by every Prepare
// implementor. The slices must not be mutated until the frame ends.
type RenderInstruction struct {
	Uniforms Uniforms
	// PickerPosition is the pointer position in surface pixels, used to select
	// the picker texel copied out for hover resolution.
	PickerPosition [2]uint32
	// Indicator is the walk indicator to draw, nil for none.
	Indicator *IndicatorInstruction
	// DirectionalLight drives the directional shadow pass and forward lighting.
	DirectionalLight DirectionalLightInstruction
	// PointShadowCasters are the shadow-casting point lights, at most
	// light.MaxShadowCasters of them.
	PointShadowCasters []PointShadowCasterInstruction
	// PointLights are the remaining point lights without shadows.
	PointLights []PointLightInstruction
	// Models is the ordered model draw list, grouped into ModelBatches.
	Models []ModelInstruction
	// ModelBatches partitions Models into texture batches.
	ModelBatches []ModelBatch
	// Debug carries the visualization toggles.
	Debug DebugSettings
}
