package graphics

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// RenderToTextureFormat is the format of every intermediate color target the
// scene is rendered into. It must store alpha for the forward shader and be
// usable as a storage texture so CMAA2 can re-use the forward color texture.
const RenderToTextureFormat = wgpu.TextureFormatRGBA16Float

// InterfaceTextureFormat is the format of the user interface attachment.
const InterfaceTextureFormat = wgpu.TextureFormatRGBA8UnormSrgb

// InterfaceSampleCount is the fixed sample count of the interface attachment.
// Interface geometry is drawn multisampled regardless of the scene MSAA
// setting and resolved during final composition.
const InterfaceSampleCount = 4

// FxaaColorLumaTextureFormat is the format of the FXAA input attachment, which
// stores color with luma in the alpha channel.
const FxaaColorLumaTextureFormat = wgpu.TextureFormatRGBA8UnormSrgb

// PickerTextureFormat is the format of the picker attachment; two 32-bit
// channels hold the packed picker value.
const PickerTextureFormat = wgpu.TextureFormatRG32Uint

// DepthTextureFormat is the format of all depth attachments, including the
// shadow maps.
const DepthTextureFormat = wgpu.TextureFormatDepth32Float

// TileCountTextureFormat is the format of the per-tile light count storage
// texture written by the light culling pass.
const TileCountTextureFormat = wgpu.TextureFormatR32Uint

// AlphaBlend is the standard source-over blend state for translucent
// geometry and overlays.
var AlphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// WaterAttachmentBlend is the blend state the forward pass uses when
// compositing the water surface: color is darkened by reverse subtraction
// while alpha keeps the maximum coverage.
var WaterAttachmentBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOne,
		Operation: wgpu.BlendOperationReverseSubtract,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOne,
		Operation: wgpu.BlendOperationMax,
	},
}

// Msaa selects the multisample count for the forward color and depth targets.
type Msaa uint32

const (
	MsaaOff Msaa = 1
	Msaa2x  Msaa = 2
	Msaa4x  Msaa = 4
	Msaa8x  Msaa = 8
)

// ParseMsaa maps a configured sample count to an Msaa value. Unsupported
// counts fall back to MsaaOff.
//
// Parameters:
//   - samples: the configured sample count
//
// Returns:
//   - Msaa: the matching mode
func ParseMsaa(samples int) Msaa {
	switch samples {
	case 2:
		return Msaa2x
	case 4:
		return Msaa4x
	case 8:
		return Msaa8x
	default:
		return MsaaOff
	}
}

// SampleCount returns the texture sample count for this mode.
//
// Returns:
//   - uint32: the sample count, 1 when multisampling is off
func (m Msaa) SampleCount() uint32 {
	return uint32(m)
}

// Multisampling reports whether this mode uses more than one sample.
//
// Returns:
//   - bool: true if multisampling is active
func (m Msaa) Multisampling() bool {
	return m > 1
}

// ScreenSpaceAntiAliasing selects the post-process anti-aliasing technique
// applied to the resolved color image.
type ScreenSpaceAntiAliasing int

const (
	// ScreenSpaceAntiAliasingOff applies no post-process anti-aliasing.
	ScreenSpaceAntiAliasingOff ScreenSpaceAntiAliasing = iota
	// ScreenSpaceAntiAliasingFxaa applies fast approximate anti-aliasing in a
	// fullscreen fragment pass.
	ScreenSpaceAntiAliasingFxaa
	// ScreenSpaceAntiAliasingCmaa2 applies conservative morphological
	// anti-aliasing in a chain of compute passes.
	ScreenSpaceAntiAliasingCmaa2
)

// ParseScreenSpaceAntiAliasing maps a configuration string to a technique.
// Unknown values fall back to off.
//
// Parameters:
//   - value: one of "off", "fxaa", "cmaa2"
//
// Returns:
//   - ScreenSpaceAntiAliasing: the matching technique
func ParseScreenSpaceAntiAliasing(value string) ScreenSpaceAntiAliasing {
	switch value {
	case "fxaa":
		return ScreenSpaceAntiAliasingFxaa
	case "cmaa2":
		return ScreenSpaceAntiAliasingCmaa2
	default:
		return ScreenSpaceAntiAliasingOff
	}
}

// String returns the configuration name of the technique.
//
// Returns:
//   - string: one of "off", "fxaa", "cmaa2"
func (s ScreenSpaceAntiAliasing) String() string {
	switch s {
	case ScreenSpaceAntiAliasingFxaa:
		return "fxaa"
	case ScreenSpaceAntiAliasingCmaa2:
		return "cmaa2"
	default:
		return "off"
	}
}
