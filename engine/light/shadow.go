package light

// MaxShadowCasters is the number of point lights that can cast shadows in a
// single frame. Each caster owns one cube shadow map; casters beyond this
// budget render without shadows.
const MaxShadowCasters = 6

// ShadowFaceCount is the number of faces rendered per point shadow caster,
// one per cube map face.
const ShadowFaceCount = 6

// ShadowFarPlane is the far plane distance of point shadow face projections.
// The shadow shaders normalize stored radial distances by the same value, so
// lights with a larger range lose shadowing beyond it.
const ShadowFarPlane float32 = 256

// DefaultShadowHalfExtent is the default half-size in world units of the
// directional shadow volume centered on the camera target. Larger values
// capture more of the scene but spread the shadow map thinner.
const DefaultShadowHalfExtent float32 = 100

// ShadowDetail selects the resolution tier for shadow map textures. Higher
// tiers sharpen shadow edges at the cost of depth pass fill rate and memory.
type ShadowDetail int

const (
	ShadowDetailLow ShadowDetail = iota
	ShadowDetailMedium
	ShadowDetailHigh
	ShadowDetailUltra
)

// ParseShadowDetail maps a configuration string to a ShadowDetail tier.
// Unknown values fall back to ShadowDetailHigh.
//
// Parameters:
//   - value: one of "low", "medium", "high", "ultra"
//
// Returns:
//   - ShadowDetail: the matching tier
func ParseShadowDetail(value string) ShadowDetail {
	switch value {
	case "low":
		return ShadowDetailLow
	case "medium":
		return ShadowDetailMedium
	case "ultra":
		return ShadowDetailUltra
	default:
		return ShadowDetailHigh
	}
}

// String returns the configuration name of the tier.
//
// Returns:
//   - string: one of "low", "medium", "high", "ultra"
func (d ShadowDetail) String() string {
	switch d {
	case ShadowDetailLow:
		return "low"
	case ShadowDetailMedium:
		return "medium"
	case ShadowDetailUltra:
		return "ultra"
	default:
		return "high"
	}
}

// DirectionalShadowResolution returns the width and height in texels of the
// directional light shadow map for this tier.
//
// Returns:
//   - uint32: the square shadow map resolution
func (d ShadowDetail) DirectionalShadowResolution() uint32 {
	switch d {
	case ShadowDetailLow:
		return 512
	case ShadowDetailMedium:
		return 1024
	case ShadowDetailUltra:
		return 4096
	default:
		return 2048
	}
}

// PointShadowResolution returns the width and height in texels of each point
// light cube shadow map face for this tier.
//
// Returns:
//   - uint32: the square face resolution
func (d ShadowDetail) PointShadowResolution() uint32 {
	switch d {
	case ShadowDetailLow:
		return 128
	case ShadowDetailMedium:
		return 256
	case ShadowDetailUltra:
		return 1024
	default:
		return 512
	}
}
