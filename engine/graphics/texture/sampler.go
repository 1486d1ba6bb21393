package texture

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// SamplerType selects the filtering mode for the configurable texture sampler.
type SamplerType int

const (
	// SamplerTypeNearest disables filtering for a pixelated look.
	SamplerTypeNearest SamplerType = iota
	// SamplerTypeLinear enables bilinear filtering.
	SamplerTypeLinear
	// SamplerTypeAnisotropic enables bilinear filtering with 16x anisotropy.
	SamplerTypeAnisotropic
)

// ParseSamplerType maps a configuration string to a SamplerType.
// Unknown values fall back to SamplerTypeLinear.
//
// Parameters:
//   - value: one of "nearest", "linear", "anisotropic"
//
// Returns:
//   - SamplerType: the matching type
func ParseSamplerType(value string) SamplerType {
	switch value {
	case "nearest":
		return SamplerTypeNearest
	case "anisotropic":
		return SamplerTypeAnisotropic
	default:
		return SamplerTypeLinear
	}
}

// String returns the configuration name of the sampler type.
//
// Returns:
//   - string: one of "nearest", "linear", "anisotropic"
func (s SamplerType) String() string {
	switch s {
	case SamplerTypeNearest:
		return "nearest"
	case SamplerTypeAnisotropic:
		return "anisotropic"
	default:
		return "linear"
	}
}

// NewSampler creates a sampler with the filtering behavior of the given type.
// All samplers repeat in U and V so tiled ground textures wrap correctly.
//
// Parameters:
//   - device: the logical device to allocate on
//   - label: a debug label for the sampler
//   - samplerType: the filtering mode
//
// Returns:
//   - *wgpu.Sampler: the created sampler
//   - error: an error if creation failed
func NewSampler(device *wgpu.Device, label string, samplerType SamplerType) (*wgpu.Sampler, error) {
	filter := wgpu.FilterModeLinear
	mipmapFilter := wgpu.MipmapFilterModeLinear
	maxAnisotropy := uint16(1)

	switch samplerType {
	case SamplerTypeNearest:
		filter = wgpu.FilterModeNearest
		mipmapFilter = wgpu.MipmapFilterModeNearest
	case SamplerTypeAnisotropic:
		maxAnisotropy = 16
	}

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  mipmapFilter,
		LodMinClamp:   0.0,
		LodMaxClamp:   32.0,
		MaxAnisotropy: maxAnisotropy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s sampler %q: %w", samplerType, label, err)
	}
	return sampler, nil
}

// NewShadowSampler creates the comparison sampler the lighting shaders use
// for shadow map lookups. Linear filtering on a comparison sampler gives
// hardware percentage-closer filtering.
//
// Parameters:
//   - device: the logical device to allocate on
//   - label: a debug label for the sampler
//
// Returns:
//   - *wgpu.Sampler: the created sampler
//   - error: an error if creation failed
func NewShadowSampler(device *wgpu.Device, label string) (*wgpu.Sampler, error) {
	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0.0,
		LodMaxClamp:   32.0,
		Compare:       wgpu.CompareFunctionLessEqual,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create shadow sampler %q: %w", label, err)
	}
	return sampler, nil
}
