package graphics

import (
	"github.com/gdesatrigraha/korangar/engine/graphics/texture"
	"github.com/gdesatrigraha/korangar/engine/light"
)

// GlobalContextBuilderOption is a functional option applied to a global
// context during construction via NewGlobalContext.
type GlobalContextBuilderOption func(*globalContextImpl)

// WithMsaa sets the initial multisampling mode. The default is MsaaOff.
//
// Parameters:
//   - msaa: the multisampling mode to start with
//
// Returns:
//   - GlobalContextBuilderOption: a function that applies the multisampling option to a global context
func WithMsaa(msaa Msaa) GlobalContextBuilderOption {
	return func(g *globalContextImpl) {
		g.msaa = msaa
	}
}

// WithScreenSpaceAntiAliasing sets the initial post-process anti-aliasing
// technique. The default is ScreenSpaceAntiAliasingOff.
//
// Parameters:
//   - ssaa: the technique to start with
//
// Returns:
//   - GlobalContextBuilderOption: a function that applies the anti-aliasing option to a global context
func WithScreenSpaceAntiAliasing(ssaa ScreenSpaceAntiAliasing) GlobalContextBuilderOption {
	return func(g *globalContextImpl) {
		g.ssaa = ssaa
	}
}

// WithShadowDetail sets the initial shadow map detail level. The default is
// light.ShadowDetailHigh.
//
// Parameters:
//   - shadowDetail: the detail level to start with
//
// Returns:
//   - GlobalContextBuilderOption: a function that applies the shadow detail option to a global context
func WithShadowDetail(shadowDetail light.ShadowDetail) GlobalContextBuilderOption {
	return func(g *globalContextImpl) {
		g.shadowDetail = shadowDetail
	}
}

// WithTextureSampler sets the initial filtering mode of the model texture
// sampler. The default is texture.SamplerTypeLinear.
//
// Parameters:
//   - samplerType: the filtering mode to start with
//
// Returns:
//   - GlobalContextBuilderOption: a function that applies the sampler option to a global context
func WithTextureSampler(samplerType texture.SamplerType) GlobalContextBuilderOption {
	return func(g *globalContextImpl) {
		g.textureSamplerType = samplerType
	}
}
