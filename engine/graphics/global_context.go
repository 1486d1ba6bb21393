package graphics

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/common"
	"github.com/gdesatrigraha/korangar/engine/device"
	"github.com/gdesatrigraha/korangar/engine/graphics/buffer"
	"github.com/gdesatrigraha/korangar/engine/graphics/texture"
	"github.com/gdesatrigraha/korangar/engine/light"
)

// initialPointLightCapacity is the number of point light records the point
// light buffer reserves up front. Scenes with more lights trigger one
// reallocation and bind group rebuild when first exceeded.
const initialPointLightCapacity = 128

// pickerBlockSize is the byte size of one picker attachment texel, used to
// pad the attachment width to the copy row alignment.
const pickerBlockSize = 8

// Preparer is the per-frame staging contract shared by the global context and
// every pass drawer. Prepare recomputes CPU-side state from the frame's
// instruction snapshot; Upload writes the staged bytes to the GPU and rebuilds
// any bind groups whose buffers reallocated. The renderer calls Prepare on
// every implementor before calling Upload on any of them.
type Preparer interface {
	// Prepare stages CPU-side frame state from the instruction snapshot.
	//
	// Parameters:
	//   - instruction: the frame's immutable instruction set
	Prepare(instruction *RenderInstruction)

	// Upload writes the staged state to the GPU.
	//
	// Returns:
	//   - error: an error if a buffer write or bind group rebuild failed
	Upload() error
}

// GlobalContext owns every GPU resource shared by multiple passes: the
// attachment textures, the per-frame uniform and storage buffers, the shared
// samplers, and the bind groups tying them together. Screen-size, shadow-size,
// MSAA, anti-aliasing, and sampler changes are routed through the narrow
// Update methods, each of which recreates only the resources its name implies.
type GlobalContext interface {
	Preparer

	// ScreenSize returns the current render target size in pixels.
	ScreenSize() common.ScreenSize

	// Msaa returns the active multisampling setting.
	Msaa() Msaa

	// ScreenSpaceAntiAliasing returns the active post-process AA technique.
	ScreenSpaceAntiAliasing() ScreenSpaceAntiAliasing

	// DirectionalShadowSize returns the directional shadow map resolution.
	DirectionalShadowSize() uint32

	// PointShadowSize returns the point shadow cube face resolution.
	PointShadowSize() uint32

	// ForwardColorTexture returns the forward pass color target.
	ForwardColorTexture() texture.AttachmentTexture

	// ForwardDepthTexture returns the forward pass depth target.
	ForwardDepthTexture() texture.AttachmentTexture

	// ResolvedColorTexture returns the single-sample resolve target, nil
	// unless multisampling is active.
	ResolvedColorTexture() texture.AttachmentTexture

	// ColorTexture returns the texture later passes read the scene color
	// from: the resolve target when multisampling, the forward color target
	// otherwise.
	ColorTexture() texture.AttachmentTexture

	// PickerTexture returns the picker attachment.
	PickerTexture() texture.AttachmentTexture

	// PickerDepthTexture returns the picker pass depth target.
	PickerDepthTexture() texture.AttachmentTexture

	// InterfaceTexture returns the user interface attachment.
	InterfaceTexture() texture.AttachmentTexture

	// DirectionalShadowMapTexture returns the directional shadow depth map.
	DirectionalShadowMapTexture() texture.AttachmentTexture

	// PointShadowMapTextures returns the point shadow cube array.
	PointShadowMapTextures() texture.CubeArrayTexture

	// TileLightCountTexture returns the per-tile light count storage texture.
	TileLightCountTexture() texture.StorageTexture

	// AntiAliasingResources returns the technique-specific AA resource union.
	AntiAliasingResources() *AntiAliasingResource

	// GlobalBindGroup returns group 0 of every pipeline.
	GlobalBindGroup() *wgpu.BindGroup

	// LightCullingBindGroup returns the light culling compute bind group.
	LightCullingBindGroup() *wgpu.BindGroup

	// ForwardBindGroup returns group 1 of the forward pass.
	ForwardBindGroup() *wgpu.BindGroup

	// DebugBindGroup returns the debug visualization bind group.
	DebugBindGroup() *wgpu.BindGroup

	// RecordPickerValueCopy encodes the end-of-frame copy of the hovered
	// picker texel into the readback buffer.
	//
	// Parameters:
	//   - encoder: the frame's command encoder
	//   - position: the pointer position in surface pixels
	//
	// Returns:
	//   - error: an error if the copy could not be encoded
	RecordPickerValueCopy(encoder *wgpu.CommandEncoder, position [2]uint32) error

	// ReadHoveredTarget resolves the picker value copied during the previous
	// frame. It may wait for that frame's GPU work to finish, so callers
	// should invoke it at the start of a frame rather than inside one.
	//
	// Returns:
	//   - PickerTarget: the decoded hover target
	//   - error: an error if the readback buffer could not be mapped
	ReadHoveredTarget() (PickerTarget, error)

	// UpdateScreenSizeResources recreates every screen-size texture and the
	// tile index buffer for the new size, then rebuilds the bind groups that
	// reference them. Shadow resources and the global bind group are not
	// touched.
	//
	// Parameters:
	//   - screenSize: the new render target size in pixels
	//
	// Returns:
	//   - error: an error if any resource creation failed
	UpdateScreenSizeResources(screenSize common.ScreenSize) error

	// UpdateShadowSizeTextures recreates the two shadow map textures at the
	// new detail level and rebuilds the forward and debug bind groups.
	//
	// Parameters:
	//   - shadowDetail: the new shadow detail level
	//
	// Returns:
	//   - error: an error if any resource creation failed
	UpdateShadowSizeTextures(shadowDetail light.ShadowDetail) error

	// UpdateTextureSampler recreates the model texture sampler and rebuilds
	// the global bind group. Nothing else is touched.
	//
	// Parameters:
	//   - samplerType: the new filtering mode
	//
	// Returns:
	//   - error: an error if sampler or bind group creation failed
	UpdateTextureSampler(samplerType texture.SamplerType) error

	// UpdateMsaa recreates the forward color and depth targets and the
	// resolve target with the new sample count. No bind groups reference
	// these, so none are rebuilt.
	//
	// Parameters:
	//   - msaa: the new multisampling setting
	//
	// Returns:
	//   - error: an error if any texture creation failed
	UpdateMsaa(msaa Msaa) error

	// UpdateScreenSpaceAntiAliasing swaps the AA resource union and rebuilds
	// the forward color targets, whose storage usage depends on the
	// technique.
	//
	// Parameters:
	//   - ssaa: the new post-process AA technique
	//
	// Returns:
	//   - error: an error if any resource creation failed
	UpdateScreenSpaceAntiAliasing(ssaa ScreenSpaceAntiAliasing) error

	// Release frees every GPU resource the context owns. The shared layout
	// registry is not released; its lifetime is managed by the caller.
	Release()
}

var _ GlobalContext = &globalContextImpl{}

type globalContextImpl struct {
	mu      *sync.Mutex
	device  *wgpu.Device
	queue   *wgpu.Queue
	layouts *Layouts

	screenSize         common.ScreenSize
	msaa               Msaa
	ssaa               ScreenSpaceAntiAliasing
	shadowDetail       light.ShadowDetail
	textureSamplerType texture.SamplerType

	forwardColorTexture         texture.AttachmentTexture
	forwardDepthTexture         texture.AttachmentTexture
	resolvedColorTexture        texture.AttachmentTexture
	pickerTexture               texture.AttachmentTexture
	pickerDepthTexture          texture.AttachmentTexture
	interfaceTexture            texture.AttachmentTexture
	directionalShadowMapTexture texture.AttachmentTexture
	pointShadowMapTextures      texture.CubeArrayTexture
	tileLightCountTexture       texture.StorageTexture

	globalUniformsBuffer           buffer.Buffer[GlobalUniforms]
	directionalLightUniformsBuffer buffer.Buffer[light.DirectionalLightUniforms]
	pointLightDataBuffer           buffer.Buffer[light.PointLightData]
	debugUniformsBuffer            buffer.Buffer[DebugUniforms]
	tileLightIndicesBuffer         buffer.Buffer[light.TileLightIndices]

	antiAliasingResources AntiAliasingResource
	picker                *pickerReadback

	nearestSampler *wgpu.Sampler
	linearSampler  *wgpu.Sampler
	textureSampler *wgpu.Sampler
	shadowSampler  *wgpu.Sampler

	globalBindGroup       *wgpu.BindGroup
	lightCullingBindGroup *wgpu.BindGroup
	forwardBindGroup      *wgpu.BindGroup
	debugBindGroup        *wgpu.BindGroup

	globalUniforms           GlobalUniforms
	directionalLightUniforms light.DirectionalLightUniforms
	pointLightData           []light.PointLightData
	debugUniforms            DebugUniforms
}

// screenSizeTextures bundles the attachments that share the screen's pixel
// dimensions and are recreated together.
type screenSizeTextures struct {
	forwardColorTexture   texture.AttachmentTexture
	forwardDepthTexture   texture.AttachmentTexture
	pickerTexture         texture.AttachmentTexture
	pickerDepthTexture    texture.AttachmentTexture
	interfaceTexture      texture.AttachmentTexture
	tileLightCountTexture texture.StorageTexture
}

func (s *screenSizeTextures) release() {
	for _, tex := range []texture.AttachmentTexture{
		s.forwardColorTexture, s.forwardDepthTexture, s.pickerTexture, s.pickerDepthTexture, s.interfaceTexture,
	} {
		if tex != nil {
			tex.Release()
		}
	}
	if s.tileLightCountTexture != nil {
		s.tileLightCountTexture.Release()
	}
}

// NewGlobalContext allocates the full shared resource set for the given
// screen size and settings: attachments, shadow maps, uniform and storage
// buffers, samplers, the AA resource union, and the initial bind groups.
//
// Parameters:
//   - gpu: the wrapped device whose handle and queue own the resources
//   - layouts: the shared layout registry created at device wrap time
//   - screenSize: the initial render target size in pixels
//   - opts: optional overrides for the initial settings
//
// Returns:
//   - GlobalContext: the constructed context
//   - error: an error if any resource creation failed
func NewGlobalContext(gpu device.Device, layouts *Layouts, screenSize common.ScreenSize, opts ...GlobalContextBuilderOption) (GlobalContext, error) {
	g := &globalContextImpl{
		mu:                 &sync.Mutex{},
		device:             gpu.Handle(),
		queue:              gpu.Queue(),
		layouts:            layouts,
		screenSize:         screenSize,
		msaa:               MsaaOff,
		ssaa:               ScreenSpaceAntiAliasingOff,
		shadowDetail:       light.ShadowDetailHigh,
		textureSamplerType: texture.SamplerTypeLinear,
	}
	for _, opt := range opts {
		opt(g)
	}

	if err := g.createResources(); err != nil {
		g.Release()
		return nil, err
	}
	return g, nil
}

// createResources builds every owned resource from the current settings.
// Called once from the constructor with all fields empty.
func (g *globalContextImpl) createResources() error {
	screenTextures, err := createScreenSizeTextures(g.device, g.screenSize, g.msaa, g.ssaa)
	if err != nil {
		return err
	}
	g.adoptScreenSizeTextures(screenTextures)

	if g.resolvedColorTexture, err = createResolvedColorTexture(g.device, g.screenSize, g.msaa, g.ssaa); err != nil {
		return err
	}

	if g.directionalShadowMapTexture, err = createDirectionalShadowTexture(g.device, g.shadowDetail.DirectionalShadowResolution()); err != nil {
		return err
	}
	if g.pointShadowMapTextures, err = createPointShadowTextures(g.device, g.shadowDetail.PointShadowResolution()); err != nil {
		return err
	}

	if g.picker, err = newPickerReadback(g.device); err != nil {
		return err
	}

	if g.globalUniformsBuffer, err = buffer.NewBuffer[GlobalUniforms](
		g.device, g.queue, "global uniforms", 1, wgpu.BufferUsageUniform,
	); err != nil {
		return err
	}
	if g.directionalLightUniformsBuffer, err = buffer.NewBuffer[light.DirectionalLightUniforms](
		g.device, g.queue, "directional light uniforms", 1, wgpu.BufferUsageUniform,
	); err != nil {
		return err
	}
	if g.debugUniformsBuffer, err = buffer.NewBuffer[DebugUniforms](
		g.device, g.queue, "debug uniforms", 1, wgpu.BufferUsageUniform,
	); err != nil {
		return err
	}
	if g.pointLightDataBuffer, err = buffer.NewBuffer[light.PointLightData](
		g.device, g.queue, "point light data", initialPointLightCapacity, wgpu.BufferUsageStorage,
	); err != nil {
		return err
	}
	if g.tileLightIndicesBuffer, err = createTileLightIndicesBuffer(g.device, g.queue, g.screenSize); err != nil {
		return err
	}

	if g.nearestSampler, err = texture.NewSampler(g.device, "nearest", texture.SamplerTypeNearest); err != nil {
		return err
	}
	if g.linearSampler, err = texture.NewSampler(g.device, "linear", texture.SamplerTypeLinear); err != nil {
		return err
	}
	if g.textureSampler, err = texture.NewSampler(g.device, "texture", g.textureSamplerType); err != nil {
		return err
	}
	if g.shadowSampler, err = texture.NewShadowSampler(g.device, "shadow"); err != nil {
		return err
	}

	if g.antiAliasingResources, err = newAntiAliasingResource(g.device, g.queue, g.layouts, g.ssaa, g.screenSize); err != nil {
		return err
	}

	if err = g.rebuildGlobalBindGroup(); err != nil {
		return err
	}
	if err = g.rebuildLightCullingBindGroup(); err != nil {
		return err
	}
	if err = g.rebuildForwardBindGroup(); err != nil {
		return err
	}
	if err = g.rebuildDebugBindGroup(); err != nil {
		return err
	}

	return nil
}

func (g *globalContextImpl) adoptScreenSizeTextures(textures screenSizeTextures) {
	g.forwardColorTexture = textures.forwardColorTexture
	g.forwardDepthTexture = textures.forwardDepthTexture
	g.pickerTexture = textures.pickerTexture
	g.pickerDepthTexture = textures.pickerDepthTexture
	g.interfaceTexture = textures.interfaceTexture
	g.tileLightCountTexture = textures.tileLightCountTexture
}

// Prepare recomputes the frame's uniform structs and the contiguous point
// light list from the instruction snapshot. Shadow casting lights come first
// so their list index matches their cube array slot; their texture index is
// that slot plus one, leaving zero to mean no shadow. Debug toggles that hide
// a light contribution blank the corresponding color instead of branching in
// the shaders.
func (g *globalContextImpl) Prepare(instruction *RenderInstruction) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pointLightData = g.pointLightData[:0]

	ambientColor := instruction.Uniforms.AmbientLightColor
	if !instruction.Debug.ShowAmbientLight {
		ambientColor = common.ColorBlack
	}

	directionalColor := instruction.DirectionalLight.Color
	if !instruction.Debug.ShowDirectionalLight {
		directionalColor = common.ColorBlack
	}

	var indicatorPositions [16]float32
	indicatorColor := common.ColorWhite
	if indicator := instruction.Indicator; indicator != nil {
		indicatorPositions = indicatorCornerMatrix(indicator)
		indicatorColor = indicator.Color
	}

	var viewProjection [16]float32
	common.Mul4(viewProjection[:], instruction.Uniforms.ProjectionMatrix[:], instruction.Uniforms.ViewMatrix[:])

	var inverseView [16]float32
	common.Identity(inverseView[:])
	common.Invert4(inverseView[:], instruction.Uniforms.ViewMatrix[:])

	var inverseProjection [16]float32
	common.Identity(inverseProjection[:])
	common.Invert4(inverseProjection[:], instruction.Uniforms.ProjectionMatrix[:])

	g.globalUniforms = GlobalUniforms{
		ViewProjection:     viewProjection,
		View:               instruction.Uniforms.ViewMatrix,
		InverseView:        inverseView,
		InverseProjection:  inverseProjection,
		IndicatorPositions: indicatorPositions,
		IndicatorColor:     indicatorColor.Components(),
		AmbientColor:       ambientColor.Components(),
		ScreenSize:         [2]uint32{g.screenSize.Width, g.screenSize.Height},
		PointerPosition:    instruction.PickerPosition,
		AnimationTimer:     instruction.Uniforms.AnimationTimer,
		DayTimer:           instruction.Uniforms.DayTimer,
		WaterLevel:         instruction.Uniforms.WaterLevel,
		PointLightCount:    uint32(len(instruction.PointShadowCasters) + len(instruction.PointLights)),
	}

	g.directionalLightUniforms = light.DirectionalLightUniforms{
		ViewProjection: instruction.DirectionalLight.ViewProjectionMatrix,
		Color:          directionalColor.Components(),
		Direction: [4]float32{
			instruction.DirectionalLight.Direction[0],
			instruction.DirectionalLight.Direction[1],
			instruction.DirectionalLight.Direction[2],
			0,
		},
	}

	for casterIndex, caster := range instruction.PointShadowCasters {
		g.pointLightData = append(g.pointLightData, light.PointLightData{
			Position:     [4]float32{caster.Position[0], caster.Position[1], caster.Position[2], 1},
			Color:        caster.Color.Components(),
			Range:        caster.Range,
			TextureIndex: int32(casterIndex + 1),
		})
	}
	for _, pointLight := range instruction.PointLights {
		g.pointLightData = append(g.pointLightData, light.PointLightData{
			Position:     [4]float32{pointLight.Position[0], pointLight.Position[1], pointLight.Position[2], 1},
			Color:        pointLight.Color.Components(),
			Range:        pointLight.Range,
			TextureIndex: 0,
		})
	}

	g.debugUniforms = DebugUniforms{
		ShowPickerBuffer:            boolUint32(instruction.Debug.ShowPickerBuffer),
		ShowDirectionalShadowMap:    boolUint32(instruction.Debug.ShowDirectionalShadowMap),
		ShowPointShadowMap:          instruction.Debug.ShowPointShadowMap,
		ShowLightCullingCountBuffer: boolUint32(instruction.Debug.ShowLightCullingCountBuffer),
		ShowFontAtlas:               boolUint32(instruction.Debug.ShowFontAtlas),
	}
}

// Upload writes the staged uniform and light data to the GPU. The point light
// write is skipped entirely when the frame has no point lights; the count
// uniform already carries the zero. Bind groups are rebuilt at most once per
// frame, and only if one of the writes reallocated its buffer.
func (g *globalContextImpl) Upload() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	recreated, err := g.globalUniformsBuffer.WriteRaw(g.globalUniforms.Marshal())
	if err != nil {
		return fmt.Errorf("failed to upload global uniforms: %w", err)
	}

	result, err := g.directionalLightUniformsBuffer.WriteRaw(g.directionalLightUniforms.Marshal())
	if err != nil {
		return fmt.Errorf("failed to upload directional light uniforms: %w", err)
	}
	recreated = recreated.Or(result)

	if len(g.pointLightData) > 0 {
		result, err = g.pointLightDataBuffer.WriteRaw(light.MarshalPointLightData(g.pointLightData))
		if err != nil {
			return fmt.Errorf("failed to upload point light data: %w", err)
		}
		recreated = recreated.Or(result)
	}

	result, err = g.debugUniformsBuffer.WriteRaw(g.debugUniforms.Marshal())
	if err != nil {
		return fmt.Errorf("failed to upload debug uniforms: %w", err)
	}
	recreated = recreated.Or(result)

	if recreated.Reallocated() {
		if err = g.rebuildGlobalBindGroup(); err != nil {
			return err
		}
		if err = g.rebuildLightCullingBindGroup(); err != nil {
			return err
		}
		if err = g.rebuildForwardBindGroup(); err != nil {
			return err
		}
		if err = g.rebuildDebugBindGroup(); err != nil {
			return err
		}
	}

	return nil
}

func (g *globalContextImpl) ScreenSize() common.ScreenSize {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.screenSize
}

func (g *globalContextImpl) Msaa() Msaa {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.msaa
}

func (g *globalContextImpl) ScreenSpaceAntiAliasing() ScreenSpaceAntiAliasing {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ssaa
}

func (g *globalContextImpl) DirectionalShadowSize() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shadowDetail.DirectionalShadowResolution()
}

func (g *globalContextImpl) PointShadowSize() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shadowDetail.PointShadowResolution()
}

func (g *globalContextImpl) ForwardColorTexture() texture.AttachmentTexture {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.forwardColorTexture
}

func (g *globalContextImpl) ForwardDepthTexture() texture.AttachmentTexture {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.forwardDepthTexture
}

func (g *globalContextImpl) ResolvedColorTexture() texture.AttachmentTexture {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resolvedColorTexture
}

func (g *globalContextImpl) ColorTexture() texture.AttachmentTexture {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resolvedColorTexture != nil {
		return g.resolvedColorTexture
	}
	return g.forwardColorTexture
}

func (g *globalContextImpl) PickerTexture() texture.AttachmentTexture {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pickerTexture
}

func (g *globalContextImpl) PickerDepthTexture() texture.AttachmentTexture {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pickerDepthTexture
}

func (g *globalContextImpl) InterfaceTexture() texture.AttachmentTexture {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interfaceTexture
}

func (g *globalContextImpl) DirectionalShadowMapTexture() texture.AttachmentTexture {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.directionalShadowMapTexture
}

func (g *globalContextImpl) PointShadowMapTextures() texture.CubeArrayTexture {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pointShadowMapTextures
}

func (g *globalContextImpl) TileLightCountTexture() texture.StorageTexture {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tileLightCountTexture
}

func (g *globalContextImpl) AntiAliasingResources() *AntiAliasingResource {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &g.antiAliasingResources
}

func (g *globalContextImpl) GlobalBindGroup() *wgpu.BindGroup {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.globalBindGroup
}

func (g *globalContextImpl) LightCullingBindGroup() *wgpu.BindGroup {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lightCullingBindGroup
}

func (g *globalContextImpl) ForwardBindGroup() *wgpu.BindGroup {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.forwardBindGroup
}

func (g *globalContextImpl) DebugBindGroup() *wgpu.BindGroup {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.debugBindGroup
}

func (g *globalContextImpl) RecordPickerValueCopy(encoder *wgpu.CommandEncoder, position [2]uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.picker.copyHoveredValue(encoder, g.pickerTexture, position)
}

func (g *globalContextImpl) ReadHoveredTarget() (PickerTarget, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.picker.readHoveredValue(g.device)
}

func (g *globalContextImpl) UpdateScreenSizeResources(screenSize common.ScreenSize) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.screenSize = screenSize

	oldTextures := screenSizeTextures{
		forwardColorTexture:   g.forwardColorTexture,
		forwardDepthTexture:   g.forwardDepthTexture,
		pickerTexture:         g.pickerTexture,
		pickerDepthTexture:    g.pickerDepthTexture,
		interfaceTexture:      g.interfaceTexture,
		tileLightCountTexture: g.tileLightCountTexture,
	}

	newTextures, err := createScreenSizeTextures(g.device, g.screenSize, g.msaa, g.ssaa)
	if err != nil {
		return err
	}
	g.adoptScreenSizeTextures(newTextures)
	oldTextures.release()

	if g.resolvedColorTexture != nil {
		g.resolvedColorTexture.Release()
		g.resolvedColorTexture = nil
	}
	if g.resolvedColorTexture, err = createResolvedColorTexture(g.device, g.screenSize, g.msaa, g.ssaa); err != nil {
		return err
	}

	g.tileLightIndicesBuffer.Release()
	if g.tileLightIndicesBuffer, err = createTileLightIndicesBuffer(g.device, g.queue, g.screenSize); err != nil {
		return err
	}

	g.antiAliasingResources.Release()
	if g.antiAliasingResources, err = newAntiAliasingResource(g.device, g.queue, g.layouts, g.ssaa, g.screenSize); err != nil {
		return err
	}

	// The global bind group references none of these resources and stays
	// valid across the resize.
	if err = g.rebuildLightCullingBindGroup(); err != nil {
		return err
	}
	if err = g.rebuildForwardBindGroup(); err != nil {
		return err
	}
	return g.rebuildDebugBindGroup()
}

func (g *globalContextImpl) UpdateShadowSizeTextures(shadowDetail light.ShadowDetail) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.shadowDetail = shadowDetail

	g.directionalShadowMapTexture.Release()
	var err error
	if g.directionalShadowMapTexture, err = createDirectionalShadowTexture(g.device, shadowDetail.DirectionalShadowResolution()); err != nil {
		return err
	}

	g.pointShadowMapTextures.Release()
	if g.pointShadowMapTextures, err = createPointShadowTextures(g.device, shadowDetail.PointShadowResolution()); err != nil {
		return err
	}

	if err = g.rebuildForwardBindGroup(); err != nil {
		return err
	}
	return g.rebuildDebugBindGroup()
}

func (g *globalContextImpl) UpdateTextureSampler(samplerType texture.SamplerType) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.textureSamplerType = samplerType

	g.textureSampler.Release()
	var err error
	if g.textureSampler, err = texture.NewSampler(g.device, "texture", samplerType); err != nil {
		return err
	}
	return g.rebuildGlobalBindGroup()
}

func (g *globalContextImpl) UpdateMsaa(msaa Msaa) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.msaa = msaa
	return g.recreateForwardTargets()
}

func (g *globalContextImpl) UpdateScreenSpaceAntiAliasing(ssaa ScreenSpaceAntiAliasing) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ssaa = ssaa
	if err := g.recreateForwardTargets(); err != nil {
		return err
	}

	g.antiAliasingResources.Release()
	var err error
	g.antiAliasingResources, err = newAntiAliasingResource(g.device, g.queue, g.layouts, g.ssaa, g.screenSize)
	return err
}

// recreateForwardTargets replaces the forward color and depth attachments and
// the resolve target using the current settings. No bind group references
// them, so none need rebuilding.
func (g *globalContextImpl) recreateForwardTargets() error {
	g.forwardColorTexture.Release()
	g.forwardDepthTexture.Release()

	var err error
	if g.forwardColorTexture, g.forwardDepthTexture, err = createForwardTextures(g.device, g.screenSize, g.msaa, g.ssaa); err != nil {
		return err
	}

	if g.resolvedColorTexture != nil {
		g.resolvedColorTexture.Release()
		g.resolvedColorTexture = nil
	}
	g.resolvedColorTexture, err = createResolvedColorTexture(g.device, g.screenSize, g.msaa, g.ssaa)
	return err
}

func (g *globalContextImpl) rebuildGlobalBindGroup() error {
	bindGroup, err := createGlobalBindGroup(g.device, g.layouts, g.globalUniformsBuffer, g.nearestSampler, g.linearSampler, g.textureSampler)
	if err != nil {
		return err
	}
	if g.globalBindGroup != nil {
		g.globalBindGroup.Release()
	}
	g.globalBindGroup = bindGroup
	return nil
}

func (g *globalContextImpl) rebuildLightCullingBindGroup() error {
	bindGroup, err := createLightCullingBindGroup(g.device, g.layouts, g.pointLightDataBuffer, g.tileLightCountTexture, g.tileLightIndicesBuffer)
	if err != nil {
		return err
	}
	if g.lightCullingBindGroup != nil {
		g.lightCullingBindGroup.Release()
	}
	g.lightCullingBindGroup = bindGroup
	return nil
}

func (g *globalContextImpl) rebuildForwardBindGroup() error {
	bindGroup, err := createForwardBindGroup(
		g.device,
		g.layouts,
		g.directionalLightUniformsBuffer,
		g.pointLightDataBuffer,
		g.tileLightCountTexture,
		g.tileLightIndicesBuffer,
		g.directionalShadowMapTexture,
		g.pointShadowMapTextures,
		g.shadowSampler,
	)
	if err != nil {
		return err
	}
	if g.forwardBindGroup != nil {
		g.forwardBindGroup.Release()
	}
	g.forwardBindGroup = bindGroup
	return nil
}

func (g *globalContextImpl) rebuildDebugBindGroup() error {
	bindGroup, err := createDebugBindGroup(
		g.device,
		g.layouts,
		g.debugUniformsBuffer,
		g.pickerTexture,
		g.directionalShadowMapTexture,
		g.tileLightCountTexture,
		g.pointShadowMapTextures,
	)
	if err != nil {
		return err
	}
	if g.debugBindGroup != nil {
		g.debugBindGroup.Release()
	}
	g.debugBindGroup = bindGroup
	return nil
}

func (g *globalContextImpl) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, bindGroup := range []*wgpu.BindGroup{g.globalBindGroup, g.lightCullingBindGroup, g.forwardBindGroup, g.debugBindGroup} {
		if bindGroup != nil {
			bindGroup.Release()
		}
	}
	g.globalBindGroup = nil
	g.lightCullingBindGroup = nil
	g.forwardBindGroup = nil
	g.debugBindGroup = nil

	g.antiAliasingResources.Release()

	if g.picker != nil {
		g.picker.release()
		g.picker = nil
	}

	for _, sampler := range []*wgpu.Sampler{g.nearestSampler, g.linearSampler, g.textureSampler, g.shadowSampler} {
		if sampler != nil {
			sampler.Release()
		}
	}
	g.nearestSampler = nil
	g.linearSampler = nil
	g.textureSampler = nil
	g.shadowSampler = nil

	for _, buf := range []interface{ Release() }{
		g.globalUniformsBuffer,
		g.directionalLightUniformsBuffer,
		g.pointLightDataBuffer,
		g.debugUniformsBuffer,
		g.tileLightIndicesBuffer,
	} {
		if buf != nil {
			buf.Release()
		}
	}
	g.globalUniformsBuffer = nil
	g.directionalLightUniformsBuffer = nil
	g.pointLightDataBuffer = nil
	g.debugUniformsBuffer = nil
	g.tileLightIndicesBuffer = nil

	for _, tex := range []texture.AttachmentTexture{
		g.forwardColorTexture,
		g.forwardDepthTexture,
		g.resolvedColorTexture,
		g.pickerTexture,
		g.pickerDepthTexture,
		g.interfaceTexture,
		g.directionalShadowMapTexture,
	} {
		if tex != nil {
			tex.Release()
		}
	}
	g.forwardColorTexture = nil
	g.forwardDepthTexture = nil
	g.resolvedColorTexture = nil
	g.pickerTexture = nil
	g.pickerDepthTexture = nil
	g.interfaceTexture = nil
	g.directionalShadowMapTexture = nil

	if g.pointShadowMapTextures != nil {
		g.pointShadowMapTextures.Release()
		g.pointShadowMapTextures = nil
	}
	if g.tileLightCountTexture != nil {
		g.tileLightCountTexture.Release()
		g.tileLightCountTexture = nil
	}
}

// indicatorCornerMatrix packs the four indicator corners into a matrix, one
// homogeneous corner per column, in upper-left, upper-right, lower-left,
// lower-right order.
func indicatorCornerMatrix(indicator *IndicatorInstruction) [16]float32 {
	var m [16]float32
	for column, corner := range [4][3]float32{
		indicator.UpperLeft, indicator.UpperRight, indicator.LowerLeft, indicator.LowerRight,
	} {
		m[column*4+0] = corner[0]
		m[column*4+1] = corner[1]
		m[column*4+2] = corner[2]
		m[column*4+3] = 1
	}
	return m
}

func boolUint32(value bool) uint32 {
	if value {
		return 1
	}
	return 0
}

func createScreenSizeTextures(gpuDevice *wgpu.Device, screenSize common.ScreenSize, msaa Msaa, ssaa ScreenSpaceAntiAliasing) (screenSizeTextures, error) {
	var textures screenSizeTextures
	cleanup := func(err error) (screenSizeTextures, error) {
		textures.release()
		return screenSizeTextures{}, err
	}

	// The picker attachment is copied into the readback buffer, so its row
	// pitch must satisfy the copy alignment.
	pickerPaddedWidth := texture.PaddedWidth(screenSize.Width, pickerBlockSize)
	pickerFactory := texture.NewAttachmentFactory(gpuDevice, screenSize, 1, pickerPaddedWidth)

	var err error
	if textures.pickerTexture, err = pickerFactory.NewAttachment("picker buffer", PickerTextureFormat, texture.AttachmentTypePicker); err != nil {
		return cleanup(err)
	}
	if textures.pickerDepthTexture, err = pickerFactory.NewAttachment("picker depth", DepthTextureFormat, texture.AttachmentTypeDepth); err != nil {
		return cleanup(err)
	}

	if textures.forwardColorTexture, textures.forwardDepthTexture, err = createForwardTextures(gpuDevice, screenSize, msaa, ssaa); err != nil {
		return cleanup(err)
	}

	interfaceFactory := texture.NewAttachmentFactory(gpuDevice, screenSize, InterfaceSampleCount, 0)
	if textures.interfaceTexture, err = interfaceFactory.NewAttachment("interface buffer", InterfaceTextureFormat, texture.AttachmentTypeColor); err != nil {
		return cleanup(err)
	}

	tileCountX, tileCountY := light.TileCounts(screenSize.Width, screenSize.Height)
	if textures.tileLightCountTexture, err = texture.NewStorageTexture(gpuDevice, "tile light count", tileCountX, tileCountY, TileCountTextureFormat); err != nil {
		return cleanup(err)
	}

	return textures, nil
}

// createForwardTextures builds the forward color and depth attachments. The
// color target needs storage usage when CMAA2 will write into it directly,
// which only happens without multisampling; with MSAA the resolve target is
// the one CMAA2 touches.
func createForwardTextures(gpuDevice *wgpu.Device, screenSize common.ScreenSize, msaa Msaa, ssaa ScreenSpaceAntiAliasing) (texture.AttachmentTexture, texture.AttachmentTexture, error) {
	colorType := texture.AttachmentTypeColor
	if !msaa.Multisampling() && ssaa == ScreenSpaceAntiAliasingCmaa2 {
		colorType = texture.AttachmentTypeColorStorage
	}

	factory := texture.NewAttachmentFactory(gpuDevice, screenSize, msaa.SampleCount(), 0)
	colorTexture, err := factory.NewAttachment("forward color", RenderToTextureFormat, colorType)
	if err != nil {
		return nil, nil, err
	}
	depthTexture, err := factory.NewAttachment("forward depth", DepthTextureFormat, texture.AttachmentTypeDepth)
	if err != nil {
		colorTexture.Release()
		return nil, nil, err
	}
	return colorTexture, depthTexture, nil
}

// createResolvedColorTexture builds the single-sample resolve target, or
// returns nil when multisampling is off and no resolve happens.
func createResolvedColorTexture(gpuDevice *wgpu.Device, screenSize common.ScreenSize, msaa Msaa, ssaa ScreenSpaceAntiAliasing) (texture.AttachmentTexture, error) {
	if !msaa.Multisampling() {
		return nil, nil
	}

	attachmentType := texture.AttachmentTypeColor
	if ssaa == ScreenSpaceAntiAliasingCmaa2 {
		attachmentType = texture.AttachmentTypeColorStorage
	}

	factory := texture.NewAttachmentFactory(gpuDevice, screenSize, 1, 0)
	return factory.NewAttachment("resolved color", RenderToTextureFormat, attachmentType)
}

func createDirectionalShadowTexture(gpuDevice *wgpu.Device, resolution uint32) (texture.AttachmentTexture, error) {
	shadowSize := common.ScreenSize{Width: resolution, Height: resolution}
	factory := texture.NewAttachmentFactory(gpuDevice, shadowSize, 1, 0)
	return factory.NewAttachment("directional shadow map", DepthTextureFormat, texture.AttachmentTypeDepthSampled)
}

func createPointShadowTextures(gpuDevice *wgpu.Device, resolution uint32) (texture.CubeArrayTexture, error) {
	return texture.NewCubeArrayTexture(gpuDevice, "point shadow map", resolution, DepthTextureFormat, texture.AttachmentTypeDepthSampled, light.MaxShadowCasters)
}

func createTileLightIndicesBuffer(gpuDevice *wgpu.Device, queue *wgpu.Queue, screenSize common.ScreenSize) (buffer.Buffer[light.TileLightIndices], error) {
	tileCountX, tileCountY := light.TileCounts(screenSize.Width, screenSize.Height)
	return buffer.NewBuffer[light.TileLightIndices](
		gpuDevice, queue, "tile light indices", int(tileCountX*tileCountY), wgpu.BufferUsageStorage,
	)
}
