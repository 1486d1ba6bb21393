package engine

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gdesatrigraha/korangar/common"
	"github.com/gdesatrigraha/korangar/engine/device"
	"github.com/gdesatrigraha/korangar/engine/graphics"
	"github.com/gdesatrigraha/korangar/engine/graphics/passes/directional_shadow"
	"github.com/gdesatrigraha/korangar/engine/graphics/passes/forward"
	"github.com/gdesatrigraha/korangar/engine/graphics/passes/light_culling"
	"github.com/gdesatrigraha/korangar/engine/graphics/passes/point_shadow"
	"github.com/gdesatrigraha/korangar/engine/graphics/passes/post_processing"
	"github.com/gdesatrigraha/korangar/engine/graphics/texture"
	"github.com/gdesatrigraha/korangar/engine/light"
)

const rendererName = "frame renderer"

// Renderer turns one RenderInstruction into one presented frame. It owns every
// pass drawer and records the full frame into a single command encoder:
// shadow maps first, then light culling, the forward pass, the optional
// anti-aliasing stage and the final screen composition. Settings changes are
// routed through the Update methods, which rebuild only the drawers whose
// pipelines or baked views the change invalidates.
type Renderer interface {
	// RenderFrame renders and presents one frame.
	//
	// All preparers stage their CPU-side state first, then upload in the same
	// order, so every queue write lands before the frame's command buffer is
	// submitted.
	//
	// Parameters:
	//   - instruction: the frame's immutable instruction set
	//
	// Returns:
	//   - error: an error if acquiring the surface, uploading or encoding failed
	RenderFrame(instruction *graphics.RenderInstruction) error

	// HoveredTarget resolves the picker value recorded during the previous
	// frame. Call it at the start of a frame; it may wait for the prior
	// frame's GPU work.
	//
	// Returns:
	//   - graphics.PickerTarget: the decoded hover target
	//   - error: an error if the readback buffer could not be mapped
	HoveredTarget() (graphics.PickerTarget, error)

	// UpdateScreenSize recreates the screen-size resources and the drawers
	// holding views into them. The surface itself is reconfigured by the
	// caller, which owns the present mode.
	//
	// Parameters:
	//   - screenSize: the new render target size in pixels
	//
	// Returns:
	//   - error: an error if any resource creation failed
	UpdateScreenSize(screenSize common.ScreenSize) error

	// UpdateShadowDetail recreates the shadow map textures at the new detail
	// level. No drawer bakes a shadow view, so none are rebuilt.
	//
	// Parameters:
	//   - shadowDetail: the new shadow detail level
	//
	// Returns:
	//   - error: an error if any resource creation failed
	UpdateShadowDetail(shadowDetail light.ShadowDetail) error

	// UpdateTextureSampler swaps the model texture sampler.
	//
	// Parameters:
	//   - samplerType: the new filtering mode
	//
	// Returns:
	//   - error: an error if sampler or bind group creation failed
	UpdateTextureSampler(samplerType texture.SamplerType) error

	// UpdateMsaa recreates the forward targets plus the drawers whose
	// pipelines bake the sample count and whose inputs bake the color view.
	//
	// Parameters:
	//   - msaa: the new multisampling setting
	//
	// Returns:
	//   - error: an error if any resource or pipeline creation failed
	UpdateMsaa(msaa graphics.Msaa) error

	// UpdateScreenSpaceAntiAliasing swaps the post-process anti-aliasing
	// technique and rebuilds the screen composition drawers around it.
	//
	// Parameters:
	//   - ssaa: the new post-process AA technique
	//
	// Returns:
	//   - error: an error if any resource or pipeline creation failed
	UpdateScreenSpaceAntiAliasing(ssaa graphics.ScreenSpaceAntiAliasing) error

	// Release frees every drawer the renderer owns. The shared context and
	// layout registry belong to the caller and are left untouched.
	Release()
}

var _ Renderer = &rendererImpl{}

type rendererImpl struct {
	mu      *sync.Mutex
	gpu     device.Device
	layouts *graphics.Layouts
	context graphics.GlobalContext

	lightCulling            light_culling.Dispatcher
	directionalShadowPass   directional_shadow.Pass
	directionalShadowModels directional_shadow.ModelDrawer
	pointShadowPass         point_shadow.Pass
	pointShadowModels       point_shadow.ModelDrawer
	forwardModels           forward.ModelDrawer
	indicator               forward.IndicatorDrawer
	fxaa                    post_processing.FxaaDrawer
	cmaa2                   post_processing.Cmaa2Drawer
	screenBlit              post_processing.ScreenBlitDrawer
	debugOverlay            post_processing.DebugDrawer
}

// NewRenderer builds every pass drawer against the shared context. The FXAA
// and CMAA2 drawers exist only while their technique is selected; the screen
// blit drawer always exists and picks its input from the active technique.
//
// Parameters:
//   - gpu: the wrapped device
//   - layouts: the shared layout registry
//   - context: the shared resource context
//
// Returns:
//   - Renderer: the constructed renderer
//   - error: an error if any drawer creation failed
func NewRenderer(gpu device.Device, layouts *graphics.Layouts, context graphics.GlobalContext) (Renderer, error) {
	r := &rendererImpl{
		mu:      &sync.Mutex{},
		gpu:     gpu,
		layouts: layouts,
		context: context,
	}

	lightCulling, err := light_culling.NewDispatcher(gpu, layouts)
	if err != nil {
		r.Release()
		return nil, fmt.Errorf("failed to create %s: %w", rendererName, err)
	}
	r.lightCulling = lightCulling

	directionalShadowPass, err := directional_shadow.NewPass(gpu)
	if err != nil {
		r.Release()
		return nil, fmt.Errorf("failed to create %s: %w", rendererName, err)
	}
	r.directionalShadowPass = directionalShadowPass

	directionalShadowModels, err := directional_shadow.NewModelDrawer(gpu, layouts, directionalShadowPass)
	if err != nil {
		r.Release()
		return nil, fmt.Errorf("failed to create %s: %w", rendererName, err)
	}
	r.directionalShadowModels = directionalShadowModels

	pointShadowPass, err := point_shadow.NewPass(gpu)
	if err != nil {
		r.Release()
		return nil, fmt.Errorf("failed to create %s: %w", rendererName, err)
	}
	r.pointShadowPass = pointShadowPass

	pointShadowModels, err := point_shadow.NewModelDrawer(gpu, layouts, pointShadowPass)
	if err != nil {
		r.Release()
		return nil, fmt.Errorf("failed to create %s: %w", rendererName, err)
	}
	r.pointShadowModels = pointShadowModels

	debugOverlay, err := post_processing.NewDebugDrawer(gpu, layouts)
	if err != nil {
		r.Release()
		return nil, fmt.Errorf("failed to create %s: %w", rendererName, err)
	}
	r.debugOverlay = debugOverlay

	if err := r.rebuildForwardDrawers(context.Msaa()); err != nil {
		r.Release()
		return nil, fmt.Errorf("failed to create %s: %w", rendererName, err)
	}
	if err := r.rebuildScreenDrawers(); err != nil {
		r.Release()
		return nil, fmt.Errorf("failed to create %s: %w", rendererName, err)
	}

	return r, nil
}

func (r *rendererImpl) RenderFrame(instruction *graphics.RenderInstruction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	surfaceView, err := r.gpu.AcquireSurfaceView()
	if err != nil {
		return fmt.Errorf("failed to acquire surface texture: %w", err)
	}
	defer surfaceView.Release()

	preparers := r.preparers()
	for _, preparer := range preparers {
		preparer.Prepare(instruction)
	}
	for _, preparer := range preparers {
		if err := preparer.Upload(); err != nil {
			return fmt.Errorf("failed to upload frame state: %w", err)
		}
	}

	encoder, err := r.gpu.CreateCommandEncoder(rendererName)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}
	defer encoder.Release()

	r.recordDirectionalShadowPass(encoder, instruction)
	r.recordPointShadowPasses(encoder, instruction)
	r.lightCulling.Dispatch(encoder, r.context)
	r.recordForwardPass(encoder, instruction)
	r.recordInterfacePass(encoder)
	if r.fxaa != nil {
		r.fxaa.RecordLumaPass(encoder, r.context)
	}
	if r.cmaa2 != nil {
		r.cmaa2.Dispatch(encoder, r.context)
	}
	r.recordScreenPass(encoder, surfaceView, instruction)
	if err := r.context.RecordPickerValueCopy(encoder, instruction.PickerPosition); err != nil {
		return fmt.Errorf("failed to record picker value copy: %w", err)
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	defer commandBuffer.Release()

	r.gpu.Queue().Submit(commandBuffer)
	r.gpu.Present()
	return nil
}

func (r *rendererImpl) HoveredTarget() (graphics.PickerTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.context.ReadHoveredTarget()
}

func (r *rendererImpl) UpdateScreenSize(screenSize common.ScreenSize) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.context.UpdateScreenSizeResources(screenSize); err != nil {
		return fmt.Errorf("failed to update screen size resources: %w", err)
	}
	return r.rebuildScreenDrawers()
}

func (r *rendererImpl) UpdateShadowDetail(shadowDetail light.ShadowDetail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.context.UpdateShadowSizeTextures(shadowDetail); err != nil {
		return fmt.Errorf("failed to update shadow textures: %w", err)
	}
	return nil
}

func (r *rendererImpl) UpdateTextureSampler(samplerType texture.SamplerType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.context.UpdateTextureSampler(samplerType); err != nil {
		return fmt.Errorf("failed to update texture sampler: %w", err)
	}
	return nil
}

func (r *rendererImpl) UpdateMsaa(msaa graphics.Msaa) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.context.UpdateMsaa(msaa); err != nil {
		return fmt.Errorf("failed to update multisampling resources: %w", err)
	}
	if err := r.rebuildForwardDrawers(msaa); err != nil {
		return err
	}
	return r.rebuildScreenDrawers()
}

func (r *rendererImpl) UpdateScreenSpaceAntiAliasing(ssaa graphics.ScreenSpaceAntiAliasing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.context.UpdateScreenSpaceAntiAliasing(ssaa); err != nil {
		return fmt.Errorf("failed to update anti-aliasing resources: %w", err)
	}
	return r.rebuildScreenDrawers()
}

func (r *rendererImpl) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, drawer := range []interface{ Release() }{
		r.lightCulling,
		r.directionalShadowModels,
		r.directionalShadowPass,
		r.pointShadowModels,
		r.pointShadowPass,
		r.forwardModels,
		r.indicator,
		r.fxaa,
		r.cmaa2,
		r.screenBlit,
		r.debugOverlay,
	} {
		if drawer != nil {
			drawer.Release()
		}
	}
	r.lightCulling = nil
	r.directionalShadowModels = nil
	r.directionalShadowPass = nil
	r.pointShadowModels = nil
	r.pointShadowPass = nil
	r.forwardModels = nil
	r.indicator = nil
	r.fxaa = nil
	r.cmaa2 = nil
	r.screenBlit = nil
	r.debugOverlay = nil
}

// preparers returns every per-frame preparer in dependency order. The context
// goes first so pass preparers may read state it staged; the CMAA2 drawer
// joins only while its technique is active.
func (r *rendererImpl) preparers() []graphics.Preparer {
	preparers := []graphics.Preparer{
		r.context,
		r.directionalShadowPass,
		r.pointShadowPass,
		r.directionalShadowModels,
		r.pointShadowModels,
		r.forwardModels,
	}
	if r.cmaa2 != nil {
		preparers = append(preparers, r.cmaa2)
	}
	return preparers
}

func (r *rendererImpl) recordDirectionalShadowPass(encoder *wgpu.CommandEncoder, instruction *graphics.RenderInstruction) {
	pass := r.directionalShadowPass.BeginPass(encoder, r.context)
	r.directionalShadowModels.Draw(pass, instruction)
	pass.End()
	pass.Release()
}

func (r *rendererImpl) recordPointShadowPasses(encoder *wgpu.CommandEncoder, instruction *graphics.RenderInstruction) {
	casterCount := len(instruction.PointShadowCasters)
	if casterCount > light.MaxShadowCasters {
		casterCount = light.MaxShadowCasters
	}

	for casterIndex := 0; casterIndex < casterCount; casterIndex++ {
		for faceIndex := 0; faceIndex < light.ShadowFaceCount; faceIndex++ {
			pass := r.pointShadowPass.BeginPass(encoder, r.context, casterIndex, faceIndex)
			r.pointShadowModels.Draw(pass, instruction)
			pass.End()
			pass.Release()
		}
	}
}

func (r *rendererImpl) recordForwardPass(encoder *wgpu.CommandEncoder, instruction *graphics.RenderInstruction) {
	pass := forward.BeginPass(encoder, r.context)
	r.forwardModels.Draw(pass, instruction)
	r.indicator.Draw(pass, instruction)
	pass.End()
	pass.Release()
}

// recordInterfacePass clears the interface attachment. An interface renderer
// drawing into this pass would load instead of clear between redraws; without
// one the attachment stays fully transparent and the composition shows the
// scene unchanged.
func (r *rendererImpl) recordInterfacePass(encoder *wgpu.CommandEncoder) {
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "interface pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       r.context.InterfaceTexture().View(),
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
			},
		},
	})
	pass.End()
	pass.Release()
}

func (r *rendererImpl) recordScreenPass(encoder *wgpu.CommandEncoder, surfaceView *wgpu.TextureView, instruction *graphics.RenderInstruction) {
	pass := post_processing.BeginPass(encoder, r.context, surfaceView)
	r.screenBlit.Draw(pass)
	r.debugOverlay.Draw(pass, r.context, instruction)
	pass.End()
	pass.Release()
}

// rebuildForwardDrawers replaces the two forward pipelines whose multisample
// state bakes the sample count.
func (r *rendererImpl) rebuildForwardDrawers(msaa graphics.Msaa) error {
	if r.forwardModels != nil {
		r.forwardModels.Release()
		r.forwardModels = nil
	}
	if r.indicator != nil {
		r.indicator.Release()
		r.indicator = nil
	}

	forwardModels, err := forward.NewModelDrawer(r.gpu, r.layouts, msaa)
	if err != nil {
		return fmt.Errorf("failed to create forward model drawer: %w", err)
	}
	r.forwardModels = forwardModels

	indicator, err := forward.NewIndicatorDrawer(r.gpu, r.layouts, msaa)
	if err != nil {
		return fmt.Errorf("failed to create indicator drawer: %w", err)
	}
	r.indicator = indicator

	return nil
}

// rebuildScreenDrawers replaces the drawers holding views into screen-size
// textures: the technique drawer for the active anti-aliasing mode and the
// screen blit reading its output.
func (r *rendererImpl) rebuildScreenDrawers() error {
	if r.fxaa != nil {
		r.fxaa.Release()
		r.fxaa = nil
	}
	if r.cmaa2 != nil {
		r.cmaa2.Release()
		r.cmaa2 = nil
	}
	if r.screenBlit != nil {
		r.screenBlit.Release()
		r.screenBlit = nil
	}

	switch r.context.ScreenSpaceAntiAliasing() {
	case graphics.ScreenSpaceAntiAliasingFxaa:
		fxaa, err := post_processing.NewFxaaDrawer(r.gpu, r.context)
		if err != nil {
			return fmt.Errorf("failed to create fxaa drawer: %w", err)
		}
		r.fxaa = fxaa
	case graphics.ScreenSpaceAntiAliasingCmaa2:
		cmaa2, err := post_processing.NewCmaa2Drawer(r.gpu, r.layouts, r.context)
		if err != nil {
			return fmt.Errorf("failed to create cmaa2 drawer: %w", err)
		}
		r.cmaa2 = cmaa2
	}

	screenBlit, err := post_processing.NewScreenBlitDrawer(r.gpu, r.layouts, r.context)
	if err != nil {
		return fmt.Errorf("failed to create screen blit drawer: %w", err)
	}
	r.screenBlit = screenBlit

	return nil
}
