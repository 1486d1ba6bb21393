// Package engine assembles the full client runtime: a window, the GPU device,
// the frame renderer, and the scenes that describe each frame. It drives a
// fixed-rate logic loop and an uncapped render loop on separate goroutines.
package engine

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gdesatrigraha/korangar/common"
	"github.com/gdesatrigraha/korangar/engine/config"
	"github.com/gdesatrigraha/korangar/engine/device"
	"github.com/gdesatrigraha/korangar/engine/graphics"
	"github.com/gdesatrigraha/korangar/engine/graphics/texture"
	"github.com/gdesatrigraha/korangar/engine/light"
	"github.com/gdesatrigraha/korangar/engine/logger"
	"github.com/gdesatrigraha/korangar/engine/profiler"
	"github.com/gdesatrigraha/korangar/engine/scene"
	"github.com/gdesatrigraha/korangar/engine/window"
)

// engine implements the Engine interface.
// Coordinates the logic, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	gpu         device.Device
	layouts     *graphics.Layouts
	context     graphics.GlobalContext
	renderer    Renderer
	presentMode device.PresentMode

	// instruction is reused across frames; the render loop rebuilds it from
	// the active scene before every RenderFrame.
	instruction graphics.RenderInstruction

	// pendingResize holds a packed width/height published by the resize
	// callback and consumed by the render loop before the next frame, so the
	// surface is never reconfigured while a frame is being recorded.
	pendingResize atomic.Uint64

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	scenes map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	cfg *config.Config
}

// Engine is the main entry point for the client runtime.
// It orchestrates the logic loop, render loop, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Device returns the GPU device the engine renders with.
	//
	// Returns:
	//   - device.Device: the device instance
	Device() device.Device

	// Layouts returns the shared bind group layout registry. Needed when
	// creating models outside the engine.
	//
	// Returns:
	//   - *graphics.Layouts: the layout registry
	Layouts() *graphics.Layouts

	// Renderer returns the frame renderer.
	//
	// Returns:
	//   - Renderer: the renderer instance
	Renderer() Renderer

	// HoveredTarget resolves what the pointer hovered during the previously
	// rendered frame.
	//
	// Returns:
	//   - graphics.PickerTarget: the decoded picker value
	//   - error: an error if the readback failed
	HoveredTarget() (graphics.PickerTarget, error)

	// SetMsaa switches hardware multisampling and rebuilds the affected
	// render targets and pipelines.
	//
	// Parameters:
	//   - msaa: the new sample mode
	//
	// Returns:
	//   - error: an error if the rebuild failed
	SetMsaa(msaa graphics.Msaa) error

	// SetScreenSpaceAntiAliasing switches the post-process anti-aliasing mode.
	//
	// Parameters:
	//   - ssaa: the new mode
	//
	// Returns:
	//   - error: an error if the rebuild failed
	SetScreenSpaceAntiAliasing(ssaa graphics.ScreenSpaceAntiAliasing) error

	// SetShadowDetail switches the shadow map resolution tier.
	//
	// Parameters:
	//   - detail: the new tier
	//
	// Returns:
	//   - error: an error if the rebuild failed
	SetShadowDetail(detail light.ShadowDetail) error

	// SetTextureSampler switches the texture filtering mode.
	//
	// Parameters:
	//   - samplerType: the new sampler type
	//
	// Returns:
	//   - error: an error if the rebuild failed
	SetTextureSampler(samplerType texture.SamplerType) error

	// EnableProfiler enables frame statistics reporting through the logger.
	EnableProfiler()

	// DisableProfiler disables frame statistics reporting.
	DisableProfiler()

	// SetTickRate sets the logic tick rate in ticks per second.
	// The tick callback and scene updates run at this rate.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each logic tick.
	// Use this for game logic, input processing, and camera movement.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered
	// frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key. The lowest-keyed
	// active scene drives each frame; all active scenes receive logic ticks.
	//
	// Parameters:
	//   - key: the z-index determining scene priority (lower wins)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Run starts the engine loops and blocks until the window closes, then
	// releases all GPU resources.
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine: it opens the window (unless one was
// provided), brings up the GPU device, and builds the shared layouts, global
// context, and frame renderer from the configuration.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the window or GPU stack could not be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		scenes:           make(map[int]scene.Scene),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.cfg == nil {
		e.cfg = config.Default()
	}

	if err := logger.Init(e.cfg.Logging.Level, e.cfg.Logging.LogFile); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	if e.window == nil {
		e.window = window.NewWindow(
			window.WithSize(e.cfg.Graphics.Width, e.cfg.Graphics.Height),
			window.WithFullscreen(e.cfg.Graphics.Fullscreen),
		)
	}

	if err := e.createGraphicsStack(); err != nil {
		e.releaseGraphicsStack()
		return nil, err
	}

	e.window.SetResizeCallback(func(width, height int) {
		// A minimized window reports zero dimensions; skip those.
		if width <= 0 || height <= 0 {
			return
		}
		e.pendingResize.Store(packScreenSize(width, height))
		for _, s := range e.scenes {
			if c := s.Camera(); c != nil {
				c.SetAspect(float32(width) / float32(height))
			}
		}
	})

	return e, nil
}

// createGraphicsStack brings up the device, layout registry, global context,
// and frame renderer from the engine configuration.
func (e *engine) createGraphicsStack() error {
	surfaceDescriptor := e.window.SurfaceDescriptor()
	if surfaceDescriptor == nil {
		return fmt.Errorf("failed to create engine: window has no surface")
	}

	gpu, err := device.NewDevice(surfaceDescriptor)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	e.gpu = gpu

	e.presentMode = device.PresentModeUncapped
	if e.cfg.Graphics.VSync {
		e.presentMode = device.PresentModeVSync
	}

	screenSize := common.ScreenSize{
		Width:  uint32(e.window.Width()),
		Height: uint32(e.window.Height()),
	}
	gpu.ConfigureSurface(screenSize.Width, screenSize.Height, e.presentMode)

	layouts, err := graphics.NewLayouts(gpu.Handle())
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	e.layouts = layouts

	context, err := graphics.NewGlobalContext(gpu, layouts, screenSize,
		graphics.WithMsaa(graphics.ParseMsaa(e.cfg.Graphics.Msaa)),
		graphics.WithScreenSpaceAntiAliasing(graphics.ParseScreenSpaceAntiAliasing(e.cfg.Graphics.ScreenSpaceAA)),
		graphics.WithShadowDetail(light.ParseShadowDetail(e.cfg.Graphics.ShadowDetail)),
		graphics.WithTextureSampler(texture.ParseSamplerType(e.cfg.Graphics.TextureFiltering)),
	)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	e.context = context

	renderer, err := NewRenderer(gpu, layouts, context)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	e.renderer = renderer

	return nil
}

// releaseGraphicsStack frees the GPU stack in reverse creation order. Safe to
// call with partially created state.
func (e *engine) releaseGraphicsStack() {
	if e.renderer != nil {
		e.renderer.Release()
		e.renderer = nil
	}
	if e.context != nil {
		e.context.Release()
		e.context = nil
	}
	if e.layouts != nil {
		e.layouts.Release()
		e.layouts = nil
	}
	if e.gpu != nil {
		e.gpu.Release()
		e.gpu = nil
	}
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Device() device.Device {
	return e.gpu
}

func (e *engine) Layouts() *graphics.Layouts {
	return e.layouts
}

func (e *engine) Renderer() Renderer {
	return e.renderer
}

func (e *engine) HoveredTarget() (graphics.PickerTarget, error) {
	return e.renderer.HoveredTarget()
}

func (e *engine) SetMsaa(msaa graphics.Msaa) error {
	return e.renderer.UpdateMsaa(msaa)
}

func (e *engine) SetScreenSpaceAntiAliasing(ssaa graphics.ScreenSpaceAntiAliasing) error {
	return e.renderer.UpdateScreenSpaceAntiAliasing(ssaa)
}

func (e *engine) SetShadowDetail(detail light.ShadowDetail) error {
	return e.renderer.UpdateShadowDetail(detail)
}

func (e *engine) SetTextureSampler(samplerType texture.SamplerType) error {
	return e.renderer.UpdateTextureSampler(samplerType)
}

func (e *engine) Run() {
	e.running = true
	e.handle()
	e.window.ProcessMessages()

	// The window closed. Stop the loops before tearing down GPU state.
	e.signalQuit()
	e.wg.Wait()
	e.releaseGraphicsStack()
	logger.Sync()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
	_ = e.window.Close()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the logic, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate logic loop in its own goroutine.
// Advances the active scenes and fires the tick callback at the configured
// rate, and listens for dynamic rate changes via tickRateChannel. Exits when
// the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			for _, s := range e.scenes {
				if s.Active() {
					s.Update(dt)
				}
			}

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own
// goroutine. Each iteration applies any pending resize, flattens the active
// scene into the frame instruction, and hands it to the renderer. Recovers
// from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("render goroutine recovered from panic", zap.Any("panic", r))
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			e.applyPendingResize()

			if s := e.activeScene(); s != nil {
				s.BuildInstruction(&e.instruction)
				e.instruction.PickerPosition = e.cursorPickerPosition()

				if err := e.renderer.RenderFrame(&e.instruction); err != nil {
					// Losing a frame during resize or swapchain churn is
					// recoverable; keep the loop alive.
					logger.Error("failed to render frame", zap.Error(err))
				}
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// packScreenSize packs a window size into a single word so the resize
// callback can publish it to the render loop atomically.
func packScreenSize(width, height int) uint64 {
	return uint64(uint32(width))<<32 | uint64(uint32(height))
}

// unpackScreenSize reverses packScreenSize.
func unpackScreenSize(packed uint64) common.ScreenSize {
	return common.ScreenSize{
		Width:  uint32(packed >> 32),
		Height: uint32(packed),
	}
}

// applyPendingResize reconfigures the surface and screen-sized render targets
// if the window was resized since the last frame.
func (e *engine) applyPendingResize() {
	packed := e.pendingResize.Swap(0)
	if packed == 0 {
		return
	}

	screenSize := unpackScreenSize(packed)
	e.gpu.ConfigureSurface(screenSize.Width, screenSize.Height, e.presentMode)
	if err := e.renderer.UpdateScreenSize(screenSize); err != nil {
		logger.Error("failed to resize render targets", zap.Error(err))
	}
}

// activeScene returns the lowest-keyed active scene, or nil when none is
// active.
func (e *engine) activeScene() scene.Scene {
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			return s
		}
	}
	return nil
}

// cursorPickerPosition clamps the cursor to the surface bounds so the picker
// copy never addresses a texel outside the picker texture.
func (e *engine) cursorPickerPosition() [2]uint32 {
	x, y := e.window.CursorPosition()
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}

	maxX := int32(e.window.Width()) - 1
	maxY := int32(e.window.Height()) - 1
	if maxX >= 0 && x > maxX {
		x = maxX
	}
	if maxY >= 0 && y > maxY {
		y = maxY
	}
	return [2]uint32{uint32(x), uint32(y)}
}

// EnableProfiler enables frame statistics reporting through the logger.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables frame statistics reporting.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the logic tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Send to channel for immediate update in running engine loop
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			// Channel has a pending update, drain and send new value
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		// Engine not running, just update the field
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each logic tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called after each rendered frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}
