package device

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/gdesatrigraha/korangar/engine/logger"
)

// PresentMode controls how finished frames are delivered to the display.
type PresentMode int

const (
	// PresentModeVSync synchronizes presentation with the display refresh rate (FIFO).
	PresentModeVSync PresentMode = iota
	// PresentModeUncapped presents frames as fast as they are produced (Immediate).
	PresentModeUncapped
)

// Capabilities describes optional device features the render graph can take
// advantage of. The underlying binding exposes no adapter feature enumeration,
// so these are resolved once at construction from builder options and remain
// constant for the lifetime of the device.
type Capabilities struct {
	// MultiDrawIndirect reports whether batched indirect draws may be used.
	// When false, drawers fall back to issuing one direct draw per instruction.
	MultiDrawIndirect bool
	// PolygonModeLine reports whether wireframe rasterization is available.
	PolygonModeLine bool
}

// Device owns the WebGPU instance, window surface, adapter, logical device and
// submission queue, and mediates surface configuration and per-frame surface
// texture acquisition. All other GPU objects in the engine are created through
// the handles it exposes.
type Device interface {
	// Handle returns the logical WebGPU device used to create GPU resources.
	//
	// Returns:
	//   - *wgpu.Device: the logical device handle
	Handle() *wgpu.Device

	// Queue returns the submission queue associated with the device.
	//
	// Returns:
	//   - *wgpu.Queue: the queue used for buffer writes and command submission
	Queue() *wgpu.Queue

	// Adapter returns the physical adapter the device was created from.
	//
	// Returns:
	//   - *wgpu.Adapter: the adapter handle
	Adapter() *wgpu.Adapter

	// Surface returns the window surface frames are presented to.
	//
	// Returns:
	//   - *wgpu.Surface: the surface handle
	Surface() *wgpu.Surface

	// SurfaceFormat returns the texture format the surface was configured with.
	// Only valid after the first ConfigureSurface call.
	//
	// Returns:
	//   - wgpu.TextureFormat: the configured swapchain format
	SurfaceFormat() wgpu.TextureFormat

	// Capabilities returns the optional feature flags resolved at construction.
	//
	// Returns:
	//   - Capabilities: the resolved capability set
	Capabilities() Capabilities

	// UniformAlignment returns the minimum uniform buffer offset alignment in
	// bytes, used to stride dynamically offset uniform reads.
	//
	// Returns:
	//   - uint64: the alignment in bytes, never zero
	UniformAlignment() uint64

	// AlignUniformSize rounds size up to the next multiple of the device's
	// uniform buffer offset alignment.
	//
	// Parameters:
	//   - size: the unaligned size in bytes
	//
	// Returns:
	//   - uint64: the smallest aligned size that is >= size
	AlignUniformSize(size uint64) uint64

	// ConfigureSurface (re)configures the surface for the given dimensions and
	// present mode. Must be called before the first AcquireSurfaceView and
	// again whenever the window is resized or the present mode changes.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	//   - mode: the PresentMode to use (VSync or Uncapped)
	ConfigureSurface(width, height uint32, mode PresentMode)

	// AcquireSurfaceView acquires the next surface texture and returns a view
	// of it for use as a render attachment. The view stays valid until the
	// matching Present call. Returns an error if the previous frame has not
	// been presented yet or the swapchain is out of date.
	//
	// Returns:
	//   - *wgpu.TextureView: a view of the acquired surface texture
	//   - error: an error if acquisition failed
	AcquireSurfaceView() (*wgpu.TextureView, error)

	// Present presents the currently acquired surface texture and releases the
	// references held since AcquireSurfaceView. A no-op when no texture is held.
	Present()

	// CreateCommandEncoder creates a labeled command encoder on the device.
	//
	// Parameters:
	//   - label: a debug label for the encoder
	//
	// Returns:
	//   - *wgpu.CommandEncoder: the new encoder
	//   - error: an error if creation failed
	CreateCommandEncoder(label string) (*wgpu.CommandEncoder, error)

	// Release destroys the device, queue, surface and instance. The Device must
	// not be used afterwards.
	Release()
}

type deviceImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	limits        wgpu.Limits
	capabilities  Capabilities
	surfaceFormat wgpu.TextureFormat

	forceFallbackAdapter bool

	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ Device = &deviceImpl{}

// NewDevice creates the WebGPU instance, surface, adapter, logical device and
// queue for the given surface descriptor. The calling goroutine is locked to
// its OS thread because surface creation and presentation must happen on the
// thread that owns the window.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor obtained from the window
//   - opts: optional DeviceBuilderOption functions to configure the device
//
// Returns:
//   - Device: the constructed device wrapper
//   - error: an error if any stage of device acquisition failed
func NewDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, opts ...DeviceBuilderOption) (Device, error) {
	if surfaceDescriptor == nil {
		return nil, fmt.Errorf("surface descriptor is required")
	}

	runtime.LockOSThread()

	d := &deviceImpl{
		mu: &sync.Mutex{},
		capabilities: Capabilities{
			MultiDrawIndirect: true,
			PolygonModeLine:   false,
		},
	}
	for _, opt := range opts {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)

	surface := d.instance.CreateSurface(surfaceDescriptor)
	if surface == nil {
		d.instance.Release()
		return nil, fmt.Errorf("failed to create surface")
	}
	d.surface = surface

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    surface,
	})
	if err != nil {
		d.releasePartial()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	d.adapter = adapter

	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 8

	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{Limits: limits},
	})
	if err != nil {
		d.releasePartial()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	d.device = dev
	d.limits = limits
	d.queue = dev.GetQueue()

	logger.Debug("graphics device initialized",
		zap.Bool("multiDrawIndirect", d.capabilities.MultiDrawIndirect),
		zap.Bool("polygonModeLine", d.capabilities.PolygonModeLine),
		zap.Uint64("uniformAlignment", d.UniformAlignment()),
	)

	return d, nil
}

func (d *deviceImpl) Handle() *wgpu.Device {
	return d.device
}

func (d *deviceImpl) Queue() *wgpu.Queue {
	return d.queue
}

func (d *deviceImpl) Adapter() *wgpu.Adapter {
	return d.adapter
}

func (d *deviceImpl) Surface() *wgpu.Surface {
	return d.surface
}

func (d *deviceImpl) SurfaceFormat() wgpu.TextureFormat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.surfaceFormat
}

func (d *deviceImpl) Capabilities() Capabilities {
	return d.capabilities
}

func (d *deviceImpl) UniformAlignment() uint64 {
	if d.limits.MinUniformBufferOffsetAlignment == 0 {
		return 256
	}
	return uint64(d.limits.MinUniformBufferOffsetAlignment)
}

func (d *deviceImpl) AlignUniformSize(size uint64) uint64 {
	align := d.UniformAlignment()
	return (size + align - 1) &^ (align - 1)
}

func (d *deviceImpl) ConfigureSurface(width, height uint32, mode PresentMode) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps := d.surface.GetCapabilities(d.adapter)

	presentMode := wgpu.PresentModeImmediate
	if mode == PresentModeVSync {
		presentMode = wgpu.PresentModeFifo
	}

	d.surfaceFormat = caps.Formats[0]
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: presentMode,
		AlphaMode:   caps.AlphaModes[0],
	})
}

func (d *deviceImpl) AcquireSurfaceView() (*wgpu.TextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Acquiring a second surface image while one is still held triggers
	// wgpu-native validation errors, so refuse until the frame is presented.
	if d.frameSurface != nil {
		return nil, fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, err
	}

	d.frameSurface = surfaceTexture
	d.frameView = view
	return view, nil
}

func (d *deviceImpl) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface == nil {
		return
	}

	d.surface.Present()

	if d.frameView != nil {
		d.frameView.Release()
		d.frameView = nil
	}
	d.frameSurface.Release()
	d.frameSurface = nil
}

func (d *deviceImpl) CreateCommandEncoder(label string) (*wgpu.CommandEncoder, error) {
	return d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
}

func (d *deviceImpl) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameView != nil {
		d.frameView.Release()
		d.frameView = nil
	}
	if d.frameSurface != nil {
		d.frameSurface.Release()
		d.frameSurface = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	d.releasePartial()
}

func (d *deviceImpl) releasePartial() {
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}
