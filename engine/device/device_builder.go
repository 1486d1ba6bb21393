package device

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*deviceImpl)

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). Useful for headless testing and benchmarking.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the force software renderer option to a device
func WithForceSoftwareRenderer(force bool) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.forceFallbackAdapter = force
	}
}

// WithMultiDrawIndirect enables or disables batched indirect drawing. When disabled,
// drawers issue one direct draw call per instruction instead of walking a shared
// indirect argument buffer. Defaults to enabled.
//
// Parameters:
//   - enabled: whether batched indirect draws may be used
//
// Returns:
//   - DeviceBuilderOption: a function that applies the multi draw option to a device
func WithMultiDrawIndirect(enabled bool) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.capabilities.MultiDrawIndirect = enabled
	}
}

// WithPolygonModeLine enables wireframe rasterization support. Only enable this when
// the adapter is known to support non-fill polygon modes. Defaults to disabled.
//
// Parameters:
//   - enabled: whether wireframe pipelines may be created
//
// Returns:
//   - DeviceBuilderOption: a function that applies the wireframe option to a device
func WithPolygonModeLine(enabled bool) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.capabilities.PolygonModeLine = enabled
	}
}
