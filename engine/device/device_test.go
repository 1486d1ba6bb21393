package device

import (
	"sync"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdesatrigraha/korangar/engine/window"
)

func TestNewDeviceNilSurfaceDescriptor(t *testing.T) {
	d, err := NewDevice(nil)
	assert.Nil(t, d)
	assert.Error(t, err)
}

func TestAlignUniformSize(t *testing.T) {
	d := &deviceImpl{mu: &sync.Mutex{}}

	// Alignment falls back to 256 when no limits were negotiated.
	assert.Equal(t, uint64(256), d.UniformAlignment())
	assert.Equal(t, uint64(0), d.AlignUniformSize(0))
	assert.Equal(t, uint64(256), d.AlignUniformSize(1))
	assert.Equal(t, uint64(256), d.AlignUniformSize(256))
	assert.Equal(t, uint64(512), d.AlignUniformSize(257))
	assert.Equal(t, uint64(512), d.AlignUniformSize(512))

	d.limits.MinUniformBufferOffsetAlignment = 64
	assert.Equal(t, uint64(64), d.UniformAlignment())
	assert.Equal(t, uint64(64), d.AlignUniformSize(17))
	assert.Equal(t, uint64(128), d.AlignUniformSize(65))
}

func TestBuilderOptions(t *testing.T) {
	d := &deviceImpl{
		mu: &sync.Mutex{},
		capabilities: Capabilities{
			MultiDrawIndirect: true,
			PolygonModeLine:   false,
		},
	}

	WithMultiDrawIndirect(false)(d)
	WithPolygonModeLine(true)(d)
	WithForceSoftwareRenderer(true)(d)

	assert.False(t, d.Capabilities().MultiDrawIndirect)
	assert.True(t, d.Capabilities().PolygonModeLine)
	assert.True(t, d.forceFallbackAdapter)
}

func TestPresentWithoutAcquiredSurfaceIsNoOp(t *testing.T) {
	d := &deviceImpl{mu: &sync.Mutex{}}
	assert.NotPanics(t, func() { d.Present() })
}

func TestDeviceFrameCycle(t *testing.T) {
	t.Skip("Need software GPU on CI")
	w := window.NewWindow(window.WithSize(640, 360))
	defer w.Close()

	d, err := NewDevice(w.SurfaceDescriptor(), WithForceSoftwareRenderer(true))
	require.NoError(t, err)
	defer d.Release()

	assert.NotNil(t, d.Handle())
	assert.NotNil(t, d.Queue())
	assert.NotZero(t, d.UniformAlignment())

	d.ConfigureSurface(640, 360, PresentModeVSync)
	assert.NotEqual(t, wgpu.TextureFormatUndefined, d.SurfaceFormat())

	view, err := d.AcquireSurfaceView()
	require.NoError(t, err)
	assert.NotNil(t, view)
	d.Present()
}
