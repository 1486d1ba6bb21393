package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdesatrigraha/korangar/engine/camera"
	"github.com/gdesatrigraha/korangar/engine/scene"
	"github.com/gdesatrigraha/korangar/engine/window"
)

type stubWindow struct {
	window.Window
	width, height    int
	cursorX, cursorY int32
}

func (s *stubWindow) CursorPosition() (x, y int32) {
	return s.cursorX, s.cursorY
}

func (s *stubWindow) Width() int {
	return s.width
}

func (s *stubWindow) Height() int {
	return s.height
}

func newTestScene(t *testing.T, active bool) scene.Scene {
	t.Helper()
	s := scene.NewScene("test", camera.NewCamera(camera.WithController(camera.NewCameraController())))
	s.SetActive(active)
	return s
}

func TestSetTickRateBeforeRunStoresTheRate(t *testing.T) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		engineTickRate:  time.Second / 60,
	}

	e.SetTickRate(120)
	assert.Equal(t, time.Second/120, e.engineTickRate)

	e.SetTickRate(0)
	assert.Equal(t, time.Second/60, e.engineTickRate)
}

func TestSetTickRateWhileRunningReplacesThePendingRate(t *testing.T) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		running:         true,
	}

	e.SetTickRate(30)
	e.SetTickRate(90)

	select {
	case rate := <-e.tickRateChannel:
		assert.Equal(t, time.Second/90, rate)
	default:
		t.Fatal("expected a pending tick rate")
	}
	assert.Empty(t, e.tickRateChannel)
}

func TestSetRenderFrameLimitConvertsAndUncaps(t *testing.T) {
	e := &engine{}

	e.SetRenderFrameLimit(60)
	assert.Equal(t, time.Second/60, e.renderFrameLimit)

	e.SetRenderFrameLimit(0)
	assert.Equal(t, time.Duration(0), e.renderFrameLimit)
}

func TestSceneRegistryReturnsACopy(t *testing.T) {
	e := &engine{scenes: make(map[int]scene.Scene)}
	world := newTestScene(t, true)

	e.AddScene(1, world)
	require.Same(t, world, e.Scene(1))
	assert.Nil(t, e.Scene(2))

	cp := e.Scenes()
	cp[7] = newTestScene(t, false)
	assert.Nil(t, e.Scene(7))

	e.RemoveScene(1)
	assert.Nil(t, e.Scene(1))
}

func TestActiveScenePrefersTheLowestActiveKey(t *testing.T) {
	e := &engine{scenes: make(map[int]scene.Scene)}
	e.AddScene(9, newTestScene(t, true))
	e.AddScene(2, newTestScene(t, false))
	e.AddScene(5, newTestScene(t, true))

	require.Same(t, e.Scene(5), e.activeScene())

	e.Scene(5).SetActive(false)
	e.Scene(9).SetActive(false)
	assert.Nil(t, e.activeScene())
}

func TestScreenSizePackingRoundTrips(t *testing.T) {
	size := unpackScreenSize(packScreenSize(1920, 1080))
	assert.Equal(t, uint32(1920), size.Width)
	assert.Equal(t, uint32(1080), size.Height)
}

func TestCursorPickerPositionClampsToTheSurface(t *testing.T) {
	e := &engine{window: &stubWindow{width: 1280, height: 720, cursorX: 640, cursorY: 360}}
	assert.Equal(t, [2]uint32{640, 360}, e.cursorPickerPosition())

	e.window = &stubWindow{width: 1280, height: 720, cursorX: -20, cursorY: -4}
	assert.Equal(t, [2]uint32{0, 0}, e.cursorPickerPosition())

	e.window = &stubWindow{width: 1280, height: 720, cursorX: 5000, cursorY: 5000}
	assert.Equal(t, [2]uint32{1279, 719}, e.cursorPickerPosition())
}

func TestSignalQuitClosesTheChannelOnce(t *testing.T) {
	e := &engine{quitChannel: make(chan struct{})}

	e.signalQuit()
	require.NotPanics(t, func() {
		e.signalQuit()
	})

	select {
	case <-e.quitChannel:
	default:
		t.Fatal("expected the quit channel to be closed")
	}
}
