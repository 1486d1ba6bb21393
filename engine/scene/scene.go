// Package scene tracks the world an application renders: game objects, lights,
// a camera, and frame timers. Each frame the scene advances its state and
// flattens it into the render instruction the frame renderer consumes.
package scene

import (
	"sync"
	"sync/atomic"

	"github.com/gdesatrigraha/korangar/common"
	"github.com/gdesatrigraha/korangar/engine/camera"
	"github.com/gdesatrigraha/korangar/engine/game_object"
	"github.com/gdesatrigraha/korangar/engine/graphics"
	"github.com/gdesatrigraha/korangar/engine/light"
	"github.com/gdesatrigraha/korangar/engine/model"
)

// Scene defines the interface for a world that can describe itself as a frame.
type Scene interface {
	// Name returns the name of the scene.
	Name() string

	// SetName sets the name of the scene.
	SetName(name string)

	// Active returns whether the scene is active for updating and rendering.
	Active() bool

	// SetActive sets whether the scene is active.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the camera to attach
	SetCamera(cam camera.Camera)

	// Count returns the number of registered (non-ephemeral) objects.
	//
	// Returns:
	//   - int: the registry size
	Count() int

	// CountEphemeral returns the number of ephemeral objects in the scene.
	//
	// Returns:
	//   - int: the ephemeral object count
	CountEphemeral() int

	// Add inserts a GameObject into the scene. Objects with a zero ID are
	// assigned one. Non-ephemeral objects are persisted in the registry so
	// they can be fetched or removed by ID. An attached light is registered
	// with the scene and its position follows the object from then on.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - uint64: the object's ID
	Add(obj game_object.GameObject) uint64

	// Get fetches a registered object by ID.
	//
	// Parameters:
	//   - id: the object ID
	//
	// Returns:
	//   - game_object.GameObject: the object, or nil if not registered
	Get(id uint64) game_object.GameObject

	// Remove removes a registered object and its attached light from the
	// scene. Unknown IDs are ignored.
	//
	// Parameters:
	//   - id: the object ID
	Remove(id uint64)

	// Clear removes all objects and their attached lights. Lights added
	// directly via AddLight stay.
	Clear()

	// AddLight registers a standalone light with the scene.
	//
	// Parameters:
	//   - l: the light to add
	AddLight(l light.Light)

	// RemoveLight removes a light from the scene.
	//
	// Parameters:
	//   - l: the light to remove
	RemoveLight(l light.Light)

	// DetachLight removes the light attached to the given object from the
	// scene and detaches it from the object.
	//
	// Parameters:
	//   - obj: the object whose light to detach
	DetachLight(obj game_object.GameObject)

	// Lights returns a snapshot of the scene's lights.
	//
	// Returns:
	//   - []light.Light: the lights
	Lights() []light.Light

	// AmbientColor returns the scene's ambient light color.
	AmbientColor() common.Color

	// SetAmbientColor sets the scene's ambient light color.
	//
	// Parameters:
	//   - color: the ambient color
	SetAmbientColor(color common.Color)

	// WaterLevel returns the world-space height of the water plane.
	WaterLevel() float32

	// SetWaterLevel sets the world-space height of the water plane.
	//
	// Parameters:
	//   - level: the water height
	SetWaterLevel(level float32)

	// Indicator returns the current walk indicator, or nil when none is shown.
	Indicator() *graphics.IndicatorInstruction

	// SetIndicator sets the walk indicator drawn under the pointer. Pass nil
	// to hide it.
	//
	// Parameters:
	//   - indicator: the indicator to show, or nil
	SetIndicator(indicator *graphics.IndicatorInstruction)

	// Debug returns the scene's debug visualization settings.
	Debug() graphics.DebugSettings

	// SetDebug replaces the scene's debug visualization settings.
	//
	// Parameters:
	//   - settings: the settings to apply
	SetDebug(settings graphics.DebugSettings)

	// Update advances the scene by the elapsed time: object rotations, frame
	// timers, attached light positions, and the camera's matrices.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds since the previous update
	Update(deltaTime float32)

	// BuildInstruction flattens the scene into a render instruction. The
	// instruction's slices are reused across calls, so the previous frame's
	// contents are overwritten.
	//
	// Parameters:
	//   - instruction: the instruction to fill
	BuildInstruction(instruction *graphics.RenderInstruction)
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	cam camera.Camera

	nextID   uint64
	objects  []game_object.GameObject          // draw order, ephemeral included
	registry map[uint64]game_object.GameObject // non-ephemeral objects by ID

	lights       []light.Light
	lightObjects []game_object.GameObject // objects with attached lights

	ambientColor common.Color
	waterLevel   float32

	animationTimer float32
	dayTimer       float32
	dayCycleSpeed  float32

	shadowHalfExtent float32

	indicator *graphics.IndicatorInstruction
	debug     graphics.DebugSettings

	// batchSlots is reused each BuildInstruction to group objects by model
	// without reallocating.
	batchSlots map[model.Model]int
}

var _ Scene = &scene{}

// NewScene creates a new Scene with the given camera. The camera is required
// and NewScene panics without one.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera to attach (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}

	s := &scene{
		mu:               &sync.RWMutex{},
		name:             name,
		active:           false,
		cam:              cam,
		nextID:           1,
		registry:         make(map[uint64]game_object.GameObject),
		dayCycleSpeed:    1.0,
		shadowHalfExtent: light.DefaultShadowHalfExtent,
		debug:            graphics.DefaultDebugSettings(),
		batchSlots:       make(map[model.Model]int),
	}

	for _, option := range options {
		option(s)
	}

	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) CountEphemeral() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects) - len(s.registry)
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if obj.ID() == 0 {
		obj.SetID(atomic.AddUint64(&s.nextID, 1) - 1)
	}

	s.objects = append(s.objects, obj)
	if !obj.Ephemeral() {
		s.registry[obj.ID()] = obj
	}

	// An attached light is tracked for automatic position sync and joins the
	// scene's light list.
	if l := obj.Light(); l != nil {
		s.lightObjects = append(s.lightObjects, obj)
		s.lights = append(s.lights, l)
	}

	return obj.ID()
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, exists := s.registry[id]
	if !exists {
		return
	}

	delete(s.registry, id)
	for i, o := range s.objects {
		if o == obj {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			break
		}
	}

	if l := obj.Light(); l != nil {
		s.removeLightLocked(l)
		for i, o := range s.lightObjects {
			if o == obj {
				s.lightObjects = append(s.lightObjects[:i], s.lightObjects[i+1:]...)
				break
			}
		}
	}
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Attached lights leave with their objects. Standalone lights stay.
	for _, obj := range s.lightObjects {
		if l := obj.Light(); l != nil {
			s.removeLightLocked(l)
		}
	}

	s.objects = nil
	s.registry = make(map[uint64]game_object.GameObject)
	s.lightObjects = nil
}

func (s *scene) AddLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *scene) RemoveLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLightLocked(l)
}

// removeLightLocked removes the first matching light. Caller must hold the
// write lock.
func (s *scene) removeLightLocked(l light.Light) {
	for i, existing := range s.lights {
		if existing == l {
			s.lights = append(s.lights[:i], s.lights[i+1:]...)
			return
		}
	}
}

func (s *scene) DetachLight(obj game_object.GameObject) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := obj.Light()
	if l == nil {
		return
	}

	s.removeLightLocked(l)
	for i, o := range s.lightObjects {
		if o == obj {
			s.lightObjects = append(s.lightObjects[:i], s.lightObjects[i+1:]...)
			break
		}
	}
	obj.SetLight(nil)
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]light.Light, len(s.lights))
	copy(snapshot, s.lights)
	return snapshot
}

func (s *scene) AmbientColor() common.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambientColor
}

func (s *scene) SetAmbientColor(color common.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambientColor = color
}

func (s *scene) WaterLevel() float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.waterLevel
}

func (s *scene) SetWaterLevel(level float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waterLevel = level
}

func (s *scene) Indicator() *graphics.IndicatorInstruction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indicator
}

func (s *scene) SetIndicator(indicator *graphics.IndicatorInstruction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indicator = indicator
}

func (s *scene) Debug() graphics.DebugSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.debug
}

func (s *scene) SetDebug(settings graphics.DebugSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debug = settings
}

func (s *scene) Update(deltaTime float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.animationTimer += deltaTime
	s.dayTimer += deltaTime * s.dayCycleSpeed

	for _, obj := range s.objects {
		if obj.Enabled() {
			obj.Update(deltaTime)
		}
	}

	// Attached lights follow their objects.
	for _, obj := range s.lightObjects {
		if l := obj.Light(); l != nil && obj.Enabled() {
			l.SetPosition(obj.Position())
		}
	}

	if s.cam != nil {
		s.cam.Update()
	}
}

func (s *scene) BuildInstruction(instruction *graphics.RenderInstruction) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instruction.Uniforms = graphics.Uniforms{
		AnimationTimer:    s.animationTimer,
		DayTimer:          s.dayTimer,
		WaterLevel:        s.waterLevel,
		AmbientLightColor: s.ambientColor,
	}
	if s.cam != nil {
		instruction.Uniforms.ViewMatrix = s.cam.ViewMatrix()
		instruction.Uniforms.ProjectionMatrix = s.cam.ProjectionMatrix()
	}

	instruction.Indicator = s.indicator
	instruction.Debug = s.debug

	s.buildLightsLocked(instruction)
	s.buildModelsLocked(instruction)
}

// buildLightsLocked converts the scene's lights into frame instructions. The
// first enabled shadow-casting directional light becomes the frame's sun;
// enabled point lights split into shadow casters and plain lights, with
// casters capped at the per-frame budget.
func (s *scene) buildLightsLocked(instruction *graphics.RenderInstruction) {
	instruction.DirectionalLight = graphics.DirectionalLightInstruction{
		Direction: [3]float32{0, -1, 0},
	}
	common.Identity(instruction.DirectionalLight.ViewProjectionMatrix[:])

	var focus [3]float32
	if s.cam != nil && s.cam.Controller() != nil {
		focus[0], focus[1], focus[2] = s.cam.Controller().Target()
	}

	directionalSet := false
	instruction.PointShadowCasters = instruction.PointShadowCasters[:0]
	instruction.PointLights = instruction.PointLights[:0]

	for _, l := range s.lights {
		if !l.Enabled() {
			continue
		}

		switch l.Type() {
		case light.LightTypeDirectional:
			// One directional light drives the frame. Additional ones are
			// ignored rather than blended.
			if directionalSet || !l.CastsShadows() {
				continue
			}
			directionalSet = true
			instruction.DirectionalLight = graphics.DirectionalLightInstruction{
				ViewProjectionMatrix: camera.DirectionalShadowViewProjection(l.Direction(), focus, s.shadowHalfExtent),
				Direction:            l.Direction(),
				Color:                scaledColor(l),
			}

		case light.LightTypePoint:
			if l.CastsShadows() && len(instruction.PointShadowCasters) < light.MaxShadowCasters {
				instruction.PointShadowCasters = append(instruction.PointShadowCasters, graphics.PointShadowCasterInstruction{
					Position:               l.Position(),
					Color:                  scaledColor(l),
					Range:                  l.Range(),
					ViewProjectionMatrices: camera.PointShadowViewProjections(l.Position()),
				})
				continue
			}
			instruction.PointLights = append(instruction.PointLights, graphics.PointLightInstruction{
				Position: l.Position(),
				Color:    scaledColor(l),
				Range:    l.Range(),
			})
		}
	}
}

// buildModelsLocked flattens the enabled objects into model instructions
// grouped by model, one batch per distinct model.
func (s *scene) buildModelsLocked(instruction *graphics.RenderInstruction) {
	instruction.Models = instruction.Models[:0]
	instruction.ModelBatches = instruction.ModelBatches[:0]
	clear(s.batchSlots)

	// First pass sizes each batch so instructions land batch-contiguous.
	for _, obj := range s.objects {
		if !obj.Enabled() || obj.Model() == nil {
			continue
		}

		mdl := obj.Model()
		slot, exists := s.batchSlots[mdl]
		if !exists {
			slot = len(instruction.ModelBatches)
			s.batchSlots[mdl] = slot
			instruction.ModelBatches = append(instruction.ModelBatches, graphics.ModelBatch{
				TextureSet:   mdl,
				VertexBuffer: mdl.VertexBuffer(),
			})
		}
		instruction.ModelBatches[slot].Count++
	}

	total := 0
	for i := range instruction.ModelBatches {
		instruction.ModelBatches[i].Offset = total
		total += instruction.ModelBatches[i].Count
	}

	if cap(instruction.Models) < total {
		instruction.Models = make([]graphics.ModelInstruction, total)
	} else {
		instruction.Models = instruction.Models[:total]
	}

	// Second pass fills each batch's range in object order.
	filled := make([]int, len(instruction.ModelBatches))
	for _, obj := range s.objects {
		if !obj.Enabled() || obj.Model() == nil {
			continue
		}

		mdl := obj.Model()
		slot := s.batchSlots[mdl]
		index := instruction.ModelBatches[slot].Offset + filled[slot]
		filled[slot]++

		instruction.Models[index] = graphics.ModelInstruction{
			ModelMatrix:  obj.WorldMatrix(),
			VertexOffset: 0,
			VertexCount:  mdl.VertexCount(),
		}
	}
}

// scaledColor folds the light's intensity into its color.
func scaledColor(l light.Light) common.Color {
	c := l.Color()
	i := l.Intensity()
	return common.Color{R: c[0] * i, G: c[1] * i, B: c[2] * i, A: 1}
}
