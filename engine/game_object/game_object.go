// Package game_object holds the scene entities: a model reference, a mutable
// transform, and optionally an attached light whose position follows the
// object. Objects carry their own transform state; the scene reads it when
// assembling a frame instruction.
package game_object

import (
	"sync"

	"github.com/gdesatrigraha/korangar/common"
	"github.com/gdesatrigraha/korangar/engine/light"
	"github.com/gdesatrigraha/korangar/engine/model"
)

type gameObject struct {
	mu *sync.RWMutex

	id        uint64
	enabled   bool
	ephemeral bool
	mdl       model.Model

	attachedLight light.Light

	position      [3]float32
	scale         [3]float32
	rotation      [3]float32
	rotationSpeed [3]float32
}

// GameObject defines the interface for a scene entity. The transform accessors
// and mutators are safe to call from any goroutine.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Enabled returns whether this object is included when the scene builds a
	// frame instruction.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// Ephemeral returns whether this object is ephemeral.
	// Ephemeral objects are not persisted in the scene's registry when added.
	//
	// Returns:
	//   - bool: true if ephemeral
	Ephemeral() bool

	// Model returns the Model associated with this object, or nil if not set.
	//
	// Returns:
	//   - model.Model: the associated model or nil
	Model() model.Model

	// Position returns the object's current position.
	//
	// Returns:
	//   - x, y, z: position components
	Position() (x, y, z float32)

	// Rotation returns the object's current rotation.
	//
	// Returns:
	//   - rx, ry, rz: rotation angles in radians
	Rotation() (rx, ry, rz float32)

	// RotationSpeed returns the object's current rotation speed.
	//
	// Returns:
	//   - rx, ry, rz: rotation speed in radians per second
	RotationSpeed() (rx, ry, rz float32)

	// Scale returns the object's current scale.
	//
	// Returns:
	//   - sx, sy, sz: scale components
	Scale() (sx, sy, sz float32)

	// TransformData reads all transform data under a single lock.
	//
	// Returns:
	//   - pos: position as [3]float32 (x, y, z)
	//   - scale: scale as [3]float32 (x, y, z)
	//   - rot: rotation as [3]float32 (rx, ry, rz)
	//   - rotSpeed: rotation speed as [3]float32 (rx, ry, rz)
	TransformData() (pos, scale, rot, rotSpeed [3]float32)

	// WorldMatrix builds the object's model matrix from its current transform.
	//
	// Returns:
	//   - [16]float32: the column-major model matrix
	WorldMatrix() [16]float32

	// Update advances the object's rotation by its rotation speed.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds since the previous update
	Update(deltaTime float32)

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// SetEnabled sets whether the object is included in frame instructions.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetModel assigns a Model to this object.
	//
	// Parameters:
	//   - m: the Model to associate
	SetModel(m model.Model)

	// SetPosition updates the object's position.
	//
	// Parameters:
	//   - x, y, z: new position components
	SetPosition(x, y, z float32)

	// SetRotation updates the object's rotation.
	//
	// Parameters:
	//   - rx, ry, rz: new rotation angles in radians
	SetRotation(rx, ry, rz float32)

	// SetRotationSpeed updates the object's rotation speed.
	//
	// Parameters:
	//   - rx, ry, rz: new rotation speed in radians per second
	SetRotationSpeed(rx, ry, rz float32)

	// SetScale updates the object's scale.
	//
	// Parameters:
	//   - sx, sy, sz: new scale factors
	SetScale(sx, sy, sz float32)

	// Light returns the Light attached to this object, or nil if none is set.
	//
	// Returns:
	//   - light.Light: the attached light or nil
	Light() light.Light

	// SetLight attaches a Light to this object. When the object is added to a
	// scene, the scene syncs the light's position from the object's transform
	// each frame. Pass nil to detach.
	//
	// Parameters:
	//   - l: the Light to attach, or nil to detach
	SetLight(l light.Light)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options.
// Objects start enabled with unit scale.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		mu:      &sync.RWMutex{},
		enabled: true,
		scale:   [3]float32{1, 1, 1},
	}
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.id
}

func (g *gameObject) Enabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.enabled
}

func (g *gameObject) Ephemeral() bool {
	return g.ephemeral
}

func (g *gameObject) Model() model.Model {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mdl
}

func (g *gameObject) Position() (x, y, z float32) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.position[0], g.position[1], g.position[2]
}

func (g *gameObject) Rotation() (rx, ry, rz float32) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rotation[0], g.rotation[1], g.rotation[2]
}

func (g *gameObject) RotationSpeed() (rx, ry, rz float32) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rotationSpeed[0], g.rotationSpeed[1], g.rotationSpeed[2]
}

func (g *gameObject) Scale() (sx, sy, sz float32) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.scale[0], g.scale[1], g.scale[2]
}

func (g *gameObject) TransformData() (pos, scale, rot, rotSpeed [3]float32) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.position, g.scale, g.rotation, g.rotationSpeed
}

func (g *gameObject) WorldMatrix() [16]float32 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var matrix [16]float32
	common.BuildModelMatrix(matrix[:],
		g.position[0], g.position[1], g.position[2],
		g.rotation[0], g.rotation[1], g.rotation[2],
		g.scale[0], g.scale[1], g.scale[2],
	)
	return matrix
}

func (g *gameObject) Update(deltaTime float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation[0] += g.rotationSpeed[0] * deltaTime
	g.rotation[1] += g.rotationSpeed[1] * deltaTime
	g.rotation[2] += g.rotationSpeed[2] * deltaTime
}

func (g *gameObject) SetID(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.id = id
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = enabled
}

func (g *gameObject) SetModel(m model.Model) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mdl = m
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = [3]float32{x, y, z}
}

func (g *gameObject) SetRotation(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = [3]float32{rx, ry, rz}
}

func (g *gameObject) SetRotationSpeed(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotationSpeed = [3]float32{rx, ry, rz}
}

func (g *gameObject) SetScale(sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = [3]float32{sx, sy, sz}
}

func (g *gameObject) Light() light.Light {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.attachedLight
}

func (g *gameObject) SetLight(l light.Light) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attachedLight = l
}
