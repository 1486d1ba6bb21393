package scene

import (
	"github.com/gdesatrigraha/korangar/common"
	"github.com/gdesatrigraha/korangar/engine/game_object"
	"github.com/gdesatrigraha/korangar/engine/light"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for updating and rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithObjects adds initial objects to the scene. Objects without IDs are
// assigned new ones, non-ephemeral objects are persisted in the registry, and
// attached lights are registered the same way Add registers them.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		for _, obj := range objects {
			if obj.ID() == 0 {
				obj.SetID(s.nextID)
				s.nextID++
			}
			s.objects = append(s.objects, obj)
			if !obj.Ephemeral() {
				s.registry[obj.ID()] = obj
			}
			if l := obj.Light(); l != nil {
				s.lightObjects = append(s.lightObjects, obj)
				s.lights = append(s.lights, l)
			}
		}
	}
}

// WithLights adds initial standalone lights to the scene.
//
// Parameters:
//   - lights: the lights to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLights(lights ...light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.lights = append(s.lights, lights...)
	}
}

// WithAmbientColor sets the scene's ambient light color.
//
// Parameters:
//   - color: the ambient color
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAmbientColor(color common.Color) SceneBuilderOption {
	return func(s *scene) {
		s.ambientColor = color
	}
}

// WithWaterLevel sets the world-space height of the water plane.
//
// Parameters:
//   - level: the water height
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithWaterLevel(level float32) SceneBuilderOption {
	return func(s *scene) {
		s.waterLevel = level
	}
}

// WithDayCycleSpeed sets the rate at which the day timer advances relative to
// real time. A speed of zero freezes the day/night cycle.
//
// Parameters:
//   - speed: the day timer multiplier
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithDayCycleSpeed(speed float32) SceneBuilderOption {
	return func(s *scene) {
		s.dayCycleSpeed = speed
	}
}

// WithShadowHalfExtent sets the orthographic half-extent of the directional
// shadow volume in world units. Larger values capture more of the scene but
// reduce shadow resolution. Default is light.DefaultShadowHalfExtent.
//
// Parameters:
//   - halfExtent: half-size of the shadow volume in world units
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShadowHalfExtent(halfExtent float32) SceneBuilderOption {
	return func(s *scene) {
		s.shadowHalfExtent = halfExtent
	}
}
