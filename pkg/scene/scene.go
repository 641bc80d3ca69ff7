package scene

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
	"github.com/df07/go-csg-pathtracer/pkg/material"
)

// MinT keeps a scattered ray from hitting the surface it starts on
const MinT = 0.001

// Scene owns every shape, material and entity, and the list of top-level objects
type Scene struct {
	shapes    store[geometry.Shape]
	materials store[material.Material]
	entities  store[Entity]
	objects   []EntityID

	Background     Background
	CameraConfig   geometry.CameraConfig // Recommended view
	SamplingConfig SamplingConfig        // Recommended render settings
}

// SamplingConfig contains rendering configuration
type SamplingConfig struct {
	Width   int // Image width
	Height  int // Image height
	Samples int // Number of paths per pixel
	Bounces int // Maximum scatter events per path
}

// DefaultSamplingConfig matches the interactive defaults
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Width:   1280,
		Height:  720,
		Samples: 10,
		Bounces: 8,
	}
}

// New creates an empty scene with the default sky
func New() *Scene {
	return &Scene{
		Background:     DefaultBackground(),
		CameraConfig:   geometry.DefaultCameraConfig(),
		SamplingConfig: DefaultSamplingConfig(),
	}
}

// Background is a vertical sky gradient seen by rays that escape the scene
type Background struct {
	Bottom core.Vec3 // Color looking straight down
	Top    core.Vec3 // Color looking straight up
}

// DefaultBackground is white at the horizon blending to light blue overhead
func DefaultBackground() Background {
	return Background{
		Bottom: core.NewVec3(1.0, 1.0, 1.0),
		Top:    core.NewVec3(0.5, 0.7, 1.0),
	}
}

// Color returns the sky color for a ray direction
func (b Background) Color(direction core.Vec3) core.Vec3 {
	t := 0.5 * (direction.Normalize().Y + 1.0)
	return b.Bottom.Lerp(b.Top, t)
}

// CastResult reports what happened to a ray cast into the scene
type CastResult struct {
	HitObject bool // Ray hit an entity; false means it escaped to the sky
	Bounce    bool // The hit material scattered the ray and the path continues
}

// Hit is the nearest visible surface along a ray
type Hit struct {
	T        float64    // Ray parameter of the surface
	Object   EntityID   // Top-level entity that was hit
	Shape    ShapeID    // Shape owning the surface
	Material MaterialID // Material of that surface
}

// Trace finds the nearest object along ray with t in (MinT, +Inf)
func (s *Scene) Trace(ray core.Ray) (Hit, bool) {
	hit := Hit{T: math.Inf(1), Object: -1}

	for _, id := range s.objects {
		cast, ok := s.CastEntity(id, ray)
		if !ok {
			continue
		}

		// Prefer the entry point, fall back to the exit point when the ray starts inside
		t := cast.T0
		if t <= MinT || t > hit.T {
			t = cast.T1
			if t <= MinT || t > hit.T {
				continue
			}
		}

		hit = Hit{T: t, Object: id, Shape: cast.Shape, Material: cast.Material}
	}

	return hit, hit.Object >= 0
}

// CastRay finds the nearest object along ray and lets its material scatter the ray in place
func (s *Scene) CastRay(ray *core.Ray, random *rand.Rand) CastResult {
	hit, ok := s.Trace(*ray)
	if !ok {
		return CastResult{}
	}

	collision := s.shapes.items[hit.Shape].GetCollision(*ray, hit.T)
	bounce := s.materials.items[hit.Material].Scatter(ray, collision, random)
	return CastResult{HitObject: true, Bounce: bounce}
}

// Validate checks the top-level objects and every entity reference
func (s *Scene) Validate() error {
	for i, e := range s.entities.items {
		switch e.Kind {
		case KindBasic:
			if !s.shapes.valid(int32(e.Shape)) || !s.materials.valid(int32(e.Material)) {
				return fmt.Errorf("entity %d: %w", i, ErrUnknownHandle)
			}
		case KindIntersection, KindDifference:
			if int(e.Left) >= i || int(e.Right) >= i || e.Left < 0 || e.Right < 0 {
				return fmt.Errorf("entity %d: %w", i, ErrUnknownHandle)
			}
		default:
			return fmt.Errorf("entity %d: unknown kind %d", i, e.Kind)
		}
	}
	for _, id := range s.objects {
		if !s.entities.valid(int32(id)) {
			return fmt.Errorf("object %d: %w", id, ErrUnknownHandle)
		}
	}
	return nil
}
