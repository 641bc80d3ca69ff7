package integrator

import (
	"math/rand"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/scene"
)

// PathTracer follows a single path per sample through the scene, letting each
// material scatter the ray until it escapes to the sky or runs out of bounces
type PathTracer struct {
	Bounces int // Maximum scatter events per path
}

// NewPathTracer creates a path tracer allowing at least one bounce
func NewPathTracer(bounces int) *PathTracer {
	if bounces < 1 {
		bounces = 1
	}
	return &PathTracer{Bounces: bounces}
}

// RayColor traces ray and returns the light it carries back.
// A path that escapes picks up the background color, an absorbed or
// exhausted path is black.
func (pt *PathTracer) RayColor(ray core.Ray, s *scene.Scene, random *rand.Rand) core.Vec3 {
	for bounce := 0; ; bounce++ {
		result := s.CastRay(&ray, random)
		if !result.HitObject {
			return ray.Color.MultiplyVec(s.Background.Color(ray.Direction))
		}
		if !result.Bounce || bounce >= pt.Bounces {
			return core.Vec3{}
		}
	}
}
