package integrator

import (
	"math/rand"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/scene"
)

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// RayColor computes the color carried back along a single camera ray
	RayColor(ray core.Ray, scene *scene.Scene, random *rand.Rand) core.Vec3
}
