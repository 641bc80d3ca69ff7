package material

import (
	"math/rand"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
)

// Material interface for surfaces that scatter rays.
//
// Scatter moves the ray to the collision point, picks a new direction and
// attenuates its color in place. The return value reports whether the path
// continues; every material here scatters, absorbing materials would return false.
type Material interface {
	Scatter(ray *core.Ray, collision geometry.Collision, random *rand.Rand) bool
}
