package material

import (
	"math/rand"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
)

// Lambertian represents a perfectly diffuse material
type Lambertian struct {
	Albedo core.Vec3 // Base color/reflectance
}

// NewLambertian creates a new lambertian material
func NewLambertian(albedo core.Vec3) *Lambertian {
	return &Lambertian{Albedo: albedo}
}

// Scatter implements the Material interface for lambertian scattering
func (l *Lambertian) Scatter(ray *core.Ray, collision geometry.Collision, random *rand.Rand) bool {
	scatter := collision.Normal.Add(core.RandomUnitVector(random))

	// The random vector can cancel the normal almost exactly
	if scatter.NearZero(epsilon) {
		scatter = collision.Normal
	} else {
		scatter = scatter.Normalize()
	}

	ray.Origin = collision.Position
	ray.Direction = scatter
	ray.Color = ray.Color.MultiplyVec(l.Albedo)
	return true
}

// epsilon is the tolerance under which a scatter direction counts as zero
const epsilon = 1e-8
