package material

import (
	"math"
	"math/rand"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
)

// Dielectric represents a transparent material like glass that either reflects or refracts
type Dielectric struct {
	RefractiveIndex float64   // Index of refraction (e.g., 1.5 for glass)
	Tint            core.Vec3 // Color applied to every pass through the surface
}

// NewDielectric creates a new clear dielectric material
func NewDielectric(refractiveIndex float64) *Dielectric {
	return NewTintedDielectric(refractiveIndex, core.NewVec3(1, 1, 1))
}

// NewTintedDielectric creates a dielectric that attenuates by tint
func NewTintedDielectric(refractiveIndex float64, tint core.Vec3) *Dielectric {
	return &Dielectric{RefractiveIndex: refractiveIndex, Tint: tint}
}

// Scatter implements the Material interface for dielectric scattering
func (d *Dielectric) Scatter(ray *core.Ray, collision geometry.Collision, random *rand.Rand) bool {
	// Leaving the solid swaps the media on either side of the interface
	refractionRatio := 1.0 / d.RefractiveIndex
	if collision.Internal {
		refractionRatio = d.RefractiveIndex
	}

	unitDirection := ray.Direction.Normalize()

	cosTheta := math.Min(-unitDirection.Dot(collision.Normal), 1.0)
	sinTheta := math.Sqrt(math.Max(0, 1.0-cosTheta*cosTheta))

	var direction core.Vec3
	if refractionRatio*sinTheta >= 1.0 {
		// Total internal reflection
		direction = reflect(unitDirection, collision.Normal)
	} else {
		direction = refract(unitDirection, collision.Normal, refractionRatio)
	}

	ray.Origin = collision.Position
	ray.Direction = direction
	ray.Color = ray.Color.MultiplyVec(d.Tint)
	return true
}

// refract bends the unit vector uv through a surface with normal n using Snell's law
func refract(uv, n core.Vec3, etaiOverEtat float64) core.Vec3 {
	cosTheta := math.Min(-uv.Dot(n), 1.0)
	rOutPerp := uv.Add(n.Multiply(cosTheta)).Multiply(etaiOverEtat)
	rOutParallel := n.Multiply(-math.Sqrt(math.Abs(1.0 - rOutPerp.LengthSquared())))
	return rOutPerp.Add(rOutParallel)
}
