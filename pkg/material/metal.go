package material

import (
	"math/rand"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
)

// Metal represents a metallic material with specular reflection
type Metal struct {
	Albedo    core.Vec3 // Metal color
	Fuzziness float64   // 0.0 = perfect mirror, 1.0 = very fuzzy
}

// NewMetal creates a new metal material
func NewMetal(albedo core.Vec3, fuzziness float64) *Metal {
	// Clamp fuzziness to valid range
	if fuzziness > 1.0 {
		fuzziness = 1.0
	}
	if fuzziness < 0.0 {
		fuzziness = 0.0
	}
	return &Metal{Albedo: albedo, Fuzziness: fuzziness}
}

// Scatter implements the Material interface for metal scattering
func (m *Metal) Scatter(ray *core.Ray, collision geometry.Collision, random *rand.Rand) bool {
	pure := reflect(ray.Direction, collision.Normal)

	reflected := pure.Add(core.RandomUnitVector(random).Multiply(m.Fuzziness)).Normalize()
	// Fuzz must not push the reflection below the surface
	if reflected.Dot(collision.Normal) < 0 {
		reflected = pure.Normalize()
	}

	ray.Origin = collision.Position
	ray.Direction = reflected
	ray.Color = ray.Color.MultiplyVec(m.Albedo)
	return true
}

// reflect calculates the reflection of a vector v off a surface with normal n
func reflect(v, n core.Vec3) core.Vec3 {
	// r = v - 2*dot(v,n)*n
	return v.Subtract(n.Multiply(2 * v.Dot(n)))
}
