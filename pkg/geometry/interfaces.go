package geometry

import (
	"github.com/df07/go-csg-pathtracer/pkg/core"
)

// Shape is a solid primitive that reports the interval a ray spends inside it
type Shape interface {
	// CheckHit returns the entry and exit parameters of the ray, t0 <= t1.
	// Roots behind the ray origin are returned as is; callers clip against their own minimum t.
	CheckHit(ray core.Ray) (t0, t1 float64, ok bool)
	// GetCollision returns the surface geometry at parameter t
	GetCollision(ray core.Ray, t float64) Collision
}
