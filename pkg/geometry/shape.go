package geometry

import "github.com/df07/go-csg-pathtracer/pkg/core"

// Collision describes where a ray meets a surface
type Collision struct {
	Position core.Vec3 // Point of intersection
	Normal   core.Vec3 // Unit normal, always facing against the incoming ray
	Internal bool      // Ray is leaving the solid
}

// newCollision orients the outward normal against the ray
func newCollision(ray core.Ray, position, outwardNormal core.Vec3) Collision {
	c := Collision{Position: position, Normal: outwardNormal}
	if ray.Direction.Dot(outwardNormal) > 0 {
		c.Internal = true
		c.Normal = outwardNormal.Negate()
	}
	return c
}
