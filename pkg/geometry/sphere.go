package geometry

import (
	"math"

	"github.com/df07/go-csg-pathtracer/pkg/core"
)

// degenerateDirection is the squared direction length below which a ray is treated as a miss
const degenerateDirection = 1e-12

// Sphere represents a sphere shape
type Sphere struct {
	Center core.Vec3
	Radius float64
}

// NewSphere creates a new sphere
func NewSphere(center core.Vec3, radius float64) *Sphere {
	return &Sphere{
		Center: center,
		Radius: radius,
	}
}

// CheckHit solves |o + t*d - c|^2 = r^2 for t
func (s *Sphere) CheckHit(ray core.Ray) (float64, float64, bool) {
	// Vector from sphere center to ray origin
	oc := ray.Origin.Subtract(s.Center)

	// Quadratic equation coefficients: at² + 2*halfB*t + c = 0
	a := ray.Direction.LengthSquared()
	if a < degenerateDirection {
		return 0, 0, false
	}
	halfB := oc.Dot(ray.Direction)
	c := oc.LengthSquared() - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return 0, 0, false
	}

	sqrtD := math.Sqrt(discriminant)
	return (-halfB - sqrtD) / a, (-halfB + sqrtD) / a, true
}

// GetCollision returns the hit point and the normal facing the incoming ray
func (s *Sphere) GetCollision(ray core.Ray, t float64) Collision {
	position := ray.At(t)
	outwardNormal := position.Subtract(s.Center).Normalize()
	return newCollision(ray, position, outwardNormal)
}
