package geometry

import (
	"errors"
	"math"

	"github.com/df07/go-csg-pathtracer/pkg/core"
)

// CameraConfig contains the view parameters of a camera
type CameraConfig struct {
	LookFrom      core.Vec3 // Camera position
	LookAt        core.Vec3 // Point the camera looks at
	Up            core.Vec3 // Up direction
	VerticalFOV   float64   // Vertical field of view in degrees
	AspectRatio   float64   // Width / height
	PlaneDistance float64   // Distance from the camera to the virtual image plane
}

// DefaultCameraConfig returns the startup view
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		LookFrom:      core.NewVec3(0, 0, 0),
		LookAt:        core.NewVec3(1, 1, 1),
		Up:            core.NewVec3(0, 1, 0),
		VerticalFOV:   70.0,
		AspectRatio:   1.7,
		PlaneDistance: 10.0,
	}
}

// Validate rejects parameters that cannot produce an image plane
func (c CameraConfig) Validate() error {
	w := c.LookFrom.Subtract(c.LookAt)
	switch {
	case w.LengthSquared() == 0:
		return errors.New("camera: look_from and look_at coincide")
	case c.Up.Cross(w).LengthSquared() == 0:
		return errors.New("camera: up is parallel to the view direction")
	case c.VerticalFOV <= 0 || c.VerticalFOV >= 180:
		return errors.New("camera: vertical_fov must be in (0, 180)")
	case c.AspectRatio <= 0:
		return errors.New("camera: aspect_ratio must be positive")
	case c.PlaneDistance <= 0:
		return errors.New("camera: plane_distance must be positive")
	}
	return nil
}

// Camera generates rays through a virtual image plane.
// Config may be edited freely; RecalculateVirtualPlane must run before the next GetRay.
type Camera struct {
	Config CameraConfig

	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
}

// NewCamera creates a camera with its virtual plane already computed
func NewCamera(config CameraConfig) *Camera {
	c := &Camera{Config: config}
	c.RecalculateVirtualPlane()
	return c
}

// RecalculateVirtualPlane rebuilds the image plane from Config
func (c *Camera) RecalculateVirtualPlane() {
	theta := c.Config.VerticalFOV * math.Pi / 180.0
	viewportHeight := 2.0 * math.Tan(theta/2)
	viewportWidth := c.Config.AspectRatio * viewportHeight

	// w points backwards, u right, v up
	w := c.Config.LookFrom.Subtract(c.Config.LookAt).Normalize()
	u := c.Config.Up.Cross(w).Normalize()
	v := w.Cross(u)

	d := c.Config.PlaneDistance
	c.origin = c.Config.LookFrom
	c.horizontal = u.Multiply(d * viewportWidth)
	c.vertical = v.Multiply(d * viewportHeight)
	c.lowerLeftCorner = c.origin.
		Subtract(c.horizontal.Multiply(0.5)).
		Subtract(c.vertical.Multiply(0.5)).
		Subtract(w.Multiply(d))
}

// GetRay generates a ray for screen coordinates (s, t) where 0 <= s,t <= 1 and t = 0 is the bottom edge
func (c *Camera) GetRay(s, t float64) core.Ray {
	target := c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t))

	return core.NewRay(c.origin, target.Subtract(c.origin).Normalize())
}
