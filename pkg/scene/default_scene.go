package scene

import (
	"math/rand"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
	"github.com/df07/go-csg-pathtracer/pkg/material"
)

// builder keeps the first error so scene construction reads as a flat list
type builder struct {
	s   *Scene
	err error
}

func (b *builder) ball(center core.Vec3, radius float64, mat MaterialID) EntityID {
	shape := b.s.AddSphere(geometry.NewSphere(center, radius))
	id, err := b.s.AddBasic(shape, mat)
	b.keep(err)
	return id
}

func (b *builder) intersect(left, right EntityID) EntityID {
	id, err := b.s.AddIntersection(left, right)
	b.keep(err)
	return id
}

func (b *builder) subtract(left, right EntityID) EntityID {
	id, err := b.s.AddDifference(left, right)
	b.keep(err)
	return id
}

func (b *builder) object(id EntityID) {
	b.keep(b.s.AddObject(id))
}

func (b *builder) keep(err error) {
	if b.err == nil {
		b.err = err
	}
}

// scene returns the built scene. Builders only use handles they just created,
// so an error here is a programming mistake.
func (b *builder) scene() *Scene {
	if b.err != nil {
		panic(b.err)
	}
	return b.s
}

func defaultCameraConfig() geometry.CameraConfig {
	return geometry.CameraConfig{
		LookFrom:      core.NewVec3(13, 2, 3),
		LookAt:        core.NewVec3(0, 0, 0),
		Up:            core.NewVec3(0, 1, 0),
		VerticalFOV:   45.0,
		AspectRatio:   1280.0 / 720.0,
		PlaneDistance: 10.0,
	}
}

// NewDefaultScene creates the showcase scene: a mirrored ground, glass, diffuse
// and CSG objects, surrounded by a grid of small random balls
func NewDefaultScene(seed int64) *Scene {
	random := rand.New(rand.NewSource(seed))
	b := &builder{s: New()}
	b.s.CameraConfig = defaultCameraConfig()

	addSmallBalls(b, random)

	// Reflective ground
	b.object(b.ball(core.NewVec3(0, -5000, 0), 5000, b.s.AddMaterial(material.NewMetal(core.NewVec3(0.4, 0.4, 0.4), 0.1))))

	// Glass ball
	b.object(b.ball(core.NewVec3(0, 1, 0), 1, b.s.AddMaterial(material.NewDielectric(1.5))))

	// Diffuse ball
	b.object(b.ball(core.NewVec3(-4, 1, 0), 1, b.s.AddMaterial(material.NewLambertian(core.NewVec3(0.4, 0.2, 0.1)))))

	// Half mirror, half diffuse lens
	{
		mirror := b.s.AddMaterial(material.NewMetal(core.NewVec3(0.7, 0.6, 0.5), 0))
		matte := b.s.AddMaterial(material.NewLambertian(core.NewVec3(0.4, 0.6, 0.1)))
		left := b.ball(core.NewVec3(4, 2, 3), 1, mirror)
		right := b.ball(core.NewVec3(4, 2, 3.3), 1, matte)
		b.object(b.intersect(left, right))
	}

	// Spherical mirror carved out of a matte ball
	{
		matte := b.s.AddMaterial(material.NewLambertian(core.NewVec3(0.8, 0.2, 0.2)))
		mirror := b.s.AddMaterial(material.NewMetal(core.NewVec3(0.7, 0.7, 0.7), 0))
		left := b.ball(core.NewVec3(4, 1, -1), 1, matte)
		right := b.ball(core.NewVec3(4.1, 0.8, -1), 1, mirror)
		b.object(b.subtract(left, right))
	}

	// Tinted biconvex glass lens
	{
		glass := b.s.AddMaterial(material.NewTintedDielectric(1.3, core.NewVec3(0.6, 0.6, 0.6)))
		left := b.ball(core.NewVec3(7, 0.6, 1), 0.5, glass)
		right := b.ball(core.NewVec3(7.2, 0.65, 1), 0.5, glass)
		b.object(b.intersect(left, right))
	}

	b.object(addGolfBall(b, random, core.NewVec3(6.2, 0.65, 2), 0.6))

	return b.scene()
}

// NewGolfBallScene renders the dimpled ball alone on the mirrored ground
func NewGolfBallScene(seed int64) *Scene {
	random := rand.New(rand.NewSource(seed))
	b := &builder{s: New()}
	b.s.CameraConfig = geometry.CameraConfig{
		LookFrom:      core.NewVec3(3, 1.2, 2),
		LookAt:        core.NewVec3(0, 0.6, 0),
		Up:            core.NewVec3(0, 1, 0),
		VerticalFOV:   30.0,
		AspectRatio:   1.0,
		PlaneDistance: 10.0,
	}
	b.s.SamplingConfig.Width = 600
	b.s.SamplingConfig.Height = 600

	b.object(b.ball(core.NewVec3(0, -5000, 0), 5000, b.s.AddMaterial(material.NewMetal(core.NewVec3(0.4, 0.4, 0.4), 0.1))))
	b.object(addGolfBall(b, random, core.NewVec3(0, 0.6, 0), 0.6))
	return b.scene()
}

// addGolfBall subtracts 20 random dimples from a ball and returns the root of the chain
func addGolfBall(b *builder, random *rand.Rand, center core.Vec3, radius float64) EntityID {
	ballMaterial := b.s.AddMaterial(material.NewMetal(core.NewVec3(0.3, 0.3, 0.3), 0.3))
	holeMaterial := b.s.AddMaterial(material.NewMetal(core.NewVec3(0.9, 0.9, 0.9), 0.04))

	root := b.ball(center, radius, ballMaterial)
	const holeRadius = 0.15
	for i := 0; i < 20; i++ {
		holeCenter := center.Add(core.RandomUnitVector(random).Multiply(radius - 0.05))
		root = b.subtract(root, b.ball(holeCenter, holeRadius, holeMaterial))
	}
	return root
}

// addSmallBalls scatters small diffuse, metal and glass balls on a grid around the origin
func addSmallBalls(b *builder, random *rand.Rand) {
	glass := b.s.AddMaterial(material.NewDielectric(1.5))
	keepClear := core.NewVec3(4, 0.2, 0)

	for a := -11; a < 11; a++ {
		for c := -11; c < 11; c++ {
			chooseMat := random.Float64()
			center := core.NewVec3(float64(a)+0.9*random.Float64(), 0.2, float64(c)+0.9*random.Float64())
			if center.Subtract(keepClear).Length() <= 0.9 {
				continue
			}

			var mat MaterialID
			switch {
			case chooseMat < 0.6:
				albedo := core.NewVec3(random.Float64(), random.Float64(), random.Float64())
				mat = b.s.AddMaterial(material.NewLambertian(albedo.MultiplyVec(albedo)))
			case chooseMat < 0.9:
				albedo := core.NewVec3(
					0.5*(1+random.Float64()),
					0.5*(1+random.Float64()),
					0.5*(1+random.Float64()),
				)
				mat = b.s.AddMaterial(material.NewMetal(albedo, 0.5*random.Float64()))
			default:
				mat = glass
			}
			b.object(b.ball(center, 0.2, mat))
		}
	}
}
