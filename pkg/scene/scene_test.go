package scene

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
	"github.com/df07/go-csg-pathtracer/pkg/material"
)

// addMirror stores a perfect mirror sphere as a top-level object
func addMirror(t *testing.T, s *Scene, center core.Vec3, radius float64, albedo core.Vec3) EntityID {
	t.Helper()
	shape := s.AddSphere(geometry.NewSphere(center, radius))
	mat := s.AddMaterial(material.NewMetal(albedo, 0))
	id, err := s.AddBasic(shape, mat)
	require.NoError(t, err)
	require.NoError(t, s.AddObject(id))
	return id
}

func TestCastRay_EmptySceneMisses(t *testing.T) {
	s := New()
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))

	result := s.CastRay(&ray, rand.New(rand.NewSource(1)))
	assert.False(t, result.HitObject)
	assert.False(t, result.Bounce)
	assert.Equal(t, core.NewVec3(1, 1, 1), ray.Color, "a miss leaves the ray untouched")
}

func TestCastRay_NearestObjectWins(t *testing.T) {
	s := New()
	addMirror(t, s, core.NewVec3(0, 0, -10), 1, core.NewVec3(0.1, 0.1, 0.1))
	addMirror(t, s, core.NewVec3(0, 0, -4), 1, core.NewVec3(0.9, 0.9, 0.9))

	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))
	result := s.CastRay(&ray, rand.New(rand.NewSource(1)))

	require.True(t, result.HitObject)
	assert.True(t, result.Bounce)
	assert.InDelta(t, 0, ray.Origin.Subtract(core.NewVec3(0, 0, -3)).Length(), 1e-9)
	assert.InDelta(t, 0, ray.Direction.Subtract(core.NewVec3(0, 0, 1)).Length(), 1e-9)
	assert.Equal(t, core.NewVec3(0.9, 0.9, 0.9), ray.Color)
}

func TestCastRay_ObjectsBehindAreIgnored(t *testing.T) {
	s := New()
	addMirror(t, s, core.NewVec3(0, 0, 5), 1, core.NewVec3(1, 1, 1))

	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))
	result := s.CastRay(&ray, rand.New(rand.NewSource(1)))
	assert.False(t, result.HitObject)
}

func TestCastRay_FromInsideUsesExit(t *testing.T) {
	s := New()
	addMirror(t, s, core.NewVec3(0, 0, 0), 2, core.NewVec3(1, 1, 1))

	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))
	result := s.CastRay(&ray, rand.New(rand.NewSource(1)))

	require.True(t, result.HitObject)
	assert.InDelta(t, 0, ray.Origin.Subtract(core.NewVec3(0, 0, -2)).Length(), 1e-9)
	// Normal faces back inside, so the mirror sends the ray back
	assert.InDelta(t, 0, ray.Direction.Subtract(core.NewVec3(0, 0, 1)).Length(), 1e-9)
}

func TestCastRay_SurfaceOriginSkipsSelfHit(t *testing.T) {
	s := New()
	addMirror(t, s, core.NewVec3(0, 0, 0), 1, core.NewVec3(1, 1, 1))

	// Leaving the surface outward: the entry root is at t = 0 and must be rejected
	ray := core.NewRay(core.NewVec3(0, 0, 1), core.NewVec3(0, 0, 1))
	result := s.CastRay(&ray, rand.New(rand.NewSource(1)))
	assert.False(t, result.HitObject)
}

func TestCastRay_CompositeCountsOnce(t *testing.T) {
	s := New()
	left := addBall(t, s, core.NewVec3(0, 0, -4), 1)
	right := addBall(t, s, core.NewVec3(0, 0, -4.5), 1)
	lens, err := s.AddIntersection(left, right)
	require.NoError(t, err)
	require.NoError(t, s.AddObject(lens))

	assert.Equal(t, Counts{Shapes: 2, Materials: 2, Entities: 3, Objects: 1}, s.Counts())

	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))
	result := s.CastRay(&ray, rand.New(rand.NewSource(1)))
	require.True(t, result.HitObject)
	// The lens starts where the later entry is, on the right sphere
	assert.InDelta(t, -3.5, ray.Origin.Z, 1e-9)
}

func TestBackground_Color(t *testing.T) {
	b := DefaultBackground()
	assert.Equal(t, core.NewVec3(1, 1, 1), b.Color(core.NewVec3(0, -1, 0)))
	assert.Equal(t, core.NewVec3(0.5, 0.7, 1.0), b.Color(core.NewVec3(0, 5, 0)))

	mid := b.Color(core.NewVec3(1, 0, 0))
	assert.InDelta(t, 0.75, mid.X, 1e-12)
	assert.InDelta(t, 0.85, mid.Y, 1e-12)
	assert.InDelta(t, 1.0, mid.Z, 1e-12)
}

func TestValidate(t *testing.T) {
	s := New()
	ball := addBall(t, s, core.NewVec3(0, 0, 0), 1)
	require.NoError(t, s.AddObject(ball))
	assert.NoError(t, s.Validate())
}

func TestTrace_ReportsObjectAndSurface(t *testing.T) {
	s := New()
	far := addMirror(t, s, core.NewVec3(0, 0, -10), 1, core.NewVec3(0.1, 0.1, 0.1))
	near := addMirror(t, s, core.NewVec3(0, 0, -4), 1, core.NewVec3(0.9, 0.9, 0.9))

	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))
	hit, ok := s.Trace(ray)
	require.True(t, ok)
	assert.InDelta(t, 3.0, hit.T, 1e-12)
	assert.Equal(t, near, hit.Object)
	assert.Equal(t, s.Entity(near).Shape, hit.Shape)
	assert.Equal(t, s.Entity(near).Material, hit.Material)
	assert.NotEqual(t, far, hit.Object)

	// Trace leaves the ray alone
	assert.Equal(t, core.NewVec3(0, 0, 0), ray.Origin)

	_, ok = s.Trace(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 1, 0)))
	assert.False(t, ok)
}
