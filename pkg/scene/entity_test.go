package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
	"github.com/df07/go-csg-pathtracer/pkg/material"
)

// addBall stores a lambertian sphere leaf and returns its entity
func addBall(t *testing.T, s *Scene, center core.Vec3, radius float64) EntityID {
	t.Helper()
	shape := s.AddSphere(geometry.NewSphere(center, radius))
	mat := s.AddMaterial(material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5)))
	id, err := s.AddBasic(shape, mat)
	require.NoError(t, err)
	return id
}

func TestCastEntity_Basic(t *testing.T) {
	s := New()
	ball := addBall(t, s, core.NewVec3(0, 0, 0), 1)

	cast, ok := s.CastEntity(ball, core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1)))
	require.True(t, ok)
	assert.InDelta(t, 4.0, cast.T0, 1e-12)
	assert.InDelta(t, 6.0, cast.T1, 1e-12)
	assert.Equal(t, s.Entity(ball).Shape, cast.Shape)
	assert.Equal(t, s.Entity(ball).Material, cast.Material)

	_, ok = s.CastEntity(ball, core.NewRay(core.NewVec3(5, 5, 5), core.NewVec3(1, 0, 0)))
	assert.False(t, ok)
}

func TestCastEntity_Intersection(t *testing.T) {
	s := New()
	left := addBall(t, s, core.NewVec3(0, 0, 0), 1)
	right := addBall(t, s, core.NewVec3(0.5, 0, 0), 1)
	lens, err := s.AddIntersection(left, right)
	require.NoError(t, err)

	// Travelling +x through both centers: left is [4, 6], right is [4.5, 6.5]
	ray := core.NewRay(core.NewVec3(-5, 0, 0), core.NewVec3(1, 0, 0))
	cast, ok := s.CastEntity(lens, ray)
	require.True(t, ok)
	assert.InDelta(t, 4.5, cast.T0, 1e-12)
	assert.InDelta(t, 6.0, cast.T1, 1e-12)
	assert.Equal(t, s.Entity(right).Shape, cast.Shape, "right enters later and owns the surface")

	// Travelling -x the left sphere enters later
	ray = core.NewRay(core.NewVec3(5, 0, 0), core.NewVec3(-1, 0, 0))
	cast, ok = s.CastEntity(lens, ray)
	require.True(t, ok)
	assert.InDelta(t, 4.0, cast.T0, 1e-12)
	assert.InDelta(t, 5.5, cast.T1, 1e-12)
	assert.Equal(t, s.Entity(left).Shape, cast.Shape)
	assert.Equal(t, s.Entity(left).Material, cast.Material)
}

func TestCastEntity_IntersectionMisses(t *testing.T) {
	s := New()
	left := addBall(t, s, core.NewVec3(0, 0, 0), 1)
	right := addBall(t, s, core.NewVec3(5, 0, 0), 1)
	both, err := s.AddIntersection(left, right)
	require.NoError(t, err)

	// Hits both spheres but the intervals never overlap
	_, ok := s.CastEntity(both, core.NewRay(core.NewVec3(-5, 0, 0), core.NewVec3(1, 0, 0)))
	assert.False(t, ok)

	// Hits only the left sphere
	_, ok = s.CastEntity(both, core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1)))
	assert.False(t, ok)
}

func TestCastEntity_Difference(t *testing.T) {
	tests := []struct {
		name        string
		rightCenter core.Vec3
		rightRadius float64
		hit         bool
		t0, t1      float64
		rightShape  bool
	}{
		// Ray runs along -z from z=5 so the left unit sphere is [4, 6]
		{"disjoint", core.NewVec3(3, 0, 0), 1, true, 4, 6, false},
		{"interval disjoint", core.NewVec3(0, 0, -5), 1, true, 4, 6, false},
		{"fully carved", core.NewVec3(0, 0, 0), 2, false, 0, 0, false},
		{"tail removed", core.NewVec3(0, 0, -1), 1, true, 4, 5, false},
		{"head removed", core.NewVec3(0, 0, 1), 1, true, 5, 6, true},
		{"shared entry reaching further", core.NewVec3(0, 0, -1), 2, false, 0, 0, false},
		// Ties resolve by case order
		{"right starts where left ends", core.NewVec3(0, 0, -2), 1, true, 4, 6, false},
		{"shared exit, right enters first", core.NewVec3(0, 0, 0.5), 1.5, true, 6, 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			left := addBall(t, s, core.NewVec3(0, 0, 0), 1)
			right := addBall(t, s, tt.rightCenter, tt.rightRadius)
			diff, err := s.AddDifference(left, right)
			require.NoError(t, err)

			cast, ok := s.CastEntity(diff, core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1)))
			require.Equal(t, tt.hit, ok)
			if !ok {
				return
			}
			assert.InDelta(t, tt.t0, cast.T0, 1e-12)
			assert.InDelta(t, tt.t1, cast.T1, 1e-12)
			assert.LessOrEqual(t, cast.T0, cast.T1)

			owner := left
			if tt.rightShape {
				owner = right
			}
			assert.Equal(t, s.Entity(owner).Shape, cast.Shape)
			assert.Equal(t, s.Entity(owner).Material, cast.Material)
		})
	}
}

func TestCastEntity_DifferenceConcentricCarvesEveryRay(t *testing.T) {
	s := New()
	left := addBall(t, s, core.NewVec3(0, 0, 0), 1)
	right := addBall(t, s, core.NewVec3(0, 0, 0), 2)
	diff, err := s.AddDifference(left, right)
	require.NoError(t, err)

	for _, dir := range []core.Vec3{
		core.NewVec3(0, 0, -1),
		core.NewVec3(0.1, 0.05, -1),
		core.NewVec3(-0.1, 0.15, -1),
	} {
		_, ok := s.CastEntity(diff, core.NewRay(core.NewVec3(0, 0, 5), dir))
		assert.False(t, ok, "direction %v", dir)
	}
}

func TestCastEntity_NestedDifference(t *testing.T) {
	// A golf ball style chain: ball minus two dimples
	s := New()
	ball := addBall(t, s, core.NewVec3(0, 0, 0), 1)
	front := addBall(t, s, core.NewVec3(0, 0, 1), 0.25)
	root, err := s.AddDifference(ball, front)
	require.NoError(t, err)
	back := addBall(t, s, core.NewVec3(0, 0, -1), 0.25)
	root, err = s.AddDifference(root, back)
	require.NoError(t, err)

	cast, ok := s.CastEntity(root, core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1)))
	require.True(t, ok)
	assert.InDelta(t, 4.25, cast.T0, 1e-12)
	assert.InDelta(t, 5.75, cast.T1, 1e-12)
	assert.Equal(t, s.Entity(front).Shape, cast.Shape)
}

func TestAddComposite_RejectsUnknownHandles(t *testing.T) {
	s := New()
	ball := addBall(t, s, core.NewVec3(0, 0, 0), 1)

	_, err := s.AddIntersection(ball, EntityID(7))
	assert.ErrorIs(t, err, ErrUnknownHandle)
	_, err = s.AddDifference(EntityID(-1), ball)
	assert.ErrorIs(t, err, ErrUnknownHandle)
	_, err = s.AddBasic(ShapeID(3), MaterialID(0))
	assert.ErrorIs(t, err, ErrUnknownHandle)
	assert.ErrorIs(t, s.AddObject(EntityID(9)), ErrUnknownHandle)
}

func TestEntityKind_String(t *testing.T) {
	assert.Equal(t, "basic", KindBasic.String())
	assert.Equal(t, "intersection", KindIntersection.String())
	assert.Equal(t, "difference", KindDifference.String())
	assert.Equal(t, "unknown", EntityKind(42).String())
}
