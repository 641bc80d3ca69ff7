package scene

import (
	"github.com/df07/go-csg-pathtracer/pkg/core"
)

// EntityKind selects the variant of an Entity
type EntityKind uint8

const (
	KindBasic        EntityKind = iota // shape + material leaf
	KindIntersection                   // left AND right
	KindDifference                     // left minus right
)

func (k EntityKind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindIntersection:
		return "intersection"
	case KindDifference:
		return "difference"
	default:
		return "unknown"
	}
}

// Entity is a node of a CSG tree. Basic entities use Shape and Material,
// composites use Left and Right.
type Entity struct {
	Kind     EntityKind
	Shape    ShapeID
	Material MaterialID
	Left     EntityID
	Right    EntityID
}

// RayCast is the interval [T0, T1] a ray spends inside an entity, together
// with the shape and material of the boundary the ray sees
type RayCast struct {
	T0, T1   float64
	Shape    ShapeID
	Material MaterialID
}

// CastEntity intersects ray with the solid described by entity id
func (s *Scene) CastEntity(id EntityID, ray core.Ray) (RayCast, bool) {
	e := s.entities.items[id]
	switch e.Kind {
	case KindBasic:
		return s.castBasic(e, ray)
	case KindIntersection:
		return s.castIntersection(e, ray)
	case KindDifference:
		return s.castDifference(e, ray)
	default:
		return RayCast{}, false
	}
}

func (s *Scene) castBasic(e Entity, ray core.Ray) (RayCast, bool) {
	t0, t1, ok := s.shapes.items[e.Shape].CheckHit(ray)
	if !ok {
		return RayCast{}, false
	}
	return RayCast{T0: t0, T1: t1, Shape: e.Shape, Material: e.Material}, true
}

func (s *Scene) castIntersection(e Entity, ray core.Ray) (RayCast, bool) {
	left, leftOk := s.CastEntity(e.Left, ray)
	right, rightOk := s.CastEntity(e.Right, ray)
	if !leftOk || !rightOk {
		return RayCast{}, false
	}

	cast := RayCast{T0: max(left.T0, right.T0), T1: min(left.T1, right.T1)}
	if cast.T0 > cast.T1 {
		return RayCast{}, false
	}

	// The later entry is the exposed one; the other volume extends past it
	if left.T0 > right.T0 {
		cast.Shape, cast.Material = left.Shape, left.Material
	} else {
		cast.Shape, cast.Material = right.Shape, right.Material
	}
	return cast, true
}

// castDifference cases are order sensitive
func (s *Scene) castDifference(e Entity, ray core.Ray) (RayCast, bool) {
	left, leftOk := s.CastEntity(e.Left, ray)
	if !leftOk {
		return RayCast{}, false
	}
	right, rightOk := s.CastEntity(e.Right, ray)

	switch {
	case !rightOk:
		return left, true
	case right.T0 > left.T1 || left.T0 > right.T1:
		// disjoint
		return left, true
	case right.T1 > left.T1 && right.T0 < left.T0:
		// carved away entirely
		return RayCast{}, false
	case right.T0 > left.T0:
		// right removes the tail
		return RayCast{
			T0:       left.T0,
			T1:       min(left.T1, right.T0),
			Shape:    left.Shape,
			Material: left.Material,
		}, true
	case right.T1 > left.T1:
		// shared entry with right reaching further: nothing of left is left
		return RayCast{}, false
	default:
		// right removes the head; its far wall becomes the visible surface
		return RayCast{
			T0:       right.T1,
			T1:       left.T1,
			Shape:    right.Shape,
			Material: right.Material,
		}, true
	}
}
