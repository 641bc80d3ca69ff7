package scene

import (
	"errors"
	"fmt"

	"github.com/df07/go-csg-pathtracer/pkg/geometry"
	"github.com/df07/go-csg-pathtracer/pkg/material"
)

// ErrUnknownHandle is returned when a handle does not name a stored object
var ErrUnknownHandle = errors.New("unknown handle")

// ShapeID identifies a shape stored in a Scene
type ShapeID int32

// MaterialID identifies a material stored in a Scene
type MaterialID int32

// EntityID identifies an entity stored in a Scene
type EntityID int32

// store is an append-only arena. Handles are indices and stay valid as it grows.
type store[T any] struct {
	items []T
}

func (s *store[T]) add(item T) int32 {
	s.items = append(s.items, item)
	return int32(len(s.items) - 1)
}

func (s *store[T]) valid(id int32) bool {
	return id >= 0 && int(id) < len(s.items)
}

func (s *store[T]) len() int {
	return len(s.items)
}

// AddShape stores a shape and returns its handle
func (s *Scene) AddShape(shape geometry.Shape) ShapeID {
	return ShapeID(s.shapes.add(shape))
}

// AddSphere is shorthand for AddShape(geometry.NewSphere(...))
func (s *Scene) AddSphere(sphere *geometry.Sphere) ShapeID {
	return s.AddShape(sphere)
}

// AddMaterial stores a material and returns its handle
func (s *Scene) AddMaterial(m material.Material) MaterialID {
	return MaterialID(s.materials.add(m))
}

// AddBasic stores a leaf entity pairing a shape with a material
func (s *Scene) AddBasic(shape ShapeID, mat MaterialID) (EntityID, error) {
	if !s.shapes.valid(int32(shape)) {
		return -1, fmt.Errorf("shape %d: %w", shape, ErrUnknownHandle)
	}
	if !s.materials.valid(int32(mat)) {
		return -1, fmt.Errorf("material %d: %w", mat, ErrUnknownHandle)
	}
	return EntityID(s.entities.add(Entity{Kind: KindBasic, Shape: shape, Material: mat})), nil
}

// AddIntersection stores left AND right
func (s *Scene) AddIntersection(left, right EntityID) (EntityID, error) {
	return s.addComposite(KindIntersection, left, right)
}

// AddDifference stores left minus right
func (s *Scene) AddDifference(left, right EntityID) (EntityID, error) {
	return s.addComposite(KindDifference, left, right)
}

// addComposite only accepts children that already exist, so entities never form a cycle
func (s *Scene) addComposite(kind EntityKind, left, right EntityID) (EntityID, error) {
	if !s.entities.valid(int32(left)) {
		return -1, fmt.Errorf("%s left entity %d: %w", kind, left, ErrUnknownHandle)
	}
	if !s.entities.valid(int32(right)) {
		return -1, fmt.Errorf("%s right entity %d: %w", kind, right, ErrUnknownHandle)
	}
	return EntityID(s.entities.add(Entity{Kind: kind, Left: left, Right: right})), nil
}

// AddObject registers an entity as a top-level object of the scene.
// A composite is added once, at its root.
func (s *Scene) AddObject(id EntityID) error {
	if !s.entities.valid(int32(id)) {
		return fmt.Errorf("object %d: %w", id, ErrUnknownHandle)
	}
	s.objects = append(s.objects, id)
	return nil
}

// Shape returns the stored shape for id
func (s *Scene) Shape(id ShapeID) geometry.Shape {
	return s.shapes.items[id]
}

// Material returns the stored material for id
func (s *Scene) Material(id MaterialID) material.Material {
	return s.materials.items[id]
}

// Entity returns the stored entity for id
func (s *Scene) Entity(id EntityID) Entity {
	return s.entities.items[id]
}

// Objects returns the top-level entities
func (s *Scene) Objects() []EntityID {
	return s.objects
}

// Counts reports the size of each store
type Counts struct {
	Shapes    int
	Materials int
	Entities  int
	Objects   int
}

// Counts returns the number of stored objects
func (s *Scene) Counts() Counts {
	return Counts{
		Shapes:    s.shapes.len(),
		Materials: s.materials.len(),
		Entities:  s.entities.len(),
		Objects:   len(s.objects),
	}
}
