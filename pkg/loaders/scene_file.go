package loaders

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
	"github.com/df07/go-csg-pathtracer/pkg/material"
	"github.com/df07/go-csg-pathtracer/pkg/scene"
)

var (
	// ErrUnknownFormat is returned for file extensions no decoder handles
	ErrUnknownFormat = errors.New("unknown file format")
	// ErrInvalidScene is returned when a description cannot be turned into a scene
	ErrInvalidScene = errors.New("invalid scene description")
)

// Format is a scene description encoding
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "unknown"
	}
}

// FormatFromPath picks the format from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return 0, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}

// decoder is the common shape of the json, yaml and toml decoders
type decoder interface {
	Decode(v any) error
}

// newDecoder returns a strict decoder that rejects unknown keys
func newDecoder(format Format, r io.Reader) (decoder, error) {
	switch format {
	case FormatJSON:
		d := json.NewDecoder(r)
		d.DisallowUnknownFields()
		return d, nil
	case FormatYAML:
		d := yaml.NewDecoder(r)
		d.KnownFields(true)
		return d, nil
	case FormatTOML:
		d := toml.NewDecoder(r)
		d.DisallowUnknownFields()
		return d, nil
	default:
		return nil, fmt.Errorf("format %d: %w", format, ErrUnknownFormat)
	}
}

// SceneDescription is the decoded form of a scene file.
// Keys are identical in every format.
type SceneDescription struct {
	Camera     *CameraSection     `json:"camera,omitempty" yaml:"camera,omitempty" toml:"camera,omitempty"`
	Render     *RenderSection     `json:"render,omitempty" yaml:"render,omitempty" toml:"render,omitempty"`
	Background *BackgroundSection `json:"background,omitempty" yaml:"background,omitempty" toml:"background,omitempty"`
	Materials  []MaterialSpec     `json:"materials" yaml:"materials" toml:"materials"`
	Shapes     []ShapeSpec        `json:"shapes" yaml:"shapes" toml:"shapes"`
	Entities   []EntitySpec       `json:"entities" yaml:"entities" toml:"entities"`
	Objects    []string           `json:"objects" yaml:"objects" toml:"objects"`
}

// CameraSection overrides the default camera. Missing keys keep their defaults.
type CameraSection struct {
	LookFrom      []float64 `json:"look_from,omitempty" yaml:"look_from,omitempty" toml:"look_from,omitempty"`
	LookAt        []float64 `json:"look_at,omitempty" yaml:"look_at,omitempty" toml:"look_at,omitempty"`
	Up            []float64 `json:"up,omitempty" yaml:"up,omitempty" toml:"up,omitempty"`
	VerticalFOV   float64   `json:"vertical_fov,omitempty" yaml:"vertical_fov,omitempty" toml:"vertical_fov,omitempty"`
	AspectRatio   float64   `json:"aspect_ratio,omitempty" yaml:"aspect_ratio,omitempty" toml:"aspect_ratio,omitempty"`
	PlaneDistance float64   `json:"plane_distance,omitempty" yaml:"plane_distance,omitempty" toml:"plane_distance,omitempty"`
}

// RenderSection holds the recommended render settings. Zero values keep the defaults.
type RenderSection struct {
	Width   int   `json:"width,omitempty" yaml:"width,omitempty" toml:"width,omitempty"`
	Height  int   `json:"height,omitempty" yaml:"height,omitempty" toml:"height,omitempty"`
	Samples int   `json:"samples,omitempty" yaml:"samples,omitempty" toml:"samples,omitempty"`
	Bounces int   `json:"bounces,omitempty" yaml:"bounces,omitempty" toml:"bounces,omitempty"`
	Workers int   `json:"workers,omitempty" yaml:"workers,omitempty" toml:"workers,omitempty"`
	Seed    int64 `json:"seed,omitempty" yaml:"seed,omitempty" toml:"seed,omitempty"`
}

// BackgroundSection sets the sky gradient
type BackgroundSection struct {
	Top    []float64 `json:"top,omitempty" yaml:"top,omitempty" toml:"top,omitempty"`
	Bottom []float64 `json:"bottom,omitempty" yaml:"bottom,omitempty" toml:"bottom,omitempty"`
}

// MaterialSpec describes a metal, lambertian or dielectric material
type MaterialSpec struct {
	Name            string    `json:"name" yaml:"name" toml:"name"`
	Type            string    `json:"type" yaml:"type" toml:"type"`
	Albedo          []float64 `json:"albedo,omitempty" yaml:"albedo,omitempty" toml:"albedo,omitempty"`
	Fuzziness       float64   `json:"fuzziness,omitempty" yaml:"fuzziness,omitempty" toml:"fuzziness,omitempty"`
	RefractiveIndex float64   `json:"refractive_index,omitempty" yaml:"refractive_index,omitempty" toml:"refractive_index,omitempty"`
	Tint            []float64 `json:"tint,omitempty" yaml:"tint,omitempty" toml:"tint,omitempty"`
}

// ShapeSpec describes a shape. Spheres are the only type.
type ShapeSpec struct {
	Name   string    `json:"name" yaml:"name" toml:"name"`
	Type   string    `json:"type" yaml:"type" toml:"type"`
	Center []float64 `json:"center" yaml:"center" toml:"center"`
	Radius float64   `json:"radius" yaml:"radius" toml:"radius"`
}

// EntitySpec describes a basic entity (shape + material) or a CSG composite (left + right)
type EntitySpec struct {
	Name     string `json:"name" yaml:"name" toml:"name"`
	Type     string `json:"type" yaml:"type" toml:"type"`
	Shape    string `json:"shape,omitempty" yaml:"shape,omitempty" toml:"shape,omitempty"`
	Material string `json:"material,omitempty" yaml:"material,omitempty" toml:"material,omitempty"`
	Left     string `json:"left,omitempty" yaml:"left,omitempty" toml:"left,omitempty"`
	Right    string `json:"right,omitempty" yaml:"right,omitempty" toml:"right,omitempty"`
}

// ReadSceneFile decodes the scene description at path, choosing the format by extension
func ReadSceneFile(path string) (*SceneDescription, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	desc, err := ParseScene(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return desc, nil
}

// ParseScene decodes a scene description in the given format
func ParseScene(data []byte, format Format) (*SceneDescription, error) {
	d, err := newDecoder(format, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var desc SceneDescription
	if err := d.Decode(&desc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode %s: %w", format, err)
	}
	return &desc, nil
}

// LoadScene reads and builds the scene at path
func LoadScene(path string) (*scene.Scene, *SceneDescription, error) {
	desc, err := ReadSceneFile(path)
	if err != nil {
		return nil, nil, err
	}
	s, err := desc.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, desc, nil
}

// Build creates the described scene. Names are unique per section and
// entities may only reference entities declared before them.
func (d *SceneDescription) Build() (*scene.Scene, error) {
	s := scene.New()

	if err := d.applyRender(s); err != nil {
		return nil, err
	}
	if err := d.applyCamera(s); err != nil {
		return nil, err
	}
	if err := d.applyBackground(s); err != nil {
		return nil, err
	}

	materials := make(map[string]scene.MaterialID, len(d.Materials))
	for i, spec := range d.Materials {
		if err := checkName("material", i, spec.Name, materials); err != nil {
			return nil, err
		}
		m, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", spec.Name, err)
		}
		materials[spec.Name] = s.AddMaterial(m)
	}

	shapes := make(map[string]scene.ShapeID, len(d.Shapes))
	for i, spec := range d.Shapes {
		if err := checkName("shape", i, spec.Name, shapes); err != nil {
			return nil, err
		}
		shape, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", spec.Name, err)
		}
		shapes[spec.Name] = s.AddShape(shape)
	}

	entities := make(map[string]scene.EntityID, len(d.Entities))
	for i, spec := range d.Entities {
		if err := checkName("entity", i, spec.Name, entities); err != nil {
			return nil, err
		}
		id, err := spec.build(s, shapes, materials, entities)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", spec.Name, err)
		}
		entities[spec.Name] = id
	}

	for _, name := range d.Objects {
		id, ok := entities[name]
		if !ok {
			return nil, fmt.Errorf("object %q: unknown entity: %w", name, ErrInvalidScene)
		}
		if err := s.AddObject(id); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (d *SceneDescription) applyRender(s *scene.Scene) error {
	if d.Render == nil {
		return nil
	}
	r := d.Render
	if r.Width < 0 || r.Height < 0 || r.Samples < 0 || r.Bounces < 0 || r.Workers < 0 {
		return fmt.Errorf("render settings must not be negative: %w", ErrInvalidScene)
	}

	sc := &s.SamplingConfig
	if r.Width > 0 {
		sc.Width = r.Width
	}
	if r.Height > 0 {
		sc.Height = r.Height
	}
	if r.Samples > 0 {
		sc.Samples = r.Samples
	}
	if r.Bounces > 0 {
		sc.Bounces = r.Bounces
	}
	return nil
}

func (d *SceneDescription) applyCamera(s *scene.Scene) error {
	config := geometry.DefaultCameraConfig()
	// Match the image shape unless the file says otherwise
	config.AspectRatio = float64(s.SamplingConfig.Width) / float64(s.SamplingConfig.Height)

	if c := d.Camera; c != nil {
		var err error
		if config.LookFrom, err = optionalVec("camera.look_from", c.LookFrom, config.LookFrom); err != nil {
			return err
		}
		if config.LookAt, err = optionalVec("camera.look_at", c.LookAt, config.LookAt); err != nil {
			return err
		}
		if config.Up, err = optionalVec("camera.up", c.Up, config.Up); err != nil {
			return err
		}
		if c.VerticalFOV != 0 {
			config.VerticalFOV = c.VerticalFOV
		}
		if c.AspectRatio != 0 {
			config.AspectRatio = c.AspectRatio
		}
		if c.PlaneDistance != 0 {
			config.PlaneDistance = c.PlaneDistance
		}
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("camera: %w: %w", ErrInvalidScene, err)
	}
	s.CameraConfig = config
	return nil
}

func (d *SceneDescription) applyBackground(s *scene.Scene) error {
	if d.Background == nil {
		return nil
	}
	var err error
	if s.Background.Top, err = optionalVec("background.top", d.Background.Top, s.Background.Top); err != nil {
		return err
	}
	if s.Background.Bottom, err = optionalVec("background.bottom", d.Background.Bottom, s.Background.Bottom); err != nil {
		return err
	}
	return nil
}

func (spec MaterialSpec) build() (material.Material, error) {
	switch spec.Type {
	case "metal":
		albedo, err := requiredVec("albedo", spec.Albedo)
		if err != nil {
			return nil, err
		}
		return material.NewMetal(albedo, spec.Fuzziness), nil
	case "lambertian":
		albedo, err := requiredVec("albedo", spec.Albedo)
		if err != nil {
			return nil, err
		}
		return material.NewLambertian(albedo), nil
	case "dielectric":
		if spec.RefractiveIndex <= 0 {
			return nil, fmt.Errorf("refractive_index must be positive: %w", ErrInvalidScene)
		}
		tint, err := optionalVec("tint", spec.Tint, core.NewVec3(1, 1, 1))
		if err != nil {
			return nil, err
		}
		return material.NewTintedDielectric(spec.RefractiveIndex, tint), nil
	default:
		return nil, fmt.Errorf("unknown material type %q: %w", spec.Type, ErrInvalidScene)
	}
}

func (spec ShapeSpec) build() (geometry.Shape, error) {
	if spec.Type != "sphere" {
		return nil, fmt.Errorf("unknown shape type %q: %w", spec.Type, ErrInvalidScene)
	}
	center, err := requiredVec("center", spec.Center)
	if err != nil {
		return nil, err
	}
	if spec.Radius <= 0 {
		return nil, fmt.Errorf("radius must be positive: %w", ErrInvalidScene)
	}
	return geometry.NewSphere(center, spec.Radius), nil
}

func (spec EntitySpec) build(s *scene.Scene, shapes map[string]scene.ShapeID, materials map[string]scene.MaterialID, entities map[string]scene.EntityID) (scene.EntityID, error) {
	switch spec.Type {
	case "basic":
		shape, ok := shapes[spec.Shape]
		if !ok {
			return -1, fmt.Errorf("unknown shape %q: %w", spec.Shape, ErrInvalidScene)
		}
		mat, ok := materials[spec.Material]
		if !ok {
			return -1, fmt.Errorf("unknown material %q: %w", spec.Material, ErrInvalidScene)
		}
		return s.AddBasic(shape, mat)
	case "intersection", "difference":
		left, ok := entities[spec.Left]
		if !ok {
			return -1, fmt.Errorf("unknown left entity %q: %w", spec.Left, ErrInvalidScene)
		}
		right, ok := entities[spec.Right]
		if !ok {
			return -1, fmt.Errorf("unknown right entity %q: %w", spec.Right, ErrInvalidScene)
		}
		if spec.Type == "intersection" {
			return s.AddIntersection(left, right)
		}
		return s.AddDifference(left, right)
	default:
		return -1, fmt.Errorf("unknown entity type %q: %w", spec.Type, ErrInvalidScene)
	}
}

func checkName[T any](section string, index int, name string, seen map[string]T) error {
	if name == "" {
		return fmt.Errorf("%s #%d has no name: %w", section, index, ErrInvalidScene)
	}
	if _, dup := seen[name]; dup {
		return fmt.Errorf("duplicate %s name %q: %w", section, name, ErrInvalidScene)
	}
	return nil
}

func requiredVec(key string, v []float64) (core.Vec3, error) {
	if v == nil {
		return core.Vec3{}, fmt.Errorf("%s is required: %w", key, ErrInvalidScene)
	}
	return optionalVec(key, v, core.Vec3{})
}

func optionalVec(key string, v []float64, fallback core.Vec3) (core.Vec3, error) {
	if v == nil {
		return fallback, nil
	}
	if len(v) != 3 {
		return core.Vec3{}, fmt.Errorf("%s needs 3 components, got %d: %w", key, len(v), ErrInvalidScene)
	}
	return core.NewVec3(v[0], v[1], v[2]), nil
}
