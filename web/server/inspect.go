package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
	"github.com/df07/go-csg-pathtracer/pkg/material"
	"github.com/df07/go-csg-pathtracer/pkg/scene"
)

// InspectResponse represents the JSON response for object inspection
type InspectResponse struct {
	Hit          bool           `json:"hit"`
	MaterialType string         `json:"materialType,omitempty"`
	GeometryType string         `json:"geometryType,omitempty"`
	EntityType   string         `json:"entityType,omitempty"` // Kind of the top-level object hit
	Object       int            `json:"object"`
	Point        [3]float64     `json:"point"`
	Normal       [3]float64     `json:"normal"`
	Distance     float64        `json:"distance"`
	FrontFace    bool           `json:"frontFace"`
	Properties   map[string]any `json:"properties,omitempty"`
}

func vecArray(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func hexColor(c core.Vec3) string {
	c = c.Clamp(0, 1)
	return fmt.Sprintf("#%02x%02x%02x", int(c.X*255), int(c.Y*255), int(c.Z*255))
}

// extractMaterialInfo extracts detailed material information with type assertions
func extractMaterialInfo(mat material.Material) (string, map[string]any) {
	properties := make(map[string]any)

	switch m := mat.(type) {
	case *material.Lambertian:
		properties["albedo"] = vecArray(m.Albedo)
		properties["color"] = hexColor(m.Albedo)
		return "lambertian", properties

	case *material.Metal:
		properties["albedo"] = vecArray(m.Albedo)
		properties["color"] = hexColor(m.Albedo)
		properties["fuzziness"] = m.Fuzziness
		return "metal", properties

	case *material.Dielectric:
		properties["refractiveIndex"] = m.RefractiveIndex
		properties["tint"] = vecArray(m.Tint)
		properties["color"] = hexColor(m.Tint)
		return "dielectric", properties

	default:
		return "unknown", properties
	}
}

// extractGeometryInfo extracts detailed geometry information
func extractGeometryInfo(shape geometry.Shape) (string, map[string]any) {
	properties := make(map[string]any)

	switch geom := shape.(type) {
	case *geometry.Sphere:
		properties["center"] = vecArray(geom.Center)
		properties["radius"] = geom.Radius
		return "sphere", properties

	default:
		return "unknown", properties
	}
}

// inspectPixel casts a ray through the center of pixel (x, y) and describes the first surface hit
func inspectPixel(sceneObj *scene.Scene, camera *geometry.Camera, width, height, x, y int) InspectResponse {
	s := float64(x) / math.Max(float64(width-1), 1)
	t := 1 - float64(y)/math.Max(float64(height-1), 1)
	ray := camera.GetRay(s, t)

	hit, ok := sceneObj.Trace(ray)
	if !ok {
		return InspectResponse{Hit: false, Object: -1}
	}

	collision := sceneObj.Shape(hit.Shape).GetCollision(ray, hit.T)
	materialType, materialProps := extractMaterialInfo(sceneObj.Material(hit.Material))
	geometryType, geometryProps := extractGeometryInfo(sceneObj.Shape(hit.Shape))

	return InspectResponse{
		Hit:          true,
		MaterialType: materialType,
		GeometryType: geometryType,
		EntityType:   sceneObj.Entity(hit.Object).Kind.String(),
		Object:       int(hit.Object),
		Point:        vecArray(collision.Position),
		Normal:       vecArray(collision.Normal),
		Distance:     hit.T * ray.Direction.Length(),
		FrontFace:    !collision.Internal,
		Properties: map[string]any{
			"material": materialProps,
			"geometry": geometryProps,
		},
	}
}

// handleInspect reports the surface seen through a pixel of the current render
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	pixelX, err := strconv.Atoi(query.Get("x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid x coordinate")
		return
	}
	pixelY, err := strconv.Atoi(query.Get("y"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid y coordinate")
		return
	}

	s.mu.Lock()
	current := s.session
	s.mu.Unlock()

	if current == nil {
		writeError(w, http.StatusNotFound, "nothing rendered yet")
		return
	}
	if pixelX < 0 || pixelX >= current.width || pixelY < 0 || pixelY >= current.height {
		writeError(w, http.StatusBadRequest, "Pixel coordinates out of bounds")
		return
	}

	writeJSON(w, http.StatusOK, inspectPixel(current.scene, current.camera, current.width, current.height, pixelX, pixelY))
}
