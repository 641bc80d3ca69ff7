package renderer

import (
	"image"
	"math/rand"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
	"github.com/df07/go-csg-pathtracer/pkg/integrator"
	"github.com/df07/go-csg-pathtracer/pkg/scene"
)

// Tile represents a rectangular region of the image to be rendered
type Tile struct {
	ID     int             // Position in the grid, row-major
	Bounds image.Rectangle // Pixel bounds (x0,y0,x1,y1)
	Random *rand.Rand      // Tile-specific random generator for deterministic results
}

// NewTile creates a new tile whose generator is seeded from the render seed and the tile ID
func NewTile(id int, bounds image.Rectangle, seed int64) *Tile {
	return &Tile{
		ID:     id,
		Bounds: bounds,
		Random: rand.New(rand.NewSource(seed + int64(id))),
	}
}

// NewTileGrid splits the image into tilesPerAxis x tilesPerAxis tiles.
// The last row and column absorb the remainder and empty tiles are skipped.
func NewTileGrid(width, height, tilesPerAxis int, seed int64) []*Tile {
	tilesPerAxis = max(tilesPerAxis, 1)
	tileW := width / tilesPerAxis
	tileH := height / tilesPerAxis

	var tiles []*Tile
	for tileY := 0; tileY < tilesPerAxis; tileY++ {
		for tileX := 0; tileX < tilesPerAxis; tileX++ {
			x0, y0 := tileX*tileW, tileY*tileH
			x1, y1 := x0+tileW, y0+tileH
			if tileX == tilesPerAxis-1 {
				x1 = width
			}
			if tileY == tilesPerAxis-1 {
				y1 = height
			}

			bounds := image.Rect(x0, y0, x1, y1)
			if bounds.Empty() {
				continue
			}
			tiles = append(tiles, NewTile(tileY*tilesPerAxis+tileX, bounds, seed))
		}
	}

	return tiles
}

// TileRenderer traces the pixels of one tile into a shared RGBA buffer
type TileRenderer struct {
	camera     *geometry.Camera
	scene      *scene.Scene
	integrator integrator.Integrator
	samples    int
	buffer     []byte
	width      int
	height     int
}

// NewTileRenderer creates a tile renderer writing into buffer, which holds width*height RGBA pixels
func NewTileRenderer(camera *geometry.Camera, s *scene.Scene, integratorInst integrator.Integrator, samples int, buffer []byte, width, height int) *TileRenderer {
	return &TileRenderer{
		camera:     camera,
		scene:      s,
		integrator: integratorInst,
		samples:    max(samples, 1),
		buffer:     buffer,
		width:      width,
		height:     height,
	}
}

// RenderTileBounds renders the pixels inside bounds, column by column.
// keepGoing is polled before every pixel; it returns the number of pixels written.
func (tr *TileRenderer) RenderTileBounds(bounds image.Rectangle, random *rand.Rand, keepGoing func() bool) int {
	written := 0
	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			if !keepGoing() {
				return written
			}
			tr.writePixel(x, y, tr.samplePixel(x, y, random))
			written++
		}
	}
	return written
}

// samplePixel averages the configured number of paths through pixel (x, y)
func (tr *TileRenderer) samplePixel(x, y int, random *rand.Rand) core.Vec3 {
	xDenom := float64(max(tr.width-1, 1))
	yDenom := float64(max(tr.height-1, 1))

	colorAccum := core.Vec3{}
	for sample := 0; sample < tr.samples; sample++ {
		px, py := float64(x), float64(y)
		if tr.samples > 1 {
			px += random.Float64() - 0.5
			py += random.Float64() - 0.5
		}

		// Jitter on edge pixels stays inside the image plane
		s := min(max(px/xDenom, 0), 1)
		t := min(max(1.0-py/yDenom, 0), 1)
		ray := tr.camera.GetRay(s, t)
		color := tr.integrator.RayColor(ray, tr.scene, random)
		if !color.IsFinite() {
			continue
		}
		colorAccum = colorAccum.Add(color)
	}

	return colorAccum.Multiply(1.0 / float64(tr.samples))
}

// writePixel stores color at (x, y) with gamma 2 correction and full alpha
func (tr *TileRenderer) writePixel(x, y int, color core.Vec3) {
	rgba := vec3ToRGBA(color)
	i := (x + y*tr.width) * 4
	copy(tr.buffer[i:i+4], rgba[:])
}

// vec3ToRGBA converts a linear color to gamma corrected 8-bit RGBA
func vec3ToRGBA(color core.Vec3) [4]byte {
	color = color.Sqrt().Clamp(0.0, 1.0)
	return [4]byte{
		uint8(255 * color.X),
		uint8(255 * color.Y),
		uint8(255 * color.Z),
		255,
	}
}
