package renderer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
	"github.com/df07/go-csg-pathtracer/pkg/material"
	"github.com/df07/go-csg-pathtracer/pkg/scene"
)

func newTestRenderer(t *testing.T, config Config) *Renderer {
	t.Helper()
	r := NewRenderer(config, core.NopLogger{})
	t.Cleanup(r.Close)
	return r
}

func waitFor(t *testing.T, r *Renderer) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return r.Wait(ctx)
}

// filledViewScene places a diffuse ball that covers the whole test camera view
func filledViewScene(t *testing.T, albedo core.Vec3) *scene.Scene {
	t.Helper()
	s := scene.New()
	s.Background = scene.Background{Bottom: core.NewVec3(1, 1, 1), Top: core.NewVec3(1, 1, 1)}
	shape := s.AddSphere(geometry.NewSphere(core.NewVec3(0, 0, -20), 15))
	id, err := s.AddBasic(shape, s.AddMaterial(material.NewLambertian(albedo)))
	require.NoError(t, err)
	require.NoError(t, s.AddObject(id))
	return s
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "unknown", State(5).String())
}

func TestNewRenderer_ClampsConfig(t *testing.T) {
	r := newTestRenderer(t, Config{Samples: 0, Bounces: -2, Workers: 0})
	config := r.Config()
	assert.Equal(t, 1, config.Samples)
	assert.Equal(t, 1, config.Bounces)
	assert.Positive(t, config.Workers)
	assert.Equal(t, Idle, r.State())
}

func TestStart_RejectsBadBuffer(t *testing.T) {
	r := newTestRenderer(t, Config{Workers: 1})
	camera := testCamera()
	s := scene.New()

	err := r.Start(camera, s, make([]byte, 10), 2, 2)
	assert.ErrorIs(t, err, ErrBufferSize)

	err = r.Start(camera, s, nil, 0, 5)
	assert.ErrorIs(t, err, ErrBufferSize)

	assert.Equal(t, Idle, r.State())
}

func TestRender_UniformAlbedo(t *testing.T) {
	const width, height = 16, 12
	r := newTestRenderer(t, Config{Samples: 1, Bounces: 1, Workers: 2, Seed: 7})
	buffer := make([]byte, width*height*4)

	require.NoError(t, r.Start(testCamera(), filledViewScene(t, core.NewVec3(0.25, 0.25, 0.25)), buffer, width, height))
	require.NoError(t, waitFor(t, r))

	for i := 0; i < width*height; i++ {
		require.Equal(t, []byte{127, 127, 127, 255}, buffer[i*4:i*4+4], "pixel %d", i)
	}
	assert.Equal(t, Idle, r.State())
}

func TestRender_EmptySceneShowsSky(t *testing.T) {
	const width, height = 5, 4
	r := newTestRenderer(t, Config{Samples: 1, Bounces: 3, Workers: 3})
	camera := testCamera()
	s := scene.New()
	buffer := make([]byte, width*height*4)

	require.NoError(t, r.Start(camera, s, buffer, width, height))
	require.NoError(t, waitFor(t, r))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			ray := camera.GetRay(float64(x)/(width-1), 1-float64(y)/(height-1))
			expected := vec3ToRGBA(s.Background.Color(ray.Direction))
			i := (x + y*width) * 4
			assert.Equal(t, expected[:], buffer[i:i+4], "pixel (%d, %d)", x, y)
		}
	}

	// The top row looks further up, so it is bluer than the bottom row
	assert.Less(t, buffer[0], buffer[(height-1)*width*4])
}

func TestRender_DeterministicForSeed(t *testing.T) {
	const width, height = 24, 16
	s := scene.NewGolfBallScene(1)
	config := s.CameraConfig
	config.AspectRatio = float64(width) / float64(height)
	camera := geometry.NewCamera(config)

	render := func() []byte {
		r := newTestRenderer(t, Config{Samples: 3, Bounces: 4, Workers: 2, Seed: 9})
		buffer := make([]byte, width*height*4)
		require.NoError(t, r.Start(camera, s, buffer, width, height))
		require.NoError(t, waitFor(t, r))
		return buffer
	}

	assert.Equal(t, render(), render())
}

func TestRender_ProgressWhenFinished(t *testing.T) {
	const width, height = 10, 10
	r := newTestRenderer(t, Config{Samples: 2, Bounces: 2, Workers: 2})
	require.NoError(t, r.Start(testCamera(), filledViewScene(t, core.NewVec3(0.5, 0.5, 0.5)), make([]byte, width*height*4), width, height))
	require.NoError(t, waitFor(t, r))

	stats := r.Progress()
	assert.Equal(t, Idle, stats.State)
	assert.Equal(t, 16, stats.TilesTotal)
	assert.Equal(t, stats.TilesTotal, stats.TilesDone)
	assert.Equal(t, int64(width*height), stats.Pixels)
	assert.Equal(t, int64(width*height*2), stats.Samples)
	assert.Positive(t, stats.Elapsed)
	assert.Equal(t, 1.0, stats.Fraction())

	// Elapsed is frozen after the last tile
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, stats.Elapsed, r.Progress().Elapsed)
}

// slowRender starts a render large enough to still be running when the test acts on it
func slowRender(t *testing.T, r *Renderer) []byte {
	t.Helper()
	const width, height = 320, 180
	buffer := make([]byte, width*height*4)
	s := scene.NewDefaultScene(1)
	require.NoError(t, r.Start(geometry.NewCamera(s.CameraConfig), s, buffer, width, height))
	return buffer
}

func TestStop_CancelsRender(t *testing.T) {
	r := newTestRenderer(t, Config{Samples: 200, Bounces: 8, Workers: 2})
	slowRender(t, r)
	assert.Equal(t, Running, r.State())

	r.Stop()
	assert.Equal(t, Idle, r.State())
	assert.ErrorIs(t, waitFor(t, r), ErrStopped)

	stats := r.Progress()
	assert.Less(t, stats.TilesDone, stats.TilesTotal)

	// Stopping again is harmless
	r.Stop()
	assert.Equal(t, Idle, r.State())
}

func TestStart_ReplacesRunningRender(t *testing.T) {
	r := newTestRenderer(t, Config{Samples: 200, Bounces: 8, Workers: 2})
	slowRender(t, r)
	require.Equal(t, Running, r.State())

	const width, height = 8, 8
	buffer := make([]byte, width*height*4)
	require.NoError(t, r.Start(testCamera(), filledViewScene(t, core.NewVec3(1, 1, 1)), buffer, width, height))
	require.NoError(t, waitFor(t, r))

	assert.Equal(t, Idle, r.State())
	stats := r.Progress()
	assert.Equal(t, int64(width*height), stats.Pixels)
	assert.Equal(t, byte(255), buffer[0])
}

func TestWait_WithoutRender(t *testing.T) {
	r := newTestRenderer(t, Config{Workers: 1})
	assert.NoError(t, r.Wait(context.Background()))
	assert.Equal(t, Stats{State: Idle}, r.Progress())
}

func TestWait_HonorsContext(t *testing.T) {
	r := newTestRenderer(t, Config{Samples: 200, Bounces: 8, Workers: 1})
	slowRender(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
	r.Stop()
}

func TestClose_RejectsStart(t *testing.T) {
	r := NewRenderer(Config{Workers: 1}, nil)
	r.Close()
	r.Close()

	err := r.Start(testCamera(), scene.New(), make([]byte, 4), 1, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestReconfigure_AppliesToNextRender(t *testing.T) {
	r := newTestRenderer(t, Config{Samples: 200, Bounces: 8, Workers: 2, Seed: 1})
	slowRender(t, r)
	require.Equal(t, Running, r.State())

	// The running render is stopped first
	require.NoError(t, r.Reconfigure(Config{Samples: 3, Bounces: 0, Workers: 3, Seed: 9}))
	assert.Equal(t, Idle, r.State())
	assert.Equal(t, Config{Samples: 3, Bounces: 1, Workers: 3, Seed: 9}, r.Config())

	const width, height = 6, 6
	require.NoError(t, r.Start(testCamera(), filledViewScene(t, core.NewVec3(0.5, 0.5, 0.5)), make([]byte, width*height*4), width, height))
	require.NoError(t, waitFor(t, r))

	stats := r.Progress()
	assert.Equal(t, 36, stats.TilesTotal)
	assert.Equal(t, int64(width*height), stats.Pixels)
	assert.Equal(t, int64(width*height*3), stats.Samples)
}

func TestReconfigure_AfterClose(t *testing.T) {
	r := NewRenderer(Config{Workers: 1}, nil)
	r.Close()
	assert.ErrorIs(t, r.Reconfigure(Config{Workers: 2}), ErrClosed)
}
