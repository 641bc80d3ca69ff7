package renderer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/df07/go-csg-pathtracer/pkg/core"
	"github.com/df07/go-csg-pathtracer/pkg/geometry"
	"github.com/df07/go-csg-pathtracer/pkg/integrator"
	"github.com/df07/go-csg-pathtracer/pkg/scene"
)

var (
	// ErrBufferSize is returned by Start when the buffer does not hold width*height RGBA pixels
	ErrBufferSize = errors.New("buffer size does not match image dimensions")
	// ErrClosed is returned by Start after Close
	ErrClosed = errors.New("renderer closed")
	// ErrStopped is returned by Wait when the render was stopped before it finished
	ErrStopped = errors.New("render stopped")
)

// State is the renderer's lifecycle state
type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Config contains renderer configuration
type Config struct {
	Samples int   // Paths per pixel, at least 1
	Bounces int   // Scatter events per path, at least 1
	Workers int   // Worker goroutines (0 = use CPU count)
	Seed    int64 // Base seed; tile i uses Seed+i
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		Samples: 10,
		Bounces: 8,
		Workers: 0,
		Seed:    42,
	}
}

// Renderer traces images on a fixed worker pool, one tile per task.
// Start and Stop may be called from any goroutine.
type Renderer struct {
	config Config
	logger core.Logger
	pool   *WorkerPool

	mu     sync.Mutex // serializes Start, Stop and Close
	job    *job       // latest render, guarded by mu
	closed bool

	// run packs the current generation with a running bit in the lowest position
	run atomic.Uint64
}

// job is one call to Start
type job struct {
	generation uint64
	tiles      *TileRenderer
	tilesTotal int
	started    time.Time

	pending   atomic.Int32
	tilesDone atomic.Int32
	pixels    atomic.Int64
	samples   atomic.Int64
	elapsed   atomic.Int64 // set when the last tile finishes
	stopped   atomic.Bool
	done      chan struct{}
}

// normalize fills in defaults and clamps counts
func (c Config) normalize() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	c.Samples = max(c.Samples, 1)
	c.Bounces = max(c.Bounces, 1)
	return c
}

// NewRenderer creates a renderer and starts its worker pool
func NewRenderer(config Config, logger core.Logger) *Renderer {
	config = config.normalize()
	if logger == nil {
		logger = core.NopLogger{}
	}

	r := &Renderer{config: config, logger: logger}
	r.pool = NewWorkerPool(config.Workers, r.renderTile)
	r.pool.Start()
	return r
}

// Config returns the effective configuration after defaults and clamping
func (r *Renderer) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config
}

// Reconfigure stops the render in progress, waits for its tiles and applies
// config to later Starts. The worker pool is replaced when the worker count changes.
func (r *Renderer) Reconfigure(config Config) error {
	config = config.normalize()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	if prev := r.job; prev != nil {
		r.stopLocked()
		<-prev.done
	}
	if config.Workers != r.config.Workers {
		r.pool.Stop()
		r.pool = NewWorkerPool(config.Workers, r.renderTile)
		r.pool.Start()
	}
	r.config = config
	return nil
}

// Start renders s through camera into buffer, replacing any render in progress.
// buffer must hold width*height RGBA pixels; pixel (x, y) starts at (x + y*width)*4.
// The camera must have been recalculated. Start returns once the tiles are queued.
func (r *Renderer) Start(camera *geometry.Camera, s *scene.Scene, buffer []byte, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image %dx%d: %w", width, height, ErrBufferSize)
	}
	if len(buffer) != width*height*4 {
		return fmt.Errorf("got %d bytes for %dx%d: %w", len(buffer), width, height, ErrBufferSize)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	// Let the previous render settle so no stale tile writes into a reused buffer
	if prev := r.job; prev != nil {
		r.stopLocked()
		<-prev.done
	}

	generation := r.run.Load()>>1 + 1
	tiles := NewTileGrid(width, height, 2*r.config.Workers, r.config.Seed)
	j := &job{
		generation: generation,
		tiles:      NewTileRenderer(camera, s, integrator.NewPathTracer(r.config.Bounces), r.config.Samples, buffer, width, height),
		tilesTotal: len(tiles),
		started:    time.Now(),
		done:       make(chan struct{}),
	}
	j.pending.Store(int32(len(tiles)))
	r.job = j
	r.run.Store(generation<<1 | 1)

	counts := s.Counts()
	r.logger.Printf("Rendering %dx%d, %d objects, %d samples, %d bounces, %d tiles on %d workers\n",
		width, height, counts.Objects, r.config.Samples, r.config.Bounces, len(tiles), r.pool.GetNumWorkers())

	for _, tile := range tiles {
		r.pool.SubmitTask(TileTask{Tile: tile, job: j})
	}
	return nil
}

// Stop cancels the current render. Queued tiles are dropped and tiles in
// flight return at the next pixel. Stop does not wait for them.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Renderer) stopLocked() {
	if r.job == nil {
		return
	}
	if r.run.CompareAndSwap(r.job.generation<<1|1, r.job.generation<<1) {
		r.job.stopped.Store(true)
		r.logger.Printf("Render stopped\n")
	}
	for _, task := range r.pool.Drain() {
		r.finishTile(task.job)
	}
}

// State reports whether a render is in progress
func (r *Renderer) State() State {
	return State(r.run.Load() & 1)
}

// Wait blocks until the latest render finishes or ctx is done.
// It returns ErrStopped if the render was stopped first.
func (r *Renderer) Wait(ctx context.Context) error {
	r.mu.Lock()
	j := r.job
	r.mu.Unlock()
	if j == nil {
		return nil
	}

	select {
	case <-j.done:
		if j.stopped.Load() {
			return ErrStopped
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Progress returns a snapshot of the latest render
func (r *Renderer) Progress() Stats {
	r.mu.Lock()
	j := r.job
	r.mu.Unlock()

	stats := Stats{State: r.State()}
	if j == nil {
		return stats
	}

	stats.TilesDone = int(j.tilesDone.Load())
	stats.TilesTotal = j.tilesTotal
	stats.Pixels = j.pixels.Load()
	stats.Samples = j.samples.Load()
	if elapsed := j.elapsed.Load(); elapsed > 0 {
		stats.Elapsed = time.Duration(elapsed)
	} else {
		stats.Elapsed = time.Since(j.started)
	}
	return stats
}

// Close stops the current render and shuts down the worker pool
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.stopLocked()
	r.pool.Stop()
}

// current reports whether j is the running render
func (r *Renderer) current(j *job) bool {
	return r.run.Load() == j.generation<<1|1
}

// renderTile is the worker pool handler
func (r *Renderer) renderTile(task TileTask) {
	j := task.job
	defer r.finishTile(j)

	if !r.current(j) {
		return
	}

	written := j.tiles.RenderTileBounds(task.Tile.Bounds, task.Tile.Random, func() bool {
		return r.current(j)
	})
	j.pixels.Add(int64(written))
	j.samples.Add(int64(written) * int64(j.tiles.samples))
	if written == task.Tile.Bounds.Dx()*task.Tile.Bounds.Dy() {
		j.tilesDone.Add(1)
	}
}

// finishTile retires one task of j, rendered or dropped
func (r *Renderer) finishTile(j *job) {
	if j.pending.Add(-1) != 0 {
		return
	}

	elapsed := time.Since(j.started)
	j.elapsed.Store(max(int64(elapsed), 1))
	if r.run.CompareAndSwap(j.generation<<1|1, j.generation<<1) {
		r.logger.Printf("Render completed in %v (%d pixels, %d samples)\n",
			elapsed, j.pixels.Load(), j.samples.Load())
	}
	close(j.done)
}
