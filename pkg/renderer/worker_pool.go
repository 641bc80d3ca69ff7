package renderer

import (
	"runtime"
	"sync"
)

// TileTask represents a tile rendering task for the worker pool
type TileTask struct {
	Tile *Tile
	job  *job // Render the tile belongs to
}

// WorkerPool runs tile tasks on a fixed set of goroutines
type WorkerPool struct {
	taskQueue  chan TileTask
	numWorkers int
	handle     func(TileTask)
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// NewWorkerPool creates a worker pool with the specified number of workers.
// The queue holds a full tile grid so submitting a render never blocks.
func NewWorkerPool(numWorkers int, handle func(TileTask)) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	tilesPerAxis := 2 * numWorkers

	return &WorkerPool{
		taskQueue:  make(chan TileTask, tilesPerAxis*tilesPerAxis),
		numWorkers: numWorkers,
		handle:     handle,
	}
}

// Start begins all workers
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.run()
	}
}

// Stop closes the queue and waits for workers to finish their current task
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.taskQueue)
		wp.wg.Wait()
	})
}

// SubmitTask submits a tile task to the worker pool
func (wp *WorkerPool) SubmitTask(task TileTask) {
	wp.taskQueue <- task
}

// Drain removes every task no worker has picked up yet and returns them
func (wp *WorkerPool) Drain() []TileTask {
	var drained []TileTask
	for {
		select {
		case task, ok := <-wp.taskQueue:
			if !ok {
				return drained
			}
			drained = append(drained, task)
		default:
			return drained
		}
	}
}

// GetNumWorkers returns the number of workers in the pool
func (wp *WorkerPool) GetNumWorkers() int {
	return wp.numWorkers
}

// run is the main worker loop
func (wp *WorkerPool) run() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		wp.handle(task)
	}
}
