package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrPoolStopped is returned by Dispatch after Stop
var ErrPoolStopped = errors.New("renderer: worker pool stopped")

// TileTask is one tile of a kernel dispatch
type TileTask struct {
	Tile     *Tile
	Kernel   func(x, y int)
	dispatch *dispatch
}

// dispatch tracks the tiles of one Dispatch call
type dispatch struct {
	wg   sync.WaitGroup
	once sync.Once
	err  error
}

func (d *dispatch) fail(err error) {
	d.once.Do(func() { d.err = err })
}

// WorkerPool runs per-pixel kernels over tiles on a fixed set of goroutines.
// It implements graph.Dispatcher: Dispatch returns once every tile is done,
// so consecutive dispatches observe each other's writes.
type WorkerPool struct {
	taskQueue  chan TileTask
	numWorkers int
	tileSize   int
	wg         sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	grids   map[[2]int][]*Tile // Tile grids cached by frame size
}

// NewWorkerPool creates a worker pool with the specified number of workers
func NewWorkerPool(numWorkers, tileSize int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if tileSize <= 0 {
		tileSize = 16
	}

	return &WorkerPool{
		taskQueue:  make(chan TileTask, numWorkers*4),
		numWorkers: numWorkers,
		tileSize:   tileSize,
		grids:      map[[2]int][]*Tile{},
	}
}

// Start begins all workers
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.run()
	}
}

// Stop gracefully shuts down all workers
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	wp.mu.Unlock()

	close(wp.taskQueue) // No more tasks
	wp.wg.Wait()        // Wait for workers to finish
}

// NumWorkers returns the number of workers in the pool
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

// Dispatch runs kernel for every pixel of a width x height frame and returns
// when all tiles are done. A panicking kernel is reported as an error.
func (wp *WorkerPool) Dispatch(width, height int, kernel func(x, y int)) error {
	if width <= 0 || height <= 0 {
		return nil
	}

	// Holding the lock for the whole dispatch keeps Stop from closing the
	// queue under us and serializes dispatches from different goroutines.
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		return ErrPoolStopped
	}

	tiles := wp.tiles(width, height)
	d := &dispatch{}
	d.wg.Add(len(tiles))
	for _, tile := range tiles {
		wp.taskQueue <- TileTask{Tile: tile, Kernel: kernel, dispatch: d}
	}
	d.wg.Wait()
	return d.err
}

func (wp *WorkerPool) tiles(width, height int) []*Tile {
	key := [2]int{width, height}
	if grid, ok := wp.grids[key]; ok {
		return grid
	}
	grid := NewTileGrid(width, height, wp.tileSize)
	wp.grids[key] = grid
	return grid
}

// run is the main worker loop
func (wp *WorkerPool) run() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		runTile(task)
	}
}

func runTile(task TileTask) {
	defer task.dispatch.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			task.dispatch.fail(fmt.Errorf("renderer: kernel panic in tile %d: %v", task.Tile.ID, r))
		}
	}()

	b := task.Tile.Bounds
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			task.Kernel(x, y)
		}
	}
}
