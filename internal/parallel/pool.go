// Package parallel runs per-row raster work across a fixed set of workers.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// minRowsPerBand keeps bands large enough that scheduling does not dominate
// for small frames.
const minRowsPerBand = 16

// WorkerPool is a pool of goroutines executing batches of work.
//
// Thread safety: WorkerPool is safe for concurrent use. Once closed, work is
// executed inline on the calling goroutine.
type WorkerPool struct {
	workers int
	queue   chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
	closeMu sync.RWMutex
}

// NewWorkerPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &WorkerPool{
		workers: workers,
		queue:   make(chan func(), workers*4),
		done:    make(chan struct{}),
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case work := <-p.queue:
			work()
		case <-p.done:
			return
		}
	}
}

// ExecuteAll runs every item of work and waits for all of them.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}

	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if !p.running.Load() || len(work) == 1 {
		for _, fn := range work {
			fn()
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(work))
	for _, fn := range work {
		p.queue <- func() {
			defer wg.Done()
			fn()
		}
	}
	wg.Wait()
}

// Rows splits [0, height) into contiguous bands and calls fn for each band
// in parallel, returning once all bands are done.
func (p *WorkerPool) Rows(height int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	bands := min(p.workers, (height+minRowsPerBand-1)/minRowsPerBand)
	bands = max(bands, 1)
	step := (height + bands - 1) / bands

	work := make([]func(), 0, bands)
	for y := 0; y < height; y += step {
		y0, y1 := y, min(y+step, height)
		work = append(work, func() { fn(y0, y1) })
	}
	p.ExecuteAll(work)
}

// Close stops the workers. Work queued by running ExecuteAll calls completes
// first. Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()

	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool still dispatches to its workers.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
