package renderer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/log"
)

var logger = log.New("renderer")

// Task is a unit of work for the pool. Before Run is called the worker's
// stream is re-keyed from (pool seed, Phase, ID), so a task sees the same
// random numbers no matter which worker picks it up.
type Task struct {
	ID    int
	Phase int
	Run   func(stream *core.RandomStream) TaskStats
}

// TaskStats is what a task reports back about the work it did
type TaskStats struct {
	Samples int64
}

// TaskResult contains the result of running a task
type TaskResult struct {
	TaskID   int
	WorkerID int
	Stats    TaskStats
	Elapsed  time.Duration
	Error    error
}

// WorkerPool runs tasks on a fixed set of goroutines
type WorkerPool struct {
	taskQueue   chan Task
	resultQueue chan TaskResult
	workers     []*Worker
	seed        uint64
	failed      atomic.Bool
	wg          sync.WaitGroup
	started     bool
}

// Worker owns a random stream exclusively and accumulates its own statistics
type Worker struct {
	ID     int
	stream *core.RandomStream
	stats  WorkerStats
	pool   *WorkerPool
}

// NewWorkerPool creates a pool with numWorkers goroutines; values below one
// select DefaultThreadCount
func NewWorkerPool(numWorkers int, seed uint64) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = DefaultThreadCount()
	}

	wp := &WorkerPool{
		taskQueue:   make(chan Task, 2*numWorkers),
		resultQueue: make(chan TaskResult, 2*numWorkers),
		seed:        seed,
	}

	master := core.NewRandomStream(seed)
	for i := 0; i < numWorkers; i++ {
		wp.workers = append(wp.workers, &Worker{
			ID:     i,
			stream: master.Split(),
			stats:  WorkerStats{ID: i},
			pool:   wp,
		})
	}
	return wp
}

// Start begins all workers
func (wp *WorkerPool) Start() {
	if wp.started {
		return
	}
	wp.started = true
	for _, worker := range wp.workers {
		wp.wg.Add(1)
		go worker.run(&wp.wg)
	}
}

// Stop shuts down all workers once the queued tasks are done. The pool
// cannot be restarted.
func (wp *WorkerPool) Stop() {
	if !wp.started {
		return
	}
	close(wp.taskQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
}

// NumWorkers returns the number of workers in the pool
func (wp *WorkerPool) NumWorkers() int {
	return len(wp.workers)
}

// Run submits tasks and blocks until every one has reported back. After the
// first failure the remaining tasks are skipped; the first error is returned.
func (wp *WorkerPool) Run(tasks []Task, progress *Progress) error {
	wp.Start()
	go func() {
		for _, task := range tasks {
			wp.taskQueue <- task
		}
	}()

	var firstErr error
	for range tasks {
		result := <-wp.resultQueue
		if result.Error != nil && firstErr == nil {
			firstErr = result.Error
		}
		if progress != nil {
			progress.Done(result)
		}
	}
	return firstErr
}

// WorkerStats returns a snapshot of per-worker statistics. Call it only
// between runs.
func (wp *WorkerPool) WorkerStats() []WorkerStats {
	out := make([]WorkerStats, len(wp.workers))
	for i, w := range wp.workers {
		out[i] = w.stats
	}
	return out
}

func (w *Worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range w.pool.taskQueue {
		var result TaskResult
		if w.pool.failed.Load() {
			result = TaskResult{TaskID: task.ID, WorkerID: w.ID}
		} else {
			result = w.execute(task)
		}
		if result.Error != nil {
			w.pool.failed.Store(true)
		}

		w.stats.Tasks++
		w.stats.Samples += result.Stats.Samples
		w.stats.Busy += result.Elapsed
		w.pool.resultQueue <- result
	}
}

// execute runs one task, turning invariant violations into an error.
// Any other panic is a programming error and is re-raised.
func (w *Worker) execute(task Task) (result TaskResult) {
	result = TaskResult{TaskID: task.ID, WorkerID: w.ID}
	start := time.Now()
	defer func() {
		result.Elapsed = time.Since(start)
		if r := recover(); r != nil {
			v, ok := r.(*core.InvariantViolation)
			if !ok {
				panic(r)
			}
			logger.Errorf("worker %d: task %d aborted: %v", w.ID, task.ID, v)
			result.Error = fmt.Errorf("task %d: %w", task.ID, v)
		}
	}()

	w.stream.Seed(core.MixSeed(core.MixSeed(w.pool.seed, uint64(task.Phase)), uint64(task.ID)))
	result.Stats = task.Run(w.stream)
	return result
}
