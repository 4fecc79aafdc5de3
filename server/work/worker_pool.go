package work

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/Daskott/safepoint/server/models"
	"github.com/pkg/errors"
)

var SleepBackoffsInSeconds = []int64{0, 10, 100, 120}

type workerPool struct {
	handlers    map[string]Handler
	workers     []*worker
	requeuer    *requeuer
	concurrency int
	started     bool
	mu          sync.Mutex
}

func newWorkerPool(concurrency int) *workerPool {
	if concurrency <= 0 {
		concurrency = 1
	}

	wp := workerPool{
		handlers:    make(map[string]Handler),
		requeuer:    newRequeuer(STUCK_JOB_MINUTES),
		concurrency: concurrency,
	}

	for i := 0; i < concurrency; i++ {
		wp.workers = append(wp.workers, newWorker(SleepBackoffsInSeconds))
	}

	return &wp
}

// registerHandler binds a name to a job handler for all workers in pool
func (wp *workerPool) registerHandler(name string, handler Handler) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if _, ok := wp.handlers[name]; ok {
		return ErrDuplicateHandler
	}
	wp.handlers[name] = handler

	for _, worker := range wp.workers {
		err := worker.registerHandler(name, handler)

		// Only panic if we get an error that is unexpected i.e !ErrDuplicateHandler
		if err != nil && !errors.Is(err, ErrDuplicateHandler) {
			logg.Panic(err)
		}
	}
	return nil
}

// enqueue adds a job to the queue(to be executed) by creating a DB record based on 'JobParams' provided
func (wp *workerPool) enqueue(job JobParams) error {
	if strings.TrimSpace(job.Name) == "" || strings.TrimSpace(job.Handler) == "" {
		return fmt.Errorf("both a name & handler is required for a job")
	}

	argsAsJson, err := json.Marshal(job.Args)
	if err != nil {
		return errors.Wrap(err, "unable to encode job args")
	}

	// By default this ensures that all jobs currently in the queue or in-progress are unique
	err = models.CreateUniqueJobByName(job.Name, job.Handler, string(argsAsJson), job.UniqueWithin...)
	if err != nil {
		return err
	}

	for _, worker := range wp.workers {
		worker.wake()
	}
	return nil
}

// start starts all workers in pool i.e the workers can start processing jobs
func (wp *workerPool) start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}
	wp.started = true

	for _, worker := range wp.workers {
		worker.start()
	}
	wp.requeuer.start()
}

// stop stops all workers in pool i.e jobs will stop being processed
func (wp *workerPool) stop() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.started {
		return
	}

	wg := sync.WaitGroup{}
	for _, w := range wp.workers {
		wg.Add(1)
		go func(w *worker) {
			w.stop()
			wg.Done()
		}(w)
	}
	wg.Add(1)
	go func() {
		wp.requeuer.stop()
		wg.Done()
	}()

	wg.Wait()
	wp.started = false
}
