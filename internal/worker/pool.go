// Package worker runs background jobs (export rendering) off the engine
// loop on a small fixed pool.
package worker

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Job is a unit of background work.
type Job interface {
	Execute() error
	ID() string
}

// Worker pulls jobs from the shared pool and runs them one at a time.
type Worker struct {
	id         int
	workerPool chan chan Job
	jobChannel chan Job
	quit       chan struct{}
	wg         *sync.WaitGroup
	log        *logrus.Logger
}

func newWorker(id int, pool chan chan Job, wg *sync.WaitGroup, log *logrus.Logger) *Worker {
	return &Worker{
		id:         id,
		workerPool: pool,
		jobChannel: make(chan Job),
		quit:       make(chan struct{}),
		wg:         wg,
		log:        log,
	}
}

func (w *Worker) start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			// Offer this worker's channel back to the pool.
			w.workerPool <- w.jobChannel

			select {
			case job := <-w.jobChannel:
				entry := w.log.WithFields(logrus.Fields{"worker": w.id, "job": job.ID()})
				entry.Debug("job started")
				if err := job.Execute(); err != nil {
					entry.WithError(err).Error("job failed")
				} else {
					entry.Debug("job finished")
				}
			case <-w.quit:
				return
			}
		}
	}()
}

func (w *Worker) stop() {
	close(w.quit)
}

// Dispatcher owns a bounded job queue and a pool of workers.
type Dispatcher struct {
	log        *logrus.Logger
	maxWorkers int
	workerPool chan chan Job
	jobQueue   chan Job
	workers    []*Worker
	wg         sync.WaitGroup
	quit       chan struct{}
}

func NewDispatcher(maxWorkers, queueSize int, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		log:        log,
		maxWorkers: maxWorkers,
		workerPool: make(chan chan Job, maxWorkers),
		jobQueue:   make(chan Job, queueSize),
		quit:       make(chan struct{}),
	}
}

// Run starts the workers and the dispatch loop.
func (d *Dispatcher) Run() {
	for i := 1; i <= d.maxWorkers; i++ {
		w := newWorker(i, d.workerPool, &d.wg, d.log)
		d.workers = append(d.workers, w)
		w.start()
	}
	go d.dispatch()
	d.log.WithField("workers", d.maxWorkers).Debug("export dispatcher running")
}

func (d *Dispatcher) dispatch() {
	for {
		select {
		case job := <-d.jobQueue:
			go func(job Job) {
				jobChannel := <-d.workerPool
				jobChannel <- job
			}(job)
		case <-d.quit:
			return
		}
	}
}

// Submit queues a job without blocking. It reports false when the queue is
// full; the caller decides whether that is an error.
func (d *Dispatcher) Submit(job Job) bool {
	select {
	case d.jobQueue <- job:
		return true
	default:
		d.log.WithField("job", job.ID()).Warn("job queue full, submission rejected")
		return false
	}
}

// Stop shuts the dispatcher down and waits for in-flight jobs.
func (d *Dispatcher) Stop() {
	close(d.quit)
	for _, w := range d.workers {
		w.stop()
	}
	d.wg.Wait()
}
