package pipeline

import (
	"errors"
	"sync"

	"transcode-server/internal/logging"
)

// WorkerRequest mirrors the message contract of the browser worker:
// an id, a file payload, and optional per-job options.
type WorkerRequest struct {
	ID      string
	File    Request
	Options *Options
}

// WorkerResponse pairs the request id with the uniform result shape.
type WorkerResponse struct {
	ID string `json:"id"`
	Result
}

// ErrWorkerClosed is returned by Submit after Stop.
var ErrWorkerClosed = errors.New("pipeline worker is closed")

// Worker runs bounded processing jobs from a queue, one at a time per
// worker goroutine, posting each result back on the response channel.
type Worker struct {
	proc      *Processor
	requests  chan WorkerRequest
	responses chan WorkerResponse

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorker creates a worker pool of size goroutines around proc with a
// queue of the given buffer depth.
func NewWorker(proc *Processor, size, buffer int) *Worker {
	if size < 1 {
		size = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	w := &Worker{
		proc:      proc,
		requests:  make(chan WorkerRequest, buffer),
		responses: make(chan WorkerResponse, buffer),
	}
	for i := 0; i < size; i++ {
		w.wg.Add(1)
		go w.loop()
	}
	return w
}

// Submit queues a job without blocking. Returns false if the queue is
// full.
func (w *Worker) Submit(req WorkerRequest) (ok bool) {
	defer func() {
		if recover() != nil {
			// Submit raced with Stop; report as not queued.
			ok = false
		}
	}()
	select {
	case w.requests <- req:
		return true
	default:
		return false
	}
}

// Responses is the stream of finished jobs.
func (w *Worker) Responses() <-chan WorkerResponse {
	return w.responses
}

// Stop closes the queue, waits for in-flight jobs, then closes the
// response channel.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.requests)
		w.wg.Wait()
		close(w.responses)
	})
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for req := range w.requests {
		proc := w.proc
		if req.Options != nil {
			proc = NewProcessor(w.proc.encoder, *req.Options)
		}
		result := proc.Process(req.File)
		if !result.Success {
			logging.Debug("pipeline job %s failed: %s", req.ID, result.ErrorKind)
		}
		w.responses <- WorkerResponse{ID: req.ID, Result: result}
	}
}
