package util

import (
	"errors"
	"sync"

	"github.com/intakehq/autoflow/logger"
	"go.uber.org/zap"
)

var ErrWorkerFull = errors.New("worker queue is full")

type Task any

// Worker drains a bounded queue on a single goroutine.
type Worker struct {
	name     string
	stop     chan struct{}
	stopOnce sync.Once
	wg       *sync.WaitGroup
	handler  func(Task) error
	taskChan chan Task
}

func NewWorker(name string, wg *sync.WaitGroup, handler func(Task) error, capacity int) *Worker {
	return &Worker{
		taskChan: make(chan Task, capacity),
		name:     name,
		wg:       wg,
		stop:     make(chan struct{}),
		handler:  handler,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case task := <-w.taskChan:
				w.handle(task)
			case <-w.stop:
				logger.Info("stopping worker", zap.String("worker", w.name), zap.Int("dropped", len(w.taskChan)))
				return
			}
		}
	}()
}

func (w *Worker) handle(task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker task panicked", zap.String("worker", w.name), zap.Any("panic", r))
		}
	}()
	if err := w.handler(task); err != nil {
		logger.Error("error in executing task in worker", zap.String("worker", w.name), zap.Any("task", task), zap.Error(err))
	}
}

// Submit enqueues task without blocking. ErrWorkerFull is returned when the queue is at capacity.
func (w *Worker) Submit(task Task) error {
	select {
	case w.taskChan <- task:
		return nil
	default:
		return ErrWorkerFull
	}
}

func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}
