package dashboard

import (
	"context"
	"sync"
)

// Scheduler runs blocking tasks off the UI goroutine and queues closures onto it.
type Scheduler interface {
	Go(task func())
	Post(fn func())
}

// Loop is a Scheduler whose UI goroutine is the one calling Run.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
	tasks sync.WaitGroup
}

func NewLoop(size int) *Loop {
	if size <= 0 {
		size = 64
	}
	return &Loop{queue: make(chan func(), size), done: make(chan struct{})}
}

func (l *Loop) Go(task func()) {
	l.tasks.Add(1)
	go func() {
		defer l.tasks.Done()
		task()
	}()
}

// Post queues fn; it is dropped once Run has returned.
func (l *Loop) Post(fn func()) {
	select {
	case l.queue <- fn:
	case <-l.done:
	}
}

// Run drains the queue until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			fn()
		}
	}
}

// Wait blocks until every task started with Go has returned.
func (l *Loop) Wait() { l.tasks.Wait() }
