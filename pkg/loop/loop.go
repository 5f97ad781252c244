// Package loop provides a serialized execution context: functions posted to
// a Loop run one at a time, in order, on the loop's goroutine.
package loop

import (
	"sync"

	"github.com/frostbyte73/core"
	"github.com/gammazero/deque"
	"github.com/pion/logging"
)

// Config configures a Loop.
type Config struct {
	// Name scopes the loop's logger. Default: "loop"
	Name string

	LoggerFactory logging.LoggerFactory
}

// Loop runs posted functions in order on a single goroutine.
type Loop struct {
	log logging.LeveledLogger

	mu     sync.Mutex
	queue  deque.Deque[func()]
	closed bool

	wake chan struct{}
	stop core.Fuse
	done chan struct{}
}

// New creates a loop and starts its goroutine.
func New(config Config) *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	if config.LoggerFactory != nil {
		name := config.Name
		if name == "" {
			name = "loop"
		}
		l.log = config.LoggerFactory.NewLogger(name)
	}
	go l.run()
	return l
}

// Post queues f. It reports false, and drops f, once the loop is closed.
func (l *Loop) Post(f func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		if l.log != nil {
			l.log.Debug("post after close dropped")
		}
		return false
	}
	l.queue.PushBack(f)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of queued functions.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.Len()
}

func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.queue.Len() == 0 {
		return nil
	}
	return l.queue.PopFront()
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.wake:
			for f := l.next(); f != nil; f = l.next() {
				f()
			}
		case <-l.stop.Watch():
			return
		}
	}
}

// Close stops the loop. Queued functions that did not start are dropped.
// Close waits for a running function to return, so it must not be called
// from the loop itself.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	dropped := l.queue.Len()
	l.queue.Clear()
	l.mu.Unlock()

	if dropped > 0 && l.log != nil {
		l.log.Debugf("closed with %d queued functions", dropped)
	}
	l.stop.Break()
	<-l.done
}

// Done is closed when the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
