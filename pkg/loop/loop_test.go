package loop

import (
	"sync"
	"testing"
	"time"
)

func TestPostRunsInOrder(t *testing.T) {
	l := New(Config{})
	defer l.Close()

	var (
		mu  sync.Mutex
		got []int
	)
	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		i := i
		l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 99 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for posted functions")
	}
	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestPostFromLoop(t *testing.T) {
	l := New(Config{})
	defer l.Close()

	done := make(chan struct{})
	l.Post(func() {
		l.Post(func() { close(done) })
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nested post did not run")
	}
}

func TestPostAfterClose(t *testing.T) {
	l := New(Config{})
	l.Close()

	if l.Post(func() { t.Error("ran after close") }) {
		t.Error("Post() = true after Close")
	}
	select {
	case <-l.Done():
	default:
		t.Error("loop goroutine still running after Close")
	}

	// Closing twice is harmless.
	l.Close()
}

func TestCloseWaitsForRunningFunction(t *testing.T) {
	l := New(Config{})

	started := make(chan struct{})
	release := make(chan struct{})
	var finished bool
	l.Post(func() {
		close(started)
		<-release
		finished = true
	})
	<-started

	closed := make(chan struct{})
	go func() {
		l.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a function was running")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-closed
	if !finished {
		t.Error("running function did not finish")
	}
}
