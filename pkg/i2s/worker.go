// ABOUTME: Callback worker for running the per-transfer callback off the interrupt path
// ABOUTME: Bounded event queue with start and stop handshakes under a timeout
package i2s

import (
	"fmt"
	"log"
	"time"
)

type message uint8

const (
	responseStarted message = iota + 1
	responseTerminated
	eventTransferStarted
	notifyDisabled
)

func (m message) String() string {
	switch m {
	case responseStarted:
		return "started"
	case responseTerminated:
		return "terminated"
	case eventTransferStarted:
		return "transfer-started"
	case notifyDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("message(%d)", uint8(m))
	}
}

// worker plays the role of a second core: the interrupt handler posts one
// event per transfer and the worker runs the callback for each.
type worker struct {
	events  chan message
	replies chan message
	done    chan struct{}
}

// startWorker launches the worker goroutine and waits for it to report in
func startWorker(callback func(), depth int, timeout time.Duration) (*worker, error) {
	w := newWorker(depth)
	if err := w.start(callback, timeout); err != nil {
		return nil, err
	}
	return w, nil
}

func newWorker(depth int) *worker {
	return &worker{
		events:  make(chan message, depth),
		replies: make(chan message, 1),
		done:    make(chan struct{}),
	}
}

// start runs the loop and waits for its handshake. On failure the event
// queue is closed so a late starting loop exits on its own.
func (w *worker) start(callback func(), timeout time.Duration) error {
	go w.loop(callback)

	if msg, ok := w.await(timeout); !ok || msg != responseStarted {
		close(w.events)
		return fmt.Errorf("%w: start handshake got %v after %v", ErrWorkerUnresponsive, msg, timeout)
	}
	return nil
}

func (w *worker) loop(callback func()) {
	defer close(w.done)
	w.replies <- responseStarted
	log.Printf("Callback worker started")

	for msg := range w.events {
		switch msg {
		case eventTransferStarted:
			callback()
		case notifyDisabled:
			w.replies <- responseTerminated
			log.Printf("Callback worker terminated")
			return
		default:
			panic(fmt.Sprintf("i2s: unexpected worker message %v", msg))
		}
	}
}

// post queues an event without blocking; false means the queue is full
func (w *worker) post(msg message) bool {
	select {
	case w.events <- msg:
		return true
	default:
		return false
	}
}

// stop asks the worker to finish the queued events and exit
func (w *worker) stop(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case w.events <- notifyDisabled:
	case <-timer.C:
		return fmt.Errorf("%w: stop notification not accepted within %v", ErrWorkerUnresponsive, timeout)
	}

	if msg, ok := w.await(timeout); !ok || msg != responseTerminated {
		return fmt.Errorf("%w: stop handshake got %v after %v", ErrWorkerUnresponsive, msg, timeout)
	}
	<-w.done
	return nil
}

func (w *worker) await(timeout time.Duration) (message, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-w.replies:
		return msg, true
	case <-timer.C:
		return 0, false
	}
}
