package shell

import "sync"

// outbox is an unbounded FIFO between a session's output readers and the
// runner's event stream. Readers never wait on the consumer, so a slow
// consumer can't hold the pipes full while the process exits.
type outbox struct {
	mu     sync.Mutex
	queue  []Event
	closed bool
	ready  chan struct{}
}

func newOutbox() *outbox {
	return &outbox{ready: make(chan struct{}, 1)}
}

// push queues ev without blocking
func (o *outbox) push(ev Event) {
	o.mu.Lock()
	o.queue = append(o.queue, ev)
	o.mu.Unlock()
	o.signal()
}

// close marks the end of input; drain returns once the queue is empty
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.signal()
}

func (o *outbox) signal() {
	select {
	case o.ready <- struct{}{}:
	default:
	}
}

// drain hands every queued event to emit in order until closed and empty
func (o *outbox) drain(emit func(Event)) {
	for {
		o.mu.Lock()
		batch := o.queue
		o.queue = nil
		closed := o.closed
		o.mu.Unlock()

		for _, ev := range batch {
			emit(ev)
		}
		if len(batch) == 0 {
			if closed {
				return
			}
			<-o.ready
		}
	}
}
