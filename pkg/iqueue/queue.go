// Package iqueue provides an unbounded FIFO bridge between a producer
// channel and a consumer channel, so a burst of sends never blocks on a
// slow consumer.
package iqueue

import "sync"

func New() *Queue {
	return &Queue{
		send: make(chan interface{}, 1),
		recv: make(chan interface{}, 1),
	}
}

// Queue buffers values between Send and Receive. Loop must be running
// for values to move.
type Queue struct {
	mtx sync.Mutex
	buf []interface{}

	send chan interface{}
	recv chan interface{}
}

// Send hands a value to the queue.
func (iq *Queue) Send(v interface{}) {
	iq.send <- v
}

// Receive exposes the consumer side of the queue.
func (iq *Queue) Receive() <-chan interface{} {
	return iq.recv
}

// Len reports how many values sit in the buffer.
func (iq *Queue) Len() int {
	iq.mtx.Lock()
	defer iq.mtx.Unlock()
	return len(iq.buf)
}

// PopFront takes the oldest buffered value, bypassing the receive
// channel. The boolean reports whether the buffer held anything. Used to
// drain the queue once the consumers are gone.
func (iq *Queue) PopFront() (interface{}, bool) {
	iq.mtx.Lock()
	defer iq.mtx.Unlock()
	if len(iq.buf) == 0 {
		return nil, false
	}
	v := iq.buf[0]
	iq.buf[0] = nil
	iq.buf = iq.buf[1:]
	return v, true
}

func (iq *Queue) push(v interface{}) {
	iq.mtx.Lock()
	iq.buf = append(iq.buf, v)
	iq.mtx.Unlock()
}

// Loop shuttles values from the send channel to the receive channel,
// buffering whatever the consumer has not taken yet. It runs for the
// lifetime of the process. Each value is handed out exactly once, either
// through Receive or through PopFront.
func (iq *Queue) Loop() {
	for {
		head, ok := iq.PopFront()
		if !ok {
			iq.push(<-iq.send)
			continue
		}
		for delivered := false; !delivered; {
			select {
			case iq.recv <- head:
				delivered = true
			case v := <-iq.send:
				iq.push(v)
			}
		}
	}
}
