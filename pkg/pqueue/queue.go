// Package pqueue provides a slice backed priority queue with an optional
// size cap. A capped queue keeps only the best items, where best follows
// the configured order.
package pqueue

import "sort"

type Option func(*Queue)

// WithOrderAsc orders the queue by ascending priority. A capped queue
// then keeps the items with the smallest priorities.
func WithOrderAsc() Option {
	return func(q *Queue) {
		q.desc = false
	}
}

// WithOrderDesc orders the queue by descending priority. A capped queue
// then keeps the items with the largest priorities.
func WithOrderDesc() Option {
	return func(q *Queue) {
		q.desc = true
	}
}

// WithCap bounds the queue to size items. Items ranked past the bound
// fall off the tail on Push.
func WithCap(size uint) Option {
	return func(q *Queue) {
		q.bound = int(size)
		q.capped = true
	}
}

func New(opts ...Option) *Queue {
	q := &Queue{}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

type entry struct {
	value    interface{}
	priority float64
}

// Queue keeps items sorted by priority. Not safe for concurrent use.
type Queue struct {
	entries []entry
	desc    bool
	capped  bool
	bound   int
}

// Push inserts the value at its priority rank. Equal priorities keep
// their insertion order.
func (q *Queue) Push(value interface{}, priority float64) {
	at := sort.Search(len(q.entries), func(i int) bool {
		if q.desc {
			return q.entries[i].priority < priority
		}
		return q.entries[i].priority > priority
	})
	q.entries = append(q.entries, entry{})
	copy(q.entries[at+1:], q.entries[at:])
	q.entries[at] = entry{value: value, priority: priority}
	if q.capped && len(q.entries) > q.bound {
		q.entries = q.entries[:q.bound]
	}
}

// PopAll empties the queue, returning every value in priority order.
func (q *Queue) PopAll() []interface{} {
	out := make([]interface{}, len(q.entries))
	for i := range q.entries {
		out[i] = q.entries[i].value
	}
	q.entries = q.entries[:0]
	return out
}

func (q *Queue) Len() int { return len(q.entries) }
