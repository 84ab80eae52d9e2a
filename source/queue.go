package source

import "strings"

// Queue is a FIFO of subreddit names.
type Queue struct {
	items   []string
	visited map[string]bool
	idx     int // current read position
}

// NewQueue creates a Queue holding the given names in order.
func NewQueue(names ...string) *Queue {
	q := &Queue{
		visited: make(map[string]bool),
	}
	for _, n := range names {
		q.Add(n)
	}
	return q
}

// Add normalizes and enqueues a name if it hasn't been seen before.
// Empty names are ignored.
func (q *Queue) Add(name string) {
	name = NormalizeSubreddit(name)
	key := strings.ToLower(name)
	if key == "" || q.visited[key] {
		return
	}
	q.visited[key] = true
	q.items = append(q.items, name)
}

// HasNext returns true if there are unprocessed names.
func (q *Queue) HasNext() bool {
	return q.idx < len(q.items)
}

// Next returns the next unprocessed name and advances the pointer.
func (q *Queue) Next() string {
	name := q.items[q.idx]
	q.idx++
	return name
}

// Len returns the number of unique names queued.
func (q *Queue) Len() int {
	return len(q.items)
}

// All returns every unique name in insertion order.
func (q *Queue) All() []string {
	return q.items
}
