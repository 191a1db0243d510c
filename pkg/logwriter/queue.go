package logwriter

import "sync"

// entryQueue is an unbounded FIFO shared by producers and the flush loop.
type entryQueue struct {
	mu    sync.Mutex
	items []Entry
	head  int
}

func (q *entryQueue) push(e Entry) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
}

// popN removes up to n entries from the head without blocking.
func (q *entryQueue) popN(n int) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	avail := len(q.items) - q.head
	if avail == 0 {
		return nil
	}
	if n > avail {
		n = avail
	}
	batch := make([]Entry, n)
	copy(batch, q.items[q.head:q.head+n])
	clear(q.items[q.head : q.head+n])
	q.head += n

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head > len(q.items)/2:
		// compact once the consumed prefix dominates the backing array
		rest := copy(q.items, q.items[q.head:])
		clear(q.items[rest:])
		q.items = q.items[:rest]
		q.head = 0
	}
	return batch
}

func (q *entryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
