package elevator

// TripRequest is a floor request together with the panel that issued it.
// Source is carried for observability only.
type TripRequest struct {
	Floor  int    `json:"floor"`
	Source string `json:"source"`
}

// RequestQueue holds requests that arrived while the car was busy.
// First submitted, first served: no bound, no deduplication, no priority.
// RequestQueue는 운행 중에 들어온 요청을 도착 순서대로 보관합니다.
type RequestQueue struct {
	items []TripRequest
	head  int
}

// Enqueue appends r.
func (q *RequestQueue) Enqueue(r TripRequest) {
	q.items = append(q.items, r)
}

// TryDequeueOldest removes and returns the head, or false when empty.
func (q *RequestQueue) TryDequeueOldest() (TripRequest, bool) {
	if q.head >= len(q.items) {
		return TripRequest{}, false
	}
	r := q.items[q.head]
	q.items[q.head] = TripRequest{}
	q.head++

	// reclaim the backing array once drained
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return r, true
}

// Len returns the number of waiting requests.
func (q *RequestQueue) Len() int {
	return len(q.items) - q.head
}

// Items returns a copy of the waiting requests, oldest first.
func (q *RequestQueue) Items() []TripRequest {
	out := make([]TripRequest, q.Len())
	copy(out, q.items[q.head:])
	return out
}
