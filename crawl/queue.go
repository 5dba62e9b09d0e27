// Package crawl — ordered post queue.
// Holds discovered post URLs in page order, each URL once.
package crawl

// Queue yields post URLs first-in first-out and ignores repeats, so a post
// linked several times on one page is archived once.
type Queue struct {
	pending []string
	seen    map[string]struct{}
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{seen: make(map[string]struct{})}
}

// Add enqueues postURL unless it was added before. It reports whether the
// URL was new.
func (q *Queue) Add(postURL string) bool {
	if _, dup := q.seen[postURL]; dup {
		return false
	}
	q.seen[postURL] = struct{}{}
	q.pending = append(q.pending, postURL)
	return true
}

// HasNext reports whether URLs remain.
func (q *Queue) HasNext() bool {
	return len(q.pending) > 0
}

// Next pops the oldest pending URL.
func (q *Queue) Next() string {
	next := q.pending[0]
	q.pending = q.pending[1:]
	return next
}

// Visited returns how many distinct URLs were ever added.
func (q *Queue) Visited() int {
	return len(q.seen)
}
