// Package searcher implements the queues used by graph beam search.
package searcher

// Candidate is an entry in a priority queue: a node arena index and its
// distance to the query.
type Candidate struct {
	Node     uint32
	Distance float32
}

// PriorityQueue is a binary heap of Candidates. Storage is value-based for
// cache locality; it deliberately does not implement container/heap to avoid
// the interface overhead on the search hot path.
type PriorityQueue struct {
	isMaxHeap bool
	items     []Candidate
}

// NewPriorityQueue creates a new priority queue.
// A max-heap keeps the farthest candidate on top (result sets); a min-heap
// keeps the nearest on top (expansion frontiers).
func NewPriorityQueue(isMaxHeap bool) *PriorityQueue {
	return &PriorityQueue{
		isMaxHeap: isMaxHeap,
		items:     make([]Candidate, 0, 16),
	}
}

// Reset clears the queue for reuse.
func (pq *PriorityQueue) Reset() {
	pq.items = pq.items[:0]
}

// Len returns the number of elements in the heap.
func (pq *PriorityQueue) Len() int {
	return len(pq.items)
}

// Top returns the top element without removing it.
func (pq *PriorityQueue) Top() (Candidate, bool) {
	if len(pq.items) == 0 {
		return Candidate{}, false
	}
	return pq.items[0], true
}

// Push inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) Push(item Candidate) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// PushBounded inserts into a heap capped at capacity. On a full max-heap the
// top (farthest) is replaced when the new item is nearer; it reports whether
// the item was admitted.
func (pq *PriorityQueue) PushBounded(item Candidate, capacity int) bool {
	if len(pq.items) < capacity {
		pq.Push(item)
		return true
	}

	top, _ := pq.Top()
	if pq.isMaxHeap {
		if item.Distance < top.Distance {
			pq.items[0] = item
			pq.siftDown(0)
			return true
		}
	} else {
		if item.Distance > top.Distance {
			pq.items[0] = item
			pq.siftDown(0)
			return true
		}
	}

	return false
}

// Pop removes and returns the top element.
func (pq *PriorityQueue) Pop() (Candidate, bool) {
	n := len(pq.items)
	if n == 0 {
		return Candidate{}, false
	}

	item := pq.items[0]
	pq.items[0] = pq.items[n-1]
	pq.items = pq.items[:n-1]

	if len(pq.items) > 0 {
		pq.siftDown(0)
	}

	return item, true
}

func (pq *PriorityQueue) less(i, j int) bool {
	if pq.isMaxHeap {
		return pq.items[i].Distance > pq.items[j].Distance
	}
	return pq.items[i].Distance < pq.items[j].Distance
}

func (pq *PriorityQueue) swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

func (pq *PriorityQueue) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !pq.less(i, parent) {
			break
		}
		pq.swap(i, parent)
		i = parent
	}
}

func (pq *PriorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && pq.less(right, left) {
			child = right
		}
		if !pq.less(child, i) {
			break
		}
		pq.swap(i, child)
		i = child
	}
}
