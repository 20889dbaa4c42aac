// Package queue provides the value-based binary heap used by graph search.
package queue

// Item is an entry of the priority queue.
type Item struct {
	ID       uint64
	Distance float32
}

// PriorityQueue is a binary heap ordered by Distance.
// A min-queue pops the closest item first, a max-queue the farthest.
type PriorityQueue struct {
	max   bool
	items []Item
}

// NewMin returns a queue that pops the smallest distance first.
func NewMin(capacity int) *PriorityQueue {
	return &PriorityQueue{items: make([]Item, 0, capacity)}
}

// NewMax returns a queue that pops the largest distance first.
func NewMax(capacity int) *PriorityQueue {
	return &PriorityQueue{max: true, items: make([]Item, 0, capacity)}
}

// Len returns the number of queued items.
func (pq *PriorityQueue) Len() int { return len(pq.items) }

// Top returns the head of the queue without removing it.
func (pq *PriorityQueue) Top() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}
	return pq.items[0], true
}

// Push inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) Push(item Item) {
	pq.items = append(pq.items, item)
	pq.up(len(pq.items) - 1)
}

// Pop removes and returns the head of the queue.
func (pq *PriorityQueue) Pop() (Item, bool) {
	n := len(pq.items)
	if n == 0 {
		return Item{}, false
	}
	head := pq.items[0]
	pq.items[0] = pq.items[n-1]
	pq.items = pq.items[:n-1]
	if len(pq.items) > 0 {
		pq.down(0)
	}
	return head, true
}

// Items returns the backing slice in heap order. Callers must not modify it.
func (pq *PriorityQueue) Items() []Item { return pq.items }

// Reset empties the queue, keeping its capacity.
func (pq *PriorityQueue) Reset() { pq.items = pq.items[:0] }

func (pq *PriorityQueue) before(i, j int) bool {
	if pq.max {
		return pq.items[i].Distance > pq.items[j].Distance
	}
	return pq.items[i].Distance < pq.items[j].Distance
}

func (pq *PriorityQueue) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !pq.before(i, parent) {
			return
		}
		pq.items[i], pq.items[parent] = pq.items[parent], pq.items[i]
		i = parent
	}
}

func (pq *PriorityQueue) down(i int) {
	n := len(pq.items)
	for {
		child := 2*i + 1
		if child >= n {
			return
		}
		if r := child + 1; r < n && pq.before(r, child) {
			child = r
		}
		if !pq.before(child, i) {
			return
		}
		pq.items[i], pq.items[child] = pq.items[child], pq.items[i]
		i = child
	}
}
